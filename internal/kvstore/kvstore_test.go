package kvstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"notibroker/pkg/logx"
)

func TestMemoryRoundTrip(t *testing.T) {
	t.Parallel()
	m := NewMemory()
	ctx := context.Background()

	if _, err := m.Get(ctx, "missing"); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("err = %v, want ErrKeyNotFound", err)
	}
	if err := m.Put(ctx, "a", "1"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	v, err := m.Get(ctx, "a")
	if err != nil || v != "1" {
		t.Fatalf("Get = %q, %v", v, err)
	}
	if err := m.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := m.Get(ctx, "a"); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("after delete: err = %v", err)
	}
}

func TestMemoryListPrefix(t *testing.T) {
	t.Parallel()
	m := NewMemory()
	ctx := context.Background()

	for k, v := range map[string]string{
		"pref/bundle/a": "1",
		"pref/bundle/b": "2",
		"pref/user/0":   "3",
	} {
		if err := m.Put(ctx, k, v); err != nil {
			t.Fatalf("Put %s: %v", k, err)
		}
	}
	got, err := m.List(ctx, "pref/bundle/")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 || got["pref/bundle/a"] != "1" || got["pref/bundle/b"] != "2" {
		t.Fatalf("List = %v", got)
	}
}

func TestMemoryClosed(t *testing.T) {
	t.Parallel()
	m := NewMemory()
	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := m.Put(context.Background(), "a", "1"); !errors.Is(err, ErrClosed) {
		t.Fatalf("err = %v, want ErrClosed", err)
	}
}

func TestOpenDefaultsToMemory(t *testing.T) {
	t.Parallel()
	e, err := Open(Config{}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer e.Close()
	if _, ok := e.(*Memory); !ok {
		t.Fatalf("engine = %T, want *Memory", e)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	t.Parallel()
	if _, err := Open(Config{Driver: "etcd"}, logx.Nop()); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestRedisRoundTrip(t *testing.T) {
	t.Parallel()
	srv := miniredis.RunT(t)

	e, err := Open(Config{
		Driver:       "redis",
		Addr:         srv.Addr(),
		Namespace:    "nb-test",
		PingInterval: time.Minute,
	}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer e.Close()

	ctx := context.Background()
	if _, err := e.Get(ctx, "missing"); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("err = %v, want ErrKeyNotFound", err)
	}
	if err := e.Put(ctx, "pref/bundle/a", "1"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	v, err := e.Get(ctx, "pref/bundle/a")
	if err != nil || v != "1" {
		t.Fatalf("Get = %q, %v", v, err)
	}

	// The stored key carries the namespace prefix.
	raw, err := srv.Get("nb-test:pref/bundle/a")
	if err != nil || raw != "1" {
		t.Fatalf("raw key = %q, %v", raw, err)
	}

	if err := e.Delete(ctx, "pref/bundle/a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := e.Get(ctx, "pref/bundle/a"); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("after delete: err = %v", err)
	}
}

func TestRedisListStripsNamespace(t *testing.T) {
	t.Parallel()
	srv := miniredis.RunT(t)

	e, err := Open(Config{Driver: "redis", Addr: srv.Addr(), PingInterval: time.Minute}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer e.Close()

	ctx := context.Background()
	for k, v := range map[string]string{
		"pref/bundle/a": "1",
		"pref/bundle/b": "2",
		"pref/user/0":   "3",
	} {
		if err := e.Put(ctx, k, v); err != nil {
			t.Fatalf("Put %s: %v", k, err)
		}
	}
	got, err := e.List(ctx, "pref/bundle/")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 || got["pref/bundle/a"] != "1" || got["pref/bundle/b"] != "2" {
		t.Fatalf("List = %v", got)
	}
}
