package distributed

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"notibroker/internal/notify"
	"notibroker/pkg/logx"
)

type fakeTransport struct {
	mu       sync.Mutex
	sent     []Envelope
	failLeft int

	inbound chan Envelope
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{inbound: make(chan Envelope, 16)}
}

func (t *fakeTransport) Send(_ context.Context, env Envelope) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.failLeft > 0 {
		t.failLeft--
		return errors.New("transport down")
	}
	t.sent = append(t.sent, env)
	return nil
}

func (t *fakeTransport) Listen(ctx context.Context, fn func(Envelope)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case env := <-t.inbound:
			fn(env)
		}
	}
}

func (t *fakeTransport) Close() error { return nil }

func (t *fakeTransport) sentEnvelopes() []Envelope {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Envelope(nil), t.sent...)
}

type fakeHandler struct {
	mu      sync.Mutex
	pubs    []Envelope
	deletes []Envelope
}

func (h *fakeHandler) PublishFromDevice(deviceID string, owner notify.BundleID, content notify.Content) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pubs = append(h.pubs, Envelope{DeviceID: deviceID, Bundle: owner.Name, OwnerUID: owner.UID, Content: content})
	return nil
}

func (h *fakeHandler) DeleteFromDevice(deviceID string, owner notify.BundleID, label string, id int32) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.deletes = append(h.deletes, Envelope{DeviceID: deviceID, Bundle: owner.Name, OwnerUID: owner.UID, Label: label, ID: id})
	return nil
}

func (h *fakeHandler) counts() (int, int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.pubs), len(h.deletes)
}

func testRecord() *notify.Record {
	return &notify.Record{
		Owner: notify.BundleID{Name: "app1", UID: 42},
		Content: notify.Content{
			ID:    7,
			Label: "L",
			Title: "hello",
		},
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestOutboundEnvelopes(t *testing.T) {
	t.Parallel()
	tr := newFakeTransport()
	s := New(Config{DeviceID: "devA"}, tr, &fakeHandler{}, logx.Nop())
	s.Start(context.Background())
	defer s.Stop()

	rec := testRecord()
	s.Publish(rec)
	s.Delete(rec)

	waitFor(t, func() bool { return len(tr.sentEnvelopes()) == 2 })
	sent := tr.sentEnvelopes()

	pub := sent[0]
	if pub.Op != OpPublish || pub.DeviceID != "devA" || pub.Bundle != "app1" || pub.OwnerUID != 42 {
		t.Fatalf("publish envelope = %+v", pub)
	}
	if pub.Content.Title != "hello" || pub.SentAt == 0 {
		t.Fatalf("publish payload = %+v", pub)
	}

	del := sent[1]
	if del.Op != OpDelete || del.Label != "L" || del.ID != 7 {
		t.Fatalf("delete envelope = %+v", del)
	}
	// Deletes carry identity only, no content body.
	if del.Content.Title != "" {
		t.Fatalf("delete carried content: %+v", del)
	}
}

func TestSendRetries(t *testing.T) {
	t.Parallel()
	tr := newFakeTransport()
	tr.failLeft = 2
	cfg := Config{DeviceID: "devA", RetryMax: 3, RetryBase: 5 * time.Millisecond}
	s := New(cfg, tr, &fakeHandler{}, logx.Nop())
	s.Start(context.Background())
	defer s.Stop()

	s.Publish(testRecord())
	waitFor(t, func() bool { return len(tr.sentEnvelopes()) == 1 })
}

func TestInboundRouting(t *testing.T) {
	t.Parallel()
	tr := newFakeTransport()
	h := &fakeHandler{}
	s := New(Config{DeviceID: "devA"}, tr, h, logx.Nop())
	s.Start(context.Background())
	defer s.Stop()

	tr.inbound <- Envelope{Op: OpPublish, DeviceID: "devB", OwnerUID: 42, Content: notify.Content{ID: 1}}
	tr.inbound <- Envelope{Op: OpUpdate, DeviceID: "devB", OwnerUID: 42, Content: notify.Content{ID: 1}}
	tr.inbound <- Envelope{Op: OpDelete, DeviceID: "devB", OwnerUID: 42, Label: "L", ID: 1}
	// Echoes of our own sends and anonymous envelopes are dropped.
	tr.inbound <- Envelope{Op: OpPublish, DeviceID: "devA", OwnerUID: 42}
	tr.inbound <- Envelope{Op: OpPublish, DeviceID: "", OwnerUID: 42}
	tr.inbound <- Envelope{Op: Op("mystery"), DeviceID: "devB"}

	waitFor(t, func() bool {
		pubs, dels := h.counts()
		return pubs == 2 && dels == 1
	})
	pubs, dels := h.counts()
	if pubs != 2 || dels != 1 {
		t.Fatalf("routed pubs=%d dels=%d", pubs, dels)
	}
}

func TestRedisTransportRoundTrip(t *testing.T) {
	t.Parallel()
	srv := miniredis.RunT(t)

	sender := NewRedisTransport(redis.NewClient(&redis.Options{Addr: srv.Addr()}), "sync-test")
	receiver := NewRedisTransport(redis.NewClient(&redis.Options{Addr: srv.Addr()}), "sync-test")
	defer sender.Close()
	defer receiver.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan Envelope, 1)
	go func() {
		_ = receiver.Listen(ctx, func(env Envelope) {
			select {
			case got <- env:
			default:
			}
		})
	}()

	want := Envelope{Op: OpPublish, DeviceID: "devA", Bundle: "app1", OwnerUID: 42, Label: "L", ID: 7}

	// Re-send until the subscription is live; pub/sub has no delivery for
	// messages published before the subscriber attached.
	deadline := time.Now().Add(5 * time.Second)
	for {
		if err := sender.Send(ctx, want); err != nil {
			t.Fatalf("Send: %v", err)
		}
		select {
		case env := <-got:
			if env.Op != want.Op || env.DeviceID != want.DeviceID || env.ID != want.ID {
				t.Fatalf("received = %+v", env)
			}
			return
		case <-time.After(50 * time.Millisecond):
			if time.Now().After(deadline) {
				t.Fatal("no envelope received")
			}
		}
	}
}
