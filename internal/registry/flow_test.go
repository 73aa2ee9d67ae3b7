package registry

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"notibroker/internal/notify"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newFakeClock() *fakeClock { return &fakeClock{now: time.Unix(1_700_000_000, 0)} }

func newFlow(l FlowLimits, c *fakeClock) *FlowController {
	f := NewFlowController(l)
	f.SetClock(c.Now)
	return f
}

func TestFlowPerSecondWindow(t *testing.T) {
	t.Parallel()
	clk := newFakeClock()
	f := newFlow(FlowLimits{MaxPerSecond: 3}, clk)
	g := New()

	for i := int32(0); i < 3; i++ {
		r := mkRecord("app1", 42, "L", i, int64(i), notify.LevelDefault)
		if _, err := f.Admit(g, r); err != nil {
			t.Fatalf("admit %d: %v", i, err)
		}
		g.Insert(r)
		clk.Advance(100 * time.Millisecond)
	}

	r := mkRecord("app1", 42, "L", 10, 10, notify.LevelDefault)
	if _, err := f.Admit(g, r); !errors.Is(err, notify.ErrOverRate) {
		t.Fatalf("4th admit in window: err = %v, want ErrOverRate", err)
	}

	// The rejected attempt left no stamp; once the window slides past the
	// first admit, one slot frees up.
	clk.Advance(750 * time.Millisecond)
	if _, err := f.Admit(g, r); err != nil {
		t.Fatalf("admit after window slid: %v", err)
	}
}

func TestFlowPerAppCapEvictsVictim(t *testing.T) {
	t.Parallel()
	clk := newFakeClock()
	f := newFlow(FlowLimits{MaxActivePerApp: 2, MaxPerSecond: 100}, clk)
	g := New()

	old := mkRecord("app1", 42, "L", 1, 10, notify.LevelLow)
	g.Insert(old)
	g.Insert(mkRecord("app1", 42, "L", 2, 20, notify.LevelHigh))

	r := mkRecord("app1", 42, "L", 3, 30, notify.LevelDefault)
	evicted, err := f.Admit(g, r)
	if err != nil {
		t.Fatalf("admit: %v", err)
	}
	if len(evicted) != 1 || evicted[0].Content.ID != 1 {
		t.Fatalf("evicted = %v, want the low-level record id 1", evicted)
	}
	g.Insert(r)
	if g.Len() != 2 {
		t.Fatalf("len = %d, want 2", g.Len())
	}
	if g.Find(old.Key()) != nil {
		t.Fatal("evicted record still live")
	}
}

func TestFlowGlobalCapEvicts(t *testing.T) {
	t.Parallel()
	clk := newFakeClock()
	f := newFlow(FlowLimits{MaxActive: 3, MaxActivePerApp: 100, MaxPerSecond: 100}, clk)
	g := New()

	for i := int32(0); i < 3; i++ {
		g.Insert(mkRecord(fmt.Sprintf("app%d", i), 42+i, "L", i, int64(10+i), notify.LevelDefault))
	}

	r := mkRecord("app9", 99, "L", 9, 100, notify.LevelDefault)
	evicted, err := f.Admit(g, r)
	if err != nil {
		t.Fatalf("admit: %v", err)
	}
	if len(evicted) != 1 || evicted[0].Content.ID != 0 {
		t.Fatalf("evicted = %v, want oldest record id 0", evicted)
	}
	g.Insert(r)
	if g.Len() != 3 {
		t.Fatalf("len = %d, want 3", g.Len())
	}
}

func TestFlowGlobalCapPrefersOwnRecords(t *testing.T) {
	t.Parallel()
	clk := newFakeClock()
	f := newFlow(FlowLimits{MaxActive: 2, MaxActivePerApp: 100, MaxPerSecond: 100}, clk)
	g := New()

	// app2's record is globally the weakest, but the publisher owns a live
	// record and that one is sacrificed first.
	mine := mkRecord("app1", 42, "L", 1, 50, notify.LevelHigh)
	g.Insert(mine)
	g.Insert(mkRecord("app2", 43, "L", 2, 10, notify.LevelLow))

	r := mkRecord("app1", 42, "L", 3, 60, notify.LevelDefault)
	evicted, err := f.Admit(g, r)
	if err != nil {
		t.Fatalf("admit: %v", err)
	}
	if len(evicted) != 1 || evicted[0] != mine {
		t.Fatalf("evicted = %v, want the publisher's own record id 1", evicted)
	}
	g.Insert(r)
	if g.Find(mkRecord("app2", 43, "L", 2, 10, notify.LevelLow).Key()) == nil {
		t.Fatal("other owner's record should survive")
	}
}

func TestFlowDefaults(t *testing.T) {
	t.Parallel()
	l := FlowLimits{}.withDefaults()
	if l.MaxActive != DefaultMaxActive || l.MaxActivePerApp != DefaultMaxActivePerApp || l.MaxPerSecond != DefaultMaxPerSecond {
		t.Fatalf("defaults = %+v", l)
	}
}
