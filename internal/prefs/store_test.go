package prefs

import (
	"context"
	"errors"
	"testing"
	"time"

	"notibroker/internal/kvstore"
	"notibroker/internal/notify"
	logx "notibroker/pkg/logx"
)

var app1 = notify.BundleID{Name: "app1", UID: 42}

func newTestStore(t *testing.T) (*Store, *kvstore.Memory) {
	t.Helper()
	engine := kvstore.NewMemory()
	return New(engine, logx.Nop()), engine
}

func TestSlotRoundTrip(t *testing.T) {
	t.Parallel()
	s, _ := newTestStore(t)

	def := notify.DefaultSlot(notify.SlotSocialCommunication)
	if err := s.AddSlots(app1, []notify.Slot{def}); err != nil {
		t.Fatalf("AddSlots: %v", err)
	}
	got, err := s.GetSlot(app1, notify.SlotSocialCommunication)
	if err != nil {
		t.Fatalf("GetSlot: %v", err)
	}
	if got.Level != notify.LevelHigh || !got.Enabled {
		t.Fatalf("slot = %+v", got)
	}

	if _, err := s.GetSlot(app1, notify.SlotOther); !errors.Is(err, notify.ErrSlotTypeNotConfigured) {
		t.Fatalf("missing type: err = %v", err)
	}
	other := notify.BundleID{Name: "other", UID: 7}
	if _, err := s.GetSlot(other, notify.SlotOther); !errors.Is(err, notify.ErrBundleNotConfigured) {
		t.Fatalf("missing bundle: err = %v", err)
	}
}

func TestUpdateSlotsRequiresExisting(t *testing.T) {
	t.Parallel()
	s, _ := newTestStore(t)
	if err := s.UpdateSlots(app1, []notify.Slot{notify.DefaultSlot(notify.SlotOther)}); !errors.Is(err, notify.ErrBundleNotConfigured) {
		t.Fatalf("err = %v, want ErrBundleNotConfigured", err)
	}

	if err := s.AddSlots(app1, []notify.Slot{notify.DefaultSlot(notify.SlotOther)}); err != nil {
		t.Fatalf("AddSlots: %v", err)
	}
	if err := s.UpdateSlots(app1, []notify.Slot{notify.DefaultSlot(notify.SlotSocialCommunication)}); !errors.Is(err, notify.ErrSlotTypeNotConfigured) {
		t.Fatalf("err = %v, want ErrSlotTypeNotConfigured", err)
	}

	upd := notify.DefaultSlot(notify.SlotOther)
	upd.Enabled = false
	if err := s.UpdateSlots(app1, []notify.Slot{upd}); err != nil {
		t.Fatalf("UpdateSlots: %v", err)
	}
	got, _ := s.GetSlot(app1, notify.SlotOther)
	if got.Enabled {
		t.Fatal("update did not stick")
	}
}

func TestGroupCapacity(t *testing.T) {
	t.Parallel()
	s, _ := newTestStore(t)

	groups := []notify.SlotGroup{
		{ID: "g1", Name: "one"},
		{ID: "g2", Name: "two"},
		{ID: "g3", Name: "three"},
		{ID: "g4", Name: "four"},
	}
	if err := s.AddGroups(app1, groups); err != nil {
		t.Fatalf("AddGroups at cap: %v", err)
	}
	err := s.AddGroups(app1, []notify.SlotGroup{{ID: "g5", Name: "five"}})
	if !errors.Is(err, notify.ErrGroupCapacityExceeded) {
		t.Fatalf("err = %v, want ErrGroupCapacityExceeded", err)
	}

	if err := s.AddGroups(app1, []notify.SlotGroup{{ID: "", Name: "anon"}}); !errors.Is(err, notify.ErrSlotGroupIDInvalid) {
		t.Fatalf("err = %v, want ErrSlotGroupIDInvalid", err)
	}
}

func TestGroupCapacityOption(t *testing.T) {
	t.Parallel()
	engine := kvstore.NewMemory()
	s := New(engine, logx.Nop(), WithMaxSlotGroups(1))
	if err := s.AddGroups(app1, []notify.SlotGroup{{ID: "g1", Name: "one"}}); err != nil {
		t.Fatalf("AddGroups: %v", err)
	}
	if err := s.AddGroups(app1, []notify.SlotGroup{{ID: "g2", Name: "two"}}); !errors.Is(err, notify.ErrGroupCapacityExceeded) {
		t.Fatalf("err = %v", err)
	}
}

func TestNegativeBadgeRejected(t *testing.T) {
	t.Parallel()
	s, _ := newTestStore(t)
	if err := s.SetTotalBadgeNum(app1, -1); !errors.Is(err, notify.ErrInvalidParam) {
		t.Fatalf("err = %v, want ErrInvalidParam", err)
	}
	if err := s.SetTotalBadgeNum(app1, 5); err != nil {
		t.Fatalf("SetTotalBadgeNum: %v", err)
	}
	if n, err := s.GetTotalBadgeNum(app1); err != nil || n != 5 {
		t.Fatalf("badge = %d, %v", n, err)
	}
}

func TestEnabledDefaults(t *testing.T) {
	t.Parallel()
	s, _ := newTestStore(t)
	// Per-user global switch defaults on; per-bundle flag defaults on too.
	on, err := s.GetEnabledGlobally(0)
	if err != nil || !on {
		t.Fatalf("global default = %v, %v", on, err)
	}
	if err := s.SetEnabledGlobally(0, false); err != nil {
		t.Fatalf("SetEnabledGlobally: %v", err)
	}
	on, _ = s.GetEnabledGlobally(0)
	if on {
		t.Fatal("global switch did not persist")
	}
}

func TestPersistenceSurvivesReload(t *testing.T) {
	t.Parallel()
	engine := kvstore.NewMemory()
	s := New(engine, logx.Nop())
	if err := s.AddSlots(app1, []notify.Slot{notify.DefaultSlot(notify.SlotServiceReminder)}); err != nil {
		t.Fatalf("AddSlots: %v", err)
	}
	if err := s.SetShowBadge(app1, false); err != nil {
		t.Fatalf("SetShowBadge: %v", err)
	}

	// A second store over the same engine sees the same state.
	s2 := New(engine, logx.Nop())
	if _, err := s2.GetSlot(app1, notify.SlotServiceReminder); err != nil {
		t.Fatalf("reloaded GetSlot: %v", err)
	}
	show, err := s2.IsShowBadge(app1)
	if err != nil || show {
		t.Fatalf("reloaded badge = %v, %v", show, err)
	}
}

func TestEngineOutageFallsBackToCache(t *testing.T) {
	t.Parallel()
	engine := kvstore.NewMemory()
	s := New(engine, logx.Nop())

	s.HandleEngineState(false)
	if err := s.AddSlots(app1, []notify.Slot{notify.DefaultSlot(notify.SlotOther)}); err != nil {
		t.Fatalf("AddSlots while engine down: %v", err)
	}
	// Served from cache even though nothing was persisted.
	if _, err := s.GetSlot(app1, notify.SlotOther); err != nil {
		t.Fatalf("GetSlot while engine down: %v", err)
	}
	if _, err := engine.Get(context.Background(), "pref/bundle/app1_42"); !errors.Is(err, kvstore.ErrKeyNotFound) {
		t.Fatalf("engine write happened while marked dead: %v", err)
	}

	// Reconnect flushes the dirty entry.
	s.HandleEngineState(true)
	if _, err := engine.Get(context.Background(), "pref/bundle/app1_42"); err != nil {
		t.Fatalf("dirty flush after reconnect: %v", err)
	}
}

func TestDNDOnceExpiresOnRead(t *testing.T) {
	t.Parallel()
	engine := kvstore.NewMemory()
	clock := time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC)
	s := New(engine, logx.Nop(), WithClock(func() time.Time { return clock }))

	src := time.Date(2000, 1, 1, 9, 0, 0, 0, time.UTC)
	end := time.Date(2000, 1, 1, 10, 0, 0, 0, time.UTC)
	if _, err := s.SetDoNotDisturb(0, notify.DoNotDisturbDate{Type: notify.DNDOnce, Begin: src.UnixMilli(), End: end.UnixMilli()}); err != nil {
		t.Fatalf("SetDoNotDisturb: %v", err)
	}

	got, err := s.GetDoNotDisturb(0)
	if err != nil {
		t.Fatalf("GetDoNotDisturb: %v", err)
	}
	wantBegin := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC).UnixMilli()
	if got.Type != notify.DNDOnce || got.Begin != wantBegin {
		t.Fatalf("projected window = %+v", got)
	}

	// Window elapsed: the read collapses it to none and persists that.
	clock = time.Date(2026, 3, 14, 11, 0, 0, 0, time.UTC)
	got, err = s.GetDoNotDisturb(0)
	if err != nil {
		t.Fatalf("GetDoNotDisturb after expiry: %v", err)
	}
	if got.Type != notify.DNDNone || got.Begin != 0 || got.End != 0 {
		t.Fatalf("expired window = %+v, want none", got)
	}
	got, _ = s.GetDoNotDisturb(0)
	if got.Type != notify.DNDNone {
		t.Fatal("expiry not idempotent")
	}
}

func TestDNDClearlyValidation(t *testing.T) {
	t.Parallel()
	s, _ := newTestStore(t)
	_, err := s.SetDoNotDisturb(0, notify.DoNotDisturbDate{Type: notify.DNDClearly, Begin: 2000, End: 1000})
	if !errors.Is(err, notify.ErrInvalidParam) {
		t.Fatalf("err = %v, want ErrInvalidParam", err)
	}
}
