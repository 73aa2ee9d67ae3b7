package registry

import (
	"testing"

	"notibroker/internal/notify"
)

func mkRecord(bundle string, uid int32, label string, id int32, createTime int64, level notify.SlotLevel) *notify.Record {
	slot := notify.DefaultSlot(notify.SlotOther)
	slot.Level = level
	return &notify.Record{
		Owner: notify.BundleID{Name: bundle, UID: uid},
		Content: notify.Content{
			ID:         id,
			Label:      label,
			CreateTime: createTime,
			SlotType:   notify.SlotOther,
		},
		Slot: &slot,
	}
}

func TestRankingFollowsCreateTime(t *testing.T) {
	t.Parallel()
	g := New()
	g.Insert(mkRecord("app1", 42, "L", 1, 100, notify.LevelDefault))
	g.Insert(mkRecord("app1", 42, "L", 2, 50, notify.LevelDefault))
	g.Insert(mkRecord("app1", 42, "L", 3, 75, notify.LevelDefault))

	m := g.SortingMap()
	if m.Size() != 3 {
		t.Fatalf("size = %d, want 3", m.Size())
	}
	wantOrder := []int32{2, 3, 1}
	for rank, id := range wantOrder {
		if got := m.Sortings[rank].Key.ID; got != id {
			t.Fatalf("rank %d = id %d, want %d", rank, got, id)
		}
	}
	key := notify.RecordKey{Owner: notify.BundleID{Name: "app1", UID: 42}, Label: "L", ID: 2}
	if got := m.RankOf(key); got != 0 {
		t.Fatalf("RankOf(id=2) = %d, want 0", got)
	}
}

func TestUpdateReplacesInPlace(t *testing.T) {
	t.Parallel()
	g := New()
	g.Insert(mkRecord("app1", 42, "L", 1, 100, notify.LevelDefault))

	upd := mkRecord("app1", 42, "L", 1, 100, notify.LevelDefault)
	upd.Content.Title = "updated"
	if !g.Update(upd) {
		t.Fatal("Update reported no match")
	}
	if g.Len() != 1 {
		t.Fatalf("len = %d after update, want 1", g.Len())
	}
	if got := g.Find(upd.Key()); got == nil || got.Content.Title != "updated" {
		t.Fatalf("Find returned %+v", got)
	}

	missing := mkRecord("app1", 42, "L", 99, 100, notify.LevelDefault)
	if g.Update(missing) {
		t.Fatal("Update matched a record that was never inserted")
	}
}

func TestRemovableKeysSkipsUnremovable(t *testing.T) {
	t.Parallel()
	g := New()
	g.Insert(mkRecord("app1", 42, "L", 1, 100, notify.LevelDefault))
	pinned := mkRecord("app1", 42, "L", 2, 200, notify.LevelDefault)
	pinned.Content.Unremovable = true
	g.Insert(pinned)
	g.Insert(mkRecord("app2", 43, "L", 3, 300, notify.LevelDefault))

	keys := g.RemovableKeys("")
	if len(keys) != 2 {
		t.Fatalf("removable = %d keys, want 2", len(keys))
	}
	for _, k := range keys {
		if k.ID == 2 {
			t.Fatal("unremovable record listed as removable")
		}
	}

	keys = g.RemovableKeys("app2")
	if len(keys) != 1 || keys[0].ID != 3 {
		t.Fatalf("removable(app2) = %v", keys)
	}
}

func TestEvictionVictimOrder(t *testing.T) {
	t.Parallel()
	recs := []*notify.Record{
		mkRecord("app1", 42, "L", 1, 300, notify.LevelHigh),
		mkRecord("app1", 42, "L", 2, 100, notify.LevelLow),
		mkRecord("app1", 42, "L", 3, 50, notify.LevelLow),
		mkRecord("app1", 42, "L", 4, 10, notify.LevelHigh),
	}
	v := evictionVictim(recs)
	if v == nil || v.Content.ID != 3 {
		t.Fatalf("victim = %+v, want id 3 (lowest level, oldest)", v)
	}
}
