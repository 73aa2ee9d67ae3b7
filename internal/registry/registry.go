// Package registry keeps the canonical in-memory list of live notifications
// and the admission-control policy that bounds it.
//
// The registry is owned exclusively by the broker's worker goroutine; it has
// no internal locking and must never be touched from anywhere else. Records
// are held in creation-time order and re-ranked after every mutation.
package registry

import (
	"sort"

	"notibroker/internal/notify"
)

// Registry is the active-notification list. At most one record exists per
// identity key.
type Registry struct {
	records []*notify.Record
}

func New() *Registry {
	return &Registry{}
}

func (g *Registry) Len() int { return len(g.records) }

// Find returns the canonical record for key, or nil.
func (g *Registry) Find(key notify.RecordKey) *notify.Record {
	for _, r := range g.records {
		if r.Key() == key {
			return r
		}
	}
	return nil
}

// All returns the canonical records in rank order. Callers must not retain
// the slice across registry mutations.
func (g *Registry) All() []*notify.Record {
	return g.records
}

// ByOwner returns the records owned by one bundle, in rank order.
func (g *Registry) ByOwner(owner notify.BundleID) []*notify.Record {
	var out []*notify.Record
	for _, r := range g.records {
		if r.Owner == owner {
			out = append(out, r)
		}
	}
	return out
}

// Insert adds a new record. The caller has already established (via Find)
// that the key is not live and that the flow controller admitted it.
func (g *Registry) Insert(r *notify.Record) {
	g.records = append(g.records, r)
	g.sort()
}

// Update replaces the live record with the same identity key in place.
// It reports whether a record was found.
func (g *Registry) Update(r *notify.Record) bool {
	key := r.Key()
	for i, cur := range g.records {
		if cur.Key() == key {
			g.records[i] = r
			g.sort()
			return true
		}
	}
	return false
}

// Remove deletes the record for key and returns it, or nil when absent.
// Removal guards (unremovable, remove-allowed) are enforced by the caller,
// which knows which cancel path it is on.
func (g *Registry) Remove(key notify.RecordKey) *notify.Record {
	for i, r := range g.records {
		if r.Key() == key {
			g.records = append(g.records[:i], g.records[i+1:]...)
			return r
		}
	}
	return nil
}

// RemovableKeys lists the keys blanket cancel operations may touch: records
// flagged unremovable are skipped. An empty bundle name matches every owner.
func (g *Registry) RemovableKeys(bundleName string) []notify.RecordKey {
	var keys []notify.RecordKey
	for _, r := range g.records {
		if bundleName != "" && r.Owner.Name != bundleName {
			continue
		}
		if r.Content.Unremovable {
			continue
		}
		keys = append(keys, r.Key())
	}
	return keys
}

// SortingMap snapshots the current ranking, including each record's slot.
func (g *Registry) SortingMap() *notify.SortingMap {
	m := &notify.SortingMap{Sortings: make([]notify.Sorting, 0, len(g.records))}
	for i, r := range g.records {
		var slot *notify.Slot
		if r.Slot != nil {
			cp := *r.Slot
			slot = &cp
		}
		m.Sortings = append(m.Sortings, notify.Sorting{
			Key:     r.Key(),
			Ranking: i,
			Slot:    slot,
		})
	}
	return m
}

func (g *Registry) sort() {
	sort.SliceStable(g.records, func(i, j int) bool {
		return g.records[i].Content.CreateTime < g.records[j].Content.CreateTime
	})
}

// evictionVictim picks the record to drop under capacity pressure: lowest
// slot level first, oldest creation time as tie-break.
func evictionVictim(candidates []*notify.Record) *notify.Record {
	var victim *notify.Record
	for _, r := range candidates {
		if victim == nil || lessForEviction(r, victim) {
			victim = r
		}
	}
	return victim
}

func lessForEviction(a, b *notify.Record) bool {
	al, bl := slotLevel(a), slotLevel(b)
	if al != bl {
		return al < bl
	}
	return a.Content.CreateTime < b.Content.CreateTime
}

func slotLevel(r *notify.Record) notify.SlotLevel {
	if r.Slot == nil {
		return notify.LevelNone
	}
	return r.Slot.Level
}
