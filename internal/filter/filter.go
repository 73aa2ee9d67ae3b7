// Package filter runs the broker's publish admission checks.
//
// Filters execute in a fixed declared order (permission, slot, disturb);
// the first rejection short-circuits the chain. A filter may adjust the
// record's runtime state (alert flags) but must never touch its content.
package filter

import (
	"errors"
	"time"

	"notibroker/internal/notify"
	"notibroker/internal/prefs"
)

// Filter inspects a record on its way into the active registry.
type Filter interface {
	Name() string
	OnPublish(r *notify.Record) error
}

// Chain is an ordered filter list. Adding a filter is an explicit edit of
// the slice passed to NewChain.
type Chain struct {
	filters []Filter
}

func NewChain(filters ...Filter) *Chain {
	return &Chain{filters: filters}
}

// Default builds the standard chain backed by the preference store.
func Default(store *prefs.Store, now func() time.Time) *Chain {
	if now == nil {
		now = time.Now
	}
	return NewChain(
		&Permission{Prefs: store},
		&SlotCheck{},
		&Disturb{Prefs: store, Now: now},
	)
}

// OnPublish runs every filter in order; the first error wins.
func (c *Chain) OnPublish(r *notify.Record) error {
	for _, f := range c.filters {
		if err := f.OnPublish(r); err != nil {
			return err
		}
	}
	return nil
}

// Permission rejects records from bundles whose notifications are switched
// off. A bundle with no stored preferences is enabled by default.
type Permission struct {
	Prefs *prefs.Store
}

func (f *Permission) Name() string { return "permission" }

func (f *Permission) OnPublish(r *notify.Record) error {
	enabled, err := f.Prefs.GetEnabledForBundle(r.Owner)
	if errors.Is(err, notify.ErrBundleNotConfigured) {
		return nil
	}
	if err != nil {
		return err
	}
	if !enabled {
		return notify.ErrNotAllowed
	}
	return nil
}

// SlotCheck requires a resolved, enabled slot and copies the slot's alert
// profile onto the record runtime.
type SlotCheck struct{}

func (f *SlotCheck) Name() string { return "slot" }

func (f *SlotCheck) OnPublish(r *notify.Record) error {
	slot := r.Slot
	if slot == nil {
		return notify.ErrSlotTypeNotConfigured
	}
	if !slot.Enabled {
		return notify.ErrSlotDisabled
	}

	if slot.LightEnabled {
		r.Runtime.EnableLight = true
		r.Runtime.LightColor = slot.LightColor
	} else {
		r.Runtime.EnableLight = false
	}

	if len(slot.VibrationStyle) > 0 {
		r.Runtime.EnableVibration = true
		r.Runtime.VibrationStyle = append([]int64(nil), slot.VibrationStyle...)
	} else {
		r.Runtime.EnableVibration = false
	}

	if slot.Sound != "" {
		r.Runtime.EnableSound = true
		r.Runtime.Sound = slot.Sound
	} else {
		r.Runtime.EnableSound = false
	}

	if r.Runtime.Visibleness == notify.VisiblenessNoOverride {
		r.Runtime.Visibleness = slot.LockScreenVisibleness
	}
	return nil
}

// Disturb suppresses alert channels while the owner's do-not-disturb window
// is active, unless the record is alarm-class or its slot bypasses DND. It
// never rejects the publish outright except when slot resolution is missing.
type Disturb struct {
	Prefs *prefs.Store
	Now   func() time.Time
}

func (f *Disturb) Name() string { return "disturb" }

func (f *Disturb) OnPublish(r *notify.Record) error {
	if r.Slot == nil {
		return notify.ErrSlotTypeNotConfigured
	}

	date, err := f.Prefs.GetDoNotDisturb(notify.UserID(r.Owner.UID))
	if err != nil {
		return err
	}
	if !date.Active(f.Now().UnixMilli()) {
		return nil
	}
	if r.Content.Classification == notify.ClassificationAlarm || r.Slot.BypassDND {
		return nil
	}
	r.ClearAlerts()
	return nil
}
