package broker

import (
	"errors"

	"notibroker/internal/notify"
	logx "notibroker/pkg/logx"
)

// Slot management. The mutating self-service calls operate on the caller's
// own bundle; cross-bundle variants require a system caller.

// AddSlots creates the caller's slots. Existing slot types are left as the
// user configured them; publishing a custom-type slot needs a system app.
func (b *Broker) AddSlots(callerUID int32, slots []notify.Slot) error {
	var err error
	if serr := b.actor.submit("add-slots", func() {
		for _, s := range slots {
			if s.Type == notify.SlotCustom {
				if err = b.requireSystemApp(callerUID); err != nil {
					return
				}
				break
			}
		}
		var owner notify.BundleID
		owner, err = b.resolveCaller(callerUID)
		if err != nil {
			return
		}
		err = b.prefs.AddSlots(owner, slots)
	}); serr != nil {
		return serr
	}
	return err
}

// GetSlot returns one of the caller's slots.
func (b *Broker) GetSlot(callerUID int32, t notify.SlotType) (notify.Slot, error) {
	var (
		slot notify.Slot
		err  error
	)
	if serr := b.actor.submit("get-slot", func() {
		var owner notify.BundleID
		owner, err = b.resolveCaller(callerUID)
		if err != nil {
			return
		}
		slot, err = b.prefs.GetSlot(owner, t)
	}); serr != nil {
		return notify.Slot{}, serr
	}
	return slot, err
}

// GetSlots lists the caller's slots. A bundle that never configured any
// gets an empty list, not an error.
func (b *Broker) GetSlots(callerUID int32) ([]notify.Slot, error) {
	var (
		slots []notify.Slot
		err   error
	)
	if serr := b.actor.submit("get-slots", func() {
		var owner notify.BundleID
		owner, err = b.resolveCaller(callerUID)
		if err != nil {
			return
		}
		slots, err = b.prefs.GetSlots(owner)
		if errors.Is(err, notify.ErrBundleNotConfigured) {
			slots, err = nil, nil
		}
	}); serr != nil {
		return nil, serr
	}
	return slots, err
}

// UpdateSlots reconfigures another bundle's existing slots. System callers
// only; slots the bundle never added are an error, not an implicit create.
func (b *Broker) UpdateSlots(callerUID int32, bundle notify.BundleID, slots []notify.Slot) error {
	var err error
	if serr := b.actor.submit("update-slots", func() {
		if err = b.requireSystemApp(callerUID); err != nil {
			return
		}
		err = b.prefs.UpdateSlots(bundle, slots)
	}); serr != nil {
		return serr
	}
	return err
}

// RemoveSlot deletes one of the caller's slots.
func (b *Broker) RemoveSlot(callerUID int32, t notify.SlotType) error {
	var err error
	if serr := b.actor.submit("remove-slot", func() {
		var owner notify.BundleID
		owner, err = b.resolveCaller(callerUID)
		if err != nil {
			return
		}
		err = b.prefs.RemoveSlot(owner, t)
	}); serr != nil {
		return serr
	}
	return err
}

// RemoveAllSlots deletes every slot the caller configured.
func (b *Broker) RemoveAllSlots(callerUID int32) error {
	var err error
	if serr := b.actor.submit("remove-all-slots", func() {
		var owner notify.BundleID
		owner, err = b.resolveCaller(callerUID)
		if err != nil {
			return
		}
		err = b.prefs.RemoveAllSlots(owner)
	}); serr != nil {
		return serr
	}
	return err
}

// AddSlotGroups creates slot groups for the caller, bounded by the per-app
// group limit.
func (b *Broker) AddSlotGroups(callerUID int32, groups []notify.SlotGroup) error {
	var err error
	if serr := b.actor.submit("add-slot-groups", func() {
		var owner notify.BundleID
		owner, err = b.resolveCaller(callerUID)
		if err != nil {
			return
		}
		err = b.prefs.AddGroups(owner, groups)
	}); serr != nil {
		return serr
	}
	return err
}

// GetSlotGroup returns one of the caller's groups.
func (b *Broker) GetSlotGroup(callerUID int32, groupID string) (notify.SlotGroup, error) {
	var (
		g   notify.SlotGroup
		err error
	)
	if serr := b.actor.submit("get-slot-group", func() {
		var owner notify.BundleID
		owner, err = b.resolveCaller(callerUID)
		if err != nil {
			return
		}
		g, err = b.prefs.GetGroup(owner, groupID)
	}); serr != nil {
		return notify.SlotGroup{}, serr
	}
	return g, err
}

// GetSlotGroups lists the caller's groups; unconfigured bundles get an
// empty list.
func (b *Broker) GetSlotGroups(callerUID int32) ([]notify.SlotGroup, error) {
	var (
		gs  []notify.SlotGroup
		err error
	)
	if serr := b.actor.submit("get-slot-groups", func() {
		var owner notify.BundleID
		owner, err = b.resolveCaller(callerUID)
		if err != nil {
			return
		}
		gs, err = b.prefs.GetGroups(owner)
		if errors.Is(err, notify.ErrBundleNotConfigured) {
			gs, err = nil, nil
		}
	}); serr != nil {
		return nil, serr
	}
	return gs, err
}

// UpdateSlotGroups rewrites existing groups of the caller.
func (b *Broker) UpdateSlotGroups(callerUID int32, groups []notify.SlotGroup) error {
	var err error
	if serr := b.actor.submit("update-slot-groups", func() {
		var owner notify.BundleID
		owner, err = b.resolveCaller(callerUID)
		if err != nil {
			return
		}
		err = b.prefs.UpdateGroups(owner, groups)
	}); serr != nil {
		return serr
	}
	return err
}

// RemoveSlotGroups deletes the named groups of the caller.
func (b *Broker) RemoveSlotGroups(callerUID int32, groupIDs []string) error {
	var err error
	if serr := b.actor.submit("remove-slot-groups", func() {
		var owner notify.BundleID
		owner, err = b.resolveCaller(callerUID)
		if err != nil {
			return
		}
		err = b.prefs.RemoveGroups(owner, groupIDs)
	}); serr != nil {
		return serr
	}
	return err
}

// SetEnabledForBundleSlot flips one slot's enabled flag for any bundle,
// creating the default slot first when the bundle never configured the
// type. On an actual change it emits the external slot-changed broadcast
// and the subscriber enabled-changed event. System callers only.
func (b *Broker) SetEnabledForBundleSlot(callerUID int32, bundle notify.BundleID, t notify.SlotType, enabled bool) error {
	var err error
	if serr := b.actor.submit("set-slot-enabled", func() {
		if err = b.requireSystemApp(callerUID); err != nil {
			return
		}
		var slot notify.Slot
		slot, err = b.resolveSlot(bundle, t)
		if err != nil {
			return
		}
		if slot.Enabled == enabled {
			return
		}
		slot.Enabled = enabled
		if err = b.prefs.UpdateSlots(bundle, []notify.Slot{slot}); err != nil {
			return
		}
		if b.slotCast != nil {
			b.slotCast.SlotChanged(bundle, t, enabled)
		}
		b.subs.NotifyEnabledChanged(bundle, enabled)
		b.log.Info("slot enabled changed", logx.String("bundle", bundle.Name), logx.String("slot", t.String()), logx.Bool("enabled", enabled))
	}); serr != nil {
		return serr
	}
	return err
}

// GetEnabledForBundleSlot reads a slot's enabled flag; an unconfigured slot
// reports the default, enabled.
func (b *Broker) GetEnabledForBundleSlot(callerUID int32, bundle notify.BundleID, t notify.SlotType) (bool, error) {
	var (
		enabled = true
		err     error
	)
	if serr := b.actor.submit("get-slot-enabled", func() {
		if err = b.requireSystemApp(callerUID); err != nil {
			return
		}
		slot, gerr := b.prefs.GetSlot(bundle, t)
		if gerr != nil {
			if errors.Is(gerr, notify.ErrBundleNotConfigured) || errors.Is(gerr, notify.ErrSlotTypeNotConfigured) {
				return
			}
			err = gerr
			return
		}
		enabled = slot.Enabled
	}); serr != nil {
		return false, serr
	}
	return enabled, err
}
