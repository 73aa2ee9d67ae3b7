package broker

import (
	"errors"

	"notibroker/internal/eventbus"
	"notibroker/internal/notify"
	logx "notibroker/pkg/logx"
)

// Publish runs the admission pipeline for a caller-supplied notification.
// The same identity key admits at most one live record: a second publish
// updates it in place and bypasses flow control.
func (b *Broker) Publish(callerUID int32, content notify.Content) error {
	var err error
	if serr := b.actor.submit("publish", func() {
		err = b.publishLocked(callerUID, content, "")
	}); serr != nil {
		return serr
	}
	return err
}

// PublishFromDevice re-enters an inbound distributed notification, tagged
// with its non-empty origin device id. The owner identity comes from the
// origin device and is trusted as-is: local uid tables need not know the
// remote bundle, and the origin already ran the caller-side checks.
func (b *Broker) PublishFromDevice(deviceID string, owner notify.BundleID, content notify.Content) error {
	if deviceID == "" || owner.Name == "" {
		return notify.ErrInvalidParam
	}
	var err error
	if serr := b.actor.submit("publish-remote", func() {
		err = b.admitLocked(owner, owner, content, deviceID)
	}); serr != nil {
		return serr
	}
	return err
}

// publishLocked runs on the worker goroutine.
func (b *Broker) publishLocked(callerUID int32, content notify.Content, deviceID string) error {
	creator, err := b.resolveCaller(callerUID)
	if err != nil {
		return err
	}
	owner := creator

	// Agent publish: a system app may publish on behalf of another bundle;
	// the record is owned by the agent target, not the caller.
	if content.AgentBundle != "" {
		if err := b.requireSystemApp(callerUID); err != nil {
			return err
		}
		uid, ok := b.ident.DefaultUID(content.AgentBundle, notify.UserID(callerUID))
		if !ok {
			return notify.ErrInvalidBundle
		}
		owner = notify.BundleID{Name: content.AgentBundle, UID: uid}
	}

	if content.SlotType == notify.SlotCustom {
		if err := b.requireSystemApp(callerUID); err != nil {
			return err
		}
	}

	return b.admitLocked(creator, owner, content, deviceID)
}

// admitLocked is the caller-independent back half of admission: defaults,
// payload limits, slot resolution, the filter chain, then insert-or-update.
// Runs on the worker goroutine.
func (b *Broker) admitLocked(creator, owner notify.BundleID, content notify.Content, deviceID string) error {
	now := b.nowMs()
	if content.CreateTime == 0 {
		content.CreateTime = now
	}
	if content.DeliveryTime == 0 {
		content.DeliveryTime = content.CreateTime
	}

	// Oversize payloads are rejected before any state changes; the caller's
	// existing records and preferences are untouched.
	if len(content.LittleIcon) > b.cfg.MaxIconSize || len(content.BigIcon) > b.cfg.MaxIconSize {
		return notify.ErrIconOverSize
	}
	if len(content.Picture) > b.cfg.MaxPictureSize {
		return notify.ErrPictureOverSize
	}

	slot, err := b.resolveSlot(owner, content.SlotType)
	if err != nil {
		return err
	}
	if !slot.Enabled {
		return notify.ErrSlotDisabled
	}

	rec := &notify.Record{
		Owner:   owner,
		Creator: creator,
		Content: content,
		Runtime: notify.Runtime{DeviceID: deviceID},
		Slot:    &slot,
	}
	if err := b.filters.OnPublish(rec); err != nil {
		b.log.Debug("publish vetoed", logx.String("key", rec.Key().String()), logx.Err(err))
		return err
	}

	key := rec.Key()
	if existing := b.reg.Find(key); existing != nil {
		// Update path: alert-once keeps the new content but never
		// re-triggers sound, light or vibration.
		if rec.Content.AlertOnce {
			rec.ClearAlerts()
		}
		b.reg.Update(rec)
		b.fanOutConsumed(rec)
		if b.mirror != nil && rec.Content.Distributed && deviceID == "" {
			b.mirror.Update(rec.Snapshot())
		}
		return nil
	}

	evicted, err := b.flow.Admit(b.reg, rec)
	if err != nil {
		b.log.Warn("publish rejected by flow control", logx.String("key", key.String()), logx.Err(err))
		return err
	}
	b.reg.Insert(rec)
	for _, victim := range evicted {
		b.finishRemoval(victim, notify.ReasonFlowControlEvict, false)
	}
	b.fanOutConsumed(rec)
	if b.bus != nil {
		b.bus.Publish(eventbus.Event{Type: eventbus.TypePublished, Data: eventbus.Published{
			Key:     key.String(),
			Bundle:  owner.Name,
			Evicted: len(evicted),
			Active:  b.reg.Len(),
		}})
	}
	if b.mirror != nil && rec.Content.Distributed && deviceID == "" {
		b.mirror.Publish(rec.Snapshot())
	}
	return nil
}

// resolveSlot returns the owner's slot for t, lazily creating the default
// profile when the bundle has never configured this type.
func (b *Broker) resolveSlot(owner notify.BundleID, t notify.SlotType) (notify.Slot, error) {
	slot, err := b.prefs.GetSlot(owner, t)
	if err == nil {
		return slot, nil
	}
	if !errors.Is(err, notify.ErrBundleNotConfigured) && !errors.Is(err, notify.ErrSlotTypeNotConfigured) {
		return notify.Slot{}, err
	}
	def := notify.DefaultSlot(t)
	if err := b.prefs.AddSlots(owner, []notify.Slot{def}); err != nil {
		return notify.Slot{}, err
	}
	return b.prefs.GetSlot(owner, t)
}

// fanOutConsumed snapshots the record and current ranking and delivers the
// consumed event. Runs on the worker, so the ranking is exactly the one
// this admission produced.
func (b *Broker) fanOutConsumed(rec *notify.Record) {
	m := b.reg.SortingMap()
	b.subs.NotifyConsumed(rec.Snapshot(), m)
}

// finishRemoval stamps delete metadata on an already-removed record, fires
// the removal callback when the path asks for it, and delivers the canceled
// event. Flow-control evictions skip the callback.
func (b *Broker) finishRemoval(rec *notify.Record, reason notify.DeleteReason, invokeCallback bool) {
	rec.Runtime.DeleteReason = reason
	rec.Runtime.DeleteTime = b.nowMs()
	if invokeCallback && b.onRemoved != nil && rec.Content.RemoveToken != "" {
		b.onRemoved.InvokeRemoval(rec.Content.RemoveToken, rec.Key())
	}
	m := b.reg.SortingMap()
	b.subs.NotifyCanceled(rec.Snapshot(), m, reason)
	if b.mirror != nil && rec.Content.Distributed && rec.Runtime.DeviceID == "" {
		b.mirror.Delete(rec.Snapshot())
	}
	if b.bus != nil {
		b.bus.Publish(eventbus.Event{Type: eventbus.TypeCanceled, Data: eventbus.Canceled{
			Key:    rec.Key().String(),
			Bundle: rec.Owner.Name,
			Reason: reason.String(),
			Active: b.reg.Len(),
		}})
	}
}
