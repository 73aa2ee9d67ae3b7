package broker

import (
	"notibroker/internal/notify"
	logx "notibroker/pkg/logx"
)

// Cancel removes the caller's own notification identified by (label, id).
// Ownership exempts the record from the unremovable pin, but a publish with
// RemoveAllowed false declines even its own publisher's per-id cancel.
func (b *Broker) Cancel(callerUID int32, label string, id int32) error {
	var err error
	if serr := b.actor.submit("cancel", func() {
		var owner notify.BundleID
		owner, err = b.resolveCaller(callerUID)
		if err != nil {
			return
		}
		key := notify.RecordKey{Owner: owner, Label: label, ID: id}
		rec := b.reg.Find(key)
		if rec == nil {
			err = notify.ErrNotificationNotExists
			return
		}
		if !rec.Content.RemoveAllowed {
			err = notify.ErrRemovalNotAllowed
			return
		}
		b.reg.Remove(key)
		b.finishRemoval(rec, notify.ReasonExplicitCancel, true)
	}); serr != nil {
		return serr
	}
	return err
}

// CancelAll removes every notification the caller owns. Records pinned
// with Unremovable survive the blanket sweep and stay live.
func (b *Broker) CancelAll(callerUID int32) error {
	var err error
	if serr := b.actor.submit("cancel-all", func() {
		var owner notify.BundleID
		owner, err = b.resolveCaller(callerUID)
		if err != nil {
			return
		}
		var targets []*notify.Record
		for _, rec := range b.reg.ByOwner(owner) {
			if rec.Content.Unremovable {
				continue
			}
			targets = append(targets, rec)
		}
		for _, rec := range targets {
			b.reg.Remove(rec.Key())
			b.finishRemoval(rec, notify.ReasonCancelAll, true)
		}
	}); serr != nil {
		return serr
	}
	return err
}

// CancelAsBundle lets a system app cancel a notification published by
// another bundle, addressed by its default uid for the given user.
func (b *Broker) CancelAsBundle(callerUID int32, bundleName string, id int32, userID int32) error {
	var err error
	if serr := b.actor.submit("cancel-as-bundle", func() {
		if err = b.requireSystemApp(callerUID); err != nil {
			return
		}
		uid, ok := b.ident.DefaultUID(bundleName, userID)
		if !ok {
			err = notify.ErrInvalidBundle
			return
		}
		key := notify.RecordKey{Owner: notify.BundleID{Name: bundleName, UID: uid}, ID: id}
		rec := b.reg.Remove(key)
		if rec == nil {
			err = notify.ErrNotificationNotExists
			return
		}
		b.finishRemoval(rec, notify.ReasonExplicitCancel, true)
	}); serr != nil {
		return serr
	}
	return err
}

// Delete removes one notification by full identity key on behalf of the
// user (system caller). Both removal guards apply.
func (b *Broker) Delete(callerUID int32, key notify.RecordKey) error {
	var err error
	if serr := b.actor.submit("delete", func() {
		if err = b.requireSystemApp(callerUID); err != nil {
			return
		}
		rec := b.reg.Find(key)
		if rec == nil {
			err = notify.ErrNotificationNotExists
			return
		}
		if rec.Content.Unremovable {
			err = notify.ErrUnremovable
			return
		}
		if !rec.Content.RemoveAllowed {
			err = notify.ErrRemovalNotAllowed
			return
		}
		b.reg.Remove(key)
		b.finishRemoval(rec, notify.ReasonExplicitCancel, true)
	}); serr != nil {
		return serr
	}
	return err
}

// DeleteByBundle removes one bundle's removable notifications. Unremovable
// records are skipped silently, not reported as errors.
func (b *Broker) DeleteByBundle(callerUID int32, bundleName string) error {
	return b.deleteSweep(callerUID, "delete-by-bundle", func(r *notify.Record) bool {
		return r.Owner.Name == bundleName
	})
}

// DeleteAll removes every removable notification on the device.
func (b *Broker) DeleteAll(callerUID int32) error {
	return b.deleteSweep(callerUID, "delete-all", func(*notify.Record) bool { return true })
}

// DeleteAllByUser removes every removable notification owned by one device
// user.
func (b *Broker) DeleteAllByUser(callerUID int32, userID int32) error {
	return b.deleteSweep(callerUID, "delete-all-by-user", func(r *notify.Record) bool {
		return notify.UserID(r.Owner.UID) == userID
	})
}

func (b *Broker) deleteSweep(callerUID int32, name string, match func(*notify.Record) bool) error {
	var err error
	if serr := b.actor.submit(name, func() {
		if err = b.requireSystemApp(callerUID); err != nil {
			return
		}
		var targets []*notify.Record
		for _, key := range b.reg.RemovableKeys("") {
			if rec := b.reg.Find(key); rec != nil && match(rec) {
				targets = append(targets, rec)
			}
		}
		for _, rec := range targets {
			b.reg.Remove(rec.Key())
			b.finishRemoval(rec, notify.ReasonCancelAll, true)
		}
		b.log.Debug("sweep removed", logx.String("op", name), logx.Int("count", len(targets)))
	}); serr != nil {
		return serr
	}
	return err
}

// DeleteFromDevice removes a mirrored notification canceled on its origin
// device. No system-app check and no local identity lookup: the owner
// identity is the origin device's and the distributed collaborator is
// trusted. The origin's removal callback is not reachable from here, so
// none fires.
func (b *Broker) DeleteFromDevice(deviceID string, owner notify.BundleID, label string, id int32) error {
	if deviceID == "" || owner.Name == "" {
		return notify.ErrInvalidParam
	}
	var err error
	if serr := b.actor.submit("delete-remote", func() {
		key := notify.RecordKey{Owner: owner, Label: label, ID: id, DeviceID: deviceID}
		rec := b.reg.Remove(key)
		if rec == nil {
			err = notify.ErrNotificationNotExists
			return
		}
		b.finishRemoval(rec, notify.ReasonDistributedDelete, false)
	}); serr != nil {
		return serr
	}
	return err
}

// OnBundleRemoved cleans up after an uninstalled application: its live
// notifications go away regardless of guards and its preferences are
// dropped.
func (b *Broker) OnBundleRemoved(bundleName string, uid int32) {
	b.actor.submitAsync("bundle-removed", func() {
		b.cleanupBundle(notify.BundleID{Name: bundleName, UID: uid}, notify.ReasonPackageRemoved)
	})
}

// OnBundleDataCleared handles an app's data being wiped: same sweep as
// removal, different delete reason.
func (b *Broker) OnBundleDataCleared(bundleName string, uid int32) {
	b.actor.submitAsync("bundle-data-cleared", func() {
		b.cleanupBundle(notify.BundleID{Name: bundleName, UID: uid}, notify.ReasonBundleDataCleared)
	})
}

func (b *Broker) cleanupBundle(owner notify.BundleID, reason notify.DeleteReason) {
	for _, rec := range append([]*notify.Record(nil), b.reg.ByOwner(owner)...) {
		b.reg.Remove(rec.Key())
		b.finishRemoval(rec, reason, false)
	}
	if err := b.prefs.RemoveBundle(owner); err != nil {
		b.log.Warn("bundle preference cleanup failed", logx.String("bundle", owner.Name), logx.Err(err))
	}
}
