package broker

import (
	"notibroker/internal/notify"
)

// GetActiveNotifications returns snapshots of the caller's own live
// notifications, in rank order.
func (b *Broker) GetActiveNotifications(callerUID int32) ([]*notify.Record, error) {
	var (
		out []*notify.Record
		err error
	)
	if serr := b.actor.submit("get-active", func() {
		var owner notify.BundleID
		owner, err = b.resolveCaller(callerUID)
		if err != nil {
			return
		}
		for _, rec := range b.reg.ByOwner(owner) {
			out = append(out, rec.Snapshot())
		}
	}); serr != nil {
		return nil, serr
	}
	return out, err
}

// GetActiveNotificationNums returns how many live notifications the caller
// owns.
func (b *Broker) GetActiveNotificationNums(callerUID int32) (int, error) {
	var (
		n   int
		err error
	)
	if serr := b.actor.submit("get-active-nums", func() {
		var owner notify.BundleID
		owner, err = b.resolveCaller(callerUID)
		if err != nil {
			return
		}
		n = len(b.reg.ByOwner(owner))
	}); serr != nil {
		return 0, serr
	}
	return n, err
}

// GetAllActiveNotifications returns snapshots of every live notification.
// System callers only.
func (b *Broker) GetAllActiveNotifications(callerUID int32) ([]*notify.Record, error) {
	var (
		out []*notify.Record
		err error
	)
	if serr := b.actor.submit("get-all-active", func() {
		if err = b.requireSystemApp(callerUID); err != nil {
			return
		}
		for _, rec := range b.reg.All() {
			out = append(out, rec.Snapshot())
		}
	}); serr != nil {
		return nil, serr
	}
	return out, err
}

// GetSpecialActiveNotifications returns snapshots for the requested keys,
// silently skipping ones that are no longer live. System callers only.
func (b *Broker) GetSpecialActiveNotifications(callerUID int32, keys []notify.RecordKey) ([]*notify.Record, error) {
	var (
		out []*notify.Record
		err error
	)
	if serr := b.actor.submit("get-special-active", func() {
		if err = b.requireSystemApp(callerUID); err != nil {
			return
		}
		for _, key := range keys {
			if rec := b.reg.Find(key); rec != nil {
				out = append(out, rec.Snapshot())
			}
		}
	}); serr != nil {
		return nil, serr
	}
	return out, err
}

// ActiveCount reports the registry size. Telemetry convenience for the
// daemon surface; serialized like every other read.
func (b *Broker) ActiveCount() (int, error) {
	var n int
	if err := b.actor.submit("active-count", func() { n = b.reg.Len() }); err != nil {
		return 0, err
	}
	return n, nil
}
