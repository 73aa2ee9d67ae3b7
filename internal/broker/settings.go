package broker

import (
	"notibroker/internal/notify"
)

// runSystem wraps a worker closure behind the system-app check.
func (b *Broker) runSystem(callerUID int32, name string, fn func() error) error {
	var err error
	if serr := b.actor.submit(name, func() {
		if err = b.requireSystemApp(callerUID); err != nil {
			return
		}
		err = fn()
	}); serr != nil {
		return serr
	}
	return err
}

// SetShowBadge flips badge display for a bundle. System callers only.
func (b *Broker) SetShowBadge(callerUID int32, bundle notify.BundleID, enabled bool) error {
	return b.runSystem(callerUID, "set-show-badge", func() error {
		return b.prefs.SetShowBadge(bundle, enabled)
	})
}

// IsShowBadge reads badge display for a bundle. System callers only.
func (b *Broker) IsShowBadge(callerUID int32, bundle notify.BundleID) (bool, error) {
	var enabled bool
	err := b.runSystem(callerUID, "is-show-badge", func() error {
		var e error
		enabled, e = b.prefs.IsShowBadge(bundle)
		return e
	})
	return enabled, err
}

// CanShowBadge reports whether the caller's own badges are shown.
func (b *Broker) CanShowBadge(callerUID int32) (bool, error) {
	var (
		enabled bool
		err     error
	)
	if serr := b.actor.submit("can-show-badge", func() {
		var owner notify.BundleID
		owner, err = b.resolveCaller(callerUID)
		if err != nil {
			return
		}
		enabled, err = b.prefs.IsShowBadge(owner)
	}); serr != nil {
		return false, serr
	}
	return enabled, err
}

// SetImportance stores a bundle's importance override. System callers only.
func (b *Broker) SetImportance(callerUID int32, bundle notify.BundleID, importance int32) error {
	return b.runSystem(callerUID, "set-importance", func() error {
		return b.prefs.SetImportance(bundle, importance)
	})
}

// GetImportance reads a bundle's importance override. System callers only.
func (b *Broker) GetImportance(callerUID int32, bundle notify.BundleID) (int32, error) {
	var imp int32
	err := b.runSystem(callerUID, "get-importance", func() error {
		var e error
		imp, e = b.prefs.GetImportance(bundle)
		return e
	})
	return imp, err
}

// SetTotalBadgeNum stores the caller's aggregate badge count.
func (b *Broker) SetTotalBadgeNum(callerUID int32, num int32) error {
	var err error
	if serr := b.actor.submit("set-total-badge-num", func() {
		var owner notify.BundleID
		owner, err = b.resolveCaller(callerUID)
		if err != nil {
			return
		}
		err = b.prefs.SetTotalBadgeNum(owner, num)
	}); serr != nil {
		return serr
	}
	return err
}

// GetTotalBadgeNum reads the caller's aggregate badge count.
func (b *Broker) GetTotalBadgeNum(callerUID int32) (int32, error) {
	var (
		num int32
		err error
	)
	if serr := b.actor.submit("get-total-badge-num", func() {
		var owner notify.BundleID
		owner, err = b.resolveCaller(callerUID)
		if err != nil {
			return
		}
		num, err = b.prefs.GetTotalBadgeNum(owner)
	}); serr != nil {
		return 0, serr
	}
	return num, err
}

// SetPrivateAllowed controls lock-screen private content for a bundle.
// System callers only.
func (b *Broker) SetPrivateAllowed(callerUID int32, bundle notify.BundleID, allowed bool) error {
	return b.runSystem(callerUID, "set-private-allowed", func() error {
		return b.prefs.SetPrivateAllowed(bundle, allowed)
	})
}

// GetPrivateAllowed reads lock-screen private content for a bundle. System
// callers only.
func (b *Broker) GetPrivateAllowed(callerUID int32, bundle notify.BundleID) (bool, error) {
	var allowed bool
	err := b.runSystem(callerUID, "get-private-allowed", func() error {
		var e error
		allowed, e = b.prefs.GetPrivateAllowed(bundle)
		return e
	})
	return allowed, err
}

// SetNotificationsEnabledForBundle allows or blocks a bundle wholesale and
// tells subscribers about the change. System callers only.
func (b *Broker) SetNotificationsEnabledForBundle(callerUID int32, bundle notify.BundleID, enabled bool) error {
	return b.runSystem(callerUID, "set-enabled-for-bundle", func() error {
		if err := b.prefs.SetEnabledForBundle(bundle, enabled); err != nil {
			return err
		}
		b.subs.NotifyEnabledChanged(bundle, enabled)
		return nil
	})
}

// IsAllowedNotifyForBundle reads a bundle's enabled flag. System callers
// only.
func (b *Broker) IsAllowedNotifyForBundle(callerUID int32, bundle notify.BundleID) (bool, error) {
	var enabled bool
	err := b.runSystem(callerUID, "is-allowed-for-bundle", func() error {
		var e error
		enabled, e = b.prefs.GetEnabledForBundle(bundle)
		return e
	})
	return enabled, err
}

// IsAllowedNotify reports whether the caller itself may publish: the global
// switch for its user and its own bundle flag must both be on.
func (b *Broker) IsAllowedNotify(callerUID int32) (bool, error) {
	var (
		allowed bool
		err     error
	)
	if serr := b.actor.submit("is-allowed", func() {
		var owner notify.BundleID
		owner, err = b.resolveCaller(callerUID)
		if err != nil {
			return
		}
		global, gerr := b.prefs.GetEnabledGlobally(notify.UserID(callerUID))
		if gerr != nil {
			err = gerr
			return
		}
		bundle, berr := b.prefs.GetEnabledForBundle(owner)
		if berr != nil {
			err = berr
			return
		}
		allowed = global && bundle
	}); serr != nil {
		return false, serr
	}
	return allowed, err
}

// SetNotificationsEnabled flips the global switch for a device user.
// System callers only.
func (b *Broker) SetNotificationsEnabled(callerUID int32, userID int32, enabled bool) error {
	return b.runSystem(callerUID, "set-enabled-globally", func() error {
		return b.prefs.SetEnabledGlobally(userID, enabled)
	})
}

// HasPoppedDialog reports whether the permission prompt was already shown
// for a bundle. System callers only.
func (b *Broker) HasPoppedDialog(callerUID int32, bundle notify.BundleID) (bool, error) {
	var popped bool
	err := b.runSystem(callerUID, "has-popped-dialog", func() error {
		var e error
		popped, e = b.prefs.HasPoppedDialog(bundle)
		return e
	})
	return popped, err
}

// SetPoppedDialog records that the permission prompt was shown. System
// callers only.
func (b *Broker) SetPoppedDialog(callerUID int32, bundle notify.BundleID, popped bool) error {
	return b.runSystem(callerUID, "set-popped-dialog", func() error {
		return b.prefs.SetPoppedDialog(bundle, popped)
	})
}

// RestoreFactorySettings wipes every stored preference. Live notifications
// stay; only configuration resets. System callers only.
func (b *Broker) RestoreFactorySettings(callerUID int32) error {
	return b.runSystem(callerUID, "restore-factory", func() error {
		return b.prefs.Clear()
	})
}
