package prefs

import "notibroker/internal/notify"

// Scalar per-bundle settings. Setters create the bundle entry lazily, the
// same way first publish does; getters on an unconfigured bundle return
// ErrBundleNotConfigured and the caller treats that as "defaults apply".

func (s *Store) setBundle(owner notify.BundleID, mutate func(*BundleInfo)) error {
	if !owner.IsValid() {
		return notify.ErrInvalidParam
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	info, ok := s.bundles[owner.String()]
	if !ok {
		info = newBundleInfo(owner)
	}
	next := info.clone()
	mutate(next)
	if err := s.persistBundle(next); err != nil {
		return err
	}
	s.bundles[owner.String()] = next
	return nil
}

func (s *Store) SetShowBadge(owner notify.BundleID, enabled bool) error {
	return s.setBundle(owner, func(b *BundleInfo) { b.ShowBadge = enabled })
}

func (s *Store) IsShowBadge(owner notify.BundleID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	info, err := s.bundleLocked(owner)
	if err != nil {
		return false, err
	}
	return info.ShowBadge, nil
}

func (s *Store) SetImportance(owner notify.BundleID, importance int32) error {
	return s.setBundle(owner, func(b *BundleInfo) { b.Importance = importance })
}

func (s *Store) GetImportance(owner notify.BundleID) (int32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	info, err := s.bundleLocked(owner)
	if err != nil {
		return 0, err
	}
	return info.Importance, nil
}

func (s *Store) SetTotalBadgeNum(owner notify.BundleID, num int32) error {
	if num < 0 {
		return notify.ErrInvalidParam
	}
	return s.setBundle(owner, func(b *BundleInfo) { b.TotalBadgeNum = num })
}

func (s *Store) GetTotalBadgeNum(owner notify.BundleID) (int32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	info, err := s.bundleLocked(owner)
	if err != nil {
		return 0, err
	}
	return info.TotalBadgeNum, nil
}

func (s *Store) SetPrivateAllowed(owner notify.BundleID, allowed bool) error {
	return s.setBundle(owner, func(b *BundleInfo) { b.PrivateAllowed = allowed })
}

func (s *Store) GetPrivateAllowed(owner notify.BundleID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	info, err := s.bundleLocked(owner)
	if err != nil {
		return false, err
	}
	return info.PrivateAllowed, nil
}

// SetEnabledForBundle flips whether owner may publish at all.
func (s *Store) SetEnabledForBundle(owner notify.BundleID, enabled bool) error {
	return s.setBundle(owner, func(b *BundleInfo) { b.Enabled = enabled })
}

// GetEnabledForBundle reports owner's publish enablement. Unconfigured
// bundles surface ErrBundleNotConfigured; the permission filter maps that
// to "enabled".
func (s *Store) GetEnabledForBundle(owner notify.BundleID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	info, err := s.bundleLocked(owner)
	if err != nil {
		return false, err
	}
	return info.Enabled, nil
}

func (s *Store) SetPoppedDialog(owner notify.BundleID, popped bool) error {
	return s.setBundle(owner, func(b *BundleInfo) { b.PoppedDialog = popped })
}

func (s *Store) HasPoppedDialog(owner notify.BundleID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	info, err := s.bundleLocked(owner)
	if err != nil {
		return false, err
	}
	return info.PoppedDialog, nil
}

func (s *Store) userLocked(userID int32) *UserInfo {
	info, ok := s.users[userID]
	if !ok {
		info = &UserInfo{UserID: userID, Enabled: true}
	}
	return info
}

// SetEnabledGlobally flips the per-user master switch.
func (s *Store) SetEnabledGlobally(userID int32, enabled bool) error {
	if userID < 0 {
		return notify.ErrInvalidParam
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := *s.userLocked(userID)
	next.Enabled = enabled
	if err := s.persistUser(&next); err != nil {
		return err
	}
	s.users[userID] = &next
	return nil
}

// GetEnabledGlobally defaults to true for users with no stored state.
func (s *Store) GetEnabledGlobally(userID int32) (bool, error) {
	if userID < 0 {
		return false, notify.ErrInvalidParam
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userLocked(userID).Enabled, nil
}
