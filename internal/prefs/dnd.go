package prefs

import (
	"notibroker/internal/notify"
	"notibroker/pkg/logx"
)

// SetDoNotDisturb stores userID's window and returns what was persisted. A
// DNDOnce window is projected onto the current day first (see
// notify.DoNotDisturbDate.ProjectOnce), so what persists is always an
// absolute window. Expiry is left to later reads: the stored window is
// reported as stored even when its end is already behind now.
func (s *Store) SetDoNotDisturb(userID int32, date notify.DoNotDisturbDate) (notify.DoNotDisturbDate, error) {
	if userID < 0 {
		return notify.DoNotDisturbDate{}, notify.ErrInvalidParam
	}
	switch date.Type {
	case notify.DNDNone:
		date = notify.DoNotDisturbDate{Type: notify.DNDNone}
	case notify.DNDOnce:
		date = date.ProjectOnce(s.now())
	case notify.DNDClearly:
		if date.End <= date.Begin {
			return notify.DoNotDisturbDate{}, notify.ErrInvalidParam
		}
	default:
		return notify.DoNotDisturbDate{}, notify.ErrInvalidParam
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := *s.userLocked(userID)
	next.DND = date
	if err := s.persistUser(&next); err != nil {
		return notify.DoNotDisturbDate{}, err
	}
	s.users[userID] = &next
	return date, nil
}

// GetDoNotDisturb returns userID's window. A once or clearly window whose
// end is behind now resets to (none, 0, 0) as a side effect of the read;
// repeated reads keep returning the reset value.
func (s *Store) GetDoNotDisturb(userID int32) (notify.DoNotDisturbDate, error) {
	date, _, err := s.CollapseDoNotDisturb(userID)
	return date, err
}

// CollapseDoNotDisturb is GetDoNotDisturb plus an indication of whether this
// read was the one that expired the window. The maintenance sweep uses the
// flag to broadcast the change exactly once.
func (s *Store) CollapseDoNotDisturb(userID int32) (notify.DoNotDisturbDate, bool, error) {
	if userID < 0 {
		return notify.DoNotDisturbDate{}, false, notify.ErrInvalidParam
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	info := s.userLocked(userID)
	date := info.DND
	if !date.Expired(s.now().UnixMilli()) {
		return date, false, nil
	}

	next := *info
	next.DND = notify.DoNotDisturbDate{Type: notify.DNDNone}
	if err := s.persistUser(&next); err != nil {
		// The expiry still happens in-memory; the write retries via the
		// dirty set when the engine comes back.
		s.log.Warn("dnd auto-expiry persist failed", logx.Err(err))
	}
	s.users[userID] = &next
	return next.DND, true, nil
}
