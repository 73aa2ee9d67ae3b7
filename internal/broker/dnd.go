package broker

import (
	"notibroker/internal/eventbus"
	"notibroker/internal/notify"
	logx "notibroker/pkg/logx"
)

// SetDoNotDisturbDate stores a DND window for the caller's device user and
// broadcasts the stored (projected) window to subscribers. System callers
// only.
func (b *Broker) SetDoNotDisturbDate(callerUID int32, date notify.DoNotDisturbDate) error {
	return b.SetDoNotDisturbDateByUser(callerUID, notify.UserID(callerUID), date)
}

// SetDoNotDisturbDateByUser is the explicit-user variant.
func (b *Broker) SetDoNotDisturbDateByUser(callerUID int32, userID int32, date notify.DoNotDisturbDate) error {
	return b.runSystem(callerUID, "set-dnd", func() error {
		// Subscribers see the stored window: a once-type write is projected
		// onto the current day before persisting.
		stored, err := b.prefs.SetDoNotDisturb(userID, date)
		if err != nil {
			return err
		}
		b.subs.NotifyDoNotDisturbChanged(stored)
		if b.bus != nil {
			b.bus.Publish(eventbus.Event{Type: eventbus.TypeDNDChanged, Data: eventbus.DNDChanged{
				UserID: userID,
				Kind:   stored.Type.String(),
				Begin:  stored.Begin,
				End:    stored.End,
			}})
		}
		b.log.Info("dnd changed", logx.Int32("user", userID), logx.String("type", stored.Type.String()))
		return nil
	})
}

// GetDoNotDisturbDate reads the caller's user window; an elapsed window
// reads back as none.
func (b *Broker) GetDoNotDisturbDate(callerUID int32) (notify.DoNotDisturbDate, error) {
	return b.GetDoNotDisturbDateByUser(callerUID, notify.UserID(callerUID))
}

// GetDoNotDisturbDateByUser is the explicit-user variant.
func (b *Broker) GetDoNotDisturbDateByUser(callerUID int32, userID int32) (notify.DoNotDisturbDate, error) {
	var date notify.DoNotDisturbDate
	err := b.runSystem(callerUID, "get-dnd", func() error {
		var e error
		date, e = b.prefs.GetDoNotDisturb(userID)
		return e
	})
	return date, err
}

// DoesSupportDoNotDisturbMode reports DND availability. Always true here;
// kept so callers can probe the capability uniformly.
func (b *Broker) DoesSupportDoNotDisturbMode() bool { return true }

// ExpireDoNotDisturb re-reads every known user's window so elapsed ones
// collapse to none and persist that way, broadcasting the change for each
// window that actually expired. Driven by the maintenance sweeper, so
// subscribers hear about expiry when it happens rather than on the next
// explicit read.
func (b *Broker) ExpireDoNotDisturb() {
	b.actor.submitAsync("expire-dnd", func() {
		for _, userID := range b.prefs.KnownUsers() {
			date, collapsed, err := b.prefs.CollapseDoNotDisturb(userID)
			if err != nil {
				b.log.Warn("dnd expiry sweep failed", logx.Int32("user", userID), logx.Err(err))
				continue
			}
			if !collapsed {
				continue
			}
			b.subs.NotifyDoNotDisturbChanged(date)
			if b.bus != nil {
				b.bus.Publish(eventbus.Event{Type: eventbus.TypeDNDChanged, Data: eventbus.DNDChanged{
					UserID: userID,
					Kind:   date.Type.String(),
				}})
			}
			b.log.Info("dnd window elapsed", logx.Int32("user", userID))
		}
	})
}
