package notify

// Slot is a notification channel for one bundle: a named category carrying
// the alert profile applied to records published under it.
type Slot struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Type        SlotType  `json:"type"`
	Level       SlotLevel `json:"level"`
	Description string    `json:"description,omitempty"`

	Enabled bool `json:"enabled"`

	Sound                 string      `json:"sound,omitempty"`
	VibrationStyle        []int64     `json:"vibration_style,omitempty"`
	LightEnabled          bool        `json:"light_enabled,omitempty"`
	LightColor            int32       `json:"light_color,omitempty"`
	LockScreenVisibleness Visibleness `json:"lock_screen_visibleness"`

	BypassDND bool   `json:"bypass_dnd,omitempty"`
	ShowBadge bool   `json:"show_badge"`
	GroupID   string `json:"group_id,omitempty"`
}

// DefaultSlot builds the default-enabled slot for a type. The per-type
// profiles mirror the platform defaults: social chat alerts loudly and shows
// on the lock screen, background info stays quiet and secret.
func DefaultSlot(t SlotType) Slot {
	s := Slot{
		ID:        t.String(),
		Name:      t.String(),
		Type:      t,
		Enabled:   true,
		ShowBadge: true,
	}
	switch t {
	case SlotSocialCommunication:
		s.Level = LevelHigh
		s.LockScreenVisibleness = VisiblenessPublic
		s.VibrationStyle = []int64{200, 100, 200}
	case SlotServiceReminder:
		s.Level = LevelDefault
		s.LockScreenVisibleness = VisiblenessPublic
		s.VibrationStyle = []int64{200}
	case SlotContentInformation:
		s.Level = LevelLow
		s.LockScreenVisibleness = VisiblenessSecret
	default:
		s.Level = LevelMin
		s.LockScreenVisibleness = VisiblenessSecret
	}
	return s
}

// SlotGroup is a user-facing grouping of slots within one bundle. Slots
// reference their group by id.
type SlotGroup struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}
