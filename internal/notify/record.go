package notify

// Content is the immutable part of a notification. Once a record is admitted
// the filter chain and registry never touch these fields; updates arrive as a
// whole new Content under the same identity key.
type Content struct {
	ID           int32       `json:"id"`
	Label        string      `json:"label,omitempty"`
	Title        string      `json:"title,omitempty"`
	Text         string      `json:"text,omitempty"`
	Type         ContentType `json:"type"`
	CreateTime   int64       `json:"create_time"`   // epoch ms
	DeliveryTime int64       `json:"delivery_time"` // epoch ms
	GroupName    string      `json:"group_name,omitempty"`

	// Removal guards. Unremovable shields the record from blanket cancels
	// (cancel-all, bundle cleanup); RemoveAllowed=false additionally blocks
	// explicit per-id cancels unless the caller uses the force path.
	Unremovable   bool `json:"unremovable,omitempty"`
	RemoveAllowed bool `json:"remove_allowed"`

	// AlertOnce suppresses re-alerting when the same identity key is
	// published again: the update keeps the content but loses its alerts.
	AlertOnce bool `json:"alert_once,omitempty"`

	BadgeNumber int32    `json:"badge_number,omitempty"`
	SlotType    SlotType `json:"slot_type"`

	// Classification marks alarm-class notifications, which pass the
	// disturb filter even inside a DND window.
	Classification string `json:"classification,omitempty"`

	// Embedded images. Only their sizes matter to the broker; oversize
	// payloads are rejected before filtering.
	LittleIcon []byte `json:"little_icon,omitempty"`
	BigIcon    []byte `json:"big_icon,omitempty"`
	Picture    []byte `json:"picture,omitempty"`

	// RemoveToken is an opaque reference to the publisher's removal
	// callback, invoked through the RemovalInvoker collaborator exactly
	// once when the record is removed.
	RemoveToken string `json:"remove_token,omitempty"`

	// Distributed controls whether this record may be mirrored to other
	// devices by the distributed sync collaborator.
	Distributed bool `json:"distributed,omitempty"`

	// AgentBundle, when non-empty, requests publishing on behalf of another
	// application. Requires a system-app caller with agent permission.
	AgentBundle string `json:"agent_bundle,omitempty"`
}

const ClassificationAlarm = "alarm"

// Runtime is the mutable derived state of a record. Filters flip the alert
// flags here; the registry stamps delete metadata on removal.
type Runtime struct {
	EnableLight     bool        `json:"enable_light"`
	EnableSound     bool        `json:"enable_sound"`
	EnableVibration bool        `json:"enable_vibration"`
	LightColor      int32       `json:"light_color,omitempty"`
	Sound           string      `json:"sound,omitempty"`
	VibrationStyle  []int64     `json:"vibration_style,omitempty"`
	Visibleness     Visibleness `json:"visibleness"`

	DeleteReason DeleteReason `json:"delete_reason,omitempty"`
	DeleteTime   int64        `json:"delete_time,omitempty"` // epoch ms

	// DeviceID is the origin device; empty for locally published records.
	DeviceID string `json:"device_id,omitempty"`
}

// Record is one notification flowing through the pipeline. The active
// registry owns the canonical instance; everything handed to subscribers is
// a Snapshot copy.
type Record struct {
	Owner   BundleID `json:"owner"`
	Creator BundleID `json:"creator"`
	Content Content  `json:"content"`
	Runtime Runtime  `json:"runtime"`

	// Slot is the channel configuration resolved at admission time. It is
	// nil until the broker resolves it and must be non-nil past the filter
	// chain.
	Slot *Slot `json:"slot,omitempty"`
}

func (r *Record) Key() RecordKey {
	return RecordKey{
		Owner:    r.Owner,
		Label:    r.Content.Label,
		ID:       r.Content.ID,
		DeviceID: r.Runtime.DeviceID,
	}
}

// ClearAlerts force-disables every alert channel. Used for alert-once
// updates and DND suppression.
func (r *Record) ClearAlerts() {
	r.Runtime.EnableLight = false
	r.Runtime.EnableSound = false
	r.Runtime.EnableVibration = false
}

// Snapshot returns a deep copy safe to hand to another goroutine. Slot and
// slices are copied so later mutation of the canonical record cannot race
// with dispatch.
func (r *Record) Snapshot() *Record {
	cp := *r
	if r.Slot != nil {
		slot := *r.Slot
		slot.VibrationStyle = append([]int64(nil), r.Slot.VibrationStyle...)
		cp.Slot = &slot
	}
	cp.Runtime.VibrationStyle = append([]int64(nil), r.Runtime.VibrationStyle...)
	cp.Content.LittleIcon = append([]byte(nil), r.Content.LittleIcon...)
	cp.Content.BigIcon = append([]byte(nil), r.Content.BigIcon...)
	cp.Content.Picture = append([]byte(nil), r.Content.Picture...)
	return &cp
}
