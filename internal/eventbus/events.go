package eventbus

// Event types published by the broker core. Consumers (telemetry, the
// daemon's status surface) subscribe by buffer and filter on Type.
const (
	TypePublished   = "notification.published"
	TypeCanceled    = "notification.canceled"
	TypeDNDChanged  = "dnd.changed"
	TypeEngineState = "storage.engine_state"
	TypeTaskPanic   = "worker.task_panic"
	TypeSlotChanged = "slot.changed"
	TypeRemoval     = "notification.removal_callback"
)

// Published reports one admitted notification.
type Published struct {
	Key     string `json:"key"`
	Bundle  string `json:"bundle"`
	Evicted int    `json:"evicted"`
	Active  int    `json:"active"`
}

// Canceled reports one removed notification.
type Canceled struct {
	Key    string `json:"key"`
	Bundle string `json:"bundle"`
	Reason string `json:"reason"`
	Active int    `json:"active"`
}

// DNDChanged reports a stored do-not-disturb window change.
type DNDChanged struct {
	UserID int32  `json:"user_id"`
	Kind   string `json:"kind"`
	Begin  int64  `json:"begin"`
	End    int64  `json:"end"`
}

// EngineState reports the persistence engine going down or coming back.
type EngineState struct {
	Alive bool `json:"alive"`
}

// TaskPanic reports a recovered panic on the broker worker.
type TaskPanic struct {
	Task  string `json:"task"`
	Panic string `json:"panic"`
}

// SlotChanged reports a slot's enabled flag flipping.
type SlotChanged struct {
	Bundle  string `json:"bundle"`
	UID     int32  `json:"uid"`
	Slot    string `json:"slot"`
	Enabled bool   `json:"enabled"`
}

// Removal reports a publisher removal callback firing.
type Removal struct {
	Token string `json:"token"`
	Key   string `json:"key"`
}
