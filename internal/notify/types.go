package notify

import (
	"fmt"
	"strconv"
	"strings"
)

// BundleID identifies the application owning per-app state. Equality is
// (Name, UID); the same bundle name under two uids is two distinct owners.
type BundleID struct {
	Name string `json:"name"`
	UID  int32  `json:"uid"`
}

func (b BundleID) IsValid() bool { return b.Name != "" }

// uidsPerUser is the uid range reserved per device user.
const uidsPerUser = 100000

// UserID returns the device user a uid belongs to.
func UserID(uid int32) int32 {
	if uid < 0 {
		return 0
	}
	return uid / uidsPerUser
}

func (b BundleID) String() string {
	return b.Name + ":" + strconv.FormatInt(int64(b.UID), 10)
}

// SlotType is the category a notification is published under. Each type has
// its own default alert profile (see DefaultSlot).
type SlotType int

const (
	SlotSocialCommunication SlotType = iota
	SlotServiceReminder
	SlotContentInformation
	SlotOther
	SlotCustom
)

func (t SlotType) String() string {
	switch t {
	case SlotSocialCommunication:
		return "SOCIAL_COMMUNICATION"
	case SlotServiceReminder:
		return "SERVICE_REMINDER"
	case SlotContentInformation:
		return "CONTENT_INFORMATION"
	case SlotOther:
		return "OTHER"
	case SlotCustom:
		return "CUSTOM"
	default:
		return fmt.Sprintf("SLOT_TYPE(%d)", int(t))
	}
}

// SlotLevel orders slots by alerting weight. Flow-control eviction picks the
// lowest level first, so LevelNone records are the first victims.
type SlotLevel int

const (
	LevelNone SlotLevel = iota
	LevelMin
	LevelLow
	LevelDefault
	LevelHigh
)

// Visibleness controls lock-screen exposure for a record.
type Visibleness int

const (
	VisiblenessNoOverride Visibleness = iota
	VisiblenessPublic
	VisiblenessPrivate
	VisiblenessSecret
)

// DeleteReason tags canceled events so subscribers can distinguish a user
// swipe from capacity pressure.
type DeleteReason int

const (
	ReasonUnknown DeleteReason = iota
	ReasonExplicitCancel
	ReasonCancelAll
	ReasonFlowControlEvict
	ReasonBundleDataCleared
	ReasonPackageRemoved
	ReasonDistributedDelete
)

func (r DeleteReason) String() string {
	switch r {
	case ReasonExplicitCancel:
		return "explicit-cancel"
	case ReasonCancelAll:
		return "cancel-all"
	case ReasonFlowControlEvict:
		return "flow-control-eviction"
	case ReasonBundleDataCleared:
		return "bundle-data-cleared"
	case ReasonPackageRemoved:
		return "package-removed"
	case ReasonDistributedDelete:
		return "distributed-delete"
	default:
		return "unknown"
	}
}

// ContentType describes the payload shape carried by a record.
type ContentType int

const (
	ContentBasicText ContentType = iota
	ContentLongText
	ContentPicture
	ContentConversation
	ContentMultiline
	ContentMedia
)

// RecordKey is the identity of a live notification. The zero DeviceID means
// the record originated on this device.
type RecordKey struct {
	Owner    BundleID
	Label    string
	ID       int32
	DeviceID string
}

// String renders the key in the canonical "device_name_uid_label_id" layout
// used for registry lookups and subscriber payloads.
func (k RecordKey) String() string {
	parts := []string{
		k.DeviceID,
		k.Owner.Name,
		strconv.FormatInt(int64(k.Owner.UID), 10),
		k.Label,
		strconv.FormatInt(int64(k.ID), 10),
	}
	return strings.Join(parts, "_")
}
