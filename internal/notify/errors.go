package notify

import "errors"

// Broker error taxonomy. Every operation on the broker returns one of these
// (possibly wrapped); callers are expected to match with errors.Is.
var (
	// Identity resolution.
	ErrInvalidParam  = errors.New("invalid parameter")
	ErrInvalidBundle = errors.New("bundle name could not be resolved")
	ErrInvalidUID    = errors.New("uid could not be resolved")

	// Authorization.
	ErrNonSystemApp = errors.New("caller is not a system app")
	ErrNotAllowed   = errors.New("notifications are not allowed for this bundle")

	// Preference state absence. Read paths convert these into empty results;
	// write and remove paths surface them to the caller.
	ErrBundleNotConfigured   = errors.New("bundle has no notification preferences")
	ErrSlotTypeNotConfigured = errors.New("slot type is not configured for this bundle")
	ErrSlotGroupNotFound     = errors.New("slot group does not exist")
	ErrSlotGroupIDInvalid    = errors.New("slot group id is empty")
	ErrGroupCapacityExceeded = errors.New("slot group limit exceeded for this bundle")

	// Publish rejections.
	ErrSlotDisabled    = errors.New("notification slot is disabled")
	ErrIconOverSize    = errors.New("notification icon exceeds the size limit")
	ErrPictureOverSize = errors.New("notification picture exceeds the size limit")
	ErrOverRate        = errors.New("publish rate limit exceeded")

	// Removal.
	ErrNotificationNotExists = errors.New("notification does not exist")
	ErrUnremovable           = errors.New("notification is unremovable")
	ErrRemovalNotAllowed     = errors.New("notification does not allow removal")

	// Persistence.
	ErrStorage = errors.New("preference storage operation failed")
)
