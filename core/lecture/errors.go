package lecture

import "errors"

var (
	ErrRoomNotFound      = errors.New("lecture not found")
	ErrRoomCancelled     = errors.New("lecture has been cancelled")
	ErrNotAMember        = errors.New("not a member of this lecture")
	ErrUnauthorized      = errors.New("not allowed to control this lecture")
	ErrInvalidTransition = errors.New("command not allowed in the current lecture state")

	// ErrTargetUnreachable is never reported to the sender; a relay to a peer
	// that went away is dropped silently.
	ErrTargetUnreachable = errors.New("target is not connected")
)

// IsReportable tells whether err belongs to the coordinator's taxonomy and can be
// shown to the originating connection as is.
func IsReportable(err error) bool {
	switch err {
	case ErrRoomNotFound, ErrRoomCancelled, ErrNotAMember, ErrUnauthorized, ErrInvalidTransition:
		return true
	default:
		return false
	}
}
