package catalog

import "errors"

// Domain errors returned by catalog operations. Callers match with errors.Is
// and map them to transport-level responses.
var (
	ErrFileNotFound        = errors.New("file not found")
	ErrRoomNotFound        = errors.New("room not found")
	ErrUserNotFound        = errors.New("user not found")
	ErrDuplicateStorageKey = errors.New("storage key already exists")
	ErrDuplicateShareCode  = errors.New("share code already exists")
	ErrDuplicateRoom       = errors.New("room code already exists")
	ErrDuplicateUser       = errors.New("user already exists")
	ErrInvalidTransition   = errors.New("invalid room status transition")
	ErrAccountBanned       = errors.New("account creation banned")
)
