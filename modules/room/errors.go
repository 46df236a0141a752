package room

import "errors"

// Sentinel errors for room and message operations.
var (
	// ErrRoomNotFound is returned when the requested room does not exist.
	ErrRoomNotFound = errors.New("room not found")

	// ErrRoomExists is returned when a room with the same name already exists.
	ErrRoomExists = errors.New("room with this name already exists")

	// ErrRoomInactive is returned when an operation targets a deactivated room.
	ErrRoomInactive = errors.New("room is not active")

	// ErrNotCreator is returned when a user other than the creator tries to
	// modify or delete a room.
	ErrNotCreator = errors.New("only the room creator can do this")

	// ErrInvalidRoomName is returned when the room name fails validation.
	ErrInvalidRoomName = errors.New("room name must be 1-50 characters of letters, digits, spaces, _ or -")

	// ErrMessageNotFound is returned when the requested message does not exist.
	ErrMessageNotFound = errors.New("message not found")
)
