package session

import "fmt"

// Error codes for session operations.
const (
	CodeAuthRequired           = "AUTH_REQUIRED"
	CodeAuthInvalid            = "AUTH_INVALID"
	CodeRoomNotFound           = "ROOM_NOT_FOUND"
	CodeRoomInactive           = "ROOM_INACTIVE"
	CodeRoomIDRequired         = "ROOM_ID_REQUIRED"
	CodeNotInRoom              = "NOT_IN_ROOM"
	CodeRoomAndContentRequired = "ROOM_AND_CONTENT_REQUIRED"
	CodeValidationError        = "VALIDATION_ERROR"
	CodeInternal               = "INTERNAL"
)

// Error is a coded session error delivered to the requesting connection
// only. It never tears down other participants' state.
type Error struct {
	Code    string
	Message string
	Details string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Payload converts the error into its wire representation.
func (e *Error) Payload() ErrorPayload {
	return ErrorPayload{
		Message: e.Message,
		Details: e.Details,
	}
}

// NewError creates a coded session error.
func NewError(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// NewErrorWithDetails creates a coded session error with extra details.
func NewErrorWithDetails(code, message, details string) *Error {
	return &Error{Code: code, Message: message, Details: details}
}
