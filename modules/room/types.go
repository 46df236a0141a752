package room

import (
	chat "github.com/example/chat-rooms/domain/chat"
)

// CreateRoomRequest represents a room creation request.
type CreateRoomRequest struct {
	Name      string `json:"name"`
	CreatedBy string `json:"created_by"`
}

// CreateRoomResponse represents a room creation response.
type CreateRoomResponse struct {
	Room *chat.Room `json:"room"`
}

// GetRoomRequest represents a room lookup request.
type GetRoomRequest struct {
	RoomID string `json:"room_id"`
}

// GetRoomResponse represents a room lookup response. Found is false when
// the room does not exist, letting callers distinguish a missing room from
// a transport failure.
type GetRoomResponse struct {
	Found bool       `json:"found"`
	Room  *chat.Room `json:"room,omitempty"`
}

// ListRoomsRequest represents a room listing request.
type ListRoomsRequest struct {
	ActiveOnly bool `json:"active_only"`
}

// ListRoomsResponse represents a room listing response.
type ListRoomsResponse struct {
	Rooms []*chat.Room `json:"rooms"`
}

// UpdateRoomRequest represents a room rename request.
type UpdateRoomRequest struct {
	RoomID string `json:"room_id"`
	UserID string `json:"user_id"`
	Name   string `json:"name"`
}

// UpdateRoomResponse represents a room rename response.
type UpdateRoomResponse struct {
	Room *chat.Room `json:"room"`
}

// DeleteRoomRequest represents a room deletion request.
type DeleteRoomRequest struct {
	RoomID string `json:"room_id"`
	UserID string `json:"user_id"`
}

// DeleteRoomResponse represents a room deletion response.
type DeleteRoomResponse struct {
	Success bool `json:"success"`
}

// AddParticipantRequest represents a participant addition request.
type AddParticipantRequest struct {
	RoomID string `json:"room_id"`
	UserID string `json:"user_id"`
}

// AddParticipantResponse represents a participant addition response.
type AddParticipantResponse struct {
	Success bool `json:"success"`
}

// RemoveParticipantRequest represents a participant removal request.
type RemoveParticipantRequest struct {
	RoomID string `json:"room_id"`
	UserID string `json:"user_id"`
}

// RemoveParticipantResponse represents a participant removal response.
type RemoveParticipantResponse struct {
	Success bool `json:"success"`
}

// SaveMessageRequest represents a message persistence request.
type SaveMessageRequest struct {
	Message *chat.Message `json:"message"`
}

// SaveMessageResponse represents a message persistence response.
type SaveMessageResponse struct {
	Success bool `json:"success"`
}

// GetHistoryRequest represents a message history request.
type GetHistoryRequest struct {
	RoomID string `json:"room_id"`
	Limit  int    `json:"limit"`
}

// GetHistoryResponse represents a message history response.
type GetHistoryResponse struct {
	Messages []*chat.Message `json:"messages"`
}
