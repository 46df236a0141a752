package session

import (
	chat "github.com/example/chat-rooms/domain/chat"
)

// Inbound event names (client -> server).
const (
	EventJoinRoom            = "join-room"
	EventLeaveRoom           = "leave-room"
	EventSendMessage         = "send-message"
	EventGetRoomParticipants = "get-room-participants"
)

// Outbound event names (server -> client).
const (
	EventConnected          = "connected"
	EventRoomJoined         = "room-joined"
	EventRoomLeft           = "room-left"
	EventUserJoined         = "user-joined"
	EventUserLeft           = "user-left"
	EventParticipantsUpdate = "participants-update"
	EventNewMessage         = "new-message"
	EventRoomParticipants   = "room-participants"
	EventError              = "error"
)

// Envelope frames every message on the wire: a named event plus its
// JSON payload.
type Envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// JoinRoomPayload is the payload of join-room and leave-room requests.
type JoinRoomPayload struct {
	RoomID string `json:"roomId"`
}

// SendMessagePayload is the payload of send-message requests.
type SendMessagePayload struct {
	RoomID  string `json:"roomId"`
	Content string `json:"content"`
}

// GetParticipantsPayload is the payload of get-room-participants requests.
type GetParticipantsPayload struct {
	RoomID string `json:"roomId"`
}

// ConnectedPayload confirms a successful connection to the client.
type ConnectedPayload struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Message  string `json:"message"`
}

// RoomJoinedPayload acknowledges a join to the joining client.
type RoomJoinedPayload struct {
	RoomID       string             `json:"roomId"`
	RoomName     string             `json:"roomName"`
	Participants []chat.Participant `json:"participants"`
	Message      string             `json:"message"`
}

// RoomLeftPayload acknowledges a leave to the leaving client.
type RoomLeftPayload struct {
	RoomID  string `json:"roomId"`
	Message string `json:"message"`
}

// PresencePayload notifies remaining participants of a join or leave.
// Message carries the persisted system notification.
type PresencePayload struct {
	UserID   string        `json:"userId"`
	Username string        `json:"username"`
	Message  *chat.Message `json:"message"`
}

// ParticipantsPayload carries a room's participant snapshot.
type ParticipantsPayload struct {
	RoomID       string             `json:"roomId"`
	Participants []chat.Participant `json:"participants"`
}

// NewMessagePayload carries a chat message to room participants.
type NewMessagePayload struct {
	Message *chat.Message `json:"message"`
}

// ErrorPayload reports a failed request to the requester.
type ErrorPayload struct {
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}
