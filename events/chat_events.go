package events

import (
	"time"

	"github.com/go-monolith/mono/pkg/helper"
)

// UserConnectedEvent is emitted when an authenticated socket connection is
// established. The auth module consumes it for last-active bookkeeping.
type UserConnectedEvent struct {
	ConnectionID string    `json:"connection_id"`
	UserID       string    `json:"user_id"`
	Username     string    `json:"username"`
	Timestamp    time.Time `json:"timestamp"`
}

// UserJoinedEvent is emitted when a user joins a room.
type UserJoinedEvent struct {
	RoomID    string    `json:"room_id"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Timestamp time.Time `json:"timestamp"`
}

// UserLeftEvent is emitted when a user leaves a room.
type UserLeftEvent struct {
	RoomID    string    `json:"room_id"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Timestamp time.Time `json:"timestamp"`
}

// MessageSentEvent is emitted after a message has been persisted and
// broadcast. The room module consumes it for last-activity bookkeeping.
type MessageSentEvent struct {
	MessageID string    `json:"message_id"`
	RoomID    string    `json:"room_id"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Timestamp time.Time `json:"timestamp"`
}

// Event definitions for the chat domain.
var (
	UserConnectedV1 = helper.EventDefinition[UserConnectedEvent](
		"session",
		"UserConnected",
		"v1",
	)

	UserJoinedV1 = helper.EventDefinition[UserJoinedEvent](
		"session",
		"UserJoined",
		"v1",
	)

	UserLeftV1 = helper.EventDefinition[UserLeftEvent](
		"session",
		"UserLeft",
		"v1",
	)

	MessageSentV1 = helper.EventDefinition[MessageSentEvent](
		"session",
		"MessageSent",
		"v1",
	)
)
