package chat

import (
	"time"

	"github.com/google/uuid"
)

// Message types.
const (
	MessageTypeChat         = "message"
	MessageTypeNotification = "notification"
)

// SystemSender identifies system-authored notification messages.
const SystemSender = "system"

// Room represents a persisted chat room. The Participants list is a
// denormalized snapshot maintained best-effort; the live membership is
// owned by the session coordinator.
type Room struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	CreatedBy    string    `json:"createdBy"`
	IsActive     bool      `json:"isActive"`
	Participants []string  `json:"participants,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	LastActivity time.Time `json:"lastActivity,omitempty"`
}

// Message represents a persisted chat or notification message.
type Message struct {
	ID             string    `json:"id"`
	RoomID         string    `json:"roomId"`
	SenderID       string    `json:"senderId"`
	SenderUsername string    `json:"senderUsername"`
	Content        string    `json:"content"`
	Timestamp      time.Time `json:"timestamp"`
	Type           string    `json:"messageType"`
}

// Participant is one entry of a live room participant snapshot.
type Participant struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	IsOnline bool   `json:"isOnline"`
}

// NewNotification builds a system-authored notification message for a
// join/leave event. The caller is responsible for persisting it.
func NewNotification(roomID, content string) *Message {
	return &Message{
		ID:             uuid.New().String(),
		RoomID:         roomID,
		SenderID:       SystemSender,
		SenderUsername: SystemSender,
		Content:        content,
		Timestamp:      time.Now(),
		Type:           MessageTypeNotification,
	}
}
