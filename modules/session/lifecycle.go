package session

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	chat "github.com/example/chat-rooms/domain/chat"
	"github.com/example/chat-rooms/events"
	"github.com/example/chat-rooms/modules/room"
	"github.com/go-monolith/mono"
	"github.com/google/uuid"
)

const maxMessageLength = 1000

// Lifecycle drives the side effects of connection and room operations:
// registry updates through the coordinator, best-effort persistence,
// notifications and snapshot broadcasts. In-memory state is mutated
// first; persistence failures during join/leave are logged and never
// roll back the live state. A message must persist before it fans out.
type Lifecycle struct {
	coord  *Coordinator
	rooms  room.RoomPort
	bus    mono.EventBus
	logger *slog.Logger
}

// NewLifecycle creates a Lifecycle around a running coordinator.
func NewLifecycle(coord *Coordinator, rooms room.RoomPort) *Lifecycle {
	return &Lifecycle{
		coord:  coord,
		rooms:  rooms,
		logger: slog.Default(),
	}
}

// SetEventBus wires the event bus used for cross-module notifications.
func (l *Lifecycle) SetEventBus(bus mono.EventBus) {
	l.bus = bus
}

// HandleConnect registers an authenticated connection and confirms it to
// the client only.
func (l *Lifecycle) HandleConnect(ctx context.Context, connID, userID, username string, sink Sink) {
	l.coord.Connect(connID, userID, username, sink)

	l.coord.SendTo(connID, Envelope{
		Event: EventConnected,
		Data: ConnectedPayload{
			UserID:   userID,
			Username: username,
			Message:  "Connected to chat server",
		},
	})

	l.publishUserConnected(connID, userID, username)
	l.logger.Info("Connection established", "connID", connID, "userID", userID, "username", username)
}

// HandleDisconnect tears down a connection. When the connection was in a
// room this performs the same side effects as an explicit leave, minus
// the ack to the already-gone client.
func (l *Lifecycle) HandleDisconnect(ctx context.Context, connID string) {
	left, found := l.coord.Disconnect(connID)
	if !found {
		return
	}
	if left != nil {
		l.applyLeaveEffects(ctx, left)
	}
	l.logger.Info("Connection closed", "connID", connID)
}

// JoinRoom moves a connection into a room. A connection already in a
// room leaves it first, including when it rejoins the same room: a
// duplicate join re-triggers the leave/join notifications like a room
// switch.
func (l *Lifecycle) JoinRoom(ctx context.Context, connID, roomID string) *Error {
	if roomID == "" {
		return NewError(CodeRoomIDRequired, "room ID is required")
	}

	target, found, err := l.rooms.GetRoom(ctx, roomID)
	if err != nil {
		l.logger.Error("Room lookup failed", "roomID", roomID, "error", err)
		return NewError(CodeInternal, "failed to look up room")
	}
	if !found {
		return NewError(CodeRoomNotFound, "room not found")
	}
	if !target.IsActive {
		return NewError(CodeRoomInactive, "room is not active")
	}

	res, cerr := l.coord.Join(connID, roomID)
	if cerr != nil {
		return cerr
	}

	// The room-left ack reaches the client before room-joined: both go
	// through the same sink in order.
	if res.Left != nil {
		l.coord.SendTo(connID, Envelope{
			Event: EventRoomLeft,
			Data: RoomLeftPayload{
				RoomID:  res.Left.RoomID,
				Message: "Left room",
			},
		})
		l.applyLeaveEffects(ctx, res.Left)
	}

	if res.FirstForUser {
		if err := l.rooms.AddParticipant(ctx, roomID, res.UserID); err != nil {
			l.logger.Error("Failed to persist participant add", "roomID", roomID, "userID", res.UserID, "error", err)
		}
	}

	notification := chat.NewNotification(roomID, res.Username+" joined the room")
	if err := l.rooms.SaveMessage(ctx, notification); err != nil {
		l.logger.Error("Failed to persist join notification", "roomID", roomID, "error", err)
	}

	l.coord.Broadcast(roomID, Envelope{
		Event: EventUserJoined,
		Data: PresencePayload{
			UserID:   res.UserID,
			Username: res.Username,
			Message:  notification,
		},
	}, connID)

	l.coord.Broadcast(roomID, Envelope{
		Event: EventParticipantsUpdate,
		Data: ParticipantsPayload{
			RoomID:       roomID,
			Participants: l.coord.Participants(roomID),
		},
	}, "")

	l.coord.SendTo(connID, Envelope{
		Event: EventRoomJoined,
		Data: RoomJoinedPayload{
			RoomID:       roomID,
			RoomName:     target.Name,
			Participants: l.coord.Participants(roomID),
			Message:      "Joined room " + target.Name,
		},
	})

	l.publishUserJoined(res.UserID, res.Username, roomID)
	l.logger.Info("User joined room", "connID", connID, "userID", res.UserID, "roomID", roomID)
	return nil
}

// LeaveRoom removes a connection from the given room and acks the
// leaving client.
func (l *Lifecycle) LeaveRoom(ctx context.Context, connID, roomID string) *Error {
	if roomID == "" {
		return NewError(CodeRoomIDRequired, "room ID is required")
	}

	left, cerr := l.coord.Leave(connID, roomID)
	if cerr != nil {
		return cerr
	}

	l.coord.SendTo(connID, Envelope{
		Event: EventRoomLeft,
		Data: RoomLeftPayload{
			RoomID:  roomID,
			Message: "Left room",
		},
	})

	l.applyLeaveEffects(ctx, left)
	l.logger.Info("User left room", "connID", connID, "userID", left.UserID, "roomID", roomID)
	return nil
}

// applyLeaveEffects runs the room-side consequences of a completed
// leave: best-effort persistence, notification to the remaining
// participants and a fresh snapshot. The user-left notification is only
// emitted when the user's last connection left the room, so multi-device
// users are not announced as gone while still present.
func (l *Lifecycle) applyLeaveEffects(ctx context.Context, left *LeaveResult) {
	if left.UserGone {
		if err := l.rooms.RemoveParticipant(ctx, left.RoomID, left.UserID); err != nil {
			l.logger.Error("Failed to persist participant removal", "roomID", left.RoomID, "userID", left.UserID, "error", err)
		}

		notification := chat.NewNotification(left.RoomID, left.Username+" left the room")
		if err := l.rooms.SaveMessage(ctx, notification); err != nil {
			l.logger.Error("Failed to persist leave notification", "roomID", left.RoomID, "error", err)
		}

		l.coord.Broadcast(left.RoomID, Envelope{
			Event: EventUserLeft,
			Data: PresencePayload{
				UserID:   left.UserID,
				Username: left.Username,
				Message:  notification,
			},
		}, "")
	}

	l.coord.Broadcast(left.RoomID, Envelope{
		Event: EventParticipantsUpdate,
		Data: ParticipantsPayload{
			RoomID:       left.RoomID,
			Participants: left.Participants,
		},
	}, "")

	l.publishUserLeft(left.UserID, left.Username, left.RoomID)
}

// SendMessage validates, persists and fans out a chat message. The
// sender receives its own echo through the broadcast. The message must
// be durable before any participant sees it.
func (l *Lifecycle) SendMessage(ctx context.Context, connID, roomID, content string) *Error {
	if roomID == "" || content == "" {
		return NewError(CodeRoomAndContentRequired, "room ID and content are required")
	}

	info, found := l.coord.ConnInfo(connID)
	if !found {
		return NewError(CodeInternal, "unknown connection")
	}
	if info.RoomID != roomID {
		return NewError(CodeNotInRoom, "you are not in this room")
	}

	target, roomFound, err := l.rooms.GetRoom(ctx, roomID)
	if err != nil {
		l.logger.Error("Room lookup failed", "roomID", roomID, "error", err)
		return NewError(CodeInternal, "failed to look up room")
	}
	if !roomFound {
		return NewError(CodeRoomNotFound, "room not found")
	}
	if !target.IsActive {
		return NewError(CodeRoomInactive, "room is not active")
	}

	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return NewErrorWithDetails(CodeValidationError, "invalid message content", "content is empty after trimming")
	}
	if utf8.RuneCountInString(trimmed) > maxMessageLength {
		return NewErrorWithDetails(CodeValidationError, "invalid message content", "content exceeds 1000 characters")
	}

	msg := &chat.Message{
		ID:             uuid.New().String(),
		RoomID:         roomID,
		SenderID:       info.UserID,
		SenderUsername: info.Username,
		Content:        trimmed,
		Timestamp:      time.Now(),
		Type:           chat.MessageTypeChat,
	}

	if err := l.rooms.SaveMessage(ctx, msg); err != nil {
		l.logger.Error("Failed to persist message", "roomID", roomID, "userID", info.UserID, "error", err)
		return NewError(CodeInternal, "failed to save message")
	}

	l.coord.Broadcast(roomID, Envelope{
		Event: EventNewMessage,
		Data:  NewMessagePayload{Message: msg},
	}, "")

	l.publishMessageSent(msg)
	return nil
}

// GetParticipants replies to the requester with a room's current
// participant snapshot.
func (l *Lifecycle) GetParticipants(_ context.Context, connID, roomID string) *Error {
	if roomID == "" {
		return NewError(CodeRoomIDRequired, "room ID is required")
	}

	l.coord.SendTo(connID, Envelope{
		Event: EventRoomParticipants,
		Data: ParticipantsPayload{
			RoomID:       roomID,
			Participants: l.coord.Participants(roomID),
		},
	})
	return nil
}

func (l *Lifecycle) publishUserConnected(connID, userID, username string) {
	if l.bus == nil {
		return
	}
	event := events.UserConnectedEvent{
		ConnectionID: connID,
		UserID:       userID,
		Username:     username,
		Timestamp:    time.Now(),
	}
	if err := events.UserConnectedV1.Publish(l.bus, event, nil); err != nil {
		l.logger.Error("Failed to publish UserConnected event", "error", err)
	}
}

func (l *Lifecycle) publishUserJoined(userID, username, roomID string) {
	if l.bus == nil {
		return
	}
	event := events.UserJoinedEvent{
		UserID:    userID,
		Username:  username,
		RoomID:    roomID,
		Timestamp: time.Now(),
	}
	if err := events.UserJoinedV1.Publish(l.bus, event, nil); err != nil {
		l.logger.Error("Failed to publish UserJoined event", "error", err)
	}
}

func (l *Lifecycle) publishUserLeft(userID, username, roomID string) {
	if l.bus == nil {
		return
	}
	event := events.UserLeftEvent{
		UserID:    userID,
		Username:  username,
		RoomID:    roomID,
		Timestamp: time.Now(),
	}
	if err := events.UserLeftV1.Publish(l.bus, event, nil); err != nil {
		l.logger.Error("Failed to publish UserLeft event", "error", err)
	}
}

func (l *Lifecycle) publishMessageSent(msg *chat.Message) {
	if l.bus == nil {
		return
	}
	event := events.MessageSentEvent{
		MessageID: msg.ID,
		RoomID:    msg.RoomID,
		UserID:    msg.SenderID,
		Username:  msg.SenderUsername,
		Timestamp: msg.Timestamp,
	}
	if err := events.MessageSentV1.Publish(l.bus, event, nil); err != nil {
		l.logger.Error("Failed to publish MessageSent event", "error", err)
	}
}
