package room

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	chat "github.com/example/chat-rooms/domain/chat"
	"github.com/google/uuid"
)

// roomNamePattern validates room names: letters, digits, spaces,
// underscores and hyphens, 1 to 50 characters.
var roomNamePattern = regexp.MustCompile(`^[A-Za-z0-9 _-]{1,50}$`)

// ErrInvalidContent is returned when message content fails validation.
var ErrInvalidContent = errors.New("message content must be 1-1000 characters")

// RoomService implements room and message management on top of a Store.
type RoomService struct {
	store Store
}

// NewRoomService creates a new RoomService.
func NewRoomService(store Store) *RoomService {
	return &RoomService{store: store}
}

// CreateRoom creates a new room with a unique, validated name.
func (s *RoomService) CreateRoom(ctx context.Context, name, createdBy string) (*chat.Room, error) {
	name = strings.TrimSpace(name)
	if !roomNamePattern.MatchString(name) {
		return nil, ErrInvalidRoomName
	}

	if _, err := s.store.GetRoomIDByName(ctx, name); err == nil {
		return nil, ErrRoomExists
	} else if !errors.Is(err, ErrRoomNotFound) {
		return nil, err
	}

	now := time.Now()
	room := &chat.Room{
		ID:           uuid.New().String(),
		Name:         name,
		CreatedBy:    createdBy,
		IsActive:     true,
		Participants: []string{},
		CreatedAt:    now,
		LastActivity: now,
	}

	if err := s.store.PutRoom(ctx, room); err != nil {
		return nil, err
	}
	return room, nil
}

// GetRoom retrieves a room by ID.
func (s *RoomService) GetRoom(ctx context.Context, roomID string) (*chat.Room, error) {
	return s.store.GetRoom(ctx, roomID)
}

// GetRoomByName retrieves a room by its name, case-insensitively.
func (s *RoomService) GetRoomByName(ctx context.Context, name string) (*chat.Room, error) {
	roomID, err := s.store.GetRoomIDByName(ctx, strings.TrimSpace(name))
	if err != nil {
		return nil, err
	}
	return s.store.GetRoom(ctx, roomID)
}

// ListRooms returns all rooms, optionally only active ones.
func (s *RoomService) ListRooms(ctx context.Context, activeOnly bool) ([]*chat.Room, error) {
	rooms, err := s.store.ListRooms(ctx)
	if err != nil {
		return nil, err
	}
	if !activeOnly {
		return rooms, nil
	}

	active := make([]*chat.Room, 0, len(rooms))
	for _, room := range rooms {
		if room.IsActive {
			active = append(active, room)
		}
	}
	return active, nil
}

// UpdateRoom renames a room. Only the creator may rename it.
func (s *RoomService) UpdateRoom(ctx context.Context, roomID, userID, name string) (*chat.Room, error) {
	room, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room.CreatedBy != userID {
		return nil, ErrNotCreator
	}

	name = strings.TrimSpace(name)
	if !roomNamePattern.MatchString(name) {
		return nil, ErrInvalidRoomName
	}

	if !strings.EqualFold(name, room.Name) {
		if existingID, err := s.store.GetRoomIDByName(ctx, name); err == nil && existingID != roomID {
			return nil, ErrRoomExists
		} else if err != nil && !errors.Is(err, ErrRoomNotFound) {
			return nil, err
		}
	}

	oldName := room.Name
	room.Name = name
	room.LastActivity = time.Now()

	if err := s.store.PutRoom(ctx, room); err != nil {
		return nil, err
	}
	if !strings.EqualFold(oldName, name) {
		if err := s.store.DeleteName(ctx, oldName); err != nil {
			return nil, err
		}
	}
	return room, nil
}

// DeleteRoom removes a room and all its messages. Only the creator may
// delete it.
func (s *RoomService) DeleteRoom(ctx context.Context, roomID, userID string) error {
	room, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		return err
	}
	if room.CreatedBy != userID {
		return ErrNotCreator
	}

	if err := s.store.DeleteRoomMessages(ctx, roomID); err != nil {
		return fmt.Errorf("failed to delete room messages: %w", err)
	}
	return s.store.DeleteRoom(ctx, roomID, room.Name)
}

// AddParticipant records a user in the room's participant list.
func (s *RoomService) AddParticipant(ctx context.Context, roomID, userID string) error {
	room, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		return err
	}
	if !room.IsActive {
		return ErrRoomInactive
	}

	for _, id := range room.Participants {
		if id == userID {
			return nil // already present
		}
	}
	room.Participants = append(room.Participants, userID)
	room.LastActivity = time.Now()
	return s.store.PutRoom(ctx, room)
}

// RemoveParticipant removes a user from the room's participant list.
func (s *RoomService) RemoveParticipant(ctx context.Context, roomID, userID string) error {
	room, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		return err
	}

	for i, id := range room.Participants {
		if id == userID {
			room.Participants = append(room.Participants[:i], room.Participants[i+1:]...)
			room.LastActivity = time.Now()
			return s.store.PutRoom(ctx, room)
		}
	}
	return nil
}

// SaveMessage persists a message.
func (s *RoomService) SaveMessage(ctx context.Context, msg *chat.Message) error {
	return s.store.PutMessage(ctx, msg)
}

// UpdateMessageContent replaces a stored message's content after
// validation.
func (s *RoomService) UpdateMessageContent(ctx context.Context, roomID, messageID, content string) (*chat.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" || utf8.RuneCountInString(content) > 1000 {
		return nil, ErrInvalidContent
	}

	msg, err := s.store.GetMessage(ctx, roomID, messageID)
	if err != nil {
		return nil, err
	}

	msg.Content = content
	if err := s.store.PutMessage(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// GetHistory returns up to limit most recent messages of a room in
// chronological order.
func (s *RoomService) GetHistory(ctx context.Context, roomID string, limit int) ([]*chat.Message, error) {
	if _, err := s.store.GetRoom(ctx, roomID); err != nil {
		return nil, err
	}
	return s.store.ListMessages(ctx, roomID, limit)
}

// TouchActivity updates a room's last-activity timestamp.
func (s *RoomService) TouchActivity(ctx context.Context, roomID string, at time.Time) error {
	room, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		return err
	}
	if at.After(room.LastActivity) {
		room.LastActivity = at
		return s.store.PutRoom(ctx, room)
	}
	return nil
}
