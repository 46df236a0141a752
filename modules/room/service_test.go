package room

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	chat "github.com/example/chat-rooms/domain/chat"
	"github.com/google/uuid"
)

// memoryStore is an in-memory Store implementation for tests.
type memoryStore struct {
	rooms    map[string]*chat.Room
	names    map[string]string
	messages map[string]*chat.Message
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		rooms:    make(map[string]*chat.Room),
		names:    make(map[string]string),
		messages: make(map[string]*chat.Message),
	}
}

func copyRoom(room *chat.Room) *chat.Room {
	c := *room
	c.Participants = append([]string(nil), room.Participants...)
	return &c
}

func (s *memoryStore) PutRoom(_ context.Context, room *chat.Room) error {
	s.rooms[room.ID] = copyRoom(room)
	s.names[nameKey(room.Name)] = room.ID
	return nil
}

func (s *memoryStore) GetRoom(_ context.Context, roomID string) (*chat.Room, error) {
	room, ok := s.rooms[roomID]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return copyRoom(room), nil
}

func (s *memoryStore) GetRoomIDByName(_ context.Context, name string) (string, error) {
	id, ok := s.names[nameKey(name)]
	if !ok {
		return "", ErrRoomNotFound
	}
	return id, nil
}

func (s *memoryStore) ListRooms(_ context.Context) ([]*chat.Room, error) {
	rooms := make([]*chat.Room, 0, len(s.rooms))
	for _, room := range s.rooms {
		rooms = append(rooms, copyRoom(room))
	}
	return rooms, nil
}

func (s *memoryStore) DeleteRoom(_ context.Context, roomID, name string) error {
	delete(s.names, nameKey(name))
	delete(s.rooms, roomID)
	return nil
}

func (s *memoryStore) DeleteName(_ context.Context, name string) error {
	delete(s.names, nameKey(name))
	return nil
}

func (s *memoryStore) PutMessage(_ context.Context, msg *chat.Message) error {
	c := *msg
	s.messages[msg.RoomID+"."+msg.ID] = &c
	return nil
}

func (s *memoryStore) GetMessage(_ context.Context, roomID, messageID string) (*chat.Message, error) {
	msg, ok := s.messages[roomID+"."+messageID]
	if !ok {
		return nil, ErrMessageNotFound
	}
	c := *msg
	return &c, nil
}

func (s *memoryStore) ListMessages(_ context.Context, roomID string, limit int) ([]*chat.Message, error) {
	var messages []*chat.Message
	for key, msg := range s.messages {
		if strings.HasPrefix(key, roomID+".") {
			c := *msg
			messages = append(messages, &c)
		}
	}
	for i := 0; i < len(messages); i++ {
		for j := i + 1; j < len(messages); j++ {
			if messages[j].Timestamp.Before(messages[i].Timestamp) {
				messages[i], messages[j] = messages[j], messages[i]
			}
		}
	}
	if limit > 0 && len(messages) > limit {
		messages = messages[len(messages)-limit:]
	}
	return messages, nil
}

func (s *memoryStore) DeleteRoomMessages(_ context.Context, roomID string) error {
	for key := range s.messages {
		if strings.HasPrefix(key, roomID+".") {
			delete(s.messages, key)
		}
	}
	return nil
}

func newTestService() (*RoomService, *memoryStore) {
	store := newMemoryStore()
	return NewRoomService(store), store
}

func TestCreateRoom(t *testing.T) {
	service, _ := newTestService()
	ctx := context.Background()

	room, err := service.CreateRoom(ctx, "general", "user-1")
	if err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}
	if room.ID == "" {
		t.Error("Expected room ID to be set")
	}
	if room.Name != "general" {
		t.Errorf("Expected name 'general', got %q", room.Name)
	}
	if room.CreatedBy != "user-1" {
		t.Errorf("Expected creator 'user-1', got %q", room.CreatedBy)
	}
	if !room.IsActive {
		t.Error("Expected new room to be active")
	}
	if len(room.Participants) != 0 {
		t.Errorf("Expected empty participant list, got %v", room.Participants)
	}
}

func TestCreateRoomNameValidation(t *testing.T) {
	service, _ := newTestService()
	ctx := context.Background()

	tests := []struct {
		name     string
		roomName string
		wantErr  bool
	}{
		{"valid simple", "general", false},
		{"valid with spaces", "dev room", false},
		{"valid with underscore and hyphen", "dev_room-2", false},
		{"trimmed whitespace", "  lounge  ", false},
		{"empty", "", true},
		{"whitespace only", "   ", true},
		{"too long", strings.Repeat("a", 51), true},
		{"max length", strings.Repeat("a", 50), false},
		{"invalid character", "room!", true},
		{"unicode", "каюта", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.CreateRoom(ctx, tt.roomName, "user-1")
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidRoomName) {
					t.Errorf("Expected ErrInvalidRoomName, got %v", err)
				}
			} else if err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
		})
	}
}

func TestCreateRoomTrimsName(t *testing.T) {
	service, _ := newTestService()
	ctx := context.Background()

	room, err := service.CreateRoom(ctx, "  lounge 2  ", "user-1")
	if err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}
	if room.Name != "lounge 2" {
		t.Errorf("Expected trimmed name 'lounge 2', got %q", room.Name)
	}
}

func TestCreateRoomDuplicateName(t *testing.T) {
	service, _ := newTestService()
	ctx := context.Background()

	if _, err := service.CreateRoom(ctx, "general", "user-1"); err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}

	// Same name, different case, should be rejected
	if _, err := service.CreateRoom(ctx, "General", "user-2"); !errors.Is(err, ErrRoomExists) {
		t.Errorf("Expected ErrRoomExists, got %v", err)
	}
}

func TestGetRoomByName(t *testing.T) {
	service, _ := newTestService()
	ctx := context.Background()

	created, err := service.CreateRoom(ctx, "general", "user-1")
	if err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}

	room, err := service.GetRoomByName(ctx, "GENERAL")
	if err != nil {
		t.Fatalf("GetRoomByName failed: %v", err)
	}
	if room.ID != created.ID {
		t.Errorf("Expected room %s, got %s", created.ID, room.ID)
	}

	if _, err := service.GetRoomByName(ctx, "missing"); !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("Expected ErrRoomNotFound, got %v", err)
	}
}

func TestListRoomsActiveOnly(t *testing.T) {
	service, store := newTestService()
	ctx := context.Background()

	active, err := service.CreateRoom(ctx, "active", "user-1")
	if err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}
	inactive, err := service.CreateRoom(ctx, "inactive", "user-1")
	if err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}

	inactive.IsActive = false
	if err := store.PutRoom(ctx, inactive); err != nil {
		t.Fatalf("PutRoom failed: %v", err)
	}

	all, err := service.ListRooms(ctx, false)
	if err != nil {
		t.Fatalf("ListRooms failed: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("Expected 2 rooms, got %d", len(all))
	}

	activeRooms, err := service.ListRooms(ctx, true)
	if err != nil {
		t.Fatalf("ListRooms failed: %v", err)
	}
	if len(activeRooms) != 1 || activeRooms[0].ID != active.ID {
		t.Errorf("Expected only room %s, got %v", active.ID, activeRooms)
	}
}

func TestUpdateRoom(t *testing.T) {
	service, _ := newTestService()
	ctx := context.Background()

	room, err := service.CreateRoom(ctx, "old name", "user-1")
	if err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}

	// Non-creator cannot rename
	if _, err := service.UpdateRoom(ctx, room.ID, "user-2", "new name"); !errors.Is(err, ErrNotCreator) {
		t.Errorf("Expected ErrNotCreator, got %v", err)
	}

	updated, err := service.UpdateRoom(ctx, room.ID, "user-1", "new name")
	if err != nil {
		t.Fatalf("UpdateRoom failed: %v", err)
	}
	if updated.Name != "new name" {
		t.Errorf("Expected name 'new name', got %q", updated.Name)
	}

	// Old name should be free again
	if _, err := service.CreateRoom(ctx, "old name", "user-2"); err != nil {
		t.Errorf("Expected old name to be reusable, got %v", err)
	}

	// Renaming onto a taken name fails
	if _, err := service.UpdateRoom(ctx, room.ID, "user-1", "old name"); !errors.Is(err, ErrRoomExists) {
		t.Errorf("Expected ErrRoomExists, got %v", err)
	}

	// Changing only the case of the own name is allowed
	if _, err := service.UpdateRoom(ctx, room.ID, "user-1", "New Name"); err != nil {
		t.Errorf("Expected case-only rename to succeed, got %v", err)
	}
}

func TestDeleteRoomCascade(t *testing.T) {
	service, store := newTestService()
	ctx := context.Background()

	room, err := service.CreateRoom(ctx, "doomed", "user-1")
	if err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		msg := &chat.Message{
			ID:        uuid.New().String(),
			RoomID:    room.ID,
			SenderID:  "user-1",
			Content:   "hello",
			Timestamp: time.Now(),
			Type:      chat.MessageTypeChat,
		}
		if err := service.SaveMessage(ctx, msg); err != nil {
			t.Fatalf("SaveMessage failed: %v", err)
		}
	}

	// Non-creator cannot delete
	if err := service.DeleteRoom(ctx, room.ID, "user-2"); !errors.Is(err, ErrNotCreator) {
		t.Errorf("Expected ErrNotCreator, got %v", err)
	}

	if err := service.DeleteRoom(ctx, room.ID, "user-1"); err != nil {
		t.Fatalf("DeleteRoom failed: %v", err)
	}

	if _, err := service.GetRoom(ctx, room.ID); !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("Expected ErrRoomNotFound after delete, got %v", err)
	}
	if len(store.messages) != 0 {
		t.Errorf("Expected messages to be cascaded, %d remain", len(store.messages))
	}

	// Name is free again
	if _, err := service.CreateRoom(ctx, "doomed", "user-2"); err != nil {
		t.Errorf("Expected name to be reusable after delete, got %v", err)
	}
}

func TestParticipants(t *testing.T) {
	service, _ := newTestService()
	ctx := context.Background()

	room, err := service.CreateRoom(ctx, "general", "user-1")
	if err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}

	if err := service.AddParticipant(ctx, room.ID, "user-1"); err != nil {
		t.Fatalf("AddParticipant failed: %v", err)
	}
	// Adding twice is a no-op
	if err := service.AddParticipant(ctx, room.ID, "user-1"); err != nil {
		t.Fatalf("AddParticipant failed: %v", err)
	}
	if err := service.AddParticipant(ctx, room.ID, "user-2"); err != nil {
		t.Fatalf("AddParticipant failed: %v", err)
	}

	got, err := service.GetRoom(ctx, room.ID)
	if err != nil {
		t.Fatalf("GetRoom failed: %v", err)
	}
	if len(got.Participants) != 2 {
		t.Errorf("Expected 2 participants, got %v", got.Participants)
	}

	if err := service.RemoveParticipant(ctx, room.ID, "user-1"); err != nil {
		t.Fatalf("RemoveParticipant failed: %v", err)
	}
	// Removing an absent user is a no-op
	if err := service.RemoveParticipant(ctx, room.ID, "user-3"); err != nil {
		t.Fatalf("RemoveParticipant failed: %v", err)
	}

	got, err = service.GetRoom(ctx, room.ID)
	if err != nil {
		t.Fatalf("GetRoom failed: %v", err)
	}
	if len(got.Participants) != 1 || got.Participants[0] != "user-2" {
		t.Errorf("Expected only user-2, got %v", got.Participants)
	}
}

func TestGetHistory(t *testing.T) {
	service, _ := newTestService()
	ctx := context.Background()

	room, err := service.CreateRoom(ctx, "general", "user-1")
	if err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}

	base := time.Now()
	for i := 0; i < 5; i++ {
		msg := &chat.Message{
			ID:        uuid.New().String(),
			RoomID:    room.ID,
			SenderID:  "user-1",
			Content:   string(rune('a' + i)),
			Timestamp: base.Add(time.Duration(i) * time.Second),
			Type:      chat.MessageTypeChat,
		}
		if err := service.SaveMessage(ctx, msg); err != nil {
			t.Fatalf("SaveMessage failed: %v", err)
		}
	}

	messages, err := service.GetHistory(ctx, room.ID, 3)
	if err != nil {
		t.Fatalf("GetHistory failed: %v", err)
	}
	if len(messages) != 3 {
		t.Fatalf("Expected 3 messages, got %d", len(messages))
	}
	// Most recent 3, in chronological order
	if messages[0].Content != "c" || messages[2].Content != "e" {
		t.Errorf("Unexpected history window: %q..%q", messages[0].Content, messages[2].Content)
	}

	if _, err := service.GetHistory(ctx, "missing", 10); !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("Expected ErrRoomNotFound, got %v", err)
	}
}

func TestUpdateMessageContent(t *testing.T) {
	service, _ := newTestService()
	ctx := context.Background()

	room, err := service.CreateRoom(ctx, "general", "user-1")
	if err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}

	msg := &chat.Message{
		ID:        uuid.New().String(),
		RoomID:    room.ID,
		SenderID:  "user-1",
		Content:   "original",
		Timestamp: time.Now(),
		Type:      chat.MessageTypeChat,
	}
	if err := service.SaveMessage(ctx, msg); err != nil {
		t.Fatalf("SaveMessage failed: %v", err)
	}

	updated, err := service.UpdateMessageContent(ctx, room.ID, msg.ID, "  edited  ")
	if err != nil {
		t.Fatalf("UpdateMessageContent failed: %v", err)
	}
	if updated.Content != "edited" {
		t.Errorf("Expected trimmed content 'edited', got %q", updated.Content)
	}

	if _, err := service.UpdateMessageContent(ctx, room.ID, msg.ID, "   "); !errors.Is(err, ErrInvalidContent) {
		t.Errorf("Expected ErrInvalidContent for blank content, got %v", err)
	}
	if _, err := service.UpdateMessageContent(ctx, room.ID, msg.ID, strings.Repeat("x", 1001)); !errors.Is(err, ErrInvalidContent) {
		t.Errorf("Expected ErrInvalidContent for oversized content, got %v", err)
	}
	if _, err := service.UpdateMessageContent(ctx, room.ID, "missing", "hi"); !errors.Is(err, ErrMessageNotFound) {
		t.Errorf("Expected ErrMessageNotFound, got %v", err)
	}
}

func TestTouchActivity(t *testing.T) {
	service, _ := newTestService()
	ctx := context.Background()

	room, err := service.CreateRoom(ctx, "general", "user-1")
	if err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}

	future := room.LastActivity.Add(time.Hour)
	if err := service.TouchActivity(ctx, room.ID, future); err != nil {
		t.Fatalf("TouchActivity failed: %v", err)
	}

	got, err := service.GetRoom(ctx, room.ID)
	if err != nil {
		t.Fatalf("GetRoom failed: %v", err)
	}
	if !got.LastActivity.Equal(future) {
		t.Errorf("Expected last activity %v, got %v", future, got.LastActivity)
	}

	// Older timestamps never move last activity backwards
	if err := service.TouchActivity(ctx, room.ID, future.Add(-time.Minute)); err != nil {
		t.Fatalf("TouchActivity failed: %v", err)
	}
	got, _ = service.GetRoom(ctx, room.ID)
	if !got.LastActivity.Equal(future) {
		t.Errorf("Expected last activity unchanged, got %v", got.LastActivity)
	}
}
