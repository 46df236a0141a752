package room

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	chat "github.com/example/chat-rooms/domain/chat"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// Store defines the key-value storage operations for rooms and messages.
type Store interface {
	PutRoom(ctx context.Context, room *chat.Room) error
	GetRoom(ctx context.Context, roomID string) (*chat.Room, error)
	GetRoomIDByName(ctx context.Context, name string) (string, error)
	ListRooms(ctx context.Context) ([]*chat.Room, error)
	DeleteRoom(ctx context.Context, roomID, name string) error
	DeleteName(ctx context.Context, name string) error

	PutMessage(ctx context.Context, msg *chat.Message) error
	GetMessage(ctx context.Context, roomID, messageID string) (*chat.Message, error)
	ListMessages(ctx context.Context, roomID string, limit int) ([]*chat.Message, error)
	DeleteRoomMessages(ctx context.Context, roomID string) error
}

// JetStreamKVStore implements Store using NATS JetStream KV buckets.
// Three buckets are used: room records keyed by ID, a name index for
// uniqueness lookups, and messages keyed by "<roomID>.<messageID>".
type JetStreamKVStore struct {
	conn       *nats.Conn
	js         jetstream.JetStream
	roomBucket jetstream.KeyValue
	nameBucket jetstream.KeyValue
	msgBucket  jetstream.KeyValue
}

// NewJetStreamKVStore creates a new JetStream KV store client.
func NewJetStreamKVStore(natsURL string) (*JetStreamKVStore, error) {
	conn, err := nats.Connect(natsURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	return &JetStreamKVStore{
		conn: conn,
		js:   js,
	}, nil
}

// Init initializes the KV buckets.
func (s *JetStreamKVStore) Init(ctx context.Context) error {
	roomBucket, err := s.getOrCreateBucket(ctx, "rooms", "Chat room records keyed by room ID")
	if err != nil {
		return fmt.Errorf("failed to create rooms bucket: %w", err)
	}
	s.roomBucket = roomBucket

	nameBucket, err := s.getOrCreateBucket(ctx, "room-names", "Room name uniqueness index")
	if err != nil {
		return fmt.Errorf("failed to create room-names bucket: %w", err)
	}
	s.nameBucket = nameBucket

	msgBucket, err := s.getOrCreateBucket(ctx, "messages", "Chat messages keyed by roomID.messageID")
	if err != nil {
		return fmt.Errorf("failed to create messages bucket: %w", err)
	}
	s.msgBucket = msgBucket

	return nil
}

func (s *JetStreamKVStore) getOrCreateBucket(ctx context.Context, name, description string) (jetstream.KeyValue, error) {
	bucket, err := s.js.KeyValue(ctx, name)
	if err == nil {
		return bucket, nil
	}

	bucket, err = s.js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      name,
		Description: description,
	})
	if err != nil {
		return nil, err
	}

	return bucket, nil
}

// nameKey encodes a room name into a KV-safe key. Room names may contain
// spaces, which JetStream KV keys do not allow.
func nameKey(name string) string {
	return hex.EncodeToString([]byte(strings.ToLower(name)))
}

// PutRoom stores a room record and its name index entry.
func (s *JetStreamKVStore) PutRoom(ctx context.Context, room *chat.Room) error {
	data, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("failed to marshal room: %w", err)
	}

	if _, err := s.roomBucket.Put(ctx, room.ID, data); err != nil {
		return fmt.Errorf("failed to store room: %w", err)
	}

	if _, err := s.nameBucket.Put(ctx, nameKey(room.Name), []byte(room.ID)); err != nil {
		return fmt.Errorf("failed to store room name index: %w", err)
	}

	return nil
}

// GetRoom retrieves a room record by ID.
func (s *JetStreamKVStore) GetRoom(ctx context.Context, roomID string) (*chat.Room, error) {
	entry, err := s.roomBucket.Get(ctx, roomID)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("failed to get room: %w", err)
	}

	var room chat.Room
	if err := json.Unmarshal(entry.Value(), &room); err != nil {
		return nil, fmt.Errorf("failed to unmarshal room: %w", err)
	}

	return &room, nil
}

// GetRoomIDByName resolves a room name to its ID through the name index.
func (s *JetStreamKVStore) GetRoomIDByName(ctx context.Context, name string) (string, error) {
	entry, err := s.nameBucket.Get(ctx, nameKey(name))
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return "", ErrRoomNotFound
		}
		return "", fmt.Errorf("failed to get room name index: %w", err)
	}
	return string(entry.Value()), nil
}

// ListRooms returns all room records.
func (s *JetStreamKVStore) ListRooms(ctx context.Context) ([]*chat.Room, error) {
	keys, err := s.roomBucket.Keys(ctx)
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list room keys: %w", err)
	}

	rooms := make([]*chat.Room, 0, len(keys))
	for _, key := range keys {
		room, err := s.GetRoom(ctx, key)
		if err != nil {
			if errors.Is(err, ErrRoomNotFound) {
				continue // deleted between Keys and Get
			}
			return nil, err
		}
		rooms = append(rooms, room)
	}

	sort.Slice(rooms, func(i, j int) bool {
		return rooms[i].CreatedAt.Before(rooms[j].CreatedAt)
	})
	return rooms, nil
}

// DeleteRoom removes a room record and its name index entry.
func (s *JetStreamKVStore) DeleteRoom(ctx context.Context, roomID, name string) error {
	if err := s.nameBucket.Delete(ctx, nameKey(name)); err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("failed to delete room name index: %w", err)
	}
	if err := s.roomBucket.Delete(ctx, roomID); err != nil {
		return fmt.Errorf("failed to delete room: %w", err)
	}
	return nil
}

// DeleteName removes a stale name index entry after a rename.
func (s *JetStreamKVStore) DeleteName(ctx context.Context, name string) error {
	if err := s.nameBucket.Delete(ctx, nameKey(name)); err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("failed to delete room name index: %w", err)
	}
	return nil
}

// PutMessage stores a message record.
func (s *JetStreamKVStore) PutMessage(ctx context.Context, msg *chat.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	if _, err := s.msgBucket.Put(ctx, msg.RoomID+"."+msg.ID, data); err != nil {
		return fmt.Errorf("failed to store message: %w", err)
	}

	return nil
}

// GetMessage retrieves a message by room and message ID.
func (s *JetStreamKVStore) GetMessage(ctx context.Context, roomID, messageID string) (*chat.Message, error) {
	entry, err := s.msgBucket.Get(ctx, roomID+"."+messageID)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, fmt.Errorf("failed to get message: %w", err)
	}

	var msg chat.Message
	if err := json.Unmarshal(entry.Value(), &msg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message: %w", err)
	}
	return &msg, nil
}

// ListMessages returns up to limit most recent messages of a room in
// chronological order.
func (s *JetStreamKVStore) ListMessages(ctx context.Context, roomID string, limit int) ([]*chat.Message, error) {
	keys, err := s.roomMessageKeys(ctx, roomID)
	if err != nil {
		return nil, err
	}

	messages := make([]*chat.Message, 0, len(keys))
	for _, key := range keys {
		entry, err := s.msgBucket.Get(ctx, key)
		if err != nil {
			if errors.Is(err, jetstream.ErrKeyNotFound) {
				continue
			}
			return nil, fmt.Errorf("failed to get message: %w", err)
		}
		var msg chat.Message
		if err := json.Unmarshal(entry.Value(), &msg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal message: %w", err)
		}
		messages = append(messages, &msg)
	}

	sort.Slice(messages, func(i, j int) bool {
		return messages[i].Timestamp.Before(messages[j].Timestamp)
	})

	if limit > 0 && len(messages) > limit {
		messages = messages[len(messages)-limit:]
	}
	return messages, nil
}

// DeleteRoomMessages removes every message of a room.
func (s *JetStreamKVStore) DeleteRoomMessages(ctx context.Context, roomID string) error {
	keys, err := s.roomMessageKeys(ctx, roomID)
	if err != nil {
		return err
	}
	for _, key := range keys {
		if err := s.msgBucket.Delete(ctx, key); err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
			return fmt.Errorf("failed to delete message: %w", err)
		}
	}
	return nil
}

func (s *JetStreamKVStore) roomMessageKeys(ctx context.Context, roomID string) ([]string, error) {
	keys, err := s.msgBucket.Keys(ctx)
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list message keys: %w", err)
	}

	prefix := roomID + "."
	matched := keys[:0]
	for _, key := range keys {
		if strings.HasPrefix(key, prefix) {
			matched = append(matched, key)
		}
	}
	return matched, nil
}

// IsConnected returns whether the NATS connection is active.
func (s *JetStreamKVStore) IsConnected() bool {
	return s.conn != nil && s.conn.IsConnected()
}

// Close closes the NATS connection.
func (s *JetStreamKVStore) Close() error {
	if s.conn != nil {
		s.conn.Close()
	}
	return nil
}
