package room

import (
	"context"
	"encoding/json"
	"fmt"

	chat "github.com/example/chat-rooms/domain/chat"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// RoomPort defines the interface for room operations used by other
// modules. GetRoom reports a missing room through the boolean rather
// than an error so callers can tell it apart from transport failures.
type RoomPort interface {
	CreateRoom(ctx context.Context, name, createdBy string) (*chat.Room, error)
	GetRoom(ctx context.Context, roomID string) (*chat.Room, bool, error)
	ListRooms(ctx context.Context, activeOnly bool) ([]*chat.Room, error)
	UpdateRoom(ctx context.Context, roomID, userID, name string) (*chat.Room, error)
	DeleteRoom(ctx context.Context, roomID, userID string) error
	AddParticipant(ctx context.Context, roomID, userID string) error
	RemoveParticipant(ctx context.Context, roomID, userID string) error
	SaveMessage(ctx context.Context, msg *chat.Message) error
	GetHistory(ctx context.Context, roomID string, limit int) ([]*chat.Message, error)
}

// RoomAdapter implements RoomPort using the service container.
type RoomAdapter struct {
	container mono.ServiceContainer
}

// NewRoomAdapter creates a new RoomAdapter.
func NewRoomAdapter(container mono.ServiceContainer) *RoomAdapter {
	return &RoomAdapter{
		container: container,
	}
}

// CreateRoom creates a new room.
func (a *RoomAdapter) CreateRoom(ctx context.Context, name, createdBy string) (*chat.Room, error) {
	req := CreateRoomRequest{Name: name, CreatedBy: createdBy}
	var resp CreateRoomResponse

	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"create-room",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("create-room request failed: %w", err)
	}
	return resp.Room, nil
}

// GetRoom retrieves a room by ID.
func (a *RoomAdapter) GetRoom(ctx context.Context, roomID string) (*chat.Room, bool, error) {
	req := GetRoomRequest{RoomID: roomID}
	var resp GetRoomResponse

	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"get-room",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, false, fmt.Errorf("get-room request failed: %w", err)
	}
	return resp.Room, resp.Found, nil
}

// ListRooms returns all rooms, optionally only active ones.
func (a *RoomAdapter) ListRooms(ctx context.Context, activeOnly bool) ([]*chat.Room, error) {
	req := ListRoomsRequest{ActiveOnly: activeOnly}
	var resp ListRoomsResponse

	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"list-rooms",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("list-rooms request failed: %w", err)
	}
	return resp.Rooms, nil
}

// UpdateRoom renames a room on behalf of its creator.
func (a *RoomAdapter) UpdateRoom(ctx context.Context, roomID, userID, name string) (*chat.Room, error) {
	req := UpdateRoomRequest{RoomID: roomID, UserID: userID, Name: name}
	var resp UpdateRoomResponse

	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"update-room",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("update-room request failed: %w", err)
	}
	return resp.Room, nil
}

// DeleteRoom deletes a room on behalf of its creator.
func (a *RoomAdapter) DeleteRoom(ctx context.Context, roomID, userID string) error {
	req := DeleteRoomRequest{RoomID: roomID, UserID: userID}
	var resp DeleteRoomResponse

	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"delete-room",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return fmt.Errorf("delete-room request failed: %w", err)
	}
	return nil
}

// AddParticipant records a user in a room's participant list.
func (a *RoomAdapter) AddParticipant(ctx context.Context, roomID, userID string) error {
	req := AddParticipantRequest{RoomID: roomID, UserID: userID}
	var resp AddParticipantResponse

	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"add-participant",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return fmt.Errorf("add-participant request failed: %w", err)
	}
	return nil
}

// RemoveParticipant removes a user from a room's participant list.
func (a *RoomAdapter) RemoveParticipant(ctx context.Context, roomID, userID string) error {
	req := RemoveParticipantRequest{RoomID: roomID, UserID: userID}
	var resp RemoveParticipantResponse

	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"remove-participant",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return fmt.Errorf("remove-participant request failed: %w", err)
	}
	return nil
}

// SaveMessage persists a message.
func (a *RoomAdapter) SaveMessage(ctx context.Context, msg *chat.Message) error {
	req := SaveMessageRequest{Message: msg}
	var resp SaveMessageResponse

	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"save-message",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return fmt.Errorf("save-message request failed: %w", err)
	}
	return nil
}

// GetHistory returns up to limit most recent messages of a room.
func (a *RoomAdapter) GetHistory(ctx context.Context, roomID string, limit int) ([]*chat.Message, error) {
	req := GetHistoryRequest{RoomID: roomID, Limit: limit}
	var resp GetHistoryResponse

	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"get-history",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("get-history request failed: %w", err)
	}
	return resp.Messages, nil
}
