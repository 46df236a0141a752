package room

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/example/chat-rooms/events"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// RoomModule provides room and message persistence services.
type RoomModule struct {
	store   *JetStreamKVStore
	service *RoomService
	natsURL string
}

// Compile-time interface checks.
var _ mono.Module = (*RoomModule)(nil)
var _ mono.ServiceProviderModule = (*RoomModule)(nil)
var _ mono.EventConsumerModule = (*RoomModule)(nil)
var _ mono.HealthCheckableModule = (*RoomModule)(nil)

// NewModule creates a new RoomModule.
func NewModule() *RoomModule {
	natsURL := os.Getenv("NATS_URL")
	if natsURL == "" {
		natsURL = "nats://localhost:4222"
	}
	return &RoomModule{natsURL: natsURL}
}

// Name returns the module name.
func (m *RoomModule) Name() string {
	return "room"
}

// Start initializes the KV store and service.
func (m *RoomModule) Start(ctx context.Context) error {
	store, err := NewJetStreamKVStore(m.natsURL)
	if err != nil {
		return fmt.Errorf("failed to create KV store: %w", err)
	}
	if err := store.Init(ctx); err != nil {
		store.Close()
		return fmt.Errorf("failed to initialize KV buckets: %w", err)
	}

	m.store = store
	m.service = NewRoomService(store)

	log.Printf("[room] Module started (nats: %s)", m.natsURL)
	return nil
}

// Stop shuts down the module.
func (m *RoomModule) Stop(_ context.Context) error {
	if m.store != nil {
		m.store.Close()
	}
	log.Println("[room] Module stopped")
	return nil
}

// Health returns the health status of the module.
func (m *RoomModule) Health(_ context.Context) mono.HealthStatus {
	if m.store == nil || !m.store.IsConnected() {
		return mono.HealthStatus{
			Healthy: false,
			Message: "NATS connection not available",
		}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"nats": m.natsURL,
		},
	}
}

// RegisterServices registers request-reply services in the service container.
func (m *RoomModule) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container,
		"create-room",
		json.Unmarshal,
		json.Marshal,
		m.handleCreateRoom,
	); err != nil {
		return fmt.Errorf("failed to register create-room service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container,
		"get-room",
		json.Unmarshal,
		json.Marshal,
		m.handleGetRoom,
	); err != nil {
		return fmt.Errorf("failed to register get-room service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container,
		"list-rooms",
		json.Unmarshal,
		json.Marshal,
		m.handleListRooms,
	); err != nil {
		return fmt.Errorf("failed to register list-rooms service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container,
		"update-room",
		json.Unmarshal,
		json.Marshal,
		m.handleUpdateRoom,
	); err != nil {
		return fmt.Errorf("failed to register update-room service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container,
		"delete-room",
		json.Unmarshal,
		json.Marshal,
		m.handleDeleteRoom,
	); err != nil {
		return fmt.Errorf("failed to register delete-room service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container,
		"add-participant",
		json.Unmarshal,
		json.Marshal,
		m.handleAddParticipant,
	); err != nil {
		return fmt.Errorf("failed to register add-participant service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container,
		"remove-participant",
		json.Unmarshal,
		json.Marshal,
		m.handleRemoveParticipant,
	); err != nil {
		return fmt.Errorf("failed to register remove-participant service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container,
		"save-message",
		json.Unmarshal,
		json.Marshal,
		m.handleSaveMessage,
	); err != nil {
		return fmt.Errorf("failed to register save-message service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container,
		"get-history",
		json.Unmarshal,
		json.Marshal,
		m.handleGetHistory,
	); err != nil {
		return fmt.Errorf("failed to register get-history service: %w", err)
	}

	log.Printf("[room] Registered services: create-room, get-room, list-rooms, update-room, delete-room, add-participant, remove-participant, save-message, get-history")
	return nil
}

// RegisterEventConsumers registers event handlers.
func (m *RoomModule) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(
		registry, events.MessageSentV1, m.handleMessageSent, m,
	); err != nil {
		return fmt.Errorf("failed to register MessageSent consumer: %w", err)
	}

	log.Println("[room] Registered event consumers: MessageSent")
	return nil
}

// handleMessageSent keeps last-activity bookkeeping for rooms.
func (m *RoomModule) handleMessageSent(ctx context.Context, event events.MessageSentEvent, _ *mono.Msg) error {
	if err := m.service.TouchActivity(ctx, event.RoomID, event.Timestamp); err != nil {
		log.Printf("[room] Failed to update last activity for room %s: %v", event.RoomID, err)
	}
	return nil
}

// handleCreateRoom handles room creation.
func (m *RoomModule) handleCreateRoom(ctx context.Context, req CreateRoomRequest, _ *mono.Msg) (CreateRoomResponse, error) {
	room, err := m.service.CreateRoom(ctx, req.Name, req.CreatedBy)
	if err != nil {
		return CreateRoomResponse{}, err
	}
	return CreateRoomResponse{Room: room}, nil
}

// handleGetRoom handles room lookups. A missing room is reported through
// the Found flag rather than an error.
func (m *RoomModule) handleGetRoom(ctx context.Context, req GetRoomRequest, _ *mono.Msg) (GetRoomResponse, error) {
	room, err := m.service.GetRoom(ctx, req.RoomID)
	if err != nil {
		if errors.Is(err, ErrRoomNotFound) {
			return GetRoomResponse{Found: false}, nil
		}
		return GetRoomResponse{}, err
	}
	return GetRoomResponse{Found: true, Room: room}, nil
}

// handleListRooms handles room listing.
func (m *RoomModule) handleListRooms(ctx context.Context, req ListRoomsRequest, _ *mono.Msg) (ListRoomsResponse, error) {
	rooms, err := m.service.ListRooms(ctx, req.ActiveOnly)
	if err != nil {
		return ListRoomsResponse{}, err
	}
	return ListRoomsResponse{Rooms: rooms}, nil
}

// handleUpdateRoom handles room renames.
func (m *RoomModule) handleUpdateRoom(ctx context.Context, req UpdateRoomRequest, _ *mono.Msg) (UpdateRoomResponse, error) {
	room, err := m.service.UpdateRoom(ctx, req.RoomID, req.UserID, req.Name)
	if err != nil {
		return UpdateRoomResponse{}, err
	}
	return UpdateRoomResponse{Room: room}, nil
}

// handleDeleteRoom handles room deletion.
func (m *RoomModule) handleDeleteRoom(ctx context.Context, req DeleteRoomRequest, _ *mono.Msg) (DeleteRoomResponse, error) {
	if err := m.service.DeleteRoom(ctx, req.RoomID, req.UserID); err != nil {
		return DeleteRoomResponse{}, err
	}
	return DeleteRoomResponse{Success: true}, nil
}

// handleAddParticipant handles participant additions.
func (m *RoomModule) handleAddParticipant(ctx context.Context, req AddParticipantRequest, _ *mono.Msg) (AddParticipantResponse, error) {
	if err := m.service.AddParticipant(ctx, req.RoomID, req.UserID); err != nil {
		return AddParticipantResponse{}, err
	}
	return AddParticipantResponse{Success: true}, nil
}

// handleRemoveParticipant handles participant removals.
func (m *RoomModule) handleRemoveParticipant(ctx context.Context, req RemoveParticipantRequest, _ *mono.Msg) (RemoveParticipantResponse, error) {
	if err := m.service.RemoveParticipant(ctx, req.RoomID, req.UserID); err != nil {
		return RemoveParticipantResponse{}, err
	}
	return RemoveParticipantResponse{Success: true}, nil
}

// handleSaveMessage handles message persistence.
func (m *RoomModule) handleSaveMessage(ctx context.Context, req SaveMessageRequest, _ *mono.Msg) (SaveMessageResponse, error) {
	if err := m.service.SaveMessage(ctx, req.Message); err != nil {
		return SaveMessageResponse{}, err
	}
	return SaveMessageResponse{Success: true}, nil
}

// handleGetHistory handles message history requests.
func (m *RoomModule) handleGetHistory(ctx context.Context, req GetHistoryRequest, _ *mono.Msg) (GetHistoryResponse, error) {
	messages, err := m.service.GetHistory(ctx, req.RoomID, req.Limit)
	if err != nil {
		return GetHistoryResponse{}, err
	}
	return GetHistoryResponse{Messages: messages}, nil
}
