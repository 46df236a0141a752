package session

import (
	"context"
	"log"

	"github.com/example/chat-rooms/events"
	"github.com/example/chat-rooms/modules/room"
	"github.com/go-monolith/mono"
)

// SessionModule owns the realtime coordination layer: the session
// registry, the room participant index and the connection lifecycle.
type SessionModule struct {
	coord         *Coordinator
	lifecycle     *Lifecycle
	cancelCoord   context.CancelFunc
	roomContainer mono.ServiceContainer
	eventBus      mono.EventBus
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*SessionModule)(nil)
	_ mono.DependentModule       = (*SessionModule)(nil)
	_ mono.EventBusAwareModule   = (*SessionModule)(nil)
	_ mono.EventEmitterModule    = (*SessionModule)(nil)
	_ mono.HealthCheckableModule = (*SessionModule)(nil)
)

// NewModule creates a new SessionModule.
func NewModule() *SessionModule {
	return &SessionModule{
		coord: NewCoordinator(),
	}
}

// Name returns the module name.
func (m *SessionModule) Name() string {
	return "session"
}

// Dependencies declares the modules this module requires.
func (m *SessionModule) Dependencies() []string {
	return []string{"room"}
}

// SetDependencyServiceContainer receives service containers of
// dependencies.
func (m *SessionModule) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	if dependency == "room" {
		m.roomContainer = container
	}
}

// SetEventBus receives the EventBus from the framework.
func (m *SessionModule) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

// EmitEvents declares the events this module can emit.
func (m *SessionModule) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.UserConnectedV1.ToBase(),
		events.UserJoinedV1.ToBase(),
		events.UserLeftV1.ToBase(),
		events.MessageSentV1.ToBase(),
	}
}

// Start launches the coordinator goroutine and wires the lifecycle.
func (m *SessionModule) Start(_ context.Context) error {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancelCoord = cancel
	go m.coord.Run(ctx)

	m.lifecycle = NewLifecycle(m.coord, room.NewRoomAdapter(m.roomContainer))
	m.lifecycle.SetEventBus(m.eventBus)

	log.Println("[session] Module started - coordinator running")
	return nil
}

// Stop shuts down the coordinator.
func (m *SessionModule) Stop(_ context.Context) error {
	conns, _ := m.coord.Stats()
	if m.cancelCoord != nil {
		m.cancelCoord()
		m.coord.Wait()
	}
	log.Printf("[session] Module stopped - %d connections were active", conns)
	return nil
}

// Health returns the health status of the module.
func (m *SessionModule) Health(_ context.Context) mono.HealthStatus {
	conns, rooms := m.coord.Stats()
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"connections":    conns,
			"occupied_rooms": rooms,
		},
	}
}

// Lifecycle exposes the connection lifecycle handler for the transport
// layer.
func (m *SessionModule) Lifecycle() *Lifecycle {
	return m.lifecycle
}
