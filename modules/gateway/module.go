package gateway

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/example/chat-rooms/modules/auth"
	"github.com/example/chat-rooms/modules/room"
	"github.com/example/chat-rooms/modules/session"
	"github.com/go-monolith/mono"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// GatewayModule is the HTTP and WebSocket front of the chat service.
type GatewayModule struct {
	app           *fiber.App
	addr          string
	sessionModule *session.SessionModule
	authContainer mono.ServiceContainer
	authAdapter   auth.AuthPort
	roomAdapter   room.RoomPort
}

// Compile-time interface checks.
var _ mono.Module = (*GatewayModule)(nil)
var _ mono.DependentModule = (*GatewayModule)(nil)
var _ mono.HealthCheckableModule = (*GatewayModule)(nil)

// NewModule creates a new GatewayModule. The session module provides the
// connection lifecycle handler once started.
func NewModule(sessionModule *session.SessionModule) *GatewayModule {
	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":3000"
	}
	return &GatewayModule{
		addr:          addr,
		sessionModule: sessionModule,
	}
}

// Name returns the module name.
func (m *GatewayModule) Name() string {
	return "gateway"
}

// Dependencies returns the list of module dependencies. The session
// module is wired directly through the constructor; register it before
// this module so its lifecycle exists when the routes come up.
func (m *GatewayModule) Dependencies() []string {
	return []string{"auth", "room"}
}

// SetDependencyServiceContainer receives service containers from
// dependencies.
func (m *GatewayModule) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	switch dependency {
	case "auth":
		m.authContainer = container
		m.authAdapter = auth.NewAuthAdapter(container)
	case "room":
		m.roomAdapter = room.NewRoomAdapter(container)
	}
}

// Start initializes the Fiber server.
func (m *GatewayModule) Start(_ context.Context) error {
	if m.authContainer == nil {
		return fmt.Errorf("auth dependency not set")
	}
	if m.roomAdapter == nil {
		return fmt.Errorf("room dependency not set")
	}

	m.app = fiber.New(fiber.Config{
		AppName:               "chat-rooms",
		DisableStartupMessage: true,
		ErrorHandler:          customErrorHandler,
	})

	m.app.Use(recover.New())
	m.app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} ${method} ${path} ${latency}\n",
		Next: func(c *fiber.Ctx) bool {
			// Long-lived WebSocket upgrades would distort latencies.
			return c.Path() == "/ws"
		},
	}))

	allowedOrigins := os.Getenv("CORS_ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:3000,http://localhost:8080"
	}
	m.app.Use(cors.New(cors.Config{
		AllowOrigins: allowedOrigins,
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Content-Type,Authorization",
	}))

	m.setupRoutes()

	// Start server in goroutine with startup error detection
	errCh := make(chan error, 1)
	go func() {
		if err := m.app.Listen(m.addr); err != nil {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("HTTP server failed to start: %w", err)
	case <-time.After(100 * time.Millisecond):
	}

	log.Printf("[gateway] HTTP server started on %s", m.addr)
	return nil
}

// Stop shuts down the Fiber server.
func (m *GatewayModule) Stop(ctx context.Context) error {
	if m.app == nil {
		return nil
	}
	log.Println("[gateway] Shutting down HTTP server...")
	return m.app.ShutdownWithContext(ctx)
}

// Health returns the health status of the module.
func (m *GatewayModule) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: m.app != nil,
		Message: "operational",
		Details: map[string]any{
			"addr": m.addr,
		},
	}
}

// setupRoutes configures all HTTP and WebSocket routes.
func (m *GatewayModule) setupRoutes() {
	handlers := NewHandlers(m.authContainer, m.authAdapter, m.roomAdapter)

	m.app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"service": "chat-rooms",
		})
	})

	// WebSocket endpoint: authentication happens before the upgrade.
	m.app.Use("/ws", WSAuthMiddleware(m.authAdapter))
	ws := newWSGateway(m.sessionModule.Lifecycle())
	m.app.Get("/ws", websocket.New(ws.HandleWebSocket))

	v1 := m.app.Group("/api/v1")

	// Public auth routes
	authRoutes := v1.Group("/auth")
	authRoutes.Post("/register", handlers.Register)
	authRoutes.Post("/login", handlers.Login)
	authRoutes.Post("/refresh", handlers.Refresh)

	// Protected routes
	protected := v1.Group("")
	protected.Use(AuthMiddleware(m.authAdapter))
	protected.Post("/auth/logout", handlers.Logout)
	protected.Get("/profile", handlers.Profile)
	protected.Put("/password", handlers.ChangePassword)

	protected.Get("/rooms", handlers.ListRooms)
	protected.Post("/rooms", handlers.CreateRoom)
	protected.Get("/rooms/:id", handlers.GetRoom)
	protected.Put("/rooms/:id", handlers.UpdateRoom)
	protected.Delete("/rooms/:id", handlers.DeleteRoom)
	protected.Get("/rooms/:id/history", handlers.GetRoomHistory)
}

// customErrorHandler handles Fiber errors.
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(ErrorResponse{
		Error:   "server_error",
		Message: message,
	})
}
