package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/example/chat-rooms/modules/auth"
	"github.com/example/chat-rooms/modules/gateway"
	"github.com/example/chat-rooms/modules/room"
	"github.com/example/chat-rooms/modules/session"
	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"
)

const shutdownTimeout = 30 * time.Second

func main() {
	log.Println("=== Chat Rooms ===")

	// Create mono application
	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(shutdownTimeout),
		mono.WithLogLevel(mono.LogLevelInfo),
		mono.WithLogFormat(mono.LogFormatText),
	)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	// Register modules with the framework
	// Order: independent modules first, then dependent modules
	sessionModule := session.NewModule()

	app.Register(auth.NewModule()) // Independent module (provides auth services)
	app.Register(room.NewModule()) // Independent module (provides room services)
	app.Register(sessionModule)    // Depends on room module
	app.Register(gateway.NewModule(sessionModule)) // Depends on auth + room, serves the session lifecycle

	// Start application
	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	printStartupInfo()

	// Graceful shutdown
	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				return app.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
}

func printStartupInfo() {
	log.Println("")
	log.Println("Application started successfully!")
	log.Println("")
	log.Println("REST API Endpoints (http://localhost:3000):")
	log.Println("")
	log.Println("  Public Endpoints:")
	log.Println("  POST   /api/v1/auth/register       - Register a new user")
	log.Println("  POST   /api/v1/auth/login          - Login and get tokens")
	log.Println("  POST   /api/v1/auth/refresh        - Refresh access token")
	log.Println("  GET    /health                     - Health check")
	log.Println("")
	log.Println("  Protected Endpoints (require Bearer token):")
	log.Println("  POST   /api/v1/auth/logout         - Revoke tokens")
	log.Println("  GET    /api/v1/profile             - Get current user profile")
	log.Println("  PUT    /api/v1/password            - Change password")
	log.Println("  GET    /api/v1/rooms               - List rooms")
	log.Println("  POST   /api/v1/rooms               - Create a room")
	log.Println("  GET    /api/v1/rooms/:id           - Get a room")
	log.Println("  PUT    /api/v1/rooms/:id           - Rename a room (creator only)")
	log.Println("  DELETE /api/v1/rooms/:id           - Delete a room (creator only)")
	log.Println("  GET    /api/v1/rooms/:id/history   - Room message history")
	log.Println("")
	log.Println("  WebSocket:")
	log.Println("  GET    /ws?token=<access token>    - Realtime chat connection")
	log.Println("")
	log.Println("Press Ctrl+C to shutdown gracefully")
}
