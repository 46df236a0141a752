package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	domain "github.com/example/chat-rooms/domain/user"
	"github.com/example/chat-rooms/modules/auth"
	"github.com/example/chat-rooms/modules/session"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// authTimeout bounds token verification during the handshake. A timeout
// closes the connection before it ever enters the session registry.
const authTimeout = 10 * time.Second

// outboundBuffer is the per-connection envelope queue size. A full
// queue drops envelopes; delivery is best-effort.
const outboundBuffer = 64

// WSAuthMiddleware authenticates the WebSocket handshake before the
// upgrade. The token comes from the Authorization header or the "token"
// query parameter; rejection happens before any event handler runs.
func WSAuthMiddleware(authAdapter auth.AuthPort) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}

		token := strings.TrimPrefix(c.Get("Authorization"), "Bearer ")
		if token == "" {
			token = c.Query("token")
		}
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
				Error:   "unauthorized",
				Message: "Authentication token is required",
			})
		}

		ctx, cancel := context.WithTimeout(c.UserContext(), authTimeout)
		defer cancel()

		claims, err := authAdapter.ValidateToken(ctx, token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
				Error:   "unauthorized",
				Message: "Invalid or expired token",
			})
		}

		c.Locals(UserContextKey, claims)
		return c.Next()
	}
}

// wsClient adapts one WebSocket connection to the session.Sink
// interface. A dedicated writer goroutine serializes all outbound
// envelopes, so delivery to a single connection preserves send order.
type wsClient struct {
	conn      *websocket.Conn
	out       chan session.Envelope
	done      chan struct{}
	closeOnce sync.Once
	logger    *slog.Logger
}

func newWSClient(conn *websocket.Conn, logger *slog.Logger) *wsClient {
	return &wsClient{
		conn:   conn,
		out:    make(chan session.Envelope, outboundBuffer),
		done:   make(chan struct{}),
		logger: logger,
	}
}

// Send queues an envelope for delivery. It never blocks: a full queue
// or a closed connection drops the envelope and reports false.
func (c *wsClient) Send(env session.Envelope) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.out <- env:
		return true
	default:
		return false
	}
}

// writeLoop drains the outbound queue onto the socket.
func (c *wsClient) writeLoop() {
	for {
		select {
		case <-c.done:
			return
		case env := <-c.out:
			data, err := json.Marshal(env)
			if err != nil {
				c.logger.Error("Failed to marshal envelope", "event", env.Event, "error", err)
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Error("Failed to write to WebSocket", "event", env.Event, "error", err)
				return
			}
		}
	}
}

// close shuts down the writer and the underlying socket.
func (c *wsClient) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// inboundMessage frames a client request: a named event plus its raw
// payload.
type inboundMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// wsGateway handles authenticated WebSocket sessions.
type wsGateway struct {
	lifecycle *session.Lifecycle
	logger    *slog.Logger
}

func newWSGateway(lifecycle *session.Lifecycle) *wsGateway {
	return &wsGateway{
		lifecycle: lifecycle,
		logger:    slog.Default(),
	}
}

// HandleWebSocket drives one connection: register, dispatch inbound
// events, deregister exactly once on any exit path.
func (g *wsGateway) HandleWebSocket(conn *websocket.Conn) {
	claims, ok := conn.Locals(UserContextKey).(*domain.Claims)
	if !ok {
		// The auth middleware guarantees claims; close defensively.
		conn.Close()
		return
	}

	connID := uuid.New().String()
	client := newWSClient(conn, g.logger)
	go client.writeLoop()

	ctx := context.Background()
	g.lifecycle.HandleConnect(ctx, connID, claims.UserID, claims.Username, client)

	defer func() {
		g.lifecycle.HandleDisconnect(ctx, connID)
		client.close()
	}()

	for {
		_, msgBytes, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				g.logger.Error("WebSocket error", "connID", connID, "error", err)
			}
			return
		}

		var msg inboundMessage
		if err := json.Unmarshal(msgBytes, &msg); err != nil {
			g.sendError(client, session.NewError(session.CodeValidationError, "invalid message format"))
			continue
		}

		g.dispatch(ctx, connID, client, msg)
	}
}

// decodePayload unmarshals an inbound payload. An absent payload decodes
// to the zero value so field-level validation reports the missing data.
func decodePayload(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

// dispatch routes one inbound event to the lifecycle handler.
func (g *wsGateway) dispatch(ctx context.Context, connID string, client *wsClient, msg inboundMessage) {
	switch msg.Event {
	case session.EventJoinRoom:
		var payload session.JoinRoomPayload
		if err := decodePayload(msg.Data, &payload); err != nil {
			g.sendError(client, session.NewError(session.CodeValidationError, "invalid join-room payload"))
			return
		}
		if cerr := g.lifecycle.JoinRoom(ctx, connID, payload.RoomID); cerr != nil {
			g.sendError(client, cerr)
		}

	case session.EventLeaveRoom:
		var payload session.JoinRoomPayload
		if err := decodePayload(msg.Data, &payload); err != nil {
			g.sendError(client, session.NewError(session.CodeValidationError, "invalid leave-room payload"))
			return
		}
		if cerr := g.lifecycle.LeaveRoom(ctx, connID, payload.RoomID); cerr != nil {
			g.sendError(client, cerr)
		}

	case session.EventSendMessage:
		var payload session.SendMessagePayload
		if err := decodePayload(msg.Data, &payload); err != nil {
			g.sendError(client, session.NewError(session.CodeValidationError, "invalid send-message payload"))
			return
		}
		if cerr := g.lifecycle.SendMessage(ctx, connID, payload.RoomID, payload.Content); cerr != nil {
			g.sendError(client, cerr)
		}

	case session.EventGetRoomParticipants:
		var payload session.GetParticipantsPayload
		if err := decodePayload(msg.Data, &payload); err != nil {
			g.sendError(client, session.NewError(session.CodeValidationError, "invalid get-room-participants payload"))
			return
		}
		if cerr := g.lifecycle.GetParticipants(ctx, connID, payload.RoomID); cerr != nil {
			g.sendError(client, cerr)
		}

	default:
		g.sendError(client, session.NewError(session.CodeValidationError, "unknown event: "+msg.Event))
	}
}

// sendError delivers an error envelope to the requester only.
func (g *wsGateway) sendError(client *wsClient, cerr *session.Error) {
	client.Send(session.Envelope{
		Event: session.EventError,
		Data:  cerr.Payload(),
	})
}
