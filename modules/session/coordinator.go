package session

import (
	"context"
	"log"
	"sort"

	chat "github.com/example/chat-rooms/domain/chat"
)

// Sink delivers envelopes to one connection. Send reports whether the
// envelope was accepted; a full or closed sink drops the envelope.
// Envelopes accepted by the same sink are delivered in send order.
type Sink interface {
	Send(env Envelope) bool
}

// connState is the per-connection record owned by the coordinator.
type connState struct {
	id       string
	userID   string
	username string
	roomID   string // empty when not in a room
	sink     Sink
}

// sessionEntry is the per-user registry record. With multiple live
// connections for one user the entry tracks the most recent one.
type sessionEntry struct {
	connID   string
	username string
	roomID   string
}

// ConnInfo is a read-only snapshot of a connection's state.
type ConnInfo struct {
	UserID   string
	Username string
	RoomID   string
}

// LeaveResult describes the outcome of removing a connection from a room.
type LeaveResult struct {
	RoomID   string
	UserID   string
	Username string
	// UserGone is true when this was the user's last connection in the
	// room, so the user dropped out of the participant set.
	UserGone bool
	// Participants is the room snapshot after the leave.
	Participants []chat.Participant
}

// JoinResult describes the outcome of adding a connection to a room.
type JoinResult struct {
	// Left is non-nil when the connection was in a room before and had
	// to leave it first. Joining the same room again also re-triggers
	// the leave, mirroring a room switch.
	Left *LeaveResult
	// FirstForUser is true when this join added the user to the
	// participant set (no other connection of the user was in the room).
	FirstForUser bool
	UserID       string
	Username     string
	// Participants is the room snapshot after the join.
	Participants []chat.Participant
}

// Coordinator owns the session registry, the room participant index and
// the per-room transport groups. All state lives on a single goroutine;
// callers submit closures over a command channel and block until the
// closure has run. This keeps every mutation sequential without locks.
type Coordinator struct {
	commands chan func()
	done     chan struct{}
	stopped  chan struct{}

	conns     map[string]*connState            // connID -> state
	users     map[string]*sessionEntry         // userID -> registry entry
	userConns map[string]map[string]struct{}   // userID -> live connIDs
	groups    map[string]map[string]*connState // roomID -> connID -> state
	members   map[string]map[string]int        // roomID -> userID -> conn count
}

// NewCoordinator creates a stopped coordinator; call Run to start it.
func NewCoordinator() *Coordinator {
	return &Coordinator{
		commands:  make(chan func(), 64),
		done:      make(chan struct{}),
		stopped:   make(chan struct{}),
		conns:     make(map[string]*connState),
		users:     make(map[string]*sessionEntry),
		userConns: make(map[string]map[string]struct{}),
		groups:    make(map[string]map[string]*connState),
		members:   make(map[string]map[string]int),
	}
}

// Run executes commands until the context is cancelled.
func (c *Coordinator) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			log.Println("[session] Coordinator shutting down...")
			close(c.done)
			// Drain commands submitted before shutdown was observed.
			for {
				select {
				case cmd := <-c.commands:
					cmd()
				default:
					close(c.stopped)
					return
				}
			}
		case cmd := <-c.commands:
			cmd()
		}
	}
}

// Wait blocks until the coordinator has stopped.
func (c *Coordinator) Wait() {
	<-c.stopped
}

// exec runs fn on the coordinator goroutine and blocks until it has
// completed. It reports false when the coordinator is shut down.
func (c *Coordinator) exec(fn func()) bool {
	ran := make(chan struct{})
	cmd := func() {
		fn()
		close(ran)
	}
	select {
	case c.commands <- cmd:
	case <-c.done:
		return false
	}
	select {
	case <-ran:
		return true
	case <-c.done:
		// The drain loop still runs queued commands.
		<-ran
		return true
	}
}

// Connect registers an authenticated connection with no current room.
func (c *Coordinator) Connect(connID, userID, username string, sink Sink) bool {
	return c.exec(func() {
		c.conns[connID] = &connState{
			id:       connID,
			userID:   userID,
			username: username,
			sink:     sink,
		}
		if c.userConns[userID] == nil {
			c.userConns[userID] = make(map[string]struct{})
		}
		c.userConns[userID][connID] = struct{}{}
		// Last connection wins the registry entry.
		c.users[userID] = &sessionEntry{connID: connID, username: username}
	})
}

// Disconnect removes a connection. When the connection was in a room the
// returned LeaveResult describes the implicit leave; it is nil otherwise.
func (c *Coordinator) Disconnect(connID string) (*LeaveResult, bool) {
	var left *LeaveResult
	var found bool
	ok := c.exec(func() {
		conn, exists := c.conns[connID]
		if !exists {
			return
		}
		found = true
		if conn.roomID != "" {
			left = c.removeFromRoom(conn)
		}
		delete(c.conns, connID)
		if set := c.userConns[conn.userID]; set != nil {
			delete(set, connID)
			if len(set) == 0 {
				delete(c.userConns, conn.userID)
			}
		}
		c.repointRegistry(conn.userID, connID)
	})
	if !ok {
		return nil, false
	}
	return left, found
}

// repointRegistry keeps the per-user registry entry consistent after the
// connection it was derived from goes away.
func (c *Coordinator) repointRegistry(userID, closedConnID string) {
	entry, ok := c.users[userID]
	if !ok || entry.connID != closedConnID {
		return
	}
	for otherID := range c.userConns[userID] {
		other := c.conns[otherID]
		c.users[userID] = &sessionEntry{
			connID:   other.id,
			username: other.username,
			roomID:   other.roomID,
		}
		return
	}
	delete(c.users, userID)
}

// Join moves a connection into a room, leaving its previous room first.
// At most one room per connection holds at all times.
func (c *Coordinator) Join(connID, roomID string) (JoinResult, *Error) {
	var res JoinResult
	var cerr *Error
	ok := c.exec(func() {
		conn, exists := c.conns[connID]
		if !exists {
			cerr = NewError(CodeInternal, "unknown connection")
			return
		}
		if conn.roomID != "" {
			res.Left = c.removeFromRoom(conn)
		}

		if c.groups[roomID] == nil {
			c.groups[roomID] = make(map[string]*connState)
		}
		c.groups[roomID][connID] = conn
		conn.roomID = roomID

		if c.members[roomID] == nil {
			c.members[roomID] = make(map[string]int)
		}
		c.members[roomID][conn.userID]++
		res.FirstForUser = c.members[roomID][conn.userID] == 1
		res.UserID = conn.userID
		res.Username = conn.username
		c.syncRegistry(conn)
		res.Participants = c.snapshot(roomID)
	})
	if !ok {
		return JoinResult{}, NewError(CodeInternal, "session coordinator stopped")
	}
	return res, cerr
}

// Leave removes a connection from the given room.
func (c *Coordinator) Leave(connID, roomID string) (*LeaveResult, *Error) {
	var left *LeaveResult
	var cerr *Error
	ok := c.exec(func() {
		conn, exists := c.conns[connID]
		if !exists {
			cerr = NewError(CodeInternal, "unknown connection")
			return
		}
		if conn.roomID == "" || conn.roomID != roomID {
			cerr = NewError(CodeNotInRoom, "you are not in this room")
			return
		}
		left = c.removeFromRoom(conn)
	})
	if !ok {
		return nil, NewError(CodeInternal, "session coordinator stopped")
	}
	return left, cerr
}

// removeFromRoom detaches conn from its current room and returns the
// teardown outcome. Must run on the coordinator goroutine.
func (c *Coordinator) removeFromRoom(conn *connState) *LeaveResult {
	roomID := conn.roomID

	if group := c.groups[roomID]; group != nil {
		delete(group, conn.id)
		if len(group) == 0 {
			delete(c.groups, roomID)
		}
	}
	conn.roomID = ""

	userGone := false
	if counts := c.members[roomID]; counts != nil {
		counts[conn.userID]--
		if counts[conn.userID] <= 0 {
			delete(counts, conn.userID)
			userGone = true
		}
		if len(counts) == 0 {
			delete(c.members, roomID)
		}
	}
	c.syncRegistry(conn)

	return &LeaveResult{
		RoomID:       roomID,
		UserID:       conn.userID,
		Username:     conn.username,
		UserGone:     userGone,
		Participants: c.snapshot(roomID),
	}
}

// syncRegistry refreshes the user's registry entry when it is derived
// from this connection. No stale room ID may survive a room switch.
func (c *Coordinator) syncRegistry(conn *connState) {
	if entry, ok := c.users[conn.userID]; ok && entry.connID == conn.id {
		entry.roomID = conn.roomID
	}
}

// snapshot builds the participant list of a room. Members without a live
// registry entry are silently excluded. Must run on the coordinator
// goroutine.
func (c *Coordinator) snapshot(roomID string) []chat.Participant {
	counts := c.members[roomID]
	participants := make([]chat.Participant, 0, len(counts))
	for userID := range counts {
		entry, ok := c.users[userID]
		if !ok {
			continue
		}
		participants = append(participants, chat.Participant{
			UserID:   userID,
			Username: entry.username,
			IsOnline: true,
		})
	}
	sort.Slice(participants, func(i, j int) bool {
		return participants[i].Username < participants[j].Username
	})
	return participants
}

// Participants returns the current snapshot of a room.
func (c *Coordinator) Participants(roomID string) []chat.Participant {
	var participants []chat.Participant
	c.exec(func() {
		participants = c.snapshot(roomID)
	})
	return participants
}

// ConnInfo returns a snapshot of a connection's state.
func (c *Coordinator) ConnInfo(connID string) (ConnInfo, bool) {
	var info ConnInfo
	var found bool
	c.exec(func() {
		conn, exists := c.conns[connID]
		if !exists {
			return
		}
		found = true
		info = ConnInfo{
			UserID:   conn.userID,
			Username: conn.username,
			RoomID:   conn.roomID,
		}
	})
	return info, found
}

// Broadcast delivers an envelope to every connection in the room except
// excludeConnID (pass "" to include everyone). Delivery is best-effort;
// it returns the number of sinks that accepted the envelope.
func (c *Coordinator) Broadcast(roomID string, env Envelope, excludeConnID string) int {
	delivered := 0
	c.exec(func() {
		for connID, conn := range c.groups[roomID] {
			if connID == excludeConnID {
				continue
			}
			if conn.sink.Send(env) {
				delivered++
			} else {
				log.Printf("[session] Dropped %s event for connection %s", env.Event, connID)
			}
		}
	})
	return delivered
}

// SendTo delivers an envelope to a single connection.
func (c *Coordinator) SendTo(connID string, env Envelope) bool {
	sent := false
	c.exec(func() {
		if conn, exists := c.conns[connID]; exists {
			sent = conn.sink.Send(env)
		}
	})
	return sent
}

// Stats reports connection and occupied-room counts.
func (c *Coordinator) Stats() (conns, rooms int) {
	c.exec(func() {
		conns = len(c.conns)
		rooms = len(c.members)
	})
	return conns, rooms
}
