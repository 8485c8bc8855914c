package services

import (
	"aeterna/internal/metrics"
	"aeterna/internal/models"
	"context"
	"log"
	"sync"
)

// SessionPublisher relays room events to other server instances
type SessionPublisher interface {
	PublishToSession(ctx context.Context, sessionID, event string, payload map[string]interface{}) error
}

// RoomName returns the socket room that listens for a session's events
func RoomName(sessionID string) string {
	return "analytics-session-" + sessionID
}

// SessionHub manages analytics socket connections and their session rooms
type SessionHub struct {
	connections map[string]*models.SessionConnection
	rooms       map[string]map[string]struct{} // room -> connIDs
	memberships map[string]map[string]struct{} // connID -> rooms
	publisher   SessionPublisher
	metrics     *metrics.Metrics
	mutex       sync.RWMutex
}

// NewSessionHub creates an empty hub
func NewSessionHub(m *metrics.Metrics) *SessionHub {
	return &SessionHub{
		connections: make(map[string]*models.SessionConnection),
		rooms:       make(map[string]map[string]struct{}),
		memberships: make(map[string]map[string]struct{}),
		metrics:     m,
	}
}

// SetPublisher enables cross-instance fan-out of broadcasts
func (h *SessionHub) SetPublisher(p SessionPublisher) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.publisher = p
}

// Add registers a new connection
func (h *SessionHub) Add(conn *models.SessionConnection) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.connections[conn.ConnID] = conn
	h.metrics.RecordSocketConnect()
	log.Printf("✅ Session socket added: %s (Total: %d)", conn.ConnID, len(h.connections))
}

// Remove drops a connection and every room membership it held
func (h *SessionHub) Remove(connID string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	conn, exists := h.connections[connID]
	if !exists {
		return
	}
	for room := range h.memberships[connID] {
		h.dropMemberLocked(room, connID)
	}
	delete(h.memberships, connID)
	delete(h.connections, connID)
	conn.Close()
	h.metrics.RecordSocketDisconnect()
	log.Printf("❌ Session socket removed: %s (Total: %d)", connID, len(h.connections))
}

// Get retrieves a connection by ID
func (h *SessionHub) Get(connID string) (*models.SessionConnection, bool) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	conn, exists := h.connections[connID]
	return conn, exists
}

// Count returns the number of active connections
func (h *SessionHub) Count() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.connections)
}

// Join adds a connection to the session's room. Joining twice is a no-op.
func (h *SessionHub) Join(connID, sessionID string) bool {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if _, exists := h.connections[connID]; !exists {
		return false
	}
	room := RoomName(sessionID)
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[string]struct{})
		h.rooms[room] = members
	}
	members[connID] = struct{}{}

	joined, ok := h.memberships[connID]
	if !ok {
		joined = make(map[string]struct{})
		h.memberships[connID] = joined
	}
	joined[room] = struct{}{}
	return true
}

// Leave removes a connection from the session's room
func (h *SessionHub) Leave(connID, sessionID string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	room := RoomName(sessionID)
	h.dropMemberLocked(room, connID)
	if joined, ok := h.memberships[connID]; ok {
		delete(joined, room)
	}
}

func (h *SessionHub) dropMemberLocked(room, connID string) {
	members, ok := h.rooms[room]
	if !ok {
		return
	}
	delete(members, connID)
	if len(members) == 0 {
		delete(h.rooms, room)
	}
}

// RoomSize returns how many local connections listen to a session
func (h *SessionHub) RoomSize(sessionID string) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.rooms[RoomName(sessionID)])
}

// Emit sends an event to a single connection
func (h *SessionHub) Emit(connID string, evt models.SessionEvent) bool {
	conn, ok := h.Get(connID)
	if !ok {
		return false
	}
	if !conn.SafeSend(evt) {
		return false
	}
	h.metrics.RecordSocketEvent(evt.Event, "outbound")
	return true
}

// Broadcast delivers an event to the session's local room and relays it to
// other instances when a publisher is configured. Returns the local delivery count.
func (h *SessionHub) Broadcast(ctx context.Context, sessionID string, evt models.SessionEvent) int {
	delivered := h.deliver(sessionID, evt)

	h.mutex.RLock()
	publisher := h.publisher
	h.mutex.RUnlock()

	if publisher != nil {
		if err := publisher.PublishToSession(ctx, sessionID, evt.Event, evt.Data); err != nil {
			log.Printf("⚠️  [HUB] Failed to publish %s for session %s: %v", evt.Event, sessionID, err)
		}
	}
	return delivered
}

// HandleRemote delivers an event relayed from another instance to local listeners
func (h *SessionHub) HandleRemote(_ string, message *PubSubMessage) {
	h.deliver(message.SessionID, models.SessionEvent{Event: message.Event, Data: message.Payload})
}

func (h *SessionHub) deliver(sessionID string, evt models.SessionEvent) int {
	h.mutex.RLock()
	members := h.rooms[RoomName(sessionID)]
	targets := make([]*models.SessionConnection, 0, len(members))
	for connID := range members {
		if conn, ok := h.connections[connID]; ok {
			targets = append(targets, conn)
		}
	}
	h.mutex.RUnlock()

	delivered := 0
	for _, conn := range targets {
		if conn.SafeSend(evt) {
			delivered++
			h.metrics.RecordSocketEvent(evt.Event, "outbound")
		}
	}
	return delivered
}
