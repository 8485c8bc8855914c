package handlers

import (
	"aeterna/internal/models"
	"aeterna/internal/services"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
)

const (
	socketReadTimeout  = 120 * time.Second
	socketPingInterval = 30 * time.Second
)

// SessionSocketHandler serves the analytics session socket. Clients join the
// room of a chat session and receive every reply composed for it.
type SessionSocketHandler struct {
	hub *services.SessionHub
}

// NewSessionSocketHandler creates a new session socket handler
func NewSessionSocketHandler(hub *services.SessionHub) *SessionSocketHandler {
	return &SessionSocketHandler{hub: hub}
}

// Handle handles a new analytics socket connection
func (h *SessionSocketHandler) Handle(c *websocket.Conn) {
	connID := uuid.New().String()
	clientIP, _ := c.Locals("client_ip").(string)

	// Create a done channel to signal goroutines to stop
	done := make(chan struct{})
	var writeMu sync.Mutex

	conn := &models.SessionConnection{
		ConnID:    connID,
		ClientIP:  clientIP,
		Conn:      c,
		CreatedAt: time.Now(),
		WriteChan: make(chan models.SessionEvent, 64),
	}

	h.hub.Add(conn)
	defer func() {
		close(done)
		h.hub.Remove(connID)
	}()

	c.SetReadDeadline(time.Now().Add(socketReadTimeout))
	c.SetPongHandler(func(string) error {
		c.SetReadDeadline(time.Now().Add(socketReadTimeout))
		return nil
	})

	go h.pingLoop(conn, &writeMu, done)
	go h.writeLoop(conn, &writeMu)

	h.hub.Emit(connID, statusEvent(map[string]interface{}{
		"message": "Socket connected",
		"sid":     connID,
	}))

	h.readLoop(conn)
}

// pingLoop sends periodic pings to keep the connection alive
func (h *SessionSocketHandler) pingLoop(conn *models.SessionConnection, writeMu *sync.Mutex, done <-chan struct{}) {
	ticker := time.NewTicker(socketPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			writeMu.Lock()
			err := conn.Conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(10*time.Second))
			writeMu.Unlock()
			if err != nil {
				log.Printf("⚠️ Ping failed for %s: %v", conn.ConnID, err)
				return
			}
		}
	}
}

// writeLoop drains the connection's outbound queue until it is closed
func (h *SessionSocketHandler) writeLoop(conn *models.SessionConnection, writeMu *sync.Mutex) {
	for evt := range conn.WriteChan {
		writeMu.Lock()
		err := conn.Conn.WriteJSON(evt)
		writeMu.Unlock()
		if err != nil {
			log.Printf("❌ Session socket write error for %s: %v", conn.ConnID, err)
			return
		}
	}
}

// readLoop handles incoming events from the client
func (h *SessionSocketHandler) readLoop(conn *models.SessionConnection) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("❌ Panic in session socket readLoop: %v", r)
		}
	}()

	for {
		_, msg, err := conn.Conn.ReadMessage()
		if err != nil {
			break
		}
		conn.Conn.SetReadDeadline(time.Now().Add(socketReadTimeout))

		var evt models.SessionEvent
		if err := json.Unmarshal(msg, &evt); err != nil {
			log.Printf("⚠️  Invalid session event from %s: %v", conn.ConnID, err)
			h.hub.Emit(conn.ConnID, errorEvent("Invalid message format"))
			continue
		}
		h.dispatch(context.Background(), conn.ConnID, evt)
	}
}

// dispatch applies one client event to the hub
func (h *SessionSocketHandler) dispatch(ctx context.Context, connID string, evt models.SessionEvent) {
	switch evt.Event {
	case models.EventRegisterSession:
		sessionID := sessionIDFrom(evt.Data)
		if sessionID == "" {
			h.hub.Emit(connID, errorEvent("Missing sessionId for registration."))
			return
		}
		h.hub.Join(connID, sessionID)
		h.hub.Broadcast(ctx, sessionID, statusEvent(map[string]interface{}{
			"message":   "Session registered",
			"sessionId": sessionID,
		}))
	case models.EventLeaveSession:
		sessionID := sessionIDFrom(evt.Data)
		if sessionID == "" {
			return
		}
		h.hub.Leave(connID, sessionID)
		h.hub.Emit(connID, statusEvent(map[string]interface{}{
			"message":   "Session left",
			"sessionId": sessionID,
		}))
	case "ping":
		h.hub.Emit(connID, models.SessionEvent{Event: "pong"})
	default:
		log.Printf("⚠️  Unknown session event: %s", evt.Event)
	}
}

func sessionIDFrom(data map[string]interface{}) string {
	switch v := data["sessionId"].(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

func statusEvent(data map[string]interface{}) models.SessionEvent {
	return models.SessionEvent{Event: models.EventStatus, Data: data}
}

func errorEvent(message string) models.SessionEvent {
	return models.SessionEvent{Event: models.EventError, Data: map[string]interface{}{"message": message}}
}
