package models

import (
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
)

// Session socket event names
const (
	EventRegisterSession = "register_session"
	EventLeaveSession    = "leave_session"
	EventStatus          = "analytics:status"
	EventError           = "analytics:error"
	EventResponse        = "analytics:response"
)

// SessionEvent is the envelope exchanged on the analytics session socket
type SessionEvent struct {
	Event string                 `json:"event"`
	Data  map[string]interface{} `json:"data,omitempty"`
}

// SessionConnection represents a single analytics socket connection
type SessionConnection struct {
	ConnID    string
	ClientIP  string
	Conn      *websocket.Conn
	CreatedAt time.Time
	WriteChan chan SessionEvent
	Mutex     sync.Mutex
	closed    bool
}

// SafeSend sends an event to WriteChan, returning false if the connection is closed or its buffer is full
func (sc *SessionConnection) SafeSend(evt SessionEvent) bool {
	sc.Mutex.Lock()
	defer sc.Mutex.Unlock()
	if sc.closed {
		return false
	}

	select {
	case sc.WriteChan <- evt:
		return true
	default:
		return false
	}
}

// Close marks the connection closed and releases the write channel
func (sc *SessionConnection) Close() {
	sc.Mutex.Lock()
	defer sc.Mutex.Unlock()
	if sc.closed {
		return
	}
	sc.closed = true
	close(sc.WriteChan)
}

// IsClosed returns true if the connection has been closed
func (sc *SessionConnection) IsClosed() bool {
	sc.Mutex.Lock()
	defer sc.Mutex.Unlock()
	return sc.closed
}
