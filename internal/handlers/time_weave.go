package handlers

import (
	"encoding/json"
	"log"
	"time"

	"github.com/gofiber/contrib/websocket"
)

const timeWeaveEchoDelay = 100 * time.Millisecond

// TimeWeaveHandler serves the Time-Weave echo stream
type TimeWeaveHandler struct {
	now func() time.Time
}

// NewTimeWeaveHandler creates a new Time-Weave handler
func NewTimeWeaveHandler() *TimeWeaveHandler {
	return &TimeWeaveHandler{now: time.Now}
}

// Handle greets the client and echoes every frame back with a timestamp
func (h *TimeWeaveHandler) Handle(c *websocket.Conn) {
	if err := c.WriteJSON(h.welcome()); err != nil {
		return
	}

	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			return
		}
		if err := c.WriteJSON(h.echo(data)); err != nil {
			log.Printf("⚠️  [TIME-WEAVE] Write failed: %v", err)
			return
		}
		time.Sleep(timeWeaveEchoDelay)
	}
}

func (h *TimeWeaveHandler) welcome() map[string]interface{} {
	return map[string]interface{}{
		"type":      "welcome",
		"message":   "Connected to Time-Weave stream.",
		"timestamp": h.timestamp(),
	}
}

// echo decodes data as JSON. Empty frames echo {} and undecodable frames echo {"raw": text}.
func (h *TimeWeaveHandler) echo(data []byte) map[string]interface{} {
	var received interface{}
	if len(data) == 0 {
		received = map[string]interface{}{}
	} else if err := json.Unmarshal(data, &received); err != nil {
		received = map[string]interface{}{"raw": string(data)}
	}
	return map[string]interface{}{
		"type":      "echo",
		"received":  received,
		"timestamp": h.timestamp(),
	}
}

func (h *TimeWeaveHandler) timestamp() string {
	return h.now().UTC().Format("2006-01-02T15:04:05.000000Z")
}
