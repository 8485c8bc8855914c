package services

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
)

const sessionChannelPattern = "analytics:session:*:events"

// PubSubService relays session room events between instances through Redis
type PubSubService struct {
	redis      *RedisService
	pubsub     *redis.PubSub
	handlers   []MessageHandler
	mu         sync.RWMutex
	instanceID string
	ctx        context.Context
	cancel     context.CancelFunc
}

// MessageHandler is a callback for handling pub/sub messages
type MessageHandler func(channel string, message *PubSubMessage)

// PubSubMessage represents a session event sent via pub/sub
type PubSubMessage struct {
	Event      string                 `json:"event"` // Socket event name, e.g. "analytics:response"
	SessionID  string                 `json:"sessionId"`
	InstanceID string                 `json:"instanceId"` // Source instance ID
	Payload    map[string]interface{} `json:"payload"`
}

// NewPubSubService creates a new pub/sub service
func NewPubSubService(redisService *RedisService, instanceID string) *PubSubService {
	ctx, cancel := context.WithCancel(context.Background())
	return &PubSubService{
		redis:      redisService,
		instanceID: instanceID,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// OnSessionEvent registers a handler for events published by other instances
func (s *PubSubService) OnSessionEvent(handler MessageHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers = append(s.handlers, handler)
}

// Start begins listening for session events
func (s *PubSubService) Start() error {
	s.pubsub = s.redis.PSubscribe(s.ctx, sessionChannelPattern)

	// Wait for subscription confirmation
	if _, err := s.pubsub.Receive(s.ctx); err != nil {
		return err
	}

	go s.processMessages()

	log.Printf("✅ [PUBSUB] Started listening for session events (instance: %s)", s.instanceID)
	return nil
}

func (s *PubSubService) processMessages() {
	ch := s.pubsub.Channel()

	for {
		select {
		case <-s.ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			s.handleMessage(msg.Channel, []byte(msg.Payload))
		}
	}
}

func (s *PubSubService) handleMessage(channel string, payload []byte) {
	var message PubSubMessage
	if err := json.Unmarshal(payload, &message); err != nil {
		log.Printf("⚠️ [PUBSUB] Failed to unmarshal message: %v", err)
		return
	}

	// Skip messages from this instance (avoid loops)
	if message.InstanceID == s.instanceID {
		return
	}
	if !matchPattern(sessionChannelPattern, channel) {
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, handler := range s.handlers {
		handler(channel, &message)
	}
}

// PublishToSession publishes an event for every listener of a session room
func (s *PubSubService) PublishToSession(ctx context.Context, sessionID, event string, payload map[string]interface{}) error {
	message := &PubSubMessage{
		Event:      event,
		SessionID:  sessionID,
		InstanceID: s.instanceID,
		Payload:    payload,
	}

	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	return s.redis.Publish(ctx, sessionChannel(sessionID), data)
}

// Stop stops the pub/sub service
func (s *PubSubService) Stop() error {
	s.cancel()
	if s.pubsub != nil {
		return s.pubsub.Close()
	}
	return nil
}

func sessionChannel(sessionID string) string {
	return "analytics:session:" + sessionID + ":events"
}

// matchPattern checks if a channel matches a pattern where "*" matches one
// ":"-separated segment
func matchPattern(pattern, channel string) bool {
	if pattern == channel {
		return true
	}

	patternParts := strings.Split(pattern, ":")
	channelParts := strings.Split(channel, ":")
	if len(patternParts) != len(channelParts) {
		return false
	}

	for i, part := range patternParts {
		if part != "*" && part != channelParts[i] {
			return false
		}
	}
	return true
}
