package models

// Chat roles used in analytics conversations
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Attachment is an opaque structured object (type + payload) forwarded verbatim to the client
type Attachment map[string]interface{}

// ChatMessage represents a single message in an analytics chat reply
type ChatMessage struct {
	Role        string       `json:"role"` // "system", "user", "assistant"
	Content     string       `json:"content"`
	Attachments []Attachment `json:"attachments"`
}

// ChatRequest is the inbound body of the analytics chat endpoint
type ChatRequest struct {
	Persona   string                 `json:"persona"`
	Prompt    string                 `json:"prompt"`
	SessionID string                 `json:"sessionId,omitempty"`
	Language  string                 `json:"language,omitempty"`
	Context   map[string]interface{} `json:"context,omitempty"`
}

// ChatResponse is the composed analytics reply
type ChatResponse struct {
	Messages []ChatMessage `json:"messages"`
	Persona  string        `json:"persona"`
	Metadata *ChatMetadata `json:"metadata,omitempty"`
}

// ChatMetadata carries the session id, the resolved user and the assistant metadata
type ChatMetadata struct {
	SessionID string                 `json:"sessionId"`
	User      *PersonaUser           `json:"user"`
	MaaS      map[string]interface{} `json:"maas"`
}
