package maas

import (
	"strings"
	"unicode"

	"aeterna/internal/config"
	"aeterna/internal/models"
)

// AssistantConfig describes the assistant wanted for one persona. Built per request.
type AssistantConfig struct {
	Persona            string
	Instructions       string
	Language           string
	Description        string
	Tags               []string
	KnowledgeDocuments []map[string]interface{}
}

// QueryRequest is one conversational turn sent to a persona's assistant
type QueryRequest struct {
	Persona      string
	Prompt       string
	SessionID    string
	Instructions string
	Language     string
	Attachments  []models.Attachment
	Context      map[string]interface{}
}

// QueryResult is the assistant's reply. Metadata always says whether mock mode answered.
type QueryResult struct {
	Messages []models.ChatMessage
	Metadata map[string]interface{}
}

// Endpoints locates the tenant-scoped assistant APIs and the scopes they need
type Endpoints struct {
	BaseURL            string
	TenantID           string
	KnowledgeBaseScope string
	AssistantScope     string
	ServiceScope       string
}

// EndpointsFromConfig maps the MaaS configuration block
func EndpointsFromConfig(cfg config.MaaSConfig) Endpoints {
	return Endpoints{
		BaseURL:            cfg.BaseURL,
		TenantID:           cfg.TenantID,
		KnowledgeBaseScope: cfg.KnowledgeBaseScope,
		AssistantScope:     cfg.AssistantScope,
		ServiceScope:       cfg.ServiceScope,
	}
}

func (e Endpoints) tenantURL(path string) string {
	return strings.TrimRight(e.BaseURL, "/") + "/tenants/" + e.TenantID + path
}

// KnowledgeBasesURL is where knowledge bases are created
func (e Endpoints) KnowledgeBasesURL() string {
	return e.tenantURL("/knowledge-bases")
}

// AssistantsURL is where assistants are created
func (e Endpoints) AssistantsURL() string {
	return e.tenantURL("/assistant-manage/assistants")
}

// QueryURL is where assistants are queried
func (e Endpoints) QueryURL() string {
	return e.tenantURL("/assistant-service/assistants/query")
}

// titleCase upper-cases the first letter of every word and lower-cases the rest
func titleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToUpper(r))
			}
			prevLetter = true
			continue
		}
		b.WriteRune(r)
		prevLetter = false
	}
	return b.String()
}
