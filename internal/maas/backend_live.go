package maas

import (
	"context"
	"fmt"
	"net/http"

	"aeterna/internal/camara"
	"aeterna/internal/models"
)

type liveBackend struct {
	transport camara.Transport
	endpoints Endpoints
}

func (b *liveBackend) createKnowledgeBase(ctx context.Context, cfg AssistantConfig) (string, error) {
	description := cfg.Description
	if description == "" {
		description = fmt.Sprintf("Curated cultural analytics corpus for %s.", cfg.Persona)
	}
	documents := cfg.KnowledgeDocuments
	if documents == nil {
		documents = []map[string]interface{}{}
	}

	payload := map[string]interface{}{
		"name":        cfg.Persona + "-heritage-kb",
		"description": description,
		"language":    cfg.Language,
		"documents":   documents,
	}
	resp, err := b.transport.Request(ctx, camara.RequestContext{
		Method: http.MethodPost,
		URL:    b.endpoints.KnowledgeBasesURL(),
		Scope:  b.endpoints.KnowledgeBaseScope,
	}, payload)
	if err != nil {
		return "", fmt.Errorf("create knowledge base for %s: %w", cfg.Persona, err)
	}
	return resourceID(resp, "create knowledge base", "knowledge base creation failed: missing id")
}

func (b *liveBackend) createAssistant(ctx context.Context, cfg AssistantConfig, knowledgeBaseID string) (string, error) {
	description := cfg.Description
	if description == "" {
		description = "Adaptive MaaS-powered guide for Echoes of Eternity AR analytics."
	}
	tags := cfg.Tags
	if len(tags) == 0 {
		tags = []string{"echoes-of-eternity", "time-weave", cfg.Persona}
	}

	payload := map[string]interface{}{
		"name":             titleCase(cfg.Persona) + " Time-Weave Assistant",
		"description":      description,
		"instructions":     cfg.Instructions,
		"language":         cfg.Language,
		"knowledgeBaseIds": []string{knowledgeBaseID},
		"tags":             tags,
	}
	resp, err := b.transport.Request(ctx, camara.RequestContext{
		Method: http.MethodPost,
		URL:    b.endpoints.AssistantsURL(),
		Scope:  b.endpoints.AssistantScope,
	}, payload)
	if err != nil {
		return "", fmt.Errorf("create assistant for %s: %w", cfg.Persona, err)
	}
	return resourceID(resp, "create assistant", "assistant creation failed: missing id")
}

func (b *liveBackend) query(ctx context.Context, assistantID string, req QueryRequest) (QueryResult, error) {
	queryContext := req.Context
	if queryContext == nil {
		queryContext = map[string]interface{}{}
	}
	attachments := req.Attachments
	if attachments == nil {
		attachments = []models.Attachment{}
	}

	payload := map[string]interface{}{
		"assistantId": assistantID,
		"sessionId":   req.SessionID,
		"query":       req.Prompt,
		"language":    req.Language,
		"context":     queryContext,
		"attachments": attachments,
	}
	resp, err := b.transport.Request(ctx, camara.RequestContext{
		Method: http.MethodPost,
		URL:    b.endpoints.QueryURL(),
		Scope:  b.endpoints.ServiceScope,
	}, payload)
	if err != nil {
		return QueryResult{}, fmt.Errorf("query assistant %s: %w", assistantID, err)
	}

	body := asMap(resp)
	result := QueryResult{Metadata: asMap(body["metadata"])}
	if result.Metadata == nil {
		result.Metadata = map[string]interface{}{}
	}

	for _, raw := range asSlice(body["messages"]) {
		msg := asMap(raw)
		result.Messages = append(result.Messages, models.ChatMessage{
			Role:        stringOr(msg["role"], models.RoleAssistant),
			Content:     stringOr(msg["content"], ""),
			Attachments: toAttachments(msg["attachments"]),
		})
	}
	return result, nil
}

// resourceID extracts the id of a freshly created resource
func resourceID(resp interface{}, op, message string) (string, error) {
	if id := stringOr(asMap(resp)["id"], ""); id != "" {
		return id, nil
	}
	return "", &camara.Error{Kind: camara.KindResourceCreation, Op: op, Message: message}
}

func toAttachments(v interface{}) []models.Attachment {
	items := asSlice(v)
	if items == nil {
		return nil
	}
	out := make([]models.Attachment, 0, len(items))
	for _, item := range items {
		if m := asMap(item); m != nil {
			out = append(out, models.Attachment(m))
		}
	}
	return out
}
