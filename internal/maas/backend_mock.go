package maas

import (
	"context"
	"fmt"
	"strings"

	"aeterna/internal/models"
)

const promptEchoLimit = 400

var mockTones = map[string]string{
	"priya": "empathetic",
	"jax":   "enthusiastic",
	"lena":  "scholarly",
	"mike":  "operational",
}

// mockBackend fabricates deterministic ids and canned replies without any transport call.
type mockBackend struct{}

func (mockBackend) createKnowledgeBase(_ context.Context, cfg AssistantConfig) (string, error) {
	return "mock-kb-" + cfg.Persona, nil
}

func (mockBackend) createAssistant(_ context.Context, cfg AssistantConfig, _ string) (string, error) {
	return "mock-assistant-" + cfg.Persona, nil
}

func (mockBackend) query(_ context.Context, _ string, req QueryRequest) (QueryResult, error) {
	tone, ok := mockTones[strings.ToLower(req.Persona)]
	if !ok {
		tone = "insightful"
	}

	intro := fmt.Sprintf("[Mock MaaS] %s guide speaking with a %s tone.", titleCase(req.Persona), tone)
	if bits := contextSummary(req.Context); len(bits) > 0 {
		intro += " Context: " + strings.Join(bits, "; ") + "."
	}
	reply := intro + "\nPrompt understood: " + truncateRunes(req.Prompt, promptEchoLimit)

	attachments := append([]models.Attachment(nil), req.Attachments...)
	if preview := asMap(req.Context["arPreview"]); len(preview) > 0 {
		attachments = append(attachments, models.Attachment(preview))
	}
	if len(attachments) == 0 {
		attachments = nil
	}

	return QueryResult{
		Messages: []models.ChatMessage{
			{Role: models.RoleAssistant, Content: reply, Attachments: attachments},
			{
				Role: models.RoleAssistant,
				Content: fmt.Sprintf("Proactive nudge for session %s: consider the dawn slot to avoid peaks; "+
					"I'll keep monitoring density.", req.SessionID),
			},
		},
		Metadata: map[string]interface{}{
			"mock":         true,
			"instructions": req.Instructions,
		},
	}, nil
}

// contextSummary renders one clause each for attractions, density and weather, in that order.
func contextSummary(ctx map[string]interface{}) []string {
	var bits []string

	if attractions := asSlice(ctx["attractions"]); len(attractions) > 0 {
		var names []string
		for _, a := range attractions {
			if len(names) == 2 {
				break
			}
			names = append(names, stringOr(asMap(a)["name"], ""))
		}
		bits = append(bits, fmt.Sprintf("%d spotlighted sites including %s", len(attractions), strings.Join(names, ", ")))
	}
	if density := asMap(ctx["density"]); len(density) > 0 {
		bits = append(bits, "density index "+stringOr(density["forecastIndex"], "N/A"))
	}
	if weather := asMap(ctx["weather"]); len(weather) > 0 {
		bits = append(bits, "weather "+stringOr(weather["summary"], "N/A"))
	}
	return bits
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

func asMap(v interface{}) map[string]interface{} {
	switch m := v.(type) {
	case map[string]interface{}:
		return m
	case models.Attachment:
		return m
	}
	return nil
}

func asSlice(v interface{}) []interface{} {
	switch s := v.(type) {
	case []interface{}:
		return s
	case []map[string]interface{}:
		out := make([]interface{}, len(s))
		for i := range s {
			out[i] = s[i]
		}
		return out
	}
	return nil
}

func stringOr(v interface{}, fallback string) string {
	if v == nil {
		return fallback
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
