package maas

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aeterna/internal/camara"
	"aeterna/internal/config"
	"aeterna/internal/models"
)

func mockOrchestrator() *Orchestrator {
	return NewOrchestrator(camara.NewMockTransport(config.CamaraConfig{UseMock: true}), testEndpoints, nil, nil)
}

func TestMockQueryWithoutContext(t *testing.T) {
	res, err := mockOrchestrator().Query(context.Background(), QueryRequest{
		Persona:      "priya",
		Prompt:       "Plan my Uluru dawn visit",
		SessionID:    "s1",
		Instructions: "Be warm.",
	})
	require.NoError(t, err)

	require.Len(t, res.Messages, 2)
	assert.Equal(t, "[Mock MaaS] Priya guide speaking with a empathetic tone.\nPrompt understood: Plan my Uluru dawn visit",
		res.Messages[0].Content)
	assert.Nil(t, res.Messages[0].Attachments)
	assert.Equal(t, "Proactive nudge for session s1: consider the dawn slot to avoid peaks; I'll keep monitoring density.",
		res.Messages[1].Content)
	assert.Equal(t, map[string]interface{}{"mock": true, "instructions": "Be warm."}, res.Metadata)
}

func TestMockQueryContextSummary(t *testing.T) {
	res, err := mockOrchestrator().Query(context.Background(), QueryRequest{
		Persona: "Mike",
		Prompt:  "Status?",
		Context: map[string]interface{}{
			"weather": map[string]interface{}{"summary": "clear skies"},
			"density": map[string]interface{}{"forecastIndex": 0.64},
			"attractions": []map[string]interface{}{
				{"name": "Uluru"}, {"name": "MCG"}, {"name": "Sydney Opera House"},
			},
		},
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(res.Messages[0].Content,
		"[Mock MaaS] Mike guide speaking with a operational tone. Context: "+
			"3 spotlighted sites including Uluru, MCG; density index 0.64; weather clear skies.\n"))
}

func TestMockQueryDensityWithoutIndex(t *testing.T) {
	bits := contextSummary(map[string]interface{}{"density": map[string]interface{}{"status": "SUPPORTED_AREA"}})
	assert.Equal(t, []string{"density index N/A"}, bits)
}

func TestMockQueryUnknownPersonaTone(t *testing.T) {
	res, err := mockOrchestrator().Query(context.Background(), QueryRequest{Persona: "zed", Prompt: "hi"})
	require.NoError(t, err)
	assert.Contains(t, res.Messages[0].Content, "Zed guide speaking with a insightful tone.")
}

func TestMockQueryTruncatesPrompt(t *testing.T) {
	long := strings.Repeat("é", 450)
	res, err := mockOrchestrator().Query(context.Background(), QueryRequest{Persona: "lena", Prompt: long})
	require.NoError(t, err)

	echoed := strings.SplitN(res.Messages[0].Content, "Prompt understood: ", 2)[1]
	assert.Equal(t, 400, len([]rune(echoed)))
}

func TestMockQueryAttachments(t *testing.T) {
	preview := map[string]interface{}{"type": "ar-preview", "title": "Uluru Dawn Family Preview"}
	res, err := mockOrchestrator().Query(context.Background(), QueryRequest{
		Persona:     "priya",
		Prompt:      "hi",
		Attachments: []models.Attachment{{"type": "itinerary-graph"}},
		Context:     map[string]interface{}{"arPreview": preview},
	})
	require.NoError(t, err)

	assert.Equal(t, []models.Attachment{{"type": "itinerary-graph"}, models.Attachment(preview)}, res.Messages[0].Attachments)
	assert.Nil(t, res.Messages[1].Attachments)
}
