package handlers

import (
	"aeterna/internal/attractions"
	"aeterna/internal/camara"
	"aeterna/internal/config"
	"aeterna/internal/maas"
	"aeterna/internal/middleware"
	"aeterna/internal/models"
	"aeterna/internal/persona"
	"aeterna/internal/services"
	"aeterna/pkg/auth"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	app       *fiber.App
	hub       *services.SessionHub
	directory *persona.Directory
	tokens    *auth.IdentityTokens
}

func setupTestApp(t *testing.T) *testEnv {
	t.Helper()

	tokens, err := auth.NewIdentityTokens("test-secret", "HS256", time.Hour)
	require.NoError(t, err)
	directory := persona.NewDirectory("", tokens)
	catalogue := attractions.NewCatalogue("")

	cfg := config.CamaraConfig{UseMock: true}
	transport := camara.NewMockTransport(cfg)
	client := camara.NewClient(transport, cfg)
	orchestrator := maas.NewOrchestrator(transport, maas.Endpoints{}, nil, nil)

	demo := config.DemoConfig{AreaLat: -25.3444, AreaLon: 131.0369, AreaRadiusMeters: 5000, PhoneNumber: "+61370000000"}
	composer := services.NewAnalyticsChatService(directory, catalogue, orchestrator, client, "priya", demo, nil)
	hub := services.NewSessionHub(nil)

	app := fiber.New()
	chat := NewAnalyticsChatHandler(composer, hub)
	identity := middleware.OptionalIdentityMiddleware(tokens)
	app.Post("/analytics-chat", identity, chat.Handle)
	app.Post("/api/analytics-chat", identity, chat.Handle)

	personas := NewPersonaHandler(directory, false)
	app.Get("/api/personas", personas.List)
	app.Post("/api/personas/:key/token", personas.IssueToken)

	attractionHandler := NewAttractionHandler(catalogue)
	app.Get("/api/attractions", attractionHandler.List)
	app.Get("/api/attractions/export", attractionHandler.Export)
	app.Get("/api/attractions/:id", attractionHandler.Get)

	camaraHandler := NewCamaraHandler(client)
	app.Get("/api/camara/qos-profiles", camaraHandler.QoSProfiles)
	app.Post("/api/camara/sim-swap", camaraHandler.SimSwap)
	app.Post("/api/camara/location", camaraHandler.Location)
	app.Post("/api/camara/population-density", camaraHandler.PopulationDensity)
	app.Post("/api/camara/quality-on-demand", camaraHandler.QualityOnDemand)

	health := NewHealthHandler(hub, transport.Mode(), nil)
	app.Get("/healthz", health.Liveness)
	app.Get("/health", health.Handle)

	return &testEnv{app: app, hub: hub, directory: directory, tokens: tokens}
}

func doJSON(t *testing.T, app *fiber.App, method, target string, body interface{}, headers map[string]string) (int, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := app.Test(req, 5000)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var decoded map[string]interface{}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &decoded))
	}
	return resp.StatusCode, decoded
}

// TestHealthHandler tests the health check endpoints
func TestHealthHandler(t *testing.T) {
	env := setupTestApp(t)

	status, body := doJSON(t, env.app, "GET", "/healthz", nil, nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, map[string]interface{}{"status": "ok"}, body)

	status, body = doJSON(t, env.app, "GET", "/health", nil, nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, float64(0), body["connections"])
	assert.Equal(t, "mock", body["transport"])
	assert.NotContains(t, body, "operator")
}

type fixedOperator struct{ state services.OperatorHealth }

func (f fixedOperator) Snapshot() services.OperatorHealth { return f.state }

func TestHealthHandlerReportsOperator(t *testing.T) {
	app := fiber.New()
	h := NewHealthHandler(services.NewSessionHub(nil), camara.ModeLive, fixedOperator{
		state: services.OperatorHealth{Status: services.ProbeUnhealthy, FailureCount: 2, LastError: "timeout"},
	})
	app.Get("/health", h.Handle)

	status, body := doJSON(t, app, "GET", "/health", nil, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "live", body["transport"])
	operator := body["operator"].(map[string]interface{})
	assert.Equal(t, "unhealthy", operator["status"])
	assert.Equal(t, float64(2), operator["failureCount"])
}

func TestAnalyticsChat(t *testing.T) {
	env := setupTestApp(t)

	for _, path := range []string{"/analytics-chat", "/api/analytics-chat"} {
		t.Run(path, func(t *testing.T) {
			status, body := doJSON(t, env.app, "POST", path, map[string]interface{}{
				"persona": "priya",
				"prompt":  "Plan a sunrise visit",
				"context": map[string]interface{}{"sessionId": "s1"},
			}, nil)
			require.Equal(t, fiber.StatusOK, status)

			assert.Equal(t, "priya", body["persona"])
			messages := body["messages"].([]interface{})
			require.NotEmpty(t, messages)
			assert.Equal(t, "system", messages[0].(map[string]interface{})["role"])
			assert.Equal(t, "user", messages[1].(map[string]interface{})["role"])

			metadata := body["metadata"].(map[string]interface{})
			assert.Equal(t, "s1", metadata["sessionId"])
			assert.Equal(t, true, metadata["maas"].(map[string]interface{})["mock"])
		})
	}
}

func TestAnalyticsChatEmptyPrompt(t *testing.T) {
	env := setupTestApp(t)

	status, body := doJSON(t, env.app, "POST", "/analytics-chat", map[string]interface{}{
		"persona": "priya",
		"prompt":  "   ",
	}, nil)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "prompt is required", body["error"])
}

func TestAnalyticsChatBearerIdentity(t *testing.T) {
	env := setupTestApp(t)
	token, err := env.directory.DemoToken("user-lena")
	require.NoError(t, err)

	status, body := doJSON(t, env.app, "POST", "/analytics-chat", map[string]interface{}{
		"persona": "lena",
		"prompt":  "history please",
	}, map[string]string{"Authorization": "Bearer " + token})
	require.Equal(t, fiber.StatusOK, status)

	user := body["metadata"].(map[string]interface{})["user"].(map[string]interface{})
	assert.Equal(t, "user-lena", user["user_id"])
}

func TestAnalyticsChatBroadcastsToSession(t *testing.T) {
	env := setupTestApp(t)

	listener := &models.SessionConnection{ConnID: "listener", WriteChan: make(chan models.SessionEvent, 4)}
	env.hub.Add(listener)
	env.hub.Join("listener", "room-1")

	status, _ := doJSON(t, env.app, "POST", "/analytics-chat", map[string]interface{}{
		"persona": "jax",
		"prompt":  "score?",
		"context": map[string]interface{}{"sessionId": "room-1"},
	}, nil)
	require.Equal(t, fiber.StatusOK, status)

	select {
	case evt := <-listener.WriteChan:
		assert.Equal(t, models.EventResponse, evt.Event)
		assert.Equal(t, "jax", evt.Data["persona"])
	case <-time.After(time.Second):
		t.Fatal("no analytics:response broadcast")
	}
}

type failingComposer struct{ err error }

func (f failingComposer) GenerateResponse(context.Context, services.GenerateRequest) (*models.ChatResponse, error) {
	return nil, f.err
}

func TestAnalyticsChatErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantKind   string
	}{
		{"configuration", &camara.Error{Kind: camara.KindConfiguration, Message: "bad"}, 500, "configuration"},
		{"mock payload missing", &camara.Error{Kind: camara.KindMockPayloadMissing, Message: "x"}, 500, "mock_payload_missing"},
		{"token acquisition", &camara.Error{Kind: camara.KindTokenAcquisition, StatusCode: 401}, 502, "token_acquisition"},
		{"upstream", &camara.Error{Kind: camara.KindUpstream, StatusCode: 503}, 502, "upstream"},
		{"resource creation", &camara.Error{Kind: camara.KindResourceCreation, Message: "no id"}, 502, "resource_creation"},
		{"unclassified", io.ErrUnexpectedEOF, 500, "internal"},
		{"deadline", fmt.Errorf("ensure assistant: %w", context.DeadlineExceeded), 504, "timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Post("/analytics-chat", NewAnalyticsChatHandler(failingComposer{err: tt.err}, nil).Handle)

			status, body := doJSON(t, app, "POST", "/analytics-chat", map[string]interface{}{"persona": "priya", "prompt": "hi"}, nil)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantKind, body["kind"])
			assert.NotEmpty(t, body["error"])
		})
	}
}

// blockingComposer waits for its context to end, like a stalled upstream call
type blockingComposer struct{}

func (blockingComposer) GenerateResponse(ctx context.Context, _ services.GenerateRequest) (*models.ChatResponse, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestAnalyticsChatRequestDeadline(t *testing.T) {
	h := NewAnalyticsChatHandler(blockingComposer{}, nil)
	assert.Equal(t, chatRequestTimeout, h.timeout)
	h.timeout = 20 * time.Millisecond

	app := fiber.New()
	app.Post("/analytics-chat", h.Handle)

	start := time.Now()
	status, body := doJSON(t, app, "POST", "/analytics-chat", map[string]interface{}{"persona": "priya", "prompt": "hi"}, nil)
	assert.Equal(t, fiber.StatusGatewayTimeout, status)
	assert.Equal(t, "timeout", body["kind"])
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestPersonaList(t *testing.T) {
	env := setupTestApp(t)

	status, body := doJSON(t, env.app, "GET", "/api/personas", nil, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, body["personas"], 6)
	assert.Len(t, body["users"], 6)
}

func TestPersonaIssueToken(t *testing.T) {
	env := setupTestApp(t)

	status, body := doJSON(t, env.app, "POST", "/api/personas/mike/token", nil, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "mike", body["persona"])

	claims, err := env.tokens.Parse(body["token"].(string))
	require.NoError(t, err)
	assert.Equal(t, "user-mike", claims.SubjectID())
	assert.Equal(t, "mike", claims.Persona)

	status, _ = doJSON(t, env.app, "POST", "/api/personas/nobody/token", nil, nil)
	assert.Equal(t, fiber.StatusNotFound, status)

	status, _ = doJSON(t, env.app, "POST", "/api/personas/mike/token", map[string]string{"user_id": "user-jax"}, nil)
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestPersonaIssueTokenProduction(t *testing.T) {
	env := setupTestApp(t)
	app := fiber.New()
	app.Post("/api/personas/:key/token", NewPersonaHandler(env.directory, true).IssueToken)

	status, _ := doJSON(t, app, "POST", "/api/personas/priya/token", nil, nil)
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestAttractions(t *testing.T) {
	env := setupTestApp(t)

	status, body := doJSON(t, env.app, "GET", "/api/attractions", nil, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, body["data"], 7)

	status, body = doJSON(t, env.app, "GET", "/api/attractions/uluru", nil, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "uluru", body["id"])

	status, _ = doJSON(t, env.app, "GET", "/api/attractions/atlantis", nil, nil)
	assert.Equal(t, fiber.StatusNotFound, status)

	resp, err := env.app.Test(httptest.NewRequest("GET", "/api/attractions/export", nil))
	require.NoError(t, err)
	assert.Equal(t, "text/yaml", resp.Header.Get("Content-Type"))
	raw, _ := io.ReadAll(resp.Body)
	assert.True(t, strings.Contains(string(raw), "id: uluru"))
}

func TestCamaraRoutes(t *testing.T) {
	env := setupTestApp(t)

	resp, err := env.app.Test(httptest.NewRequest("GET", "/api/camara/qos-profiles", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	status, body := doJSON(t, env.app, "POST", "/api/camara/population-density", map[string]interface{}{
		"area": map[string]interface{}{"center": map[string]interface{}{"lat": -25.3, "lon": 131.0}, "radiusMeters": 1000},
	}, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, 0.64, body["forecastIndex"])

	phone := map[string]interface{}{"phoneNumber": "+61370000000"}
	for _, path := range []string{"/api/camara/sim-swap", "/api/camara/location", "/api/camara/quality-on-demand"} {
		status, _ := doJSON(t, env.app, "POST", path, phone, nil)
		assert.Equal(t, fiber.StatusOK, status, path)

		status, body := doJSON(t, env.app, "POST", path, map[string]interface{}{}, nil)
		assert.Equal(t, fiber.StatusBadRequest, status, path)
		assert.Equal(t, "phoneNumber is required", body["error"])
	}

	status, _ = doJSON(t, env.app, "POST", "/api/camara/population-density", map[string]interface{}{}, nil)
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestSessionSocketDispatch(t *testing.T) {
	hub := services.NewSessionHub(nil)
	h := NewSessionSocketHandler(hub)
	conn := &models.SessionConnection{ConnID: "c1", WriteChan: make(chan models.SessionEvent, 8)}
	hub.Add(conn)
	ctx := context.Background()

	h.dispatch(ctx, "c1", models.SessionEvent{Event: models.EventRegisterSession})
	evt := <-conn.WriteChan
	assert.Equal(t, models.EventError, evt.Event)
	assert.Equal(t, "Missing sessionId for registration.", evt.Data["message"])

	h.dispatch(ctx, "c1", models.SessionEvent{Event: models.EventRegisterSession, Data: map[string]interface{}{"sessionId": "s1"}})
	evt = <-conn.WriteChan
	assert.Equal(t, models.EventStatus, evt.Event)
	assert.Equal(t, "Session registered", evt.Data["message"])
	assert.Equal(t, 1, hub.RoomSize("s1"))

	h.dispatch(ctx, "c1", models.SessionEvent{Event: models.EventLeaveSession, Data: map[string]interface{}{"sessionId": "s1"}})
	evt = <-conn.WriteChan
	assert.Equal(t, "Session left", evt.Data["message"])
	assert.Equal(t, "s1", evt.Data["sessionId"])
	assert.Equal(t, 0, hub.RoomSize("s1"))

	// leave without a session id is ignored
	h.dispatch(ctx, "c1", models.SessionEvent{Event: models.EventLeaveSession})
	assert.Empty(t, conn.WriteChan)
}

func TestSessionSocketNumericSessionID(t *testing.T) {
	hub := services.NewSessionHub(nil)
	h := NewSessionSocketHandler(hub)
	conn := &models.SessionConnection{ConnID: "c1", WriteChan: make(chan models.SessionEvent, 8)}
	hub.Add(conn)

	var evt models.SessionEvent
	require.NoError(t, json.Unmarshal([]byte(`{"event":"register_session","data":{"sessionId":12345678}}`), &evt))
	h.dispatch(context.Background(), "c1", evt)

	status := <-conn.WriteChan
	assert.Equal(t, "12345678", status.Data["sessionId"])
	assert.Equal(t, 1, hub.RoomSize("12345678"))
}

func TestAnalyticsChatNumericSessionID(t *testing.T) {
	env := setupTestApp(t)

	status, body := doJSON(t, env.app, "POST", "/analytics-chat", map[string]interface{}{
		"persona": "priya",
		"prompt":  "hi",
		"context": map[string]interface{}{"sessionId": 12345678},
	}, nil)
	require.Equal(t, fiber.StatusOK, status)
	metadata := body["metadata"].(map[string]interface{})
	assert.Equal(t, "12345678", metadata["sessionId"])
}

func TestTimeWeaveFrames(t *testing.T) {
	h := NewTimeWeaveHandler()
	h.now = func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 6000, time.UTC) }

	welcome := h.welcome()
	assert.Equal(t, "welcome", welcome["type"])
	assert.Equal(t, "Connected to Time-Weave stream.", welcome["message"])
	assert.Equal(t, "2025-01-02T03:04:05.000006Z", welcome["timestamp"])

	assert.Equal(t, map[string]interface{}{"a": float64(1)}, h.echo([]byte(`{"a":1}`))["received"])
	assert.Equal(t, map[string]interface{}{}, h.echo(nil)["received"])
	assert.Equal(t, map[string]interface{}{"raw": "not json"}, h.echo([]byte("not json"))["received"])
	assert.Equal(t, "echo", h.echo(nil)["type"])
}
