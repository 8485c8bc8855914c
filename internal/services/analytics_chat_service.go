package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"aeterna/internal/camara"
	"aeterna/internal/config"
	"aeterna/internal/logging"
	"aeterna/internal/maas"
	"aeterna/internal/metrics"
	"aeterna/internal/models"
	"aeterna/internal/persona"
)

const (
	knowledgePageSize = 5
	contextPageSize   = 6

	analyticsPreamble = "You are EchoBot, the Time-Weave analytics companion. " +
		"Blend CAMARA density, location, telco QoS metadata with Echoes of Eternity site data. " +
		"Respond with multimodal-ready markdown (use bullet points). " +
		"Always propose a proactive nudge aligned to sustainability."

	contextAckMessage = "Context ingested for personalised analytics."
)

// PersonaSource resolves personas and identity tokens
type PersonaSource interface {
	FindPersona(key string) (models.PersonaProfile, bool)
	ResolveUserFromToken(token string) persona.IdentityResult
}

// AttractionSource returns the first limit attractions
type AttractionSource interface {
	Page(limit int) ([]models.Attraction, error)
}

// AssistantOrchestrator manages per-persona assistants and queries them
type AssistantOrchestrator interface {
	EnsureAssistant(ctx context.Context, cfg maas.AssistantConfig) (string, error)
	Query(ctx context.Context, req maas.QueryRequest) (maas.QueryResult, error)
}

// SnapshotSource performs the density and location reads merged into every reply
type SnapshotSource interface {
	PopulationDensity(ctx context.Context, q camara.DensityQuery) (interface{}, error)
	RetrieveLocation(ctx context.Context, q camara.LocationQuery) (interface{}, error)
}

// SnapshotResult is one point-in-time read. A failed read carries Err and
// contributes no data to the reply.
type SnapshotResult struct {
	Data interface{}
	Err  error
}

// Value returns the data, or nil when the read failed
func (r SnapshotResult) Value() interface{} {
	if r.Err != nil {
		return nil
	}
	return r.Data
}

// GenerateRequest is one analytics chat turn
type GenerateRequest struct {
	Persona   string
	Prompt    string
	Context   map[string]interface{}
	SessionID string // Used when Context carries no session id
	Language  string // Overrides the user's or persona's language when set
	AuthToken string // Identity token from the request headers; an inline context token wins
}

// AnalyticsChatService composes persona-flavoured analytics replies from
// telco snapshots, attraction content and the persona's assistant.
type AnalyticsChatService struct {
	personas       PersonaSource
	attractions    AttractionSource
	orchestrator   AssistantOrchestrator
	snapshots      SnapshotSource
	defaultPersona string
	demo           config.DemoConfig
	metrics        *metrics.Metrics
	now            func() time.Time
}

// NewAnalyticsChatService wires the composer
func NewAnalyticsChatService(
	personas PersonaSource,
	attractions AttractionSource,
	orchestrator AssistantOrchestrator,
	snapshots SnapshotSource,
	defaultPersona string,
	demo config.DemoConfig,
	m *metrics.Metrics,
) *AnalyticsChatService {
	return &AnalyticsChatService{
		personas:       personas,
		attractions:    attractions,
		orchestrator:   orchestrator,
		snapshots:      snapshots,
		defaultPersona: defaultPersona,
		demo:           demo,
		metrics:        m,
		now:            time.Now,
	}
}

// GenerateResponse answers one prompt. Snapshot failures degrade the reply;
// every other failure fails the whole call.
func (s *AnalyticsChatService) GenerateResponse(ctx context.Context, req GenerateRequest) (*models.ChatResponse, error) {
	start := time.Now()
	s.metrics.RecordChatRequest()
	defer func() { s.metrics.RecordChatLatency(time.Since(start).Seconds()) }()

	resp, err := s.generate(ctx, req)
	if err != nil {
		kind := string(camara.KindOf(err))
		if kind == "" {
			kind = "internal"
		}
		s.metrics.RecordChatError(kind)
		return nil, err
	}
	return resp, nil
}

func (s *AnalyticsChatService) generate(ctx context.Context, req GenerateRequest) (*models.ChatResponse, error) {
	profile, err := s.resolvePersona(req.Persona)
	if err != nil {
		return nil, err
	}
	user := s.resolveUser(req.Context, req.AuthToken, profile)
	sessionID := deriveSessionID(req.Context, req.SessionID)
	logger := logging.WithSession(sessionID, profile.Key)

	page, err := s.attractions.Page(knowledgePageSize)
	if err != nil {
		return nil, fmt.Errorf("load attractions: %w", err)
	}
	documents := knowledgeDocuments(page, profile)

	language := profile.DefaultLanguage
	if user != nil && user.Language != "" {
		language = user.Language
	}
	if req.Language != "" {
		language = req.Language
	}
	instructions := profile.Instructions + "\n" + analyticsPreamble

	// The assistant ensure and both snapshot reads run concurrently. Only the
	// ensure can fail the group; snapshot failures land in their results.
	var density, location SnapshotResult
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := s.orchestrator.EnsureAssistant(gctx, maas.AssistantConfig{
			Persona:            profile.Key,
			Instructions:       instructions,
			Language:           language,
			Tags:               profile.Tags,
			KnowledgeDocuments: documents,
		})
		return err
	})
	g.Go(func() error {
		density = s.fetchDensity(gctx, req.Context, logger)
		return nil
	})
	g.Go(func() error {
		location = s.fetchLocation(gctx, req.Context, logger)
		return nil
	})
	if err := g.Wait(); err != nil {
		logger.Error("assistant ensure failed", "error", err)
		return nil, err
	}

	preview := arPreviewFor(profile)
	enriched, err := s.enrichedContext(profile, user, preview, density, location)
	if err != nil {
		return nil, err
	}

	result, err := s.orchestrator.Query(ctx, maas.QueryRequest{
		Persona:      profile.Key,
		Prompt:       req.Prompt,
		SessionID:    sessionID,
		Instructions: instructions,
		Language:     language,
		Attachments:  previewAttachments(preview),
		Context:      enriched,
	})
	if err != nil {
		logger.Error("assistant query failed", "error", err)
		return nil, err
	}

	messages := []models.ChatMessage{
		{Role: models.RoleSystem, Content: "Persona:" + profile.Key},
		{Role: models.RoleUser, Content: req.Prompt},
	}
	messages = append(messages, result.Messages...)
	if len(req.Context) > 0 {
		messages = append(messages, models.ChatMessage{
			Role:    models.RoleAssistant,
			Content: contextAckMessage,
			Attachments: []models.Attachment{
				{"type": "context", "payload": req.Context},
			},
		})
	}

	logger.Info("analytics response composed",
		"messages", len(messages),
		"density", density.Err == nil,
		"location", location.Err == nil,
	)

	return &models.ChatResponse{
		Messages: messages,
		Persona:  profile.Key,
		Metadata: &models.ChatMetadata{
			SessionID: sessionID,
			User:      user,
			MaaS:      result.Metadata,
		},
	}, nil
}

func (s *AnalyticsChatService) resolvePersona(key string) (models.PersonaProfile, error) {
	if p, ok := s.personas.FindPersona(key); ok {
		return p, nil
	}
	if p, ok := s.personas.FindPersona(s.defaultPersona); ok {
		return p, nil
	}
	return models.PersonaProfile{}, &camara.Error{
		Kind:    camara.KindConfiguration,
		Op:      "resolve persona",
		Message: fmt.Sprintf("default persona %q must exist", s.defaultPersona),
	}
}

// resolveUser prefers a verified identity token, then an inline user object.
func (s *AnalyticsChatService) resolveUser(ctx map[string]interface{}, headerToken string, profile models.PersonaProfile) *models.PersonaUser {
	token := firstString(ctx, "authToken", "auth_token")
	if token == "" {
		token = headerToken
	}
	if token != "" {
		res := s.personas.ResolveUserFromToken(token)
		if res.Found() {
			return res.User
		}
		slog.Debug("identity token ignored", "reason", res.Err)
	}

	inline, ok := ctx["user"].(map[string]interface{})
	if !ok || len(inline) == 0 {
		return nil
	}

	user := &models.PersonaUser{
		UserID:   firstString(inline, "user_id", "id", "uuid"),
		Name:     firstString(inline, "name", "display_name"),
		Persona:  firstString(inline, "persona", "key"),
		Language: firstString(inline, "language", "default_language"),
	}
	if user.UserID == "" {
		user.UserID = strings.ReplaceAll(uuid.NewString(), "-", "")
	}
	if user.Name == "" {
		user.Name = profile.DisplayName
	}
	if user.Persona == "" {
		user.Persona = profile.Key
	}
	if user.Language == "" {
		user.Language = profile.DefaultLanguage
	}
	if traits, ok := inline["traits"].(map[string]interface{}); ok {
		user.Traits = traits
	} else {
		user.Traits = map[string]interface{}{}
	}
	return user
}

func (s *AnalyticsChatService) fetchDensity(ctx context.Context, inbound map[string]interface{}, logger *slog.Logger) SnapshotResult {
	area := camara.CircleArea(s.demo.AreaLat, s.demo.AreaLon, s.demo.AreaRadiusMeters)
	if override, ok := areaOverride(inbound); ok {
		area = override
	}

	data, err := s.snapshots.PopulationDensity(ctx, camara.DensityQuery{
		Area:      area,
		TimeRange: &camara.TimeRange{Duration: camara.Duration{Amount: 2, Unit: "HOUR"}},
	})
	if err != nil {
		logging.WithSnapshot(logger, "density").Warn("snapshot unavailable", "error", err)
		s.metrics.RecordSnapshotFailure("density")
	}
	return SnapshotResult{Data: data, Err: err}
}

func (s *AnalyticsChatService) fetchLocation(ctx context.Context, inbound map[string]interface{}, logger *slog.Logger) SnapshotResult {
	phone := s.demo.PhoneNumber
	if override := firstString(inbound, "phoneNumber"); override != "" {
		phone = override
	}

	data, err := s.snapshots.RetrieveLocation(ctx, camara.LocationQuery{
		PhoneNumber:       phone,
		RequestedAccuracy: camara.Accuracy{Horizontal: 500},
	})
	if err != nil {
		logging.WithSnapshot(logger, "location").Warn("snapshot unavailable", "error", err)
		s.metrics.RecordSnapshotFailure("location")
	}
	return SnapshotResult{Data: data, Err: err}
}

func (s *AnalyticsChatService) enrichedContext(
	profile models.PersonaProfile,
	user *models.PersonaUser,
	preview ARPreview,
	density, location SnapshotResult,
) (map[string]interface{}, error) {
	page, err := s.attractions.Page(contextPageSize)
	if err != nil {
		return nil, fmt.Errorf("load attractions: %w", err)
	}
	attractions := make([]map[string]interface{}, 0, len(page))
	for _, a := range page {
		attractions = append(attractions, a.ToMap())
	}

	enriched := map[string]interface{}{
		"timestamp":   s.now().UTC().Format("2006-01-02T15:04:05.000000Z"),
		"persona":     profile,
		"attractions": attractions,
		"arPreview":   preview.toMap(),
		"density":     density.Value(),
		"location":    location.Value(),
	}
	if user != nil {
		enriched["user"] = user
	}
	return enriched, nil
}

// knowledgeDocuments turns attractions into one markdown document each
func knowledgeDocuments(page []models.Attraction, profile models.PersonaProfile) []map[string]interface{} {
	docs := make([]map[string]interface{}, 0, len(page))
	for _, a := range page {
		city := a.City
		if city == "" {
			city = "N/A"
		}
		description := a.Description
		if description == "" {
			description = "No description provided."
		}
		docs = append(docs, map[string]interface{}{
			"id":    a.ID,
			"title": a.Name,
			"type":  "markdown",
			"content": fmt.Sprintf("# %s\n*City:* %s\n*Description:* %s\n*Persona lens:* %s.\n",
				a.Name, city, description, profile.Tone),
		})
	}
	return docs
}

// deriveSessionID prefers the context's session id, then the request's, then a fresh one
func deriveSessionID(ctx map[string]interface{}, fallback string) string {
	if sid := firstString(ctx, "sessionId", "session_id"); sid != "" {
		return sid
	}
	if fallback != "" {
		return fallback
	}
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// areaOverride reads an optional {"center": {"lat", "lon"}, "radiusMeters"} geofence from the context
func areaOverride(ctx map[string]interface{}) (camara.Area, bool) {
	raw, ok := ctx["area"].(map[string]interface{})
	if !ok {
		return camara.Area{}, false
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return camara.Area{}, false
	}
	var area camara.Area
	if err := json.Unmarshal(data, &area); err != nil || area.RadiusMeters <= 0 {
		return camara.Area{}, false
	}
	if area.Type == "" {
		area.Type = "Circle"
	}
	return area, true
}

// firstString returns the first non-empty value among keys, stringified
func firstString(m map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		switch v := m[k].(type) {
		case nil:
			continue
		case string:
			if v != "" {
				return v
			}
		case bool:
			if v {
				return "true"
			}
		case float64:
			// JSON numbers arrive as float64; ids must keep their plain decimal form.
			if v != 0 {
				return strconv.FormatFloat(v, 'f', -1, 64)
			}
		default:
			return fmt.Sprint(v)
		}
	}
	return ""
}
