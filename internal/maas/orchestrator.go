package maas

import (
	"context"
	"log"

	"golang.org/x/sync/singleflight"

	"aeterna/internal/camara"
	"aeterna/internal/metrics"
	"aeterna/internal/models"
)

// backend creates resources and answers queries for one transport mode
type backend interface {
	createKnowledgeBase(ctx context.Context, cfg AssistantConfig) (string, error)
	createAssistant(ctx context.Context, cfg AssistantConfig, knowledgeBaseID string) (string, error)
	query(ctx context.Context, assistantID string, req QueryRequest) (QueryResult, error)
}

// Orchestrator owns the knowledge base and assistant of every persona and
// routes conversational queries to them. Each resource is created at most
// once per persona; concurrent first use shares one creation.
type Orchestrator struct {
	transport camara.Transport
	backend   backend
	store     ResourceStore
	inflight  singleflight.Group
	metrics   *metrics.Metrics
}

// NewOrchestrator picks the mock or live backend from the transport's mode.
// A nil store keeps ids in memory.
func NewOrchestrator(transport camara.Transport, endpoints Endpoints, store ResourceStore, m *metrics.Metrics) *Orchestrator {
	if store == nil {
		store = NewMemoryResourceStore()
	}

	var b backend
	if transport.Mode() == camara.ModeMock {
		b = mockBackend{}
	} else {
		b = &liveBackend{transport: transport, endpoints: endpoints}
	}

	return &Orchestrator{
		transport: transport,
		backend:   b,
		store:     store,
		metrics:   m,
	}
}

// Transport returns the transport the orchestrator was built on
func (o *Orchestrator) Transport() camara.Transport {
	return o.transport
}

// EnsureKnowledgeBase returns the persona's knowledge base id, creating it on first use.
func (o *Orchestrator) EnsureKnowledgeBase(ctx context.Context, cfg AssistantConfig) (string, error) {
	cfg.Persona = models.NormalizePersonaKey(cfg.Persona)
	return o.ensure(ctx, KindKnowledgeBase, cfg.Persona, func(ctx context.Context) (string, error) {
		return o.backend.createKnowledgeBase(ctx, cfg)
	})
}

// EnsureAssistant returns the persona's assistant id, creating the knowledge
// base and then the assistant on first use.
func (o *Orchestrator) EnsureAssistant(ctx context.Context, cfg AssistantConfig) (string, error) {
	cfg.Persona = models.NormalizePersonaKey(cfg.Persona)
	return o.ensure(ctx, KindAssistant, cfg.Persona, func(ctx context.Context) (string, error) {
		kbID, err := o.EnsureKnowledgeBase(ctx, cfg)
		if err != nil {
			return "", err
		}
		return o.backend.createAssistant(ctx, cfg, kbID)
	})
}

// ensure is get-or-create with single flight per (kind, persona), keyed on
// the case-insensitive persona key. Creation runs detached from the caller's
// cancellation so an id the remote side issued is always recorded; cancelled
// callers stop waiting.
func (o *Orchestrator) ensure(ctx context.Context, kind ResourceKind, persona string, create func(context.Context) (string, error)) (string, error) {
	persona = models.NormalizePersonaKey(persona)

	if id, ok, err := o.store.Get(ctx, kind, persona); err != nil {
		return "", err
	} else if ok {
		return id, nil
	}

	createCtx := context.WithoutCancel(ctx)
	ch := o.inflight.DoChan(string(kind)+":"+persona, func() (interface{}, error) {
		if id, ok, err := o.store.Get(createCtx, kind, persona); err != nil {
			return "", err
		} else if ok {
			return id, nil
		}

		id, err := create(createCtx)
		if err != nil {
			return "", err
		}
		o.metrics.RecordResourceCreation(string(kind))
		log.Printf("✅ [MAAS] Created %s %s for persona %s", kind, id, persona)

		return o.store.SetIfAbsent(createCtx, kind, persona, id)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Query sends one turn to the persona's assistant, ensuring it exists first.
func (o *Orchestrator) Query(ctx context.Context, req QueryRequest) (QueryResult, error) {
	language := req.Language
	if language == "" {
		language = "en"
	}
	req.Language = language

	assistantID, err := o.EnsureAssistant(ctx, AssistantConfig{
		Persona:      req.Persona,
		Instructions: req.Instructions,
		Language:     language,
	})
	if err != nil {
		return QueryResult{}, err
	}
	return o.backend.query(ctx, assistantID, req)
}
