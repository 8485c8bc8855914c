package preflight

import (
	"aeterna/internal/camara"
	"aeterna/internal/models"
	"context"
	"fmt"
	"log"
	"time"
)

// CheckResult represents the result of a preflight check
type CheckResult struct {
	Name    string
	Status  string // "pass", "fail", "warning"
	Message string
	Error   error
}

// PersonaCatalogue is the persona directory as seen by the checks
type PersonaCatalogue interface {
	Personas() []models.PersonaProfile
	FindPersona(key string) (models.PersonaProfile, bool)
}

// AttractionCatalogue is the attraction source as seen by the checks
type AttractionCatalogue interface {
	Page(limit int) ([]models.Attraction, error)
}

// Pinger is an optional shared store
type Pinger interface {
	Ping(ctx context.Context) error
}

// Checker performs pre-flight checks before server starts
type Checker struct {
	personas       PersonaCatalogue
	attractions    AttractionCatalogue
	transport      camara.Transport
	redis          Pinger // nil when Redis is not configured
	defaultPersona string
	probeScope     string
	timeout        time.Duration
}

// NewChecker creates a new preflight checker. probeScope is the scope used
// to test token acquisition against the operator.
func NewChecker(personas PersonaCatalogue, attractions AttractionCatalogue, transport camara.Transport, redis Pinger, defaultPersona, probeScope string) *Checker {
	return &Checker{
		personas:       personas,
		attractions:    attractions,
		transport:      transport,
		redis:          redis,
		defaultPersona: defaultPersona,
		probeScope:     probeScope,
		timeout:        10 * time.Second,
	}
}

// RunAll runs all preflight checks and returns results
func (c *Checker) RunAll(ctx context.Context) []CheckResult {
	log.Println("🔍 Running pre-flight checks...")

	results := []CheckResult{
		c.checkPersonaCatalogue(),
		c.checkAttractions(),
		c.checkTransport(ctx),
		c.checkRedis(ctx),
	}

	// Print summary
	passed := 0
	failed := 0
	warnings := 0

	for _, result := range results {
		switch result.Status {
		case "pass":
			log.Printf("   ✅ %s: %s", result.Name, result.Message)
			passed++
		case "fail":
			log.Printf("   ❌ %s: %s", result.Name, result.Message)
			if result.Error != nil {
				log.Printf("      Error: %v", result.Error)
			}
			failed++
		case "warning":
			log.Printf("   ⚠️  %s: %s", result.Name, result.Message)
			warnings++
		}
	}

	log.Printf("📊 Pre-flight summary: %d passed, %d failed, %d warnings", passed, failed, warnings)

	return results
}

// HasFailures returns true if any check failed
func HasFailures(results []CheckResult) bool {
	for _, result := range results {
		if result.Status == "fail" {
			return true
		}
	}
	return false
}

// checkPersonaCatalogue verifies personas are loaded and the default persona exists
func (c *Checker) checkPersonaCatalogue() CheckResult {
	personas := c.personas.Personas()
	if len(personas) == 0 {
		return CheckResult{
			Name:    "Persona Catalogue",
			Status:  "fail",
			Message: "No personas loaded",
		}
	}

	if _, ok := c.personas.FindPersona(c.defaultPersona); !ok {
		return CheckResult{
			Name:    "Persona Catalogue",
			Status:  "fail",
			Message: fmt.Sprintf("Default persona '%s' not found", c.defaultPersona),
		}
	}

	return CheckResult{
		Name:    "Persona Catalogue",
		Status:  "pass",
		Message: fmt.Sprintf("%d personas loaded (default: %s)", len(personas), c.defaultPersona),
	}
}

// checkAttractions verifies the attraction source parses
func (c *Checker) checkAttractions() CheckResult {
	items, err := c.attractions.Page(0)
	if err != nil {
		return CheckResult{
			Name:    "Attractions",
			Status:  "fail",
			Message: "Cannot load attractions",
			Error:   err,
		}
	}

	if len(items) == 0 {
		return CheckResult{
			Name:    "Attractions",
			Status:  "warning",
			Message: "Attraction catalogue is empty; assistants will have no knowledge documents",
		}
	}

	return CheckResult{
		Name:    "Attractions",
		Status:  "pass",
		Message: fmt.Sprintf("%d attractions loaded", len(items)),
	}
}

// checkTransport acquires a token. In mock mode this also validates the
// sample payload table. An unreachable operator is only a warning since
// snapshots degrade gracefully.
func (c *Checker) checkTransport(ctx context.Context) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	mode := c.transport.Mode()
	if _, err := c.transport.ObtainToken(ctx, c.probeScope); err != nil {
		status := "warning"
		if mode == camara.ModeMock {
			status = "fail"
		}
		return CheckResult{
			Name:    "CAMARA Transport",
			Status:  status,
			Message: fmt.Sprintf("Token acquisition failed (%s mode)", mode),
			Error:   err,
		}
	}

	return CheckResult{
		Name:    "CAMARA Transport",
		Status:  "pass",
		Message: fmt.Sprintf("Token acquired (%s mode)", mode),
	}
}

// checkRedis verifies Redis connectivity when configured
func (c *Checker) checkRedis(ctx context.Context) CheckResult {
	if c.redis == nil {
		return CheckResult{
			Name:    "Redis",
			Status:  "warning",
			Message: "Redis not configured (assistant ids and session rooms are per-instance)",
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.redis.Ping(ctx); err != nil {
		return CheckResult{
			Name:    "Redis",
			Status:  "fail",
			Message: "Cannot reach Redis",
			Error:   err,
		}
	}

	return CheckResult{
		Name:    "Redis",
		Status:  "pass",
		Message: "Redis connection successful",
	}
}
