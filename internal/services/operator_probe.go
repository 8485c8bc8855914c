package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/robfig/cron/v3"
)

// ProbeStatus is the health state of the telco operator as last observed
type ProbeStatus string

const (
	ProbeHealthy   ProbeStatus = "healthy"
	ProbeUnhealthy ProbeStatus = "unhealthy"
	ProbeUnknown   ProbeStatus = "unknown"
)

// OperatorHealth tracks the outcome of periodic operator probes
type OperatorHealth struct {
	Status        ProbeStatus `json:"status"`
	LastChecked   time.Time   `json:"lastChecked,omitempty"`
	LastSuccessAt time.Time   `json:"lastSuccessAt,omitempty"`
	NextRun       time.Time   `json:"nextRun,omitempty"`
	FailureCount  int         `json:"failureCount"` // consecutive
	LastError     string      `json:"lastError,omitempty"`
	LatencyMs     int64       `json:"latencyMs"`
}

// ProbeFunc performs one lightweight operator call
type ProbeFunc func(ctx context.Context) error

// OperatorProbeService periodically calls the operator so /health can report
// reachability before a chat turn discovers it.
type OperatorProbeService struct {
	scheduler gocron.Scheduler
	schedule  cron.Schedule
	cronExpr  string
	probe     ProbeFunc
	timeout   time.Duration
	now       func() time.Time

	mu    sync.RWMutex
	state OperatorHealth
}

// NewOperatorProbeService validates cronExpr (5-field) and prepares the scheduler
func NewOperatorProbeService(cronExpr string, probe ProbeFunc) (*OperatorProbeService, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	schedule, err := parser.Parse(cronExpr)
	if err != nil {
		return nil, fmt.Errorf("invalid probe cron expression %q: %w", cronExpr, err)
	}

	scheduler, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	return &OperatorProbeService{
		scheduler: scheduler,
		schedule:  schedule,
		cronExpr:  cronExpr,
		probe:     probe,
		timeout:   10 * time.Second,
		now:       time.Now,
		state:     OperatorHealth{Status: ProbeUnknown},
	}, nil
}

// Start registers the probe job and runs the first probe in the background
func (s *OperatorProbeService) Start() error {
	_, err := s.scheduler.NewJob(
		gocron.CronJob(s.cronExpr, false),
		gocron.NewTask(func() {
			s.RunOnce(context.Background())
		}),
		gocron.WithName("operator_probe"),
	)
	if err != nil {
		return fmt.Errorf("failed to register probe job: %w", err)
	}

	s.scheduler.Start()
	go s.RunOnce(context.Background())

	log.Printf("✅ [PROBE] Operator probe scheduled (%s)", s.cronExpr)
	return nil
}

// Stop stops the scheduler
func (s *OperatorProbeService) Stop() error {
	return s.scheduler.Shutdown()
}

// RunOnce probes the operator and records the result
func (s *OperatorProbeService) RunOnce(ctx context.Context) OperatorHealth {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := s.now()
	err := s.probe(ctx)
	finished := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.LastChecked = finished
	s.state.LatencyMs = finished.Sub(start).Milliseconds()
	s.state.NextRun = s.schedule.Next(finished)
	if err != nil {
		s.state.Status = ProbeUnhealthy
		s.state.FailureCount++
		s.state.LastError = err.Error()
		log.Printf("⚠️  [PROBE] Operator probe failed (%d consecutive): %v", s.state.FailureCount, err)
	} else {
		s.state.Status = ProbeHealthy
		s.state.FailureCount = 0
		s.state.LastError = ""
		s.state.LastSuccessAt = finished
	}
	return s.state
}

// Snapshot returns the last recorded operator health
func (s *OperatorProbeService) Snapshot() OperatorHealth {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}
