package camara

import (
	"context"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"aeterna/internal/config"
	"aeterna/internal/metrics"
)

// Mode identifies which transport variant is serving calls
type Mode string

const (
	ModeMock Mode = "mock"
	ModeLive Mode = "live"
)

// RequestContext describes one outbound call
type RequestContext struct {
	Method  string
	URL     string
	Scope   string
	MockKey string // Required in mock mode; names an entry of the payload table
	Headers map[string]string
}

// Transport executes telco calls. The mock and live variants behave the same
// from the caller's side: both return decoded JSON values (maps, slices,
// strings, float64, bool or nil).
type Transport interface {
	Mode() Mode
	ObtainToken(ctx context.Context, scopes ...string) (string, error)
	Request(ctx context.Context, rc RequestContext, payload interface{}) (interface{}, error)
}

// Option customizes a transport at construction
type Option func(*options)

type options struct {
	now        func() time.Time
	httpClient *http.Client
	mockSource MockSource
	logger     *logrus.Logger
	metrics    *metrics.Metrics
}

// WithClock injects the clock used by the token cache
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithHTTPClient replaces the live transport's HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithMockSource replaces where the mock payload table is read from
func WithMockSource(src MockSource) Option {
	return func(o *options) { o.mockSource = src }
}

// WithLogger replaces the live transport's request logger
func WithLogger(l *logrus.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics records transport activity
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// NewTransport selects the mock or live variant once, from cfg.UseMock.
func NewTransport(cfg config.CamaraConfig, opts ...Option) Transport {
	if cfg.UseMock {
		return NewMockTransport(cfg, opts...)
	}
	return NewLiveTransport(cfg, opts...)
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
