package camara

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"aeterna/internal/config"
	"aeterna/internal/metrics"
)

//go:embed samples/camara_sample_responses.json
var defaultSamples []byte

const (
	mockTokenKey      = "token"
	defaultMockToken  = "mock-access-token"
	defaultMockTTLSec = 3600
)

// MockSource returns the raw bytes of the mock payload table
type MockSource func() ([]byte, error)

// EmbeddedMockSource serves the bundled sample responses
func EmbeddedMockSource() MockSource {
	return func() ([]byte, error) { return defaultSamples, nil }
}

// FileMockSource reads the payload table from path on first use
func FileMockSource(path string) MockSource {
	return func() ([]byte, error) {
		return os.ReadFile(path)
	}
}

// StaticMockSource serves data as-is; mostly useful in tests
func StaticMockSource(data []byte) MockSource {
	return func() ([]byte, error) { return data, nil }
}

// MockTransport answers every call from a canned payload table after a
// simulated network delay. No network calls are made.
type MockTransport struct {
	source  MockSource
	latency time.Duration
	tokens  *tokenCache
	metrics *metrics.Metrics

	loadGroup singleflight.Group
	mu        sync.RWMutex
	table     map[string]json.RawMessage
}

// NewMockTransport builds a mock transport. The payload table is read from
// cfg.SamplePath when set, otherwise from the embedded samples.
func NewMockTransport(cfg config.CamaraConfig, opts ...Option) *MockTransport {
	o := buildOptions(opts)

	source := o.mockSource
	if source == nil {
		if cfg.SamplePath != "" {
			source = FileMockSource(cfg.SamplePath)
		} else {
			source = EmbeddedMockSource()
		}
	}

	latency := cfg.MockLatency
	if latency < 0 {
		latency = 0
	}

	t := &MockTransport{
		source:  source,
		latency: latency,
		metrics: o.metrics,
	}
	t.tokens = newTokenCache(t.fetchToken, o.now)
	t.tokens.onFetch = func() { t.metrics.RecordTokenRefresh(string(ModeMock)) }
	return t
}

func (t *MockTransport) Mode() Mode { return ModeMock }

// ObtainToken returns the table's token entry, or a fixed default, cached per scope.
func (t *MockTransport) ObtainToken(ctx context.Context, scopes ...string) (string, error) {
	return t.tokens.Get(ctx, ScopeKey(scopes...))
}

func (t *MockTransport) fetchToken(ctx context.Context, _ string) (string, time.Duration, error) {
	table, err := t.payloads(ctx)
	if err != nil {
		return "", 0, err
	}

	token := defaultMockToken
	ttl := time.Duration(defaultMockTTLSec) * time.Second

	if raw, ok := table[mockTokenKey]; ok {
		var entry struct {
			AccessToken *string  `json:"access_token"`
			ExpiresIn   *float64 `json:"expires_in"`
		}
		// A token entry of the wrong shape falls back to the defaults.
		if err := json.Unmarshal(raw, &entry); err == nil {
			if entry.AccessToken != nil && *entry.AccessToken != "" {
				token = *entry.AccessToken
			}
			if entry.ExpiresIn != nil {
				ttl = time.Duration(*entry.ExpiresIn * float64(time.Second))
			}
		}
	}
	return token, ttl, nil
}

// Request returns a fresh copy of the payload named by rc.MockKey.
func (t *MockTransport) Request(ctx context.Context, rc RequestContext, _ interface{}) (interface{}, error) {
	const op = "mock request"

	if rc.MockKey == "" {
		t.metrics.RecordTelcoRequest(string(ModeMock), "error")
		return nil, newError(KindConfiguration, op, "mock mode requires a mock key on the request context", nil)
	}

	table, err := t.payloads(ctx)
	if err != nil {
		t.metrics.RecordTelcoRequest(string(ModeMock), "error")
		return nil, err
	}

	raw, ok := table[rc.MockKey]
	if !ok {
		t.metrics.RecordTelcoRequest(string(ModeMock), "error")
		return nil, newError(KindMockPayloadMissing, op,
			fmt.Sprintf("mock payload %q is not defined in sample data", rc.MockKey), nil)
	}

	// Decoding the stored bytes on every call hands each caller an independent value.
	var value interface{}
	if err := json.Unmarshal(raw, &value); err != nil {
		t.metrics.RecordTelcoRequest(string(ModeMock), "error")
		return nil, newError(KindConfiguration, op, "decode mock payload "+rc.MockKey, err)
	}

	if t.latency > 0 {
		timer := time.NewTimer(t.latency)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	t.metrics.RecordTelcoRequest(string(ModeMock), "ok")
	return value, nil
}

// payloads loads the table once. Concurrent first callers share one load;
// a failed load is retried by the next caller.
func (t *MockTransport) payloads(ctx context.Context) (map[string]json.RawMessage, error) {
	t.mu.RLock()
	table := t.table
	t.mu.RUnlock()
	if table != nil {
		return table, nil
	}

	ch := t.loadGroup.DoChan("table", func() (interface{}, error) {
		t.mu.RLock()
		loaded := t.table
		t.mu.RUnlock()
		if loaded != nil {
			return loaded, nil
		}

		data, err := t.source()
		if err != nil {
			return nil, newError(KindConfiguration, "load mock payloads", "", err)
		}
		parsed, err := parseMockTable(data)
		if err != nil {
			return nil, err
		}

		t.mu.Lock()
		t.table = parsed
		t.mu.Unlock()
		return parsed, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(map[string]json.RawMessage), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func parseMockTable(data []byte) (map[string]json.RawMessage, error) {
	const op = "load mock payloads"

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, newError(KindConfiguration, op, "", ErrInvalidMockData)
	}

	var table map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &table); err != nil {
		return nil, newError(KindConfiguration, op, "", fmt.Errorf("%w: %v", ErrInvalidMockData, err))
	}
	return table, nil
}
