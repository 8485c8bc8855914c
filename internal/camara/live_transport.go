package camara

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"

	"aeterna/internal/config"
	"aeterna/internal/metrics"
)

// Credentials identify this client to the operator's token endpoint
type Credentials struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
}

// LiveTransport talks to the operator platform with client-credentials tokens
type LiveTransport struct {
	creds      Credentials
	httpClient *http.Client
	tokens     *tokenCache
	limiter    *rate.Limiter
	logger     *logrus.Logger
	metrics    *metrics.Metrics
	now        func() time.Time
}

// NewLiveTransport builds the live transport from cfg
func NewLiveTransport(cfg config.CamaraConfig, opts ...Option) *LiveTransport {
	o := buildOptions(opts)

	httpClient := o.httpClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	logger := o.logger
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	limit := rate.Inf
	burst := 1
	if cfg.RateLimitRPS > 0 {
		limit = rate.Limit(cfg.RateLimitRPS)
		burst = int(cfg.RateLimitRPS)
		if burst < 1 {
			burst = 1
		}
	}

	t := &LiveTransport{
		creds: Credentials{
			TokenURL:     cfg.TokenURL,
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
		},
		httpClient: httpClient,
		limiter:    rate.NewLimiter(limit, burst),
		logger:     logger,
		metrics:    o.metrics,
		now:        o.now,
	}
	t.tokens = newTokenCache(t.fetchToken, o.now)
	t.tokens.onFetch = func() { t.metrics.RecordTokenRefresh(string(ModeLive)) }

	logger.WithFields(logrus.Fields{
		"token_url": cfg.TokenURL,
		"timeout":   httpClient.Timeout.String(),
	}).Info("CAMARA live transport initialized")
	return t
}

func (t *LiveTransport) Mode() Mode { return ModeLive }

// ObtainToken returns a cached bearer token for scopes, fetching one if needed.
func (t *LiveTransport) ObtainToken(ctx context.Context, scopes ...string) (string, error) {
	return t.tokens.Get(ctx, ScopeKey(scopes...))
}

func (t *LiveTransport) fetchToken(ctx context.Context, scopeKey string) (string, time.Duration, error) {
	const op = "obtain token"

	cc := clientcredentials.Config{
		ClientID:     t.creds.ClientID,
		ClientSecret: t.creds.ClientSecret,
		TokenURL:     t.creds.TokenURL,
		Scopes:       strings.Fields(scopeKey),
		AuthStyle:    oauth2.AuthStyleInHeader,
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, t.httpClient)
	tok, err := cc.Token(ctx)
	if err != nil {
		cerr := newError(KindTokenAcquisition, op, "", err)
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.Response != nil {
			cerr.StatusCode = re.Response.StatusCode
			cerr.Message = "token endpoint rejected the request"
		}
		t.logger.WithFields(logrus.Fields{
			"scope":  scopeKey,
			"status": cerr.StatusCode,
		}).Warn("CAMARA token acquisition failed")
		return "", 0, cerr
	}
	if tok.AccessToken == "" {
		return "", 0, newError(KindTokenAcquisition, op, "token response missing access_token", nil)
	}

	ttl := defaultTokenTTL
	if !tok.Expiry.IsZero() {
		ttl = time.Until(tok.Expiry)
	}
	t.logger.WithField("scope", scopeKey).Debug("CAMARA token acquired")
	return tok.AccessToken, ttl, nil
}

// Request performs one authorized call and decodes the JSON response.
// An empty response body yields nil.
func (t *LiveTransport) Request(ctx context.Context, rc RequestContext, payload interface{}) (interface{}, error) {
	const op = "request"

	if err := t.limiter.Wait(ctx); err != nil {
		t.metrics.RecordTelcoRequest(string(ModeLive), "error")
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		// The wait would outlast the caller's deadline.
		return nil, newError(KindUpstream, op, "outbound rate limit", err)
	}

	token, err := t.ObtainToken(ctx, rc.Scope)
	if err != nil {
		t.metrics.RecordTelcoRequest(string(ModeLive), "error")
		return nil, err
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, newError(KindConfiguration, op, "marshal request payload", err)
		}
		body = bytes.NewReader(data)
	}

	method := rc.Method
	if method == "" {
		method = http.MethodPost
	}
	req, err := http.NewRequestWithContext(ctx, method, rc.URL, body)
	if err != nil {
		return nil, newError(KindConfiguration, op, "build request", err)
	}

	correlator := NewCorrelator(t.now())
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("x-correlator", correlator)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range rc.Headers {
		req.Header.Set(k, v)
	}

	log := t.logger.WithFields(logrus.Fields{
		"method":     method,
		"url":        rc.URL,
		"scope":      rc.Scope,
		"correlator": correlator,
	})

	start := time.Now()
	resp, err := t.httpClient.Do(req)
	if err != nil {
		t.metrics.RecordTelcoRequest(string(ModeLive), "error")
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.WithError(err).Warn("CAMARA request failed")
		return nil, newError(KindUpstream, op, "request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		t.metrics.RecordTelcoRequest(string(ModeLive), "error")
		return nil, newError(KindUpstream, op, "read response", err)
	}

	log = log.WithFields(logrus.Fields{
		"status":      resp.StatusCode,
		"duration_ms": time.Since(start).Milliseconds(),
	})

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		t.metrics.RecordTelcoRequest(string(ModeLive), "error")
		log.Warn("CAMARA upstream returned an error status")
		return nil, &Error{
			Kind:       KindUpstream,
			Op:         op,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("%s %s: %s", method, rc.URL, truncate(string(respBody), 200)),
		}
	}

	log.Info("CAMARA request completed")
	t.metrics.RecordTelcoRequest(string(ModeLive), "ok")

	if len(respBody) == 0 {
		return nil, nil
	}
	return decodeBody(resp.Header.Get("Content-Type"), respBody)
}

// decodeBody parses JSON bodies. A body declared as JSON must parse; any
// other body is parsed best-effort and returned as text when it is not JSON.
func decodeBody(contentType string, body []byte) (interface{}, error) {
	var value interface{}
	err := json.Unmarshal(body, &value)
	if strings.Contains(contentType, "application/json") {
		if err != nil {
			return nil, newError(KindUpstream, "request", "invalid JSON response", err)
		}
		return value, nil
	}
	if err != nil {
		return string(body), nil
	}
	return value, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
