package camara

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aeterna/internal/config"
)

const testTable = `{
  "token": {"access_token": "table-token", "expires_in": 600},
  "populationDensity": {"forecastIndex": 0.7, "cells": [{"geohash": "qgxq0", "pplDensity": 12}]},
  "locationRetrieval": {"area": {"radius": 500}}
}`

func newTestMock(t *testing.T, data string, latency time.Duration) *MockTransport {
	t.Helper()
	return NewMockTransport(config.CamaraConfig{UseMock: true, MockLatency: latency},
		WithMockSource(StaticMockSource([]byte(data))))
}

func TestMockRequestReturnsIndependentCopies(t *testing.T) {
	tr := newTestMock(t, testTable, 0)
	ctx := context.Background()
	rc := RequestContext{Method: "POST", MockKey: "populationDensity"}

	first, err := tr.Request(ctx, rc, nil)
	require.NoError(t, err)
	firstMap := first.(map[string]interface{})
	firstMap["forecastIndex"] = "mutated"
	firstMap["cells"].([]interface{})[0].(map[string]interface{})["pplDensity"] = -1

	second, err := tr.Request(ctx, rc, nil)
	require.NoError(t, err)
	secondMap := second.(map[string]interface{})
	assert.Equal(t, 0.7, secondMap["forecastIndex"])
	assert.Equal(t, float64(12), secondMap["cells"].([]interface{})[0].(map[string]interface{})["pplDensity"])
}

func TestMockRequestRequiresMockKey(t *testing.T) {
	tr := newTestMock(t, testTable, 0)

	_, err := tr.Request(context.Background(), RequestContext{Method: "POST"}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConfiguration))
}

func TestMockRequestUnknownKey(t *testing.T) {
	tr := newTestMock(t, testTable, 0)

	_, err := tr.Request(context.Background(), RequestContext{MockKey: "weather"}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMockPayloadMissing))
	assert.Contains(t, err.Error(), "weather")
}

func TestMockTableMustBeObject(t *testing.T) {
	for _, data := range []string{`[]`, `"text"`, ``, `null`, `{"broken": `} {
		tr := newTestMock(t, data, 0)
		_, err := tr.Request(context.Background(), RequestContext{MockKey: "token"}, nil)
		require.Error(t, err, "table %q", data)
		assert.True(t, errors.Is(err, ErrInvalidMockData), "table %q", data)
		assert.True(t, errors.Is(err, ErrConfiguration), "table %q", data)
	}
}

func TestMockTokenFromTable(t *testing.T) {
	tr := newTestMock(t, testTable, 0)

	tok, err := tr.ObtainToken(context.Background(), "sim-swap")
	require.NoError(t, err)
	assert.Equal(t, "table-token", tok)
}

func TestMockTokenDefault(t *testing.T) {
	tr := newTestMock(t, `{"simSwap": {"swapped": false}}`, 0)

	tok, err := tr.ObtainToken(context.Background(), "b", "a")
	require.NoError(t, err)
	assert.Equal(t, "mock-access-token", tok)

	entry, ok := tr.tokens.lookup("a b")
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(time.Hour), entry.ExpiresAt, 5*time.Second)
}

func TestMockTableLoadedOnce(t *testing.T) {
	var loads int32
	src := func() ([]byte, error) {
		atomic.AddInt32(&loads, 1)
		time.Sleep(10 * time.Millisecond)
		return []byte(testTable), nil
	}
	tr := NewMockTransport(config.CamaraConfig{UseMock: true}, WithMockSource(src))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = tr.Request(context.Background(), RequestContext{MockKey: "locationRetrieval"}, nil)
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, atomic.LoadInt32(&loads))
}

func TestMockLatencyHonoursCancellation(t *testing.T) {
	tr := newTestMock(t, testTable, time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := tr.Request(ctx, RequestContext{MockKey: "populationDensity"}, nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestMockLatencyDoesNotSerializeCalls(t *testing.T) {
	tr := newTestMock(t, testTable, 50*time.Millisecond)
	_, err := tr.Request(context.Background(), RequestContext{MockKey: "populationDensity"}, nil)
	require.NoError(t, err)

	start := time.Now()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = tr.Request(context.Background(), RequestContext{MockKey: "populationDensity"}, nil)
		}()
	}
	wg.Wait()
	assert.Less(t, time.Since(start), 400*time.Millisecond)
}

func TestMockFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "samples.json")
	require.NoError(t, os.WriteFile(path, []byte(testTable), 0o600))

	tr := NewMockTransport(config.CamaraConfig{UseMock: true, SamplePath: path})
	got, err := tr.Request(context.Background(), RequestContext{MockKey: "locationRetrieval"}, nil)
	require.NoError(t, err)
	assert.Contains(t, got.(map[string]interface{}), "area")
}

func TestMockMissingFileIsConfigurationError(t *testing.T) {
	tr := NewMockTransport(config.CamaraConfig{UseMock: true, SamplePath: filepath.Join(t.TempDir(), "absent.json")})

	_, err := tr.Request(context.Background(), RequestContext{MockKey: "simSwap"}, nil)
	assert.True(t, errors.Is(err, ErrConfiguration))
}

func TestEmbeddedSamplesServeEveryTypedOperation(t *testing.T) {
	tr := NewMockTransport(config.CamaraConfig{UseMock: true})
	for _, key := range []string{
		MockKeyPopulationDensity,
		MockKeyLocationRetrieval,
		MockKeySimSwap,
		MockKeyQoSProfiles,
		MockKeyQualityOnDemand,
	} {
		got, err := tr.Request(context.Background(), RequestContext{MockKey: key}, nil)
		require.NoError(t, err, key)
		assert.NotNil(t, got, key)
	}
}

func TestNewTransportSelectsVariant(t *testing.T) {
	assert.Equal(t, ModeMock, NewTransport(config.CamaraConfig{UseMock: true}).Mode())
	assert.Equal(t, ModeLive, NewTransport(config.CamaraConfig{UseMock: false}).Mode())
}
