package camara

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestScopeKey(t *testing.T) {
	tests := []struct {
		name   string
		scopes []string
		want   string
	}{
		{"empty", nil, ""},
		{"single", []string{"sim-swap"}, "sim-swap"},
		{"sorted", []string{"b", "a"}, "a b"},
		{"deduplicated", []string{"a", "b", "a"}, "a b"},
		{"space separated input", []string{"b a", "a"}, "a b"},
		{"extra whitespace", []string{"  qos   location "}, "location qos"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ScopeKey(tt.scopes...))
		})
	}
}

func TestScopeKeyOrderAndDuplicateInsensitive(t *testing.T) {
	assert.Equal(t, ScopeKey("b", "a"), ScopeKey("a", "b", "a"))
}

func TestNewCorrelator(t *testing.T) {
	at := time.Date(2025, 5, 17, 5, 42, 10, 123456789, time.FixedZone("AEST", 10*3600))
	assert.Equal(t, "aeterna-20250516T194210Z-123456", NewCorrelator(at))
}
