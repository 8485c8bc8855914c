package maas

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// ResourceKind names one of the two per-persona resource tracks
type ResourceKind string

const (
	KindKnowledgeBase ResourceKind = "knowledge-base"
	KindAssistant     ResourceKind = "assistant"
)

// ResourceStore memoizes remote resource ids per persona. Ids are never
// removed; the first id written for a persona wins.
type ResourceStore interface {
	Get(ctx context.Context, kind ResourceKind, persona string) (string, bool, error)
	// SetIfAbsent stores id unless one exists and returns the id now on record.
	SetIfAbsent(ctx context.Context, kind ResourceKind, persona, id string) (string, error)
}

// MemoryResourceStore keeps ids for the life of the process
type MemoryResourceStore struct {
	mu  sync.RWMutex
	ids map[ResourceKind]map[string]string
}

func NewMemoryResourceStore() *MemoryResourceStore {
	return &MemoryResourceStore{ids: make(map[ResourceKind]map[string]string)}
}

func (s *MemoryResourceStore) Get(_ context.Context, kind ResourceKind, persona string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.ids[kind][persona]
	return id, ok, nil
}

func (s *MemoryResourceStore) SetIfAbsent(_ context.Context, kind ResourceKind, persona, id string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byPersona, ok := s.ids[kind]
	if !ok {
		byPersona = make(map[string]string)
		s.ids[kind] = byPersona
	}
	if existing, ok := byPersona[persona]; ok {
		return existing, nil
	}
	byPersona[persona] = id
	return id, nil
}

// RedisResourceStore shares ids between instances pointed at the same Redis
type RedisResourceStore struct {
	client *redis.Client
	prefix string
}

func NewRedisResourceStore(client *redis.Client) *RedisResourceStore {
	return &RedisResourceStore{client: client, prefix: "aeterna:maas:"}
}

func (s *RedisResourceStore) key(kind ResourceKind, persona string) string {
	return fmt.Sprintf("%s%s:%s", s.prefix, kind, persona)
}

func (s *RedisResourceStore) Get(ctx context.Context, kind ResourceKind, persona string) (string, bool, error) {
	id, err := s.client.Get(ctx, s.key(kind, persona)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %s id for %s: %w", kind, persona, err)
	}
	return id, true, nil
}

func (s *RedisResourceStore) SetIfAbsent(ctx context.Context, kind ResourceKind, persona, id string) (string, error) {
	key := s.key(kind, persona)
	stored, err := s.client.SetNX(ctx, key, id, 0).Result()
	if err != nil {
		return "", fmt.Errorf("store %s id for %s: %w", kind, persona, err)
	}
	if stored {
		return id, nil
	}

	existing, err := s.client.Get(ctx, key).Result()
	if err != nil {
		return "", fmt.Errorf("read %s id for %s: %w", kind, persona, err)
	}
	return existing, nil
}
