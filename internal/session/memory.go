package session

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
)

// MemoryManager keeps sessions in process; entries expire ttl after their last write.
type MemoryManager struct {
	cache *cache.Cache
	ttl   time.Duration
}

func NewMemoryManager(ttl, cleanupInterval time.Duration) *MemoryManager {
	return &MemoryManager{cache: cache.New(ttl, cleanupInterval), ttl: ttl}
}

func (m *MemoryManager) Open(sessionID string) Store {
	return &memoryStore{manager: m, prefix: sessionID + ":"}
}

type memoryStore struct {
	manager *MemoryManager
	prefix  string
}

func (s *memoryStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, ok := s.manager.cache.Get(s.prefix + key)
	if !ok {
		return "", false, nil
	}
	str, ok := v.(string)
	return str, ok, nil
}

func (s *memoryStore) Set(ctx context.Context, key, value string) error {
	s.manager.cache.Set(s.prefix+key, value, s.manager.ttl)
	return nil
}

func (s *memoryStore) Remove(ctx context.Context, key string) error {
	s.manager.cache.Delete(s.prefix + key)
	return nil
}
