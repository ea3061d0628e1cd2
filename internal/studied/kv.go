// Package studied remembers which pages a learner has seen and their display
// preferences, on top of a small key-value store.
package studied

import (
	"context"
	"sync"
	"time"
)

// KV is a string key-value store with per-key expiry.
type KV interface {
	// Get returns the value for key. ok is false when the key is absent or expired.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	// Set stores value under key. A zero ttl means no expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

type memoryItem struct {
	value   string
	expires time.Time
}

// MemoryKV is an in-memory KV.
type MemoryKV struct {
	items map[string]memoryItem
	mu    sync.RWMutex
	now   func() time.Time
}

// NewMemoryKV creates an empty in-memory store.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{
		items: make(map[string]memoryItem),
		now:   time.Now,
	}
}

func (s *MemoryKV) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[key]
	if !ok {
		return "", false, nil
	}
	if !item.expires.IsZero() && !s.now().Before(item.expires) {
		return "", false, nil
	}
	return item.value, true, nil
}

func (s *MemoryKV) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	item := memoryItem{value: value}
	if ttl > 0 {
		item.expires = s.now().Add(ttl)
	}
	s.items[key] = item
	return nil
}
