package ratelimit

import (
	"context"
	"sync"
	"time"
)

type window struct {
	count   int64
	resetAt time.Time
}

// MemoryStore is a process-local WindowStore. The mutex makes the
// read-modify-write atomic, so concurrent requests for the same key can
// never both observe a stale count.
type MemoryStore struct {
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
}

// NewMemoryStore creates an empty in-memory window store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

// Incr advances the counter for key, starting a fresh window when the
// current one has expired.
func (s *MemoryStore) Incr(ctx context.Context, key string, windowLen time.Duration) (int64, time.Time, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(windowLen)}
		s.windows[key] = w
	}
	w.count++

	return w.count, w.resetAt, nil
}
