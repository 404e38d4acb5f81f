package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/stayline/concierge-gateway/internal/config"
)

// MemoryWindowStore keeps sliding-window hit timestamps in process memory.
// Correct for a single gateway instance; use the Redis store when counters
// must be shared.
type MemoryWindowStore struct {
	mu      sync.Mutex
	hits    map[string][]time.Time
	stopCh  chan struct{}
	maxKeys int
}

// NewMemoryWindowStore creates a store with background cleanup of idle keys.
func NewMemoryWindowStore() *MemoryWindowStore {
	s := &MemoryWindowStore{
		hits:    make(map[string][]time.Time),
		stopCh:  make(chan struct{}),
		maxKeys: 100000,
	}
	go s.cleanupLoop()
	return s
}

// Incr records a hit and returns the in-window count and when the oldest
// in-window hit expires.
func (s *MemoryWindowStore) Incr(_ context.Context, key string, window time.Duration) (int, time.Time, error) {
	now := time.Now()
	cutoff := now.Add(-window)

	s.mu.Lock()
	defer s.mu.Unlock()

	hits := s.hits[key]
	// Drop hits that slid out of the window.
	keep := hits[:0]
	for _, h := range hits {
		if h.After(cutoff) {
			keep = append(keep, h)
		}
	}
	keep = append(keep, now)
	s.hits[key] = keep

	resetAt := keep[0].Add(window)
	return len(keep), resetAt, nil
}

// Stop stops the cleanup goroutine.
func (s *MemoryWindowStore) Stop() {
	close(s.stopCh)
}

func (s *MemoryWindowStore) cleanupLoop() {
	ticker := time.NewTicker(config.DefaultCleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

// cleanup drops keys whose newest hit is older than any plausible window.
func (s *MemoryWindowStore) cleanup() {
	cutoff := time.Now().Add(-config.DefaultCleanupInterval)

	s.mu.Lock()
	defer s.mu.Unlock()

	for key, hits := range s.hits {
		if len(hits) == 0 || hits[len(hits)-1].Before(cutoff) {
			delete(s.hits, key)
		}
	}
	// Hard cap against unbounded growth from key churn.
	if len(s.hits) > s.maxKeys {
		s.hits = make(map[string][]time.Time)
	}
}
