package ratelimit

import (
	"context"
	"sync"
	"time"
)

type attempt struct {
	at      time.Time
	blocked bool
}

type bucket struct {
	cfg      Config
	attempts []attempt
}

// MemoryStore keeps attempt history in process memory.
type MemoryStore struct {
	mu      sync.Mutex
	buckets map[string]*bucket
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{buckets: make(map[string]*bucket)}
}

// Hit implements Store.
func (s *MemoryStore) Hit(_ context.Context, key string, cfg Config, now time.Time) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.buckets[key]
	var history []attempt
	if b != nil {
		history = b.attempts
	}

	kept, res := evaluate(history, cfg, now, true)
	s.buckets[key] = &bucket{cfg: cfg, attempts: kept}
	return res, nil
}

// Peek implements Store.
func (s *MemoryStore) Peek(_ context.Context, key string, cfg Config, now time.Time) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var history []attempt
	if b := s.buckets[key]; b != nil {
		history = b.attempts
	}
	_, res := evaluate(history, cfg, now, false)
	return res, nil
}

// Reset implements Store.
func (s *MemoryStore) Reset(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.buckets, key)
	s.mu.Unlock()
	return nil
}

// Cleanup drops buckets with no live entries and returns how many were removed.
func (s *MemoryStore) Cleanup(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, b := range s.buckets {
		b.attempts = prune(b.attempts, b.cfg, now)
		if len(b.attempts) == 0 {
			delete(s.buckets, key)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of tracked keys.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buckets)
}

// prune keeps entries still inside their lifetime. Block markers live for the block duration.
func prune(history []attempt, cfg Config, now time.Time) []attempt {
	kept := make([]attempt, 0, len(history))
	for _, a := range history {
		ttl := cfg.Window
		if a.blocked && cfg.BlockDuration > 0 {
			ttl = cfg.BlockDuration
		}
		if now.Sub(a.at) < ttl {
			kept = append(kept, a)
		}
	}
	return kept
}

// evaluate runs the sliding window decision over history and returns the new history.
func evaluate(history []attempt, cfg Config, now time.Time, record bool) ([]attempt, Result) {
	kept := prune(history, cfg, now)

	for _, a := range kept {
		if a.blocked {
			return kept, Result{
				Allowed:           false,
				RemainingAttempts: 0,
				ResetTime:         a.at.Add(cfg.resetAfter()),
				IsBlocked:         true,
			}
		}
	}

	if len(kept) >= cfg.MaxAttempts {
		if record && cfg.BlockDuration > 0 {
			kept = append(kept, attempt{at: now, blocked: true})
		}
		return kept, Result{
			Allowed:           false,
			RemainingAttempts: 0,
			ResetTime:         now.Add(cfg.resetAfter()),
			IsBlocked:         cfg.BlockDuration > 0,
		}
	}

	remaining := cfg.MaxAttempts - len(kept)
	if record {
		kept = append(kept, attempt{at: now})
		remaining--
	}
	return kept, Result{
		Allowed:           true,
		RemainingAttempts: remaining,
		ResetTime:         now.Add(cfg.Window),
		IsBlocked:         false,
	}
}
