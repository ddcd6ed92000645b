// Package ratelimit implements the sliding-window request limiter
// applied per user+operation across the API surface.
package ratelimit

import (
	"fmt"
	"sync"
	"time"

	"github.com/vvoss-dev/reedcms/internal/obs"
	"github.com/vvoss-dev/reedcms/internal/reedstream"
)

// Limit describes an allowance of Requests per Period.
type Limit struct {
	Requests int
	Period   time.Duration
}

// Store is the storage backend a Limiter uses to track request
// timestamps. InMemoryStore and RedisStore both implement it.
type Store interface {
	// Record appends now to key's timestamp list, prunes anything older
	// than windowStart, and returns the number of timestamps remaining
	// in the window after the append.
	Record(key string, now, windowStart time.Time) (count int, err error)
	// Cleanup removes entries whose most recent timestamp is older than
	// cutoff, returning the number of entries removed.
	Cleanup(cutoff time.Time) (int, error)
}

// Limiter enforces per-user, per-operation sliding-window rate limits.
type Limiter struct {
	store Store
}

// New builds a Limiter backed by store.
func New(store Store) *Limiter {
	return &Limiter{store: store}
}

// Allow records one request for user+operation and reports whether it
// falls within limit's sliding window, raising an AuthError (mirroring
// the original's choice to surface rate limiting as an auth failure)
// when it does not.
func (l *Limiter) Allow(userID, operation string, limit Limit) error {
	key := userID + ":" + operation
	now := time.Now()
	windowStart := now.Add(-limit.Period)

	count, err := l.store.Record(key, now, windowStart)
	if err != nil {
		return err
	}

	if count > limit.Requests {
		obs.Metrics.RateLimitRejects.WithLabelValues(operation).Inc()
		return reedstream.Auth(userID, operation, fmt.Sprintf("rate limit exceeded: %d requests per %s", limit.Requests, limit.Period))
	}
	return nil
}

// InMemoryStore is the default Store: a mutex-guarded map of sorted
// request timestamps per key, matching the original's RwLock<HashMap>.
type InMemoryStore struct {
	mu      sync.Mutex
	entries map[string][]time.Time
}

// NewInMemoryStore builds an empty in-memory rate-limit store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{entries: make(map[string][]time.Time)}
}

func (s *InMemoryStore) Record(key string, now, windowStart time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.entries[key][:0]
	for _, ts := range s.entries[key] {
		if ts.After(windowStart) {
			kept = append(kept, ts)
		}
	}
	kept = append(kept, now)
	s.entries[key] = kept
	return len(kept), nil
}

func (s *InMemoryStore) Cleanup(cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, timestamps := range s.entries {
		stale := true
		for _, ts := range timestamps {
			if ts.After(cutoff) {
				stale = false
				break
			}
		}
		if stale {
			delete(s.entries, key)
			removed++
		}
	}
	return removed, nil
}

// StartCleanup runs Cleanup every interval against a 24h cutoff until
// stop is closed, mirroring the original's 5-minute background sweep.
func StartCleanup(store Store, interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n, err := store.Cleanup(time.Now().Add(-24 * time.Hour)); err == nil && n > 0 {
					obs.Logger.WithFields(map[string]any{
						"component": "ratelimit",
						"removed":   n,
					}).Debug("rate limit store cleanup")
				}
			case <-stop:
				return
			}
		}
	}()
}
