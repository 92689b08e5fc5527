package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/utils"
	"golang.org/x/time/rate"
)

// Store keeps one limiter per identifier. Every limiter admits a single request
// and refills it after interval, so two admitted requests of the same identifier
// are always at least interval apart.
type Store struct {
	mu           sync.Mutex
	entries      map[string]*storeEntry
	interval     time.Duration
	idleTTL      time.Duration
	cleanupEvery time.Duration
	now          func() time.Time
}

type storeEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

type StoreOption func(*Store)

func WithIdleTTL(d time.Duration) StoreOption {
	return func(s *Store) { s.idleTTL = d }
}

func WithCleanupEvery(d time.Duration) StoreOption {
	return func(s *Store) { s.cleanupEvery = d }
}

func withClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

func NewStore(interval time.Duration, opts ...StoreOption) *Store {
	s := &Store{
		entries:      make(map[string]*storeEntry),
		interval:     interval,
		idleTTL:      time.Hour,
		cleanupEvery: time.Hour,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Interval() time.Duration { return s.interval }

// Allow reports whether key may proceed now and records the attempt.
func (s *Store) Allow(key string) bool {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	ent, ok := s.entries[key]
	if !ok {
		ent = &storeEntry{lim: rate.NewLimiter(rate.Every(s.interval), 1)}
		// keys may point into fasthttp's reused request buffer
		s.entries[utils.CopyString(key)] = ent
	}
	ent.lastSeen = now
	return ent.lim.AllowN(now, 1)
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Cleanup forgets identifiers not seen for longer than the idle TTL.
func (s *Store) Cleanup() {
	cutoff := s.now().Add(-s.idleTTL)

	s.mu.Lock()
	defer s.mu.Unlock()

	for k, ent := range s.entries {
		if ent.lastSeen.Before(cutoff) {
			delete(s.entries, k)
		}
	}
}

// StartJanitor runs Cleanup periodically until ctx is done.
func (s *Store) StartJanitor(ctx context.Context) {
	if s.cleanupEvery <= 0 {
		return
	}

	t := time.NewTicker(s.cleanupEvery)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s.Cleanup()
			}
		}
	}()
}
