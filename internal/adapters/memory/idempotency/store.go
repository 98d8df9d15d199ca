package idempotency

import (
	"context"
	"sync"
	"time"

	"github.com/Overland-East-Bay/idem-ops-api/internal/domain"
	clockport "github.com/Overland-East-Bay/idem-ops-api/internal/ports/out/clock"
	"github.com/Overland-East-Bay/idem-ops-api/internal/ports/out/idempotency"
)

// Store is an in-memory implementation of idempotency.KeyStore.
// It is safe for concurrent use.
//
// Records expire once their age reaches the retention period. Expiry is enforced lazily on
// Observe and eagerly by Sweep; both run under the same mutex, so a sweep can never remove a
// record that a concurrent Observe is reading or writing.
type Store struct {
	clk       clockport.Clock
	retention time.Duration

	mu sync.Mutex
	m  map[domain.IdempotencyKey]*idempotency.Record
}

// NewStore returns a Store whose records live for retention. Retention is never shorter than
// the longest tracked window; smaller values are raised to it.
func NewStore(clk clockport.Clock, retention time.Duration) *Store {
	if floor := domain.LongestWindow().Size; retention < floor {
		retention = floor
	}
	return &Store{
		clk:       clk,
		retention: retention,
		m:         make(map[domain.IdempotencyKey]*idempotency.Record),
	}
}

func (s *Store) Retention() time.Duration { return s.retention }

func (s *Store) Observe(ctx context.Context, key domain.IdempotencyKey) (idempotency.Result, error) {
	_ = ctx
	if key == "" {
		return idempotency.Result{}, idempotency.ErrEmptyKey
	}
	now := s.clk.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.m[key]; ok && !s.expired(rec, now) {
		rec.HitCount++
		return idempotency.Result{WasNew: false, Record: *rec}, nil
	}

	rec := &idempotency.Record{Key: key, FirstSeenAt: now, HitCount: 1}
	s.m[key] = rec
	return idempotency.Result{WasNew: true, Record: *rec}, nil
}

func (s *Store) Sweep(ctx context.Context) (int, error) {
	now := s.clk.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for k, rec := range s.m {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		if s.expired(rec, now) {
			delete(s.m, k)
			n++
		}
	}
	return n, nil
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.m)
}

func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m = make(map[domain.IdempotencyKey]*idempotency.Record)
}

// expired reports whether rec is at or past its retention boundary.
// A negative age (clock moved backward) keeps the record.
func (s *Store) expired(rec *idempotency.Record, now time.Time) bool {
	return now.Sub(rec.FirstSeenAt) >= s.retention
}

var _ idempotency.KeyStore = (*Store)(nil)
