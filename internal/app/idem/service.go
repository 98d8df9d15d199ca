package idem

import (
	"context"
	"sync"
	"time"

	"github.com/Overland-East-Bay/idem-ops-api/internal/domain"
	clockport "github.com/Overland-East-Bay/idem-ops-api/internal/ports/out/clock"
	"github.com/Overland-East-Bay/idem-ops-api/internal/ports/out/idempotency"
)

// Service owns the process-wide idempotency state: the key store, the windowed counter, and
// the guard/reporter built on them. Construct one at startup and hand it to the HTTP layer.
type Service struct {
	store   idempotency.KeyStore
	counter *WindowedCounter
	guard   *Guard
	report  *Reporter

	// Logf receives sweeper messages. Defaults to a no-op.
	Logf func(format string, args ...any)

	mu          sync.Mutex
	stopSweeper context.CancelFunc
	sweeperWG   sync.WaitGroup
	closed      bool
}

func NewService(store idempotency.KeyStore, clk clockport.Clock) *Service {
	return NewServiceWithSlots(store, clk, DefaultSlotsPerWindow)
}

func NewServiceWithSlots(store idempotency.KeyStore, clk clockport.Clock, slotsPerWindow int) *Service {
	counter := NewWindowedCounter(clk, slotsPerWindow)
	return &Service{
		store:   store,
		counter: counter,
		guard:   NewGuard(store, counter),
		report:  NewReporter(counter, store),
		Logf:    func(string, ...any) {},
	}
}

// Classify runs the guard for one request. See Guard.Classify.
func (s *Service) Classify(ctx context.Context, rawKey string) (domain.Observation, error) {
	return s.guard.Classify(ctx, rawKey)
}

func (s *Service) Stats() Stats { return s.report.GetStats() }

func (s *Service) TrackedKeys() int { return s.store.Len() }

// Reset drops every key and zeroes every window.
func (s *Service) Reset() {
	s.store.Reset()
	s.counter.Reset()
}

// RunSweeper evicts expired keys every interval until ctx is done.
// A non-positive interval returns immediately; lazy expiry on observe still applies.
func (s *Service) RunSweeper(ctx context.Context, every time.Duration) {
	if every <= 0 {
		return
	}
	t := time.NewTicker(every)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := s.store.Sweep(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				s.Logf("idempotency sweep failed: %v", err)
				continue
			}
			if n > 0 {
				s.Logf("idempotency sweep: evicted %d keys, %d tracked", n, s.store.Len())
			}
		}
	}
}

// StartSweeper runs RunSweeper in the background until Close. Only the first call starts a
// sweeper; later calls and calls after Close are no-ops.
func (s *Service) StartSweeper(every time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.stopSweeper != nil || every <= 0 {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.stopSweeper = cancel
	s.sweeperWG.Add(1)
	go func() {
		defer s.sweeperWG.Done()
		s.RunSweeper(ctx, every)
	}()
}

// Close stops the background sweeper and waits for it to exit. It is safe to call more than once.
func (s *Service) Close() {
	s.mu.Lock()
	s.closed = true
	stop := s.stopSweeper
	s.stopSweeper = nil
	s.mu.Unlock()

	if stop != nil {
		stop()
	}
	s.sweeperWG.Wait()
}
