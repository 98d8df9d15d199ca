package contracttest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	memclock "github.com/Overland-East-Bay/idem-ops-api/internal/adapters/memory/clock"
	"github.com/Overland-East-Bay/idem-ops-api/internal/domain"
	clockport "github.com/Overland-East-Bay/idem-ops-api/internal/ports/out/clock"
	idempotencyport "github.com/Overland-East-Bay/idem-ops-api/internal/ports/out/idempotency"
)

type CleanupFunc = func()

// KeyStoreFactory builds a store that reads time from clk and retains records for exactly
// domain.LongestWindow().Size.
type KeyStoreFactory func(t *testing.T, clk clockport.Clock) (idempotencyport.KeyStore, CleanupFunc)

func RunKeyStore(t *testing.T, newStore KeyStoreFactory) {
	t.Helper()

	open := func(t *testing.T) (idempotencyport.KeyStore, *memclock.ManualClock) {
		t.Helper()
		clk := memclock.NewManualClock(time.Unix(1_700_000_000, 0).UTC())
		store, cleanup := newStore(t, clk)
		if cleanup != nil {
			t.Cleanup(cleanup)
		}
		return store, clk
	}
	retention := domain.LongestWindow().Size

	t.Run("FirstThenRepeat", func(t *testing.T) {
		ctx := context.Background()
		store, _ := open(t)

		key := domain.IdempotencyKey("k-1")
		got, err := store.Observe(ctx, key)
		if err != nil {
			t.Fatalf("Observe first: %v", err)
		}
		if !got.WasNew || got.Record.HitCount != 1 || got.Record.Key != key {
			t.Fatalf("first observe: got %+v want WasNew=true HitCount=1", got)
		}
		for i := 2; i <= 3; i++ {
			got, err = store.Observe(ctx, key)
			if err != nil {
				t.Fatalf("Observe #%d: %v", i, err)
			}
			if got.WasNew || got.Record.HitCount != i {
				t.Fatalf("observe #%d: got %+v want WasNew=false HitCount=%d", i, got, i)
			}
		}
		if n := store.Len(); n != 1 {
			t.Fatalf("Len: got %d want 1", n)
		}

		other, err := store.Observe(ctx, "k-2")
		if err != nil || !other.WasNew {
			t.Fatalf("distinct key: got %+v err=%v want WasNew=true", other, err)
		}
	})

	t.Run("EmptyKeyRejected", func(t *testing.T) {
		store, _ := open(t)
		if _, err := store.Observe(context.Background(), ""); !errors.Is(err, idempotencyport.ErrEmptyKey) {
			t.Fatalf("Observe(\"\"): got err=%v want ErrEmptyKey", err)
		}
		if n := store.Len(); n != 0 {
			t.Fatalf("Len: got %d want 0", n)
		}
	})

	t.Run("ExpiryBoundary", func(t *testing.T) {
		ctx := context.Background()
		store, clk := open(t)

		if _, err := store.Observe(ctx, "k-exp"); err != nil {
			t.Fatalf("Observe: %v", err)
		}
		clk.Advance(retention - time.Nanosecond)
		got, err := store.Observe(ctx, "k-exp")
		if err != nil {
			t.Fatalf("Observe before boundary: %v", err)
		}
		if got.WasNew {
			t.Fatalf("just inside retention: got WasNew=true want false")
		}

		// The boundary is measured from the first observation, not the latest one.
		clk.Advance(time.Nanosecond)
		got, err = store.Observe(ctx, "k-exp")
		if err != nil {
			t.Fatalf("Observe at boundary: %v", err)
		}
		if !got.WasNew || got.Record.HitCount != 1 {
			t.Fatalf("at retention boundary: got %+v want fresh record", got)
		}
	})

	t.Run("SweepEvictsOnlyExpired", func(t *testing.T) {
		ctx := context.Background()
		store, clk := open(t)

		if _, err := store.Observe(ctx, "old"); err != nil {
			t.Fatalf("Observe old: %v", err)
		}
		clk.Advance(retention / 2)
		if _, err := store.Observe(ctx, "young"); err != nil {
			t.Fatalf("Observe young: %v", err)
		}
		clk.Advance(retention / 2)

		n, err := store.Sweep(ctx)
		if err != nil {
			t.Fatalf("Sweep: %v", err)
		}
		if n != 1 {
			t.Fatalf("Sweep evicted: got %d want 1", n)
		}
		if l := store.Len(); l != 1 {
			t.Fatalf("Len after sweep: got %d want 1", l)
		}
		got, err := store.Observe(ctx, "young")
		if err != nil || got.WasNew {
			t.Fatalf("young key after sweep: got %+v err=%v want dupe", got, err)
		}
	})

	t.Run("ClockBackwardRetains", func(t *testing.T) {
		ctx := context.Background()
		store, clk := open(t)

		if _, err := store.Observe(ctx, "k-skew"); err != nil {
			t.Fatalf("Observe: %v", err)
		}
		clk.Advance(-2 * time.Hour)
		if n, err := store.Sweep(ctx); err != nil || n != 0 {
			t.Fatalf("Sweep after backward jump: n=%d err=%v want 0,nil", n, err)
		}
		got, err := store.Observe(ctx, "k-skew")
		if err != nil || got.WasNew {
			t.Fatalf("after backward jump: got %+v err=%v want dupe", got, err)
		}
	})

	t.Run("ConcurrentSameKey", func(t *testing.T) {
		ctx := context.Background()
		store, _ := open(t)

		const n = 64
		key := domain.IdempotencyKey(uuid.NewString())
		var (
			wg    sync.WaitGroup
			mu    sync.Mutex
			fresh int
			dupes int
		)
		start := make(chan struct{})
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				got, err := store.Observe(ctx, key)
				if err != nil {
					t.Errorf("Observe: %v", err)
					return
				}
				mu.Lock()
				defer mu.Unlock()
				if got.WasNew {
					fresh++
				} else {
					dupes++
				}
			}()
		}
		close(start)
		wg.Wait()

		if fresh != 1 || dupes != n-1 {
			t.Fatalf("concurrent observe: fresh=%d dupes=%d want 1,%d", fresh, dupes, n-1)
		}
	})

	t.Run("Reset", func(t *testing.T) {
		ctx := context.Background()
		store, _ := open(t)

		if _, err := store.Observe(ctx, "k-reset"); err != nil {
			t.Fatalf("Observe: %v", err)
		}
		store.Reset()
		if n := store.Len(); n != 0 {
			t.Fatalf("Len after Reset: got %d want 0", n)
		}
		got, err := store.Observe(ctx, "k-reset")
		if err != nil || !got.WasNew {
			t.Fatalf("after Reset: got %+v err=%v want WasNew=true", got, err)
		}
	})
}
