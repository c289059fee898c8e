package resilience

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	apperrors "github.com/kbukum/procinvoke/errors"
)

func TestLimiter_BoundsConcurrency(t *testing.T) {
	lim := NewLimiter(LimiterConfig{Name: "test", MaxConcurrent: 2})

	var current, peak atomic.Int32
	var wg sync.WaitGroup
	for range 6 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = lim.Execute(context.Background(), func() error {
				n := current.Add(1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
				time.Sleep(10 * time.Millisecond)
				current.Add(-1)
				return nil
			})
		}()
	}
	wg.Wait()

	if peak.Load() > 2 {
		t.Errorf("expected at most 2 concurrent, saw %d", peak.Load())
	}
	if lim.InUse() != 0 {
		t.Errorf("expected all slots released, got %d in use", lim.InUse())
	}
}

func TestLimiter_MaxWaitTimesOut(t *testing.T) {
	rejected := 0
	lim := NewLimiter(LimiterConfig{
		Name:          "test",
		MaxConcurrent: 1,
		MaxWait:       10 * time.Millisecond,
		OnReject:      func(string) { rejected++ },
	})
	if err := lim.Acquire(context.Background()); err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	defer lim.Release()

	err := lim.Acquire(context.Background())
	if !apperrors.HasCode(err, apperrors.ErrCodeTimeout) {
		t.Errorf("expected timeout error, got %v", err)
	}
	if rejected != 1 {
		t.Errorf("expected OnReject once, got %d", rejected)
	}
}

func TestLimiter_ContextCanceled(t *testing.T) {
	lim := NewLimiter(LimiterConfig{Name: "test", MaxConcurrent: 1})
	if err := lim.Acquire(context.Background()); err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	defer lim.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := lim.Acquire(ctx)
	if !apperrors.HasCode(err, apperrors.ErrCodeCanceled) {
		t.Errorf("expected canceled error, got %v", err)
	}
}

func TestLimiter_DefaultsToOne(t *testing.T) {
	if got := NewLimiter(LimiterConfig{}).MaxConcurrent(); got != 1 {
		t.Errorf("expected 1, got %d", got)
	}
}
