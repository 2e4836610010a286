package adapter

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Gate enforces a Budget: at most MaxConcurrent calls in flight, MinSpacing
// between call starts and a Timeout per call. One Gate is shared by every
// cycle that talks to the same upstream.
type Gate struct {
	budget  Budget
	sem     chan struct{}
	limiter *rate.Limiter
}

// NewGate creates a gate for budget.
func NewGate(budget Budget) *Gate {
	if budget.MaxConcurrent < 1 {
		budget.MaxConcurrent = 1
	}
	g := &Gate{
		budget: budget,
		sem:    make(chan struct{}, budget.MaxConcurrent),
	}
	if budget.MinSpacing > 0 {
		g.limiter = rate.NewLimiter(rate.Every(budget.MinSpacing), 1)
	}
	return g
}

// Budget returns the budget the gate enforces.
func (g *Gate) Budget() Budget {
	return g.budget
}

// abandonGrace is how long an abandoned call keeps its slot while it unwinds.
const abandonGrace = 2 * time.Second

type outcome[T any] struct {
	value T
	err   error
}

// Call runs fn under the gate. The per-call deadline starts once the slot and
// spacing are granted. A call still running at its deadline is abandoned and
// reported as context.DeadlineExceeded; its context is canceled so it can unwind.
// The abandoned call keeps its slot until fn returns or abandonGrace passes, so
// after the grace period a stuck call no longer counts against MaxConcurrent.
func Call[T any](ctx context.Context, g *Gate, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	select {
	case g.sem <- struct{}{}:
	case <-ctx.Done():
		return zero, ctx.Err()
	}
	held := true
	defer func() {
		if held {
			<-g.sem
		}
	}()

	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return zero, ctxErr
			}
			// Wait refuses up front when the deadline is shorter than the spacing.
			return zero, fmt.Errorf("%w: waiting for call budget: %v", context.DeadlineExceeded, err)
		}
	}

	callCtx := ctx
	cancel := context.CancelFunc(func() {})
	if g.budget.Timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, g.budget.Timeout)
	}
	defer cancel()

	done := make(chan outcome[T], 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome[T]{err: fmt.Errorf("upstream call panicked: %v\n%s", r, debug.Stack())}
			}
		}()
		v, err := fn(callCtx)
		done <- outcome[T]{value: v, err: err}
	}()

	select {
	case o := <-done:
		return o.value, o.err
	case <-callCtx.Done():
		select {
		case o := <-done:
			return o.value, o.err
		default:
		}
		held = false
		go releaseAfter(g, done)
		return zero, callCtx.Err()
	}
}

// releaseAfter frees the slot of an abandoned call once it returns.
func releaseAfter[T any](g *Gate, done <-chan outcome[T]) {
	timer := time.NewTimer(abandonGrace)
	defer timer.Stop()
	select {
	case <-done:
	case <-timer.C:
	}
	<-g.sem
}

// RunEach runs fn once per key through the gate with min(MaxConcurrent, len(keys))
// workers picking keys in order, so a budget of one call at a time is strictly
// sequential. A failing key never stops the others. When any call reports
// ErrAdapterUnavailable the remaining keys are skipped and the error is returned.
func RunEach[K comparable, T any](ctx context.Context, g *Gate, keys []K, fn func(ctx context.Context, key K) (T, error)) (map[K]Result[T], error) {
	results := make(map[K]Result[T], len(keys))
	if len(keys) == 0 {
		return results, nil
	}

	workers := g.budget.MaxConcurrent
	if workers > len(keys) {
		workers = len(keys)
	}

	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	var (
		mu          sync.Mutex
		wg          sync.WaitGroup
		unavailable error
	)
	next := make(chan K)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for key := range next {
				value, err := Call(runCtx, g, func(callCtx context.Context) (T, error) {
					return fn(callCtx, key)
				})

				mu.Lock()
				if err != nil {
					if errors.Is(err, ErrAdapterUnavailable) && unavailable == nil {
						unavailable = err
						stop()
					}
					results[key] = Failed[T](err)
				} else {
					results[key] = Result[T]{Value: value}
				}
				mu.Unlock()
			}
		}()
	}

	dispatched := make(map[K]struct{}, len(keys))
	for _, key := range keys {
		if _, dup := dispatched[key]; dup {
			continue
		}
		dispatched[key] = struct{}{}
		select {
		case next <- key:
		case <-runCtx.Done():
		}
	}
	close(next)
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	skipped := unavailable
	if skipped == nil {
		if skipped = ctx.Err(); skipped == nil {
			skipped = context.Canceled
		}
	}
	for _, key := range keys {
		if _, ok := results[key]; !ok {
			results[key] = Failed[T](skipped)
		}
	}
	return results, unavailable
}
