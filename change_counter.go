package waitgen

import (
	"context"
	"sync/atomic"
	"time"
)

// ChangeCounter is a gate whose generation is a counter advanced by Signal.
//
// Behavior:
//   - Wait(g): returns at once if the generation is no longer g,
//     otherwise parks until the next Signal (or Dispose).
//   - Signal(): advances the generation and wakes every parked waiter.
//   - Dispose(): wakes every parked waiter; later waits never park.
//
// Waiters do not allocate. Signal takes its next node from a process-wide
// idle pool, so steady signaling does not allocate either.
//
// It is zero-value usable (starts at generation 0).
//
// Example:
//
//	var c ChangeCounter
//	go func() {
//		gen := c.Generation()
//		for {
//			gen = c.Wait(gen)
//			reload()
//		}
//	}()
//	c.Signal()
type ChangeCounter struct {
	changeGate
	gen atomic.Uint64
}

// NewChangeCounter creates a ChangeCounter starting at generation start.
func NewChangeCounter(start uint64) *ChangeCounter {
	c := &ChangeCounter{}
	c.gen.Store(start)
	return c
}

// Generation returns the live generation.
func (c *ChangeCounter) Generation() uint64 {
	return c.gen.Load()
}

// Signal advances the generation by one, wakes every goroutine parked on
// the previous generation and returns the new generation.
// After Dispose it still advances the generation.
func (c *ChangeCounter) Signal() uint64 {
	var next uint64
	c.advance(func() {
		next = c.gen.Add(1)
	})
	return next
}

// Wait blocks until the generation differs from known, or the gate is
// disposed, and returns the live generation.
func (c *ChangeCounter) Wait(known uint64) uint64 {
	c.wait(nil, func() bool { return c.gen.Load() != known })
	return c.gen.Load()
}

// WaitContext is like Wait but gives up when ctx is done. Expiry is not an
// error: the returned generation is then simply still equal to known.
func (c *ChangeCounter) WaitContext(ctx context.Context, known uint64) uint64 {
	c.wait(ctx.Done(), func() bool { return c.gen.Load() != known })
	return c.gen.Load()
}

// WaitTimeout is like Wait but gives up after d.
func (c *ChangeCounter) WaitTimeout(known uint64, d time.Duration) uint64 {
	if gen := c.gen.Load(); gen != known || c.Disposed() {
		return gen
	}
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	return c.WaitContext(ctx, known)
}

// WaitAtLeast blocks until the generation reaches target. It reports false
// if ctx ends or the gate is disposed first.
func (c *ChangeCounter) WaitAtLeast(ctx context.Context, target uint64) (uint64, bool) {
	gen := c.gen.Load()
	for gen < target {
		if ctx.Err() != nil || c.Disposed() {
			return gen, false
		}
		gen = c.WaitContext(ctx, gen)
	}
	return gen, true
}
