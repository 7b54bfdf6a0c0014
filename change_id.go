package waitgen

import (
	"context"
	"sync/atomic"
	"time"
)

// ChangeID is a gate whose generation is an identifier chosen by the
// producer, such as a version string or a content hash. Only equality with a
// remembered value matters, so the identifier may repeat or go backwards.
//
// Set always starts a new epoch, even if the identifier is unchanged:
// waiters parked on the old epoch wake up and see the (equal) value.
//
// It is zero-value usable (starts at the zero T).
type ChangeID[T comparable] struct {
	changeGate
	id atomic.Pointer[T]
}

// NewChangeID creates a ChangeID holding initial.
func NewChangeID[T comparable](initial T) *ChangeID[T] {
	c := &ChangeID[T]{}
	c.id.Store(&initial)
	return c
}

// Generation returns the live identifier.
func (c *ChangeID[T]) Generation() T {
	if p := c.id.Load(); p != nil {
		return *p
	}
	var zero T
	return zero
}

// Set replaces the identifier and wakes every parked goroutine.
func (c *ChangeID[T]) Set(id T) {
	c.advance(func() {
		c.id.Store(&id)
	})
}

// Wait blocks until the identifier differs from known, a Set starts a new
// epoch, or the gate is disposed, and returns the live identifier.
func (c *ChangeID[T]) Wait(known T) T {
	c.wait(nil, func() bool { return c.Generation() != known })
	return c.Generation()
}

// WaitContext is like Wait but gives up when ctx is done.
func (c *ChangeID[T]) WaitContext(ctx context.Context, known T) T {
	c.wait(ctx.Done(), func() bool { return c.Generation() != known })
	return c.Generation()
}

// WaitTimeout is like Wait but gives up after d.
func (c *ChangeID[T]) WaitTimeout(known T, d time.Duration) T {
	if id := c.Generation(); id != known || c.Disposed() {
		return id
	}
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	return c.WaitContext(ctx, known)
}
