package waitgen

import (
	"context"

	"github.com/llxisdsh/pb"
)

// CounterGroup keeps one ChangeCounter per key, such as a topic, a tenant or
// a config path.
//
// Features:
//   - Infinite Keys: counters are created on first Signal or Wait.
//   - Remove disposes the key's counter, releasing its parked waiters.
//
// Usage:
//
//	var group CounterGroup[string]
//
//	// Watcher
//	gen := group.Generation("config")
//	gen = group.Wait(ctx, "config", gen)
//
//	// Producer
//	group.Signal("config")
type CounterGroup[K comparable] struct {
	_ noCopy
	m pb.MapOf[K, *ChangeCounter]
}

// Counter returns the counter for k, creating it if needed.
func (g *CounterGroup[K]) Counter(k K) *ChangeCounter {
	if c, ok := g.m.Load(k); ok {
		return c
	}
	c, _ := g.m.ProcessEntry(
		k,
		func(e *pb.EntryOf[K, *ChangeCounter]) (*pb.EntryOf[K, *ChangeCounter], *ChangeCounter, bool) {
			if e != nil {
				return e, e.Value, true
			}
			c := &ChangeCounter{}
			return &pb.EntryOf[K, *ChangeCounter]{Value: c}, c, false
		},
	)
	return c
}

// Generation returns the generation of k, or 0 if k has no counter.
func (g *CounterGroup[K]) Generation(k K) uint64 {
	if c, ok := g.m.Load(k); ok {
		return c.Generation()
	}
	return 0
}

// Signal advances the counter of k and returns its new generation.
func (g *CounterGroup[K]) Signal(k K) uint64 {
	return g.Counter(k).Signal()
}

// Wait blocks until the generation of k differs from known, ctx is done, or
// k is removed, and returns the live generation.
func (g *CounterGroup[K]) Wait(ctx context.Context, k K, known uint64) uint64 {
	return g.Counter(k).WaitContext(ctx, known)
}

// Remove deletes the counter of k and disposes it. Goroutines parked on it
// return with its last generation; a later Signal or Wait on k starts a new
// counter at 0. It reports whether k was present.
func (g *CounterGroup[K]) Remove(k K) bool {
	c, ok := g.m.ProcessEntry(
		k,
		func(e *pb.EntryOf[K, *ChangeCounter]) (*pb.EntryOf[K, *ChangeCounter], *ChangeCounter, bool) {
			if e == nil {
				return nil, nil, false
			}
			return nil, e.Value, true
		},
	)
	if ok {
		c.Dispose()
	}
	return ok
}

// Len returns the number of keys with a counter.
func (g *CounterGroup[K]) Len() int {
	return g.m.Size()
}

// Range calls fn for each key and its generation until fn returns false.
func (g *CounterGroup[K]) Range(fn func(k K, gen uint64) bool) {
	g.m.Range(func(k K, c *ChangeCounter) bool {
		return fn(k, c.Generation())
	})
}
