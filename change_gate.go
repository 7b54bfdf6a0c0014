// Package waitgen provides gates that let any number of goroutines park until
// a generation value changes.
package waitgen

import (
	"sync/atomic"
)

// terminal is installed by Dispose. It is never registered on (its count is
// 0), retired or pooled.
var terminal = &waitNode{}

// changeGate is the part shared by ChangeCounter and ChangeID: the node of
// the current epoch and the compare-and-wait protocol around it. The
// generation itself lives in the embedding type.
//
// State:
//   - nil: not armed yet, the first waiter or signal installs a node.
//   - terminal: disposed, every wait returns at once.
//   - otherwise: the node that the next signal retires.
//
// Each signal swaps in a fresh node, updates the generation, and only then
// retires the old node. A waiter that reads the new node but still sees the
// old generation parks on the new epoch and is released by the next signal
// instead of this one; the window is a few instructions wide.
//
// Nodes are recycled, so a node pointer alone does not identify an epoch: a
// waiter delayed before registering may find the node it read installed
// again in the same gate. It compares the node's epoch as well.
type changeGate struct {
	_    noCopy
	node atomic.Pointer[waitNode]
}

// current returns the node of the current epoch, arming the gate if needed.
func (g *changeGate) current() *waitNode {
	if n := g.node.Load(); n != nil {
		return n
	}
	fresh := acquireNode()
	if g.node.CompareAndSwap(nil, fresh) {
		return fresh
	}
	idlePool.put(fresh)
	return g.node.Load()
}

// wait parks until the epoch that was current when changed() first reported
// false is retired, or until done is closed. It returns at once if the gate
// is disposed or changed() already reports true.
func (g *changeGate) wait(done <-chan struct{}, changed func() bool) {
	for {
		n := g.current()
		if n == terminal {
			return
		}
		epoch := n.epoch.Load()
		if changed() {
			return
		}
		if !n.register() {
			// Already retired and drained, so it is no longer current.
			continue
		}
		if g.node.Load() != n || n.epoch.Load() != epoch || changed() {
			// The epoch that was read has ended.
			n.release()
			return
		}
		n.park(done)
		return
	}
}

// swapEpoch installs a fresh node and returns the one it replaced, which the
// caller must retire if non-nil. It reports false if the gate is disposed.
func (g *changeGate) swapEpoch() (*waitNode, bool) {
	fresh := acquireNode()
	for {
		old := g.node.Load()
		if old == terminal {
			idlePool.put(fresh)
			return nil, false
		}
		if g.node.CompareAndSwap(old, fresh) {
			return old, true
		}
	}
}

// advance is the signal sequence: swap the node, update the generation,
// retire the old node. The order is what lets a woken waiter see the new
// generation.
func (g *changeGate) advance(update func()) {
	old, _ := g.swapEpoch()
	update()
	if old != nil {
		old.retire()
	}
}

// Dispose releases every parked waiter and makes all later waits return
// immediately with the live generation. It is idempotent.
func (g *changeGate) Dispose() {
	if old := g.node.Swap(terminal); old != nil && old != terminal {
		old.retire()
	}
}

// Disposed reports whether Dispose has been called.
func (g *changeGate) Disposed() bool {
	return g.node.Load() == terminal
}
