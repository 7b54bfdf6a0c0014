package waitgen

import (
	"sync/atomic"
)

// waitNode is the broadcast point of a single epoch of a gate.
//
// Reference count:
//   - Starts at 1, the owner's hold, which retire drops.
//   - register adds 1 per waiter; the waiter drops it when it leaves park,
//     woken or not.
//   - Whoever drops it to 0 drains the node and offers it to the idle pool.
//     A node at 0 refuses registrations until it has been reset.
//
// Wake is relayed: retire puts the only token of the epoch into the cap-1
// wake channel, and every waiter that takes it puts it back before leaving,
// so one channel releases any number of waiters without allocating.
//
// epoch changes every time the node is handed out again, so a waiter can
// tell a recycled node from the one it first read even if it came back to
// the same gate.
//
// Size: 16 bytes (8 byte chan + 4 byte refs + 4 byte epoch).
type waitNode struct {
	wake  chan struct{}
	refs  atomic.Int32
	epoch atomic.Uint32
}

func newWaitNode() *waitNode {
	n := &waitNode{wake: make(chan struct{}, 1)}
	n.refs.Store(1)
	return n
}

// register adds the caller to the waiters of the node.
// It fails if the node is draining.
func (n *waitNode) register() bool {
	for {
		r := n.refs.Load()
		if r <= 0 {
			return false
		}
		if n.refs.CompareAndSwap(r, r+1) {
			return true
		}
	}
}

// park blocks a registered waiter until the node is retired or done is
// closed, and reports whether it was woken. A nil done never fires.
// The registration is always consumed.
func (n *waitNode) park(done <-chan struct{}) bool {
	// A token that is already there wins over an expired done.
	select {
	case <-n.wake:
		n.relay()
		return true
	default:
	}

	select {
	case <-n.wake:
		n.relay()
		return true
	case <-done:
		// Never received the token, so never forward it.
		n.release()
		return false
	}
}

// relay hands the token on to the next waiter, then leaves.
// Holding the token means the channel is empty, so the send cannot block.
func (n *waitNode) relay() {
	n.wake <- struct{}{}
	n.release()
}

// retire must be called exactly once, by the owner, after the node has been
// swapped out of its gate.
func (n *waitNode) retire() {
	n.wake <- struct{}{}
	n.release()
}

func (n *waitNode) release() {
	if n.refs.Add(-1) == 0 {
		n.drain()
	}
}

// drain runs once per epoch, when the last reference is gone.
// Everyone who took the token has put it back, so it is in the channel.
func (n *waitNode) drain() {
	select {
	case <-n.wake:
	default:
	}
	n.refs.Store(1)
	idlePool.put(n)
}

// acquireNode returns an armed node: refs 1, no token, a new epoch.
func acquireNode() *waitNode {
	if n := idlePool.get(); n != nil {
		n.epoch.Add(1)
		return n
	}
	idlePool.allocated.Add(1)
	return newWaitNode()
}
