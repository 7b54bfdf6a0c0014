package waitgen

import (
	"sync/atomic"

	"github.com/llxisdsh/waitgen/internal/opt"
)

// idlePoolCap bounds the number of drained nodes kept for reuse.
const idlePoolCap = 100

// idlePool is shared by every gate in the process.
var idlePool = newNodePool()

// nodePool is a bounded lock-free MPMC ring of idle nodes
// (Dmitry Vyukov's bounded queue).
//
// Each slot carries a sequence number:
//   - seq == pos: free, the producer at pos may fill it.
//   - seq == pos+1: filled, the consumer at pos may take it.
//
// Both ends only ever move by CAS, and neither end waits for the other:
// a full ring drops the node, an empty ring makes the caller allocate.
type nodePool struct {
	_    opt.Pad_
	head atomic.Uint64 // next position to take from
	_    opt.Pad_
	tail atomic.Uint64 // next position to put at
	_    opt.Pad_

	allocated atomic.Uint64
	recycled  atomic.Uint64
	discarded atomic.Uint64

	slots [idlePoolCap]poolSlot
}

type poolSlot struct {
	seq  atomic.Uint64
	node *waitNode // guarded by seq
}

func newNodePool() *nodePool {
	p := &nodePool{}
	for i := range p.slots {
		p.slots[i].seq.Store(uint64(i))
	}
	return p
}

// put offers a drained node to the ring. It reports false, and drops the
// node, when the ring is full.
func (p *nodePool) put(n *waitNode) bool {
	pos := p.tail.Load()
	for {
		s := &p.slots[pos%idlePoolCap]
		seq := s.seq.Load()
		switch dif := int64(seq - pos); {
		case dif == 0:
			if p.tail.CompareAndSwap(pos, pos+1) {
				s.node = n
				s.seq.Store(pos + 1)
				p.recycled.Add(1)
				return true
			}
			pos = p.tail.Load()
		case dif < 0:
			// The slot still holds a node from the previous lap.
			p.discarded.Add(1)
			return false
		default:
			pos = p.tail.Load()
		}
	}
}

// get takes an idle node, or returns nil if there is none.
func (p *nodePool) get() *waitNode {
	pos := p.head.Load()
	for {
		s := &p.slots[pos%idlePoolCap]
		seq := s.seq.Load()
		switch dif := int64(seq - (pos + 1)); {
		case dif == 0:
			if p.head.CompareAndSwap(pos, pos+1) {
				n := s.node
				s.node = nil
				s.seq.Store(pos + idlePoolCap)
				return n
			}
			pos = p.head.Load()
		case dif < 0:
			return nil
		default:
			pos = p.head.Load()
		}
	}
}

// len is a snapshot of the number of idle nodes, clamped to [0, idlePoolCap].
func (p *nodePool) len() int {
	head := p.head.Load()
	tail := p.tail.Load()
	if tail <= head {
		return 0
	}
	return int(min(tail-head, idlePoolCap))
}
