package waitgen

// PoolStats is a point-in-time view of the process-wide wait node pool.
// Counters are read independently and may be mutually inconsistent by a few
// nodes under concurrent signaling.
type PoolStats struct {
	// Allocated is the number of nodes ever allocated. It never decreases.
	Allocated uint64
	// Idle is the number of drained nodes waiting to be reused.
	Idle int
	// Recycled counts drained nodes accepted by the idle pool.
	Recycled uint64
	// Discarded counts drained nodes dropped because the idle pool was full.
	Discarded uint64
}

// Stats returns the current pool statistics.
func Stats() PoolStats {
	return PoolStats{
		Allocated: idlePool.allocated.Load(),
		Idle:      idlePool.len(),
		Recycled:  idlePool.recycled.Load(),
		Discarded: idlePool.discarded.Load(),
	}
}

// AllocatedNodes returns the total number of wait nodes ever allocated.
func AllocatedNodes() uint64 {
	return idlePool.allocated.Load()
}

// IdleNodes returns the number of wait nodes currently kept for reuse.
func IdleNodes() int {
	return idlePool.len()
}
