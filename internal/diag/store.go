package diag

import (
	"sync"
	"time"
)

// Store is the process-wide metrics store for one attached session: ring
// buffers for historical series, latest-value slots for non-historical
// entities, and uptime/liveness bookkeeping (§3, §4.5). It is created on
// attach, mutated only by the polling engine, and read (clone-on-read for
// latest-value slots, direct iteration for ring buffers) by the renderer.
type Store struct {
	mu sync.RWMutex

	heapUsedKiB     *RingBuffer[Sample[uint64]]
	heapTotalKiB    *RingBuffer[Sample[uint64]]
	metaspaceUsed   *RingBuffer[Sample[uint64]]
	grandGcSeconds  *RingBuffer[Sample[float64]]

	heapInfo       *HeapInfo
	gcCounters     *GcCounters
	threadSummary  *ThreadSummary
	classStats     *ClassStats
	threadDump     *ThreadDump
	classHistogram *ClassHistogram

	uptimeSecs        float64
	hasUptime         bool
	lastSuccess       time.Time
	hasLastSuccess    bool
	consecutiveErrors int
}

// NewStore constructs a store whose ring buffers have the given capacity.
func NewStore(historyCapacity int) *Store {
	return &Store{
		heapUsedKiB:    NewRingBuffer[Sample[uint64]](historyCapacity),
		heapTotalKiB:   NewRingBuffer[Sample[uint64]](historyCapacity),
		metaspaceUsed:  NewRingBuffer[Sample[uint64]](historyCapacity),
		grandGcSeconds: NewRingBuffer[Sample[float64]](historyCapacity),
	}
}

// PushHeapInfo updates the heap/metaspace ring buffers and the HeapInfo
// latest-value slot, then marks a successful poll.
func (s *Store) PushHeapInfo(h HeapInfo, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.heapUsedKiB.Push(Sample[uint64]{Value: h.UsedKiB, At: at})
	s.heapTotalKiB.Push(Sample[uint64]{Value: h.TotalKiB, At: at})
	s.metaspaceUsed.Push(Sample[uint64]{Value: h.MetaspaceUsedKiB, At: at})
	hc := h
	s.heapInfo = &hc
	s.markSuccessLocked(at)
}

// PushGcCounters updates the grand-GC-seconds ring buffer and the
// GcCounters latest-value slot, then marks a successful poll.
func (s *Store) PushGcCounters(g GcCounters, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.grandGcSeconds.Push(Sample[float64]{Value: g.TotalSecs, At: at})
	gc := g
	s.gcCounters = &gc
	s.markSuccessLocked(at)
}

// UpdateThreadSummary writes the ThreadSummary latest-value slot.
func (s *Store) UpdateThreadSummary(t ThreadSummary, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tc := t
	s.threadSummary = &tc
	s.markSuccessLocked(at)
}

// UpdateClassStats writes the ClassStats latest-value slot.
func (s *Store) UpdateClassStats(c ClassStats, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cc := c
	s.classStats = &cc
	s.markSuccessLocked(at)
}

// UpdateUptime writes the uptime-seconds latest-value slot.
func (s *Store) UpdateUptime(secs float64, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uptimeSecs = secs
	s.hasUptime = true
	s.markSuccessLocked(at)
}

// StoreThreadDump writes the on-demand ThreadDump latest-value slot. Not
// marked as a polling success, per §4.5.
func (s *Store) StoreThreadDump(d ThreadDump) {
	s.mu.Lock()
	defer s.mu.Unlock()
	dc := d
	s.threadDump = &dc
}

// StoreClassHistogram writes the on-demand ClassHistogram latest-value
// slot. Not marked as a polling success, per §4.5.
func (s *Store) StoreClassHistogram(h ClassHistogram) {
	s.mu.Lock()
	defer s.mu.Unlock()
	hc := h
	s.classHistogram = &hc
}

// RecordError increments the consecutive-error counter without touching
// last-success. Advisory for UI only; disconnection is decided by the
// polling engine's own streak (§9).
func (s *Store) RecordError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.consecutiveErrors++
}

func (s *Store) markSuccessLocked(at time.Time) {
	s.lastSuccess = at
	s.hasLastSuccess = true
	s.consecutiveErrors = 0
}

// IsStale reports whether the time since last-success exceeds threshold,
// or no success has ever been recorded.
func (s *Store) IsStale(threshold time.Duration, now time.Time) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.hasLastSuccess {
		return true
	}
	return now.Sub(s.lastSuccess) > threshold
}

// ConsecutiveErrors returns the advisory-only UI error counter.
func (s *Store) ConsecutiveErrors() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.consecutiveErrors
}

// Snapshot is a read-only, clone-on-read view of every latest-value slot,
// for the renderer.
type Snapshot struct {
	HeapInfo       *HeapInfo
	GcCounters     *GcCounters
	ThreadSummary  *ThreadSummary
	ClassStats     *ClassStats
	ThreadDump     *ThreadDump
	ClassHistogram *ClassHistogram
	UptimeSecs     float64
	HasUptime      bool
	LastSuccess    time.Time
	HasLastSuccess bool
}

// Snapshot clones every latest-value slot under the read lock.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{
		UptimeSecs:     s.uptimeSecs,
		HasUptime:      s.hasUptime,
		LastSuccess:    s.lastSuccess,
		HasLastSuccess: s.hasLastSuccess,
	}
	if s.heapInfo != nil {
		v := *s.heapInfo
		snap.HeapInfo = &v
	}
	if s.gcCounters != nil {
		v := *s.gcCounters
		snap.GcCounters = &v
	}
	if s.threadSummary != nil {
		v := *s.threadSummary
		snap.ThreadSummary = &v
	}
	if s.classStats != nil {
		v := *s.classStats
		snap.ClassStats = &v
	}
	if s.threadDump != nil {
		v := *s.threadDump
		snap.ThreadDump = &v
	}
	if s.classHistogram != nil {
		v := *s.classHistogram
		snap.ClassHistogram = &v
	}
	return snap
}

// HeapUsedSeries returns the heap-used-KiB ring buffer contents, oldest
// first, for sparkline rendering.
func (s *Store) HeapUsedSeries() []uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.heapUsedKiB.ToU64Series(func(sm Sample[uint64]) uint64 { return sm.Value })
}

// HeapTotalSeries returns the heap-total-KiB ring buffer contents, oldest
// first.
func (s *Store) HeapTotalSeries() []uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.heapTotalKiB.ToU64Series(func(sm Sample[uint64]) uint64 { return sm.Value })
}

// MetaspaceUsedSeries returns the metaspace-used-KiB ring buffer contents,
// oldest first.
func (s *Store) MetaspaceUsedSeries() []uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.metaspaceUsed.ToU64Series(func(sm Sample[uint64]) uint64 { return sm.Value })
}

// GrandGcSecondsSeries returns the grand-GC-seconds ring buffer contents
// (scaled to milliseconds for the uint64 projection), oldest first.
func (s *Store) GrandGcSecondsSeries() []uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.grandGcSeconds.ToU64Series(func(sm Sample[float64]) uint64 { return uint64(sm.Value * 1000) })
}
