package diag

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStore_IsStale(t *testing.T) {
	s := NewStore(10)
	now := time.Now()

	assert.True(t, s.IsStale(time.Second, now), "no success recorded yet")

	s.UpdateUptime(1.0, now)
	assert.False(t, s.IsStale(5*time.Second, now.Add(time.Second)))
	assert.True(t, s.IsStale(5*time.Second, now.Add(10*time.Second)))
}

func TestStore_ConsecutiveErrorsResetsOnAnySuccessWithinATick(t *testing.T) {
	s := NewStore(10)
	s.RecordError()
	s.RecordError()
	assert.Equal(t, 2, s.ConsecutiveErrors())

	s.UpdateUptime(5.0, time.Now())
	assert.Equal(t, 0, s.ConsecutiveErrors(), "any successful commit resets the advisory counter")
}

func TestStore_PartialCommitLeavesOtherSlotsUntouched(t *testing.T) {
	s := NewStore(10)
	at := time.Now()

	s.PushHeapInfo(HeapInfo{UsedKiB: 100, TotalKiB: 200}, at)
	s.UpdateThreadSummary(ThreadSummary{Total: 5}, at)
	s.UpdateUptime(1.5, at)
	// gc_counters intentionally never committed this tick (simulated timeout).

	snap := s.Snapshot()
	assert.NotNil(t, snap.HeapInfo)
	assert.NotNil(t, snap.ThreadSummary)
	assert.True(t, snap.HasUptime)
	assert.Nil(t, snap.GcCounters, "gc latest-value slot stays nil when never committed")
}

func TestStore_HistorySeriesAreBoundedAndOldestFirst(t *testing.T) {
	s := NewStore(3)
	base := time.Now()
	for i := uint64(1); i <= 5; i++ {
		s.PushHeapInfo(HeapInfo{UsedKiB: i * 10}, base.Add(time.Duration(i)*time.Second))
	}
	series := s.HeapUsedSeries()
	assert.Equal(t, []uint64{30, 40, 50}, series)
}

func TestStore_SnapshotIsACloneNotAView(t *testing.T) {
	s := NewStore(10)
	s.PushHeapInfo(HeapInfo{UsedKiB: 1}, time.Now())

	snap := s.Snapshot()
	snap.HeapInfo.UsedKiB = 999

	snap2 := s.Snapshot()
	assert.Equal(t, uint64(1), snap2.HeapInfo.UsedKiB)
}
