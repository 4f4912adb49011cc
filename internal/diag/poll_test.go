package diag

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubConnector is a hand-rolled Connector double for engine tests; every
// dynamic capability's behavior is independently configurable via atomics
// so tests can simulate partial failure and liveness flips mid-run.
type stubConnector struct {
	heapErr    atomic.Bool
	gcErr      atomic.Bool
	threadsErr atomic.Bool
	uptimeErr  atomic.Bool
	alive      atomic.Bool

	ticks atomic.Int64
}

func newStubConnector() *stubConnector {
	s := &stubConnector{}
	s.alive.Store(true)
	return s
}

func (s *stubConnector) TargetID() int { return 1 }
func (s *stubConnector) IsAlive(ctx context.Context) bool { return s.alive.Load() }

func (s *stubConnector) VmVersion(ctx context.Context) (RuntimeVersion, error) {
	return RuntimeVersion{Name: "stub", Version: "1"}, nil
}
func (s *stubConnector) VmFlags(ctx context.Context) (RuntimeFlags, error) {
	return RuntimeFlags{}, nil
}
func (s *stubConnector) SystemProperties(ctx context.Context) (*SystemProperties, error) {
	return NewSystemProperties(), nil
}

func (s *stubConnector) UptimeSeconds(ctx context.Context) (float64, error) {
	s.ticks.Add(1)
	if s.uptimeErr.Load() {
		return 0, NewTimeoutError(time.Second)
	}
	return 1.0, nil
}
func (s *stubConnector) HeapInfo(ctx context.Context) (HeapInfo, error) {
	if s.heapErr.Load() {
		return HeapInfo{}, NewTimeoutError(time.Second)
	}
	return HeapInfo{UsedKiB: 100}, nil
}
func (s *stubConnector) GcCounters(ctx context.Context) (GcCounters, error) {
	if s.gcErr.Load() {
		return GcCounters{}, NewTimeoutError(time.Second)
	}
	return GcCounters{TotalSecs: 1}, nil
}
func (s *stubConnector) ThreadSummary(ctx context.Context) (ThreadSummary, error) {
	if s.threadsErr.Load() {
		return ThreadSummary{}, NewTimeoutError(time.Second)
	}
	return ThreadSummary{Total: 4}, nil
}
func (s *stubConnector) ClassStats(ctx context.Context) (ClassStats, error) {
	return ClassStats{}, nil
}
func (s *stubConnector) ThreadDump(ctx context.Context) (ThreadDump, error) {
	return ThreadDump{}, nil
}
func (s *stubConnector) ClassHistogram(ctx context.Context) (ClassHistogram, error) {
	return ClassHistogram{}, nil
}
func (s *stubConnector) VmInfoRaw(ctx context.Context) (string, error) { return "stub", nil }
func (s *stubConnector) TriggerCollection(ctx context.Context) error  { return nil }
func (s *stubConnector) Close() error                                 { return nil }

func (s *stubConnector) failAllDynamic() {
	s.heapErr.Store(true)
	s.gcErr.Store(true)
	s.threadsErr.Store(true)
	s.uptimeErr.Store(true)
}

func drainEvents(c *EventChannel) []Event {
	var out []Event
	for {
		ev, ok := c.Recv()
		if !ok {
			return out
		}
		out = append(out, ev)
	}
}

func TestPollingEngine_DisconnectionStreak(t *testing.T) {
	connector := newStubConnector()
	connector.failAllDynamic()
	connector.alive.Store(false)

	store := NewStore(10)
	events := NewEventChannel()
	engine := NewPollingEngine(connector, store, events, PollingConfig{
		Interval:       minInterval,
		CommandTimeout: 50 * time.Millisecond,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	done := make(chan struct{})
	go func() {
		engine.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("engine did not terminate after disconnection")
	}

	var errCount, disconnectedCount int
	for _, ev := range drainEvents(events) {
		switch ev.Kind {
		case EventError:
			errCount++
		case EventDisconnected:
			disconnectedCount++
		}
	}
	assert.GreaterOrEqual(t, errCount, 4)
	assert.Equal(t, 1, disconnectedCount)
}

func TestPollingEngine_PartialSuccessCommit(t *testing.T) {
	connector := newStubConnector()
	connector.gcErr.Store(true) // simulate gc_counters timing out every tick

	store := NewStore(10)
	events := NewEventChannel()
	engine := NewPollingEngine(connector, store, events, PollingConfig{
		Interval:       minInterval,
		CommandTimeout: 50 * time.Millisecond,
	})

	done := engine.runTick(context.Background())
	assert.False(t, done)

	snap := store.Snapshot()
	assert.NotNil(t, snap.HeapInfo)
	assert.NotNil(t, snap.ThreadSummary)
	assert.True(t, snap.HasUptime)
	assert.Nil(t, snap.GcCounters, "gc latest-value slot stays nil across a timing-out tick")

	var updated, errs int
	for _, ev := range drainEvents(events) {
		switch ev.Kind {
		case EventUpdated:
			updated++
		case EventError:
			errs++
		}
	}
	assert.Equal(t, 1, updated, "exactly one Updated event per tick even with partial failure")
	assert.Equal(t, 1, errs)
}

func TestPollingEngine_IntervalClampAndRuntimeChange(t *testing.T) {
	connector := newStubConnector()
	store := NewStore(10)
	events := NewEventChannel()

	engine := NewPollingEngine(connector, store, events, PollingConfig{Interval: 50 * time.Millisecond})
	assert.Equal(t, minInterval, engine.interval())

	engine.SetInterval(15 * time.Second)
	assert.Equal(t, maxInterval, engine.interval())
}

// TestPollingEngine_NoOverlappingTicks relies on UptimeSeconds incrementing a
// counter on every call; since Run is single-threaded and each tick waits
// until all four capability goroutines join, ticks are strictly serialized,
// and a 300ms window at a 250ms interval leaves room for exactly one tick.
func TestPollingEngine_NoOverlappingTicks(t *testing.T) {
	connector := newStubConnector()
	store := NewStore(10)
	events := NewEventChannel()
	engine := NewPollingEngine(connector, store, events, PollingConfig{
		Interval:       minInterval,
		CommandTimeout: time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	engine.Run(ctx)

	ticks := connector.ticks.Load()
	require.Greater(t, ticks, int64(0))
	assert.LessOrEqual(t, ticks, int64(1), "no more than one tick per effective interval")
}
