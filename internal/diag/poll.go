package diag

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// PollingEngine is a cooperatively scheduled task dedicated to one
// connector and one store (§4.6). Grounded on rileyhilliard-rr's
// internal/monitor/collector.go (goroutine+WaitGroup fan-out, adapted
// here from per-host to per-capability) and original_source's
// metrics/collector.rs (ticker shape, adapted from its
// abort-on-disconnect-flag policy to the streak-then-liveness policy
// spec.md specifies).
type PollingEngine struct {
	connector Connector
	store     *Store
	events    *EventChannel

	intervalNs     int64 // atomic, nanoseconds
	commandTimeout time.Duration
	appliedNs      int64 // last interval applied to the ticker

	allFailStreak int

	cancelOnce sync.Once
	cancelCh   chan struct{}
	doneCh     chan struct{}
}

// NewPollingEngine constructs an engine. cfg is clamped before use.
func NewPollingEngine(connector Connector, store *Store, events *EventChannel, cfg PollingConfig) *PollingEngine {
	cfg = cfg.Clamp()
	e := &PollingEngine{
		connector:      connector,
		store:          store,
		events:         events,
		commandTimeout: cfg.CommandTimeout,
		cancelCh:       make(chan struct{}),
		doneCh:         make(chan struct{}),
	}
	atomic.StoreInt64(&e.intervalNs, int64(cfg.Interval))
	return e
}

// SetInterval atomically swaps the ticker's period; it is clamped and
// takes effect at the next tick edge (§4.6 "Interval change").
func (e *PollingEngine) SetInterval(d time.Duration) {
	atomic.StoreInt64(&e.intervalNs, int64(clampInterval(d)))
}

func (e *PollingEngine) interval() time.Duration {
	return time.Duration(atomic.LoadInt64(&e.intervalNs))
}

// Cancel preempts the task at the next tick boundary or awaited I/O
// point. Idempotent.
func (e *PollingEngine) Cancel() {
	e.cancelOnce.Do(func() { close(e.cancelCh) })
}

// Done is closed when the task has terminated (either cancelled or
// disconnected).
func (e *PollingEngine) Done() <-chan struct{} { return e.doneCh }

// Run drives the polling loop until cancelled or disconnected. It fetches
// static info once before the first tick, then ticks at the configured
// (dynamically adjustable) interval.
func (e *PollingEngine) Run(ctx context.Context) {
	defer close(e.doneCh)

	e.preLoop(ctx)

	initial := e.interval()
	e.appliedNs = int64(initial)
	ticker := time.NewTicker(initial)
	defer ticker.Stop()

	for {
		select {
		case <-e.cancelCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if newInterval := e.interval(); int64(newInterval) != e.appliedNs {
				e.appliedNs = int64(newInterval)
				ticker.Reset(newInterval)
			}
			if e.runTick(ctx) {
				return
			}
		}
	}
}

// preLoop fetches static info (version, flags) before the first tick.
// Failures do not count toward the disconnection streak; they are
// surfaced as a Warn event (§4.6 "Pre-loop").
func (e *PollingEngine) preLoop(ctx context.Context) {
	cctx, cancel := context.WithTimeout(ctx, e.commandTimeout)
	defer cancel()
	if _, err := e.connector.VmVersion(cctx); err != nil {
		e.events.Send(Event{Kind: EventWarn, ErrKind: KindOf(err), Message: "failed to fetch VM version: " + err.Error()})
	}

	cctx2, cancel2 := context.WithTimeout(ctx, e.commandTimeout)
	defer cancel2()
	if _, err := e.connector.VmFlags(cctx2); err != nil {
		e.events.Send(Event{Kind: EventWarn, ErrKind: KindOf(err), Message: "failed to fetch VM flags: " + err.Error()})
	}
}

// tickResult carries one capability's outcome back to the commit phase.
type tickResult struct {
	heap    *HeapInfo
	gc      *GcCounters
	threads *ThreadSummary
	uptime  *float64
	errs    []error
}

// runTick issues the four dynamic capabilities concurrently, awaits all
// (join semantics, no abort-on-failure), commits whatever succeeded under
// a single writer acquisition, and emits events. Returns true if the
// engine should terminate (disconnected).
func (e *PollingEngine) runTick(ctx context.Context) bool {
	at := time.Now()
	var wg sync.WaitGroup
	var mu sync.Mutex
	result := tickResult{}

	record := func(fn func() error) {
		defer wg.Done()
		if err := fn(); err != nil {
			mu.Lock()
			result.errs = append(result.errs, err)
			mu.Unlock()
		}
	}

	wg.Add(4)
	go record(func() error {
		cctx, cancel := context.WithTimeout(ctx, e.commandTimeout)
		defer cancel()
		h, err := e.connector.HeapInfo(cctx)
		if err != nil {
			return err
		}
		mu.Lock()
		result.heap = &h
		mu.Unlock()
		return nil
	})
	go record(func() error {
		cctx, cancel := context.WithTimeout(ctx, e.commandTimeout)
		defer cancel()
		g, err := e.connector.GcCounters(cctx)
		if err != nil {
			return err
		}
		mu.Lock()
		result.gc = &g
		mu.Unlock()
		return nil
	})
	go record(func() error {
		cctx, cancel := context.WithTimeout(ctx, e.commandTimeout)
		defer cancel()
		t, err := e.connector.ThreadSummary(cctx)
		if err != nil {
			return err
		}
		mu.Lock()
		result.threads = &t
		mu.Unlock()
		return nil
	})
	go record(func() error {
		cctx, cancel := context.WithTimeout(ctx, e.commandTimeout)
		defer cancel()
		u, err := e.connector.UptimeSeconds(cctx)
		if err != nil {
			return err
		}
		mu.Lock()
		result.uptime = &u
		mu.Unlock()
		return nil
	})
	wg.Wait()

	committed := e.commit(result, at)

	if committed > 0 {
		e.events.Send(Event{Kind: EventUpdated})
	}
	if len(result.errs) > 0 {
		e.events.Send(Event{Kind: EventError, ErrKind: KindOf(result.errs[0]), Message: result.errs[0].Error()})
	}

	if committed == 0 {
		e.allFailStreak++
	} else {
		e.allFailStreak = 0
	}

	if e.allFailStreak >= maxAllFailStreak {
		if !e.connector.IsAlive(ctx) {
			e.events.Send(Event{Kind: EventDisconnected, ErrKind: KindDisconnected, Message: "target is no longer alive"})
			return true
		}
	}
	return false
}

// commit writes every successful capture to the store (§4.6 step 3). Each
// Store write method takes the store's writer lock on its own, so the
// lock is acquired once per committed capture rather than once per tick,
// and a reader can observe a tick that is only partly committed. Returns
// the number of commits.
func (e *PollingEngine) commit(r tickResult, at time.Time) int {
	committed := 0
	if r.heap != nil {
		e.store.PushHeapInfo(*r.heap, at)
		committed++
	}
	if r.gc != nil {
		e.store.PushGcCounters(*r.gc, at)
		committed++
	}
	if r.threads != nil {
		e.store.UpdateThreadSummary(*r.threads, at)
		committed++
	}
	if r.uptime != nil {
		e.store.UpdateUptime(*r.uptime, at)
		committed++
	}
	if committed == 0 {
		e.store.RecordError()
	}
	return committed
}
