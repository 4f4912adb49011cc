// Package diag implements the connector, polling engine, and metrics store
// that sit between a JVM target and the rendering layer: discovery and
// capability detection, three transport variants, defensive text/JSON
// parsers, a bounded metrics store, and a ticker-driven polling engine.
package diag

import "time"

// CollectorKind identifies the target's garbage collector family, derived
// from scanning RuntimeFlags for sentinel substrings.
type CollectorKind int

const (
	CollectorUnknown CollectorKind = iota
	CollectorG1
	CollectorZ
	CollectorShenandoah
	CollectorParallel
	CollectorSerial
	CollectorCMS
)

func (k CollectorKind) String() string {
	switch k {
	case CollectorG1:
		return "G1"
	case CollectorZ:
		return "Z"
	case CollectorShenandoah:
		return "Shenandoah"
	case CollectorParallel:
		return "Parallel"
	case CollectorSerial:
		return "Serial"
	case CollectorCMS:
		return "ConcurrentMarkSweep"
	default:
		return "Unknown"
	}
}

// collectorSentinels is scanned in order; the first match wins.
var collectorSentinels = []struct {
	substr string
	kind   CollectorKind
}{
	{"+UseG1GC", CollectorG1},
	{"+UseZGC", CollectorZ},
	{"+UseShenandoahGC", CollectorShenandoah},
	{"+UseParallelGC", CollectorParallel},
	{"+UseSerialGC", CollectorSerial},
	{"+UseConcMarkSweepGC", CollectorCMS},
}

// RuntimeVersion is captured once per connector lifetime via VM.version.
type RuntimeVersion struct {
	Name          string
	Version       string
	FamilyVersion string
}

// RuntimeFlags is captured once per connector lifetime via VM.flags.
type RuntimeFlags struct {
	Flags         []string
	Collector     CollectorKind
	MaxHeapKiB    uint64
	InitialHeapKiB uint64
}

// SystemProperties is a map whose Keys keep first-insertion order for
// display; the order carries no meaning.
type SystemProperties struct {
	Keys   []string
	Values map[string]string
}

func NewSystemProperties() *SystemProperties {
	return &SystemProperties{Values: make(map[string]string)}
}

func (p *SystemProperties) Set(key, value string) {
	if _, exists := p.Values[key]; !exists {
		p.Keys = append(p.Keys, key)
	}
	p.Values[key] = value
}

// HeapInfo is a dynamic, polled sample of heap occupancy.
type HeapInfo struct {
	TotalKiB     uint64
	UsedKiB      uint64
	CommittedKiB uint64 // 0 if absent
	MaxKiB       uint64 // 0 if absent

	RegionSizeKiB   uint64 // 0 if absent (non-regional collector)
	YoungRegions    uint64
	SurvivorRegions uint64
	HasRegions      bool

	MetaspaceUsedKiB      uint64
	MetaspaceCommittedKiB uint64
	MetaspaceReservedKiB  uint64

	ClassSpaceUsedKiB      uint64
	ClassSpaceCommittedKiB uint64
	HasClassSpace          bool
}

// GcGenCounter is a (count, total-seconds) pair for one GC generation.
type GcGenCounter struct {
	Count      uint64
	TotalSecs  float64
}

// AvgSecs returns the average pause length, defined only where Count > 0.
func (c GcGenCounter) AvgSecs() (float64, bool) {
	if c.Count == 0 {
		return 0, false
	}
	return c.TotalSecs / float64(c.Count), true
}

// GcCounters is a dynamic, polled sample of GC occupancy percentages and
// pause counters.
type GcCounters struct {
	EdenPct    float64
	S0Pct      float64
	S1Pct      float64
	OldPct     float64
	MetaPct    float64
	CCSPct     float64

	Young      GcGenCounter
	Full       GcGenCounter
	Concurrent GcGenCounter
	TotalSecs  float64
}

// ThreadState enumerates the JVM thread lifecycle states.
type ThreadState int

const (
	ThreadNew ThreadState = iota
	ThreadRunnable
	ThreadBlocked
	ThreadWaiting
	ThreadTimedWaiting
	ThreadTerminated
)

func (s ThreadState) String() string {
	switch s {
	case ThreadNew:
		return "NEW"
	case ThreadRunnable:
		return "RUNNABLE"
	case ThreadBlocked:
		return "BLOCKED"
	case ThreadWaiting:
		return "WAITING"
	case ThreadTimedWaiting:
		return "TIMED_WAITING"
	case ThreadTerminated:
		return "TERMINATED"
	default:
		return "RUNNABLE"
	}
}

// ThreadSummary is a dynamic, polled histogram of thread states.
type ThreadSummary struct {
	Total     uint64
	Daemon    uint64
	Peak      uint64
	Histogram map[ThreadState]uint64
}

// ClassStats is a dynamic, polled sample of class-loading counters.
type ClassStats struct {
	LoadedCount     uint64
	UnloadedCount   uint64
	TotalEverLoaded uint64
}

// StackFrame is one frame of a thread's stack trace.
type StackFrame struct {
	ClassName  string
	MethodName string
	FileName   string
	LineNumber int // 0 if unknown
}

// ThreadInfo is one thread's entry in an on-demand ThreadDump.
type ThreadInfo struct {
	Name        string
	ID          uint64
	Daemon      bool
	Priority    int
	State       ThreadState
	StateDetail string
	CPUMillis   float64
	HasCPU      bool
	ElapsedSecs float64
	HasElapsed  bool
	Stack       []StackFrame
}

// ThreadDump is an on-demand snapshot of every thread in the target.
type ThreadDump struct {
	Timestamp string
	Header    string
	Threads   []ThreadInfo
}

// ClassEntry is one row of a ClassHistogram.
type ClassEntry struct {
	Rank      uint32
	Instances uint64
	Bytes     uint64
	Name      string
}

// ClassHistogram is an on-demand snapshot of live class instance counts.
type ClassHistogram struct {
	Classes []ClassEntry
}

// DiscoveredTarget is one row of a target-listing diagnostic.
type DiscoveredTarget struct {
	ID          int
	MainLabel   string
	DisplayName string
}

// Sample is a value paired with a monotonic timestamp.
type Sample[T any] struct {
	Value T
	At    time.Time
}
