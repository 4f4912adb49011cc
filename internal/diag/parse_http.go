package diag

import "encoding/json"

// The HTTP variant maps each operation to a bundle of management-bean
// reads (§4.3); these mappers convert the Jolokia-style JSON values back
// into the same typed records the text parsers produce. Per §4.2, missing
// fields fall back to an empty/zero record rather than erroring.

type memoryUsageJSON struct {
	Used      uint64 `json:"used"`
	Committed uint64 `json:"committed"`
	Max       int64  `json:"max"` // -1 means undefined
}

// MapMemoryMBeanToHeapInfo maps java.lang:type=Memory's HeapMemoryUsage
// attribute value to HeapInfo. Region and metaspace fields are left zero:
// the management bridge does not expose G1 region internals.
func MapMemoryMBeanToHeapInfo(heapUsage json.RawMessage) HeapInfo {
	var u memoryUsageJSON
	_ = json.Unmarshal(heapUsage, &u)
	h := HeapInfo{
		TotalKiB:     u.Committed / 1024,
		UsedKiB:      u.Used / 1024,
		CommittedKiB: u.Committed / 1024,
	}
	if u.Max > 0 {
		h.MaxKiB = uint64(u.Max) / 1024
	}
	return h
}

type gcMBeanJSON struct {
	CollectionCount int64 `json:"CollectionCount"`
	CollectionTime  int64 `json:"CollectionTime"`
}

// MapGcMBeansToCounters maps a pair of young/old GarbageCollector MBean
// snapshots to GcCounters. Percentage fields are left zero: occupancy
// percentages require the Memory MBean's pool breakdown, which
// httpConnector.GcCounters does not fetch.
func MapGcMBeansToCounters(young, old json.RawMessage) GcCounters {
	var g GcCounters
	var y, o gcMBeanJSON
	if young != nil {
		_ = json.Unmarshal(young, &y)
		g.Young = GcGenCounter{Count: uint64(y.CollectionCount), TotalSecs: float64(y.CollectionTime) / 1000}
	}
	if old != nil {
		_ = json.Unmarshal(old, &o)
		g.Full = GcGenCounter{Count: uint64(o.CollectionCount), TotalSecs: float64(o.CollectionTime) / 1000}
	}
	g.TotalSecs = g.Young.TotalSecs + g.Full.TotalSecs
	return g
}

type threadingMBeanJSON struct {
	ThreadCount       uint64 `json:"ThreadCount"`
	DaemonThreadCount uint64 `json:"DaemonThreadCount"`
	PeakThreadCount   uint64 `json:"PeakThreadCount"`
}

// MapThreadingMBeanToSummary maps java.lang:type=Threading's attributes to
// ThreadSummary. The per-state histogram is unavailable over the plain
// management-bean surface, so only the total/daemon/peak counts are
// populated.
func MapThreadingMBeanToSummary(raw json.RawMessage) ThreadSummary {
	var t threadingMBeanJSON
	_ = json.Unmarshal(raw, &t)
	return ThreadSummary{
		Total:     t.ThreadCount,
		Daemon:    t.DaemonThreadCount,
		Peak:      t.PeakThreadCount,
		Histogram: map[ThreadState]uint64{},
	}
}

type classLoadingMBeanJSON struct {
	LoadedClassCount      uint64 `json:"LoadedClassCount"`
	UnloadedClassCount    uint64 `json:"UnloadedClassCount"`
	TotalLoadedClassCount uint64 `json:"TotalLoadedClassCount"`
}

// MapClassLoadingMBeanToStats maps java.lang:type=ClassLoading's
// attributes to ClassStats.
func MapClassLoadingMBeanToStats(raw json.RawMessage) ClassStats {
	var c classLoadingMBeanJSON
	_ = json.Unmarshal(raw, &c)
	return ClassStats{
		LoadedCount:     c.LoadedClassCount,
		UnloadedCount:   c.UnloadedClassCount,
		TotalEverLoaded: c.TotalLoadedClassCount,
	}
}

type runtimeMBeanJSON struct {
	Uptime int64 `json:"Uptime"` // milliseconds
}

// MapRuntimeMBeanToUptime maps java.lang:type=Runtime's Uptime attribute
// (milliseconds) to a seconds float.
func MapRuntimeMBeanToUptime(raw json.RawMessage) float64 {
	var r runtimeMBeanJSON
	_ = json.Unmarshal(raw, &r)
	return float64(r.Uptime) / 1000
}
