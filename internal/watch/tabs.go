package watch

import (
	"fmt"
	"strings"
	"time"

	"github.com/mabhi256/jdiag/internal/diag"
	"github.com/mabhi256/jdiag/utils"
)

// RenderMemoryTab shows the latest heap/metaspace occupancy plus a
// sparkline of the heap-used history the Store retains.
func RenderMemoryTab(snap diag.Snapshot, store *diag.Store, width int) string {
	if snap.HeapInfo == nil {
		return MutedStyle.Render("No heap sample yet.")
	}
	h := *snap.HeapInfo

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", TitleLine("Heap"))

	usedFrac := safeFraction(h.UsedKiB, h.TotalKiB)
	fmt.Fprintf(&b, "used       %s  %s / %s\n",
		CreateProgressBar(usedFrac, 30, PercentColor(usedFrac)),
		formatKiB(h.UsedKiB), formatKiB(h.TotalKiB))

	if h.MaxKiB > 0 {
		fmt.Fprintf(&b, "max        %s\n", formatKiB(h.MaxKiB))
	}
	if h.CommittedKiB > 0 {
		fmt.Fprintf(&b, "committed  %s\n", formatKiB(h.CommittedKiB))
	}
	if h.HasRegions {
		fmt.Fprintf(&b, "regions    young=%d survivor=%d (%s each)\n",
			h.YoungRegions, h.SurvivorRegions, formatKiB(h.RegionSizeKiB))
	}

	b.WriteString("\n")
	fmt.Fprintf(&b, "%s\n\n", TitleLine("Metaspace"))
	metaFrac := safeFraction(h.MetaspaceUsedKiB, h.MetaspaceCommittedKiB)
	fmt.Fprintf(&b, "used       %s  %s / %s\n",
		CreateProgressBar(metaFrac, 30, PercentColor(metaFrac)),
		formatKiB(h.MetaspaceUsedKiB), formatKiB(h.MetaspaceCommittedKiB))
	if h.HasClassSpace {
		fmt.Fprintf(&b, "class space  %s / %s\n",
			formatKiB(h.ClassSpaceUsedKiB), formatKiB(h.ClassSpaceCommittedKiB))
	}

	series := store.HeapUsedSeries()
	if len(series) > 1 {
		b.WriteString("\n")
		fmt.Fprintf(&b, "%s\n", TitleLine("Heap used, history"))
		b.WriteString(renderSparkline(series, min(width-2, 80), 6, InfoColor))
	}

	return b.String()
}

// RenderGCTab shows jstat-style occupancy percentages, pause counters and
// a sparkline of cumulative GC seconds.
func RenderGCTab(snap diag.Snapshot, store *diag.Store, width int) string {
	if snap.GcCounters == nil {
		return MutedStyle.Render("No GC sample yet.")
	}
	g := *snap.GcCounters

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", TitleLine("Occupancy"))
	for _, row := range []struct {
		label string
		pct   float64
	}{
		{"eden", g.EdenPct}, {"survivor0", g.S0Pct}, {"survivor1", g.S1Pct},
		{"old", g.OldPct}, {"metaspace", g.MetaPct}, {"compressed class", g.CCSPct},
	} {
		frac := row.pct / 100
		fmt.Fprintf(&b, "%-18s %s %5.1f%%\n", row.label, CreateProgressBar(frac, 24, PercentColor(frac)), row.pct)
	}

	b.WriteString("\n")
	fmt.Fprintf(&b, "%s\n\n", TitleLine("Pauses"))
	fmt.Fprintf(&b, "young        count=%-8d total=%s\n", g.Young.Count, formatSecs(g.Young.TotalSecs))
	fmt.Fprintf(&b, "full         count=%-8d total=%s\n", g.Full.Count, formatSecs(g.Full.TotalSecs))
	fmt.Fprintf(&b, "concurrent   count=%-8d total=%s\n", g.Concurrent.Count, formatSecs(g.Concurrent.TotalSecs))
	fmt.Fprintf(&b, "grand total  %s\n", formatSecs(g.TotalSecs))

	if avg, ok := g.Young.AvgSecs(); ok {
		fmt.Fprintf(&b, "young avg    %s\n", formatSecs(avg))
	}
	if avg, ok := g.Full.AvgSecs(); ok {
		fmt.Fprintf(&b, "full avg     %s\n", formatSecs(avg))
	}

	fmt.Fprintf(&b, "\npressure     %s\n", gcPressureLabel(g))

	series := store.GrandGcSecondsSeries()
	if len(series) > 1 {
		b.WriteString("\n")
		fmt.Fprintf(&b, "%s\n", TitleLine("Cumulative GC time, history (ms)"))
		b.WriteString(renderSparkline(series, min(width-2, 80), 6, WarningColor))
	}

	return b.String()
}

// gcPressureLabel classifies current GC pressure from occupancy
// percentages, since the jstat/jcmd surface exposes no per-event
// before/after memory deltas to derive a collection-rate trend from.
func gcPressureLabel(g diag.GcCounters) string {
	switch {
	case g.OldPct >= 90 || g.MetaPct >= 90:
		return CriticalStyle.Render("critical")
	case g.OldPct >= 70 || g.MetaPct >= 70:
		return WarningStyle.Render("elevated")
	default:
		return GoodStyle.Render("normal")
	}
}

// RenderThreadsTab shows the thread-state histogram from the latest
// ThreadSummary sample.
func RenderThreadsTab(snap diag.Snapshot, width int) string {
	if snap.ThreadSummary == nil {
		return MutedStyle.Render("No thread sample yet.")
	}
	t := *snap.ThreadSummary

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", TitleLine("Threads"))
	fmt.Fprintf(&b, "total    %d\n", t.Total)
	fmt.Fprintf(&b, "daemon   %d\n", t.Daemon)
	fmt.Fprintf(&b, "peak     %d\n\n", t.Peak)

	fmt.Fprintf(&b, "%s\n\n", TitleLine("By state"))
	for _, state := range []diag.ThreadState{
		diag.ThreadRunnable, diag.ThreadBlocked, diag.ThreadWaiting,
		diag.ThreadTimedWaiting, diag.ThreadNew, diag.ThreadTerminated,
	} {
		count := t.Histogram[state]
		if count == 0 {
			continue
		}
		frac := safeFraction(count, t.Total)
		fmt.Fprintf(&b, "%-14s %s %d\n", state.String(), CreateProgressBar(frac, 24, InfoColor), count)
	}

	if snap.ClassStats != nil {
		c := *snap.ClassStats
		b.WriteString("\n")
		fmt.Fprintf(&b, "%s\n\n", TitleLine("Classes"))
		fmt.Fprintf(&b, "loaded        %d\n", c.LoadedCount)
		fmt.Fprintf(&b, "ever loaded   %d\n", c.TotalEverLoaded)
		if c.UnloadedCount > 0 {
			fmt.Fprintf(&b, "unloaded      %d\n", c.UnloadedCount)
		}
	}

	return b.String()
}

// RenderSystemTab shows connection/liveness bookkeeping: uptime, staleness
// and the advisory consecutive-error counter.
func RenderSystemTab(snap diag.Snapshot, session *diag.Session, width int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", TitleLine("Target"))
	fmt.Fprintf(&b, "kind     %s\n", profileLabel(session.Profile()))
	fmt.Fprintf(&b, "state    %s\n\n", session.State())

	fmt.Fprintf(&b, "%s\n\n", TitleLine("Polling"))
	if snap.HasUptime {
		fmt.Fprintf(&b, "jvm uptime          %s\n", formatSecs(snap.UptimeSecs))
	}
	if snap.HasLastSuccess {
		fmt.Fprintf(&b, "last successful poll  %s ago\n", utils.FormatDuration(time.Since(snap.LastSuccess)))
	}
	fmt.Fprintf(&b, "consecutive errors  %d\n", session.Store().ConsecutiveErrors())

	return b.String()
}

func TitleLine(title string) string {
	return HeaderStyle.Render(title) + "\n" + MutedStyle.Render(strings.Repeat("─", len(title)))
}

func safeFraction(used, total uint64) float64 {
	if total == 0 {
		return 0
	}
	return float64(used) / float64(total)
}

func formatKiB(kib uint64) string {
	return utils.MemorySize(int64(kib) * int64(utils.KB)).String()
}

func formatSecs(secs float64) string {
	return utils.FormatDuration(time.Duration(secs * float64(time.Second)))
}
