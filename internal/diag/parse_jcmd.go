package diag

import (
	"regexp"
	"strconv"
	"strings"
)

// Regexes are compiled once per process and reused, per §4.2 rule 4.
var (
	reHeapTotal   = regexp.MustCompile(`total\s+(\d+)K,\s+used\s+(\d+)K`)
	reRegionLine  = regexp.MustCompile(`region size\s+(\d+)K,\s+(\d+)\s+young\s+\(\d+K\),\s+(\d+)\s+survivors\s+\(\d+K\)`)
	reMetaspace   = regexp.MustCompile(`Metaspace\s+used\s+(\d+)K,\s+committed\s+(\d+)K,\s+reserved\s+(\d+)K`)
	reClassSpace  = regexp.MustCompile(`class space\s+used\s+(\d+)K,\s+committed\s+(\d+)K`)
	reVersionLine = regexp.MustCompile(`^(.+?)\s+version\s+"?([^"\s]+)"?`)
	reJDKFamily   = regexp.MustCompile(`JDK\s+(\S+)`)

	reThreadHeader = regexp.MustCompile(`^"([^"]+)"\s+#(\d+)`)
	reThreadDaemon = regexp.MustCompile(`\sdaemon\s`)
	reThreadPrio   = regexp.MustCompile(`prio=(\d+)`)
	reThreadCPU    = regexp.MustCompile(`cpu=([\d.]+)ms`)
	reThreadElapse = regexp.MustCompile(`elapsed=([\d.]+)s`)
	reThreadState  = regexp.MustCompile(`java\.lang\.Thread\.State:\s+(\w+)(?:\s+\(([^)]+)\))?`)
	reStackFrame   = regexp.MustCompile(`^\t+at\s+([a-zA-Z0-9_.$<>]+)\.([a-zA-Z0-9_<>]+)\((?:([^:)]+):(\d+)|([^)]+))\)`)
)

// ParseHeapInfo parses jcmd's "GC.heap_info" text output. It handles both
// generational ("total ... used ...") and regional (G1-style, with a
// "region size" line) layouts; region fields are left zero when absent.
func ParseHeapInfo(output string) (HeapInfo, error) {
	var h HeapInfo
	gotHeapLine := false
	gotMetaspace := false

	for _, line := range strings.Split(output, "\n") {
		if m := reHeapTotal.FindStringSubmatch(line); m != nil {
			total, _ := strconv.ParseUint(m[1], 10, 64)
			used, _ := strconv.ParseUint(m[2], 10, 64)
			h.TotalKiB = total
			h.UsedKiB = used
			gotHeapLine = true
			continue
		}
		if m := reRegionLine.FindStringSubmatch(line); m != nil {
			size, _ := strconv.ParseUint(m[1], 10, 64)
			young, _ := strconv.ParseUint(m[2], 10, 64)
			survivor, _ := strconv.ParseUint(m[3], 10, 64)
			h.RegionSizeKiB = size
			h.YoungRegions = young
			h.SurvivorRegions = survivor
			h.HasRegions = true
			continue
		}
		if m := reMetaspace.FindStringSubmatch(line); m != nil {
			used, _ := strconv.ParseUint(m[1], 10, 64)
			committed, _ := strconv.ParseUint(m[2], 10, 64)
			reserved, _ := strconv.ParseUint(m[3], 10, 64)
			h.MetaspaceUsedKiB = used
			h.MetaspaceCommittedKiB = committed
			h.MetaspaceReservedKiB = reserved
			gotMetaspace = true
			continue
		}
		if m := reClassSpace.FindStringSubmatch(line); m != nil {
			used, _ := strconv.ParseUint(m[1], 10, 64)
			committed, _ := strconv.ParseUint(m[2], 10, 64)
			h.ClassSpaceUsedKiB = used
			h.ClassSpaceCommittedKiB = committed
			h.HasClassSpace = true
			continue
		}
	}

	if !gotHeapLine {
		return h, NewParseError("total/used", "heap total/used line not found")
	}
	if !gotMetaspace {
		return h, NewParseError("metaspace", "metaspace line not found")
	}
	return h, nil
}

// ParseVersion parses jcmd's "VM.version" output into a RuntimeVersion.
// The first "<name> version <ver>" line supplies name/version; an
// optional "JDK <ver>" line supplies the family version, falling back to
// the vm-version when absent.
func ParseVersion(output string) (RuntimeVersion, error) {
	var v RuntimeVersion
	found := false

	for _, line := range strings.Split(output, "\n") {
		trimmed := strings.TrimSpace(line)
		if !found {
			if m := reVersionLine.FindStringSubmatch(trimmed); m != nil {
				v.Name = strings.TrimSpace(m[1])
				v.Version = m[2]
				found = true
				continue
			}
		}
		if m := reJDKFamily.FindStringSubmatch(trimmed); m != nil {
			v.FamilyVersion = m[1]
		}
	}

	if !found {
		return v, NewParseError("version", "no \"<name> version <ver>\" line found")
	}
	if v.FamilyVersion == "" {
		v.FamilyVersion = v.Version
	}
	return v, nil
}

// ParseUptime parses jcmd's "VM.uptime" output: the first line whose
// trimmed form ends in "s" is parsed as a floating-point second count.
func ParseUptime(output string) (float64, error) {
	for _, line := range strings.Split(output, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if !strings.HasSuffix(trimmed, "s") {
			continue
		}
		numeric := strings.TrimSpace(strings.TrimSuffix(trimmed, "s"))
		secs, err := strconv.ParseFloat(numeric, 64)
		if err != nil {
			continue
		}
		return secs, nil
	}
	return 0, NewParseError("uptime", "no line with trailing seconds suffix found")
}

// ParseVMFlags parses jcmd's "VM.flags" output into the ordered flag list
// and derives the CollectorKind by scanning for sentinel substrings.
func ParseVMFlags(output string) (RuntimeFlags, error) {
	var flags []string
	for _, line := range strings.Split(output, "\n") {
		if !strings.Contains(line, "-XX:") && !strings.Contains(line, "-Xms") && !strings.Contains(line, "-Xmx") {
			continue
		}
		for _, token := range strings.Fields(line) {
			if strings.HasPrefix(token, "-") {
				flags = append(flags, token)
			}
		}
	}
	if len(flags) == 0 {
		return RuntimeFlags{}, NewParseError("flags", "no VM flags found")
	}

	rf := RuntimeFlags{Flags: flags}
	for _, s := range collectorSentinels {
		for _, f := range flags {
			if strings.Contains(f, s.substr) {
				rf.Collector = s.kind
				break
			}
		}
		if rf.Collector != CollectorUnknown {
			break
		}
	}
	for _, f := range flags {
		if v, ok := flagSizeValue(f, "-Xmx"); ok {
			rf.MaxHeapKiB = v
		}
		if v, ok := flagSizeValue(f, "-Xms"); ok {
			rf.InitialHeapKiB = v
		}
	}
	return rf, nil
}

func flagSizeValue(flag, prefix string) (uint64, bool) {
	if !strings.HasPrefix(flag, prefix) {
		return 0, false
	}
	size, err := ParseMemorySizeKiB(flag[len(prefix):])
	if err != nil {
		return 0, false
	}
	return size, true
}

// ParseMemorySizeKiB parses a JVM-style size suffix (e.g. "512m", "2g",
// "1024k") into KiB.
func ParseMemorySizeKiB(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, NewParseError("size", "empty size value")
	}
	unit := s[len(s)-1]
	var mult uint64
	switch unit {
	case 'k', 'K':
		mult = 1
	case 'm', 'M':
		mult = 1024
	case 'g', 'G':
		mult = 1024 * 1024
	default:
		n, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return 0, err
		}
		return n / 1024, nil
	}
	n, err := strconv.ParseUint(s[:len(s)-1], 10, 64)
	if err != nil {
		return 0, err
	}
	return n * mult, nil
}

// ParseThreadDump parses jcmd's "Thread.print" output into a ThreadDump.
// Streaming line scanner with two states: Scanning and InThread.
func ParseThreadDump(output string) (ThreadDump, error) {
	lines := strings.Split(output, "\n")
	var dump ThreadDump
	if len(lines) > 0 {
		dump.Header = strings.TrimSpace(lines[0])
	}

	var current *ThreadInfo
	flush := func() {
		if current != nil {
			dump.Threads = append(dump.Threads, *current)
			current = nil
		}
	}

	for _, line := range lines {
		if m := reThreadHeader.FindStringSubmatch(line); m != nil {
			flush()
			id, _ := strconv.ParseUint(m[2], 10, 64)
			t := ThreadInfo{Name: m[1], ID: id, State: ThreadRunnable}
			if reThreadDaemon.MatchString(line) {
				t.Daemon = true
			}
			if pm := reThreadPrio.FindStringSubmatch(line); pm != nil {
				t.Priority, _ = strconv.Atoi(pm[1])
			}
			if cm := reThreadCPU.FindStringSubmatch(line); cm != nil {
				t.CPUMillis, _ = strconv.ParseFloat(cm[1], 64)
				t.HasCPU = true
			}
			if em := reThreadElapse.FindStringSubmatch(line); em != nil {
				t.ElapsedSecs, _ = strconv.ParseFloat(em[1], 64)
				t.HasElapsed = true
			}
			current = &t
			continue
		}
		if current == nil {
			continue
		}
		if m := reThreadState.FindStringSubmatch(line); m != nil {
			current.State = parseThreadStateToken(m[1])
			if len(m) > 2 {
				current.StateDetail = m[2]
			}
			continue
		}
		if m := reStackFrame.FindStringSubmatch(line); m != nil {
			frame := StackFrame{ClassName: m[1], MethodName: m[2]}
			if m[3] != "" {
				frame.FileName = m[3]
				frame.LineNumber, _ = strconv.Atoi(m[4])
			} else {
				frame.FileName = m[5]
			}
			current.Stack = append(current.Stack, frame)
		}
	}
	flush()

	if len(dump.Threads) == 0 {
		return dump, NewParseError("threads", "no threads found in dump")
	}
	return dump, nil
}

func parseThreadStateToken(tok string) ThreadState {
	switch tok {
	case "NEW":
		return ThreadNew
	case "RUNNABLE":
		return ThreadRunnable
	case "BLOCKED":
		return ThreadBlocked
	case "WAITING":
		return ThreadWaiting
	case "TIMED_WAITING":
		return ThreadTimedWaiting
	case "TERMINATED":
		return ThreadTerminated
	default:
		return ThreadRunnable
	}
}
