package diag

import (
	"context"
	"strconv"
	"strings"
)

// Connector is the uniform capability set polymorphic over the three
// transport variants (§4.3, §9 — a flat enum over {Local, RemoteShell,
// RemoteHttp} with per-arm sub-records, expressed here as a Go interface
// plus three concrete implementations rather than a tagged union, since
// Go has no sum types).
type Connector interface {
	TargetID() int
	IsAlive(ctx context.Context) bool

	VmVersion(ctx context.Context) (RuntimeVersion, error)
	VmFlags(ctx context.Context) (RuntimeFlags, error)
	SystemProperties(ctx context.Context) (*SystemProperties, error)

	UptimeSeconds(ctx context.Context) (float64, error)
	HeapInfo(ctx context.Context) (HeapInfo, error)
	GcCounters(ctx context.Context) (GcCounters, error)
	ThreadSummary(ctx context.Context) (ThreadSummary, error)
	ClassStats(ctx context.Context) (ClassStats, error)

	ThreadDump(ctx context.Context) (ThreadDump, error)
	ClassHistogram(ctx context.Context) (ClassHistogram, error)
	VmInfoRaw(ctx context.Context) (string, error)

	TriggerCollection(ctx context.Context) error

	Close() error
}

// -- Local and RemoteShell: identical command set, different transport ----

// diagToolPaths names the two diagnostic tools a connector instance
// invokes (jcmd and jstat), as resolved paths or bare names resolved via
// PATH.
type diagToolPaths struct {
	jcmd  string
	jstat string
}

// toolConnector implements Connector by mapping each operation to a jcmd
// or jstat invocation over the supplied Transport. Local and RemoteShell
// share this implementation verbatim — "identical command set... no
// change in parsers" (§4.3) — differing only in which Transport they hold.
type toolConnector struct {
	targetID  int
	transport Transport
	tools     diagToolPaths

	version    staticCache[RuntimeVersion]
	flags      staticCache[RuntimeFlags]
	properties staticCache[*SystemProperties]
}

// NewLocalConnector builds a Connector over a local subprocess transport.
func NewLocalConnector(targetID int, tools diagToolPaths) (Connector, error) {
	t, err := NewLocalExec(targetID)
	if err != nil {
		return nil, err
	}
	return &toolConnector{targetID: targetID, transport: t, tools: tools}, nil
}

// NewRemoteShellConnector builds a Connector over an authenticated
// encrypted-shell transport.
func NewRemoteShellConnector(ctx context.Context, targetID int, host string, port int, user string, auth ShellAuth, tools diagToolPaths) (Connector, error) {
	t, err := DialShellExec(ctx, host, port, user, auth, targetID)
	if err != nil {
		return nil, err
	}
	return &toolConnector{targetID: targetID, transport: t, tools: tools}, nil
}

func (c *toolConnector) TargetID() int { return c.targetID }

func (c *toolConnector) jcmdArgs(cmd string, extra ...string) []string {
	args := []string{strconv.Itoa(c.targetID), cmd}
	return append(args, extra...)
}

func (c *toolConnector) runJcmd(ctx context.Context, cmd string, extra ...string) (string, error) {
	res, err := c.transport.Exec(ctx, c.tools.jcmd, c.jcmdArgs(cmd, extra...))
	if err != nil {
		return "", err
	}
	return string(res.Stdout), nil
}

func (c *toolConnector) IsAlive(ctx context.Context) bool {
	_, err := c.runJcmd(ctx, "VM.uptime")
	return err == nil
}

func (c *toolConnector) VmVersion(ctx context.Context) (RuntimeVersion, error) {
	return c.version.get(ctx, func(ctx context.Context) (RuntimeVersion, error) {
		out, err := c.runJcmd(ctx, "VM.version")
		if err != nil {
			return RuntimeVersion{}, err
		}
		return ParseVersion(out)
	})
}

func (c *toolConnector) VmFlags(ctx context.Context) (RuntimeFlags, error) {
	return c.flags.get(ctx, func(ctx context.Context) (RuntimeFlags, error) {
		out, err := c.runJcmd(ctx, "VM.flags")
		if err != nil {
			return RuntimeFlags{}, err
		}
		return ParseVMFlags(out)
	})
}

func (c *toolConnector) SystemProperties(ctx context.Context) (*SystemProperties, error) {
	return c.properties.get(ctx, func(ctx context.Context) (*SystemProperties, error) {
		out, err := c.runJcmd(ctx, "VM.system_properties")
		if err != nil {
			return nil, err
		}
		return parseSystemProperties(out), nil
	})
}

func (c *toolConnector) UptimeSeconds(ctx context.Context) (float64, error) {
	out, err := c.runJcmd(ctx, "VM.uptime")
	if err != nil {
		return 0, err
	}
	return ParseUptime(out)
}

func (c *toolConnector) HeapInfo(ctx context.Context) (HeapInfo, error) {
	out, err := c.runJcmd(ctx, "GC.heap_info")
	if err != nil {
		return HeapInfo{}, err
	}
	return ParseHeapInfo(out)
}

// GcCounters uses the percentage-oriented jstat command, per §4.3.
func (c *toolConnector) GcCounters(ctx context.Context) (GcCounters, error) {
	res, err := c.transport.Exec(ctx, c.tools.jstat, []string{"-gcutil", strconv.Itoa(c.targetID)})
	if err != nil {
		return GcCounters{}, err
	}
	return ParseGcUtilColumns(string(res.Stdout))
}

func (c *toolConnector) ThreadSummary(ctx context.Context) (ThreadSummary, error) {
	dump, err := c.ThreadDump(ctx)
	if err != nil {
		return ThreadSummary{}, err
	}
	return summarizeThreads(dump), nil
}

func (c *toolConnector) ClassStats(ctx context.Context) (ClassStats, error) {
	hist, err := c.ClassHistogram(ctx)
	if err != nil {
		return ClassStats{}, err
	}
	var total uint64
	for _, cls := range hist.Classes {
		total += cls.Instances
	}
	return ClassStats{LoadedCount: uint64(len(hist.Classes)), TotalEverLoaded: total}, nil
}

func (c *toolConnector) ThreadDump(ctx context.Context) (ThreadDump, error) {
	out, err := c.runJcmd(ctx, "Thread.print")
	if err != nil {
		return ThreadDump{}, err
	}
	return ParseThreadDump(out)
}

func (c *toolConnector) ClassHistogram(ctx context.Context) (ClassHistogram, error) {
	out, err := c.runJcmd(ctx, "GC.class_histogram")
	if err != nil {
		return ClassHistogram{}, err
	}
	return ParseClassHistogram(out)
}

func (c *toolConnector) VmInfoRaw(ctx context.Context) (string, error) {
	return c.runJcmd(ctx, "VM.version")
}

func (c *toolConnector) TriggerCollection(ctx context.Context) error {
	_, err := c.runJcmd(ctx, "GC.run")
	return err
}

func (c *toolConnector) Close() error {
	return c.transport.Close()
}

func summarizeThreads(dump ThreadDump) ThreadSummary {
	s := ThreadSummary{Histogram: make(map[ThreadState]uint64)}
	for _, t := range dump.Threads {
		s.Total++
		if t.Daemon {
			s.Daemon++
		}
		s.Histogram[t.State]++
	}
	s.Peak = s.Total
	return s
}

func parseSystemProperties(out string) *SystemProperties {
	props := NewSystemProperties()
	lines := stripTargetHeader(splitLines(out))
	for _, line := range lines {
		key, value, ok := splitKeyEqualsValue(line)
		if !ok {
			continue
		}
		props.Set(key, value)
	}
	return props
}

func splitLines(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	out = append(out, s[start:])
	return out
}

func splitKeyEqualsValue(line string) (string, string, bool) {
	for i := 0; i < len(line); i++ {
		if line[i] == '=' {
			return line[:i], line[i+1:], true
		}
	}
	return "", "", false
}

// -- RemoteHttp ------------------------------------------------------------

// httpConnector implements Connector over the JSON management bridge,
// mapping each operation to a bundle of management-bean reads (§4.3).
type httpConnector struct {
	targetID int
	http     *HttpExec

	version    staticCache[RuntimeVersion]
	flags      staticCache[RuntimeFlags]
	properties staticCache[*SystemProperties]
}

// NewRemoteHttpConnector builds a Connector over a JSON-over-HTTP
// management bridge endpoint.
func NewRemoteHttpConnector(url, authUser, authPass string, hasAuth bool) Connector {
	return &httpConnector{
		targetID: 0,
		http:     NewHttpExec(url, authUser, authPass, hasAuth),
	}
}

func (c *httpConnector) TargetID() int { return c.targetID }

func (c *httpConnector) IsAlive(ctx context.Context) bool {
	_, err := c.http.ReadAttribute(ctx, "java.lang:type=Runtime", "Uptime")
	return err == nil
}

func (c *httpConnector) VmVersion(ctx context.Context) (RuntimeVersion, error) {
	return c.version.get(ctx, func(ctx context.Context) (RuntimeVersion, error) {
		raw, err := c.http.ReadAttribute(ctx, "java.lang:type=Runtime", "SpecVersion")
		if err != nil {
			return RuntimeVersion{}, err
		}
		var version string
		_ = jsonUnmarshalString(raw, &version)
		nameRaw, err := c.http.ReadAttribute(ctx, "java.lang:type=Runtime", "VmName")
		if err != nil {
			return RuntimeVersion{}, err
		}
		var name string
		_ = jsonUnmarshalString(nameRaw, &name)
		return RuntimeVersion{Name: name, Version: version, FamilyVersion: version}, nil
	})
}

func (c *httpConnector) VmFlags(ctx context.Context) (RuntimeFlags, error) {
	return c.flags.get(ctx, func(ctx context.Context) (RuntimeFlags, error) {
		raw, err := c.http.ReadAttribute(ctx, "com.sun.management:type=HotSpotDiagnostic", "DiagnosticOptions")
		if err != nil {
			return RuntimeFlags{}, err
		}
		flags, err := jsonUnmarshalFlagList(raw)
		if err != nil {
			return RuntimeFlags{}, NewParseError("flags", "unexpected DiagnosticOptions shape")
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
		return rf, nil
	})
}

func (c *httpConnector) SystemProperties(ctx context.Context) (*SystemProperties, error) {
	return c.properties.get(ctx, func(ctx context.Context) (*SystemProperties, error) {
		raw, err := c.http.ReadAttribute(ctx, "java.lang:type=Runtime", "SystemProperties")
		if err != nil {
			return nil, err
		}
		m, err := jsonUnmarshalStringMap(raw)
		if err != nil {
			return nil, NewParseError("system_properties", "unexpected SystemProperties shape")
		}
		props := NewSystemProperties()
		for _, k := range m.keys {
			props.Set(k, m.values[k])
		}
		return props, nil
	})
}

func (c *httpConnector) UptimeSeconds(ctx context.Context) (float64, error) {
	raw, err := c.http.ReadAttribute(ctx, "java.lang:type=Runtime", "Uptime")
	if err != nil {
		return 0, err
	}
	return MapRuntimeMBeanToUptime(raw), nil
}

func (c *httpConnector) HeapInfo(ctx context.Context) (HeapInfo, error) {
	raw, err := c.http.ReadAttribute(ctx, "java.lang:type=Memory", "HeapMemoryUsage")
	if err != nil {
		return HeapInfo{}, err
	}
	return MapMemoryMBeanToHeapInfo(raw), nil
}

func (c *httpConnector) GcCounters(ctx context.Context) (GcCounters, error) {
	young, errYoung := c.http.ReadAttribute(ctx, "java.lang:type=GarbageCollector,name=G1 Young Generation", "")
	old, errOld := c.http.ReadAttribute(ctx, "java.lang:type=GarbageCollector,name=G1 Old Generation", "")
	if errYoung != nil && errOld != nil {
		return GcCounters{}, errYoung
	}
	if errYoung != nil {
		young = nil
	}
	if errOld != nil {
		old = nil
	}
	return MapGcMBeansToCounters(young, old), nil
}

func (c *httpConnector) ThreadSummary(ctx context.Context) (ThreadSummary, error) {
	raw, err := c.http.ReadAttribute(ctx, "java.lang:type=Threading", "ThreadCount")
	if err != nil {
		return ThreadSummary{}, err
	}
	_ = raw
	daemonRaw, err := c.http.ReadAttribute(ctx, "java.lang:type=Threading", "DaemonThreadCount")
	if err != nil {
		return ThreadSummary{}, err
	}
	peakRaw, err := c.http.ReadAttribute(ctx, "java.lang:type=Threading", "PeakThreadCount")
	if err != nil {
		return ThreadSummary{}, err
	}
	bundle, _ := jsonMarshalThreadingBundle(raw, daemonRaw, peakRaw)
	return MapThreadingMBeanToSummary(bundle), nil
}

func (c *httpConnector) ClassStats(ctx context.Context) (ClassStats, error) {
	loadedRaw, err := c.http.ReadAttribute(ctx, "java.lang:type=ClassLoading", "LoadedClassCount")
	if err != nil {
		return ClassStats{}, err
	}
	unloadedRaw, err := c.http.ReadAttribute(ctx, "java.lang:type=ClassLoading", "UnloadedClassCount")
	if err != nil {
		return ClassStats{}, err
	}
	totalRaw, err := c.http.ReadAttribute(ctx, "java.lang:type=ClassLoading", "TotalLoadedClassCount")
	if err != nil {
		return ClassStats{}, err
	}
	bundle, _ := jsonMarshalClassLoadingBundle(loadedRaw, unloadedRaw, totalRaw)
	return MapClassLoadingMBeanToStats(bundle), nil
}

func (c *httpConnector) ThreadDump(ctx context.Context) (ThreadDump, error) {
	raw, err := c.http.ExecOperation(ctx, "java.lang:type=Threading", "dumpAllThreads", []interface{}{true, true})
	if err != nil {
		return ThreadDump{}, err
	}
	return parseHttpThreadDump(raw)
}

func (c *httpConnector) ClassHistogram(ctx context.Context) (ClassHistogram, error) {
	return ClassHistogram{}, NewError(KindProtocol, "class histogram is not available over the management bridge")
}

func (c *httpConnector) VmInfoRaw(ctx context.Context) (string, error) {
	raw, err := c.http.ReadAttribute(ctx, "java.lang:type=Runtime", "VmName")
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func (c *httpConnector) TriggerCollection(ctx context.Context) error {
	_, err := c.http.ExecOperation(ctx, "com.sun.management:type=DiagnosticCommand", "gcRun", nil)
	return err
}

func (c *httpConnector) Close() error { return c.http.Close() }
