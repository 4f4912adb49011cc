package diag

import "encoding/json"

// These helpers bridge the management bridge's per-attribute reads (one
// JSON value per call) to the mappers in parse_http.go, which expect a
// single JSON object bundling several attributes together.

func jsonUnmarshalString(raw json.RawMessage, out *string) error {
	return json.Unmarshal(raw, out)
}

func jsonUnmarshalFlagList(raw json.RawMessage) ([]string, error) {
	var entries []struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	}
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, err
	}
	flags := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Value != "" {
			flags = append(flags, "-XX:"+e.Name+"="+e.Value)
		} else {
			flags = append(flags, "-XX:+"+e.Name)
		}
	}
	return flags, nil
}

type orderedStringMap struct {
	keys   []string
	values map[string]string
}

func jsonUnmarshalStringMap(raw json.RawMessage) (orderedStringMap, error) {
	var m map[string]string
	if err := json.Unmarshal(raw, &m); err != nil {
		return orderedStringMap{}, err
	}
	out := orderedStringMap{values: m}
	for k := range m {
		out.keys = append(out.keys, k)
	}
	return out, nil
}

func jsonMarshalThreadingBundle(totalRaw, daemonRaw, peakRaw json.RawMessage) (json.RawMessage, error) {
	var total, daemon, peak uint64
	_ = json.Unmarshal(totalRaw, &total)
	_ = json.Unmarshal(daemonRaw, &daemon)
	_ = json.Unmarshal(peakRaw, &peak)
	return json.Marshal(struct {
		ThreadCount       uint64 `json:"ThreadCount"`
		DaemonThreadCount uint64 `json:"DaemonThreadCount"`
		PeakThreadCount   uint64 `json:"PeakThreadCount"`
	}{total, daemon, peak})
}

func jsonMarshalClassLoadingBundle(loadedRaw, unloadedRaw, totalRaw json.RawMessage) (json.RawMessage, error) {
	var loaded, unloaded, total uint64
	_ = json.Unmarshal(loadedRaw, &loaded)
	_ = json.Unmarshal(unloadedRaw, &unloaded)
	_ = json.Unmarshal(totalRaw, &total)
	return json.Marshal(struct {
		LoadedClassCount      uint64 `json:"LoadedClassCount"`
		UnloadedClassCount    uint64 `json:"UnloadedClassCount"`
		TotalLoadedClassCount uint64 `json:"TotalLoadedClassCount"`
	}{loaded, unloaded, total})
}

// parseHttpThreadDump maps the management bridge's dumpAllThreads
// operation result (an array of ThreadInfo-shaped JSON objects) to a
// ThreadDump, falling back to an empty record on missing fields.
func parseHttpThreadDump(raw json.RawMessage) (ThreadDump, error) {
	var entries []struct {
		ThreadName  string `json:"threadName"`
		ThreadId    uint64 `json:"threadId"`
		ThreadState string `json:"threadState"`
		StackTrace  []struct {
			ClassName  string `json:"className"`
			MethodName string `json:"methodName"`
			FileName   string `json:"fileName"`
			LineNumber int    `json:"lineNumber"`
		} `json:"stackTrace"`
	}
	if err := json.Unmarshal(raw, &entries); err != nil {
		return ThreadDump{}, NewParseError("thread_dump", "unexpected dumpAllThreads shape")
	}

	dump := ThreadDump{Header: "Full thread dump (management bridge)"}
	for _, e := range entries {
		t := ThreadInfo{
			Name:  e.ThreadName,
			ID:    e.ThreadId,
			State: parseThreadStateToken(e.ThreadState),
		}
		for _, f := range e.StackTrace {
			t.Stack = append(t.Stack, StackFrame{
				ClassName:  f.ClassName,
				MethodName: f.MethodName,
				FileName:   f.FileName,
				LineNumber: f.LineNumber,
			})
		}
		dump.Threads = append(dump.Threads, t)
	}
	if len(dump.Threads) == 0 {
		return dump, NewParseError("threads", "no threads found in dump")
	}
	return dump, nil
}
