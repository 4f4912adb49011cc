package diag

import "strings"

// ParseGcUtilColumns parses jstat's "-gcutil" text output: header line then
// a 13-column data line (S0 S1 E O M CCS YGC YGCT FGC FGCT CGC CGCT GCT).
// Per §4.2, the first data line is the second physical line of output.
func ParseGcUtilColumns(output string) (GcCounters, error) {
	lines := stripTargetHeader(strings.Split(output, "\n"))
	if len(lines) < 2 {
		return GcCounters{}, NewParseError("gcutil", "expected header and data line")
	}
	fields := strings.Fields(lines[1])
	if len(fields) < 13 {
		return GcCounters{}, NewParseError("gcutil", "insufficient columns")
	}

	var g GcCounters
	var err error
	if g.S0Pct, err = parsePercent(fields[0]); err != nil {
		return g, NewParseError("s0", err.Error())
	}
	if g.S1Pct, err = parsePercent(fields[1]); err != nil {
		return g, NewParseError("s1", err.Error())
	}
	if g.EdenPct, err = parsePercent(fields[2]); err != nil {
		return g, NewParseError("eden", err.Error())
	}
	if g.OldPct, err = parsePercent(fields[3]); err != nil {
		return g, NewParseError("old", err.Error())
	}
	if g.MetaPct, err = parsePercent(fields[4]); err != nil {
		return g, NewParseError("meta", err.Error())
	}
	if g.CCSPct, err = parsePercent(fields[5]); err != nil {
		return g, NewParseError("ccs", err.Error())
	}
	if g.Young.Count, err = parseCount(fields[6]); err != nil {
		return g, NewParseError("young_count", err.Error())
	}
	if g.Young.TotalSecs, err = parseSecs(fields[7]); err != nil {
		return g, NewParseError("young_secs", err.Error())
	}
	if g.Full.Count, err = parseCount(fields[8]); err != nil {
		return g, NewParseError("full_count", err.Error())
	}
	if g.Full.TotalSecs, err = parseSecs(fields[9]); err != nil {
		return g, NewParseError("full_secs", err.Error())
	}
	if g.Concurrent.Count, err = parseCount(fields[10]); err != nil {
		return g, NewParseError("concurrent_count", err.Error())
	}
	if g.Concurrent.TotalSecs, err = parseSecs(fields[11]); err != nil {
		return g, NewParseError("concurrent_secs", err.Error())
	}
	if g.TotalSecs, err = parseSecs(fields[12]); err != nil {
		return g, NewParseError("total_secs", err.Error())
	}
	return g, nil
}

// GcSizeColumns is the 19-column size variant: per-region capacity/used
// pairs plus the three pause counters and grand total, per §4.2.
type GcSizeColumns struct {
	S0CapKiB, S0UsedKiB   float64
	S1CapKiB, S1UsedKiB   float64
	ECapKiB, EUsedKiB     float64
	OCapKiB, OUsedKiB     float64
	MCapKiB, MUsedKiB     float64
	CCSCapKiB, CCSUsedKiB float64
	Young      GcGenCounter
	Full       GcGenCounter
	Concurrent GcGenCounter
	TotalSecs  float64
}

// ParseGcSizeColumns parses jstat's "-gc" text output (19 columns):
// S0C S0U S1C S1U EC EU OC OU MC MU CCSC CCSU YGC YGCT FGC FGCT CGC CGCT GCT.
func ParseGcSizeColumns(output string) (GcSizeColumns, error) {
	lines := stripTargetHeader(strings.Split(output, "\n"))
	if len(lines) < 2 {
		return GcSizeColumns{}, NewParseError("gc", "expected header and data line")
	}
	fields := strings.Fields(lines[1])
	if len(fields) < 19 {
		return GcSizeColumns{}, NewParseError("gc", "insufficient columns")
	}

	vals := make([]float64, 19)
	for i := 0; i < 19; i++ {
		v, err := parseSecs(fields[i])
		if err != nil {
			return GcSizeColumns{}, NewParseError("gc", err.Error())
		}
		vals[i] = v
	}

	return GcSizeColumns{
		S0CapKiB: vals[0], S0UsedKiB: vals[1],
		S1CapKiB: vals[2], S1UsedKiB: vals[3],
		ECapKiB: vals[4], EUsedKiB: vals[5],
		OCapKiB: vals[6], OUsedKiB: vals[7],
		MCapKiB: vals[8], MUsedKiB: vals[9],
		CCSCapKiB: vals[10], CCSUsedKiB: vals[11],
		Young:      GcGenCounter{Count: uint64(vals[12]), TotalSecs: vals[13]},
		Full:       GcGenCounter{Count: uint64(vals[14]), TotalSecs: vals[15]},
		Concurrent: GcGenCounter{Count: uint64(vals[16]), TotalSecs: vals[17]},
		TotalSecs:  vals[18],
	}, nil
}
