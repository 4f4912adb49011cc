package diag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGcUtilColumns_DashesAsZero(t *testing.T) {
	output := "  S0     S1     E      O      M     CCS    YGC     YGCT    FGC    FGCT     CGC    CGCT       GCT\n" +
		"   -      -   1.52  69.85  98.62  95.69    695    7.803     1    0.236   436    4.121    12.160"

	got, err := ParseGcUtilColumns(output)
	require.NoError(t, err)

	assert.Equal(t, 0.0, got.S0Pct)
	assert.Equal(t, 0.0, got.S1Pct)
	assert.Equal(t, 1.52, got.EdenPct)
	assert.Equal(t, 69.85, got.OldPct)
	assert.Equal(t, 98.62, got.MetaPct)
	assert.Equal(t, 95.69, got.CCSPct)
	assert.Equal(t, uint64(695), got.Young.Count)
	assert.InDelta(t, 7.803, got.Young.TotalSecs, 1e-9)
	assert.Equal(t, uint64(1), got.Full.Count)
	assert.InDelta(t, 0.236, got.Full.TotalSecs, 1e-9)
	assert.Equal(t, uint64(436), got.Concurrent.Count)
	assert.InDelta(t, 4.121, got.Concurrent.TotalSecs, 1e-9)
	assert.InDelta(t, 12.160, got.TotalSecs, 1e-9)
}

func TestParseGcUtilColumns_WithTargetHeader(t *testing.T) {
	output := "12345:\n" +
		"  S0     S1     E      O      M     CCS    YGC     YGCT    FGC    FGCT     CGC    CGCT       GCT\n" +
		"   0.00   0.00  10.00  20.00  30.00  40.00    1    0.001     0    0.000     0    0.000      0.001"

	got, err := ParseGcUtilColumns(output)
	require.NoError(t, err)
	assert.Equal(t, 10.0, got.EdenPct)
}

func TestParseGcUtilColumns_TooFewColumns(t *testing.T) {
	output := "  S0     S1     E\n   -      -   1.52"
	_, err := ParseGcUtilColumns(output)
	require.Error(t, err)
	assert.Equal(t, KindParse, KindOf(err))
}

func TestParsePercentClampAndLeadingTrailingBlankLines(t *testing.T) {
	output := "\n\n  S0     S1     E      O      M     CCS    YGC     YGCT    FGC    FGCT     CGC    CGCT       GCT\n" +
		"   -      -   1.52  69.85  98.62  95.69    695    7.803     1    0.236   436    4.121    12.160\n\n"
	got, err := ParseGcUtilColumns(output)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, got.EdenPct, 0.0)
	assert.LessOrEqual(t, got.EdenPct, 100.0)
}

func TestParseGcSizeColumns(t *testing.T) {
	output := "  S0C    S0U    S1C    S1U      EC       EU       OC         OU        MC      MU     CCSC    CCSU   YGC   YGCT    FGC   FGCT   CGC   CGCT     GCT\n" +
		"0.0000 0.0000 1024.0 512.0 8192.0 4096.0 16384.0 12345.0 4608.0 4223.5 512.0 430.3 695 7.803 1 0.236 436 4.121 12.160"
	got, err := ParseGcSizeColumns(output)
	require.NoError(t, err)
	assert.Equal(t, 1024.0, got.S1CapKiB)
	assert.Equal(t, 512.0, got.S1UsedKiB)
	assert.Equal(t, uint64(695), got.Young.Count)
	assert.Equal(t, uint64(436), got.Concurrent.Count)
	assert.InDelta(t, 12.160, got.TotalSecs, 1e-9)
}

func TestParseGcSizeColumns_TooFewColumns(t *testing.T) {
	output := "S0C S0U\n0.0 0.0"
	_, err := ParseGcSizeColumns(output)
	require.Error(t, err)
	assert.Equal(t, KindParse, KindOf(err))
}

func TestParseGcUtilColumns_IsPure(t *testing.T) {
	output := "  S0     S1     E      O      M     CCS    YGC     YGCT    FGC    FGCT     CGC    CGCT       GCT\n" +
		"   5.00   6.00  10.00  20.00  30.00  40.00    1    0.001     0    0.000     0    0.000      0.001"
	a, err1 := ParseGcUtilColumns(output)
	b, err2 := ParseGcUtilColumns(output)
	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, a, b)
}
