package diag

import (
	"regexp"
	"strconv"
	"strings"
)

// reHistogramLine matches a jcmd "GC.class_histogram" row:
// "   1:       123456     7890123  java.lang.String". Leading/trailing
// header and footer lines (column titles, "Total" summary) simply fail
// to match and are skipped.
var reHistogramLine = regexp.MustCompile(`^\s*(\d+):\s+(\d+)\s+(\S+)\s+(.+?)\s*$`)

// ParseClassHistogram parses jcmd's "GC.class_histogram" text output.
// Arbitrary leading/trailing header and footer lines are tolerated; byte
// counts may carry an SI suffix.
func ParseClassHistogram(output string) (ClassHistogram, error) {
	var hist ClassHistogram
	for _, line := range strings.Split(output, "\n") {
		m := reHistogramLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		rank, err := strconv.ParseUint(m[1], 10, 32)
		if err != nil {
			continue
		}
		instances, err := strconv.ParseUint(m[2], 10, 64)
		if err != nil {
			continue
		}
		bytes, err := parseByteCount(m[3])
		if err != nil {
			continue
		}
		hist.Classes = append(hist.Classes, ClassEntry{
			Rank:      uint32(rank),
			Instances: instances,
			Bytes:     bytes,
			Name:      strings.TrimSpace(m[4]),
		})
	}
	if len(hist.Classes) == 0 {
		return hist, NewParseError("classes", "no classes found in histogram")
	}
	return hist, nil
}
