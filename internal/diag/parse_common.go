package diag

import (
	"regexp"
	"strconv"
	"strings"
)

// targetHeaderLine matches a bare "<id>:" line jcmd/jstat prepend to their
// output when invoked against a specific target. Parsers ignore it.
var targetHeaderLine = regexp.MustCompile(`^\d+:\s*$`)

// stripTargetHeader drops leading target-id header lines and blank lines.
func stripTargetHeader(lines []string) []string {
	i := 0
	for i < len(lines) {
		trimmed := strings.TrimSpace(lines[i])
		if trimmed == "" || targetHeaderLine.MatchString(trimmed) {
			i++
			continue
		}
		break
	}
	return lines[i:]
}

// parsePercent treats the literal "-" as zero, per §4.2 rule 3.
func parsePercent(field string) (float64, error) {
	field = strings.TrimSpace(field)
	if field == "-" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(field, 64)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		v = 0
	}
	if v > 100 {
		v = 100
	}
	return v, nil
}

// parseCount parses an integer counter field, treating "-" as zero.
func parseCount(field string) (uint64, error) {
	field = strings.TrimSpace(field)
	if field == "-" {
		return 0, nil
	}
	return strconv.ParseUint(field, 10, 64)
}

// parseSecs parses a floating-point seconds field, treating "-" as zero.
func parseSecs(field string) (float64, error) {
	field = strings.TrimSpace(field)
	if field == "-" {
		return 0, nil
	}
	return strconv.ParseFloat(field, 64)
}

var siSuffix = map[byte]uint64{
	'K': 1024,
	'M': 1024 * 1024,
	'G': 1024 * 1024 * 1024,
}

// parseByteCount parses a plain integer or an SI-suffixed byte count
// ("4096", "512K", "3M") per the class-histogram parser's requirement.
func parseByteCount(field string) (uint64, error) {
	field = strings.TrimSpace(field)
	if field == "" {
		return 0, NewParseError("bytes", "empty byte count")
	}
	last := field[len(field)-1]
	if mult, ok := siSuffix[last]; ok {
		n, err := strconv.ParseFloat(field[:len(field)-1], 64)
		if err != nil {
			return 0, err
		}
		return uint64(n * float64(mult)), nil
	}
	return strconv.ParseUint(field, 10, 64)
}
