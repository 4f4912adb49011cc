package diag

import "strings"

// discoverySentinels identify the diagnostic tools' own processes, so
// discovery never lists jps/jcmd/jstat as monitorable targets. Merged
// from the teacher's shouldSkipProcess list and original_source's
// should_filter list.
var discoverySentinels = []string{
	"sun.tools.jps.Jps",
	"sun.tools.jcmd.JCmd",
	"sun.tools.jstat.Jstat",
	"jdk.jcmd",
	"jdk.jstatd",
	"JMXClient",
	"org.eclipse.equinox.launcher",
	"-- process information unavailable",
}

func isDiscoverySentinel(label string) bool {
	for _, s := range discoverySentinels {
		if strings.Contains(label, s) {
			return true
		}
	}
	if label == "Jps" || label == "JCmd" || label == "Jstat" {
		return true
	}
	return false
}

// ParseDiscoveredTargets parses one "<id> <label>" record per line, as
// produced by both "jps -l" and "jcmd -l", excluding entries whose label
// identifies the diagnostic tools themselves (§4.9).
func ParseDiscoveredTargets(output string) []DiscoveredTarget {
	var targets []DiscoveredTarget
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, " ", 2)
		id, err := parseLeadingInt(parts[0])
		if err != nil {
			continue
		}
		label := ""
		if len(parts) == 2 {
			label = strings.TrimSpace(parts[1])
		}
		if isDiscoverySentinel(label) {
			continue
		}
		targets = append(targets, DiscoveredTarget{
			ID:          id,
			MainLabel:   label,
			DisplayName: displayNameFromLabel(label),
		})
	}
	return targets
}

func parseLeadingInt(s string) (int, error) {
	n := 0
	if s == "" {
		return 0, NewParseError("id", "empty id field")
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, NewParseError("id", "non-numeric id field")
		}
		n = n*10 + int(c-'0')
	}
	return n, nil
}

// displayNameFromLabel trims a trailing ".jar" and any module prefix
// ("module/Main" -> "Main"), matching the teacher's main-class cleanup.
func displayNameFromLabel(label string) string {
	label = strings.TrimSuffix(label, ".jar")
	if idx := strings.LastIndex(label, "/"); idx != -1 {
		return label[idx+1:]
	}
	return label
}
