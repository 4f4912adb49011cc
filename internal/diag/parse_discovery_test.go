package diag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDiscoveredTargets_FiltersHelperTools(t *testing.T) {
	output := "12345 com.example.App\n67890 jdk.jcmd/sun.tools.jps.Jps\n54321 /opt/app/agent-lang-server.jar"

	targets := ParseDiscoveredTargets(output)
	require.Len(t, targets, 2)

	ids := make([]int, 0, len(targets))
	for _, tgt := range targets {
		ids = append(ids, tgt.ID)
	}
	assert.ElementsMatch(t, []int{12345, 54321}, ids)
}

func TestParseDiscoveredTargets_DisplayNameStripsJarAndPrefix(t *testing.T) {
	targets := ParseDiscoveredTargets("1 foo/bar/MyApp.jar")
	require.Len(t, targets, 1)
	assert.Equal(t, "MyApp", targets[0].DisplayName)
}

func TestParseDiscoveredTargets_ToleratesBlankLines(t *testing.T) {
	targets := ParseDiscoveredTargets("\n\n12345 com.example.App\n\n\n")
	assert.Len(t, targets, 1)
}

func TestParseClassHistogram(t *testing.T) {
	output := " num     #instances         #bytes  class name\n" +
		"-------------------------------------------------\n" +
		"   1:         50000        2400000  java.lang.String\n" +
		"   2:          1200          96000  com.example.Widget\n" +
		"Total          51200        2496000\n"

	hist, err := ParseClassHistogram(output)
	require.NoError(t, err)
	assert.Len(t, hist.Classes, 2)
	assert.Equal(t, "java.lang.String", hist.Classes[0].Name)
	assert.Equal(t, uint64(50000), hist.Classes[0].Instances)
	assert.Equal(t, uint64(2400000), hist.Classes[0].Bytes)
}
