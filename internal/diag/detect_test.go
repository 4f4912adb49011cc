package diag

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFakeTool(t *testing.T, body string, executable bool) string {
	if runtime.GOOS == "windows" {
		t.Skip("fake shell scripts are POSIX-only")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "fake-tool")
	mode := os.FileMode(0o755)
	if !executable {
		mode = 0o644
	}
	require.NoError(t, os.WriteFile(path, []byte(body), mode))
	return path
}

func TestProbeTool_NotFound(t *testing.T) {
	status, ok := probeTool(context.Background(), filepath.Join(t.TempDir(), "does-not-exist"))
	assert.False(t, ok)
	assert.Equal(t, ToolStatus{}, status)
}

func TestProbeTool_AvailableCapturesBanner(t *testing.T) {
	path := writeFakeTool(t, "#!/bin/sh\necho 'fake version 1.0.0'\n", true)

	status, ok := probeTool(context.Background(), path)
	require.True(t, ok)
	assert.Equal(t, ToolAvailable, status.Kind)
	assert.Equal(t, "fake version 1.0.0", status.Banner)
}

func TestProbeTool_AvailableEvenOnNonZeroExit(t *testing.T) {
	path := writeFakeTool(t, "#!/bin/sh\necho 'still prints a banner'\nexit 1\n", true)

	status, ok := probeTool(context.Background(), path)
	require.True(t, ok)
	assert.Equal(t, ToolAvailable, status.Kind, "a clean exit error must not disqualify the candidate")
}

func TestProbeTool_NotExecutableOnPermissionDenied(t *testing.T) {
	path := writeFakeTool(t, "#!/bin/sh\necho unreachable\n", false)

	status, ok := probeTool(context.Background(), path)
	require.True(t, ok)
	assert.Equal(t, ToolNotExecutable, status.Kind)
}

func TestToolsStatus_IsUsable(t *testing.T) {
	cases := []struct {
		name   string
		status ToolsStatus
		want   bool
	}{
		{"jcmd alone is enough", ToolsStatus{Jcmd: ToolStatus{Kind: ToolAvailable}}, true},
		{"jps+jstat without jcmd is enough", ToolsStatus{
			Jps:   ToolStatus{Kind: ToolAvailable},
			Jstat: ToolStatus{Kind: ToolAvailable},
		}, true},
		{"jps alone is not enough", ToolsStatus{Jps: ToolStatus{Kind: ToolAvailable}}, false},
		{"nothing available", ToolsStatus{}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.status.IsUsable())
		})
	}
}

func TestToolsStatus_CapabilitiesDeriveFromAvailability(t *testing.T) {
	status := ToolsStatus{Jstat: ToolStatus{Kind: ToolAvailable}}
	caps := status.Capabilities()

	assert.False(t, caps.CanDiscover, "jstat alone does not grant discovery")
	assert.True(t, caps.CanGcCounters, "jstat alone is sufficient for gc counters")
	assert.False(t, caps.CanHeapInfo, "heap_info requires jcmd")
}

func TestInstallationGuidance_MentionsJavaHomeWhenSet(t *testing.T) {
	status := ToolsStatus{HasJavaHome: true, JavaHome: "/opt/jdk-21"}
	guidance := status.InstallationGuidance()
	assert.Contains(t, guidance, "/opt/jdk-21")
}

func TestInstallationGuidance_PromptsToSetJavaHomeWhenUnset(t *testing.T) {
	status := ToolsStatus{}
	guidance := status.InstallationGuidance()
	assert.Contains(t, guidance, "JAVA_HOME is not set")
}
