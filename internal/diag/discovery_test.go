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

func writeFakeDiscoveryTool(t *testing.T, stdout string) string {
	if runtime.GOOS == "windows" {
		t.Skip("fake shell scripts are POSIX-only")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "fake-jcmd")
	body := "#!/bin/sh\ncat <<'EOF'\n" + stdout + "EOF\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o755))
	return path
}

func TestDiscoverLocalTargets_PrefersJcmdOverJps(t *testing.T) {
	jcmdPath := writeFakeDiscoveryTool(t, "12345 com.example.App\n67890 jdk.jcmd/sun.tools.jps.Jps\n")
	status := ToolsStatus{
		Jcmd: ToolStatus{Kind: ToolAvailable, Path: jcmdPath},
		Jps:  ToolStatus{Kind: ToolAvailable, Path: "/bin/false"},
	}

	targets, err := DiscoverLocalTargets(context.Background(), status)
	require.NoError(t, err)
	require.Len(t, targets, 1)
	assert.Equal(t, 12345, targets[0].ID)
}

func TestDiscoverLocalTargets_FallsBackToJpsWhenJcmdUnavailable(t *testing.T) {
	jpsPath := writeFakeDiscoveryTool(t, "111 com.example.Other\n")
	status := ToolsStatus{
		Jps: ToolStatus{Kind: ToolAvailable, Path: jpsPath},
	}

	targets, err := DiscoverLocalTargets(context.Background(), status)
	require.NoError(t, err)
	require.Len(t, targets, 1)
	assert.Equal(t, 111, targets[0].ID)
}

func TestDiscoverLocalTargets_ErrorsWhenNoToolsAvailable(t *testing.T) {
	_, err := DiscoverLocalTargets(context.Background(), ToolsStatus{})
	require.Error(t, err)
	assert.Equal(t, KindToolsUnavailable, KindOf(err))
}

func TestDiscoverRemoteShellTargets_ParsesTransportOutput(t *testing.T) {
	transport := newFakeTransport()
	transport.responses["jcmd"] = "222 com.example.Remote\n"
	targets, err := DiscoverRemoteShellTargets(context.Background(), transport, "jcmd")
	require.NoError(t, err)
	require.Len(t, targets, 1)
	assert.Equal(t, 222, targets[0].ID)
}
