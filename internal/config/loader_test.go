package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mabhi256/jdiag/internal/diag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
version: 1
preferences:
  interval: 2s
  history_capacity: 500
  command_timeout: 3s
connections:
  prod-local:
    type: local
    target_id: 1234
  prod-box:
    type: remote_shell
    host: diag.internal
    user: deploy
    target_id: 5678
    auth_kind: key
    key_path: /home/deploy/.ssh/id_ed25519
  bridge:
    type: remote_http
    url: http://localhost:8778/jolokia
    auth_user: admin
    auth_pass: secret
    interval: 500ms
`

func writeTempConfig(t *testing.T, contents string) string {
	dir := t.TempDir()
	path := filepath.Join(dir, ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoad_ParsesConnectionsAndPreferences(t *testing.T) {
	path := writeTempConfig(t, sampleConfig)

	f, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 1, f.Version)
	assert.Equal(t, 2*time.Second, f.Preferences.Interval)
	assert.Len(t, f.Connections, 3)

	local := f.Connections["prod-local"]
	assert.Equal(t, TypeLocal, local.Type)
	assert.Equal(t, 1234, local.TargetID)

	shell := f.Connections["prod-box"]
	assert.Equal(t, TypeRemoteShell, shell.Type)
	assert.Equal(t, "diag.internal", shell.Host)
	assert.Equal(t, "deploy", shell.User)

	bridge := f.Connections["bridge"]
	assert.Equal(t, TypeRemoteHTTP, bridge.Type)
	assert.Equal(t, "admin", bridge.AuthUser)
}

func TestLoad_MissingFileReturnsToolsUnavailableError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Equal(t, diag.KindToolsUnavailable, diag.KindOf(err))
}

func TestResolve_LocalProfileUsesPreferencesWhenUnset(t *testing.T) {
	path := writeTempConfig(t, sampleConfig)
	f, err := Load(path)
	require.NoError(t, err)

	profile, polling, err := Resolve(f, "prod-local")
	require.NoError(t, err)

	assert.Equal(t, diag.ProfileLocal, profile.Kind)
	assert.Equal(t, 1234, profile.TargetID)
	assert.Equal(t, 2*time.Second, polling.Interval)
	assert.Equal(t, 500, polling.HistoryCapacity)
}

func TestResolve_PerConnectionOverrideWinsAndIsClamped(t *testing.T) {
	path := writeTempConfig(t, sampleConfig)
	f, err := Load(path)
	require.NoError(t, err)

	_, polling, err := Resolve(f, "bridge")
	require.NoError(t, err)

	// bridge overrides interval to 500ms, which is already inside the
	// [250ms, 10s] range, so it passes through Clamp unchanged.
	assert.Equal(t, 500*time.Millisecond, polling.Interval)
}

func TestResolve_RemoteShellProfileDefaultsPortTo22(t *testing.T) {
	path := writeTempConfig(t, sampleConfig)
	f, err := Load(path)
	require.NoError(t, err)

	profile, _, err := Resolve(f, "prod-box")
	require.NoError(t, err)

	assert.Equal(t, diag.ProfileRemoteShell, profile.Kind)
	assert.Equal(t, 22, profile.Port)
	assert.Equal(t, diag.AuthKey, profile.Auth.Kind)
}

func TestResolve_UnknownConnectionNameErrors(t *testing.T) {
	f := Default()
	_, _, err := Resolve(f, "missing")
	assert.Error(t, err)
}

func TestFind_ReturnsExplicitPathWhenGiven(t *testing.T) {
	explicit := writeTempConfig(t, sampleConfig)
	found, err := Find(explicit)
	require.NoError(t, err)
	assert.Equal(t, explicit, found)
}

func TestSave_RoundTripsThroughLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ConfigFileName)

	f := Default()
	f.Connections["local"] = Connection{Type: TypeLocal, TargetID: 42}

	require.NoError(t, Save(f, path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 42, loaded.Connections["local"].TargetID)
	assert.Equal(t, f.Preferences.Interval, loaded.Preferences.Interval)
}

func TestSave_CreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", ConfigFileName)
	require.NoError(t, Save(Default(), path))
	_, err := os.Stat(path)
	require.NoError(t, err)
}

func TestLoadOrDefault_ReturnsDefaultWhenNoFileFound(t *testing.T) {
	cwd, err := os.Getwd()
	require.NoError(t, err)
	dir := t.TempDir()
	require.NoError(t, os.Chdir(dir))
	defer os.Chdir(cwd)

	t.Setenv("HOME", dir)

	f, err := LoadOrDefault()
	require.NoError(t, err)
	assert.Equal(t, CurrentConfigVersion, f.Version)
	assert.Empty(t, f.Connections)
}
