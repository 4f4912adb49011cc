package diag

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateProfile_LocalRejectsOutOfRangeTargetID(t *testing.T) {
	err := validateProfile(Profile{Kind: ProfileLocal, TargetID: -1})
	assert.Error(t, err)
}

func TestValidateProfile_RemoteShellRequiresHost(t *testing.T) {
	err := validateProfile(Profile{Kind: ProfileRemoteShell, TargetID: 1})
	assert.Error(t, err)
}

func TestValidateProfile_RemoteShellRejectsUnreadableKeyFile(t *testing.T) {
	err := validateProfile(Profile{
		Kind:     ProfileRemoteShell,
		TargetID: 1,
		Host:     "example.com",
		Auth:     ShellAuth{Kind: AuthKey, Path: filepath.Join(t.TempDir(), "missing-key")},
	})
	assert.Error(t, err)
	assert.Equal(t, KindAuthFailed, KindOf(err))
}

func TestValidateProfile_RemoteShellAcceptsReadableKeyFile(t *testing.T) {
	dir := t.TempDir()
	keyPath := filepath.Join(dir, "id_ed25519")
	require.NoError(t, os.WriteFile(keyPath, []byte("not a real key"), 0o600))

	err := validateProfile(Profile{
		Kind:     ProfileRemoteShell,
		TargetID: 1,
		Host:     "example.com",
		Auth:     ShellAuth{Kind: AuthKey, Path: keyPath},
	})
	assert.NoError(t, err)
}

func TestValidateProfile_RemoteHttpRejectsMalformedURL(t *testing.T) {
	err := validateProfile(Profile{Kind: ProfileRemoteHTTP, URL: "not-a-url"})
	assert.Error(t, err)
	assert.Equal(t, KindProtocol, KindOf(err))
}

func TestValidateProfile_RemoteHttpAcceptsWellFormedURL(t *testing.T) {
	err := validateProfile(Profile{Kind: ProfileRemoteHTTP, URL: "http://localhost:8778/jolokia"})
	assert.NoError(t, err)
}

func TestAttach_InvalidProfileReturnsErrorWithoutSession(t *testing.T) {
	s, err := Attach(context.Background(), Profile{Kind: ProfileLocal, TargetID: -5}, PollingConfig{})
	assert.Nil(t, s)
	assert.Error(t, err)
}

func TestAttach_RemoteHttpProfileStartsInAttachedState(t *testing.T) {
	profile := Profile{Kind: ProfileRemoteHTTP, URL: "http://127.0.0.1:1/jolokia"}
	s, err := Attach(context.Background(), profile, PollingConfig{Interval: minInterval, CommandTimeout: 50 * time.Millisecond})
	require.NoError(t, err)
	require.NotNil(t, s)
	defer s.Stop()

	assert.Equal(t, StateAttached, s.State())
	assert.NotNil(t, s.Store())
	assert.NotNil(t, s.Events())
	assert.Equal(t, profile, s.Profile())
}

func TestSession_StopIsIdempotentAndTransitionsToTornDown(t *testing.T) {
	profile := Profile{Kind: ProfileRemoteHTTP, URL: "http://127.0.0.1:1/jolokia"}
	s, err := Attach(context.Background(), profile, PollingConfig{Interval: minInterval, CommandTimeout: 50 * time.Millisecond})
	require.NoError(t, err)

	s.Stop()
	assert.Equal(t, StateTornDown, s.State())

	s.Stop() // must not panic or re-transition
	assert.Equal(t, StateTornDown, s.State())
}
