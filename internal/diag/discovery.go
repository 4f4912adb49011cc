package diag

import (
	"context"
)

// defaultDiscoveryTimeout bounds a single jcmd -l / jps -l invocation.
const defaultDiscoveryTimeout = 2 * defaultDetectProbe

// DiscoverLocalTargets enumerates local JVMs, preferring jcmd -l and
// falling back to jps -l when jcmd is unavailable (§4.9), grounded on
// original_source's discover_local_jvms: tries jcmd first, then jps, and
// fails only when neither tool is usable.
func DiscoverLocalTargets(ctx context.Context, status ToolsStatus) ([]DiscoveredTarget, error) {
	switch {
	case status.Jcmd.IsAvailable():
		return discoverVia(ctx, status.Jcmd.Path, "-l")
	case status.Jps.IsAvailable():
		return discoverVia(ctx, status.Jps.Path, "-l")
	default:
		return nil, NewError(KindToolsUnavailable, "no JDK tools available for JVM discovery")
	}
}

// DiscoverRemoteShellTargets runs the same probe over an already-dialed
// ShellExec, using whichever binary name the connector's toolset exposes.
func DiscoverRemoteShellTargets(ctx context.Context, transport Transport, toolPath string) ([]DiscoveredTarget, error) {
	cctx, cancel := context.WithTimeout(ctx, defaultDiscoveryTimeout)
	defer cancel()
	result, err := transport.Exec(cctx, toolPath, []string{"-l"})
	if err != nil {
		return nil, err
	}
	return ParseDiscoveredTargets(string(result.Stdout)), nil
}

func discoverVia(ctx context.Context, path string, args ...string) ([]DiscoveredTarget, error) {
	local := &LocalExec{}
	cctx, cancel := context.WithTimeout(ctx, defaultDiscoveryTimeout)
	defer cancel()
	result, err := local.Exec(cctx, path, args)
	if err != nil {
		return nil, err
	}
	return ParseDiscoveredTargets(string(result.Stdout)), nil
}
