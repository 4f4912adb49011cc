package diag

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// ToolName identifies one of the three JDK command-line tools this
// package depends on.
type ToolName string

const (
	ToolJcmd  ToolName = "jcmd"
	ToolJstat ToolName = "jstat"
	ToolJps   ToolName = "jps"
)

// ToolStatusKind discriminates the outcome of probing one tool.
type ToolStatusKind int

const (
	ToolNotFound ToolStatusKind = iota
	ToolAvailable
	ToolNotExecutable
)

// ToolStatus is the result of probing one candidate path for a tool.
type ToolStatus struct {
	Kind   ToolStatusKind
	Path   string
	Banner string // first line of `<tool> -version` output, when Available
}

func (s ToolStatus) IsAvailable() bool { return s.Kind == ToolAvailable }

// Capabilities is the bitset of operations the detected toolset supports,
// derived from which of jcmd/jstat/jps were found (grounded on
// original_source's jdk_tools/detector.rs Capabilities struct).
type Capabilities struct {
	CanDiscover        bool
	CanHeapInfo        bool
	CanGcCounters      bool
	CanThreadDump      bool
	CanClassHistogram  bool
	CanTriggerGc       bool
}

// ToolsStatus bundles the probe result for all three tools plus JAVA_HOME.
type ToolsStatus struct {
	Jcmd     ToolStatus
	Jstat    ToolStatus
	Jps      ToolStatus
	JavaHome string
	HasJavaHome bool
}

// IsUsable matches spec.md's rule: jcmd alone, or jps+jstat together.
func (s ToolsStatus) IsUsable() bool {
	return s.Jcmd.IsAvailable() || (s.Jps.IsAvailable() && s.Jstat.IsAvailable())
}

// Capabilities derives the capability bitset from tool availability.
func (s ToolsStatus) Capabilities() Capabilities {
	return Capabilities{
		CanDiscover:       s.Jcmd.IsAvailable() || s.Jps.IsAvailable(),
		CanHeapInfo:       s.Jcmd.IsAvailable(),
		CanGcCounters:     s.Jstat.IsAvailable() || s.Jcmd.IsAvailable(),
		CanThreadDump:     s.Jcmd.IsAvailable(),
		CanClassHistogram: s.Jcmd.IsAvailable(),
		CanTriggerGc:      s.Jcmd.IsAvailable(),
	}
}

// Detect probes jcmd, jstat and jps (§4.8): for each, it searches
// $JAVA_HOME/bin/<tool> first, then falls back to PATH resolution, and
// spawns `<tool> -version` under a 1s deadline to confirm the binary
// actually runs.
func Detect(ctx context.Context) ToolsStatus {
	javaHome, hasJavaHome := os.LookupEnv("JAVA_HOME")
	return ToolsStatus{
		Jcmd:        detectTool(ctx, ToolJcmd, javaHome, hasJavaHome),
		Jstat:       detectTool(ctx, ToolJstat, javaHome, hasJavaHome),
		Jps:         detectTool(ctx, ToolJps, javaHome, hasJavaHome),
		JavaHome:    javaHome,
		HasJavaHome: hasJavaHome,
	}
}

func detectTool(ctx context.Context, name ToolName, javaHome string, hasJavaHome bool) ToolStatus {
	candidates := make([]string, 0, 2)
	if hasJavaHome {
		candidates = append(candidates, filepath.Join(javaHome, "bin", toolBinary(name)))
	}
	candidates = append(candidates, string(name))

	for _, path := range candidates {
		switch status, ok := probeTool(ctx, path); {
		case ok && status.Kind == ToolAvailable:
			return status
		case ok && status.Kind == ToolNotExecutable:
			return status
		}
	}
	return ToolStatus{Kind: ToolNotFound}
}

func toolBinary(name ToolName) string {
	if runtime.GOOS == "windows" {
		return string(name) + ".exe"
	}
	return string(name)
}

const defaultDetectProbeDeadline = defaultDetectProbe

// probeTool spawns `<path> -version` under a 1s deadline. ok is false
// only when the path was not found at all (so the caller should try the
// next candidate); it is true for both Available and NotExecutable, which
// are terminal for this candidate.
func probeTool(ctx context.Context, path string) (ToolStatus, bool) {
	cctx, cancel := context.WithTimeout(ctx, defaultDetectProbeDeadline)
	defer cancel()

	cmd := exec.CommandContext(cctx, path, "-version")
	output, err := cmd.CombinedOutput()
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
			return ToolStatus{}, false
		}
		// jcmd/jstat/jps exit non-zero on -version in some JDK builds but
		// still print a usable banner; only a true spawn failure (not
		// found, not executable, permission denied) disqualifies the path.
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return ToolStatus{Kind: ToolNotExecutable, Path: path}, true
		}
	}
	return ToolStatus{Kind: ToolAvailable, Path: path, Banner: firstNonEmptyLine(string(output))}, true
}

func firstNonEmptyLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			return line
		}
	}
	return "unknown"
}

// InstallationGuidance renders a human-readable remediation message for
// the current platform, grounded on original_source's
// JdkToolsStatus::installation_guidance.
func (s ToolsStatus) InstallationGuidance() string {
	platform := platformName()
	var b strings.Builder
	b.WriteString("JDK tools detection failed on ")
	b.WriteString(platform)
	b.WriteString("\n\n")

	if !s.Jcmd.IsAvailable() {
		b.WriteString("jcmd not found\n")
	}
	if !s.Jstat.IsAvailable() {
		b.WriteString("jstat not found\n")
	}
	if !s.Jps.IsAvailable() {
		b.WriteString("jps not found\n")
	}

	b.WriteString("\nInstallation instructions:\n\n")
	switch platform {
	case "macOS":
		b.WriteString("Using Homebrew:\n")
		b.WriteString("  brew install openjdk@21\n")
		b.WriteString("  echo 'export PATH=\"/opt/homebrew/opt/openjdk@21/bin:$PATH\"' >> ~/.zshrc\n\n")
		b.WriteString("Or download from:\n  https://adoptium.net/\n")
	case "Linux":
		b.WriteString("Ubuntu/Debian:\n  sudo apt update\n  sudo apt install openjdk-21-jdk\n\n")
		b.WriteString("RHEL/CentOS/Fedora:\n  sudo dnf install java-21-openjdk-devel\n")
	case "Windows":
		b.WriteString("Download and install:\n  https://adoptium.net/\n\n")
		b.WriteString("Then add to PATH:\n  System Properties > Environment Variables > Path\n")
		b.WriteString("  Add: C:\\Program Files\\Eclipse Adoptium\\jdk-21\\bin\n")
	default:
		b.WriteString("Please install a JDK (version 11 or higher).\n  https://adoptium.net/\n")
	}

	if s.HasJavaHome {
		b.WriteString("\nJAVA_HOME is set to: ")
		b.WriteString(s.JavaHome)
		b.WriteString("\nMake sure this JDK installation includes the required tools.\n")
	} else {
		b.WriteString("\nJAVA_HOME is not set.\nSet it to your JDK installation directory.\n")
	}
	return b.String()
}

func platformName() string {
	switch runtime.GOOS {
	case "darwin":
		return "macOS"
	case "linux":
		return "Linux"
	case "windows":
		return "Windows"
	default:
		return "Unknown"
	}
}

