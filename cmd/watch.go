package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mabhi256/jdiag/internal/config"
	"github.com/mabhi256/jdiag/internal/diag"
	"github.com/mabhi256/jdiag/internal/watch"
	"github.com/mabhi256/jdiag/utils"
	"github.com/spf13/cobra"
)

var (
	interval     int
	configPath   string
	historyCap   int
	cmdTimeoutMs int
)

var watchCmd = &cobra.Command{
	Use: "watch [PID|HOST:PORT|CONNECTION]",
	Short: `Watch provides real-time monitoring of Java application performance metrics including:
- Heap memory usage (young/old generation)
- GC events and frequency
- Thread counts by state
- Class loading statistics

The tool automatically discovers running Java processes and can attach over a
local jcmd/jstat toolchain, an SSH-reachable remote host, or a Jolokia-style
management HTTP bridge.

Examples:
  jdiag watch                  # Interactive local process selection
  jdiag watch 1234             # Monitor local process ID 1234
  jdiag watch localhost:8778   # Monitor a Jolokia bridge on localhost:8778
  jdiag watch prod-box         # Monitor the "prod-box" connection from config`,
	Args: cobra.MaximumNArgs(1),
	ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		if len(args) != 0 {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}

		status := diag.Detect(context.Background())
		targets, err := diag.DiscoverLocalTargets(context.Background(), status)
		if err != nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}

		completions := make([]string, 0, len(targets))
		for _, t := range targets {
			completions = append(completions, fmt.Sprintf("%d\t%s", t.ID, t.MainLabel))
		}
		return completions, cobra.ShellCompDirectiveNoFileComp
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		profile, polling, err := resolveWatchTarget(ctx, args)
		if err != nil {
			return err
		}

		if interval > 0 {
			polling.Interval = time.Duration(interval) * time.Millisecond
		}
		if historyCap > 0 {
			polling.HistoryCapacity = historyCap
		}
		if cmdTimeoutMs > 0 {
			polling.CommandTimeout = time.Duration(cmdTimeoutMs) * time.Millisecond
		}
		polling = polling.Clamp()

		session, err := diag.Attach(ctx, profile, polling)
		if err != nil {
			return fmt.Errorf("unable to attach: %w", err)
		}
		defer session.Stop()

		if err := watch.StartTUI(session); err != nil {
			return fmt.Errorf("unable to start TUI: %w", err)
		}

		return nil
	},
}

// resolveWatchTarget interprets the command's single positional argument:
// a bare PID attaches locally, host:port attaches over the HTTP bridge,
// anything else is looked up as a named connection in the config file. No
// argument falls back to interactive local-process selection.
func resolveWatchTarget(ctx context.Context, args []string) (diag.Profile, diag.PollingConfig, error) {
	if len(args) == 0 {
		return resolveInteractiveLocal(ctx)
	}

	arg := args[0]

	if pid, err := strconv.Atoi(arg); err == nil && pid > 0 {
		return diag.Profile{Kind: diag.ProfileLocal, TargetID: pid}, diag.PollingConfig{Interval: time.Second}.Clamp(), nil
	}

	if host, port, ok := parseHostPort(arg); ok {
		url := fmt.Sprintf("http://%s:%d/jolokia", host, port)
		return diag.Profile{Kind: diag.ProfileRemoteHTTP, URL: url}, diag.PollingConfig{Interval: time.Second}.Clamp(), nil
	}

	f, err := loadWatchConfig()
	if err != nil {
		return diag.Profile{}, diag.PollingConfig{}, err
	}
	profile, polling, err := config.Resolve(f, arg)
	if err != nil {
		return diag.Profile{}, diag.PollingConfig{}, fmt.Errorf("invalid argument %q: must be a PID, host:port, or a connection name from %s (%w)", arg, config.ConfigFileName, err)
	}
	return profile, polling, nil
}

func loadWatchConfig() (*config.File, error) {
	if configPath != "" {
		return config.Load(configPath)
	}
	return config.LoadOrDefault()
}

func resolveInteractiveLocal(ctx context.Context) (diag.Profile, diag.PollingConfig, error) {
	status := diag.Detect(ctx)
	if !status.IsUsable() {
		return diag.Profile{}, diag.PollingConfig{}, fmt.Errorf("%s", status.InstallationGuidance())
	}

	targets, err := diag.DiscoverLocalTargets(ctx, status)
	if err != nil {
		return diag.Profile{}, diag.PollingConfig{}, err
	}
	if len(targets) == 0 {
		return diag.Profile{}, diag.PollingConfig{}, fmt.Errorf("no local JVMs found")
	}

	pid, err := watch.SelectLocalTarget(targets)
	if err != nil {
		return diag.Profile{}, diag.PollingConfig{}, err
	}

	return diag.Profile{Kind: diag.ProfileLocal, TargetID: pid}, diag.PollingConfig{Interval: time.Second}.Clamp(), nil
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().IntVarP(&interval, "interval", "i", 0, "Polling interval in ms (default: 1000, clamped to [250, 10000])")
	watchCmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to jdiag config file")
	watchCmd.Flags().IntVar(&historyCap, "history", 0, "Number of samples retained per history series")
	watchCmd.Flags().IntVar(&cmdTimeoutMs, "timeout", 0, "Per-poll command timeout in ms")

	_ = watchCmd.RegisterFlagCompletionFunc("config", utils.CompleteFilesByExtension([]string{".yaml", ".yml"}, false))
}

func parseHostPort(arg string) (string, int, bool) {
	before, after, found := strings.Cut(arg, ":")
	if !found {
		return "", 0, false
	}
	port, err := strconv.Atoi(strings.TrimSpace(after))
	if err != nil {
		return "", 0, false
	}
	return before, port, true
}
