package cmd

import (
	"fmt"

	"github.com/mabhi256/jdiag/internal/diag"
	"github.com/spf13/cobra"
)

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Probe jcmd/jstat/jps availability and print capability/install guidance",
	RunE: func(cmd *cobra.Command, args []string) error {
		status := diag.Detect(cmd.Context())

		printToolStatus("jcmd", status.Jcmd)
		printToolStatus("jstat", status.Jstat)
		printToolStatus("jps", status.Jps)

		if status.HasJavaHome {
			fmt.Printf("JAVA_HOME: %s\n", status.JavaHome)
		} else {
			fmt.Println("JAVA_HOME: not set")
		}

		if !status.IsUsable() {
			fmt.Println()
			fmt.Print(status.InstallationGuidance())
			return fmt.Errorf("no usable JDK toolset found")
		}

		caps := status.Capabilities()
		fmt.Println()
		fmt.Println("Capabilities:")
		fmt.Printf("  discover           %v\n", caps.CanDiscover)
		fmt.Printf("  heap info          %v\n", caps.CanHeapInfo)
		fmt.Printf("  gc counters        %v\n", caps.CanGcCounters)
		fmt.Printf("  thread dump        %v\n", caps.CanThreadDump)
		fmt.Printf("  class histogram    %v\n", caps.CanClassHistogram)
		fmt.Printf("  trigger gc         %v\n", caps.CanTriggerGc)

		return nil
	},
}

func printToolStatus(name string, s diag.ToolStatus) {
	switch s.Kind {
	case diag.ToolAvailable:
		fmt.Printf("%-6s available  %s (%s)\n", name, s.Path, s.Banner)
	case diag.ToolNotExecutable:
		fmt.Printf("%-6s found but not executable  %s\n", name, s.Path)
	default:
		fmt.Printf("%-6s not found\n", name)
	}
}

func init() {
	rootCmd.AddCommand(detectCmd)
}
