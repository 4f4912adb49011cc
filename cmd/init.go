package cmd

import (
	"fmt"
	"os"

	"github.com/mabhi256/jdiag/internal/config"
	"github.com/spf13/cobra"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter " + config.ConfigFileName + " in the current directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.ConfigFileName
		if _, err := os.Stat(path); err == nil && !initForce {
			return fmt.Errorf("%s already exists, pass --force to overwrite", path)
		}

		f := config.Default()
		if err := config.Save(f, path); err != nil {
			return err
		}

		fmt.Printf("Wrote %s\n", path)
		fmt.Println("Add a connection under \"connections:\" and run: jdiag watch <name>")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing config file")
}
