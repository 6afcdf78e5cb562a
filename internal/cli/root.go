// Package cli holds calo's cobra commands.
package cli

import (
	"fmt"
	"os"

	"github.com/jwulff/calo/internal/config"
	"github.com/spf13/cobra"
)

var (
	configPath string
	dbPath     string
	debug      bool
)

var rootCmd = &cobra.Command{
	Use:   "calo",
	Short: "Voice nutrition logger",
	Long: `calo records what you ate, transcribes it, looks each food up in
Open Food Facts and keeps a local log of calories and macros.

Run without a command to open the interactive view.`,
	SilenceUsage: true,
	RunE:         runTUI,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default "+config.DefaultPath()+")")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path, overrides db_path")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "verbose logging")
}

// Execute runs the root command.
func Execute(version string) {
	rootCmd.Version = version
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
