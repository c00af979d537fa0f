// Package main implements the weave CLI.
package main

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"weave/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "weave",
	Short: "weave fiber-tasking scheduler CLI",
	Long:  `weave runs and inspects a fiber-based cooperative task scheduler.`,
}

func main() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(benchCmd)
	rootCmd.AddCommand(monitorCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(traceCmd)

	rootCmd.PersistentFlags().String("config", "weave.toml", "path to a weave.toml config file")
	rootCmd.PersistentFlags().Int("workers", 0, "worker lane count (0 = logical core count)")
	rootCmd.PersistentFlags().Int("fiber-pool-size", 0, "fiber pool size (0 = config/default)")
	rootCmd.PersistentFlags().Bool("affinity", true, "pin worker lanes to logical cores")
	rootCmd.PersistentFlags().String("panic-policy", "", "task panic policy (log|repanic, empty = config/default)")
	rootCmd.PersistentFlags().String("trace", "", "trace output path, or \"-\" for stderr")
	rootCmd.PersistentFlags().String("trace-level", "", "trace level (off|error|phase|detail|debug)")
	rootCmd.PersistentFlags().String("trace-mode", "", "trace storage mode (stream|ring|both)")
	rootCmd.PersistentFlags().Int("trace-ring-size", 0, "ring tracer capacity")
	rootCmd.PersistentFlags().Duration("trace-heartbeat", 0, "heartbeat interval (0 disables)")
	rootCmd.PersistentFlags().String("ui", "", "terminal UI mode (auto|on|off, empty = WEAVE_UI or auto)")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
