package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"weave/fiber"
	"weave/internal/trace"
)

var traceDumpFormat string

func init() {
	dumpCmd.Flags().StringVar(&traceDumpFormat, "format", "text", "dump format (text|ndjson|msgpack)")
	traceCmd.AddCommand(dumpCmd)
}

var traceCmd = &cobra.Command{
	Use:   "trace",
	Short: "Inspect scheduler trace output",
}

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Run the fan-out demo under a ring tracer and dump its events",
	Long: `dump runs the same workload as "weave run demo" with tracing forced to
ring mode at debug level, then writes every captured span/point event to
stdout in the requested format.`,
	RunE: runTraceDump,
}

func parseDumpFormat(s string) (trace.Format, error) {
	switch strings.ToLower(s) {
	case "text":
		return trace.FormatText, nil
	case "ndjson":
		return trace.FormatNDJSON, nil
	case "msgpack":
		return trace.FormatMsgpack, nil
	default:
		return 0, fmt.Errorf("invalid --format %q (expected text|ndjson|msgpack)", s)
	}
}

func runTraceDump(cmd *cobra.Command, args []string) error {
	format, err := parseDumpFormat(traceDumpFormat)
	if err != nil {
		return err
	}

	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	cfg.Trace.Mode = "ring"
	cfg.Trace.Level = "debug"
	if cfg.Trace.RingSize <= 0 {
		cfg.Trace.RingSize = 4096
	}

	sched, err := fiber.Initialize(cfg)
	if err != nil {
		return fmt.Errorf("initialize scheduler: %w", err)
	}

	if err := runDemoOn(sched, cmd); err != nil {
		sched.Quit()
		return err
	}

	ring, ok := sched.Tracer().(*trace.RingTracer)
	if !ok {
		sched.Quit()
		return fmt.Errorf("trace: mode %q did not produce a ring tracer", cfg.Trace.Mode)
	}
	if err := ring.Dump(os.Stdout, format); err != nil {
		sched.Quit()
		return fmt.Errorf("trace: dump: %w", err)
	}
	return sched.Quit()
}
