package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"weave/fiber"
)

// resolveConfig loads weave.toml from the --config path, then overrides
// whatever the command line explicitly set. Persistent flags left at their
// zero value never override a config file value.
func resolveConfig(cmd *cobra.Command) (fiber.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return fiber.Config{}, err
	}
	cfg, err := fiber.LoadConfig(path)
	if err != nil {
		return fiber.Config{}, err
	}

	if v, _ := cmd.Flags().GetInt("workers"); v > 0 {
		cfg.Workers = v
	}
	if v, _ := cmd.Flags().GetInt("fiber-pool-size"); v > 0 {
		cfg.FiberPoolSize = v
	}
	if cmd.Flags().Changed("affinity") {
		v, _ := cmd.Flags().GetBool("affinity")
		cfg.Affinity = v
	}
	if v, _ := cmd.Flags().GetString("panic-policy"); v != "" {
		switch v {
		case string(fiber.PanicPolicyLog), string(fiber.PanicPolicyRepanic):
			cfg.PanicPolicy = fiber.PanicPolicy(v)
		default:
			return fiber.Config{}, fmt.Errorf("invalid --panic-policy %q (expected log|repanic)", v)
		}
	}
	if v, _ := cmd.Flags().GetString("trace"); v != "" {
		cfg.Trace.Output = v
	}
	if v, _ := cmd.Flags().GetString("trace-level"); v != "" {
		cfg.Trace.Level = v
	}
	if v, _ := cmd.Flags().GetString("trace-mode"); v != "" {
		cfg.Trace.Mode = v
	}
	if v, _ := cmd.Flags().GetInt("trace-ring-size"); v > 0 {
		cfg.Trace.RingSize = v
	}
	if v, _ := cmd.Flags().GetDuration("trace-heartbeat"); v > 0 {
		cfg.Trace.HeartbeatMS = int(v.Milliseconds())
	}
	return cfg, nil
}
