package fiber

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/BurntSushi/toml"

	"weave/internal/trace"
)

// Config controls one Scheduler's shape and observability. The zero value
// is not directly usable — call DefaultConfig or LoadConfig, both of which
// fill in every zero field with a sensible default.
type Config struct {
	// Workers is the number of kernel-thread-pinned worker lanes to start.
	// Zero means "one per logical core" (runtime.NumCPU()).
	Workers int `toml:"workers"`

	// FiberPoolSize is the number of reusable fibers allocated at
	// Initialize. Zero means DefaultFiberPoolSize. This must exceed the
	// maximum number of fibers that can be simultaneously parked in
	// WaitForCounter, or a WaitForCounter call blocks waiting for a free
	// fiber and the workers can deadlock under load.
	FiberPoolSize int `toml:"fiber_pool_size"`

	// Affinity pins each worker's bootstrap goroutine to one logical core
	// via sched_setaffinity on Linux; it is a no-op elsewhere.
	Affinity bool `toml:"affinity"`

	// FiberStackSize is the stack size, in bytes, the spec's fiber backend
	// would allocate per fiber (spec.md §6 default: 512 KiB). This
	// implementation's fibers are goroutines with the runtime's own
	// growable stacks (see DESIGN.md's resolution of the §9 "Platform
	// fiber primitives" question), so there is no allocation call this
	// value feeds — it is carried, validated, and surfaced through Config
	// purely so a caller configuring this scheduler alongside a real
	// native-fiber backend elsewhere in the same process sees one
	// consistent number. Zero means DefaultFiberStackSize.
	FiberStackSize int `toml:"fiber_stack_size"`

	// PanicPolicy controls what happens after a task function panics.
	// Zero value is PanicPolicyLog.
	PanicPolicy PanicPolicy `toml:"panic_policy"`

	Trace TraceConfig `toml:"trace"`
}

// PanicPolicy selects how a recovered task panic is disposed of after its
// counter has been decremented so waiters are never stuck.
type PanicPolicy string

const (
	// PanicPolicyLog logs the panic to stderr and lets the worker continue
	// pulling work. The default: a long-running scheduler process outlives
	// any one bad task.
	PanicPolicyLog PanicPolicy = "log"

	// PanicPolicyRepanic re-raises the panic on the worker goroutine after
	// recording it to the tracer, crashing the process.
	PanicPolicyRepanic PanicPolicy = "repanic"
)

// TraceConfig is the [trace] section of weave.toml.
type TraceConfig struct {
	Level       string `toml:"level"`        // off|error|phase|detail|debug
	Mode        string `toml:"mode"`         // stream|ring|both
	Output      string `toml:"output"`       // path, or "-" for stderr
	RingSize    int    `toml:"ring_size"`
	HeartbeatMS int    `toml:"heartbeat_ms"` // 0 disables the heartbeat
}

// DefaultConfig returns the configuration used when no weave.toml is found.
func DefaultConfig() Config {
	return Config{
		Workers:        runtime.NumCPU(),
		FiberPoolSize:  DefaultFiberPoolSize,
		Affinity:       true,
		FiberStackSize: DefaultFiberStackSize,
		PanicPolicy:    PanicPolicyLog,
		Trace: TraceConfig{
			Level:    "off",
			Mode:     "ring",
			Output:   "-",
			RingSize: 4096,
		},
	}
}

// LoadConfig reads weave.toml from path and fills any zero field with its
// default. A missing file is not an error: DefaultConfig is returned as-is.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	var onDisk Config
	meta, err := toml.DecodeFile(path, &onDisk)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}

	if onDisk.Workers > 0 {
		cfg.Workers = onDisk.Workers
	}
	if onDisk.FiberPoolSize > 0 {
		cfg.FiberPoolSize = onDisk.FiberPoolSize
	}
	if meta.IsDefined("affinity") {
		cfg.Affinity = onDisk.Affinity
	}
	if onDisk.FiberStackSize > 0 {
		cfg.FiberStackSize = onDisk.FiberStackSize
	}
	if onDisk.PanicPolicy != "" {
		cfg.PanicPolicy = onDisk.PanicPolicy
	}
	if onDisk.Trace.Level != "" {
		cfg.Trace.Level = onDisk.Trace.Level
	}
	if onDisk.Trace.Mode != "" {
		cfg.Trace.Mode = onDisk.Trace.Mode
	}
	if onDisk.Trace.Output != "" {
		cfg.Trace.Output = onDisk.Trace.Output
	}
	if onDisk.Trace.RingSize > 0 {
		cfg.Trace.RingSize = onDisk.Trace.RingSize
	}
	if onDisk.Trace.HeartbeatMS > 0 {
		cfg.Trace.HeartbeatMS = onDisk.Trace.HeartbeatMS
	}
	return cfg, nil
}

// Validate checks the configuration-error conditions a caller can trigger:
// a fiber pool too small to ever satisfy maximum-concurrent-wait load
// deadlocks every worker instead of failing fast, so Initialize rejects it
// up front.
func (c Config) Validate() error {
	if c.Workers <= 0 {
		return fmt.Errorf("fiber: invalid config: workers must be positive, got %d", c.Workers)
	}
	min := 2*c.Workers + 1
	if c.FiberPoolSize < min {
		return fmt.Errorf("fiber: invalid config: fiber_pool_size %d must be >= 2*workers+1 (%d)", c.FiberPoolSize, min)
	}
	if c.FiberStackSize <= 0 {
		return fmt.Errorf("fiber: invalid config: fiber_stack_size must be positive, got %d", c.FiberStackSize)
	}
	return nil
}

func (c Config) newTracer() (trace.Tracer, error) {
	level, err := trace.ParseLevel(c.Trace.Level)
	if err != nil {
		return nil, err
	}
	mode, err := trace.ParseMode(c.Trace.Mode)
	if err != nil {
		return nil, err
	}
	return trace.New(trace.Config{
		Level:      level,
		Mode:       mode,
		OutputPath: c.Trace.Output,
		RingSize:   c.Trace.RingSize,
		Heartbeat:  time.Duration(c.Trace.HeartbeatMS) * time.Millisecond,
	})
}
