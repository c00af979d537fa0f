package fiber

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfig_ValidateRejectsNonPositiveWorkers(t *testing.T) {
	c := DefaultConfig()
	c.Workers = 0
	if err := c.Validate(); err == nil {
		t.Fatalf("Validate(): expected error for zero workers")
	}
}

func TestConfig_ValidateRejectsUndersizedPool(t *testing.T) {
	c := DefaultConfig()
	c.Workers = 4
	c.FiberPoolSize = 2*c.Workers // one short of the 2*workers+1 minimum
	if err := c.Validate(); err == nil {
		t.Fatalf("Validate(): expected error for undersized fiber pool")
	}
}

func TestConfig_ValidateAcceptsBoundaryMinimum(t *testing.T) {
	c := DefaultConfig()
	c.Workers = 4
	c.FiberPoolSize = 2*c.Workers + 1
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate(): unexpected error at boundary minimum: %v", err)
	}
}

func TestLoadConfig_MissingFileReturnsDefault(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("LoadConfig: unexpected error: %v", err)
	}
	if cfg != DefaultConfig() {
		t.Fatalf("LoadConfig: got %+v, want default config", cfg)
	}
}

func TestLoadConfig_OverridesOnlySetFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weave.toml")
	const body = `
workers = 3
panic_policy = "repanic"

[trace]
level = "debug"
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: unexpected error: %v", err)
	}
	if cfg.Workers != 3 {
		t.Fatalf("Workers = %d, want 3", cfg.Workers)
	}
	if cfg.PanicPolicy != PanicPolicyRepanic {
		t.Fatalf("PanicPolicy = %q, want %q", cfg.PanicPolicy, PanicPolicyRepanic)
	}
	if cfg.Trace.Level != "debug" {
		t.Fatalf("Trace.Level = %q, want %q", cfg.Trace.Level, "debug")
	}
	// Untouched fields keep their defaults.
	if cfg.FiberPoolSize != DefaultFiberPoolSize {
		t.Fatalf("FiberPoolSize = %d, want default %d", cfg.FiberPoolSize, DefaultFiberPoolSize)
	}
	if cfg.Trace.Mode != "ring" {
		t.Fatalf("Trace.Mode = %q, want default %q", cfg.Trace.Mode, "ring")
	}
}

func TestLoadConfig_RejectsMalformedTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weave.toml")
	if err := os.WriteFile(path, []byte("not = [valid"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Fatalf("LoadConfig: expected error for malformed TOML")
	}
}
