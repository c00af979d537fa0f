package main

import (
	"fmt"
	"os"
	"strings"
)

// uiMode selects whether "weave monitor" renders its live worker/fiber
// dashboard with bubbletea or falls back to plain line-oriented output.
// The dashboard assumes a real terminal and a populated ring tracer (see
// monitor.go); neither holds when weave runs headless.
type uiMode string

const (
	uiModeAuto uiMode = "auto"
	uiModeOn   uiMode = "on"
	uiModeOff  uiMode = "off"
)

// readUIMode parses the --ui flag. An unset flag falls back to the
// WEAVE_UI environment variable before defaulting to auto, so a CI
// pipeline or a wrapper script can pin the mode once instead of every
// invocation needing its own --ui flag.
func readUIMode(value string) (uiMode, error) {
	v := strings.TrimSpace(strings.ToLower(value))
	if v == "" {
		v = strings.TrimSpace(strings.ToLower(os.Getenv("WEAVE_UI")))
	}
	switch v {
	case "", "auto":
		return uiModeAuto, nil
	case "on":
		return uiModeOn, nil
	case "off":
		return uiModeOff, nil
	default:
		return "", fmt.Errorf("invalid --ui value %q (expected auto|on|off)", value)
	}
}

// shouldUseTUI decides whether the dashboard should actually start. An
// explicit on/off always wins. auto falls back to plain output whenever
// stdout isn't a real terminal, or the process is running under CI — most
// CI runners export CI=true, and a dashboard that repaints in place is
// unreadable in a captured log.
func shouldUseTUI(mode uiMode) bool {
	switch mode {
	case uiModeOn:
		return true
	case uiModeOff:
		return false
	default:
		return isTerminal(os.Stdout) && os.Getenv("CI") == ""
	}
}
