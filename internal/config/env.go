// Package config loads pairkit configuration from files and the
// environment.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Env holds the PAIRKIT_* environment overrides. Empty means unset.
type Env struct {
	LSCommand     string // PAIRKIT_LS_COMMAND
	LSArgs        []string
	Ledger        string // PAIRKIT_LEDGER
	LedgerPath    string // PAIRKIT_LEDGER_PATH
	LogLevel      string // PAIRKIT_LOG_LEVEL
	MetricsAddr   string // PAIRKIT_METRICS_ADDR
	RevealCommand []string
}

var (
	env     *Env
	envOnce sync.Once
)

// Environment returns the process environment, read once
func Environment() *Env {
	envOnce.Do(func() {
		env = &Env{
			LSCommand:     os.Getenv("PAIRKIT_LS_COMMAND"),
			LSArgs:        strings.Fields(os.Getenv("PAIRKIT_LS_ARGS")),
			Ledger:        os.Getenv("PAIRKIT_LEDGER"),
			LedgerPath:    os.Getenv("PAIRKIT_LEDGER_PATH"),
			LogLevel:      os.Getenv("PAIRKIT_LOG_LEVEL"),
			MetricsAddr:   os.Getenv("PAIRKIT_METRICS_ADDR"),
			RevealCommand: strings.Fields(os.Getenv("PAIRKIT_REVEAL_COMMAND")),
		}
	})
	return env
}

// ResetEnv drops the cached environment (for testing).
func ResetEnv() {
	envOnce = sync.Once{}
	env = nil
}

// Home is the pairkit home directory (~/.pairkit)
func Home() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, DirName)
}

// Path returns a path under the pairkit home directory
func Path(parts ...string) string {
	return filepath.Join(append([]string{Home()}, parts...)...)
}
