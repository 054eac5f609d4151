// Package config provides configuration management for the elaboration
// driver, layered the way the teacher's pkg/config does: built-in
// defaults, overridden by a project file, overridden by explicit CLI
// flags.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// FrontendKind is how a configured frontend is reached.
type FrontendKind string

const (
	// FrontendBuiltin is an in-process frontend wired up by cmd/elabdriver
	// itself (e.g. the pass-through frontend); it has no Command.
	FrontendBuiltin FrontendKind = "builtin"

	// FrontendRemote is a subprocess speaking the jsonrpc2 wire protocol
	// of pkg/proto over its stdin/stdout.
	FrontendRemote FrontendKind = "remote"
)

// IsValid reports whether the frontend kind is recognized.
func (k FrontendKind) IsValid() bool {
	switch k {
	case FrontendBuiltin, FrontendRemote:
		return true
	default:
		return false
	}
}

// TopSelectionMode mirrors coordinator.TopSelectionMode as a
// TOML/CLI-friendly string, since the coordinator package is not
// imported here (config must stay free of session-wiring concerns).
type TopSelectionMode string

const (
	TopModeModule    TopSelectionMode = "module"
	TopModeFrontend  TopSelectionMode = "frontend"
	TopModeAutomatic TopSelectionMode = "automatic"
)

// IsValid reports whether the mode is recognized.
func (m TopSelectionMode) IsValid() bool {
	switch m {
	case TopModeModule, TopModeFrontend, TopModeAutomatic:
		return true
	default:
		return false
	}
}

// FrontendConfig describes one registered frontend.
type FrontendConfig struct {
	// ID is the frontend's identity in router candidate lists and
	// diagnostics; must be unique across the configured set.
	ID string `toml:"id"`

	// Kind selects builtin vs. remote wiring.
	Kind FrontendKind `toml:"kind"`

	// Command and Args launch a remote frontend subprocess. Ignored for
	// builtin frontends.
	Command string   `toml:"command"`
	Args    []string `toml:"args"`

	// TargetProvided marks this frontend as supplied by the target: it
	// is moved to the end of candidate order and, like every other
	// candidate, is asked in both routing rounds.
	TargetProvided bool `toml:"target_provided"`
}

// TopSelectionConfig controls how the top module(s) of a session are
// chosen (spec.md §4.1).
type TopSelectionConfig struct {
	Mode TopSelectionMode `toml:"mode"`

	// FrontendID names the frontend addressed directly in "module" and
	// "frontend" modes.
	FrontendID string `toml:"frontend_id"`

	// ModuleName is the top module requested in "module" mode.
	ModuleName string `toml:"module_name"`

	// ModuleNameCaseSensitive controls ModuleName's match semantics
	// (spec.md §3).
	ModuleNameCaseSensitive bool `toml:"module_name_case_sensitive"`
}

// Config is the complete elaboration-session configuration.
type Config struct {
	// Target identifies the synthesis target the session elaborates
	// for; frontends may use it to select target-specific libraries.
	Target string `toml:"target"`

	// ErrorOnUnknownModule controls whether a request that no frontend
	// answers becomes an UnknownModule diagnostic or a silent
	// not-provided (spec.md §6). A pointer so that an overrides value
	// can distinguish "flag not passed" (nil) from "flag passed as
	// false" (non-nil, false) — see applyOverrides.
	ErrorOnUnknownModule *bool `toml:"error_on_unknown_module"`

	// LogLevel selects the logging.Logger verbosity.
	LogLevel string `toml:"log_level"`

	Frontends    []FrontendConfig   `toml:"frontends"`
	TopSelection TopSelectionConfig `toml:"top_selection"`
}

// DefaultConfig returns the built-in default configuration: automatic
// top selection, no registered frontends beyond whatever cmd/elabdriver
// always wires in (the pass-through frontend, if a pre-elaborated input
// was given), errors on unknown modules, and info-level logging.
func DefaultConfig() *Config {
	return &Config{
		Target:               "",
		ErrorOnUnknownModule: boolPtr(true),
		LogLevel:             "info",
		TopSelection: TopSelectionConfig{
			Mode: TopModeAutomatic,
		},
	}
}

func boolPtr(b bool) *bool { return &b }

// Load loads configuration from multiple sources with precedence:
//  1. CLI flags (highest priority) - passed as overrides
//  2. Project elabdriver.toml (current directory)
//  3. User config (~/.elabdriver/config.toml)
//  4. Built-in defaults (lowest priority)
func Load(overrides *Config) (*Config, error) {
	cfg := DefaultConfig()

	userConfigPath := filepath.Join(os.Getenv("HOME"), ".elabdriver", "config.toml")
	if err := loadConfigFile(userConfigPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	}

	projectConfigPath := "elabdriver.toml"
	if err := loadConfigFile(projectConfigPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to load project config: %w", err)
	}

	if overrides != nil {
		applyOverrides(cfg, overrides)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// applyOverrides copies every non-zero field of overrides onto cfg.
// Frontends and TopSelection, when set at all in overrides, replace
// the accumulated value wholesale rather than merging field-by-field —
// a CLI invocation that specifies frontends or top-selection means it.
func applyOverrides(cfg, overrides *Config) {
	if overrides.Target != "" {
		cfg.Target = overrides.Target
	}
	if overrides.LogLevel != "" {
		cfg.LogLevel = overrides.LogLevel
	}
	if overrides.Frontends != nil {
		cfg.Frontends = overrides.Frontends
	}
	if overrides.TopSelection.Mode != "" {
		cfg.TopSelection = overrides.TopSelection
	}
	if overrides.ErrorOnUnknownModule != nil {
		cfg.ErrorOnUnknownModule = overrides.ErrorOnUnknownModule
	}
}

func loadConfigFile(path string, cfg *Config) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if !c.TopSelection.Mode.IsValid() {
		return fmt.Errorf("invalid top_selection.mode: %q", c.TopSelection.Mode)
	}
	switch c.TopSelection.Mode {
	case TopModeModule:
		if c.TopSelection.FrontendID == "" {
			return fmt.Errorf("top_selection.mode %q requires frontend_id", c.TopSelection.Mode)
		}
		if c.TopSelection.ModuleName == "" {
			return fmt.Errorf("top_selection.mode %q requires module_name", c.TopSelection.Mode)
		}
	case TopModeFrontend:
		if c.TopSelection.FrontendID == "" {
			return fmt.Errorf("top_selection.mode %q requires frontend_id", c.TopSelection.Mode)
		}
	}

	seen := make(map[string]bool, len(c.Frontends))
	for _, f := range c.Frontends {
		if f.ID == "" {
			return fmt.Errorf("frontend entry missing id")
		}
		if seen[f.ID] {
			return fmt.Errorf("duplicate frontend id %q", f.ID)
		}
		seen[f.ID] = true
		if !f.Kind.IsValid() {
			return fmt.Errorf("frontend %q: invalid kind %q", f.ID, f.Kind)
		}
		if f.Kind == FrontendRemote && f.Command == "" {
			return fmt.Errorf("frontend %q: kind remote requires command", f.ID)
		}
	}

	if (c.TopSelection.Mode == TopModeModule || c.TopSelection.Mode == TopModeFrontend) && !seen[c.TopSelection.FrontendID] {
		return fmt.Errorf("top_selection.frontend_id %q does not name a configured frontend", c.TopSelection.FrontendID)
	}

	return nil
}
