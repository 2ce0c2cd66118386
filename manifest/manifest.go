// Package manifest loads skink.toml, the embedder-facing configuration
// file carrying resource limits and the GPIO pin allow-list. The file is
// optional; absent sections keep the built-in defaults.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/chazu/skink/security"
)

// DefaultFileName is what Find looks for.
const DefaultFileName = "skink.toml"

// Manifest represents a skink.toml configuration.
type Manifest struct {
	Project Project      `toml:"project"`
	Limits  LimitsConfig `toml:"limits"`
	Pins    PinsConfig   `toml:"pins"`

	// Dir is the directory containing the file (set at load time).
	Dir string `toml:"-"`
}

// Project identifies the script project. Informational only.
type Project struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// LimitsConfig mirrors the adjustable budgets in security.Limits. A zero
// field means "keep the default".
type LimitsConfig struct {
	MaxStringLength       int    `toml:"max_string_length"`
	MaxVariableNameLength int    `toml:"max_variable_name_length"`
	MaxExpressionDepth    int    `toml:"max_expression_depth"`
	MaxLoopDepth          int    `toml:"max_loop_depth"`
	MaxIfDepth            int    `toml:"max_if_depth"`
	MaxStackSize          int    `toml:"max_stack_size"`
	MaxInstructions       uint32 `toml:"max_instructions"`
}

// PinsConfig carries the pin allow-list. A nil list keeps the default
// (the built-in LED only); an explicit empty list forbids all pins.
type PinsConfig struct {
	Allowed []uint8 `toml:"allowed"`
}

// Load reads and parses a manifest file.
func Load(path string) (*Manifest, error) {
	var m Manifest
	if _, err := toml.DecodeFile(path, &m); err != nil {
		return nil, fmt.Errorf("manifest: parse %s: %w", path, err)
	}
	m.Dir = filepath.Dir(path)
	return &m, nil
}

// Find walks up from dir looking for skink.toml. Returns the empty
// string when none exists.
func Find(dir string) string {
	for {
		candidate := filepath.Join(dir, DefaultFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// Apply copies the manifest's settings into a limits policy through its
// validating setters. The first out-of-range value aborts with an error;
// earlier fields may already have been applied.
func (m *Manifest) Apply(l *security.Limits) error {
	set := func(v int, f func(int) error) error {
		if v == 0 {
			return nil
		}
		return f(v)
	}

	if err := set(m.Limits.MaxStringLength, l.SetMaxStringLength); err != nil {
		return err
	}
	if err := set(m.Limits.MaxVariableNameLength, l.SetMaxVariableNameLength); err != nil {
		return err
	}
	if err := set(m.Limits.MaxExpressionDepth, l.SetMaxExpressionDepth); err != nil {
		return err
	}
	if err := set(m.Limits.MaxLoopDepth, l.SetMaxLoopDepth); err != nil {
		return err
	}
	if err := set(m.Limits.MaxIfDepth, l.SetMaxIfDepth); err != nil {
		return err
	}
	if err := set(m.Limits.MaxStackSize, l.SetMaxStackSize); err != nil {
		return err
	}
	if m.Limits.MaxInstructions != 0 {
		if err := l.SetMaxInstructions(m.Limits.MaxInstructions); err != nil {
			return err
		}
	}
	if m.Pins.Allowed != nil {
		l.SetAllowedPins(m.Pins.Allowed)
	}
	return nil
}
