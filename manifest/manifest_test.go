package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/chazu/skink/security"
)

func writeManifest(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, DefaultFileName)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadAndApply(t *testing.T) {
	path := writeManifest(t, t.TempDir(), `
[project]
name = "blinky"
version = "0.1.0"

[limits]
max_string_length = 128
max_stack_size = 64
max_instructions = 50000

[pins]
allowed = [2, 3, 13]
`)

	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m.Project.Name != "blinky" {
		t.Errorf("project name = %q", m.Project.Name)
	}

	limits := security.DefaultLimits()
	if err := m.Apply(limits); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if limits.MaxStringLength() != 128 {
		t.Errorf("MaxStringLength = %d", limits.MaxStringLength())
	}
	if limits.MaxStackSize() != 64 {
		t.Errorf("MaxStackSize = %d", limits.MaxStackSize())
	}
	if limits.MaxInstructions() != 50000 {
		t.Errorf("MaxInstructions = %d", limits.MaxInstructions())
	}
	if !limits.PinAllowed(2) || !limits.PinAllowed(13) || limits.PinAllowed(7) {
		t.Errorf("pins = %v", limits.AllowedPins())
	}
	// Unset fields keep their defaults.
	if limits.MaxIfDepth() != 16 {
		t.Errorf("MaxIfDepth = %d, want default", limits.MaxIfDepth())
	}
}

func TestApplyRejectsOutOfRange(t *testing.T) {
	path := writeManifest(t, t.TempDir(), `
[limits]
max_stack_size = 9999
`)
	m, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	limits := security.DefaultLimits()
	if err := m.Apply(limits); err == nil {
		t.Error("expected range rejection")
	}
	if limits.MaxStackSize() != 256 {
		t.Errorf("rejected value applied: %d", limits.MaxStackSize())
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Error("expected error for a missing file")
	}
}

func TestFindWalksUpward(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, "[project]\nname = \"x\"\n")
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	got := Find(nested)
	if got != filepath.Join(root, DefaultFileName) {
		t.Errorf("Find = %q", got)
	}

	if got := Find(t.TempDir()); got != "" {
		t.Errorf("Find in empty tree = %q, want empty", got)
	}
}
