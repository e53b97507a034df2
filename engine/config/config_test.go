package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spaghettifunk/vulkanmc/engine/core"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Window.Width != 800 || cfg.Window.Height != 800 {
		t.Errorf("window = %dx%d", cfg.Window.Width, cfg.Window.Height)
	}
	if !cfg.Renderer.PreferMailbox {
		t.Error("mailbox should be preferred by default")
	}
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := writeConfig(t, `
[window]
width = 1024

[physics]
gravity = [0.0, -0.5]
substeps = 8
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Window.Width != 1024 || cfg.Window.Height != 800 {
		t.Errorf("window = %dx%d", cfg.Window.Width, cfg.Window.Height)
	}
	if cfg.Physics.Gravity != [2]float32{0, -0.5} || cfg.Physics.Substeps != 8 {
		t.Errorf("physics = %+v", cfg.Physics)
	}
	if cfg.Shaders.Vertex != "simple.vert.spv" {
		t.Errorf("default shader lost: %q", cfg.Shaders.Vertex)
	}
}

func TestLoadRejectsBadInput(t *testing.T) {
	cases := map[string]string{
		"unknown key":   "[window]\ncolour = 3\n",
		"bad syntax":    "[window\n",
		"zero width":    "[window]\nwidth = 0\n",
		"zero substeps": "[physics]\nsubsteps = 0\n",
		"no shader":     "[shaders]\nvertex = \"\"\n",
		"negative":      "[scene]\ncircles = -1\n",
		"few segments":  "[scene]\ncircle_segments = 2\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			if !core.IsConfigurationError(err) {
				t.Errorf("expected configuration error, got %v", err)
			}
		})
	}
}

func TestLoadPhysicsOnlyAppliesPhysicsTable(t *testing.T) {
	path := writeConfig(t, `
[window]
width = 300

[physics]
gravitational_constant = 2.5
`)
	current := Default().Physics
	current.Substeps = 3
	got, err := LoadPhysics(path, current)
	if err != nil {
		t.Fatal(err)
	}
	if got.GravitationalConstant != 2.5 {
		t.Errorf("constant = %f", got.GravitationalConstant)
	}
	if got.Substeps != 3 {
		t.Errorf("unset keys should keep current values, substeps = %d", got.Substeps)
	}

	bad := writeConfig(t, "[physics]\nsubsteps = -1\n")
	kept, err := LoadPhysics(bad, got)
	if err == nil {
		t.Fatal("expected error for invalid physics table")
	}
	if kept != got {
		t.Error("invalid reload must keep the current values")
	}
}
