package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Faultbox/umapview/internal/config"
)

const benchManifest = `
name: grid
camera:
  position: [0, 0, 0]
  yaw: 0
materials:
  - name: M_Grey
meshes:
  - name: SM_Cube
    primitive: cube
    materials: [M_Grey]
entities:
  - mesh: SM_Cube
    grid:
      - count: [10, 10, 1]
        spacing: [300, 300, 0]
        translation: [-1500, -1500, 0]
`

func TestRun_Report(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grid.yaml")
	if err := os.WriteFile(path, []byte(benchManifest), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := config.Default()
	cfg.Scene.Manifest = path

	var out bytes.Buffer
	if err := run(&out, cfg); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	report := out.String()
	for _, want := range []string{"grid", "1 loaded, 0 failed", "instances  100", "1 meshes", "over 36 frames"} {
		if !strings.Contains(report, want) {
			t.Errorf("report missing %q:\n%s", want, report)
		}
	}
}

func TestRun_MissingManifest(t *testing.T) {
	cfg := config.Default()
	cfg.Scene.Manifest = filepath.Join(t.TempDir(), "missing.yaml")
	if err := run(&bytes.Buffer{}, cfg); err == nil {
		t.Error("expected error")
	}
}
