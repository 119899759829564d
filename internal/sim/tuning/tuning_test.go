package tuning

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"voxelcore.ai/internal/sim/fixed"
	"voxelcore.ai/internal/sim/terrain/gen"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestDefaultsAreValid(t *testing.T) {
	d := Defaults()
	if err := d.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if d.WorldGen() != gen.DefaultWorldGen(0) {
		t.Fatalf("default world gen drifted from gen.DefaultWorldGen")
	}
	if got := d.Gravity(); got != (fixed.Velocity{Y: -6 * fixed.One}) {
		t.Fatalf("gravity = %+v", got)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeFile(t, `
cache:
  capacity: 32
world:
  seed: 42
  sea_level: 10
physics:
  gravity: [0, -9.5, 0]
server:
  addr: "127.0.0.1:9000"
  boundary_r: 64
`)
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Cache.Capacity != 32 || !got.Cache.SaveOnEvict {
		t.Fatalf("cache = %+v", got.Cache)
	}
	wg := got.WorldGen()
	if wg.Seed != 42 || wg.SeaLevel != 10 || wg.BaseHeight != Defaults().World.BaseHeight {
		t.Fatalf("world gen = %+v", wg)
	}
	if g := got.Gravity(); g.Y != fixed.SpeedFromFloat(-9.5) || g.X != 0 {
		t.Fatalf("gravity = %+v", g)
	}
	if got.Server.Addr != "127.0.0.1:9000" || got.Server.BoundaryR != 64 {
		t.Fatalf("server = %+v", got.Server)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := writeFile(t, `
cache:
  capacity: 0
world:
  octaves: 12
journal:
  enabled: true
  dir: ""
`)
	_, err := Load(path)
	if err == nil {
		t.Fatalf("expected validation error")
	}
	for _, want := range []string{"cache.capacity", "world.octaves", "journal.dir"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q does not mention %s", err, want)
		}
	}
}

func TestLoadRejectsProtocolMismatch(t *testing.T) {
	_, err := Load(writeFile(t, "protocol_version: \"0.9\"\n"))
	if err == nil || !strings.Contains(err.Error(), "protocol_version") {
		t.Fatalf("err = %v, want protocol_version mismatch", err)
	}
}

func TestLoadBadYAML(t *testing.T) {
	if _, err := Load(writeFile(t, "cache: [")); err == nil {
		t.Fatalf("expected parse error")
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); !os.IsNotExist(err) {
		t.Fatalf("err = %v, want not-exist", err)
	}
}
