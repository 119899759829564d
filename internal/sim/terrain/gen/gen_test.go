package gen

import (
	"context"
	"errors"
	"testing"

	"voxelcore.ai/internal/sim/voxel"
)

func generate(t *testing.T, g *Generator, pos voxel.ChunkPos) *voxel.Grid {
	t.Helper()
	grid := voxel.NewGrid()
	if err := g.LoadChunk(context.Background(), voxel.NewChunk(pos, grid)); err != nil {
		t.Fatalf("LoadChunk %v: %v", pos, err)
	}
	return grid
}

func TestGenerateDeterministic(t *testing.T) {
	pos := voxel.ChunkPos{X: 3, Y: 1, Z: -2}
	a := generate(t, New(DefaultWorldGen(42)), pos)
	b := generate(t, New(DefaultWorldGen(42)), pos)
	if a.Digest() != b.Digest() {
		t.Fatalf("same seed produced different chunks")
	}

	// A dirty reused grid must be fully overwritten.
	c := voxel.NewGrid()
	for i := range c.Types() {
		c.Types()[i] = 99
	}
	if err := New(DefaultWorldGen(42)).LoadChunk(context.Background(), voxel.NewChunk(pos, c)); err != nil {
		t.Fatalf("LoadChunk: %v", err)
	}
	if c.Digest() != a.Digest() {
		t.Fatalf("generation depends on previous grid contents")
	}
}

func TestSeedChangesTerrain(t *testing.T) {
	a, b := New(DefaultWorldGen(1)), New(DefaultWorldGen(2))
	same := true
	for x := 0; x < 64 && same; x++ {
		if a.HeightAt(x, x*3) != b.HeightAt(x, x*3) {
			same = false
		}
	}
	if same {
		t.Fatalf("different seeds produced identical heightmaps")
	}
}

func TestColumnLayering(t *testing.T) {
	cfg := DefaultWorldGen(7)
	g := New(cfg)
	for x := 0; x < 32; x++ {
		h := g.HeightAt(x, 5)
		if h < cfg.BaseHeight-cfg.Amplitude || h > cfg.BaseHeight+cfg.Amplitude {
			t.Fatalf("height %d outside amplitude band", h)
		}
		top := g.blockAt(x, h, 5, h)
		if top.Type != cfg.Grass && top.Type != cfg.Sand {
			t.Fatalf("surface block at x=%d is %d", x, top.Type)
		}
		above := g.blockAt(x, h+1, 5, h)
		if above.Light == 0 {
			t.Fatalf("block above surface is unlit")
		}
		if h+1 > cfg.SeaLevel && above.Type != cfg.Air {
			t.Fatalf("expected air above land surface, got %d", above.Type)
		}
		if h+1 <= cfg.SeaLevel && above.Type != cfg.Water {
			t.Fatalf("expected water above submerged surface, got %d", above.Type)
		}
	}
}

func TestSkyAndDeepChunks(t *testing.T) {
	g := New(DefaultWorldGen(11))
	if sky := generate(t, g, voxel.ChunkPos{Y: 10}); !sky.IsEmpty() {
		t.Fatalf("chunk high above terrain should be empty")
	}
	deep := generate(t, g, voxel.ChunkPos{Y: -10})
	for i, l := range deep.Light() {
		if l != 0 {
			t.Fatalf("deep voxel %d has light %d", i, l)
		}
	}
}

func TestLoadChunkHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := New(DefaultWorldGen(1)).LoadChunk(ctx, voxel.NewChunk(voxel.ChunkPos{}, voxel.NewGrid()))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
