package gen

import (
	"context"
	"math"

	"github.com/ojrac/opensimplex-go"

	"voxelcore.ai/internal/sim/mathx"
	"voxelcore.ai/internal/sim/voxel"
)

type WorldGen struct {
	Seed int64

	BaseHeight int // blocks
	Amplitude  int // blocks
	SeaLevel   int // blocks
	Scale      float64
	Octaves    int

	CaveScale     float64
	CaveThreshold float64
	CoalPermille  int
	IronPermille  int
	IronMaxY      int

	Air     uint16
	Stone   uint16
	Dirt    uint16
	Grass   uint16
	Sand    uint16
	Water   uint16
	CoalOre uint16
	IronOre uint16
}

func DefaultWorldGen(seed int64) WorldGen {
	return WorldGen{
		Seed:          seed,
		BaseHeight:    32,
		Amplitude:     24,
		SeaLevel:      28,
		Scale:         96,
		Octaves:       4,
		CaveScale:     24,
		CaveThreshold: 0.08,
		CoalPermille:  12,
		IronPermille:  6,
		IronMaxY:      0,

		Air:     0,
		Stone:   1,
		Dirt:    2,
		Grass:   3,
		Sand:    4,
		Water:   5,
		CoalOre: 6,
		IronOre: 7,
	}
}

// Generator fills chunks procedurally. Output depends only on the chunk
// position and WorldGen, so a chunk can be regenerated after eviction.
type Generator struct {
	cfg    WorldGen
	height opensimplex.Noise
	caves  opensimplex.Noise
}

func New(cfg WorldGen) *Generator {
	if cfg.Scale <= 0 {
		cfg.Scale = 1
	}
	if cfg.CaveScale <= 0 {
		cfg.CaveScale = 1
	}
	if cfg.Octaves <= 0 {
		cfg.Octaves = 1
	}
	return &Generator{
		cfg:    cfg,
		height: opensimplex.New(cfg.Seed),
		caves:  opensimplex.New(cfg.Seed + 7919),
	}
}

func (g *Generator) Config() WorldGen { return g.cfg }

// HeightAt is the y of the topmost solid block in column (x, z).
func (g *Generator) HeightAt(x, z int) int {
	var sum, norm float64
	freq, amp := 1/g.cfg.Scale, 1.0
	for i := 0; i < g.cfg.Octaves; i++ {
		sum += amp * g.height.Eval2(float64(x)*freq, float64(z)*freq)
		norm += amp
		freq *= 2
		amp /= 2
	}
	return g.cfg.BaseHeight + int(math.Round(sum/norm*float64(g.cfg.Amplitude)))
}

func (g *Generator) LoadChunk(ctx context.Context, ch voxel.Chunk) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	grid := ch.Data()
	ox, oy, oz := ch.Pos().Origin()
	for lz := 0; lz < voxel.Size; lz++ {
		for lx := 0; lx < voxel.Size; lx++ {
			wx, wz := ox+lx, oz+lz
			h := g.HeightAt(wx, wz)
			for ly := 0; ly < voxel.Size; ly++ {
				grid.SetBlock(lx, ly, lz, g.blockAt(wx, oy+ly, wz, h))
			}
		}
	}
	return nil
}

func (g *Generator) blockAt(x, y, z, h int) voxel.Block {
	c := &g.cfg
	if y > h {
		if y <= c.SeaLevel {
			depth := c.SeaLevel - y
			return voxel.Block{Type: c.Water, Light: uint8(255 - mathx.Clamp(depth*16, 0, 255))}
		}
		return voxel.Block{Type: c.Air, Light: voxel.DefaultLight}
	}
	if y < h-4 && g.isCave(x, y, z) {
		return voxel.Block{Type: c.Air}
	}
	beach := h <= c.SeaLevel+1
	switch {
	case y == h && beach:
		return voxel.Block{Type: c.Sand}
	case y == h:
		return voxel.Block{Type: c.Grass}
	case y > h-4 && beach:
		return voxel.Block{Type: c.Sand}
	case y > h-4:
		return voxel.Block{Type: c.Dirt}
	}
	return voxel.Block{Type: g.rockAt(x, y, z)}
}

func (g *Generator) isCave(x, y, z int) bool {
	s := g.cfg.CaveScale
	n := g.caves.Eval3(float64(x)/s, float64(y)/s, float64(z)/s)
	return math.Abs(n) < g.cfg.CaveThreshold
}

func (g *Generator) rockAt(x, y, z int) uint16 {
	c := &g.cfg
	if y <= c.IronMaxY && mathx.Hash3(c.Seed+102, x, y, z)%1000 < uint64(mathx.Clamp(c.IronPermille, 0, 1000)) {
		return c.IronOre
	}
	if mathx.Hash3(c.Seed+101, x, y, z)%1000 < uint64(mathx.Clamp(c.CoalPermille, 0, 1000)) {
		return c.CoalOre
	}
	return c.Stone
}
