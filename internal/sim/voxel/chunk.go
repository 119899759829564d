package voxel

import (
	"fmt"

	"voxelcore.ai/internal/sim/mathx"
)

// ChunkPos is a chunk-space position: block coordinates floor-divided by Size.
type ChunkPos struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

func ChunkPosOf(bx, by, bz int) ChunkPos {
	return ChunkPos{
		X: mathx.FloorDiv(bx, Size),
		Y: mathx.FloorDiv(by, Size),
		Z: mathx.FloorDiv(bz, Size),
	}
}

// Origin is the block coordinate of local voxel (0,0,0).
func (p ChunkPos) Origin() (x, y, z int) {
	return p.X * Size, p.Y * Size, p.Z * Size
}

// Less orders chunk positions z-major: z, then y, then x.
func (p ChunkPos) Less(o ChunkPos) bool {
	if p.Z != o.Z {
		return p.Z < o.Z
	}
	if p.Y != o.Y {
		return p.Y < o.Y
	}
	return p.X < o.X
}

func (p ChunkPos) String() string {
	return fmt.Sprintf("(%d,%d,%d)", p.X, p.Y, p.Z)
}

// Chunk binds a position to a grid it does not own. Whoever allocated the grid
// (normally the chunk cache) decides how long it stays bound to this position.
type Chunk struct {
	pos  ChunkPos
	data *Grid
}

func NewChunk(pos ChunkPos, data *Grid) Chunk {
	return Chunk{pos: pos, data: data}
}

func (c Chunk) Pos() ChunkPos { return c.pos }
func (c Chunk) Data() *Grid   { return c.data }

// Block reads the voxel at absolute block coordinates. The coordinates must
// lie inside this chunk.
func (c Chunk) Block(bx, by, bz int) Block { return c.data.Block(bx, by, bz) }
