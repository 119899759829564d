package voxel

import (
	"crypto/sha256"
	"encoding/binary"
)

const (
	Size   = 16
	Area   = Size * Size
	Volume = Size * Size * Size

	AirType      uint16 = 0
	DefaultLight uint8  = 255
)

// Index maps a block coordinate to its slot in a grid. Coordinates are taken
// modulo Size (non-negative residue), so absolute block coordinates address
// the local voxel of their owning chunk. A coordinate from another chunk
// silently aliases a voxel of this one; nothing checks it.
func Index(x, y, z int) int {
	return (z&(Size-1))*Area + (y&(Size-1))*Size + (x & (Size - 1))
}

// Block is a copy of one voxel's attributes.
type Block struct {
	Type  uint16
	Data  uint8
	Light uint8
}

// Grid is the dense per-voxel storage of one chunk, laid out z-major.
// It carries no locking; callers serialize concurrent access.
type Grid struct {
	types [Volume]uint16
	data  [Volume]uint8
	light [Volume]uint8
}

func NewGrid() *Grid {
	g := &Grid{}
	g.Reset()
	return g
}

// Reset restores air, zero data and full light everywhere.
func (g *Grid) Reset() {
	clear(g.types[:])
	clear(g.data[:])
	for i := range g.light {
		g.light[i] = DefaultLight
	}
}

func (g *Grid) IsEmpty() bool {
	for i := 0; i < Volume; i++ {
		if g.types[i] != AirType || g.data[i] != 0 || g.light[i] != DefaultLight {
			return false
		}
	}
	return true
}

func (g *Grid) Block(x, y, z int) Block {
	i := Index(x, y, z)
	return Block{Type: g.types[i], Data: g.data[i], Light: g.light[i]}
}

func (g *Grid) SetBlock(x, y, z int, b Block) {
	i := Index(x, y, z)
	g.types[i] = b.Type
	g.data[i] = b.Data
	g.light[i] = b.Light
}

func (g *Grid) Type(x, y, z int) uint16 { return g.types[Index(x, y, z)] }

func (g *Grid) SetType(x, y, z int, t uint16) { g.types[Index(x, y, z)] = t }
func (g *Grid) SetData(x, y, z int, d uint8)  { g.data[Index(x, y, z)] = d }
func (g *Grid) SetLight(x, y, z int, l uint8) { g.light[Index(x, y, z)] = l }

// At returns a view aliasing the voxel at (x,y,z). Writes through the view are
// visible immediately. Keep it for the duration of one access.
func (g *Grid) At(x, y, z int) BlockRef {
	return BlockRef{g: g, i: Index(x, y, z)}
}

// Types, Data and Light expose the raw layers in Index order for mesh builders
// and codecs. The slices alias the grid.
func (g *Grid) Types() []uint16 { return g.types[:] }
func (g *Grid) Data() []uint8   { return g.data[:] }
func (g *Grid) Light() []uint8  { return g.light[:] }

func (g *Grid) CopyFrom(src *Grid) { *g = *src }

// Digest is a sha256 over types (big-endian), data and light.
func (g *Grid) Digest() [32]byte {
	h := sha256.New()
	var tmp [Volume * 2]byte
	for i, v := range g.types {
		binary.BigEndian.PutUint16(tmp[i*2:], v)
	}
	h.Write(tmp[:])
	h.Write(g.data[:])
	h.Write(g.light[:])
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

type BlockRef struct {
	g *Grid
	i int
}

func (r BlockRef) Index() int       { return r.i }
func (r BlockRef) Type() uint16     { return r.g.types[r.i] }
func (r BlockRef) Data() uint8      { return r.g.data[r.i] }
func (r BlockRef) Light() uint8     { return r.g.light[r.i] }
func (r BlockRef) SetType(t uint16) { r.g.types[r.i] = t }
func (r BlockRef) SetData(d uint8)  { r.g.data[r.i] = d }
func (r BlockRef) SetLight(l uint8) { r.g.light[r.i] = l }

func (r BlockRef) Get() Block {
	return Block{Type: r.Type(), Data: r.Data(), Light: r.Light()}
}
