package encoding

import (
	"errors"
	"testing"

	"voxelcore.ai/internal/sim/voxel"
)

func TestEmptyGridEncodesToZeroSize(t *testing.T) {
	p, err := EncodeGrid(voxel.NewGrid())
	if err != nil {
		t.Fatalf("EncodeGrid: %v", err)
	}
	if len(p) != 0 {
		t.Fatalf("empty grid payload size = %d, want 0", len(p))
	}

	g := voxel.NewGrid()
	g.SetType(1, 1, 1, 9)
	if err := DecodeGrid(nil, g); err != nil {
		t.Fatalf("DecodeGrid: %v", err)
	}
	if !g.IsEmpty() {
		t.Fatalf("zero-size payload should reset the grid")
	}
}

func TestSparseGridIsCompressed(t *testing.T) {
	src := voxel.NewGrid()
	for x := 0; x < voxel.Size; x++ {
		for z := 0; z < voxel.Size; z++ {
			src.SetBlock(x, 0, z, voxel.Block{Type: 0x0102, Data: 3, Light: 0})
		}
	}
	p, err := EncodeGrid(src)
	if err != nil {
		t.Fatalf("EncodeGrid: %v", err)
	}
	if len(p) == 0 || len(p) >= RawSize {
		t.Fatalf("payload size = %d, want compressed", len(p))
	}

	dst := voxel.NewGrid()
	if err := DecodeGrid(p, dst); err != nil {
		t.Fatalf("DecodeGrid: %v", err)
	}
	if dst.Digest() != src.Digest() {
		t.Fatalf("decoded grid differs from source")
	}
}

func TestRawPayloadLayoutIsBigEndian(t *testing.T) {
	g := voxel.NewGrid()
	g.SetBlock(1, 0, 0, voxel.Block{Type: 0xABCD, Data: 7, Light: 5})
	raw := AppendRaw(nil, g)
	if len(raw) != RawSize {
		t.Fatalf("raw size = %d", len(raw))
	}
	if raw[2] != 0xAB || raw[3] != 0xCD {
		t.Fatalf("type not big-endian: %x %x", raw[2], raw[3])
	}
	if raw[voxel.Volume*2+1] != 7 || raw[voxel.Volume*3+1] != 5 {
		t.Fatalf("data/light layers misplaced")
	}

	dst := voxel.NewGrid()
	if err := DecodeGrid(raw, dst); err != nil {
		t.Fatalf("DecodeGrid raw: %v", err)
	}
	if dst.Block(1, 0, 0) != (voxel.Block{Type: 0xABCD, Data: 7, Light: 5}) {
		t.Fatalf("raw decode = %+v", dst.Block(1, 0, 0))
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	err := DecodeGrid([]byte{1, 2, 3}, voxel.NewGrid())
	if !errors.Is(err, ErrBadPayload) {
		t.Fatalf("err = %v, want ErrBadPayload", err)
	}
}
