package encoding

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"

	"voxelcore.ai/internal/sim/voxel"
)

// RawSize is the uncompressed payload length: big-endian types, then data,
// then light, each in voxel.Index order.
const RawSize = voxel.Volume*2 + voxel.Volume + voxel.Volume

var ErrBadPayload = errors.New("bad chunk payload")

type zstdCodec struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

var codec = sync.OnceValues(func() (*zstdCodec, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, err
	}
	dec, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(RawSize), zstd.WithDecoderConcurrency(0))
	if err != nil {
		enc.Close()
		return nil, err
	}
	return &zstdCodec{enc: enc, dec: dec}, nil
})

// AppendRaw appends the uncompressed layout of g to dst.
func AppendRaw(dst []byte, g *voxel.Grid) []byte {
	var tmp [2]byte
	for _, t := range g.Types() {
		binary.BigEndian.PutUint16(tmp[:], t)
		dst = append(dst, tmp[:]...)
	}
	dst = append(dst, g.Data()...)
	return append(dst, g.Light()...)
}

// EncodeGrid produces a chunk payload. An all-default grid encodes to an empty
// payload; otherwise the shorter of the raw and zstd forms is returned, so a
// payload whose length differs from RawSize is always compressed.
func EncodeGrid(g *voxel.Grid) ([]byte, error) {
	if g.IsEmpty() {
		return nil, nil
	}
	raw := AppendRaw(make([]byte, 0, RawSize), g)
	c, err := codec()
	if err != nil {
		return nil, err
	}
	comp := c.enc.EncodeAll(raw, make([]byte, 0, RawSize/4))
	if len(comp) >= RawSize {
		return raw, nil
	}
	return comp, nil
}

// DecodeGrid fills g from a payload produced by EncodeGrid.
func DecodeGrid(payload []byte, g *voxel.Grid) error {
	switch {
	case len(payload) == 0:
		g.Reset()
		return nil
	case len(payload) == RawSize:
		return decodeRaw(payload, g)
	}
	c, err := codec()
	if err != nil {
		return err
	}
	raw, err := c.dec.DecodeAll(payload, make([]byte, 0, RawSize))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	if len(raw) != RawSize {
		return fmt.Errorf("%w: decompressed %d bytes, want %d", ErrBadPayload, len(raw), RawSize)
	}
	return decodeRaw(raw, g)
}

func decodeRaw(raw []byte, g *voxel.Grid) error {
	if len(raw) != RawSize {
		return fmt.Errorf("%w: raw length %d", ErrBadPayload, len(raw))
	}
	types := g.Types()
	for i := range types {
		types[i] = binary.BigEndian.Uint16(raw[i*2:])
	}
	off := voxel.Volume * 2
	copy(g.Data(), raw[off:off+voxel.Volume])
	off += voxel.Volume
	copy(g.Light(), raw[off:off+voxel.Volume])
	return nil
}
