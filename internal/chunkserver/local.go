package chunkserver

import (
	"context"
	"encoding/hex"
	"fmt"

	"voxelcore.ai/internal/sim/encoding"
	"voxelcore.ai/internal/sim/voxel"
)

// LocalSource is the in-process server proxy: it populates a client-side
// chunk from a Server in the same process, through the same encoded payload a
// remote client would receive.
type LocalSource struct {
	srv *Server
}

func NewLocalSource(srv *Server) *LocalSource {
	return &LocalSource{srv: srv}
}

func (l *LocalSource) LoadChunk(ctx context.Context, ch voxel.Chunk) error {
	p, err := l.srv.Fetch(ctx, ch.Pos())
	if err != nil {
		return err
	}
	return Apply(p, ch.Data())
}

// Apply decodes p into g and checks the digest when one is present.
func Apply(p Payload, g *voxel.Grid) error {
	if err := encoding.DecodeGrid(p.Data, g); err != nil {
		return err
	}
	if p.Digest == "" {
		return nil
	}
	sum := g.Digest()
	if got := hex.EncodeToString(sum[:]); got != p.Digest {
		return fmt.Errorf("chunk %v digest mismatch: got %s want %s", p.Pos, got, p.Digest)
	}
	return nil
}
