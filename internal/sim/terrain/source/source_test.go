package source

import (
	"context"
	"errors"
	"testing"

	"voxelcore.ai/internal/sim/voxel"
)

type countingSource struct {
	calls int
	err   error
}

func (s *countingSource) LoadChunk(ctx context.Context, ch voxel.Chunk) error {
	s.calls++
	if s.err != nil {
		return s.err
	}
	ch.Data().SetType(0, 0, 0, uint16(ch.Pos().X+100))
	return nil
}

func TestMemStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()
	pos := voxel.ChunkPos{X: 1, Y: -1, Z: 2}

	if err := s.LoadChunk(ctx, voxel.NewChunk(pos, voxel.NewGrid())); !errors.Is(err, ErrNotFound) {
		t.Fatalf("load of unknown chunk: err=%v, want ErrNotFound", err)
	}

	g := voxel.NewGrid()
	g.SetBlock(2, 3, 4, voxel.Block{Type: 5, Data: 6, Light: 7})
	if err := s.SaveChunk(ctx, voxel.NewChunk(pos, g)); err != nil {
		t.Fatalf("SaveChunk: %v", err)
	}
	out := voxel.NewGrid()
	if err := s.LoadChunk(ctx, voxel.NewChunk(pos, out)); err != nil {
		t.Fatalf("LoadChunk: %v", err)
	}
	if out.Block(2, 3, 4) != (voxel.Block{Type: 5, Data: 6, Light: 7}) {
		t.Fatalf("loaded block = %+v", out.Block(2, 3, 4))
	}
	if s.Len() != 1 || s.Positions()[0] != pos {
		t.Fatalf("positions = %v", s.Positions())
	}
}

func TestFallbackPopulatesAndSavesMissing(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	gen := &countingSource{}
	f := &Fallback{Primary: store, Secondary: gen, SaveMissing: true}
	pos := voxel.ChunkPos{X: 3}

	if err := f.LoadChunk(ctx, voxel.NewChunk(pos, voxel.NewGrid())); err != nil {
		t.Fatalf("first load: %v", err)
	}
	if gen.calls != 1 || store.Len() != 1 {
		t.Fatalf("calls=%d stored=%d, want 1/1", gen.calls, store.Len())
	}

	g := voxel.NewGrid()
	if err := f.LoadChunk(ctx, voxel.NewChunk(pos, g)); err != nil {
		t.Fatalf("second load: %v", err)
	}
	if gen.calls != 1 {
		t.Fatalf("second load should come from the store, generator calls=%d", gen.calls)
	}
	if g.Type(0, 0, 0) != 103 {
		t.Fatalf("stored chunk lost content: %d", g.Type(0, 0, 0))
	}
}

func TestFallbackPropagatesSecondaryError(t *testing.T) {
	boom := errors.New("boom")
	f := &Fallback{Primary: NewMemStore(), Secondary: &countingSource{err: boom}}
	err := f.LoadChunk(context.Background(), voxel.NewChunk(voxel.ChunkPos{}, voxel.NewGrid()))
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
}

func TestEmptySourceHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	g := voxel.NewGrid()
	g.SetType(0, 0, 0, 1)
	if err := Empty.LoadChunk(ctx, voxel.NewChunk(voxel.ChunkPos{}, g)); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if !g.IsEmpty() {
		t.Fatalf("Empty source should still reset the grid")
	}
}
