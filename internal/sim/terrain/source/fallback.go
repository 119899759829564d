package source

import (
	"context"
	"errors"
	"fmt"

	"voxelcore.ai/internal/sim/voxel"
)

// Fallback loads from Primary and, for positions Primary has never stored,
// populates from Secondary. With SaveMissing set, freshly populated chunks are
// written back to Primary so the next load finds them.
type Fallback struct {
	Primary     Store
	Secondary   Source
	SaveMissing bool
}

func (f *Fallback) LoadChunk(ctx context.Context, ch voxel.Chunk) error {
	err := f.Primary.LoadChunk(ctx, ch)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("load %v from store: %w", ch.Pos(), err)
	}
	if err := f.Secondary.LoadChunk(ctx, ch); err != nil {
		return err
	}
	if f.SaveMissing {
		if err := f.Primary.SaveChunk(ctx, ch); err != nil {
			return fmt.Errorf("save %v: %w", ch.Pos(), err)
		}
	}
	return nil
}

func (f *Fallback) SaveChunk(ctx context.Context, ch voxel.Chunk) error {
	return f.Primary.SaveChunk(ctx, ch)
}
