package source

import (
	"context"
	"errors"

	"voxelcore.ai/internal/sim/voxel"
)

// ErrNotFound is returned by a Store that holds no record for a position.
var ErrNotFound = errors.New("chunk not found")

// Source populates the grid of a freshly bound chunk in place. On error the
// grid contents are unspecified; the caller decides what to serve.
type Source interface {
	LoadChunk(ctx context.Context, ch voxel.Chunk) error
}

// Store is a durable Source that can also persist chunks.
type Store interface {
	Source
	SaveChunk(ctx context.Context, ch voxel.Chunk) error
}

type SourceFunc func(ctx context.Context, ch voxel.Chunk) error

func (f SourceFunc) LoadChunk(ctx context.Context, ch voxel.Chunk) error { return f(ctx, ch) }

// Empty leaves every chunk as all air.
var Empty Source = SourceFunc(func(ctx context.Context, ch voxel.Chunk) error {
	ch.Data().Reset()
	return ctx.Err()
})
