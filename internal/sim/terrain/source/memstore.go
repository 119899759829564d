package source

import (
	"context"
	"sort"
	"sync"

	"voxelcore.ai/internal/sim/encoding"
	"voxelcore.ai/internal/sim/voxel"
)

// MemStore keeps encoded chunk payloads in memory.
type MemStore struct {
	mu     sync.Mutex
	chunks map[voxel.ChunkPos][]byte
}

func NewMemStore() *MemStore {
	return &MemStore{chunks: map[voxel.ChunkPos][]byte{}}
}

func (s *MemStore) LoadChunk(ctx context.Context, ch voxel.Chunk) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	payload, ok := s.chunks[ch.Pos()]
	s.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	return encoding.DecodeGrid(payload, ch.Data())
}

func (s *MemStore) SaveChunk(ctx context.Context, ch voxel.Chunk) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := encoding.EncodeGrid(ch.Data())
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.chunks[ch.Pos()] = payload
	s.mu.Unlock()
	return nil
}

func (s *MemStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.chunks)
}

// Positions lists stored positions in z-major order.
func (s *MemStore) Positions() []voxel.ChunkPos {
	s.mu.Lock()
	out := make([]voxel.ChunkPos, 0, len(s.chunks))
	for p := range s.chunks {
		out = append(out, p)
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}
