package chunkserver

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log"
	"sync/atomic"

	"voxelcore.ai/internal/protocol"
	"voxelcore.ai/internal/sim/encoding"
	"voxelcore.ai/internal/sim/mathx"
	"voxelcore.ai/internal/sim/terrain/cache"
	"voxelcore.ai/internal/sim/terrain/source"
	"voxelcore.ai/internal/sim/voxel"
)

var ErrOutOfBounds = errors.New("chunk outside world boundary")

type Config struct {
	Seed int64
	// BoundaryR limits served chunks to |x|,|z| <= BoundaryR (chunk units).
	// Zero means unbounded.
	BoundaryR int
}

// Payload is one encoded chunk as it goes over the wire.
type Payload struct {
	Pos    voxel.ChunkPos
	Data   []byte
	Digest string
}

// Server answers chunk requests from a cache. Both proxies, LocalSource in
// process and ws.Server over the network, go through Fetch.
type Server struct {
	cfg   Config
	cache *cache.Cache
	log   *log.Logger

	served atomic.Uint64
	failed atomic.Uint64
}

func New(cfg Config, c *cache.Cache, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Server{cfg: cfg, cache: c, log: logger}
}

func (s *Server) Params() protocol.WorldParams {
	return protocol.WorldParams{
		Seed:      s.cfg.Seed,
		ChunkSize: [3]int{voxel.Size, voxel.Size, voxel.Size},
		RawSize:   encoding.RawSize,
		BoundaryR: s.cfg.BoundaryR,
	}
}

func (s *Server) InBounds(p voxel.ChunkPos) bool {
	r := s.cfg.BoundaryR
	if r <= 0 {
		return true
	}
	return mathx.Clamp(p.X, -r, r) == p.X && mathx.Clamp(p.Z, -r, r) == p.Z
}

// Fetch encodes the chunk at p. Population failures are returned as errors
// rather than served as empty chunks, so clients can apply their own policy.
func (s *Server) Fetch(ctx context.Context, p voxel.ChunkPos) (Payload, error) {
	if !s.InBounds(p) {
		return Payload{}, fmt.Errorf("%w: %v", ErrOutOfBounds, p)
	}
	out := Payload{Pos: p}
	err := s.cache.View(ctx, p, func(ch voxel.Chunk) error {
		data, err := encoding.EncodeGrid(ch.Data())
		if err != nil {
			return err
		}
		sum := ch.Data().Digest()
		out.Data = data
		out.Digest = hex.EncodeToString(sum[:])
		return nil
	})
	if err != nil {
		s.failed.Add(1)
		return Payload{}, err
	}
	s.served.Add(1)
	return out, nil
}

type Stats struct {
	Served uint64      `json:"served"`
	Failed uint64      `json:"failed"`
	Cache  cache.Stats `json:"cache"`
}

func (s *Server) Stats() Stats {
	return Stats{Served: s.served.Load(), Failed: s.failed.Load(), Cache: s.cache.Stats()}
}

// Flush writes every resident chunk to st.
func (s *Server) Flush(ctx context.Context, st source.Store) (int, error) {
	n, err := s.cache.Save(ctx, st)
	if err == nil {
		s.log.Printf("flushed %d chunks", n)
	}
	return n, err
}

// ErrorCode maps a Fetch error to a protocol error code.
func ErrorCode(err error) string {
	var perr *cache.PopulationError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrOutOfBounds):
		return protocol.ErrOutOfBounds
	case errors.As(err, &perr), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return protocol.ErrUnavailable
	default:
		return protocol.ErrInternal
	}
}
