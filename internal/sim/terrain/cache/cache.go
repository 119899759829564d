package cache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sort"
	"sync"

	"voxelcore.ai/internal/sim/terrain/source"
	"voxelcore.ai/internal/sim/voxel"
)

// Ref addresses a resident chunk by arena slot. Gen changes every time the
// slot is reclaimed, so a Ref held past its chunk's eviction resolves to
// nothing instead of someone else's voxels.
type Ref struct {
	Pos  voxel.ChunkPos
	Slot int
	Gen  uint32
}

// PopulationError reports a source failure for a chunk that was nevertheless
// made resident with default (all-air) contents.
type PopulationError struct {
	Pos voxel.ChunkPos
	Err error
}

func (e *PopulationError) Error() string {
	return fmt.Sprintf("populate chunk %v: %v", e.Pos, e.Err)
}

func (e *PopulationError) Unwrap() error { return e.Err }

type Stats struct {
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Evictions uint64 `json:"evictions"`
	Failures  uint64 `json:"failures"`
	Resident  int    `json:"resident"`
	Allocated int    `json:"allocated"`
	Capacity  int    `json:"capacity"`
}

type slot struct {
	grid *voxel.Grid
	pos  voxel.ChunkPos
	gen  uint32
	// failed marks a resident chunk whose last population failed. Its next
	// lookup populates it again instead of counting as a hit.
	failed bool
}

// Cache serves chunks by position with at most Cap() grids resident. Grids
// live in a fixed arena and are reused on eviction. Eviction is strictly in
// insertion order: hits never move a chunk to the back of the queue.
//
// One mutex covers lookup, eviction, insertion and population.
type Cache struct {
	src      source.Source
	log      *log.Logger
	observer Observer
	onEvict  func(voxel.Chunk)

	mu       sync.Mutex
	capacity int
	slots    []slot
	fifo     ring
	index    map[voxel.ChunkPos]int
	stats    Stats
}

type Option func(*Cache)

func WithLogger(l *log.Logger) Option {
	return func(c *Cache) {
		if l != nil {
			c.log = l
		}
	}
}

func WithObserver(o Observer) Option {
	return func(c *Cache) { c.observer = o }
}

// WithEvictHook runs fn with each outgoing chunk before its grid is reset and
// reused. fn runs under the cache lock and must not call back into the cache.
func WithEvictHook(fn func(voxel.Chunk)) Option {
	return func(c *Cache) { c.onEvict = fn }
}

func New(capacity int, src source.Source, opts ...Option) (*Cache, error) {
	if capacity < 1 {
		return nil, fmt.Errorf("cache capacity must be >= 1, got %d", capacity)
	}
	if src == nil {
		return nil, errors.New("cache source is nil")
	}
	c := &Cache{
		src:      src,
		log:      log.New(io.Discard, "", 0),
		capacity: capacity,
		slots:    make([]slot, 0, capacity),
		fifo:     newRing(capacity),
		index:    make(map[voxel.ChunkPos]int, capacity),
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// GetChunk returns the resident chunk at pos, loading it on a miss. When the
// source fails the chunk stays resident with default voxels and the returned
// error is a *PopulationError; the Ref is valid either way. A failed chunk is
// populated again on its next lookup, keeping its slot and FIFO position.
func (c *Cache) GetChunk(ctx context.Context, pos voxel.ChunkPos) (Ref, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.getLocked(ctx, pos)
}

// View is GetChunk followed by fn on the chunk, all under the cache lock, so
// the chunk cannot be evicted while fn reads it. fn is not called when
// population fails; the *PopulationError is returned instead.
func (c *Cache) View(ctx context.Context, pos voxel.ChunkPos, fn func(voxel.Chunk) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	ref, err := c.getLocked(ctx, pos)
	if err != nil {
		return err
	}
	s := &c.slots[ref.Slot]
	return fn(voxel.NewChunk(s.pos, s.grid))
}

func (c *Cache) getLocked(ctx context.Context, pos voxel.ChunkPos) (Ref, error) {
	if i, ok := c.index[pos]; ok {
		s := &c.slots[i]
		if !s.failed {
			c.stats.Hits++
			return Ref{Pos: pos, Slot: i, Gen: s.gen}, nil
		}
		c.stats.Misses++
		c.notify(Event{Kind: EventMiss, Pos: pos, Slot: i})
		s.grid.Reset()
		return c.populateLocked(ctx, i)
	}
	c.stats.Misses++

	var i int
	if len(c.slots) < c.capacity {
		c.slots = append(c.slots, slot{grid: voxel.NewGrid()})
		i = len(c.slots) - 1
	} else {
		i = c.evictOldestLocked()
	}

	s := &c.slots[i]
	s.pos = pos
	c.fifo.push(i)
	c.index[pos] = i
	c.notify(Event{Kind: EventMiss, Pos: pos, Slot: i})
	return c.populateLocked(ctx, i)
}

func (c *Cache) populateLocked(ctx context.Context, i int) (Ref, error) {
	s := &c.slots[i]
	ref := Ref{Pos: s.pos, Slot: i, Gen: s.gen}
	if err := c.src.LoadChunk(ctx, voxel.NewChunk(s.pos, s.grid)); err != nil {
		s.grid.Reset()
		s.failed = true
		c.stats.Failures++
		c.log.Printf("populate %v failed, serving empty chunk: %v", s.pos, err)
		c.notify(Event{Kind: EventPopulateFailed, Pos: s.pos, Slot: i, Err: err.Error()})
		return ref, &PopulationError{Pos: s.pos, Err: err}
	}
	s.failed = false
	return ref, nil
}

func (c *Cache) evictOldestLocked() int {
	i := c.fifo.pop()
	s := &c.slots[i]
	if c.onEvict != nil {
		c.onEvict(voxel.NewChunk(s.pos, s.grid))
	}
	delete(c.index, s.pos)
	c.stats.Evictions++
	c.notify(Event{Kind: EventEvict, Pos: s.pos, Slot: i})
	s.gen++
	s.failed = false
	s.grid.Reset()
	return i
}

// Chunk resolves ref. It reports false once the chunk has been evicted.
func (c *Cache) Chunk(ref Ref) (voxel.Chunk, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ref.Slot < 0 || ref.Slot >= len(c.slots) {
		return voxel.Chunk{}, false
	}
	s := &c.slots[ref.Slot]
	if s.gen != ref.Gen || s.pos != ref.Pos {
		return voxel.Chunk{}, false
	}
	if i, ok := c.index[ref.Pos]; !ok || i != ref.Slot {
		return voxel.Chunk{}, false
	}
	return voxel.NewChunk(s.pos, s.grid), true
}

// Peek looks up a resident chunk without loading or counting a hit.
func (c *Cache) Peek(pos voxel.ChunkPos) (Ref, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i, ok := c.index[pos]
	if !ok {
		return Ref{}, false
	}
	return Ref{Pos: pos, Slot: i, Gen: c.slots[i].gen}, true
}

// Positions lists resident chunks oldest first, i.e. in eviction order.
func (c *Cache) Positions() []voxel.ChunkPos {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]voxel.ChunkPos, 0, c.fifo.len())
	c.fifo.each(func(i int) { out = append(out, c.slots[i].pos) })
	return out
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.index)
}

func (c *Cache) Cap() int { return c.capacity }

func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.stats
	st.Resident = len(c.index)
	st.Allocated = len(c.slots)
	st.Capacity = c.capacity
	return st
}

// Save writes every resident chunk to st in z-major order and returns how
// many were written. It stops at the first error.
func (c *Cache) Save(ctx context.Context, st source.Store) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	order := make([]int, 0, len(c.index))
	for _, i := range c.index {
		order = append(order, i)
	}
	sort.Slice(order, func(a, b int) bool { return c.slots[order[a]].pos.Less(c.slots[order[b]].pos) })
	for n, i := range order {
		s := &c.slots[i]
		if err := st.SaveChunk(ctx, voxel.NewChunk(s.pos, s.grid)); err != nil {
			return n, fmt.Errorf("save %v: %w", s.pos, err)
		}
	}
	return len(order), nil
}

func (c *Cache) notify(ev Event) {
	if c.observer != nil {
		c.observer.OnCacheEvent(ev)
	}
}
