package cache

import "voxelcore.ai/internal/sim/voxel"

type EventKind string

const (
	EventMiss           EventKind = "miss"
	EventEvict          EventKind = "evict"
	EventPopulateFailed EventKind = "populate_failed"
)

type Event struct {
	Kind EventKind      `json:"kind"`
	Pos  voxel.ChunkPos `json:"pos"`
	Slot int            `json:"slot"`
	Err  string         `json:"err,omitempty"`
}

// Observer receives cache events synchronously, under the cache lock.
type Observer interface {
	OnCacheEvent(Event)
}

type ObserverFunc func(Event)

func (f ObserverFunc) OnCacheEvent(ev Event) { f(ev) }
