package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"voxelcore.ai/internal/chunkserver"
	"voxelcore.ai/internal/persistence/chunkdb"
	"voxelcore.ai/internal/sim/terrain/cache"
	"voxelcore.ai/internal/sim/terrain/source"
	"voxelcore.ai/internal/sim/voxel"
)

type failingCounter struct{}

func (failingCounter) Count(ctx context.Context) (int, error) { return 0, errors.New("db gone") }

func newChunks(t *testing.T) *chunkserver.Server {
	t.Helper()
	c, err := cache.New(4, source.Empty)
	if err != nil {
		t.Fatalf("cache.New: %v", err)
	}
	return chunkserver.New(chunkserver.Config{}, c, nil)
}

func TestStatsReportStoredChunks(t *testing.T) {
	ctx := context.Background()
	store, err := chunkdb.OpenSQLite(filepath.Join(t.TempDir(), "chunks.sqlite"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer store.Close()
	for _, p := range []voxel.ChunkPos{{X: 1}, {X: 2}} {
		g := voxel.NewGrid()
		g.SetType(0, 0, 0, 1)
		if err := store.SaveChunk(ctx, voxel.NewChunk(p, g)); err != nil {
			t.Fatalf("SaveChunk: %v", err)
		}
	}
	chunks := newChunks(t)
	if _, err := chunks.Fetch(ctx, voxel.ChunkPos{}); err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	rec := httptest.NewRecorder()
	statsHandler(chunks, store, log.New(io.Discard, "", 0))(rec, httptest.NewRequest("GET", "/v1/stats", nil))
	var got struct {
		Served uint64 `json:"served"`
		Stored int    `json:"stored"`
		Cache  struct {
			Misses uint64 `json:"misses"`
		} `json:"cache"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Stored != 2 || got.Served != 1 || got.Cache.Misses != 1 {
		t.Fatalf("stats = %+v", got)
	}

	rec = httptest.NewRecorder()
	writeMetrics(rec, collectStats(ctx, chunks, store, log.New(io.Discard, "", 0)))
	if !strings.Contains(rec.Body.String(), "voxelcore_store_chunks 2\n") {
		t.Fatalf("metrics missing store gauge:\n%s", rec.Body.String())
	}
}

func TestStatsSurviveCountFailure(t *testing.T) {
	st := collectStats(context.Background(), newChunks(t), failingCounter{}, log.New(io.Discard, "", 0))
	if st.Stored != -1 {
		t.Fatalf("stored = %d, want -1", st.Stored)
	}
	rec := httptest.NewRecorder()
	writeMetrics(rec, st)
	if strings.Contains(rec.Body.String(), "voxelcore_store_chunks") {
		t.Fatalf("store gauge written without a count")
	}
}
