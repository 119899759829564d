package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"voxelcore.ai/internal/chunkserver"
	"voxelcore.ai/internal/persistence/chunkdb"
	"voxelcore.ai/internal/persistence/journal"
	"voxelcore.ai/internal/sim/terrain/cache"
	"voxelcore.ai/internal/sim/terrain/gen"
	"voxelcore.ai/internal/sim/terrain/source"
	"voxelcore.ai/internal/sim/tuning"
	"voxelcore.ai/internal/sim/voxel"
	"voxelcore.ai/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", "", "http listen address (default: server.addr from tuning)")
		tuningPath = flag.String("tuning", "./configs/tuning.yaml", "path to tuning.yaml")
		dataDir    = flag.String("data", "", "runtime data directory; overrides the directory of store.path and journal.dir")
		seed       = flag.Int64("seed", 0, "world seed (overrides world.seed when set)")
		capacity   = flag.Int("cache", 0, "chunk cache capacity (overrides cache.capacity when > 0)")
		noJournal  = flag.Bool("no_journal", false, "disable the cache event journal")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	tune, err := tuning.Load(*tuningPath)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", *tuningPath)
		tune = tuning.Defaults()
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "addr":
			tune.Server.Addr = *addr
		case "seed":
			tune.World.Seed = *seed
		case "cache":
			if *capacity > 0 {
				tune.Cache.Capacity = *capacity
			}
		case "data":
			tune.Store.Path = filepath.Join(*dataDir, filepath.Base(tune.Store.Path))
			tune.Journal.Dir = filepath.Join(*dataDir, "journal")
		case "no_journal":
			tune.Journal.Enabled = !*noJournal
		}
	})
	if err := tune.Validate(); err != nil {
		logger.Fatalf("tuning: %v", err)
	}

	if err := os.MkdirAll(filepath.Dir(tune.Store.Path), 0o755); err != nil {
		logger.Fatalf("data dir: %v", err)
	}
	store, err := chunkdb.OpenSQLite(tune.Store.Path)
	if err != nil {
		logger.Fatalf("open chunk store: %v", err)
	}
	defer store.Close()
	if err := checkSeed(store, tune.World.Seed); err != nil {
		logger.Fatalf("chunk store %s: %v", tune.Store.Path, err)
	}
	if n, err := store.Count(context.Background()); err != nil {
		logger.Fatalf("chunk store %s: %v", tune.Store.Path, err)
	} else {
		logger.Printf("chunk store %s: %d chunks", tune.Store.Path, n)
	}

	generator := gen.New(tune.WorldGen())
	populator := &source.Fallback{
		Primary:     store,
		Secondary:   generator,
		SaveMissing: tune.Store.SaveMissing,
	}
	persisted := populatedOnly{store}

	opts := []cache.Option{cache.WithLogger(logger)}
	if tune.Journal.Enabled {
		jr := journal.NewCacheJournal(tune.Journal.Dir, "server", logger)
		defer jr.Close()
		opts = append(opts, cache.WithObserver(jr))
	}
	if tune.Cache.SaveOnEvict {
		opts = append(opts, cache.WithEvictHook(func(ch voxel.Chunk) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := persisted.SaveChunk(ctx, ch); err != nil {
				logger.Printf("save evicted chunk %v: %v", ch.Pos(), err)
			}
		}))
	}
	chunkCache, err := cache.New(tune.Cache.Capacity, populator, opts...)
	if err != nil {
		logger.Fatalf("cache: %v", err)
	}
	chunks := chunkserver.New(chunkserver.Config{Seed: tune.World.Seed, BoundaryR: tune.Server.BoundaryR}, chunkCache, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/v1/stats", statsHandler(chunks, store, logger))
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		writeMetrics(rw, collectStats(r.Context(), chunks, store, logger))
	})
	mux.HandleFunc("/v1/ws", ws.NewServer(chunks, logger).Handler())

	srv := &http.Server{
		Addr:              tune.Server.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Printf("listening on %s (seed=%d cache=%d boundary=%d)", tune.Server.Addr, tune.World.Seed, tune.Cache.Capacity, tune.Server.BoundaryR)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("ListenAndServe: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		return srv.Shutdown(ctx2)
	})
	runErr := g.Wait()

	ctx3, cancel3 := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel3()
	if _, err := chunks.Flush(ctx3, persisted); err != nil {
		logger.Printf("flush: %v", err)
	}
	if runErr != nil {
		logger.Fatalf("server: %v", runErr)
	}
}

// checkSeed pins a store to one world seed, so chunks generated under another
// seed are never mixed in.
func checkSeed(store *chunkdb.Store, seed int64) error {
	ctx := context.Background()
	v, ok, err := store.Meta(ctx, "seed")
	if err != nil {
		return err
	}
	if !ok {
		return store.SetMeta(ctx, "seed", strconv.FormatInt(seed, 10))
	}
	if v != strconv.FormatInt(seed, 10) {
		return fmt.Errorf("store seed %s != configured seed %d", v, seed)
	}
	return nil
}

// populatedOnly skips all-default grids when writing back. A failed
// population leaves the chunk empty, and persisting that would make the
// failure permanent; genuinely empty chunks regenerate identically.
type populatedOnly struct {
	source.Store
}

func (p populatedOnly) SaveChunk(ctx context.Context, ch voxel.Chunk) error {
	if ch.Data().IsEmpty() {
		return nil
	}
	return p.Store.SaveChunk(ctx, ch)
}

type chunkCounter interface {
	Count(ctx context.Context) (int, error)
}

type serverStats struct {
	chunkserver.Stats
	// Stored is the number of chunks in the durable store, -1 when it could
	// not be counted.
	Stored int `json:"stored"`
}

func collectStats(ctx context.Context, chunks *chunkserver.Server, store chunkCounter, logger *log.Logger) serverStats {
	st := serverStats{Stats: chunks.Stats(), Stored: -1}
	if n, err := store.Count(ctx); err != nil {
		logger.Printf("count stored chunks: %v", err)
	} else {
		st.Stored = n
	}
	return st
}

func statsHandler(chunks *chunkserver.Server, store chunkCounter, logger *log.Logger) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(collectStats(r.Context(), chunks, store, logger))
	}
}

func writeMetrics(rw http.ResponseWriter, s serverStats) {
	fmt.Fprintf(rw, "# HELP voxelcore_chunks_served_total Chunks served to clients.\n")
	fmt.Fprintf(rw, "# TYPE voxelcore_chunks_served_total counter\n")
	fmt.Fprintf(rw, "voxelcore_chunks_served_total %d\n", s.Served)
	fmt.Fprintf(rw, "voxelcore_chunks_failed_total %d\n", s.Failed)

	fmt.Fprintf(rw, "# HELP voxelcore_cache_events_total Chunk cache events.\n")
	fmt.Fprintf(rw, "# TYPE voxelcore_cache_events_total counter\n")
	fmt.Fprintf(rw, "voxelcore_cache_events_total{event=%q} %d\n", "hit", s.Cache.Hits)
	fmt.Fprintf(rw, "voxelcore_cache_events_total{event=%q} %d\n", "miss", s.Cache.Misses)
	fmt.Fprintf(rw, "voxelcore_cache_events_total{event=%q} %d\n", "evict", s.Cache.Evictions)
	fmt.Fprintf(rw, "voxelcore_cache_events_total{event=%q} %d\n", "populate_failed", s.Cache.Failures)

	fmt.Fprintf(rw, "# HELP voxelcore_cache_chunks Chunk cache occupancy.\n")
	fmt.Fprintf(rw, "# TYPE voxelcore_cache_chunks gauge\n")
	fmt.Fprintf(rw, "voxelcore_cache_chunks{state=%q} %d\n", "resident", s.Cache.Resident)
	fmt.Fprintf(rw, "voxelcore_cache_chunks{state=%q} %d\n", "allocated", s.Cache.Allocated)
	fmt.Fprintf(rw, "voxelcore_cache_chunks{state=%q} %d\n", "capacity", s.Cache.Capacity)

	if s.Stored >= 0 {
		fmt.Fprintf(rw, "# HELP voxelcore_store_chunks Chunks in the durable store.\n")
		fmt.Fprintf(rw, "# TYPE voxelcore_store_chunks gauge\n")
		fmt.Fprintf(rw, "voxelcore_store_chunks %d\n", s.Stored)
	}
}
