package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"voxelcore.ai/internal/sim/fixed"
	"voxelcore.ai/internal/sim/physics"
	"voxelcore.ai/internal/sim/terrain/cache"
	"voxelcore.ai/internal/sim/tuning"
	"voxelcore.ai/internal/sim/voxel"
	"voxelcore.ai/internal/transport/ws"
)

func main() {
	var (
		url        = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		tuningPath = flag.String("tuning", "./configs/tuning.yaml", "path to tuning.yaml (physics section)")
		name       = flag.String("name", "probe", "client name")
		radius     = flag.Int("radius", 2, "chunk radius to load around the origin column")
		layers     = flag.Int("layers", 5, "vertical chunk layers to load, from y=0")
		capacity   = flag.Int("cache", 128, "local chunk cache capacity")
		inflight   = flag.Int("inflight", 8, "max in-flight chunk requests")
		tick       = flag.Duration("tick", 50*time.Millisecond, "physics tick")
		maxTicks   = flag.Int("max_ticks", 400, "give up the drop after this many ticks")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[probe] ", log.LstdFlags|log.Lmicroseconds)

	tune, err := tuning.Load(*tuningPath)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", *tuningPath)
		tune = tuning.Defaults()
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	client, err := ws.Dial(ctx, *url, ws.DialOptions{Name: *name, MaxInflight: *inflight, Logger: logger})
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer client.Close()
	w := client.Welcome()
	logger.Printf("session=%s seed=%d boundary=%d", w.SessionID, w.WorldParams.Seed, w.WorldParams.BoundaryR)

	local, err := cache.New(*capacity, client, cache.WithLogger(logger))
	if err != nil {
		logger.Fatalf("cache: %v", err)
	}

	start := time.Now()
	failed := 0
	for z := -*radius; z <= *radius; z++ {
		for x := -*radius; x <= *radius; x++ {
			for y := 0; y < *layers; y++ {
				if _, err := local.GetChunk(ctx, voxel.ChunkPos{X: x, Y: y, Z: z}); err != nil {
					failed++
					logger.Printf("chunk (%d,%d,%d): %v", x, y, z, err)
				}
			}
		}
	}
	st, _ := json.Marshal(local.Stats())
	logger.Printf("loaded radius=%d layers=%d in %s failed=%d stats=%s", *radius, *layers, time.Since(start).Round(time.Millisecond), failed, st)

	ground := surfaceY(ctx, local, *layers)
	logger.Printf("surface at origin column: y=%d", ground)
	if ct, ticks := drop(logger, tune.Gravity(), ground, *tick, *maxTicks); ct == physics.None {
		logger.Printf("drop: no collision after %d ticks", ticks)
	}
}

// surfaceY is the y just above the topmost solid block of column (0, 0), or 0
// when the loaded layers hold nothing solid there.
func surfaceY(ctx context.Context, c *cache.Cache, layers int) int {
	for cy := layers - 1; cy >= 0; cy-- {
		ref, err := c.GetChunk(ctx, voxel.ChunkPos{Y: cy})
		if err != nil {
			continue
		}
		ch, ok := c.Chunk(ref)
		if !ok {
			continue
		}
		for y := voxel.Size - 1; y >= 0; y-- {
			if ch.Data().Type(0, y, 0) != voxel.AirType {
				_, oy, _ := ch.Pos().Origin()
				return oy + y + 1
			}
		}
	}
	return 0
}

// drop lets a sphere fall onto a resting one and reports the first non-None
// classification with the tick it happened on.
func drop(logger *log.Logger, gravity fixed.Velocity, ground int, tick time.Duration, maxTicks int) (physics.CollisionType, int) {
	phys := physics.New(physics.WithGravity(gravity), physics.WithLogger(logger))
	r := fixed.Extent(fixed.One / 2)
	rest := physics.Body{
		Position: fixed.Position{Y: fixed.Meters(ground)*fixed.One + fixed.Meters(r)},
		Mass:     fixed.One,
		Volume:   physics.NewSphere(r),
	}
	falling := physics.Body{
		Position: fixed.Position{Y: rest.Position.Y + 8*fixed.One},
		Mass:     fixed.One,
		Volume:   physics.NewSphere(r),
	}
	for i := 1; i <= maxTicks; i++ {
		phys.Impulse(&falling, phys.Gravity(), tick)
		phys.Update(&falling, tick)
		if ct := phys.CheckCollision(&rest, &falling); ct != physics.None {
			logger.Printf("drop: %v after %d ticks at y=%.3f v=%.3f", ct, i, falling.Position.Y.Float(), falling.Velocity.Y.Float())
			return ct, i
		}
	}
	return physics.None, maxTicks
}
