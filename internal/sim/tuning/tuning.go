package tuning

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"voxelcore.ai/internal/protocol"
	"voxelcore.ai/internal/sim/fixed"
	"voxelcore.ai/internal/sim/terrain/gen"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	Cache   Cache   `yaml:"cache"`
	World   World   `yaml:"world"`
	Physics Physics `yaml:"physics"`
	Store   Store   `yaml:"store"`
	Server  Server  `yaml:"server"`
	Journal Journal `yaml:"journal"`
}

type Cache struct {
	Capacity int `yaml:"capacity"`
	// SaveOnEvict writes evicted chunks back to the store.
	SaveOnEvict bool `yaml:"save_on_evict"`
}

type World struct {
	Seed          int64   `yaml:"seed"`
	BaseHeight    int     `yaml:"base_height"`
	Amplitude     int     `yaml:"amplitude"`
	SeaLevel      int     `yaml:"sea_level"`
	Scale         float64 `yaml:"scale"`
	Octaves       int     `yaml:"octaves"`
	CaveScale     float64 `yaml:"cave_scale"`
	CaveThreshold float64 `yaml:"cave_threshold"`
	CoalPermille  int     `yaml:"coal_permille"`
	IronPermille  int     `yaml:"iron_permille"`
	IronMaxY      int     `yaml:"iron_max_y"`
}

type Physics struct {
	// Gravity in meters per second per tick, applied by Gravitate.
	Gravity [3]float64 `yaml:"gravity"`
}

type Store struct {
	Path        string `yaml:"path"`
	SaveMissing bool   `yaml:"save_missing"`
}

type Server struct {
	Addr      string `yaml:"addr"`
	BoundaryR int    `yaml:"boundary_r"`
}

type Journal struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

func Defaults() Tuning {
	wg := gen.DefaultWorldGen(0)
	return Tuning{
		ProtocolVersion: protocol.Version,
		Cache:           Cache{Capacity: 256, SaveOnEvict: true},
		World: World{
			Seed:          wg.Seed,
			BaseHeight:    wg.BaseHeight,
			Amplitude:     wg.Amplitude,
			SeaLevel:      wg.SeaLevel,
			Scale:         wg.Scale,
			Octaves:       wg.Octaves,
			CaveScale:     wg.CaveScale,
			CaveThreshold: wg.CaveThreshold,
			CoalPermille:  wg.CoalPermille,
			IronPermille:  wg.IronPermille,
			IronMaxY:      wg.IronMaxY,
		},
		Physics: Physics{Gravity: [3]float64{0, -6, 0}},
		Store:   Store{Path: "data/chunks.sqlite", SaveMissing: false},
		Server:  Server{Addr: ":8080", BoundaryR: 0},
		Journal: Journal{Enabled: false, Dir: "data/journal"},
	}
}

// Load reads path over Defaults, so a file only needs the keys it changes.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	var errs []error
	if t.ProtocolVersion != protocol.Version {
		errs = append(errs, fmt.Errorf("protocol_version %q, this build speaks %q", t.ProtocolVersion, protocol.Version))
	}
	if t.Cache.Capacity < 1 {
		errs = append(errs, fmt.Errorf("cache.capacity must be >= 1, got %d", t.Cache.Capacity))
	}
	if t.World.Scale <= 0 || t.World.CaveScale <= 0 {
		errs = append(errs, errors.New("world.scale and world.cave_scale must be > 0"))
	}
	if t.World.Octaves < 1 || t.World.Octaves > 8 {
		errs = append(errs, fmt.Errorf("world.octaves must be in [1,8], got %d", t.World.Octaves))
	}
	if t.World.Amplitude < 0 {
		errs = append(errs, fmt.Errorf("world.amplitude must be >= 0, got %d", t.World.Amplitude))
	}
	if p := t.World.CoalPermille + t.World.IronPermille; t.World.CoalPermille < 0 || t.World.IronPermille < 0 || p > 1000 {
		errs = append(errs, fmt.Errorf("world ore permille out of range (coal=%d iron=%d)", t.World.CoalPermille, t.World.IronPermille))
	}
	if t.Server.BoundaryR < 0 {
		errs = append(errs, fmt.Errorf("server.boundary_r must be >= 0, got %d", t.Server.BoundaryR))
	}
	if t.Journal.Enabled && t.Journal.Dir == "" {
		errs = append(errs, errors.New("journal.dir is required when journal.enabled"))
	}
	return errors.Join(errs...)
}

func (t Tuning) WorldGen() gen.WorldGen {
	wg := gen.DefaultWorldGen(t.World.Seed)
	wg.BaseHeight = t.World.BaseHeight
	wg.Amplitude = t.World.Amplitude
	wg.SeaLevel = t.World.SeaLevel
	wg.Scale = t.World.Scale
	wg.Octaves = t.World.Octaves
	wg.CaveScale = t.World.CaveScale
	wg.CaveThreshold = t.World.CaveThreshold
	wg.CoalPermille = t.World.CoalPermille
	wg.IronPermille = t.World.IronPermille
	wg.IronMaxY = t.World.IronMaxY
	return wg
}

func (t Tuning) Gravity() fixed.Velocity {
	g := t.Physics.Gravity
	return fixed.Velocity{
		X: fixed.SpeedFromFloat(g[0]),
		Y: fixed.SpeedFromFloat(g[1]),
		Z: fixed.SpeedFromFloat(g[2]),
	}
}
