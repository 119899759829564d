package chunkdb

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"voxelcore.ai/internal/sim/encoding"
	"voxelcore.ai/internal/sim/terrain/source"
	"voxelcore.ai/internal/sim/voxel"
)

// Store keeps chunk payloads in SQLite, one row per chunk position. Rows hold
// the same payload format the websocket transport sends.
type Store struct {
	db   *sql.DB
	once sync.Once
}

var _ source.Store = (*Store)(nil)

func OpenSQLite(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS chunks (
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			z INTEGER NOT NULL,
			size INTEGER NOT NULL,
			payload BLOB,
			digest TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			PRIMARY KEY (z, y, x)
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Close() error {
	var err error
	s.once.Do(func() { err = s.db.Close() })
	return err
}

// LoadChunk decodes the stored payload into ch and checks it against the
// digest recorded at save time.
func (s *Store) LoadChunk(ctx context.Context, ch voxel.Chunk) error {
	p := ch.Pos()
	var (
		size    int
		payload []byte
		digest  string
	)
	row := s.db.QueryRowContext(ctx, `SELECT size, payload, digest FROM chunks WHERE x=? AND y=? AND z=?`, p.X, p.Y, p.Z)
	if err := row.Scan(&size, &payload, &digest); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return source.ErrNotFound
		}
		return err
	}
	if size != len(payload) {
		return fmt.Errorf("chunk %v: stored size %d, payload %d bytes: %w", p, size, len(payload), encoding.ErrBadPayload)
	}
	if err := encoding.DecodeGrid(payload, ch.Data()); err != nil {
		return fmt.Errorf("chunk %v: %w", p, err)
	}
	if digest == "" {
		return nil
	}
	if sum := ch.Data().Digest(); hex.EncodeToString(sum[:]) != digest {
		return fmt.Errorf("chunk %v: digest mismatch: %w", p, encoding.ErrBadPayload)
	}
	return nil
}

func (s *Store) SaveChunk(ctx context.Context, ch voxel.Chunk) error {
	payload, err := encoding.EncodeGrid(ch.Data())
	if err != nil {
		return err
	}
	p := ch.Pos()
	sum := ch.Data().Digest()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO chunks(x,y,z,size,payload,digest,updated_at) VALUES(?,?,?,?,?,?,?)
		ON CONFLICT(z,y,x) DO UPDATE SET size=excluded.size, payload=excluded.payload, digest=excluded.digest, updated_at=excluded.updated_at`,
		p.X, p.Y, p.Z, len(payload), payload, hex.EncodeToString(sum[:]), time.Now().UTC().Format(time.RFC3339Nano))
	return err
}

func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&n)
	return n, err
}

func (s *Store) Meta(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key=?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *Store) SetMeta(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO meta(key,value) VALUES(?,?) ON CONFLICT(key) DO UPDATE SET value=excluded.value`, key, value)
	return err
}
