package journal

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"voxelcore.ai/internal/sim/terrain/cache"
)

// Writer appends JSON lines to hourly zstd files named
// <dir>/<prefix>-YYYY-MM-DD-HH.jsonl.zst.
type Writer struct {
	dir    string
	prefix string
	now    func() time.Time

	mu      sync.Mutex
	curHour string
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
}

func NewWriter(dir, prefix string) *Writer {
	return &Writer{dir: dir, prefix: prefix, now: time.Now}
}

func (w *Writer) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	hour := w.now().UTC().Format("2006-01-02-15")
	if hour != w.curHour || w.w == nil {
		if err := w.rotateLocked(hour); err != nil {
			return err
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	b = append(b, '\n')
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	return w.w.Flush()
}

func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

// Path is the file entries written at t land in.
func (w *Writer) Path(t time.Time) string {
	return filepath.Join(w.dir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, t.UTC().Format("2006-01-02-15")))
}

func (w *Writer) rotateLocked(hour string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(w.dir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, hour))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f, w.enc, w.w = f, enc, bufio.NewWriterSize(enc, 64*1024)
	w.curHour = hour
	return nil
}

func (w *Writer) closeLocked() error {
	var err error
	if w.w != nil {
		err = w.w.Flush()
	}
	if w.enc != nil {
		if cerr := w.enc.Close(); err == nil {
			err = cerr
		}
	}
	if w.f != nil {
		if cerr := w.f.Close(); err == nil {
			err = cerr
		}
	}
	w.f, w.enc, w.w = nil, nil, nil
	w.curHour = ""
	return err
}

type CacheEntry struct {
	Time  string `json:"ts"`
	Cache string `json:"cache"`
	cache.Event
}

// CacheJournal records cache misses, evictions and population failures.
type CacheJournal struct {
	name string
	w    *Writer
	log  *log.Logger
}

func NewCacheJournal(dir, name string, logger *log.Logger) *CacheJournal {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &CacheJournal{name: name, w: NewWriter(dir, "cache"), log: logger}
}

func (j *CacheJournal) OnCacheEvent(ev cache.Event) {
	e := CacheEntry{Time: j.w.now().UTC().Format(time.RFC3339Nano), Cache: j.name, Event: ev}
	if err := j.w.Write(e); err != nil {
		j.log.Printf("journal: %v", err)
	}
}

func (j *CacheJournal) Close() error { return j.w.Close() }
