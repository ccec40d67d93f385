package recording

import (
	"context"
	"database/sql"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/lixenwraith/hvz/engine"
)

var ErrClosed = errors.New("recording closed")

// RunInfo is one row of the runs table
type RunInfo struct {
	ID        string
	Seed      uint64
	StartedAt time.Time
	Prey      int
	Hunters   int
	Obstacles int
	LogPath   string

	// Filled by FinishRun
	EndedAt          time.Time
	Ticks            uint64
	Elapsed          float64
	Conversions      int
	AllConvertedTick uint64
}

// ConversionRow is one row of the conversions table
type ConversionRow struct {
	RunID   string
	Tick    uint64
	Seq     int
	Prey    uint64
	Hunter  uint64
	X, Y, Z float64
}

type reqKind int

const (
	reqBeginRun reqKind = iota + 1
	reqFinishRun
	reqConversions
	reqSync
)

type req struct {
	kind        reqKind
	run         RunInfo
	tick        uint64
	conversions []engine.Conversion
	done        chan struct{}
}

// Index is a sqlite secondary index over recorded runs
// Writes go through one goroutine; conversion batches are dropped when it falls behind
type Index struct {
	db  *sql.DB
	log *log.Logger

	mu     sync.RWMutex
	ch     chan req
	closed bool
	wg     sync.WaitGroup

	dropped atomic.Int64

	// owned by the writer goroutine
	waiters []chan struct{}
}

// OpenIndex opens or creates the index at path with a writer backlog of queue requests
func OpenIndex(path string, queue int, logger *log.Logger) (*Index, error) {
	if path == "" {
		return nil, errors.New("empty index path")
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, "create index dir")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "open index")
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

	if queue < 1 {
		queue = 1
	}
	x := &Index{db: db, log: logger, ch: make(chan req, queue)}
	x.wg.Add(1)
	go func() {
		defer x.wg.Done()
		x.loop()
	}()
	return x, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return errors.Wrapf(err, "pragma %q", p)
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			seed INTEGER NOT NULL,
			started_at TEXT NOT NULL,
			prey INTEGER NOT NULL,
			hunters INTEGER NOT NULL,
			obstacles INTEGER NOT NULL,
			log_path TEXT NOT NULL,
			ended_at TEXT,
			ticks INTEGER NOT NULL DEFAULT 0,
			elapsed REAL NOT NULL DEFAULT 0,
			conversions INTEGER NOT NULL DEFAULT 0,
			all_converted_tick INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS conversions (
			run_id TEXT NOT NULL REFERENCES runs(run_id),
			tick INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			prey_id INTEGER NOT NULL,
			hunter_id INTEGER NOT NULL,
			x REAL NOT NULL,
			y REAL NOT NULL,
			z REAL NOT NULL,
			PRIMARY KEY (run_id, tick, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_conversions_prey ON conversions(run_id, prey_id);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return errors.Wrap(err, "init schema")
		}
	}
	return nil
}

// BeginRun inserts the run row; it waits for queue space
// A zero StartedAt is stamped with the current time
func (x *Index) BeginRun(run RunInfo) error {
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	return x.send(req{kind: reqBeginRun, run: run}, true)
}

// FinishRun stores the run totals; it waits for queue space
// A zero EndedAt is stamped with the current time
func (x *Index) FinishRun(run RunInfo) error {
	if run.EndedAt.IsZero() {
		run.EndedAt = time.Now()
	}
	return x.send(req{kind: reqFinishRun, run: run}, true)
}

// RecordConversions queues one tick's conversions without blocking
func (x *Index) RecordConversions(runID string, tick uint64, convs []engine.Conversion) error {
	if len(convs) == 0 {
		return nil
	}
	cp := append([]engine.Conversion(nil), convs...)
	return x.send(req{kind: reqConversions, run: RunInfo{ID: runID}, tick: tick, conversions: cp}, false)
}

// Sync waits until every request queued before it is committed
func (x *Index) Sync() error {
	done := make(chan struct{})
	if err := x.send(req{kind: reqSync, done: done}, true); err != nil {
		return err
	}
	<-done
	return nil
}

// Dropped returns the number of conversion batches lost to a full queue
func (x *Index) Dropped() int64 {
	return x.dropped.Load()
}

func (x *Index) send(r req, wait bool) error {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if x.closed {
		return ErrClosed
	}
	if wait {
		x.ch <- r
		return nil
	}
	select {
	case x.ch <- r:
	default:
		// The tick log stays complete; only the index loses rows
		x.dropped.Add(1)
	}
	return nil
}

// Close drains the queue and closes the database
func (x *Index) Close() error {
	x.mu.Lock()
	if x.closed {
		x.mu.Unlock()
		return nil
	}
	x.closed = true
	close(x.ch)
	x.mu.Unlock()

	x.wg.Wait()
	return errors.Wrap(x.db.Close(), "close index")
}

func (x *Index) loop() {
	ctx := context.Background()
	for r := range x.ch {
		tx, err := x.db.BeginTx(ctx, nil)
		if err != nil {
			x.log.Error("index begin", "err", err)
			if r.done != nil {
				close(r.done)
			}
			continue
		}

		x.apply(ctx, tx, r)
		// Batch whatever queued up behind the first request
	drain:
		for {
			select {
			case next, ok := <-x.ch:
				if !ok {
					break drain
				}
				x.apply(ctx, tx, next)
			default:
				break drain
			}
		}

		if err := tx.Commit(); err != nil {
			x.log.Error("index commit", "err", err)
		}
		x.flushWaiters()
	}
}

// flushWaiters releases Sync callers once the transaction holding their predecessors commits
func (x *Index) flushWaiters() {
	for _, done := range x.waiters {
		close(done)
	}
	x.waiters = x.waiters[:0]
}

func (x *Index) apply(ctx context.Context, tx *sql.Tx, r req) {
	var err error
	switch r.kind {
	case reqBeginRun:
		_, err = tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO runs(run_id,seed,started_at,prey,hunters,obstacles,log_path) VALUES(?,?,?,?,?,?,?)`,
			r.run.ID, int64(r.run.Seed), r.run.StartedAt.UTC().Format(time.RFC3339Nano),
			r.run.Prey, r.run.Hunters, r.run.Obstacles, r.run.LogPath)
	case reqFinishRun:
		_, err = tx.ExecContext(ctx,
			`UPDATE runs SET ended_at=?, ticks=?, elapsed=?, conversions=?, all_converted_tick=? WHERE run_id=?`,
			r.run.EndedAt.UTC().Format(time.RFC3339Nano), int64(r.run.Ticks), r.run.Elapsed,
			r.run.Conversions, int64(r.run.AllConvertedTick), r.run.ID)
	case reqConversions:
		for i, cv := range r.conversions {
			_, err = tx.ExecContext(ctx,
				`INSERT OR REPLACE INTO conversions(run_id,tick,seq,prey_id,hunter_id,x,y,z) VALUES(?,?,?,?,?,?,?,?)`,
				r.run.ID, int64(r.tick), i, int64(cv.Prey), int64(cv.Hunter),
				cv.Position.X(), cv.Position.Y(), cv.Position.Z())
			if err != nil {
				break
			}
		}
	case reqSync:
		x.waiters = append(x.waiters, r.done)
	}
	if err != nil {
		x.log.Error("index write", "kind", r.kind, "run", r.run.ID, "err", err)
	}
}
