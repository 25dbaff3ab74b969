// Package actionlog persists per-action telemetry to a SQLite database.
// Writes go through a buffered channel drained by a single writer
// goroutine, so logging never blocks the dispatch path.
package actionlog

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	_ "modernc.org/sqlite"

	"github.com/ysocial-sim/ysocial-sim/sim/trace"
)

// Log is an append-only action telemetry sink.
type Log struct {
	db *sql.DB

	ch   chan trace.ActionRecord
	wg   sync.WaitGroup
	once sync.Once

	closed  atomic.Bool
	dropped atomic.Int64
}

// Open creates or opens the database at path and starts the writer.
func Open(path string) (*Log, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	l := &Log{
		db: db,
		// sized for a full slot of a large population without stalling
		ch: make(chan trace.ActionRecord, 65536),
	}
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		l.loop()
	}()
	return l, nil
}

func initPragmas(db *sql.DB) error {
	// WAL suits the append-only write pattern.
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
		`CREATE TABLE IF NOT EXISTS actions (
			slot INTEGER NOT NULL,
			day INTEGER NOT NULL,
			actor_id INTEGER NOT NULL,
			actor_name TEXT NOT NULL,
			kind TEXT NOT NULL,
			status TEXT NOT NULL,
			attempts INTEGER NOT NULL,
			duration_us INTEGER NOT NULL,
			error TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_actions_actor_slot ON actions(actor_id, slot);`,
		`CREATE INDEX IF NOT EXISTS idx_actions_day_kind ON actions(day, kind);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// Write enqueues one record. When the writer falls behind the record is
// dropped and counted; in-memory metrics remain the source of truth.
func (l *Log) Write(rec trace.ActionRecord) {
	if l == nil || l.closed.Load() {
		return
	}
	select {
	case l.ch <- rec:
	default:
		l.dropped.Add(1)
	}
}

// Dropped reports how many records were shed under backpressure.
func (l *Log) Dropped() int64 {
	return l.dropped.Load()
}

// Close drains pending records and closes the database.
func (l *Log) Close() error {
	var err error
	l.once.Do(func() {
		l.closed.Store(true)
		close(l.ch)
		l.wg.Wait()
		err = l.db.Close()
	})
	return err
}

func (l *Log) loop() {
	for rec := range l.ch {
		_, err := l.db.Exec(
			`INSERT INTO actions (slot, day, actor_id, actor_name, kind, status, attempts, duration_us, error)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.Slot, rec.Day, rec.ActorID, rec.ActorName, rec.Kind,
			string(rec.Status), rec.Attempts, rec.Duration.Microseconds(), rec.Err,
		)
		if err != nil {
			l.dropped.Add(1)
		}
	}
}

// CountByStatus returns how many persisted actions carry the given status.
func (l *Log) CountByStatus(status trace.Status) (int64, error) {
	var n int64
	err := l.db.QueryRow(`SELECT COUNT(*) FROM actions WHERE status = ?`, string(status)).Scan(&n)
	return n, err
}

// DayKinds returns the per-kind action counts for one day.
func (l *Log) DayKinds(day int64) (map[string]int64, error) {
	rows, err := l.db.Query(`SELECT kind, COUNT(*) FROM actions WHERE day = ? GROUP BY kind`, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]int64)
	for rows.Next() {
		var kind string
		var n int64
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, err
		}
		out[kind] = n
	}
	return out, rows.Err()
}
