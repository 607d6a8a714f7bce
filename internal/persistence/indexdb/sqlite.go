package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"shipsim.dev/internal/sim/network"
	"shipsim.dev/internal/sim/tuning"
)

var ErrNoRun = errors.New("no run started")

// SQLiteIndex is a queryable secondary index of simulation runs. Tick rows
// are written by a background goroutine; the tick log stays the source of
// truth when the queue overflows.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan tickReq
	wg   sync.WaitGroup
	once sync.Once

	closed     atomic.Bool
	runID      atomic.Value // string
	everyTicks uint64

	dropTickTotal atomic.Uint64
}

type tickReq struct {
	runID string
	entry network.TickLogEntry
	// flushed, when set, marks a barrier: the writer commits and closes it.
	flushed chan struct{}
}

type Stats struct {
	QueueDepth    int
	QueueCapacity int
	DropTickTotal uint64
}

type Options struct {
	// EveryTicks keeps one tick row per N ticks; faults are always kept.
	EveryTicks int
	QueueSize  int
}

func OpenSQLite(path string, opts Options) (*SQLiteIndex, error) {
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

	if opts.EveryTicks <= 0 {
		opts.EveryTicks = 1
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 65536
	}
	s := &SQLiteIndex{
		db:         db,
		ch:         make(chan tickReq, opts.QueueSize),
		everyTicks: uint64(opts.EveryTicks),
	}
	s.runID.Store("")
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
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
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			document TEXT NOT NULL,
			networks INTEGER NOT NULL,
			relays INTEGER NOT NULL,
			tuning_digest TEXT NOT NULL,
			tuning_json TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS diagnostics (
			run_id TEXT NOT NULL REFERENCES runs(run_id),
			seq INTEGER NOT NULL,
			path TEXT NOT NULL,
			line INTEGER NOT NULL,
			message TEXT NOT NULL,
			PRIMARY KEY (run_id, seq)
		);`,
		`CREATE TABLE IF NOT EXISTS ticks (
			run_id TEXT NOT NULL REFERENCES runs(run_id),
			tick INTEGER NOT NULL,
			digest TEXT NOT NULL,
			chip_steps INTEGER NOT NULL,
			relay_copies INTEGER NOT NULL,
			faults INTEGER NOT NULL,
			duration_ns INTEGER NOT NULL,
			raw_json TEXT NOT NULL,
			PRIMARY KEY (run_id, tick)
		);`,
		`CREATE TABLE IF NOT EXISTS faults (
			run_id TEXT NOT NULL REFERENCES runs(run_id),
			tick INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			network TEXT NOT NULL,
			error TEXT NOT NULL,
			PRIMARY KEY (run_id, tick, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_faults_network ON faults(network, tick);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// BeginRun records a run with its load diagnostics and makes it the target of
// later WriteTick calls.
func (s *SQLiteIndex) BeginRun(document string, ns *network.Networks, tune tuning.Tuning, diags []network.Diagnostic) (string, error) {
	if s == nil {
		return "", nil
	}
	id := uuid.NewString()
	tuneJSON, _ := json.Marshal(tune)
	sum := sha256.Sum256(tuneJSON)

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(
		`INSERT INTO runs(run_id,started_at,document,networks,relays,tuning_digest,tuning_json) VALUES(?,?,?,?,?,?,?)`,
		id,
		time.Now().UTC().Format(time.RFC3339Nano),
		document,
		len(ns.Names()),
		len(ns.Relays()),
		hex.EncodeToString(sum[:]),
		string(tuneJSON),
	); err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT INTO diagnostics(run_id,seq,path,line,message) VALUES(?,?,?,?,?)`)
	if err != nil {
		return "", err
	}
	defer stmt.Close()
	for i, d := range diags {
		if _, err := stmt.Exec(id, i, d.Path, d.Line, d.Message); err != nil {
			return "", fmt.Errorf("insert diagnostic: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}
	s.runID.Store(id)
	return id, nil
}

func (s *SQLiteIndex) RunID() string {
	if s == nil {
		return ""
	}
	return s.runID.Load().(string)
}

func (s *SQLiteIndex) WriteTick(entry network.TickLogEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	id := s.RunID()
	if id == "" {
		return ErrNoRun
	}
	if entry.Tick%s.everyTicks != 0 && len(entry.Faults) == 0 {
		return nil
	}
	select {
	case s.ch <- tickReq{runID: id, entry: entry}:
	default:
		s.dropTickTotal.Add(1)
	}
	return nil
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:    len(s.ch),
		QueueCapacity: cap(s.ch),
		DropTickTotal: s.dropTickTotal.Load(),
	}
}

// Flush blocks until every tick queued before the call is committed.
func (s *SQLiteIndex) Flush(ctx context.Context) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	done := make(chan struct{})
	select {
	case s.ch <- tickReq{flushed: done}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *SQLiteIndex) CountTicks(runID string) (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM ticks WHERE run_id = ?`, runID).Scan(&n)
	return n, err
}

func (s *SQLiteIndex) TickDigest(runID string, tick uint64) (string, bool, error) {
	var d string
	err := s.db.QueryRow(`SELECT digest FROM ticks WHERE run_id = ? AND tick = ?`, runID, int64(tick)).Scan(&d)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return d, true, nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertTick, _ := s.db.Prepare(`INSERT OR REPLACE INTO ticks(run_id,tick,digest,chip_steps,relay_copies,faults,duration_ns,raw_json) VALUES(?,?,?,?,?,?,?,?)`)
	insertFault, _ := s.db.Prepare(`INSERT OR REPLACE INTO faults(run_id,tick,seq,network,error) VALUES(?,?,?,?,?)`)
	defer func() {
		if insertTick != nil {
			_ = insertTick.Close()
		}
		if insertFault != nil {
			_ = insertFault.Close()
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 1000
		commitMaxWait = time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	for r := range s.ch {
		if r.flushed != nil {
			commit()
			close(r.flushed)
			continue
		}
		begin()
		if tx == nil || insertTick == nil {
			continue
		}
		e := r.entry
		raw, _ := json.Marshal(e)
		if _, err := tx.Stmt(insertTick).Exec(
			r.runID,
			int64(e.Tick),
			e.Digest,
			e.ChipSteps,
			e.RelayCopies,
			len(e.Faults),
			int64(e.Duration),
			string(raw),
		); err != nil {
			rollback()
			continue
		}
		opCount++
		for i, f := range e.Faults {
			if insertFault == nil {
				break
			}
			if _, err := tx.Stmt(insertFault).Exec(r.runID, int64(e.Tick), i, f.Network, f.Error); err != nil {
				rollback()
				break
			}
			opCount++
		}
		if tx != nil && (opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait) {
			commit()
		}
	}

	commit()
}
