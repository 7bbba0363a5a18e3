package auditlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS audit_events (
	event_id    TEXT PRIMARY KEY,
	batch_id    TEXT NOT NULL,
	stage       TEXT NOT NULL,
	label       TEXT NOT NULL DEFAULT '',
	doc_type    TEXT NOT NULL DEFAULT '',
	source_ids  TEXT NOT NULL DEFAULT '[]',
	message     TEXT NOT NULL DEFAULT '',
	created_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_audit_events_batch ON audit_events(batch_id, created_at);
`

// ErrClosed is returned by operations on a closed sink.
var ErrClosed = errors.New("audit sink closed")

const defaultBuffer = 256

// SQLiteSink stores events in an SQLite table. Send enqueues without
// blocking; a background writer inserts events in order. Events sent while
// the buffer is full are dropped with a warning.
type SQLiteSink struct {
	db     *sql.DB
	logger *slog.Logger

	mu     sync.Mutex
	closed bool
	queue  chan Event
	done   chan struct{}
}

// OpenSQLite opens (or creates) the database at path and prepares the schema.
// Use ":memory:" for a throwaway store.
func OpenSQLite(path string, logger *slog.Logger) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("auditlog: open: %w", err)
	}
	// One connection: a :memory: database exists per connection, and SQLite
	// serializes writers anyway.
	db.SetMaxOpenConns(1)

	for _, p := range []string{"PRAGMA journal_mode = WAL", "PRAGMA busy_timeout = 10000", "PRAGMA synchronous = NORMAL"} {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("auditlog: %s: %w", p, err)
		}
	}

	s := NewSQLiteSink(db, logger)
	if err := s.Init(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLiteSink wraps an open database. Call Init before sending.
func NewSQLiteSink(db *sql.DB, logger *slog.Logger) *SQLiteSink {
	if logger == nil {
		logger = slog.Default()
	}
	s := &SQLiteSink{
		db:     db,
		logger: logger,
		queue:  make(chan Event, defaultBuffer),
		done:   make(chan struct{}),
	}
	go s.run(s.queue, s.done)
	return s
}

// Init creates the audit table.
func (s *SQLiteSink) Init() error {
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("auditlog: init schema: %w", err)
	}
	return nil
}

func (s *SQLiteSink) Send(_ context.Context, e Event) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Time.IsZero() {
		e.Time = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		s.logger.Warn("audit event after close dropped", "batch_id", e.BatchID, "stage", e.Stage)
		return
	}
	select {
	case s.queue <- e:
	default:
		s.logger.Warn("audit buffer full, event dropped", "batch_id", e.BatchID, "stage", e.Stage)
	}
}

func (s *SQLiteSink) run(queue <-chan Event, done chan<- struct{}) {
	defer close(done)
	for e := range queue {
		if err := s.insert(context.Background(), e); err != nil {
			s.logger.Warn("audit insert failed", "batch_id", e.BatchID, "error", err)
		}
	}
}

func (s *SQLiteSink) insert(ctx context.Context, e Event) error {
	ids := e.SourceDocIDs
	if ids == nil {
		ids = []string{}
	}
	rawIDs, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO audit_events (event_id, batch_id, stage, label, doc_type, source_ids, message, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.BatchID, e.Stage, e.Label, e.DocType, string(rawIDs), e.Message, e.Time.UnixNano())
	return err
}

// Flush waits until every event queued so far is written, by closing and
// restarting the writer.
func (s *SQLiteSink) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	close(s.queue)
	<-s.done
	s.queue = make(chan Event, defaultBuffer)
	s.done = make(chan struct{})
	go s.run(s.queue, s.done)
}

// Events returns the stored events of a batch in insertion order.
func (s *SQLiteSink) Events(ctx context.Context, batchID string) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT event_id, batch_id, stage, label, doc_type, source_ids, message, created_at
		 FROM audit_events WHERE batch_id = ? ORDER BY created_at, rowid`, batchID)
	if err != nil {
		return nil, fmt.Errorf("auditlog: query: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var (
			e      Event
			rawIDs string
			ts     int64
		)
		if err := rows.Scan(&e.ID, &e.BatchID, &e.Stage, &e.Label, &e.DocType, &rawIDs, &e.Message, &ts); err != nil {
			return nil, fmt.Errorf("auditlog: scan: %w", err)
		}
		if err := json.Unmarshal([]byte(rawIDs), &e.SourceDocIDs); err != nil {
			return nil, fmt.Errorf("auditlog: source ids of %s: %w", e.ID, err)
		}
		e.Time = time.Unix(0, ts)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close flushes pending events and closes the database.
func (s *SQLiteSink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.closed = true
	close(s.queue)
	done := s.done
	s.mu.Unlock()

	<-done
	return s.db.Close()
}
