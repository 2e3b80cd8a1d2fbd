package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/jaretmartin/symtex/pkg/ledger"
)

const sqliteBackend = "sqlite"

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS ledger_entries (
	seq            INTEGER PRIMARY KEY,
	id             TEXT NOT NULL UNIQUE,
	event_type     TEXT NOT NULL,
	category       TEXT NOT NULL DEFAULT '',
	severity       TEXT NOT NULL,
	description    TEXT NOT NULL DEFAULT '',
	actor_type     TEXT NOT NULL,
	actor_id       TEXT NOT NULL DEFAULT '',
	actor_name     TEXT NOT NULL DEFAULT '',
	actor_metadata TEXT NOT NULL DEFAULT '',
	subject_kind   TEXT NOT NULL DEFAULT '',
	subject_id     TEXT NOT NULL DEFAULT '',
	subject_name   TEXT NOT NULL DEFAULT '',
	when_ts        INTEGER NOT NULL,
	space_id       TEXT NOT NULL DEFAULT '',
	project_id     TEXT NOT NULL DEFAULT '',
	component      TEXT NOT NULL DEFAULT '',
	reason         TEXT NOT NULL DEFAULT '',
	policy_id      TEXT NOT NULL DEFAULT '',
	request_id     TEXT NOT NULL DEFAULT '',
	ruleset_id     TEXT NOT NULL DEFAULT '',
	confidence     REAL NOT NULL DEFAULT 0,
	method         TEXT NOT NULL DEFAULT '',
	parameters     TEXT NOT NULL DEFAULT '',
	tools          TEXT NOT NULL DEFAULT '',
	model          TEXT NOT NULL DEFAULT '',
	steps          TEXT NOT NULL DEFAULT '',
	resource_usage TEXT NOT NULL DEFAULT '',
	tags           TEXT NOT NULL DEFAULT '',
	evidence       TEXT NOT NULL DEFAULT '',
	content_hash   TEXT NOT NULL,
	previous_hash  TEXT NOT NULL,
	algorithm      TEXT NOT NULL,
	hashed_at      INTEGER NOT NULL,
	flagged        INTEGER NOT NULL DEFAULT 0,
	flag_note      TEXT NOT NULL DEFAULT '',
	review_status  TEXT NOT NULL DEFAULT 'none'
);
CREATE INDEX IF NOT EXISTS idx_ledger_event_type ON ledger_entries(event_type);
CREATE INDEX IF NOT EXISTS idx_ledger_when ON ledger_entries(when_ts);
CREATE INDEX IF NOT EXISTS idx_ledger_space ON ledger_entries(space_id);
CREATE INDEX IF NOT EXISTS idx_ledger_flagged ON ledger_entries(flagged);
`

// SQLiteConfig configures the SQLite ledger backend.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// WALMode enables write-ahead logging.
	WALMode bool

	// BusyTimeout bounds how long a write waits on a locked database.
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() SQLiteConfig {
	return SQLiteConfig{
		WALMode:     true,
		BusyTimeout: 5 * time.Second,
	}
}

// SQLiteStorage persists the chain in a SQLite database.
type SQLiteStorage struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStorage opens or creates the database at cfg.Path and applies
// the schema.
func NewSQLiteStorage(cfg SQLiteConfig, logger *slog.Logger) (*SQLiteStorage, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite3", cfg.Path)
	if err != nil {
		return nil, ledger.NewStorageError(sqliteBackend, "open", err)
	}

	s := &SQLiteStorage{db: db, logger: logger}
	if err := s.initialize(cfg); err != nil {
		db.Close()
		return nil, err
	}

	logger.Debug("ledger storage opened",
		"backend", sqliteBackend,
		"path", cfg.Path,
		"wal_mode", cfg.WALMode)
	return s, nil
}

func (s *SQLiteStorage) initialize(cfg SQLiteConfig) error {
	if cfg.WALMode {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return ledger.NewStorageError(sqliteBackend, "enable_wal", err)
		}
	}

	busy := cfg.BusyTimeout
	if busy <= 0 {
		busy = 5 * time.Second
	}
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", busy.Milliseconds())); err != nil {
		return ledger.NewStorageError(sqliteBackend, "set_busy_timeout", err)
	}

	if _, err := s.db.Exec(sqliteSchema); err != nil {
		return ledger.NewStorageError(sqliteBackend, "create_schema", err)
	}
	return nil
}

// Append persists a fully-hashed entry. The seq primary key rejects
// duplicates.
func (s *SQLiteStorage) Append(ctx context.Context, entry *ledger.Entry) error {
	row, err := encodeEntry(entry)
	if err != nil {
		return ledger.NewStorageError(sqliteBackend, "encode", err)
	}

	next := sqlitePlaceholders()
	query := fmt.Sprintf("INSERT INTO ledger_entries (%s) VALUES (%s)",
		entryColumns, placeholderList(next, entryColumnCount))
	if _, err := s.db.ExecContext(ctx, query, row.args()...); err != nil {
		return ledger.NewStorageError(sqliteBackend, "append", err)
	}
	return nil
}

// Last returns the entry with the highest seq, or nil when empty.
func (s *SQLiteStorage) Last(ctx context.Context) (*ledger.Entry, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+entryColumns+" FROM ledger_entries ORDER BY seq DESC LIMIT 1")

	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, ledger.NewStorageError(sqliteBackend, "last", err)
	}
	return entry, nil
}

// Get returns the entry with the given ID.
func (s *SQLiteStorage) Get(ctx context.Context, id string) (*ledger.Entry, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+entryColumns+" FROM ledger_entries WHERE id = ?", id)

	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("entry %q: %w", id, ledger.ErrNotFound)
	}
	if err != nil {
		return nil, ledger.NewStorageError(sqliteBackend, "get", err)
	}
	return entry, nil
}

// Query returns entries matching a validated query.
func (s *SQLiteStorage) Query(ctx context.Context, q ledger.Query) ([]*ledger.Entry, error) {
	next := sqlitePlaceholders()
	where, args := buildFilter(q, next)

	query := "SELECT " + entryColumns + " FROM ledger_entries"
	if where != "" {
		query += " WHERE " + where
	}
	query += " " + orderClause(q)
	query += " LIMIT " + next() + " OFFSET " + next()
	args = append(args, q.Limit, q.Offset)

	return s.queryEntries(ctx, "query", query, args...)
}

// Count returns the total number of entries.
func (s *SQLiteStorage) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM ledger_entries").Scan(&count)
	if err != nil {
		return 0, ledger.NewStorageError(sqliteBackend, "count", err)
	}
	return count, nil
}

// SetAnnotations rewrites the flag and review annotations of one entry.
// The hashed payload columns are never touched.
func (s *SQLiteStorage) SetAnnotations(ctx context.Context, id string, flagged bool, note string, status ledger.ReviewStatus) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE ledger_entries
		SET flagged = ?, flag_note = ?, review_status = ?
		WHERE id = ?`,
		flagged, note, string(status), id)
	if err != nil {
		return ledger.NewStorageError(sqliteBackend, "set_annotations", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return ledger.NewStorageError(sqliteBackend, "set_annotations", err)
	}
	if affected == 0 {
		return fmt.Errorf("entry %q: %w", id, ledger.ErrNotFound)
	}
	return nil
}

// All returns every entry in ascending seq order.
func (s *SQLiteStorage) All(ctx context.Context) ([]*ledger.Entry, error) {
	return s.queryEntries(ctx, "all",
		"SELECT "+entryColumns+" FROM ledger_entries ORDER BY seq ASC")
}

// Close closes the database.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func (s *SQLiteStorage) queryEntries(ctx context.Context, op, query string, args ...interface{}) ([]*ledger.Entry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, ledger.NewStorageError(sqliteBackend, op, err)
	}
	defer rows.Close()

	var out []*ledger.Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, ledger.NewStorageError(sqliteBackend, op, err)
		}
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, ledger.NewStorageError(sqliteBackend, op, err)
	}
	return out, nil
}
