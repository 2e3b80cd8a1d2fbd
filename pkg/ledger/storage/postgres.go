package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq"

	"github.com/jaretmartin/symtex/pkg/ledger"
)

const postgresBackend = "postgres"

const postgresSchema = `
CREATE TABLE IF NOT EXISTS ledger_entries (
	seq            BIGINT PRIMARY KEY,
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
	when_ts        BIGINT NOT NULL,
	space_id       TEXT NOT NULL DEFAULT '',
	project_id     TEXT NOT NULL DEFAULT '',
	component      TEXT NOT NULL DEFAULT '',
	reason         TEXT NOT NULL DEFAULT '',
	policy_id      TEXT NOT NULL DEFAULT '',
	request_id     TEXT NOT NULL DEFAULT '',
	ruleset_id     TEXT NOT NULL DEFAULT '',
	confidence     DOUBLE PRECISION NOT NULL DEFAULT 0,
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
	hashed_at      BIGINT NOT NULL,
	flagged        BOOLEAN NOT NULL DEFAULT FALSE,
	flag_note      TEXT NOT NULL DEFAULT '',
	review_status  TEXT NOT NULL DEFAULT 'none'
);
CREATE INDEX IF NOT EXISTS idx_ledger_event_type ON ledger_entries(event_type);
CREATE INDEX IF NOT EXISTS idx_ledger_when ON ledger_entries(when_ts);
CREATE INDEX IF NOT EXISTS idx_ledger_space ON ledger_entries(space_id);
CREATE INDEX IF NOT EXISTS idx_ledger_flagged ON ledger_entries(flagged);
`

// PostgresStorage persists the chain in Postgres, for deployments where
// several components share one audit log.
type PostgresStorage struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresStorage connects to the database at dsn, verifies the
// connection and applies the schema.
func NewPostgresStorage(dsn string, logger *slog.Logger) (*PostgresStorage, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, ledger.NewStorageError(postgresBackend, "open", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, ledger.NewStorageError(postgresBackend, "ping", err)
	}
	if _, err := db.Exec(postgresSchema); err != nil {
		db.Close()
		return nil, ledger.NewStorageError(postgresBackend, "create_schema", err)
	}

	logger.Debug("ledger storage opened", "backend", postgresBackend)
	return &PostgresStorage{db: db, logger: logger}, nil
}

// Append persists a fully-hashed entry.
func (s *PostgresStorage) Append(ctx context.Context, entry *ledger.Entry) error {
	row, err := encodeEntry(entry)
	if err != nil {
		return ledger.NewStorageError(postgresBackend, "encode", err)
	}

	next := postgresPlaceholders()
	query := fmt.Sprintf("INSERT INTO ledger_entries (%s) VALUES (%s)",
		entryColumns, placeholderList(next, entryColumnCount))
	if _, err := s.db.ExecContext(ctx, query, row.args()...); err != nil {
		return ledger.NewStorageError(postgresBackend, "append", err)
	}
	return nil
}

// Last returns the entry with the highest seq, or nil when empty.
func (s *PostgresStorage) Last(ctx context.Context) (*ledger.Entry, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+entryColumns+" FROM ledger_entries ORDER BY seq DESC LIMIT 1")

	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, ledger.NewStorageError(postgresBackend, "last", err)
	}
	return entry, nil
}

// Get returns the entry with the given ID.
func (s *PostgresStorage) Get(ctx context.Context, id string) (*ledger.Entry, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+entryColumns+" FROM ledger_entries WHERE id = $1", id)

	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("entry %q: %w", id, ledger.ErrNotFound)
	}
	if err != nil {
		return nil, ledger.NewStorageError(postgresBackend, "get", err)
	}
	return entry, nil
}

// Query returns entries matching a validated query.
func (s *PostgresStorage) Query(ctx context.Context, q ledger.Query) ([]*ledger.Entry, error) {
	next := postgresPlaceholders()
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
func (s *PostgresStorage) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM ledger_entries").Scan(&count)
	if err != nil {
		return 0, ledger.NewStorageError(postgresBackend, "count", err)
	}
	return count, nil
}

// SetAnnotations rewrites the flag and review annotations of one entry.
func (s *PostgresStorage) SetAnnotations(ctx context.Context, id string, flagged bool, note string, status ledger.ReviewStatus) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE ledger_entries
		SET flagged = $1, flag_note = $2, review_status = $3
		WHERE id = $4`,
		flagged, note, string(status), id)
	if err != nil {
		return ledger.NewStorageError(postgresBackend, "set_annotations", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return ledger.NewStorageError(postgresBackend, "set_annotations", err)
	}
	if affected == 0 {
		return fmt.Errorf("entry %q: %w", id, ledger.ErrNotFound)
	}
	return nil
}

// All returns every entry in ascending seq order.
func (s *PostgresStorage) All(ctx context.Context) ([]*ledger.Entry, error) {
	return s.queryEntries(ctx, "all",
		"SELECT "+entryColumns+" FROM ledger_entries ORDER BY seq ASC")
}

// Close closes the database.
func (s *PostgresStorage) Close() error {
	return s.db.Close()
}

func (s *PostgresStorage) queryEntries(ctx context.Context, op, query string, args ...interface{}) ([]*ledger.Entry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, ledger.NewStorageError(postgresBackend, op, err)
	}
	defer rows.Close()

	var out []*ledger.Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, ledger.NewStorageError(postgresBackend, op, err)
		}
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, ledger.NewStorageError(postgresBackend, op, err)
	}
	return out, nil
}
