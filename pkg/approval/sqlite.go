package approval

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "modernc.org/sqlite" // pure-Go sqlite driver

	"github.com/jaretmartin/symtex/pkg/policy"
)

const sqliteBackend = "sqlite"

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS approval_requests (
	id               TEXT PRIMARY KEY,
	action_type      TEXT NOT NULL,
	action_summary   TEXT NOT NULL,
	context          TEXT,
	policy_id        TEXT NOT NULL,
	risk_level       TEXT NOT NULL,
	status           TEXT NOT NULL,
	requestor        TEXT,
	approvers        TEXT NOT NULL,
	escalation_level INTEGER NOT NULL DEFAULT 0,
	created_at       INTEGER NOT NULL,
	expires_at       INTEGER,
	decided_at       INTEGER,
	decided_by       TEXT,
	reason           TEXT,
	modification     TEXT,
	rerun_count      INTEGER NOT NULL DEFAULT 0,
	expired_reason   TEXT
);
CREATE INDEX IF NOT EXISTS idx_approval_requests_status ON approval_requests(status);
CREATE INDEX IF NOT EXISTS idx_approval_requests_expires ON approval_requests(expires_at);
`

const requestColumns = `id, action_type, action_summary, context, policy_id, risk_level, status,
	requestor, approvers, escalation_level, created_at, expires_at, decided_at,
	decided_by, reason, modification, rerun_count, expired_reason`

// SQLiteConfig configures the SQLite-backed store.
type SQLiteConfig struct {
	// Path is the database file. Required.
	Path string
	// BusyTimeout bounds how long a write waits on a locked database.
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns sensible defaults for a local store.
func DefaultSQLiteConfig() SQLiteConfig {
	return SQLiteConfig{BusyTimeout: 5 * time.Second}
}

// SQLiteStore persists approval requests in a SQLite database so pending
// approvals survive restarts. Concurrent transitions are resolved with
// optimistic writes conditioned on the status the caller saw.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens or creates the database at cfg.Path.
func NewSQLiteStore(cfg SQLiteConfig, logger *slog.Logger) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	busy := cfg.BusyTimeout
	if busy <= 0 {
		busy = 5 * time.Second
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=%d&_synchronous=NORMAL", cfg.Path, busy.Milliseconds())
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, NewStorageError(sqliteBackend, "open", err)
	}

	// Serialize writers at the pool level; SQLite allows one anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, NewStorageError(sqliteBackend, "migrate", err)
	}

	logger.Debug("approval store opened", "backend", sqliteBackend, "path", cfg.Path)
	return &SQLiteStore{db: db, logger: logger}, nil
}

// Create persists a new request.
func (s *SQLiteStore) Create(ctx context.Context, req *Request) error {
	if req == nil || req.ID == "" {
		return fmt.Errorf("approval request must have an ID")
	}
	row, err := encodeRequest(req)
	if err != nil {
		return NewStorageError(sqliteBackend, "encode", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO approval_requests (`+requestColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		row.id, row.actionType, row.actionSummary, row.context, row.policyID,
		row.riskLevel, row.status, row.requestor, row.approvers, row.escalationLevel,
		row.createdAt, row.expiresAt, row.decidedAt, row.decidedBy, row.reason,
		row.modification, row.rerunCount, row.expiredReason)
	if err != nil {
		return NewStorageError(sqliteBackend, "create", err)
	}
	return nil
}

// Get returns the request with the given ID.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Request, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+requestColumns+`
		FROM approval_requests WHERE id = ?`, id)

	req, err := scanRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("request %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, NewStorageError(sqliteBackend, "get", err)
	}
	return req, nil
}

// Transition atomically applies a change to a request in the from state.
// The write is conditioned on the status still being from; if another
// caller transitioned the row in between, a StateTransitionError with
// the winning status is returned.
func (s *SQLiteStore) Transition(ctx context.Context, id string, from Status, apply func(*Request) error) (*Request, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status != from {
		return nil, NewStateTransitionError(id, current.Status, "")
	}

	next := current.Clone()
	if err := apply(next); err != nil {
		return nil, err
	}
	row, err := encodeRequest(next)
	if err != nil {
		return nil, NewStorageError(sqliteBackend, "encode", err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE approval_requests
		SET status = ?, approvers = ?, escalation_level = ?, expires_at = ?,
		    decided_at = ?, decided_by = ?, reason = ?, modification = ?,
		    rerun_count = ?, expired_reason = ?
		WHERE id = ? AND status = ?`,
		row.status, row.approvers, row.escalationLevel, row.expiresAt,
		row.decidedAt, row.decidedBy, row.reason, row.modification,
		row.rerunCount, row.expiredReason,
		id, string(from))
	if err != nil {
		return nil, NewStorageError(sqliteBackend, "transition", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, NewStorageError(sqliteBackend, "transition", err)
	}
	if affected == 0 {
		// Somebody else won the race between our read and our write.
		winner, gerr := s.Get(ctx, id)
		if gerr != nil {
			return nil, gerr
		}
		return nil, NewStateTransitionError(id, winner.Status, "")
	}
	return next, nil
}

// ListPending returns pending requests, oldest first.
func (s *SQLiteStore) ListPending(ctx context.Context, olderThan *time.Time) ([]*Request, error) {
	query := `SELECT ` + requestColumns + ` FROM approval_requests WHERE status = ?`
	args := []interface{}{string(StatusPending)}
	if olderThan != nil {
		query += ` AND expires_at IS NOT NULL AND expires_at <= ?`
		args = append(args, olderThan.UnixNano())
	}
	query += ` ORDER BY created_at ASC, id ASC`

	return s.queryRequests(ctx, "list_pending", query, args...)
}

// List returns requests matching the filter, newest first.
func (s *SQLiteStore) List(ctx context.Context, filter Filter) ([]*Request, error) {
	var conditions []string
	var args []interface{}
	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.Requestor != "" {
		conditions = append(conditions, "requestor = ?")
		args = append(args, filter.Requestor)
	}
	if filter.PolicyID != "" {
		conditions = append(conditions, "policy_id = ?")
		args = append(args, filter.PolicyID)
	}

	query := `SELECT ` + requestColumns + ` FROM approval_requests`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	query += ` ORDER BY created_at DESC, id ASC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	return s.queryRequests(ctx, "list", query, args...)
}

// Update rewrites the approver set, escalation level and deadline of a
// request that is still pending.
func (s *SQLiteStore) Update(ctx context.Context, req *Request) error {
	if req == nil || req.ID == "" {
		return fmt.Errorf("approval request must have an ID")
	}
	row, err := encodeRequest(req)
	if err != nil {
		return NewStorageError(sqliteBackend, "encode", err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE approval_requests
		SET approvers = ?, escalation_level = ?, expires_at = ?
		WHERE id = ? AND status = ?`,
		row.approvers, row.escalationLevel, row.expiresAt,
		req.ID, string(StatusPending))
	if err != nil {
		return NewStorageError(sqliteBackend, "update", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return NewStorageError(sqliteBackend, "update", err)
	}
	if affected == 0 {
		current, gerr := s.Get(ctx, req.ID)
		if gerr != nil {
			return gerr
		}
		return NewStateTransitionError(req.ID, current.Status, "")
	}
	return nil
}

// IncrementRerun bumps the rerun counter of an approved request.
func (s *SQLiteStore) IncrementRerun(ctx context.Context, id string) (*Request, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE approval_requests
		SET rerun_count = rerun_count + 1
		WHERE id = ? AND status = ?`,
		id, string(StatusApproved))
	if err != nil {
		return nil, NewStorageError(sqliteBackend, "increment_rerun", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, NewStorageError(sqliteBackend, "increment_rerun", err)
	}
	if affected == 0 {
		current, gerr := s.Get(ctx, id)
		if gerr != nil {
			return nil, gerr
		}
		return nil, NewStateTransitionError(id, current.Status, "")
	}
	return s.Get(ctx, id)
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) queryRequests(ctx context.Context, op, query string, args ...interface{}) ([]*Request, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, NewStorageError(sqliteBackend, op, err)
	}
	defer rows.Close()

	var out []*Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, NewStorageError(sqliteBackend, op, err)
		}
		out = append(out, req)
	}
	if err := rows.Err(); err != nil {
		return nil, NewStorageError(sqliteBackend, op, err)
	}
	return out, nil
}

// requestRow is the flattened, SQL-typed form of a Request.
type requestRow struct {
	id              string
	actionType      string
	actionSummary   string
	context         sql.NullString
	policyID        string
	riskLevel       string
	status          string
	requestor       sql.NullString
	approvers       string
	escalationLevel int
	createdAt       int64
	expiresAt       sql.NullInt64
	decidedAt       sql.NullInt64
	decidedBy       sql.NullString
	reason          sql.NullString
	modification    sql.NullString
	rerunCount      int
	expiredReason   sql.NullString
}

func encodeRequest(req *Request) (*requestRow, error) {
	approvers, err := json.Marshal(req.Approvers)
	if err != nil {
		return nil, fmt.Errorf("marshal approvers: %w", err)
	}
	row := &requestRow{
		id:              req.ID,
		actionType:      req.ActionType,
		actionSummary:   req.ActionSummary,
		policyID:        req.PolicyID,
		riskLevel:       string(req.RiskLevel),
		status:          string(req.Status),
		requestor:       nullString(req.Requestor),
		approvers:       string(approvers),
		escalationLevel: req.EscalationLevel,
		createdAt:       req.CreatedAt.UnixNano(),
		decidedBy:       nullString(req.DecidedBy),
		reason:          nullString(req.Reason),
		rerunCount:      req.RerunCount,
		expiredReason:   nullString(req.ExpiredReason),
	}
	if req.Context != nil {
		data, err := json.Marshal(req.Context)
		if err != nil {
			return nil, fmt.Errorf("marshal context: %w", err)
		}
		row.context = sql.NullString{String: string(data), Valid: true}
	}
	if req.Modification != nil {
		data, err := json.Marshal(req.Modification)
		if err != nil {
			return nil, fmt.Errorf("marshal modification: %w", err)
		}
		row.modification = sql.NullString{String: string(data), Valid: true}
	}
	if req.ExpiresAt != nil {
		row.expiresAt = sql.NullInt64{Int64: req.ExpiresAt.UnixNano(), Valid: true}
	}
	if req.DecidedAt != nil {
		row.decidedAt = sql.NullInt64{Int64: req.DecidedAt.UnixNano(), Valid: true}
	}
	return row, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRequest(scanner rowScanner) (*Request, error) {
	var row requestRow
	err := scanner.Scan(
		&row.id, &row.actionType, &row.actionSummary, &row.context, &row.policyID,
		&row.riskLevel, &row.status, &row.requestor, &row.approvers, &row.escalationLevel,
		&row.createdAt, &row.expiresAt, &row.decidedAt, &row.decidedBy, &row.reason,
		&row.modification, &row.rerunCount, &row.expiredReason)
	if err != nil {
		return nil, err
	}

	req := &Request{
		ID:              row.id,
		ActionType:      row.actionType,
		ActionSummary:   row.actionSummary,
		PolicyID:        row.policyID,
		RiskLevel:       policy.RiskLevel(row.riskLevel),
		Status:          Status(row.status),
		Requestor:       row.requestor.String,
		EscalationLevel: row.escalationLevel,
		CreatedAt:       time.Unix(0, row.createdAt).UTC(),
		DecidedBy:       row.decidedBy.String,
		Reason:          row.reason.String,
		RerunCount:      row.rerunCount,
		ExpiredReason:   row.expiredReason.String,
	}
	if err := json.Unmarshal([]byte(row.approvers), &req.Approvers); err != nil {
		return nil, fmt.Errorf("unmarshal approvers: %w", err)
	}
	if row.context.Valid {
		if err := json.Unmarshal([]byte(row.context.String), &req.Context); err != nil {
			return nil, fmt.Errorf("unmarshal context: %w", err)
		}
	}
	if row.modification.Valid {
		if err := json.Unmarshal([]byte(row.modification.String), &req.Modification); err != nil {
			return nil, fmt.Errorf("unmarshal modification: %w", err)
		}
	}
	if row.expiresAt.Valid {
		t := time.Unix(0, row.expiresAt.Int64).UTC()
		req.ExpiresAt = &t
	}
	if row.decidedAt.Valid {
		t := time.Unix(0, row.decidedAt.Int64).UTC()
		req.DecidedAt = &t
	}
	return req, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
