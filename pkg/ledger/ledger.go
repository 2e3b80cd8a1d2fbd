package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jaretmartin/symtex/pkg/telemetry/metrics"
)

// Storage persists ledger entries. Implementations never mutate a stored
// entry's hashed payload; SetAnnotations only touches the annotation
// columns that live outside the content hash.
type Storage interface {
	// Append persists a fully-hashed entry. Seq collisions are an error.
	Append(ctx context.Context, entry *Entry) error

	// Last returns the entry with the highest Seq, or nil when empty.
	Last(ctx context.Context) (*Entry, error)

	// Get returns the entry with the given ID, or ErrNotFound.
	Get(ctx context.Context, id string) (*Entry, error)

	// Query returns entries matching a validated query.
	Query(ctx context.Context, q Query) ([]*Entry, error)

	// Count returns the total number of entries.
	Count(ctx context.Context) (int64, error)

	// SetAnnotations rewrites the flag and review annotations of one entry.
	SetAnnotations(ctx context.Context, id string, flagged bool, note string, status ReviewStatus) error

	// All returns every entry in ascending Seq order, for verification
	// and export.
	All(ctx context.Context) ([]*Entry, error)

	// Close releases any underlying resources.
	Close() error
}

// Ledger is the append-only audit log. Appends are globally serialized so
// Seq is gapless and each entry links to the one before it.
type Ledger struct {
	storage Storage
	metrics *metrics.Collector
	logger  *slog.Logger

	// mu serializes seq assignment, hashing and persistence.
	mu sync.Mutex
}

// New creates a ledger on top of the given storage. A nil collector
// disables metrics.
func New(storage Storage, collector *metrics.Collector, logger *slog.Logger) (*Ledger, error) {
	if storage == nil {
		return nil, fmt.Errorf("storage is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{storage: storage, metrics: collector, logger: logger}, nil
}

// Append assigns the next sequence number to the draft, links and hashes
// it, and persists it. The draft's When is kept as the event time when
// set; otherwise the append time is used. Annotations on the draft are
// discarded: entries always start unflagged.
func (l *Ledger) Append(ctx context.Context, draft Entry) (*Entry, error) {
	if draft.EventType == "" {
		return nil, NewValidationError("event_type", "must not be empty")
	}
	if draft.Severity == "" {
		draft.Severity = SeverityInfo
	}
	if !draft.Severity.IsValid() {
		return nil, NewValidationError("severity", fmt.Sprintf("unknown severity %q", draft.Severity))
	}
	if draft.Who.Type == "" {
		draft.Who.Type = ActorSystem
	}
	if !draft.Who.Type.IsValid() {
		return nil, NewValidationError("who.type", fmt.Sprintf("unknown actor type %q", draft.Who.Type))
	}

	start := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	last, err := l.storage.Last(ctx)
	if err != nil {
		return nil, err
	}

	entry := draft.Clone()
	entry.ID = uuid.New().String()
	entry.Flagged = false
	entry.FlagNote = ""
	entry.ReviewStatus = ReviewNone

	if entry.When.IsZero() {
		entry.When = start.UTC()
	} else {
		entry.When = entry.When.UTC()
	}

	entry.Seq = 1
	entry.Crypto = CryptoRecord{
		PreviousHash: GenesisHash,
		Algorithm:    HashAlgorithm,
		HashedAt:     start.UTC(),
	}
	if last != nil {
		entry.Seq = last.Seq + 1
		entry.Crypto.PreviousHash = last.Crypto.ContentHash
	}

	hash, err := computeContentHash(entry)
	if err != nil {
		return nil, err
	}
	entry.Crypto.ContentHash = hash

	if err := l.storage.Append(ctx, entry); err != nil {
		return nil, err
	}

	duration := time.Since(start)
	if l.metrics != nil {
		l.metrics.RecordLedgerAppend(string(entry.EventType), duration)
	}
	l.logger.Debug("ledger entry appended",
		"seq", entry.Seq,
		"event_type", entry.EventType,
		"severity", entry.Severity,
		"duration_ms", duration.Milliseconds())

	return entry, nil
}

// VerifyChain walks every entry in sequence order, recomputing content
// hashes and checking previous-hash links. It stops at the first mismatch
// and returns an IntegrityError naming the sequence number, together with
// a result counting how many entries passed before the break.
func (l *Ledger) VerifyChain(ctx context.Context) (*VerifyResult, error) {
	start := time.Now()

	entries, err := l.storage.All(ctx)
	if err != nil {
		return nil, err
	}

	result := &VerifyResult{}
	previousHash := GenesisHash
	var expectedSeq int64 = 1

	for _, entry := range entries {
		if entry.Seq != expectedSeq {
			return l.verifyFailed(result, NewIntegrityError(entry.Seq, "seq",
				fmt.Sprintf("%d", expectedSeq), fmt.Sprintf("%d", entry.Seq)))
		}
		if entry.Crypto.PreviousHash != previousHash {
			return l.verifyFailed(result, NewIntegrityError(entry.Seq, "previous_hash",
				previousHash, entry.Crypto.PreviousHash))
		}
		recomputed, err := computeContentHash(entry)
		if err != nil {
			return nil, err
		}
		if recomputed != entry.Crypto.ContentHash {
			return l.verifyFailed(result, NewIntegrityError(entry.Seq, "content_hash",
				recomputed, entry.Crypto.ContentHash))
		}

		result.Checked++
		previousHash = entry.Crypto.ContentHash
		expectedSeq++
	}

	result.Valid = true
	l.logger.Info("ledger chain verified",
		"checked", result.Checked,
		"duration_ms", time.Since(start).Milliseconds())
	return result, nil
}

func (l *Ledger) verifyFailed(result *VerifyResult, ierr *IntegrityError) (*VerifyResult, error) {
	if l.metrics != nil {
		l.metrics.RecordVerificationFailure()
	}
	l.logger.Error("ledger chain verification failed",
		"seq", ierr.Seq,
		"field", ierr.Field,
		"checked", result.Checked)
	return result, ierr
}

// Query returns entries matching q. Malformed queries fail closed with a
// ValidationError before any storage access.
func (l *Ledger) Query(ctx context.Context, q Query) ([]*Entry, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	q.ApplyDefaults()
	return l.storage.Query(ctx, q)
}

// Get returns the entry with the given ID.
func (l *Ledger) Get(ctx context.Context, id string) (*Entry, error) {
	return l.storage.Get(ctx, id)
}

// Count returns the total number of entries.
func (l *Ledger) Count(ctx context.Context) (int64, error) {
	return l.storage.Count(ctx)
}

// All returns every entry in ascending sequence order.
func (l *Ledger) All(ctx context.Context) ([]*Entry, error) {
	return l.storage.All(ctx)
}

// Flag marks an entry for review. The annotation lives outside the hashed
// payload, so the chain stays valid; the flag action itself is recorded as
// a new entry_flagged entry.
func (l *Ledger) Flag(ctx context.Context, id, note string) (*Entry, error) {
	entry, err := l.storage.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := l.storage.SetAnnotations(ctx, id, true, note, ReviewOpen); err != nil {
		return nil, err
	}

	if _, err := l.Append(ctx, Entry{
		EventType:   EventEntryFlagged,
		Category:    CategoryReview,
		Severity:    SeverityNotice,
		Description: fmt.Sprintf("ledger entry %d flagged for review", entry.Seq),
		Who:         Actor{Type: ActorSystem, ID: "ledger"},
		What:        Subject{Kind: "ledger_entry", ID: id},
		Why:         Rationale{Reason: note},
	}); err != nil {
		return nil, err
	}

	return l.storage.Get(ctx, id)
}

// SetReviewStatus updates the review annotation of a flagged entry and
// records the change as an entry_flagged entry.
func (l *Ledger) SetReviewStatus(ctx context.Context, id string, status ReviewStatus) (*Entry, error) {
	if !status.IsValid() {
		return nil, NewValidationError("review_status", fmt.Sprintf("unknown status %q", status))
	}

	entry, err := l.storage.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := l.storage.SetAnnotations(ctx, id, entry.Flagged, entry.FlagNote, status); err != nil {
		return nil, err
	}

	if _, err := l.Append(ctx, Entry{
		EventType:   EventEntryFlagged,
		Category:    CategoryReview,
		Severity:    SeverityInfo,
		Description: fmt.Sprintf("review status of ledger entry %d set to %s", entry.Seq, status),
		Who:         Actor{Type: ActorSystem, ID: "ledger"},
		What:        Subject{Kind: "ledger_entry", ID: id},
	}); err != nil {
		return nil, err
	}

	return l.storage.Get(ctx, id)
}

// Close closes the underlying storage.
func (l *Ledger) Close() error {
	return l.storage.Close()
}
