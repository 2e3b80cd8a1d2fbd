package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/jaretmartin/symtex/pkg/ledger"
)

// MemoryStorage keeps the chain in a slice ordered by Seq, with an ID
// index for annotation lookups. It is meant for tests, examples and
// short-lived embedded use; nothing survives a restart.
type MemoryStorage struct {
	mu      sync.RWMutex
	entries []*ledger.Entry
	byID    map[string]*ledger.Entry
}

// NewMemoryStorage creates an empty in-memory backend.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{byID: make(map[string]*ledger.Entry)}
}

// Append persists a fully-hashed entry.
func (s *MemoryStorage) Append(ctx context.Context, entry *ledger.Entry) error {
	if entry == nil || entry.ID == "" {
		return fmt.Errorf("ledger entry must have an ID")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var wantSeq int64 = 1
	if len(s.entries) > 0 {
		wantSeq = s.entries[len(s.entries)-1].Seq + 1
	}
	if entry.Seq != wantSeq {
		return fmt.Errorf("ledger entry seq %d out of order, next is %d", entry.Seq, wantSeq)
	}
	if _, exists := s.byID[entry.ID]; exists {
		return fmt.Errorf("ledger entry %q already exists", entry.ID)
	}

	stored := entry.Clone()
	s.entries = append(s.entries, stored)
	s.byID[stored.ID] = stored
	return nil
}

// Last returns the newest entry, or nil when the ledger is empty.
func (s *MemoryStorage) Last(ctx context.Context) (*ledger.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.entries) == 0 {
		return nil, nil
	}
	return s.entries[len(s.entries)-1].Clone(), nil
}

// Get returns the entry with the given ID.
func (s *MemoryStorage) Get(ctx context.Context, id string) (*ledger.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("entry %q: %w", id, ledger.ErrNotFound)
	}
	return entry.Clone(), nil
}

// Query returns entries matching a validated query.
func (s *MemoryStorage) Query(ctx context.Context, q ledger.Query) ([]*ledger.Entry, error) {
	s.mu.RLock()
	var matched []*ledger.Entry
	for _, entry := range s.entries {
		if matchesQuery(entry, q) {
			matched = append(matched, entry.Clone())
		}
	}
	s.mu.RUnlock()

	sortEntries(matched, q)

	if q.Offset >= len(matched) {
		return nil, nil
	}
	matched = matched[q.Offset:]
	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}
	return matched, nil
}

// Count returns the total number of entries.
func (s *MemoryStorage) Count(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.entries)), nil
}

// SetAnnotations rewrites the flag and review annotations of one entry.
func (s *MemoryStorage) SetAnnotations(ctx context.Context, id string, flagged bool, note string, status ledger.ReviewStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("entry %q: %w", id, ledger.ErrNotFound)
	}
	entry.Flagged = flagged
	entry.FlagNote = note
	entry.ReviewStatus = status
	return nil
}

// All returns every entry in ascending Seq order.
func (s *MemoryStorage) All(ctx context.Context) ([]*ledger.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*ledger.Entry, len(s.entries))
	for i, entry := range s.entries {
		out[i] = entry.Clone()
	}
	return out, nil
}

// Close is a no-op for the in-memory backend.
func (s *MemoryStorage) Close() error {
	return nil
}

func matchesQuery(e *ledger.Entry, q ledger.Query) bool {
	if len(q.ActorTypes) > 0 && !containsActorType(q.ActorTypes, e.Who.Type) {
		return false
	}
	if len(q.Categories) > 0 && !containsString(q.Categories, e.Category) {
		return false
	}
	if len(q.Severities) > 0 && !containsSeverity(q.Severities, e.Severity) {
		return false
	}
	if len(q.EventTypes) > 0 && !containsEventType(q.EventTypes, e.EventType) {
		return false
	}
	if q.SpaceID != "" && e.Where.SpaceID != q.SpaceID {
		return false
	}
	if q.ProjectID != "" && e.Where.ProjectID != q.ProjectID {
		return false
	}
	if q.FlaggedOnly && !e.Flagged {
		return false
	}
	if q.Search != "" && !matchesSearch(e, q.Search) {
		return false
	}
	if q.From != nil && e.When.Before(*q.From) {
		return false
	}
	if q.To != nil && e.When.After(*q.To) {
		return false
	}
	return true
}

func matchesSearch(e *ledger.Entry, search string) bool {
	needle := strings.ToLower(search)
	if strings.Contains(strings.ToLower(e.Description), needle) {
		return true
	}
	if strings.Contains(strings.ToLower(e.Who.Name), needle) {
		return true
	}
	for _, tag := range e.Tags {
		if strings.Contains(strings.ToLower(tag), needle) {
			return true
		}
	}
	return false
}

// sortEntries orders entries like the SQL backends do: by the requested
// field in the requested direction, with ties always ascending by seq.
func sortEntries(entries []*ledger.Entry, q ledger.Query) {
	desc := q.SortOrder == ledger.SortDesc

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]

		switch q.SortBy {
		case ledger.SortByWhen:
			if !a.When.Equal(b.When) {
				if desc {
					return a.When.After(b.When)
				}
				return a.When.Before(b.When)
			}
		case ledger.SortBySeverity:
			if a.Severity.Rank() != b.Severity.Rank() {
				if desc {
					return a.Severity.Rank() > b.Severity.Rank()
				}
				return a.Severity.Rank() < b.Severity.Rank()
			}
		case ledger.SortByCategory:
			if a.Category != b.Category {
				if desc {
					return a.Category > b.Category
				}
				return a.Category < b.Category
			}
		default:
			if desc {
				return a.Seq > b.Seq
			}
			return a.Seq < b.Seq
		}

		return a.Seq < b.Seq
	})
}

func containsActorType(haystack []ledger.ActorType, needle ledger.ActorType) bool {
	for _, v := range haystack {
		if v == needle {
			return true
		}
	}
	return false
}

func containsString(haystack []string, needle string) bool {
	for _, v := range haystack {
		if v == needle {
			return true
		}
	}
	return false
}

func containsSeverity(haystack []ledger.Severity, needle ledger.Severity) bool {
	for _, v := range haystack {
		if v == needle {
			return true
		}
	}
	return false
}

func containsEventType(haystack []ledger.EventType, needle ledger.EventType) bool {
	for _, v := range haystack {
		if v == needle {
			return true
		}
	}
	return false
}
