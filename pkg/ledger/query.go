package ledger

import (
	"fmt"
	"time"
)

// SortField names the orderings a query may ask for.
type SortField string

const (
	SortBySeq      SortField = "seq"
	SortByWhen     SortField = "when"
	SortBySeverity SortField = "severity"
	SortByCategory SortField = "category"
)

// SortOrder is the direction of a sort.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

const (
	// DefaultLimit applies when a query does not set one.
	DefaultLimit = 100

	// MaxLimit caps a single query; larger requests fail validation.
	MaxLimit = 1000
)

var validSortFields = map[SortField]bool{
	SortBySeq:      true,
	SortByWhen:     true,
	SortBySeverity: true,
	SortByCategory: true,
}

// Query filters and pages ledger entries. Zero values mean "any".
// Malformed queries fail closed: Validate rejects them before any
// storage access, so a bad filter never returns partial results.
type Query struct {
	ActorTypes []ActorType `json:"actor_types,omitempty"`
	Categories []string    `json:"categories,omitempty"`
	Severities []Severity  `json:"severities,omitempty"`
	EventTypes []EventType `json:"event_types,omitempty"`

	SpaceID   string `json:"space_id,omitempty"`
	ProjectID string `json:"project_id,omitempty"`

	// FlaggedOnly restricts results to annotated entries.
	FlaggedOnly bool `json:"flagged_only,omitempty"`

	// Search is a case-insensitive substring match over description,
	// actor name and tags.
	Search string `json:"search,omitempty"`

	From *time.Time `json:"from,omitempty"`
	To   *time.Time `json:"to,omitempty"`

	SortBy    SortField `json:"sort_by,omitempty"`
	SortOrder SortOrder `json:"sort_order,omitempty"`

	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// Validate rejects malformed queries.
func (q *Query) Validate() error {
	if q.Limit < 0 {
		return NewValidationError("limit", fmt.Sprintf("must be >= 0, got %d", q.Limit))
	}
	if q.Limit > MaxLimit {
		return NewValidationError("limit", fmt.Sprintf("must be <= %d, got %d", MaxLimit, q.Limit))
	}
	if q.Offset < 0 {
		return NewValidationError("offset", fmt.Sprintf("must be >= 0, got %d", q.Offset))
	}
	if q.SortBy != "" && !validSortFields[q.SortBy] {
		return NewValidationError("sort_by", fmt.Sprintf("unknown sort field %q", q.SortBy))
	}
	if q.SortOrder != "" && q.SortOrder != SortAsc && q.SortOrder != SortDesc {
		return NewValidationError("sort_order", fmt.Sprintf("%q is not 'asc' or 'desc'", q.SortOrder))
	}
	for _, at := range q.ActorTypes {
		if !at.IsValid() {
			return NewValidationError("actor_types", fmt.Sprintf("unknown actor type %q", at))
		}
	}
	for _, sev := range q.Severities {
		if !sev.IsValid() {
			return NewValidationError("severities", fmt.Sprintf("unknown severity %q", sev))
		}
	}
	if q.From != nil && q.To != nil && q.From.After(*q.To) {
		return NewValidationError("time_range", "from is after to")
	}
	return nil
}

// ApplyDefaults fills in the limit and sort when unset. The default view
// is newest first.
func (q *Query) ApplyDefaults() {
	if q.Limit == 0 {
		q.Limit = DefaultLimit
	}
	if q.SortBy == "" {
		q.SortBy = SortBySeq
	}
	if q.SortOrder == "" {
		q.SortOrder = SortDesc
	}
}
