package ledger

import "time"

// ActorType identifies what kind of principal performed an event.
type ActorType string

const (
	ActorCognate ActorType = "cognate"
	ActorUser    ActorType = "user"
	ActorSystem  ActorType = "system"
)

// IsValid reports whether the actor type is part of the known set.
func (t ActorType) IsValid() bool {
	switch t {
	case ActorCognate, ActorUser, ActorSystem:
		return true
	}
	return false
}

// Severity grades how serious an event is.
type Severity string

const (
	SeverityDebug    Severity = "debug"
	SeverityInfo     Severity = "info"
	SeverityNotice   Severity = "notice"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

var severityRanks = map[Severity]int{
	SeverityDebug:    0,
	SeverityInfo:     1,
	SeverityNotice:   2,
	SeverityWarning:  3,
	SeverityError:    4,
	SeverityCritical: 5,
}

// Rank returns the severity's position in the debug < info < notice <
// warning < error < critical ordering, or -1 for unknown values.
func (s Severity) Rank() int {
	if rank, ok := severityRanks[s]; ok {
		return rank
	}
	return -1
}

// IsValid reports whether the severity is part of the known set.
func (s Severity) IsValid() bool {
	_, ok := severityRanks[s]
	return ok
}

// EventType names what happened. The governor emits the types below;
// embedding applications may append their own.
type EventType string

const (
	EventActionAllowed     EventType = "action_allowed"
	EventActionDenied      EventType = "action_denied"
	EventApprovalRequested EventType = "approval_requested"
	EventApprovalGranted   EventType = "approval_granted"
	EventApprovalRejected  EventType = "approval_rejected"
	EventApprovalModified  EventType = "approval_modified"
	EventApprovalExpired   EventType = "approval_expired"
	EventApprovalRerun     EventType = "approval_rerun"
	EventRunCompleted      EventType = "run_completed"
	EventRunFailed         EventType = "run_failed"
	EventRuleSetCompiled   EventType = "ruleset_compiled"
	EventEntryFlagged      EventType = "entry_flagged"
)

// Categories group event types for filtering.
const (
	CategoryAction   = "action"
	CategoryApproval = "approval"
	CategoryRun      = "run"
	CategoryRuleSet  = "ruleset"
	CategoryReview   = "review"
)

// ReviewStatus tracks the human follow-up on a flagged entry.
type ReviewStatus string

const (
	ReviewNone     ReviewStatus = "none"
	ReviewOpen     ReviewStatus = "open"
	ReviewResolved ReviewStatus = "resolved"
)

// IsValid reports whether the review status is part of the known set.
func (s ReviewStatus) IsValid() bool {
	switch s {
	case ReviewNone, ReviewOpen, ReviewResolved:
		return true
	}
	return false
}

// Actor is the who of an entry.
type Actor struct {
	Type     ActorType         `json:"type"`
	ID       string            `json:"id"`
	Name     string            `json:"name,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Subject is the what: the thing the event acted on.
type Subject struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// Origin is the where: which space, project and component the event
// originated from.
type Origin struct {
	SpaceID   string `json:"space_id,omitempty"`
	ProjectID string `json:"project_id,omitempty"`
	Component string `json:"component,omitempty"`
}

// Rationale is the why, linking the event back to the policy, approval
// request or rule set that caused it. Confidence is the acting cognate's
// own certainty in the rationale, 0 to 1; zero means unreported.
type Rationale struct {
	Reason     string  `json:"reason,omitempty"`
	PolicyID   string  `json:"policy_id,omitempty"`
	RequestID  string  `json:"request_id,omitempty"`
	RuleSetID  string  `json:"ruleset_id,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

// Mechanism is the how: the method used, its parameters, and the detail of
// the execution — which tools ran, which model reasoned, the ordered steps
// taken and what resources the run consumed (keyed by resource name,
// e.g. "tokens", "api_calls", "usd").
type Mechanism struct {
	Method        string                 `json:"method,omitempty"`
	Parameters    map[string]interface{} `json:"parameters,omitempty"`
	Tools         []string               `json:"tools,omitempty"`
	Model         string                 `json:"model,omitempty"`
	Steps         []string               `json:"steps,omitempty"`
	ResourceUsage map[string]float64     `json:"resource_usage,omitempty"`
}

// Attachment references supporting evidence captured alongside an entry.
// The body lives outside the ledger; Digest (hex sha256 of the body) binds
// it into the entry's hashed payload so a swapped file is detectable.
type Attachment struct {
	Name      string `json:"name"`
	MediaType string `json:"media_type,omitempty"`
	URI       string `json:"uri,omitempty"`
	Digest    string `json:"digest,omitempty"`
}

// CryptoRecord carries the hash-chain material of an entry.
type CryptoRecord struct {
	// ContentHash is the hex sha256 of the entry's canonical payload,
	// which includes PreviousHash, so every hash commits to the whole
	// chain before it.
	ContentHash string `json:"content_hash"`
	// PreviousHash is the prior entry's ContentHash, or GenesisHash for
	// the first entry.
	PreviousHash string    `json:"previous_hash"`
	Algorithm    string    `json:"algorithm"`
	HashedAt     time.Time `json:"hashed_at"`
}

// Entry is one immutable audit record. Flagged, FlagNote and ReviewStatus
// are mutable annotations that live outside the hashed payload; everything
// else is covered by Crypto.ContentHash and never changes after Append.
type Entry struct {
	ID          string    `json:"id"`
	Seq         int64     `json:"seq"`
	EventType   EventType `json:"event_type"`
	Category    string    `json:"category,omitempty"`
	Severity    Severity  `json:"severity"`
	Description string    `json:"description"`

	Who   Actor     `json:"who"`
	What  Subject   `json:"what"`
	When  time.Time `json:"when"`
	Where Origin    `json:"where"`
	Why   Rationale `json:"why"`
	How   Mechanism `json:"how"`

	Tags     []string     `json:"tags,omitempty"`
	Evidence []Attachment `json:"evidence,omitempty"`
	Crypto   CryptoRecord `json:"crypto"`

	Flagged      bool         `json:"flagged,omitempty"`
	FlagNote     string       `json:"flag_note,omitempty"`
	ReviewStatus ReviewStatus `json:"review_status,omitempty"`
}

// Clone returns a copy safe to mutate without affecting the original.
func (e *Entry) Clone() *Entry {
	if e == nil {
		return nil
	}
	out := *e
	if e.Tags != nil {
		out.Tags = make([]string, len(e.Tags))
		copy(out.Tags, e.Tags)
	}
	if e.Who.Metadata != nil {
		out.Who.Metadata = make(map[string]string, len(e.Who.Metadata))
		for k, v := range e.Who.Metadata {
			out.Who.Metadata[k] = v
		}
	}
	if e.How.Parameters != nil {
		out.How.Parameters = make(map[string]interface{}, len(e.How.Parameters))
		for k, v := range e.How.Parameters {
			out.How.Parameters[k] = v
		}
	}
	if e.How.Tools != nil {
		out.How.Tools = make([]string, len(e.How.Tools))
		copy(out.How.Tools, e.How.Tools)
	}
	if e.How.Steps != nil {
		out.How.Steps = make([]string, len(e.How.Steps))
		copy(out.How.Steps, e.How.Steps)
	}
	if e.How.ResourceUsage != nil {
		out.How.ResourceUsage = make(map[string]float64, len(e.How.ResourceUsage))
		for k, v := range e.How.ResourceUsage {
			out.How.ResourceUsage[k] = v
		}
	}
	if e.Evidence != nil {
		out.Evidence = make([]Attachment, len(e.Evidence))
		copy(out.Evidence, e.Evidence)
	}
	return &out
}

// VerifyResult summarizes a chain verification pass.
type VerifyResult struct {
	// Checked is how many entries were verified.
	Checked int64 `json:"checked"`
	// Valid is true when every hash and link checked out.
	Valid bool `json:"valid"`
}
