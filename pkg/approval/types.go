package approval

import (
	"time"

	"github.com/jaretmartin/symtex/pkg/policy"
)

// Status is the lifecycle state of an approval request.
type Status string

const (
	// StatusPending means the request is waiting for a decision.
	StatusPending Status = "pending"
	// StatusApproved means an approver cleared the action as proposed.
	StatusApproved Status = "approved"
	// StatusRejected means the action was refused, either by an approver
	// or by the expiry reconciler.
	StatusRejected Status = "rejected"
	// StatusModified means the action was cleared with changes attached.
	StatusModified Status = "modified"
)

// IsTerminal reports whether no further transitions are allowed.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusApproved, StatusRejected, StatusModified:
		return true
	}
	return false
}

// IsValid reports whether s is a known lifecycle state.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusModified:
		return true
	}
	return false
}

// ExpiredReason marks requests the reconciler rejected because their
// approval window elapsed without a decision.
const ExpiredReason = "expired"

// SystemActor is recorded as DecidedBy on transitions the system makes
// on its own, such as expiry.
const SystemActor = "system"

// Request is a single approval case. It captures what the cognate wanted
// to do, which policy parked it, who may decide, and how it was resolved.
type Request struct {
	ID            string                 `json:"id"`
	ActionType    string                 `json:"action_type"`
	ActionSummary string                 `json:"action_summary"`
	Context       map[string]interface{} `json:"context,omitempty"`

	// PolicyID is the decisive policy that required the approval.
	PolicyID  string           `json:"policy_id"`
	RiskLevel policy.RiskLevel `json:"risk_level"`

	Status    Status `json:"status"`
	Requestor string `json:"requestor,omitempty"`

	// Approvers is the set currently entitled to decide. Escalation
	// replaces it with the next level's approvers.
	Approvers       []policy.Approver `json:"approvers"`
	EscalationLevel int               `json:"escalation_level"`

	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`

	DecidedAt    *time.Time             `json:"decided_at,omitempty"`
	DecidedBy    string                 `json:"decided_by,omitempty"`
	Reason       string                 `json:"reason,omitempty"`
	Modification map[string]interface{} `json:"modification,omitempty"`

	// RerunCount tracks how many times an approved action was re-executed
	// under this same approval.
	RerunCount int `json:"rerun_count"`

	// ExpiredReason is set to ExpiredReason when the reconciler, not a
	// person, rejected the request.
	ExpiredReason string `json:"expired_reason,omitempty"`
}

// Clone returns a copy safe to mutate without affecting the original.
// Top-level maps and slices are copied; nested values are shared.
func (r *Request) Clone() *Request {
	if r == nil {
		return nil
	}
	out := *r
	if r.Context != nil {
		out.Context = make(map[string]interface{}, len(r.Context))
		for k, v := range r.Context {
			out.Context[k] = v
		}
	}
	if r.Modification != nil {
		out.Modification = make(map[string]interface{}, len(r.Modification))
		for k, v := range r.Modification {
			out.Modification[k] = v
		}
	}
	if r.Approvers != nil {
		out.Approvers = make([]policy.Approver, len(r.Approvers))
		copy(out.Approvers, r.Approvers)
	}
	if r.ExpiresAt != nil {
		t := *r.ExpiresAt
		out.ExpiresAt = &t
	}
	if r.DecidedAt != nil {
		t := *r.DecidedAt
		out.DecidedAt = &t
	}
	return &out
}

// Verdict is a human decision applied to a pending request.
type Verdict struct {
	// Actor identifies who decided. Required.
	Actor string
	// Reason is an optional free-form justification.
	Reason string
	// Modification carries the changes for Modify verdicts, for example
	// a reduced amount or a redacted recipient list.
	Modification map[string]interface{}
}

// Filter narrows List results. Zero values mean "any".
type Filter struct {
	Status    Status
	Requestor string
	PolicyID  string
	// Limit caps the number of returned requests. Zero means no cap.
	Limit int
}

// BatchResult reports the outcome for one request in a batch operation.
type BatchResult struct {
	ID  string
	Err error
}
