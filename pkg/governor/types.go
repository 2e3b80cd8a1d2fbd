package governor

import (
	"github.com/jaretmartin/symtex/pkg/approval"
	"github.com/jaretmartin/symtex/pkg/ledger"
	"github.com/jaretmartin/symtex/pkg/policy"
	"github.com/jaretmartin/symtex/pkg/policy/engine"
)

// Submission is the result of submitting one proposed action.
type Submission struct {
	// Decision is the evaluator's verdict.
	Decision engine.Decision

	// Request is the approval request opened for the action, set only when
	// the decision requires approval.
	Request *approval.Request

	// Entry is the ledger entry recording the decision.
	Entry *ledger.Entry
}

// Resolution names the verdict kinds Resolve accepts.
type Resolution string

const (
	ResolutionApprove Resolution = "approve"
	ResolutionReject  Resolution = "reject"
	ResolutionModify  Resolution = "modify"
)

// Run statuses accepted by ReportOutcome.
const (
	RunSucceeded = "success"
	RunFailed    = "failure"
)

// RunOutcome reports how an allowed or approved action actually went.
type RunOutcome struct {
	// Status is RunSucceeded or RunFailed.
	Status string

	// Result summarizes what the run produced.
	Result string

	// DurationMs is how long the run took.
	DurationMs int64

	// Error describes the failure when Status is RunFailed.
	Error string

	// Tools, Model and Steps detail how the run executed, recorded in the
	// entry's mechanism.
	Tools []string
	Model string
	Steps []string

	// ResourceUsage counts what the run consumed, keyed by resource name
	// ("tokens", "api_calls", "usd").
	ResourceUsage map[string]float64

	// Evidence references artifacts captured during the run; digests are
	// bound into the entry's hashed payload.
	Evidence []ledger.Attachment
}

// PolicyFinder resolves the decisive policy for an approval-requiring
// decision. *policy.Store satisfies it.
type PolicyFinder interface {
	Get(id string) (*policy.Policy, bool)
}
