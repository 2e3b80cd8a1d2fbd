package governor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jaretmartin/symtex/pkg/approval"
	"github.com/jaretmartin/symtex/pkg/ledger"
	"github.com/jaretmartin/symtex/pkg/policy/engine"
	"github.com/jaretmartin/symtex/pkg/sop"
	"github.com/jaretmartin/symtex/pkg/sop/ast"
	"github.com/jaretmartin/symtex/pkg/sop/compiler"
	"github.com/jaretmartin/symtex/pkg/telemetry/metrics"
	"github.com/jaretmartin/symtex/pkg/usage"
)

// Governor coordinates evaluation, approvals, usage accounting and the
// audit ledger. It holds no state of its own beyond its collaborators.
type Governor struct {
	evaluator *engine.Evaluator
	workflow  *approval.Workflow
	ledger    *ledger.Ledger
	tracker   *usage.Tracker
	policies  PolicyFinder
	metrics   *metrics.Collector
	logger    *slog.Logger
}

// New creates a governor. The tracker may be nil, in which case usage is
// not recorded and threshold metrics resolve only against action context.
// A nil collector disables metrics.
func New(evaluator *engine.Evaluator, workflow *approval.Workflow, led *ledger.Ledger, tracker *usage.Tracker, policies PolicyFinder, collector *metrics.Collector, logger *slog.Logger) (*Governor, error) {
	if evaluator == nil {
		return nil, fmt.Errorf("evaluator is required")
	}
	if workflow == nil {
		return nil, fmt.Errorf("approval workflow is required")
	}
	if led == nil {
		return nil, fmt.Errorf("ledger is required")
	}
	if policies == nil {
		return nil, fmt.Errorf("policy finder is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Governor{
		evaluator: evaluator,
		workflow:  workflow,
		ledger:    led,
		tracker:   tracker,
		policies:  policies,
		metrics:   collector,
		logger:    logger,
	}, nil
}

// SubmitAction evaluates the action, records the decision in the ledger and,
// when the decision requires approval, opens an approval request. Usage is
// counted for every submission; cost is attributed only when the action may
// proceed immediately.
func (g *Governor) SubmitAction(ctx context.Context, action engine.ProposedAction) (*Submission, error) {
	start := time.Now()
	decision, err := g.evaluator.Evaluate(ctx, action)
	if err != nil {
		return nil, err
	}
	if g.metrics != nil {
		g.metrics.RecordEvaluation(string(decision.Effect), string(decision.RiskLevel), time.Since(start))
	}

	if g.tracker != nil {
		cost := 0.0
		if decision.Effect == engine.EffectAllow {
			cost = actionCost(action)
		}
		g.tracker.RecordAction(action.CognateID, action.SpaceID, cost)
	}

	sub := &Submission{Decision: decision}

	var draft ledger.Entry
	switch decision.Effect {
	case engine.EffectAllow:
		draft = decisionEntry(ledger.EventActionAllowed, ledger.SeverityInfo, decision, action, "")
		draft.Description = fmt.Sprintf("action %s allowed", action.Type)

	case engine.EffectDeny:
		draft = decisionEntry(ledger.EventActionDenied, ledger.SeverityNotice, decision, action, "")
		draft.Description = fmt.Sprintf("action %s denied", action.Type)

	case engine.EffectRequireApproval:
		pol, ok := g.policies.Get(decision.PolicyID)
		if !ok {
			return nil, fmt.Errorf("decisive policy %q is not in the store", decision.PolicyID)
		}
		req, err := g.workflow.Open(ctx, decision, action, pol)
		if err != nil {
			return nil, err
		}
		sub.Request = req

		draft = decisionEntry(ledger.EventApprovalRequested, ledger.SeverityNotice, decision, action, req.ID)
		draft.Category = ledger.CategoryApproval
		draft.Description = fmt.Sprintf("action %s held for approval", action.Type)

	default:
		return nil, fmt.Errorf("evaluator returned unknown effect %q", decision.Effect)
	}

	entry, err := g.ledger.Append(ctx, draft)
	if err != nil {
		return nil, fmt.Errorf("recording decision: %w", err)
	}
	sub.Entry = entry

	requestID := ""
	if sub.Request != nil {
		requestID = sub.Request.ID
	}
	g.logger.Info("action submitted",
		"action_type", action.Type,
		"cognate_id", action.CognateID,
		"effect", string(decision.Effect),
		"risk_level", string(decision.RiskLevel),
		"policy_id", decision.PolicyID,
		"request_id", requestID,
		"ledger_seq", entry.Seq)

	return sub, nil
}

// Resolve drives an approval request to its terminal state and records the
// verdict in the ledger.
func (g *Governor) Resolve(ctx context.Context, requestID string, kind Resolution, verdict approval.Verdict) (*approval.Request, error) {
	var (
		req      *approval.Request
		err      error
		event    ledger.EventType
		severity ledger.Severity
		past     string
	)

	switch kind {
	case ResolutionApprove:
		req, err = g.workflow.Approve(ctx, requestID, verdict)
		event, severity, past = ledger.EventApprovalGranted, ledger.SeverityInfo, "approved"
	case ResolutionReject:
		req, err = g.workflow.Reject(ctx, requestID, verdict)
		event, severity, past = ledger.EventApprovalRejected, ledger.SeverityNotice, "rejected"
	case ResolutionModify:
		req, err = g.workflow.Modify(ctx, requestID, verdict)
		event, severity, past = ledger.EventApprovalModified, ledger.SeverityNotice, "modified"
	default:
		return nil, fmt.Errorf("unknown resolution %q", kind)
	}
	if err != nil {
		return nil, err
	}

	draft := ledger.Entry{
		EventType:   event,
		Category:    ledger.CategoryApproval,
		Severity:    severity,
		Description: fmt.Sprintf("approval for %s %s by %s", req.ActionType, past, verdict.Actor),
		Who:         ledger.Actor{Type: ledger.ActorUser, ID: verdict.Actor},
		What:        ledger.Subject{Kind: "approval_request", ID: req.ID},
		Where:       ledger.Origin{Component: "governor"},
		Why: ledger.Rationale{
			Reason:    verdict.Reason,
			PolicyID:  req.PolicyID,
			RequestID: req.ID,
		},
	}
	if kind == ResolutionModify {
		draft.How = ledger.Mechanism{Method: "approval_workflow", Parameters: req.Modification}
	}

	if _, err := g.ledger.Append(ctx, draft); err != nil {
		return nil, fmt.Errorf("recording verdict: %w", err)
	}

	g.logger.Info("approval resolved",
		"request_id", req.ID,
		"resolution", string(kind),
		"actor", verdict.Actor)

	return req, nil
}

// Rerun retries the execution of an approved request and records the retry.
func (g *Governor) Rerun(ctx context.Context, requestID, actor string) (*approval.Request, error) {
	req, err := g.workflow.Rerun(ctx, requestID, actor)
	if err != nil {
		return nil, err
	}

	draft := ledger.Entry{
		EventType:   ledger.EventApprovalRerun,
		Category:    ledger.CategoryApproval,
		Severity:    ledger.SeverityInfo,
		Description: fmt.Sprintf("approved action %s queued for rerun %d", req.ActionType, req.RerunCount),
		Who:         ledger.Actor{Type: ledger.ActorUser, ID: actor},
		What:        ledger.Subject{Kind: "approval_request", ID: req.ID},
		Where:       ledger.Origin{Component: "governor"},
		Why: ledger.Rationale{
			PolicyID:  req.PolicyID,
			RequestID: req.ID,
		},
	}
	if _, err := g.ledger.Append(ctx, draft); err != nil {
		return nil, fmt.Errorf("recording rerun: %w", err)
	}

	return req, nil
}

// ReportOutcome records how a run of the action went. Failures are recorded
// at error severity with the failure detail in the entry's rationale.
func (g *Governor) ReportOutcome(ctx context.Context, action engine.ProposedAction, requestID string, outcome RunOutcome) (*ledger.Entry, error) {
	event := ledger.EventRunCompleted
	severity := ledger.SeverityInfo
	description := fmt.Sprintf("action %s completed", action.Type)

	switch outcome.Status {
	case RunSucceeded:
	case RunFailed:
		event = ledger.EventRunFailed
		severity = ledger.SeverityError
		description = fmt.Sprintf("action %s failed", action.Type)
	default:
		return nil, fmt.Errorf("unknown run status %q", outcome.Status)
	}

	parameters := map[string]interface{}{
		"duration_ms": outcome.DurationMs,
	}
	if outcome.Result != "" {
		parameters["result"] = outcome.Result
	}

	entry, err := g.ledger.Append(ctx, ledger.Entry{
		EventType:   event,
		Category:    ledger.CategoryRun,
		Severity:    severity,
		Description: description,
		Who:         actionActor(action),
		What:        ledger.Subject{Kind: "action", Name: action.Type},
		Where:       actionOrigin(action),
		Why: ledger.Rationale{
			Reason:    outcome.Error,
			RequestID: requestID,
		},
		How: ledger.Mechanism{
			Method:        "execution",
			Parameters:    parameters,
			Tools:         outcome.Tools,
			Model:         outcome.Model,
			Steps:         outcome.Steps,
			ResourceUsage: outcome.ResourceUsage,
		},
		Evidence: outcome.Evidence,
	})
	if err != nil {
		return nil, err
	}

	if outcome.Status == RunFailed {
		g.logger.Warn("action run failed",
			"action_type", action.Type,
			"cognate_id", action.CognateID,
			"request_id", requestID,
			"error", outcome.Error,
			"duration_ms", outcome.DurationMs)
	}

	return entry, nil
}

// CompileRuleSet validates and compiles a rule-set, recording the compiled
// script's checksum. Validation errors gate compilation; a compiled script
// is only acknowledged once its ledger entry is written.
func (g *Governor) CompileRuleSet(ctx context.Context, rs *ast.RuleSet) (*compiler.Script, error) {
	if rs == nil {
		return nil, fmt.Errorf("rule-set is required")
	}
	if err := sop.Validate(rs).ToError(); err != nil {
		return nil, err
	}

	script, err := sop.Compile(rs)
	if err != nil {
		return nil, err
	}

	if _, err := g.ledger.Append(ctx, ledger.Entry{
		EventType:   ledger.EventRuleSetCompiled,
		Category:    ledger.CategoryRuleSet,
		Severity:    ledger.SeverityInfo,
		Description: fmt.Sprintf("rule-set %q v%d compiled to %d blocks", rs.Name, rs.Version, script.BlockCount()),
		Who:         ledger.Actor{Type: ledger.ActorSystem, ID: "governor"},
		What:        ledger.Subject{Kind: "ruleset", ID: rs.ID, Name: rs.Name},
		Where:       ledger.Origin{Component: "governor"},
		Why:         ledger.Rationale{RuleSetID: rs.ID},
		How: ledger.Mechanism{
			Method: "sop_compiler",
			Parameters: map[string]interface{}{
				"checksum": script.Checksum(),
				"blocks":   script.BlockCount(),
				"version":  rs.Version,
			},
		},
	}); err != nil {
		return nil, fmt.Errorf("recording compilation: %w", err)
	}

	return script, nil
}

// decisionEntry builds the common shape of a decision ledger entry.
func decisionEntry(event ledger.EventType, severity ledger.Severity, decision engine.Decision, action engine.ProposedAction, requestID string) ledger.Entry {
	parameters := map[string]interface{}{
		"risk_level": string(decision.RiskLevel),
	}
	if len(decision.MatchedPolicyIDs) > 0 {
		parameters["matched_policy_ids"] = decision.MatchedPolicyIDs
	}
	if decision.AutoApproved {
		parameters["auto_approved"] = true
	}

	return ledger.Entry{
		EventType: event,
		Category:  ledger.CategoryAction,
		Severity:  severity,
		Who:       actionActor(action),
		What:      ledger.Subject{Kind: "action", Name: action.Type},
		Where:     actionOrigin(action),
		Why: ledger.Rationale{
			Reason:    decision.Reason,
			PolicyID:  decision.PolicyID,
			RequestID: requestID,
		},
		How: ledger.Mechanism{Method: "policy_evaluation", Parameters: parameters},
	}
}

// actionActor attributes an action to its cognate, falling back to the user
// and then the system.
func actionActor(action engine.ProposedAction) ledger.Actor {
	switch {
	case action.CognateID != "":
		return ledger.Actor{Type: ledger.ActorCognate, ID: action.CognateID}
	case action.UserID != "":
		return ledger.Actor{Type: ledger.ActorUser, ID: action.UserID}
	default:
		return ledger.Actor{Type: ledger.ActorSystem}
	}
}

func actionOrigin(action engine.ProposedAction) ledger.Origin {
	return ledger.Origin{
		SpaceID:   action.SpaceID,
		ProjectID: action.ProjectID,
		Component: "governor",
	}
}

// actionCost pulls the monetary amount out of the action context, when
// present. JSON-decoded payloads carry numbers as float64.
func actionCost(action engine.ProposedAction) float64 {
	for _, key := range []string{"amount", "cost"} {
		switch v := action.Context[key].(type) {
		case float64:
			return v
		case int:
			return float64(v)
		case int64:
			return float64(v)
		}
	}
	return 0
}
