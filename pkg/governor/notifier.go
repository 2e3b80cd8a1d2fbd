package governor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jaretmartin/symtex/pkg/approval"
	"github.com/jaretmartin/symtex/pkg/ledger"
)

// AuditNotifier is an approval.Notifier that records reconciler-driven
// expirations in the ledger. Explicit verdicts already reach the ledger
// through Resolve; expiry is the one resolution with no caller, so the
// notifier is its only path into the audit trail. All other notifications
// are forwarded untouched.
//
// Wire it around the application notifier when constructing the workflow:
//
//	notifier := governor.NewAuditNotifier(led, approval.LogNotifier{Logger: logger}, logger)
//	workflow, err := approval.NewWorkflow(cfg, store, notifier, collector, logger)
type AuditNotifier struct {
	ledger *ledger.Ledger
	next   approval.Notifier
	logger *slog.Logger
}

// NewAuditNotifier wraps next with expiry recording. next may be nil.
func NewAuditNotifier(led *ledger.Ledger, next approval.Notifier, logger *slog.Logger) *AuditNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditNotifier{ledger: led, next: next, logger: logger}
}

// Pending forwards the notification.
func (n *AuditNotifier) Pending(req *approval.Request) {
	if n.next != nil {
		n.next.Pending(req)
	}
}

// Escalated forwards the notification.
func (n *AuditNotifier) Escalated(req *approval.Request) {
	if n.next != nil {
		n.next.Escalated(req)
	}
}

// Resolved forwards the notification and, for system-expired requests,
// appends an approval_expired entry.
func (n *AuditNotifier) Resolved(req *approval.Request) {
	if n.next != nil {
		n.next.Resolved(req)
	}
	if req.ExpiredReason == "" {
		return
	}

	_, err := n.ledger.Append(context.Background(), ledger.Entry{
		EventType:   ledger.EventApprovalExpired,
		Category:    ledger.CategoryApproval,
		Severity:    ledger.SeverityWarning,
		Description: fmt.Sprintf("approval for %s expired unanswered", req.ActionType),
		Who:         ledger.Actor{Type: ledger.ActorSystem, ID: req.DecidedBy},
		What:        ledger.Subject{Kind: "approval_request", ID: req.ID},
		Where:       ledger.Origin{Component: "approval"},
		Why: ledger.Rationale{
			Reason:    req.Reason,
			PolicyID:  req.PolicyID,
			RequestID: req.ID,
		},
	})
	if err != nil {
		n.logger.Error("failed to record approval expiry",
			"request_id", req.ID,
			"error", err)
	}
}
