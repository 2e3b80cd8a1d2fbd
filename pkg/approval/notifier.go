package approval

import "log/slog"

// Notifier receives lifecycle events for approval requests. Implementations
// deliver them wherever approvers live: chat, email, a dashboard. Calls are
// made from a single dispatch goroutine, so implementations need not be
// safe for concurrent use, but they should return quickly.
type Notifier interface {
	// Pending fires when a new request is opened.
	Pending(req *Request)
	// Escalated fires when a request moves to a higher escalation level.
	Escalated(req *Request)
	// Resolved fires when a request reaches a terminal state, including
	// expiry by the reconciler.
	Resolved(req *Request)
}

// LogNotifier writes lifecycle events to a structured logger. It is the
// default when no notifier is configured.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a notifier backed by the given logger.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Pending(req *Request) {
	n.logger.Info("approval requested",
		"request_id", req.ID,
		"action_type", req.ActionType,
		"policy_id", req.PolicyID,
		"risk_level", req.RiskLevel,
		"approvers", len(req.Approvers))
}

func (n *LogNotifier) Escalated(req *Request) {
	n.logger.Warn("approval escalated",
		"request_id", req.ID,
		"action_type", req.ActionType,
		"escalation_level", req.EscalationLevel,
		"approvers", len(req.Approvers))
}

func (n *LogNotifier) Resolved(req *Request) {
	n.logger.Info("approval resolved",
		"request_id", req.ID,
		"action_type", req.ActionType,
		"status", req.Status,
		"decided_by", req.DecidedBy)
}
