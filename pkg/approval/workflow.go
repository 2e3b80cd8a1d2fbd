package approval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/jaretmartin/symtex/pkg/policy"
	"github.com/jaretmartin/symtex/pkg/policy/engine"
	"github.com/jaretmartin/symtex/pkg/telemetry/metrics"
)

// Config configures the approval workflow.
type Config struct {
	// DefaultTimeout is the approval window applied when no approver in
	// the decisive policy declares one. Zero means such requests never
	// expire on their own.
	DefaultTimeout time.Duration `yaml:"default_timeout"`

	// ReconcileSchedule is a cron expression for the expiry sweep, in
	// robfig/cron syntax ("@every 1m", "*/5 * * * *"). Empty disables
	// the scheduled sweep; ReconcileExpired can still be called directly.
	ReconcileSchedule string `yaml:"reconcile_schedule"`

	// QueueSize bounds the notification dispatch queue.
	QueueSize int `yaml:"queue_size"`
}

// DefaultConfig returns the default workflow configuration.
func DefaultConfig() Config {
	return Config{
		ReconcileSchedule: "@every 1m",
		QueueSize:         64,
	}
}

type notifyKind int

const (
	notifyPending notifyKind = iota
	notifyEscalated
	notifyResolved
)

type notification struct {
	kind notifyKind
	req  *Request
}

// Workflow drives approval requests through their lifecycle: opening them
// from evaluator decisions, applying human verdicts, escalating on timeout
// and expiring requests whose window elapsed.
//
// Escalation timers live in memory. After a restart, pending requests keep
// their persisted deadlines and are still expired by the reconciler, but
// they no longer advance through escalation levels.
type Workflow struct {
	config   Config
	store    Store
	notifier Notifier
	metrics  *metrics.Collector
	logger   *slog.Logger

	timersMu      sync.Mutex
	timers        map[string]*time.Timer
	timersStopped bool

	queueMu      sync.Mutex
	queue        chan notification
	queueClosed  bool
	dispatchDone chan struct{}

	rerunMu sync.RWMutex
	onRerun func(*Request)

	cron      *cron.Cron
	closeOnce sync.Once
}

// NewWorkflow creates a workflow on top of the given store. A nil notifier
// falls back to logging; a nil collector disables metrics.
func NewWorkflow(config Config, store Store, notifier Notifier, collector *metrics.Collector, logger *slog.Logger) (*Workflow, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if notifier == nil {
		notifier = NewLogNotifier(logger)
	}
	queueSize := config.QueueSize
	if queueSize <= 0 {
		queueSize = 64
	}

	w := &Workflow{
		config:       config,
		store:        store,
		notifier:     notifier,
		metrics:      collector,
		logger:       logger,
		timers:       make(map[string]*time.Timer),
		queue:        make(chan notification, queueSize),
		dispatchDone: make(chan struct{}),
	}

	if config.ReconcileSchedule != "" {
		c := cron.New()
		if _, err := c.AddFunc(config.ReconcileSchedule, w.sweep); err != nil {
			return nil, fmt.Errorf("invalid reconcile schedule %q: %w", config.ReconcileSchedule, err)
		}
		w.cron = c
	}

	go w.dispatch()
	if w.cron != nil {
		w.cron.Start()
	}
	return w, nil
}

// Open creates a pending approval request for an action the evaluator
// parked behind decision. pol must be the decisive policy from the
// decision; its approver set and escalation ladder drive the request.
func (w *Workflow) Open(ctx context.Context, decision engine.Decision, action engine.ProposedAction, pol *policy.Policy) (*Request, error) {
	if decision.Effect != engine.EffectRequireApproval {
		return nil, fmt.Errorf("decision effect is %q, not %q", decision.Effect, engine.EffectRequireApproval)
	}
	if pol == nil || pol.ID == "" {
		return nil, fmt.Errorf("decisive policy is required")
	}
	approvers := pol.ApproversForLevel(0)
	if len(approvers) == 0 {
		return nil, fmt.Errorf("policy %q requires approval but names no approvers", pol.ID)
	}

	requestor := action.CognateID
	if requestor == "" {
		requestor = action.UserID
	}

	var contextCopy map[string]interface{}
	if action.Context != nil {
		contextCopy = make(map[string]interface{}, len(action.Context))
		for k, v := range action.Context {
			contextCopy[k] = v
		}
	}

	now := time.Now().UTC()
	req := &Request{
		ID:            uuid.New().String(),
		ActionType:    action.Type,
		ActionSummary: summarize(action),
		Context:       contextCopy,
		PolicyID:      pol.ID,
		RiskLevel:     decision.RiskLevel,
		Status:        StatusPending,
		Requestor:     requestor,
		Approvers:     append([]policy.Approver(nil), approvers...),
		CreatedAt:     now,
	}
	if window := approvalWindow(approvers); window > 0 {
		t := now.Add(window)
		req.ExpiresAt = &t
	} else if w.config.DefaultTimeout > 0 {
		t := now.Add(w.config.DefaultTimeout)
		req.ExpiresAt = &t
	}

	if err := w.store.Create(ctx, req); err != nil {
		return nil, err
	}

	w.recordTransition("opened")
	w.notify(notifyPending, req)
	w.armEscalation(req, pol)

	w.logger.Info("approval opened",
		"request_id", req.ID,
		"action_type", req.ActionType,
		"policy_id", req.PolicyID,
		"risk_level", req.RiskLevel,
		"approvers", len(req.Approvers))
	return req, nil
}

// Approve resolves a pending request as approved.
func (w *Workflow) Approve(ctx context.Context, id string, verdict Verdict) (*Request, error) {
	return w.decide(ctx, id, StatusApproved, verdict)
}

// Reject resolves a pending request as rejected.
func (w *Workflow) Reject(ctx context.Context, id string, verdict Verdict) (*Request, error) {
	return w.decide(ctx, id, StatusRejected, verdict)
}

// Modify resolves a pending request as approved-with-changes. The verdict
// must carry the modification for the cognate to apply.
func (w *Workflow) Modify(ctx context.Context, id string, verdict Verdict) (*Request, error) {
	if len(verdict.Modification) == 0 {
		return nil, fmt.Errorf("modify verdict requires a modification")
	}
	return w.decide(ctx, id, StatusModified, verdict)
}

// BatchApprove applies the same verdict to several requests. Each entry
// succeeds or fails on its own; one already-decided request does not stop
// the rest.
func (w *Workflow) BatchApprove(ctx context.Context, ids []string, verdict Verdict) []BatchResult {
	results := make([]BatchResult, 0, len(ids))
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			results = append(results, BatchResult{ID: id, Err: err})
			continue
		}
		_, err := w.Approve(ctx, id, verdict)
		results = append(results, BatchResult{ID: id, Err: err})
	}
	return results
}

// Rerun records another execution of an already-approved action. Only
// approved requests can be rerun; the approval itself is not re-evaluated.
func (w *Workflow) Rerun(ctx context.Context, id, actor string) (*Request, error) {
	if actor == "" {
		return nil, fmt.Errorf("actor is required")
	}
	updated, err := w.store.IncrementRerun(ctx, id)
	if err != nil {
		return nil, err
	}

	w.rerunMu.RLock()
	handler := w.onRerun
	w.rerunMu.RUnlock()
	if handler != nil {
		handler(updated)
	}

	w.recordTransition("rerun")
	w.logger.Info("approved action rerun",
		"request_id", id,
		"actor", actor,
		"rerun_count", updated.RerunCount)
	return updated, nil
}

// SetRerunHandler registers a callback invoked whenever an approved action
// is rerun, so callers can re-dispatch the underlying action.
func (w *Workflow) SetRerunHandler(fn func(*Request)) {
	w.rerunMu.Lock()
	w.onRerun = fn
	w.rerunMu.Unlock()
}

// Get returns the request with the given ID.
func (w *Workflow) Get(ctx context.Context, id string) (*Request, error) {
	return w.store.Get(ctx, id)
}

// List returns requests matching the filter, newest first.
func (w *Workflow) List(ctx context.Context, filter Filter) ([]*Request, error) {
	return w.store.List(ctx, filter)
}

// ReconcileExpired rejects every pending request whose deadline has passed,
// marking it expired. It returns how many requests were expired. A request
// decided between the sweep's read and its write is left alone.
func (w *Workflow) ReconcileExpired(ctx context.Context) (int, error) {
	now := time.Now().UTC()
	pending, err := w.store.ListPending(ctx, &now)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, candidate := range pending {
		updated, err := w.store.Transition(ctx, candidate.ID, StatusPending, func(r *Request) error {
			decidedAt := time.Now().UTC()
			r.Status = StatusRejected
			r.ExpiredReason = ExpiredReason
			r.Reason = "approval window elapsed"
			r.DecidedAt = &decidedAt
			r.DecidedBy = SystemActor
			return nil
		})
		if err != nil {
			var ste *StateTransitionError
			if errors.As(err, &ste) {
				continue
			}
			w.logger.Error("expiry sweep failed",
				"request_id", candidate.ID,
				"error", err)
			continue
		}

		expired++
		w.cancelEscalation(updated.ID)
		if w.metrics != nil {
			w.metrics.RecordExpiry()
		}
		w.recordTransition("expired")
		w.notify(notifyResolved, updated)
	}

	if expired > 0 {
		w.logger.Info("expired approval requests rejected", "count", expired)
	}
	return expired, nil
}

// Close stops the escalation timers, the cron reconciler and the
// notification dispatcher. The store is not closed; its owner closes it.
func (w *Workflow) Close() error {
	w.closeOnce.Do(func() {
		if w.cron != nil {
			<-w.cron.Stop().Done()
		}

		w.timersMu.Lock()
		w.timersStopped = true
		for id, timer := range w.timers {
			timer.Stop()
			delete(w.timers, id)
		}
		w.timersMu.Unlock()

		w.queueMu.Lock()
		w.queueClosed = true
		close(w.queue)
		w.queueMu.Unlock()

		<-w.dispatchDone
	})
	return nil
}

// decide applies a terminal verdict to a pending request. The first caller
// wins; later callers get a StateTransitionError naming the winning status.
func (w *Workflow) decide(ctx context.Context, id string, to Status, verdict Verdict) (*Request, error) {
	if verdict.Actor == "" {
		return nil, fmt.Errorf("actor is required")
	}

	updated, err := w.store.Transition(ctx, id, StatusPending, func(r *Request) error {
		decidedAt := time.Now().UTC()
		r.Status = to
		r.DecidedAt = &decidedAt
		r.DecidedBy = verdict.Actor
		r.Reason = verdict.Reason
		if to == StatusModified {
			r.Modification = make(map[string]interface{}, len(verdict.Modification))
			for k, v := range verdict.Modification {
				r.Modification[k] = v
			}
		}
		return nil
	})
	if err != nil {
		var ste *StateTransitionError
		if errors.As(err, &ste) {
			ste.Attempted = to
		}
		return nil, err
	}

	w.cancelEscalation(id)
	w.recordTransition(string(to))
	w.notify(notifyResolved, updated)

	w.logger.Info("approval decided",
		"request_id", id,
		"status", updated.Status,
		"decided_by", verdict.Actor,
		"pending_ms", time.Since(updated.CreatedAt).Milliseconds())
	return updated, nil
}

func (w *Workflow) sweep() {
	if _, err := w.ReconcileExpired(context.Background()); err != nil {
		w.logger.Error("expiry reconciliation failed", "error", err)
	}
}

// armEscalation schedules the next timeout advance: fallback substitution
// while any current approver still names one, then the policy's next
// escalation level. No timer is armed when the set declares no timeout or
// nothing is left to advance to.
func (w *Workflow) armEscalation(req *Request, pol *policy.Policy) {
	delay := approvalWindow(req.Approvers)
	if delay <= 0 {
		return
	}
	if !hasFallback(req.Approvers) && findLevel(pol, req.EscalationLevel+1) == nil {
		return
	}

	id := req.ID
	w.timersMu.Lock()
	defer w.timersMu.Unlock()
	if w.timersStopped {
		return
	}
	if existing, ok := w.timers[id]; ok {
		existing.Stop()
	}
	w.timers[id] = time.AfterFunc(delay, func() {
		w.escalate(id, pol)
	})
}

func (w *Workflow) cancelEscalation(id string) {
	w.timersMu.Lock()
	defer w.timersMu.Unlock()
	if timer, ok := w.timers[id]; ok {
		timer.Stop()
		delete(w.timers, id)
	}
}

// escalate advances a still-pending request whose window elapsed. While
// any current approver names a fallback, the fallbacks take over first and
// the window restarts; once fallbacks are consumed the request moves to
// the policy's next escalation level. NotifyOnly levels keep the current
// approver set and deadline; others replace the approvers and restart the
// window from now.
func (w *Workflow) escalate(id string, pol *policy.Policy) {
	w.timersMu.Lock()
	stopped := w.timersStopped
	w.timersMu.Unlock()
	if stopped {
		return
	}

	ctx := context.Background()
	req, err := w.store.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			w.logger.Error("escalation read failed", "request_id", id, "error", err)
		}
		return
	}
	if req.Status != StatusPending {
		return
	}

	if advanceFallbacks(req) {
		if window := approvalWindow(req.Approvers); window > 0 {
			t := time.Now().UTC().Add(window)
			req.ExpiresAt = &t
		}
		if err := w.store.Update(ctx, req); err != nil {
			var ste *StateTransitionError
			if !errors.As(err, &ste) && !errors.Is(err, ErrNotFound) {
				w.logger.Error("fallback update failed", "request_id", id, "error", err)
			}
			return
		}

		if w.metrics != nil {
			w.metrics.RecordEscalation()
		}
		w.notify(notifyEscalated, req)
		w.logger.Warn("approval advanced to fallback approvers",
			"request_id", id,
			"approvers", len(req.Approvers))

		w.armEscalation(req, pol)
		return
	}

	next := findLevel(pol, req.EscalationLevel+1)
	if next == nil {
		return
	}

	req.EscalationLevel = next.Level
	if !next.NotifyOnly {
		req.Approvers = append([]policy.Approver(nil), next.Approvers...)
		if window := approvalWindow(req.Approvers); window > 0 {
			t := time.Now().UTC().Add(window)
			req.ExpiresAt = &t
		}
	}

	if err := w.store.Update(ctx, req); err != nil {
		// A terminal transition beat the timer; nothing to escalate.
		var ste *StateTransitionError
		if !errors.As(err, &ste) && !errors.Is(err, ErrNotFound) {
			w.logger.Error("escalation update failed", "request_id", id, "error", err)
		}
		return
	}

	if w.metrics != nil {
		w.metrics.RecordEscalation()
	}
	w.notify(notifyEscalated, req)
	w.logger.Warn("approval escalated",
		"request_id", id,
		"escalation_level", req.EscalationLevel,
		"notify_only", next.NotifyOnly,
		"approvers", len(req.Approvers))

	w.armEscalation(req, pol)
}

func (w *Workflow) recordTransition(outcome string) {
	if w.metrics != nil {
		w.metrics.RecordApprovalTransition(outcome)
	}
}

func (w *Workflow) notify(kind notifyKind, req *Request) {
	w.queueMu.Lock()
	defer w.queueMu.Unlock()
	if w.queueClosed {
		return
	}
	select {
	case w.queue <- notification{kind: kind, req: req}:
	default:
		w.logger.Warn("notification dropped, queue full", "request_id", req.ID)
	}
}

func (w *Workflow) dispatch() {
	defer close(w.dispatchDone)
	for n := range w.queue {
		switch n.kind {
		case notifyPending:
			w.notifier.Pending(n.req)
		case notifyEscalated:
			w.notifier.Escalated(n.req)
		case notifyResolved:
			w.notifier.Resolved(n.req)
		}
	}
}

// approvalWindow returns the shortest positive timeout declared by the
// approver set, or zero when none declares one.
func approvalWindow(approvers []policy.Approver) time.Duration {
	var window time.Duration
	for _, a := range approvers {
		if a.Timeout <= 0 {
			continue
		}
		if window == 0 || a.Timeout < window {
			window = a.Timeout
		}
	}
	return window
}

// hasFallback reports whether any approver still names a fallback party.
func hasFallback(approvers []policy.Approver) bool {
	for _, a := range approvers {
		if a.Fallback != "" {
			return true
		}
	}
	return false
}

// advanceFallbacks replaces every approver naming a fallback with that
// fallback party and reports whether anything changed. Fallbacks are
// consumed: a substituted approver does not fall back again.
func advanceFallbacks(req *Request) bool {
	changed := false
	next := make([]policy.Approver, len(req.Approvers))
	for i, a := range req.Approvers {
		if a.Fallback == "" {
			next[i] = a
			continue
		}
		next[i] = policy.Approver{Kind: a.Kind, ID: a.Fallback, Timeout: a.Timeout}
		changed = true
	}
	if changed {
		req.Approvers = next
	}
	return changed
}

func findLevel(pol *policy.Policy, level int) *policy.EscalationLevel {
	for i := range pol.Escalation {
		if pol.Escalation[i].Level == level {
			return &pol.Escalation[i]
		}
	}
	return nil
}

func summarize(action engine.ProposedAction) string {
	switch {
	case action.CognateID != "":
		return fmt.Sprintf("%s proposed by cognate %s", action.Type, action.CognateID)
	case action.UserID != "":
		return fmt.Sprintf("%s proposed by user %s", action.Type, action.UserID)
	default:
		return action.Type
	}
}
