package usage

import (
	"log/slog"
	"sync"
	"time"

	"github.com/jaretmartin/symtex/pkg/policy/engine"
)

// Built-in metric names resolvable through Tracker.Metric. Threshold
// triggers reference these by name.
const (
	MetricActionsPerHour = "actions_per_hour"
	MetricActionsPerDay  = "actions_per_day"
	MetricSpendPerDay    = "spend_per_day"
)

// Tracker records cognate activity and answers metric lookups for threshold
// triggers. Activity is tracked per cognate and per space, so policies can
// cap an individual cognate or a whole space.
//
// Tracker implements engine.MetricSource.
type Tracker struct {
	mu     sync.RWMutex
	scopes map[string]*scopeUsage
	logger *slog.Logger
}

// scopeUsage is the window set for one cognate or space.
type scopeUsage struct {
	actionsHourly *RollingWindow
	actionsDaily  *RollingWindow
	spendDaily    *RollingWindow
}

func newScopeUsage() *scopeUsage {
	return &scopeUsage{
		actionsHourly: NewRollingWindow(time.Hour, time.Minute),
		actionsDaily:  NewRollingWindow(24*time.Hour, time.Hour),
		spendDaily:    NewRollingWindow(24*time.Hour, time.Hour),
	}
}

// NewTracker creates an empty tracker.
func NewTracker(logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		scopes: make(map[string]*scopeUsage),
		logger: logger,
	}
}

// RecordAction counts one action, attributing it (and its cost, when
// non-zero) to both the cognate and the space. Empty IDs are skipped.
func (t *Tracker) RecordAction(cognateID, spaceID string, cost float64) {
	for _, key := range scopeKeys(cognateID, spaceID) {
		scope := t.scope(key)
		scope.actionsHourly.Add(1)
		scope.actionsDaily.Add(1)
		if cost != 0 {
			scope.spendDaily.Add(cost)
		}
	}
}

// Metric resolves a built-in metric for the action's cognate, falling back
// to its space when the action carries no cognate ID. Unknown metric names
// and actions with neither coordinate return ok=false; a known metric with
// no recorded activity reads as zero.
func (t *Tracker) Metric(name string, action engine.ProposedAction) (float64, bool) {
	switch name {
	case MetricActionsPerHour, MetricActionsPerDay, MetricSpendPerDay:
	default:
		return 0, false
	}

	var key string
	switch {
	case action.CognateID != "":
		key = "cognate:" + action.CognateID
	case action.SpaceID != "":
		key = "space:" + action.SpaceID
	default:
		return 0, false
	}

	t.mu.RLock()
	scope := t.scopes[key]
	t.mu.RUnlock()

	if scope == nil {
		return 0, true
	}

	switch name {
	case MetricActionsPerHour:
		return scope.actionsHourly.Sum(), true
	case MetricActionsPerDay:
		return scope.actionsDaily.Sum(), true
	default:
		return scope.spendDaily.Sum(), true
	}
}

// Reset drops all recorded activity.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.scopes = make(map[string]*scopeUsage)
}

// scope returns the window set for a key, creating it on first use.
func (t *Tracker) scope(key string) *scopeUsage {
	t.mu.RLock()
	scope := t.scopes[key]
	t.mu.RUnlock()
	if scope != nil {
		return scope
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if scope = t.scopes[key]; scope == nil {
		scope = newScopeUsage()
		t.scopes[key] = scope
	}
	return scope
}

func scopeKeys(cognateID, spaceID string) []string {
	keys := make([]string, 0, 2)
	if cognateID != "" {
		keys = append(keys, "cognate:"+cognateID)
	}
	if spaceID != "" {
		keys = append(keys, "space:"+spaceID)
	}
	return keys
}
