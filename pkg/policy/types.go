package policy

import (
	"time"
)

// ScopeKind identifies the coordinate a scope binds to.
type ScopeKind string

const (
	ScopeGlobal      ScopeKind = "global"
	ScopeSpace       ScopeKind = "space"
	ScopeProject     ScopeKind = "project"
	ScopeCognate     ScopeKind = "cognate"
	ScopeAutomation  ScopeKind = "automation"
	ScopeUser        ScopeKind = "user"
	ScopeIntegration ScopeKind = "integration"
)

// ScopeKinds lists every known scope kind.
var ScopeKinds = []ScopeKind{
	ScopeGlobal,
	ScopeSpace,
	ScopeProject,
	ScopeCognate,
	ScopeAutomation,
	ScopeUser,
	ScopeIntegration,
}

// IsValid reports whether the scope kind is part of the known set.
func (k ScopeKind) IsValid() bool {
	for _, sk := range ScopeKinds {
		if k == sk {
			return true
		}
	}
	return false
}

// Scope is one place a policy applies. A policy's scopes form a union: the
// policy applies when any scope matches. Global scopes match everything and
// carry no ID.
type Scope struct {
	Kind ScopeKind `yaml:"kind"`
	ID   string    `yaml:"id"`
}

// Matches reports whether the scope covers the given coordinate.
func (s Scope) Matches(kind ScopeKind, id string) bool {
	if s.Kind == ScopeGlobal {
		return true
	}
	return s.Kind == kind && s.ID == id
}

// RiskLevel grades how dangerous a governed action is.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// riskRanks orders risk levels from least to most restrictive.
var riskRanks = map[RiskLevel]int{
	RiskLow:      0,
	RiskMedium:   1,
	RiskHigh:     2,
	RiskCritical: 3,
}

// IsValid reports whether the risk level is part of the known set.
func (r RiskLevel) IsValid() bool {
	_, ok := riskRanks[r]
	return ok
}

// Rank returns the restrictiveness rank of the risk level.
// critical > high > medium > low. Unknown levels rank lowest.
func (r RiskLevel) Rank() int {
	return riskRanks[r]
}

// MoreRestrictive reports whether r outranks other.
func (r RiskLevel) MoreRestrictive(other RiskLevel) bool {
	return r.Rank() > other.Rank()
}

// Effect is the outcome of a matched policy that does not require approval.
type Effect string

const (
	EffectAllow Effect = "allow"
	EffectDeny  Effect = "deny"
)

// IsValid reports whether the effect is part of the known set.
func (e Effect) IsValid() bool {
	return e == EffectAllow || e == EffectDeny
}

// TriggerKind identifies how a policy trigger matches proposed actions.
type TriggerKind string

const (
	// TriggerActionType matches when the action's type is in the list.
	TriggerActionType TriggerKind = "action_type"

	// TriggerCondition matches when a predicate over the action context holds.
	TriggerCondition TriggerKind = "condition"

	// TriggerThreshold matches when a named metric crosses a bound.
	TriggerThreshold TriggerKind = "threshold"

	// TriggerSchedule and TriggerEvent are declarative triggers consumed by
	// the automation runtime; the evaluator never matches them against
	// proposed actions.
	TriggerSchedule TriggerKind = "schedule"
	TriggerEvent    TriggerKind = "event"
)

// TriggerKinds lists every known trigger kind.
var TriggerKinds = []TriggerKind{
	TriggerActionType,
	TriggerCondition,
	TriggerThreshold,
	TriggerSchedule,
	TriggerEvent,
}

// IsValid reports whether the trigger kind is part of the known set.
func (k TriggerKind) IsValid() bool {
	for _, tk := range TriggerKinds {
		if k == tk {
			return true
		}
	}
	return false
}

// ThresholdOperator compares a metric value against the trigger's bounds.
type ThresholdOperator string

const (
	ThresholdLT      ThresholdOperator = "lt"
	ThresholdLTE     ThresholdOperator = "lte"
	ThresholdGT      ThresholdOperator = "gt"
	ThresholdGTE     ThresholdOperator = "gte"
	ThresholdEQ      ThresholdOperator = "eq"
	ThresholdNEQ     ThresholdOperator = "neq"
	ThresholdBetween ThresholdOperator = "between"
)

// ThresholdOperators lists every known threshold operator.
var ThresholdOperators = []ThresholdOperator{
	ThresholdLT,
	ThresholdLTE,
	ThresholdGT,
	ThresholdGTE,
	ThresholdEQ,
	ThresholdNEQ,
	ThresholdBetween,
}

// IsValid reports whether the threshold operator is part of the known set.
func (o ThresholdOperator) IsValid() bool {
	for _, op := range ThresholdOperators {
		if o == op {
			return true
		}
	}
	return false
}

// Predicate is a field/operator/value test over an action context.
// It uses the same operator vocabulary as rule conditions: equals,
// not_equals, contains, not_contains, matches, greater_than, less_than,
// exists, not_exists.
type Predicate struct {
	Field    string      `yaml:"field"`
	Operator string      `yaml:"operator"`
	Value    interface{} `yaml:"value"`
}

// TriggerSpec is a tagged trigger variant. Kind selects which of the
// remaining fields are meaningful.
type TriggerSpec struct {
	Kind TriggerKind `yaml:"kind"`

	// action_type
	ActionTypes []string `yaml:"action_types"`

	// condition
	Condition *Predicate `yaml:"condition"`

	// threshold
	Metric     string            `yaml:"metric"`
	Operator   ThresholdOperator `yaml:"operator"`
	Value      float64           `yaml:"value"`
	UpperValue float64           `yaml:"upper_value"` // between only

	// schedule
	Cron string `yaml:"cron"`

	// event
	Event string `yaml:"event"`
}

// ApproverKind identifies what an approver reference points at.
type ApproverKind string

const (
	ApproverUser    ApproverKind = "user"
	ApproverRole    ApproverKind = "role"
	ApproverGroup   ApproverKind = "group"
	ApproverCognate ApproverKind = "cognate"
	ApproverSystem  ApproverKind = "system"
)

// ApproverKinds lists every known approver kind.
var ApproverKinds = []ApproverKind{
	ApproverUser,
	ApproverRole,
	ApproverGroup,
	ApproverCognate,
	ApproverSystem,
}

// IsValid reports whether the approver kind is part of the known set.
func (k ApproverKind) IsValid() bool {
	for _, ak := range ApproverKinds {
		if k == ak {
			return true
		}
	}
	return false
}

// Approver is one party that can decide an approval request.
// A zero Timeout contributes nothing to the request deadline. Fallback
// names the party a still-pending request advances to when the timeout
// elapses without a decision; the fallback inherits the kind and timeout.
type Approver struct {
	Kind     ApproverKind  `yaml:"kind"`
	ID       string        `yaml:"id"`
	Timeout  time.Duration `yaml:"timeout"`
	Fallback string        `yaml:"fallback"`
}

// EscalationLevel replaces the approver set after the previous level's
// timeout elapses without a decision. Levels are ordered ascending and a
// request only ever moves forward through them.
type EscalationLevel struct {
	Level      int        `yaml:"level"`
	Approvers  []Approver `yaml:"approvers"`
	NotifyOnly bool       `yaml:"notify_only"`
}

// Policy is one governance policy.
type Policy struct {
	ID               string            `yaml:"id"`
	Name             string            `yaml:"name"`
	Description      string            `yaml:"description"`
	Enabled          bool              `yaml:"enabled"`
	Scopes           []Scope           `yaml:"scopes"`
	Triggers         []TriggerSpec     `yaml:"triggers"`
	ApprovalRequired bool              `yaml:"approval_required"`
	Effect           Effect            `yaml:"effect"` // Consulted only when ApprovalRequired is false
	RiskLevel        RiskLevel         `yaml:"risk_level"`
	Approvers        []Approver        `yaml:"approvers"`
	Escalation       []EscalationLevel `yaml:"escalation"`
	AutoApprove      []Predicate       `yaml:"auto_approve"`
	CreatedAt        time.Time         `yaml:"created_at"`
	UpdatedAt        time.Time         `yaml:"updated_at"`
}

// AppliesTo reports whether any of the policy's scopes covers the given
// coordinate set. A policy with no scopes applies nowhere.
func (p *Policy) AppliesTo(coords map[ScopeKind]string) bool {
	for _, scope := range p.Scopes {
		if scope.Kind == ScopeGlobal {
			return true
		}
		if id, ok := coords[scope.Kind]; ok && id != "" && scope.ID == id {
			return true
		}
	}
	return false
}

// ApproversForLevel returns the approver set for the given escalation level.
// Level 0 is the policy's base approver set; higher levels come from the
// Escalation list. Returns nil when the level is past the last one.
func (p *Policy) ApproversForLevel(level int) []Approver {
	if level == 0 {
		return p.Approvers
	}
	for _, esc := range p.Escalation {
		if esc.Level == level {
			return esc.Approvers
		}
	}
	return nil
}

// MaxEscalationLevel returns the highest declared escalation level,
// or 0 when the policy has none.
func (p *Policy) MaxEscalationLevel() int {
	max := 0
	for _, esc := range p.Escalation {
		if esc.Level > max {
			max = esc.Level
		}
	}
	return max
}
