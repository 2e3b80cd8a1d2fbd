package ast

// TriggerKind identifies what starts a rule.
type TriggerKind string

const (
	TriggerMessage   TriggerKind = "message"   // Inbound message (channel, pattern)
	TriggerEvent     TriggerKind = "event"     // Named system event
	TriggerSchedule  TriggerKind = "schedule"  // Cron expression
	TriggerCondition TriggerKind = "condition" // Standing predicate over state
	TriggerManual    TriggerKind = "manual"    // Operator-initiated
)

// IsValid reports whether the kind is one of the known trigger variants.
func (k TriggerKind) IsValid() bool {
	switch k {
	case TriggerMessage, TriggerEvent, TriggerSchedule, TriggerCondition, TriggerManual:
		return true
	}
	return false
}

// Trigger is a tagged variant: the kind selects which config keys apply.
// Message triggers carry channel/pattern, event triggers an event name,
// schedule triggers a cron expression. Manual triggers need no config.
type Trigger struct {
	Kind     TriggerKind       // Trigger variant
	Config   map[string]*Value // Kind-specific configuration
	Location Location          // Source location
}

// ConfigString returns the string value of a config key, or "" when the key
// is absent or not a string.
func (t *Trigger) ConfigString(key string) string {
	if v, ok := t.Config[key]; ok && v.Type == ValueString {
		if s, ok := v.Raw.(string); ok {
			return s
		}
	}
	return ""
}

// HasConfig reports whether the trigger carries the given config key.
func (t *Trigger) HasConfig(key string) bool {
	_, ok := t.Config[key]
	return ok
}
