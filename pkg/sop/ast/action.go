package ast

// ActionType identifies what a rule does when it fires.
// The set is closed: unknown types are rejected during validation.
type ActionType string

const (
	ActionRespond  ActionType = "respond"  // Send a reply on a channel
	ActionEscalate ActionType = "escalate" // Hand off to a human or higher tier
	ActionLog      ActionType = "log"      // Record an event
	ActionNotify   ActionType = "notify"   // Alert a target out of band
	ActionExecute  ActionType = "execute"  // Run a named command or tool
	ActionWait     ActionType = "wait"     // Pause for a duration
	ActionBranch   ActionType = "branch"   // Jump to another rule-set
)

// ActionTypes lists every known action type, in documentation order.
var ActionTypes = []ActionType{
	ActionRespond,
	ActionEscalate,
	ActionLog,
	ActionNotify,
	ActionExecute,
	ActionWait,
	ActionBranch,
}

// requiredConfig names the config keys each action type cannot omit.
var requiredConfig = map[ActionType][]string{
	ActionRespond: {"channel"},
	ActionNotify:  {"target"},
	ActionExecute: {"command"},
	ActionWait:    {"duration"},
	ActionBranch:  {"ruleset"},
}

// IsValid reports whether the action type is part of the closed set.
func (t ActionType) IsValid() bool {
	for _, at := range ActionTypes {
		if t == at {
			return true
		}
	}
	return false
}

// RequiredConfig returns the config keys this action type must carry.
func (t ActionType) RequiredConfig() []string {
	return requiredConfig[t]
}

// Action is one step in a rule's then or else branch.
type Action struct {
	Type     ActionType        // Action variant
	Label    string            // Optional display label
	Config   map[string]*Value // Type-specific configuration
	Location Location          // Source location
}

// ConfigValue returns the config value for the given key, or nil if absent.
func (a *Action) ConfigValue(key string) *Value {
	return a.Config[key]
}

// ConfigString returns the string value of a config key.
// Returns "" when the key is absent or not a string.
func (a *Action) ConfigString(key string) string {
	if v := a.Config[key]; v != nil && v.Type == ValueString {
		if s, ok := v.Raw.(string); ok {
			return s
		}
	}
	return ""
}

// ConfigNumber returns the numeric value of a config key.
// Returns 0 when the key is absent or not a number.
func (a *Action) ConfigNumber(key string) float64 {
	if v := a.Config[key]; v != nil && v.Type == ValueNumber {
		if n, ok := v.Raw.(float64); ok {
			return n
		}
	}
	return 0
}

// ConfigBool returns the boolean value of a config key.
// Returns false when the key is absent or not a boolean.
func (a *Action) ConfigBool(key string) bool {
	if v := a.Config[key]; v != nil && v.Type == ValueBoolean {
		if b, ok := v.Raw.(bool); ok {
			return b
		}
	}
	return false
}

// MissingConfig returns the required config keys this action does not carry.
func (a *Action) MissingConfig() []string {
	var missing []string
	for _, key := range a.Type.RequiredConfig() {
		if _, ok := a.Config[key]; !ok {
			missing = append(missing, key)
		}
	}
	return missing
}
