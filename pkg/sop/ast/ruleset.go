package ast

import (
	"sort"
	"time"
)

// Status represents the lifecycle state of a rule-set.
type Status string

const (
	StatusDraft    Status = "draft"
	StatusActive   Status = "active"
	StatusArchived Status = "archived"
)

// IsValid reports whether the status is one of the known lifecycle states.
func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusActive, StatusArchived:
		return true
	}
	return false
}

// RuleSet is the root node for a standard operating procedure.
// It contains metadata and the ordered rules that define behavior.
type RuleSet struct {
	// Metadata
	ID          string    // Stable identifier (uuid, assigned if absent)
	Name        string    // Rule-set name
	Description string    // Human-readable description
	Version     int       // Document revision, incremented on edit
	Status      Status    // Lifecycle state (draft, active, archived)
	Priority    int       // Relative priority among rule-sets
	Category    string    // Grouping label
	Tags        []string  // Tags for categorization
	CreatedAt   time.Time // Creation timestamp (UTC)
	UpdatedAt   time.Time // Last update timestamp (UTC)

	// Content
	Rules []*Rule // Rules in authored order

	// Source tracking
	SourceFile string   // Path to the rule document
	Location   Location // Source location
}

// FindRule returns the rule with the given ID, or nil if not found.
func (rs *RuleSet) FindRule(id string) *Rule {
	for _, rule := range rs.Rules {
		if rule.ID == id {
			return rule
		}
	}
	return nil
}

// FindRuleByName returns the rule with the given name, or nil if not found.
func (rs *RuleSet) FindRuleByName(name string) *Rule {
	for _, rule := range rs.Rules {
		if rule.Name == name {
			return rule
		}
	}
	return nil
}

// EnabledRules returns the enabled rules sorted by ascending Order.
// The sort is stable, so rules sharing an order keep their authored sequence.
func (rs *RuleSet) EnabledRules() []*Rule {
	enabled := make([]*Rule, 0, len(rs.Rules))
	for _, rule := range rs.Rules {
		if rule.Enabled {
			enabled = append(enabled, rule)
		}
	}
	sort.SliceStable(enabled, func(i, j int) bool {
		return enabled[i].Order < enabled[j].Order
	})
	return enabled
}

// RuleCount returns the total number of rules in the rule-set.
func (rs *RuleSet) RuleCount() int {
	return len(rs.Rules)
}

// EnabledRuleCount returns the number of enabled rules.
func (rs *RuleSet) EnabledRuleCount() int {
	n := 0
	for _, rule := range rs.Rules {
		if rule.Enabled {
			n++
		}
	}
	return n
}
