// Package ast defines the typed model for SOP rule-sets.
//
// A rule-set (standard operating procedure) is the parsed form of a YAML
// rule document. It carries metadata, lifecycle status, and an ordered list
// of rules. Each rule pairs a trigger with conditions and actions. All nodes
// preserve source location information for error reporting.
//
// # Core Types
//
// RuleSet: root node with metadata, status, and rules
//
// Rule: trigger + conditions (AND semantics) + then/else action lists
//
// Trigger: tagged variant (message, event, schedule, condition, manual)
//
// Condition: field / operator / value predicate
//
// Action: closed type set (respond, escalate, log, notify, execute, wait, branch)
//
// Value: typed literal (string, number, boolean, array, object, null)
//
// # Structure
//
// The model mirrors the YAML document:
//
//	RuleSet
//	├── Metadata (name, version, status, priority, category, tags)
//	└── Rules ([]*Rule, ordered)
//	    ├── Trigger (kind + config)
//	    ├── Conditions ([]*Condition, all must hold)
//	    ├── Then ([]*Action)
//	    └── Else ([]*Action, optional)
//
// # Immutability
//
// Nodes should be treated as immutable after construction. The parser builds
// the tree once; the validator and compiler inspect it without modification.
package ast
