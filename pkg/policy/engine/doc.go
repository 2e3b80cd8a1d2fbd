// Package engine evaluates proposed cognate actions against the loaded
// policy set and produces a decision: allow, require approval, or deny.
//
// # Architecture
//
//	                 ┌────────────────────────┐
//	 ProposedAction  │        Evaluator       │      Decision
//	────────────────>│                        │─────────────────>
//	                 │  1. scope filter       │  allow /
//	                 │  2. trigger match      │  require_approval /
//	                 │  3. deny wins          │  deny
//	                 │  4. risk aggregation   │
//	                 │  5. auto-approve       │
//	                 └───────┬──────────┬─────┘
//	                         │          │
//	                 ┌───────┴───┐  ┌───┴────────┐
//	                 │  Policy   │  │   Metric   │
//	                 │  Source   │  │   Source   │
//	                 └───────────┘  └────────────┘
//
// The evaluator never mutates policies and holds no state between calls, so
// a single instance is safe for concurrent use. Policies come from a
// PolicySource (normally *policy.Store) whose List order is deterministic;
// ties between equally restrictive policies therefore resolve the same way
// on every node.
//
// # Decision semantics
//
// A policy applies when any of its scopes covers the action and any of its
// triggers matches. Among applicable matches:
//
//   - any deny (approval not required, effect deny) wins immediately
//   - otherwise any match requiring approval, and not auto-approved by one
//     of its predicates, yields require_approval at the most restrictive
//     matched risk level
//   - otherwise the action is allowed; AutoApproved marks decisions where
//     an approval requirement was waived by a predicate
//
// A policy whose trigger cannot be evaluated (unknown operator, undefined
// metric) raises a ConfigurationError into the log and is treated as
// non-matching; the remaining policies still evaluate.
package engine
