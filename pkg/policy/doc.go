// Package policy defines the governance policy model and the machinery for
// loading and serving policies to the evaluation engine.
//
// A policy binds a set of scopes (where it applies) and triggers (what it
// reacts to) to an outcome: an effect (allow or deny) or an approval
// requirement with approvers, escalation levels, and optional auto-approve
// predicates.
//
// # Architecture
//
//	┌──────────────┐     ┌──────────────┐     ┌──────────────┐
//	│    Loader    │────>│    Store     │<────│   Watcher    │
//	│ (yaml files) │     │ (versioned)  │     │  (fsnotify)  │
//	└──────────────┘     └──────┬───────┘     └──────────────┘
//	                            │
//	                            v
//	                     ┌──────────────┐
//	                     │   Evaluator  │
//	                     │ (pkg/.../engine)
//	                     └──────────────┘
//
// The Loader reads one file or a directory tree of YAML policy documents and
// validates each one. The Store is a thread-safe registry with a monotonic
// version counter; reloads replace its contents atomically so the evaluator
// never observes a half-applied set. The Watcher is optional: it debounces
// file system events and drives the Store through the same Replace path.
//
// # Basic Usage
//
//	loader := policy.NewLoader(nil)
//	policies, err := loader.Load("policies/")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	store := policy.NewStore()
//	if err := store.Replace(policies); err != nil {
//		log.Fatal(err)
//	}
//
//	for _, p := range store.List() {
//		fmt.Println(p.Name, p.RiskLevel)
//	}
package policy
