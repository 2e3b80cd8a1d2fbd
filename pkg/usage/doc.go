// Package usage tracks cognate activity over rolling time windows and
// serves the built-in metrics that threshold policy triggers reference.
//
// # Architecture
//
//	                 RecordAction(cognate, space, cost)
//	                               |
//	                               v
//	┌─────────────────────────── Tracker ───────────────────────────┐
//	│                                                               │
//	│  cognate:crm-bot          space:sales                         │
//	│  ┌──────────────────┐     ┌──────────────────┐                │
//	│  │ actions (1h)     │     │ actions (1h)     │                │
//	│  │ actions (24h)    │     │ actions (24h)    │                │
//	│  │ spend   (24h)    │     │ spend   (24h)    │                │
//	│  └──────────────────┘     └──────────────────┘                │
//	│                                                               │
//	└───────────────────────────────────────────────────────────────┘
//	                               |
//	                               v
//	                 Metric("spend_per_day", action)
//
// Each window is a circular buffer of time buckets (1-minute buckets for
// the hourly window, 1-hour buckets for the daily ones). Expired buckets
// are pruned on access, so the tracker needs no background goroutine.
//
// # Basic Usage
//
//	tracker := usage.NewTracker(logger)
//	tracker.RecordAction("crm-bot", "sales", 0.45)
//
//	// Tracker satisfies engine.MetricSource:
//	evaluator, _ := engine.NewEvaluator(store, tracker, logger)
package usage
