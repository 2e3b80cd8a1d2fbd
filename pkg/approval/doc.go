// Package approval implements the human-in-the-loop workflow for actions
// that policy evaluation parked behind an approval requirement.
//
// # Architecture
//
//	┌──────────┐   Open            ┌────────────┐
//	│ Governor │ ────────────────> │  Workflow  │
//	└──────────┘                   │            │
//	     │       Approve/Reject/   │  ┌───────┐ │    ┌──────────┐
//	     └─────── Modify/Rerun ──> │  │timers │ │ ─> │ Notifier │
//	                               │  └───────┘ │    └──────────┘
//	                               └─────┬──────┘
//	                                     │ atomic transitions
//	                                     v
//	                               ┌────────────┐
//	                               │   Store    │  memory | sqlite
//	                               └────────────┘
//
// A request starts pending and ends in exactly one terminal state:
// approved, rejected or modified. The first transition wins; concurrent
// deciders lose with a StateTransitionError carrying the status they
// collided with. Escalation timers advance pending requests through the
// policy's escalation levels, and a cron-scheduled reconciler sweeps
// requests past their deadline into rejected with ExpiredReason set.
// Nothing is ever approved implicitly.
//
// # Basic Usage
//
//	store := approval.NewMemoryStore()
//	workflow, err := approval.NewWorkflow(approval.DefaultConfig(), store, nil, nil, logger)
//	if err != nil {
//		return err
//	}
//	defer workflow.Close()
//
//	req, err := workflow.Open(ctx, decision, action, pol)
//	...
//	req, err = workflow.Approve(ctx, req.ID, approval.Verdict{Actor: "dana", Reason: "looks safe"})
package approval
