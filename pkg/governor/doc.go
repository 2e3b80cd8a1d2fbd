// Package governor is the integration facade tying rule evaluation, the
// approval workflow and the audit ledger into a single surface for
// embedding applications and the CLI.
//
// # Architecture
//
//	                    ┌───────────────────┐
//	 SubmitAction ────> │     Governor      │
//	 Resolve/Rerun ───> │                   │
//	 ReportOutcome ───> │  (no global state)│
//	                    └──┬────┬────┬────┬─┘
//	                       │    │    │    │
//	           ┌───────────┘    │    │    └──────────────┐
//	           v                v    v                   v
//	    ┌────────────┐  ┌──────────┐ ┌────────┐  ┌──────────────┐
//	    │ engine.    │  │ approval.│ │ usage. │  │ ledger.Ledger│
//	    │ Evaluator  │  │ Workflow │ │ Tracker│  │ (hash chain) │
//	    └────────────┘  └──────────┘ └────────┘  └──────────────┘
//
// Every operation leaves a ledger entry: submissions record the decision
// (action_allowed, action_denied or approval_requested), resolutions record
// the verdict, outcome reports record how the run went, and rule-set
// compilation records the script checksum. The ledger is the system of
// record; the governor never mutates state without writing to it.
//
// # Basic Usage
//
//	gov, err := governor.New(evaluator, workflow, led, tracker, store, nil, logger)
//	if err != nil {
//		return err
//	}
//
//	sub, err := gov.SubmitAction(ctx, action)
//	if err != nil {
//		return err
//	}
//	if sub.Request != nil {
//		// parked behind an approval; resolve it later
//		_, err = gov.Resolve(ctx, sub.Request.ID, governor.ResolutionApprove,
//			approval.Verdict{Actor: "dana", Reason: "checked the recipient"})
//	}
package governor
