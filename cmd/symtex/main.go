// Symtex is a governance runtime for autonomous agents.
//
// It evaluates proposed agent actions against declarative policies,
// routes risky actions through an approval workflow, and records every
// decision in a hash-chained audit ledger:
//   - Policy evaluation (allow, require_approval, deny)
//   - Approval workflow with escalation and expiry
//   - Tamper-evident audit ledger with chain verification
//   - Rule-set compilation to deterministic scripts
//
// Usage:
//
//	# Check a rule-set before rollout
//	symtex lint ruleset.yaml
//
//	# Compile a rule-set to script form
//	symtex compile ruleset.yaml -o ruleset.s1
//
//	# Evaluate an action against a policy set
//	symtex simulate -p policies/ --action-type send_email --cognate crm-bot
//
//	# Work the approval queue
//	symtex approvals list --status pending
//	symtex approvals approve req-42 --by dana --reason "recipient checked"
//
//	# Audit the ledger
//	symtex ledger verify
//	symtex ledger query --severity error --limit 20
//	symtex ledger export --format csv -o audit.csv
//
// For complete documentation, see: https://github.com/jaretmartin/symtex
package main

func main() {
	Execute()
}
