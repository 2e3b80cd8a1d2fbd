// Package validator checks rule-sets before compilation.
//
// Two passes run in sequence:
//
// 1. Structural: required fields, at least one rule, rule name uniqueness,
// trigger presence, condition fields, value presence per operator.
//
// 2. Semantic: enum membership (status, trigger kind, operator, action
// type), required action config keys, duplicate rule orders, archived
// rule-sets that still enable rules. Runs only when the structural pass
// found no errors, which prevents cascading findings.
//
// Validation is non-fatal: every finding is accumulated into a diag.List
// so authors fix a document in one pass. Warnings never block compilation.
//
//	rs, err := parser.NewParser().ParseFile("sops/triage.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	findings := validator.NewValidator().Validate(rs)
//	for _, d := range findings.Diagnostics {
//	    fmt.Print(d.Error())
//	}
//	if findings.HasErrors() {
//	    os.Exit(1)
//	}
package validator
