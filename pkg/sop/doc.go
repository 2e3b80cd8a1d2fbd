// Package sop provides parsing, validation, and compilation for SOP
// rule-sets.
//
// A rule-set (standard operating procedure) is a declarative YAML document
// describing how a cognate handles recurring situations: what triggers a
// rule, which conditions gate it, and which actions follow. Rule-sets
// compile into deterministic script text that the execution runtime
// consumes and auditors read.
//
// # Architecture
//
// The package is organized into subpackages:
//
//   - ast: typed rule-set model
//   - parser: YAML parsing and model construction
//   - validator: structural and semantic validation
//   - compiler: deterministic lowering to script text
//   - diag: diagnostics with locations and suggestions
//
// The pipeline runs parse -> validate -> compile:
//
//	document.yaml --> Parser --> ast.RuleSet --> Validator --> diag.List
//	                                  |
//	                                  v
//	                              Compiler --> Script --> Render() text
//
// # Basic Usage
//
//	rs, err := sop.ParseAndValidate("sops/triage.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	script, err := sop.Compile(rs)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Print(script.Render())
//
// # Determinism
//
// Compilation is a pure function: identical rule-sets render byte-identical
// script text, rules compile in ascending order, and disabled rules never
// appear in the output.
package sop
