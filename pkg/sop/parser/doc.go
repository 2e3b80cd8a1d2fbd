// Package parser turns YAML rule documents into typed rule-sets.
//
// Parsing is two-stage: the document is first decoded strictly (unknown
// keys are rejected) into an intermediate form that matches the YAML
// shape, then a builder lowers it into the ast model, assigning IDs where
// the document omits them and normalizing enum case. Per-rule source
// locations are captured from the YAML node tree so diagnostics can point
// at the offending rule.
//
// # Basic Usage
//
//	p := parser.NewParser()
//	rs, err := p.ParseFile("sops/triage.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(rs.Name, len(rs.Rules))
//
// Parsing reports structural problems it cannot build around (unreadable
// file, invalid YAML, non-map trigger). Everything else is left to the
// validator so authors see all findings in one pass.
package parser
