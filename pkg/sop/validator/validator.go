package validator

import (
	"github.com/jaretmartin/symtex/pkg/sop/ast"
	"github.com/jaretmartin/symtex/pkg/sop/diag"
)

// Validator orchestrates the validation passes over a rule-set.
type Validator struct {
	structural *StructuralValidator
	semantic   *SemanticValidator
}

// NewValidator creates a validator with all passes.
func NewValidator() *Validator {
	return &Validator{
		structural: NewStructuralValidator(),
		semantic:   NewSemanticValidator(),
	}
}

// Validate runs all passes and returns the accumulated diagnostics.
// The semantic pass runs only when the structural pass found no errors,
// so a missing field does not also surface as an enum mismatch.
func (v *Validator) Validate(rs *ast.RuleSet) *diag.List {
	findings := diag.NewList()

	findings.Merge(v.structural.Validate(rs))

	if !findings.HasErrors() {
		findings.Merge(v.semantic.Validate(rs))
	}

	return findings
}

// ValidateStructural runs only the structural pass.
func (v *Validator) ValidateStructural(rs *ast.RuleSet) *diag.List {
	return v.structural.Validate(rs)
}

// ValidateSemantic runs only the semantic pass.
func (v *Validator) ValidateSemantic(rs *ast.RuleSet) *diag.List {
	return v.semantic.Validate(rs)
}
