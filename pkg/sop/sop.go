package sop

import (
	"github.com/jaretmartin/symtex/pkg/sop/ast"
	"github.com/jaretmartin/symtex/pkg/sop/compiler"
	"github.com/jaretmartin/symtex/pkg/sop/diag"
	"github.com/jaretmartin/symtex/pkg/sop/parser"
	"github.com/jaretmartin/symtex/pkg/sop/validator"
)

// ParseFile parses a rule document without validation.
// Use this to inspect the model before validating.
func ParseFile(path string) (*ast.RuleSet, error) {
	return parser.NewParser().ParseFile(path)
}

// ParseBytes parses rule document YAML from memory without validation.
func ParseBytes(data []byte, sourcePath string) (*ast.RuleSet, error) {
	return parser.NewParser().ParseBytes(data, sourcePath)
}

// Validate runs all validation passes over a parsed rule-set and returns
// the accumulated diagnostics, warnings included.
func Validate(rs *ast.RuleSet) *diag.List {
	return validator.NewValidator().Validate(rs)
}

// ParseAndValidate parses and validates a rule document.
// It returns the rule-set when parsing succeeds and validation finds no
// errors; warnings alone do not fail the call.
func ParseAndValidate(path string) (*ast.RuleSet, error) {
	rs, err := ParseFile(path)
	if err != nil {
		return nil, err
	}

	if err := Validate(rs).ToError(); err != nil {
		return nil, err
	}

	return rs, nil
}

// ParseAndValidateBytes parses and validates rule document YAML from memory.
func ParseAndValidateBytes(data []byte, sourcePath string) (*ast.RuleSet, error) {
	rs, err := ParseBytes(data, sourcePath)
	if err != nil {
		return nil, err
	}

	if err := Validate(rs).ToError(); err != nil {
		return nil, err
	}

	return rs, nil
}

// Compile lowers a rule-set into a script.
func Compile(rs *ast.RuleSet) (*compiler.Script, error) {
	return compiler.Compile(rs)
}

// CompileFile parses, validates, and compiles a rule document in one call.
func CompileFile(path string) (*compiler.Script, error) {
	rs, err := ParseAndValidate(path)
	if err != nil {
		return nil, err
	}
	return compiler.Compile(rs)
}
