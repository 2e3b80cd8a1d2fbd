package parser

import (
	"fmt"
	"io"
	"os"

	"github.com/jaretmartin/symtex/pkg/sop/ast"
	"github.com/jaretmartin/symtex/pkg/sop/diag"
)

// Parser parses SOP rule documents into typed rule-sets.
type Parser struct {
	maxFileSize int64 // Maximum document size in bytes (default: 10MB)
}

// NewParser creates a parser with default configuration.
func NewParser() *Parser {
	return &Parser{
		maxFileSize: 10 * 1024 * 1024, // 10MB
	}
}

// WithMaxFileSize sets the maximum document size.
func (p *Parser) WithMaxFileSize(size int64) *Parser {
	p.maxFileSize = size
	return p
}

// ParseFile parses the rule document at the given path.
func (p *Parser) ParseFile(path string) (*ast.RuleSet, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &diag.Diagnostic{
			Kind:     diag.KindIO,
			Severity: diag.SeverityError,
			Message:  fmt.Sprintf("failed to access document: %v", err),
			Location: ast.Location{File: path},
		}
	}

	if info.Size() > p.maxFileSize {
		return nil, &diag.Diagnostic{
			Kind:     diag.KindIO,
			Severity: diag.SeverityError,
			Message:  fmt.Sprintf("document size %d exceeds maximum %d bytes", info.Size(), p.maxFileSize),
			Location: ast.Location{File: path},
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &diag.Diagnostic{
			Kind:     diag.KindIO,
			Severity: diag.SeverityError,
			Message:  fmt.Sprintf("failed to read document: %v", err),
			Location: ast.Location{File: path},
		}
	}

	return p.ParseBytes(data, path)
}

// ParseBytes parses rule document YAML from a byte slice.
// sourcePath is used for locations in diagnostics only.
func (p *Parser) ParseBytes(data []byte, sourcePath string) (*ast.RuleSet, error) {
	if int64(len(data)) > p.maxFileSize {
		return nil, &diag.Diagnostic{
			Kind:     diag.KindIO,
			Severity: diag.SeverityError,
			Message:  fmt.Sprintf("document size %d exceeds maximum %d bytes", len(data), p.maxFileSize),
			Location: ast.Location{File: sourcePath},
		}
	}

	doc, ruleLocs, err := parseYAMLBytes(data, sourcePath)
	if err != nil {
		return nil, &diag.Diagnostic{
			Kind:       diag.KindSyntax,
			Severity:   diag.SeverityError,
			Message:    fmt.Sprintf("YAML parsing failed: %v", err),
			Location:   ast.Location{File: sourcePath, Line: 1, Column: 1},
			Suggestion: "check YAML syntax (indentation, colons, quotes) and field names",
		}
	}

	b := newBuilder(sourcePath)
	rs, err := b.buildRuleSet(doc, ruleLocs)
	if err != nil {
		if list, ok := err.(*diag.List); ok {
			list.Enrich()
		}
		return nil, err
	}

	return rs, nil
}

// Parse parses a rule document from a reader.
func (p *Parser) Parse(r io.Reader, sourcePath string) (*ast.RuleSet, error) {
	data, err := io.ReadAll(io.LimitReader(r, p.maxFileSize+1))
	if err != nil {
		return nil, &diag.Diagnostic{
			Kind:     diag.KindIO,
			Severity: diag.SeverityError,
			Message:  fmt.Sprintf("failed to read document: %v", err),
			Location: ast.Location{File: sourcePath},
		}
	}
	return p.ParseBytes(data, sourcePath)
}
