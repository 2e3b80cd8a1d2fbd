package diag

import (
	"fmt"
	"strings"

	"github.com/jaretmartin/symtex/pkg/sop/ast"
)

// Kind categorizes a diagnostic raised during parsing or validation.
type Kind string

const (
	KindSyntax     Kind = "syntax"     // YAML syntax error
	KindStructural Kind = "structural" // Missing or malformed fields
	KindSemantic   Kind = "semantic"   // Unknown enum value, inconsistent content
	KindIO         Kind = "io"         // File access error
)

// Severity splits diagnostics into blocking errors and advisory warnings.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Diagnostic is a single finding with location, path, and an optional fix.
type Diagnostic struct {
	Kind       Kind         // Category of finding
	Severity   Severity     // error blocks compilation, warning does not
	Message    string       // What is wrong
	Path       string       // Dotted path into the document (rules[2].conditions[0].field)
	Location   ast.Location // Source location (file, line, column)
	Context    string       // Surrounding source lines
	Suggestion string       // Suggested fix (optional)
}

// Error implements the error interface with location and suggestion detail.
func (d *Diagnostic) Error() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("[%s/%s] %s\n", d.Kind, d.Severity, d.Message))

	if d.Path != "" {
		sb.WriteString(fmt.Sprintf("  at %s\n", d.Path))
	}
	if d.Location.IsValid() {
		sb.WriteString(fmt.Sprintf("  --> %s\n", d.Location.String()))
	}
	if d.Context != "" {
		sb.WriteString("  |\n")
		sb.WriteString(d.Context)
		sb.WriteString("  |\n")
	}
	if d.Suggestion != "" {
		sb.WriteString(fmt.Sprintf("  = suggestion: %s\n", d.Suggestion))
	}

	return sb.String()
}

// List accumulates diagnostics across validation passes.
type List struct {
	Diagnostics []*Diagnostic
}

// NewList creates an empty diagnostic list.
func NewList() *List {
	return &List{
		Diagnostics: make([]*Diagnostic, 0),
	}
}

// Add appends a diagnostic to the list.
func (l *List) Add(d *Diagnostic) {
	l.Diagnostics = append(l.Diagnostics, d)
}

// AddError appends an error-severity diagnostic.
func (l *List) AddError(kind Kind, message, path string, location ast.Location) {
	l.Add(&Diagnostic{
		Kind:     kind,
		Severity: SeverityError,
		Message:  message,
		Path:     path,
		Location: location,
	})
}

// AddErrorWithSuggestion appends an error-severity diagnostic with a fix hint.
func (l *List) AddErrorWithSuggestion(kind Kind, message, path string, location ast.Location, suggestion string) {
	l.Add(&Diagnostic{
		Kind:       kind,
		Severity:   SeverityError,
		Message:    message,
		Path:       path,
		Location:   location,
		Suggestion: suggestion,
	})
}

// AddWarning appends a warning-severity diagnostic.
func (l *List) AddWarning(kind Kind, message, path string, location ast.Location) {
	l.Add(&Diagnostic{
		Kind:     kind,
		Severity: SeverityWarning,
		Message:  message,
		Path:     path,
		Location: location,
	})
}

// HasErrors reports whether any diagnostic is error severity.
func (l *List) HasErrors() bool {
	for _, d := range l.Diagnostics {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Count returns the total number of diagnostics.
func (l *List) Count() int {
	return len(l.Diagnostics)
}

// ErrorCount returns the number of error-severity diagnostics.
func (l *List) ErrorCount() int {
	n := 0
	for _, d := range l.Diagnostics {
		if d.Severity == SeverityError {
			n++
		}
	}
	return n
}

// WarningCount returns the number of warning-severity diagnostics.
func (l *List) WarningCount() int {
	return len(l.Diagnostics) - l.ErrorCount()
}

// ByKind returns all diagnostics of the given kind.
func (l *List) ByKind(kind Kind) []*Diagnostic {
	var result []*Diagnostic
	for _, d := range l.Diagnostics {
		if d.Kind == kind {
			result = append(result, d)
		}
	}
	return result
}

// HasKind reports whether the list contains at least one diagnostic of the
// given kind, regardless of severity.
func (l *List) HasKind(kind Kind) bool {
	for _, d := range l.Diagnostics {
		if d.Kind == kind {
			return true
		}
	}
	return false
}

// Merge appends every diagnostic from other into this list.
func (l *List) Merge(other *List) {
	if other == nil {
		return
	}
	l.Diagnostics = append(l.Diagnostics, other.Diagnostics...)
}

// Error implements the error interface over the whole list.
func (l *List) Error() string {
	if l.Count() == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("found %d error(s), %d warning(s):\n\n", l.ErrorCount(), l.WarningCount()))

	for i, d := range l.Diagnostics {
		sb.WriteString(fmt.Sprintf("%d. ", i+1))
		sb.WriteString(d.Error())
		sb.WriteString("\n")
	}

	return sb.String()
}

// ToError returns nil when the list has no error-severity diagnostics,
// otherwise the list itself. Warnings alone never produce an error.
func (l *List) ToError() error {
	if !l.HasErrors() {
		return nil
	}
	return l
}
