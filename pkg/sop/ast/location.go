package ast

import "fmt"

// Location identifies where a node came from in the source rule document.
// It enables error messages that point at the offending line.
type Location struct {
	File   string // Path to the rule document
	Line   int    // Line number (1-based)
	Column int    // Column number (1-based)
}

// String returns "file:line:column", or "<unknown>" when no file is recorded.
func (l Location) String() string {
	if l.File == "" {
		return "<unknown>"
	}
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}

// IsValid reports whether the location carries usable file and line information.
func (l Location) IsValid() bool {
	return l.File != "" && l.Line > 0
}
