package diag

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/jaretmartin/symtex/pkg/sop/ast"
)

// ExtractContext reads the rule document and returns the lines surrounding
// the given location, formatted with line numbers and an arrow at the
// offending line. Returns "" when the file cannot be read.
func ExtractContext(location ast.Location, contextLines int) string {
	if !location.IsValid() {
		return ""
	}

	file, err := os.Open(location.File)
	if err != nil {
		return ""
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return ""
	}

	errorLine := location.Line - 1
	startLine := errorLine - contextLines
	endLine := errorLine + contextLines

	if startLine < 0 {
		startLine = 0
	}
	if endLine >= len(lines) {
		endLine = len(lines) - 1
	}
	if errorLine < 0 || errorLine >= len(lines) {
		return ""
	}

	var sb strings.Builder
	width := len(fmt.Sprintf("%d", endLine+1))

	for i := startLine; i <= endLine; i++ {
		prefix := "  "
		if i == errorLine {
			prefix = "->"
		}
		sb.WriteString(fmt.Sprintf("%s %*d | %s\n", prefix, width, i+1, lines[i]))
	}

	return sb.String()
}

// WithContext enriches a diagnostic with source context read from its file.
func WithContext(d *Diagnostic, contextLines int) *Diagnostic {
	if d.Location.IsValid() {
		d.Context = ExtractContext(d.Location, contextLines)
	}
	return d
}

// Enrich adds two lines of surrounding context to every diagnostic in the
// list that carries a valid location.
func (l *List) Enrich() {
	for i, d := range l.Diagnostics {
		l.Diagnostics[i] = WithContext(d, 2)
	}
}
