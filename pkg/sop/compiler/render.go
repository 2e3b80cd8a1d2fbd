package compiler

import (
	"fmt"
	"strings"
)

// Render produces the script text. Rendering is deterministic: blocks keep
// their compiled order and call args were sorted at compile time, so the
// same script always yields byte-identical text.
func (s *Script) Render() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# %s v%d\n", s.Name, s.Version)

	if len(s.Blocks) == 0 {
		sb.WriteString("# no enabled rules\n")
		return sb.String()
	}

	for _, block := range s.Blocks {
		sb.WriteByte('\n')
		block.render(&sb)
	}

	return sb.String()
}

// render writes one block. Empty clauses, calls, and triggers are the
// compiler's degraded form of unexpressible constructs; they render as
// nothing rather than as malformed lines.
func (b *Block) render(sb *strings.Builder) {
	fmt.Fprintf(sb, "rule %q priority %d\n", b.Label, b.Priority)
	if b.Trigger != "" {
		fmt.Fprintf(sb, "  when %s\n", b.Trigger)
	}

	parts := make([]string, 0, len(b.Clauses))
	for _, clause := range b.Clauses {
		if s := clause.String(); s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) > 0 {
		fmt.Fprintf(sb, "  if %s\n", strings.Join(parts, " and "))
	}

	sb.WriteString("  then\n")
	for _, call := range b.Then {
		if s := call.String(); s != "" {
			fmt.Fprintf(sb, "    %s\n", s)
		}
	}

	renderElse := false
	for _, call := range b.Else {
		if call.Action != "" {
			renderElse = true
		}
	}
	if renderElse {
		sb.WriteString("  else\n")
		for _, call := range b.Else {
			if s := call.String(); s != "" {
				fmt.Fprintf(sb, "    %s\n", s)
			}
		}
	}

	sb.WriteString("end\n")
}

// String renders a clause as "field symbol value".
// Presence operators render without a value; the empty clause renders as "".
func (c Clause) String() string {
	if c.Symbol == "" {
		return ""
	}
	if c.Value == "" {
		return c.Field + " " + c.Symbol
	}
	return fmt.Sprintf("%s %s %s", c.Field, c.Symbol, c.Value)
}

// String renders a call as "action(key=value, ...)".
// The empty call renders as "".
func (c Call) String() string {
	if c.Action == "" {
		return ""
	}
	if len(c.Args) == 0 {
		return c.Action + "()"
	}

	parts := make([]string, len(c.Args))
	for i, arg := range c.Args {
		parts[i] = arg.Key + "=" + arg.Value
	}
	return fmt.Sprintf("%s(%s)", c.Action, strings.Join(parts, ", "))
}
