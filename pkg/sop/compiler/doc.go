// Package compiler lowers validated rule-sets into executable script text.
//
// Compilation is a pure function of the rule-set: the same input always
// renders byte-identical output. Only enabled rules compile, in ascending
// order, and each becomes one labeled block:
//
//	# incident-triage v3
//	rule "vip-fast-lane" priority 10
//	  when message
//	  if message.sender == "vip@acme.com" and message.body ~ "urgent"
//	  then
//	    respond(channel="email", template="vip")
//	  else
//	    log(level="info")
//	end
//
// Priorities are the rule order times ten, leaving room to insert rules
// later without renumbering the document.
//
// # Lossy Operators
//
// contains, not_contains, and matches all render as the ~ symbol. The
// script is a write-only artifact: it cannot be parsed back into the exact
// source operators. Treat rendered text as display and execution output,
// never as a storage format.
//
// # Empty Scripts
//
// A rule-set with zero enabled rules compiles to a script whose body is
// the single placeholder comment "# no enabled rules". That is a valid
// empty script, not an error.
package compiler
