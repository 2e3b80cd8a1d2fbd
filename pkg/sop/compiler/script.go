package compiler

import (
	"crypto/sha256"
	"encoding/hex"
)

// Script is the compiled form of a rule-set: an ordered list of blocks
// ready for deterministic rendering. Tests and callers can inspect the
// structure without re-parsing the rendered text.
type Script struct {
	RuleSetID string   // Source rule-set ID
	Name      string   // Rule-set name, echoed in the header
	Version   int      // Rule-set version, echoed in the header
	Blocks    []*Block // One block per enabled rule, ascending order
}

// Block is one compiled rule.
type Block struct {
	Label    string   // Rule name
	Priority int      // Rule order times ten
	Trigger  string   // Trigger kind
	Clauses  []Clause // Condition predicates in authored order
	Then     []Call   // Actions when the clauses hold
	Else     []Call   // Actions when they do not (may be empty)
}

// Clause is one rendered condition predicate.
// Presence operators (exists, not exists) leave Value empty.
type Clause struct {
	Field  string // Namespaced field path
	Symbol string // Operator symbol
	Value  string // Rendered literal
}

// Call is one rendered action invocation.
type Call struct {
	Action string // Action type
	Args   []Arg  // Config pairs, sorted by key
}

// Arg is a single key=value pair in a call.
type Arg struct {
	Key   string
	Value string
}

// BlockCount returns the number of compiled blocks.
func (s *Script) BlockCount() int {
	return len(s.Blocks)
}

// IsEmpty reports whether the script has no blocks.
func (s *Script) IsEmpty() bool {
	return len(s.Blocks) == 0
}

// Checksum returns the SHA-256 hex digest of the rendered script text.
func (s *Script) Checksum() string {
	sum := sha256.Sum256([]byte(s.Render()))
	return hex.EncodeToString(sum[:])
}
