// Package diag provides diagnostics for rule-set parsing and validation.
//
// Validation accumulates diagnostics instead of failing on the first
// problem, so authors see every issue in one pass. A Diagnostic carries a
// kind (syntax, structural, semantic, io), a severity (error or warning),
// a dotted path into the document, a source location, and an optional
// suggestion. Lists convert to plain errors via ToError, which returns nil
// when no error-severity diagnostics are present.
package diag
