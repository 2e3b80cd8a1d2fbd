// Package storage provides the ledger's persistence backends: an
// in-memory store for tests and examples, SQLite for single-node
// deployments, and Postgres for shared ones. All three persist the exact
// hashed payload bytes' source fields, so chain verification works
// identically regardless of backend.
package storage
