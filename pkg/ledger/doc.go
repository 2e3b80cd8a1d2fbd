// Package ledger is the append-only, hash-chained audit log. Every
// governed action, approval transition and run outcome becomes one entry
// answering who, what, when, where, why and how.
//
// # Architecture
//
//	Append(draft) ──> serialize ──> Seq = last+1
//	                               PreviousHash = last.ContentHash
//	                               ContentHash  = sha256(canonical payload)
//	                               persist
//
//	entry 1            entry 2            entry 3
//	prev: 000…0  <───  prev: hash(1) <─── prev: hash(2)
//	hash: hash(1)      hash: hash(2)      hash: hash(3)
//
// The canonical payload is struct-ordered JSON with free text normalized
// to NFC, so byte-identical hashing survives storage round-trips. Flag
// notes and review status live outside the hashed payload: annotating an
// entry never invalidates the chain, and the annotation itself is recorded
// as a new entry_flagged entry.
//
// Entries are never updated or deleted. VerifyChain recomputes every
// ContentHash and checks every PreviousHash link, reporting the first
// tampered sequence number.
//
// # Basic Usage
//
//	store, err := storage.NewMemoryStorage()
//	if err != nil {
//		return err
//	}
//	led, err := ledger.New(store, nil, logger)
//	if err != nil {
//		return err
//	}
//
//	entry, err := led.Append(ctx, ledger.Entry{
//		EventType:   ledger.EventActionAllowed,
//		Category:    ledger.CategoryAction,
//		Description: "send_email allowed",
//		Who:         ledger.Actor{Type: ledger.ActorCognate, ID: "crm-bot"},
//	})
package ledger
