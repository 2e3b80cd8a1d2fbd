package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/text/unicode/norm"
)

const (
	// HashAlgorithm is the digest recorded in every CryptoRecord.
	HashAlgorithm = "sha256"

	// GenesisHash anchors the first entry's PreviousHash.
	GenesisHash = "0000000000000000000000000000000000000000000000000000000000000000"
)

// hashedPayload is the exact structure that gets hashed. Field order is
// fixed by the struct; map keys are sorted by encoding/json. Annotations
// (Flagged, FlagNote, ReviewStatus) and the CryptoRecord itself are
// excluded, except for PreviousHash, which is hashed so each ContentHash
// commits to the entire chain before it.
type hashedPayload struct {
	ID           string    `json:"id"`
	Seq          int64     `json:"seq"`
	EventType    EventType `json:"event_type"`
	Category     string    `json:"category"`
	Severity     Severity  `json:"severity"`
	Description  string    `json:"description"`
	Who          Actor     `json:"who"`
	What         Subject   `json:"what"`
	When         time.Time `json:"when"`
	Where        Origin    `json:"where"`
	Why          Rationale `json:"why"`
	How          Mechanism    `json:"how"`
	Tags         []string     `json:"tags"`
	Evidence     []Attachment `json:"evidence"`
	PreviousHash string       `json:"previous_hash"`
}

// canonicalPayload builds the byte-stable form of an entry. Free-text
// fields are NFC-normalized so the hash survives storage backends that
// re-encode Unicode, and empty collections collapse to nil so "absent"
// and "empty" hash identically.
func canonicalPayload(e *Entry) ([]byte, error) {
	who := Actor{
		Type: e.Who.Type,
		ID:   e.Who.ID,
		Name: norm.NFC.String(e.Who.Name),
	}
	if len(e.Who.Metadata) > 0 {
		who.Metadata = e.Who.Metadata
	}

	how := Mechanism{Method: e.How.Method, Model: e.How.Model}
	if len(e.How.Parameters) > 0 {
		how.Parameters = e.How.Parameters
	}
	if len(e.How.Tools) > 0 {
		how.Tools = e.How.Tools
	}
	if len(e.How.Steps) > 0 {
		how.Steps = make([]string, len(e.How.Steps))
		for i, step := range e.How.Steps {
			how.Steps[i] = norm.NFC.String(step)
		}
	}
	if len(e.How.ResourceUsage) > 0 {
		how.ResourceUsage = e.How.ResourceUsage
	}

	var evidence []Attachment
	if len(e.Evidence) > 0 {
		evidence = make([]Attachment, len(e.Evidence))
		for i, att := range e.Evidence {
			evidence[i] = Attachment{
				Name:      norm.NFC.String(att.Name),
				MediaType: att.MediaType,
				URI:       att.URI,
				Digest:    att.Digest,
			}
		}
	}

	payload := hashedPayload{
		ID:          e.ID,
		Seq:         e.Seq,
		EventType:   e.EventType,
		Category:    e.Category,
		Severity:    e.Severity,
		Description: norm.NFC.String(e.Description),
		Who:         who,
		What: Subject{
			Kind: e.What.Kind,
			ID:   e.What.ID,
			Name: norm.NFC.String(e.What.Name),
		},
		When:  e.When.UTC(),
		Where: e.Where,
		Why: Rationale{
			Reason:     norm.NFC.String(e.Why.Reason),
			PolicyID:   e.Why.PolicyID,
			RequestID:  e.Why.RequestID,
			RuleSetID:  e.Why.RuleSetID,
			Confidence: e.Why.Confidence,
		},
		How:          how,
		Tags:         normalizeTags(e.Tags),
		Evidence:     evidence,
		PreviousHash: e.Crypto.PreviousHash,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal hashed payload: %w", err)
	}
	return data, nil
}

// computeContentHash returns the hex sha256 of the entry's canonical
// payload. The entry's Seq and Crypto.PreviousHash must already be set.
func computeContentHash(e *Entry) (string, error) {
	data, err := canonicalPayload(e)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

func normalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	out := make([]string, len(tags))
	for i, tag := range tags {
		out[i] = norm.NFC.String(tag)
	}
	return out
}
