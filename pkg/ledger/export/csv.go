package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jaretmartin/symtex/pkg/ledger"
)

// CSVExporter writes entries as CSV rows, one per entry. Nested structures
// are flattened: tags become a semicolon-separated list, mechanism
// parameters become a JSON blob.
type CSVExporter struct {
	// IncludeHeader writes a header row first.
	IncludeHeader bool
}

// NewCSVExporter creates a CSV exporter.
func NewCSVExporter(includeHeader bool) *CSVExporter {
	return &CSVExporter{IncludeHeader: includeHeader}
}

// Export writes the entries to w in CSV format.
func (e *CSVExporter) Export(ctx context.Context, entries []*ledger.Entry, w io.Writer) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if e.IncludeHeader {
		if err := writer.Write(headerRow()); err != nil {
			return err
		}
	}

	for _, entry := range entries {
		if err := writer.Write(entryRow(entry)); err != nil {
			return err
		}
	}
	return writer.Error()
}

// ExportStream writes entries arriving on the channel to w in CSV format,
// flushing every 100 rows so long extracts make visible progress.
func (e *CSVExporter) ExportStream(ctx context.Context, entries <-chan *ledger.Entry, w io.Writer) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if e.IncludeHeader {
		if err := writer.Write(headerRow()); err != nil {
			return err
		}
	}

	written := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case entry, ok := <-entries:
			if !ok {
				writer.Flush()
				return writer.Error()
			}

			if err := writer.Write(entryRow(entry)); err != nil {
				return err
			}
			written++
			if written%100 == 0 {
				writer.Flush()
				if err := writer.Error(); err != nil {
					return err
				}
			}
		}
	}
}

func headerRow() []string {
	return []string{
		"seq", "id", "event_type", "category", "severity", "description",
		"actor_type", "actor_id", "actor_name",
		"subject_kind", "subject_id", "subject_name",
		"when", "space_id", "project_id", "component",
		"reason", "policy_id", "request_id", "ruleset_id", "confidence",
		"method", "parameters", "tools", "model", "steps", "resource_usage",
		"tags", "evidence",
		"content_hash", "previous_hash", "algorithm", "hashed_at",
		"flagged", "flag_note", "review_status",
	}
}

func entryRow(e *ledger.Entry) []string {
	parameters := ""
	if len(e.How.Parameters) > 0 {
		data, _ := json.Marshal(e.How.Parameters)
		parameters = string(data)
	}
	resourceUsage := ""
	if len(e.How.ResourceUsage) > 0 {
		data, _ := json.Marshal(e.How.ResourceUsage)
		resourceUsage = string(data)
	}
	evidence := ""
	if len(e.Evidence) > 0 {
		data, _ := json.Marshal(e.Evidence)
		evidence = string(data)
	}
	confidence := ""
	if e.Why.Confidence != 0 {
		confidence = fmt.Sprintf("%g", e.Why.Confidence)
	}

	return []string{
		fmt.Sprintf("%d", e.Seq),
		e.ID,
		string(e.EventType),
		e.Category,
		string(e.Severity),
		e.Description,
		string(e.Who.Type),
		e.Who.ID,
		e.Who.Name,
		e.What.Kind,
		e.What.ID,
		e.What.Name,
		e.When.Format(time.RFC3339Nano),
		e.Where.SpaceID,
		e.Where.ProjectID,
		e.Where.Component,
		e.Why.Reason,
		e.Why.PolicyID,
		e.Why.RequestID,
		e.Why.RuleSetID,
		confidence,
		e.How.Method,
		parameters,
		strings.Join(e.How.Tools, ";"),
		e.How.Model,
		strings.Join(e.How.Steps, ";"),
		resourceUsage,
		strings.Join(e.Tags, ";"),
		evidence,
		e.Crypto.ContentHash,
		e.Crypto.PreviousHash,
		e.Crypto.Algorithm,
		e.Crypto.HashedAt.Format(time.RFC3339Nano),
		fmt.Sprintf("%t", e.Flagged),
		e.FlagNote,
		string(e.ReviewStatus),
	}
}
