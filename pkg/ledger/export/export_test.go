package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jaretmartin/symtex/pkg/ledger"
)

func exportEntry(seq int64) *ledger.Entry {
	return &ledger.Entry{
		ID:          fmt.Sprintf("entry-%d", seq),
		Seq:         seq,
		EventType:   ledger.EventActionAllowed,
		Category:    ledger.CategoryAction,
		Severity:    ledger.SeverityInfo,
		Description: fmt.Sprintf("entry number %d", seq),
		Who:         ledger.Actor{Type: ledger.ActorCognate, ID: "crm-bot", Name: "CRM Bot"},
		What:        ledger.Subject{Kind: "action", ID: fmt.Sprintf("act-%d", seq)},
		When:        time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC).Add(time.Duration(seq) * time.Minute),
		Where:       ledger.Origin{SpaceID: "space-sales", Component: "governor"},
		Why:         ledger.Rationale{Reason: "policy matched", Confidence: 0.9},
		How: ledger.Mechanism{
			Method:        "http_post",
			Parameters:    map[string]interface{}{"dry_run": false},
			Tools:         []string{"mailer", "crm_lookup"},
			Model:         "drafting-v2",
			Steps:         []string{"draft", "send"},
			ResourceUsage: map[string]float64{"api_calls": 2},
		},
		Tags: []string{"crm", "email"},
		Evidence: []ledger.Attachment{
			{Name: "draft.eml", MediaType: "message/rfc822", Digest: strings.Repeat("ab", 32)},
		},
		Crypto: ledger.CryptoRecord{
			ContentHash:  fmt.Sprintf("%064d", seq),
			PreviousHash: fmt.Sprintf("%064d", seq-1),
			Algorithm:    ledger.HashAlgorithm,
			HashedAt:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		},
	}
}

func TestJSONExporter_Export(t *testing.T) {
	ctx := context.Background()
	exporter := NewJSONExporter(false)

	var buf bytes.Buffer
	entries := []*ledger.Entry{exportEntry(1), exportEntry(2)}
	if err := exporter.Export(ctx, entries, &buf); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	var decoded []*ledger.Entry
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(decoded) != 2 {
		t.Fatalf("decoded %d entries, want 2", len(decoded))
	}
	if decoded[0].ID != "entry-1" || decoded[1].Seq != 2 {
		t.Errorf("decoded = %q/%d, want entry-1 and seq 2", decoded[0].ID, decoded[1].Seq)
	}
	if decoded[0].Crypto.ContentHash != entries[0].Crypto.ContentHash {
		t.Error("content hash did not survive the roundtrip")
	}
}

func TestJSONExporter_ExportEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := NewJSONExporter(false).Export(context.Background(), nil, &buf); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if got := buf.String(); got != "[]" {
		t.Errorf("Export(nil) = %q, want empty array", got)
	}
}

func TestJSONExporter_Pretty(t *testing.T) {
	var buf bytes.Buffer
	if err := NewJSONExporter(true).Export(context.Background(), []*ledger.Entry{exportEntry(1)}, &buf); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if !json.Valid(buf.Bytes()) {
		t.Fatal("pretty output is not valid JSON")
	}
	if !strings.Contains(buf.String(), "\n  ") {
		t.Error("pretty output is not indented")
	}
}

func TestJSONExporter_ExportStream(t *testing.T) {
	entries := make(chan *ledger.Entry, 3)
	for seq := int64(1); seq <= 3; seq++ {
		entries <- exportEntry(seq)
	}
	close(entries)

	var buf bytes.Buffer
	if err := NewJSONExporter(false).ExportStream(context.Background(), entries, &buf); err != nil {
		t.Fatalf("ExportStream() error = %v", err)
	}

	var decoded []*ledger.Entry
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("streamed output is not valid JSON: %v", err)
	}
	if len(decoded) != 3 {
		t.Errorf("decoded %d entries, want 3", len(decoded))
	}
}

func TestJSONExporter_ExportStreamStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	entries := make(chan *ledger.Entry)
	var buf bytes.Buffer
	err := NewJSONExporter(false).ExportStream(ctx, entries, &buf)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("ExportStream() error = %v, want context.Canceled", err)
	}
}

func TestCSVExporter_Export(t *testing.T) {
	ctx := context.Background()

	var buf bytes.Buffer
	entries := []*ledger.Entry{exportEntry(1), exportEntry(2)}
	if err := NewCSVExporter(true).Export(ctx, entries, &buf); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want header plus 2 rows", len(records))
	}
	header := records[0]
	if header[0] != "seq" || header[len(header)-1] != "review_status" {
		t.Errorf("header = %v, want seq..review_status", header)
	}
	row := records[1]
	if len(row) != len(header) {
		t.Fatalf("row width %d != header width %d", len(row), len(header))
	}
	if row[0] != "1" || row[2] != string(ledger.EventActionAllowed) {
		t.Errorf("row = %q/%q, want seq 1 and event type", row[0], row[2])
	}
	if row[20] != "0.9" {
		t.Errorf("confidence column = %q, want 0.9", row[20])
	}
	if row[23] != "mailer;crm_lookup" {
		t.Errorf("tools column = %q, want semicolon-joined", row[23])
	}
	if row[27] != "crm;email" {
		t.Errorf("tags column = %q, want semicolon-joined", row[27])
	}
	if !strings.Contains(row[28], "draft.eml") {
		t.Errorf("evidence column = %q, want JSON with attachment name", row[28])
	}
	if row[33] != "false" {
		t.Errorf("flagged column = %q, want false", row[33])
	}
}

func TestCSVExporter_ExportWithoutHeader(t *testing.T) {
	var buf bytes.Buffer
	if err := NewCSVExporter(false).Export(context.Background(), []*ledger.Entry{exportEntry(1)}, &buf); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("got %d records, want 1 data row", len(records))
	}
}

func TestExporter_StreamThroughInterface(t *testing.T) {
	for name, exporter := range map[string]Exporter{
		"json": NewJSONExporter(false),
		"csv":  NewCSVExporter(true),
	} {
		entries := make(chan *ledger.Entry, 2)
		entries <- exportEntry(1)
		entries <- exportEntry(2)
		close(entries)

		var buf bytes.Buffer
		if err := exporter.ExportStream(context.Background(), entries, &buf); err != nil {
			t.Fatalf("%s: ExportStream() error = %v", name, err)
		}
		if buf.Len() == 0 {
			t.Errorf("%s: stream produced no output", name)
		}
	}
}

func TestCSVExporter_ExportStream(t *testing.T) {
	entries := make(chan *ledger.Entry, 3)
	for seq := int64(1); seq <= 3; seq++ {
		entries <- exportEntry(seq)
	}
	close(entries)

	var buf bytes.Buffer
	if err := NewCSVExporter(true).ExportStream(context.Background(), entries, &buf); err != nil {
		t.Fatalf("ExportStream() error = %v", err)
	}
	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("streamed output is not valid CSV: %v", err)
	}
	if len(records) != 4 {
		t.Errorf("got %d records, want header plus 3 rows", len(records))
	}
}
