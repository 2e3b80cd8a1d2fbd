// Package export renders ledger entries as JSON or CSV, either from a
// slice or streamed from a channel for large extracts.
package export

import (
	"context"
	"encoding/json"
	"io"

	"github.com/jaretmartin/symtex/pkg/ledger"
)

// JSONExporter writes entries as a JSON array.
type JSONExporter struct {
	// Pretty enables indented output.
	Pretty bool
}

// NewJSONExporter creates a JSON exporter.
func NewJSONExporter(pretty bool) *JSONExporter {
	return &JSONExporter{Pretty: pretty}
}

// Export writes the entries to w as one JSON array.
func (e *JSONExporter) Export(ctx context.Context, entries []*ledger.Entry, w io.Writer) error {
	if entries == nil {
		entries = []*ledger.Entry{}
	}

	var data []byte
	var err error
	if e.Pretty {
		data, err = json.MarshalIndent(entries, "", "  ")
	} else {
		data, err = json.Marshal(entries)
	}
	if err != nil {
		return err
	}

	_, err = w.Write(data)
	return err
}

// ExportStream writes entries arriving on the channel to w as one JSON
// array, without holding more than one entry in memory. The stream ends
// when the channel closes or the context is cancelled.
func (e *JSONExporter) ExportStream(ctx context.Context, entries <-chan *ledger.Entry, w io.Writer) error {
	if _, err := w.Write([]byte("[")); err != nil {
		return err
	}

	first := true
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case entry, ok := <-entries:
			if !ok {
				_, err := w.Write([]byte("]"))
				return err
			}

			if !first {
				if _, err := w.Write([]byte(",")); err != nil {
					return err
				}
				if e.Pretty {
					if _, err := w.Write([]byte("\n")); err != nil {
						return err
					}
				}
			}
			first = false

			var data []byte
			var err error
			if e.Pretty {
				data, err = json.MarshalIndent(entry, "", "  ")
			} else {
				data, err = json.Marshal(entry)
			}
			if err != nil {
				return err
			}
			if _, err := w.Write(data); err != nil {
				return err
			}
		}
	}
}
