package export

import (
	"context"
	"io"

	"github.com/jaretmartin/symtex/pkg/ledger"
)

// Exporter renders ledger entries in one output format.
type Exporter interface {
	// Export writes a complete slice of entries to w.
	Export(ctx context.Context, entries []*ledger.Entry, w io.Writer) error

	// ExportStream writes entries arriving on the channel to w until the
	// channel closes or the context is cancelled.
	ExportStream(ctx context.Context, entries <-chan *ledger.Entry, w io.Writer) error
}

var (
	_ Exporter = (*JSONExporter)(nil)
	_ Exporter = (*CSVExporter)(nil)
)
