package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jaretmartin/symtex/pkg/cli"
	"github.com/jaretmartin/symtex/pkg/config"
	"github.com/jaretmartin/symtex/pkg/ledger"
	"github.com/jaretmartin/symtex/pkg/ledger/export"
	"github.com/jaretmartin/symtex/pkg/ledger/storage"
)

var ledgerFlags struct {
	eventTypes []string
	severities []string
	categories []string
	actorTypes []string
	space      string
	project    string
	flagged    bool
	search     string
	since      string
	until      string
	limit      int
	offset     int
	sortBy     string
	order      string
	format     string

	exportFormat string
	output       string
	pretty       bool
	noHeader     bool
}

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Audit the decision ledger",
	Long: `Audit the hash-chained decision ledger.

Every governance decision appends an entry whose content hash covers the
previous entry's hash, so any later mutation breaks the chain.

Subcommands:
  verify - Recompute and check the whole chain
  query  - Filtered entry listing
  export - Dump entries as JSON or CSV

Examples:
  # Verify chain integrity
  symtex ledger verify

  # Recent errors
  symtex ledger query --severity error --severity critical --limit 20

  # Everything a reviewer flagged
  symtex ledger query --flagged

  # Full dump for the auditors
  symtex ledger export --format csv -o audit.csv`,
}

var ledgerVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify chain integrity",
	Long: `Recompute every content hash and link in the ledger.

Verification walks the chain from the genesis entry: sequence numbers
must be gapless, each entry must link to its predecessor's content hash,
and each content hash must match the entry's payload. The first mismatch
stops the walk and names the entry and field that failed.`,
	RunE: verifyLedger,
}

var ledgerQueryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query ledger entries",
	Long: `Query ledger entries with filters.

Filters combine with AND; repeatable filters (event types, severities,
categories, actor types) combine with OR among themselves. Results sort
newest first unless --sort or --order say otherwise.

Examples:
  # Denied actions in a space
  symtex ledger query --event-type action_denied --space space-sales

  # Severity floor via explicit set, oldest first
  symtex ledger query --severity error --severity critical --order asc

  # Free-text search over description, actor and tags
  symtex ledger query --search "vip@acme.com"

  # Time window
  symtex ledger query --since 2026-08-01T00:00:00Z --until 2026-08-25T00:00:00Z`,
	RunE: queryLedger,
}

var ledgerExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the ledger",
	Long: `Export ledger entries as JSON or CSV.

The export walks the whole chain in sequence order. Writing to a file
with -o shows progress on stderr; stdout output stays clean for piping.

Examples:
  # JSON to stdout
  symtex ledger export --format json --pretty

  # CSV file for the auditors
  symtex ledger export --format csv -o audit.csv`,
	RunE: exportLedger,
}

func init() {
	rootCmd.AddCommand(ledgerCmd)
	ledgerCmd.AddCommand(ledgerVerifyCmd, ledgerQueryCmd, ledgerExportCmd)

	ledgerQueryCmd.Flags().StringArrayVar(&ledgerFlags.eventTypes, "event-type", nil, "filter by event type (repeatable)")
	ledgerQueryCmd.Flags().StringArrayVar(&ledgerFlags.severities, "severity", nil, "filter by severity (repeatable)")
	ledgerQueryCmd.Flags().StringArrayVar(&ledgerFlags.categories, "category", nil, "filter by category (repeatable)")
	ledgerQueryCmd.Flags().StringArrayVar(&ledgerFlags.actorTypes, "actor-type", nil, "filter by actor type (repeatable)")
	ledgerQueryCmd.Flags().StringVar(&ledgerFlags.space, "space", "", "filter by space ID")
	ledgerQueryCmd.Flags().StringVar(&ledgerFlags.project, "project", "", "filter by project ID")
	ledgerQueryCmd.Flags().BoolVar(&ledgerFlags.flagged, "flagged", false, "only flagged entries")
	ledgerQueryCmd.Flags().StringVar(&ledgerFlags.search, "search", "", "substring match over description, actor name and tags")
	ledgerQueryCmd.Flags().StringVar(&ledgerFlags.since, "since", "", "entries at or after this RFC3339 time")
	ledgerQueryCmd.Flags().StringVar(&ledgerFlags.until, "until", "", "entries at or before this RFC3339 time")
	ledgerQueryCmd.Flags().IntVar(&ledgerFlags.limit, "limit", 0, "max results (default 100, max 1000)")
	ledgerQueryCmd.Flags().IntVar(&ledgerFlags.offset, "offset", 0, "pagination offset")
	ledgerQueryCmd.Flags().StringVar(&ledgerFlags.sortBy, "sort", "", "sort field: seq, when, severity, category")
	ledgerQueryCmd.Flags().StringVar(&ledgerFlags.order, "order", "", "sort order: asc, desc")
	ledgerQueryCmd.Flags().StringVar(&ledgerFlags.format, "format", "text", "output format: text, json, csv")

	ledgerExportCmd.Flags().StringVar(&ledgerFlags.exportFormat, "format", "json", "export format: json, csv")
	ledgerExportCmd.Flags().StringVarP(&ledgerFlags.output, "output", "o", "", "output file (default: stdout)")
	ledgerExportCmd.Flags().BoolVar(&ledgerFlags.pretty, "pretty", false, "indent JSON output")
	ledgerExportCmd.Flags().BoolVar(&ledgerFlags.noHeader, "no-header", false, "omit the CSV header row")
}

// openLedger builds the ledger over the backend the config names.
func openLedger(cfg *config.Config, logger *slog.Logger) (*ledger.Ledger, error) {
	var (
		st  ledger.Storage
		err error
	)
	switch cfg.Ledger.Backend {
	case config.BackendMemory:
		st = storage.NewMemoryStorage()
	case config.BackendSQLite:
		sqliteCfg := storage.DefaultSQLiteConfig()
		sqliteCfg.Path = cfg.Ledger.SQLitePath
		st, err = storage.NewSQLiteStorage(sqliteCfg, logger)
	case config.BackendPostgres:
		st, err = storage.NewPostgresStorage(cfg.Ledger.PostgresDSN, logger)
	default:
		return nil, fmt.Errorf("unsupported ledger backend %q", cfg.Ledger.Backend)
	}
	if err != nil {
		return nil, err
	}
	return ledger.New(st, nil, logger)
}

func verifyLedger(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := buildLogger(cfg)
	if err != nil {
		return err
	}

	led, err := openLedger(cfg, logger)
	if err != nil {
		return cli.NewCommandError("ledger verify", err)
	}
	defer led.Close()

	result, err := led.VerifyChain(cmd.Context())
	if err != nil {
		var integrityErr *ledger.IntegrityError
		if errors.As(err, &integrityErr) {
			fmt.Printf("✗ chain broken at entry %d: %s mismatch\n", integrityErr.Seq, integrityErr.Field)
			fmt.Printf("  expected: %s\n", integrityErr.Expected)
			fmt.Printf("  actual:   %s\n", integrityErr.Actual)
			if result != nil {
				fmt.Printf("  %d entries verified before the failure\n", result.Checked)
			}
			return cli.NewExitError(cli.ExitFailure,
				cli.NewCommandError("ledger verify", fmt.Errorf("chain verification failed")))
		}
		return cli.NewCommandError("ledger verify", err)
	}

	fmt.Printf("✓ chain valid, %d entries verified\n", result.Checked)
	return nil
}

func queryLedger(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(ledgerFlags.format)
	if err != nil {
		return cli.NewExitError(cli.ExitUsage, err)
	}

	query, err := buildLedgerQuery()
	if err != nil {
		return cli.NewExitError(cli.ExitUsage, err)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := buildLogger(cfg)
	if err != nil {
		return err
	}

	led, err := openLedger(cfg, logger)
	if err != nil {
		return cli.NewCommandError("ledger query", err)
	}
	defer led.Close()

	entries, err := led.Query(cmd.Context(), query)
	if err != nil {
		var validationErr *ledger.ValidationError
		if errors.As(err, &validationErr) {
			return cli.NewExitError(cli.ExitUsage, err)
		}
		return cli.NewCommandError("ledger query", err)
	}

	if format == cli.FormatJSON {
		return (&cli.JSONFormatter{Indent: true}).FormatTo(os.Stdout, entries)
	}

	if format == cli.FormatText && len(entries) == 0 {
		fmt.Println("No matching entries.")
		return nil
	}

	table := &cli.Table{
		Headers: []string{"SEQ", "WHEN", "EVENT", "SEVERITY", "ACTOR", "DESCRIPTION"},
	}
	for _, e := range entries {
		table.Append(e.Seq, e.When.UTC().Format(time.RFC3339), e.EventType,
			e.Severity, formatActor(e), e.Description)
	}
	return cli.NewFormatter(format).FormatTo(os.Stdout, table)
}

func buildLedgerQuery() (ledger.Query, error) {
	query := ledger.Query{
		SpaceID:     ledgerFlags.space,
		ProjectID:   ledgerFlags.project,
		FlaggedOnly: ledgerFlags.flagged,
		Search:      ledgerFlags.search,
		Limit:       ledgerFlags.limit,
		Offset:      ledgerFlags.offset,
		SortBy:      ledger.SortField(ledgerFlags.sortBy),
		SortOrder:   ledger.SortOrder(ledgerFlags.order),
		Categories:  ledgerFlags.categories,
	}

	for _, et := range ledgerFlags.eventTypes {
		query.EventTypes = append(query.EventTypes, ledger.EventType(et))
	}
	for _, sev := range ledgerFlags.severities {
		query.Severities = append(query.Severities, ledger.Severity(sev))
	}
	for _, at := range ledgerFlags.actorTypes {
		query.ActorTypes = append(query.ActorTypes, ledger.ActorType(at))
	}

	if ledgerFlags.since != "" {
		from, err := time.Parse(time.RFC3339, ledgerFlags.since)
		if err != nil {
			return ledger.Query{}, fmt.Errorf("invalid --since: %w", err)
		}
		query.From = &from
	}
	if ledgerFlags.until != "" {
		to, err := time.Parse(time.RFC3339, ledgerFlags.until)
		if err != nil {
			return ledger.Query{}, fmt.Errorf("invalid --until: %w", err)
		}
		query.To = &to
	}

	return query, nil
}

func formatActor(e *ledger.Entry) string {
	if e.Who.ID == "" {
		return string(e.Who.Type)
	}
	return fmt.Sprintf("%s:%s", e.Who.Type, e.Who.ID)
}

func exportLedger(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(ledgerFlags.exportFormat)
	if err != nil || format == cli.FormatText {
		return cli.NewExitError(cli.ExitUsage,
			fmt.Errorf("export format must be json or csv, got %q", ledgerFlags.exportFormat))
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := buildLogger(cfg)
	if err != nil {
		return err
	}

	led, err := openLedger(cfg, logger)
	if err != nil {
		return cli.NewCommandError("ledger export", err)
	}
	defer led.Close()

	entries, err := led.All(cmd.Context())
	if err != nil {
		return cli.NewCommandError("ledger export", err)
	}

	var out io.Writer = os.Stdout
	var progress cli.ProgressReporter
	if ledgerFlags.output != "" {
		file, err := os.Create(ledgerFlags.output)
		if err != nil {
			return cli.NewCommandError("ledger export", fmt.Errorf("creating output file: %w", err))
		}
		defer file.Close()
		out = file
		progress = cli.NewProgressReporter(os.Stderr)
	}

	var exporter export.Exporter
	switch format {
	case cli.FormatJSON:
		exporter = export.NewJSONExporter(ledgerFlags.pretty)
	case cli.FormatCSV:
		exporter = export.NewCSVExporter(!ledgerFlags.noHeader)
	}

	if progress != nil {
		progress.Start(int64(len(entries)))
	}

	ch := make(chan *ledger.Entry)
	go func() {
		defer close(ch)
		for i, entry := range entries {
			select {
			case ch <- entry:
			case <-cmd.Context().Done():
				return
			}
			if progress != nil {
				progress.Update(int64(i + 1))
			}
		}
	}()

	if err := exporter.ExportStream(cmd.Context(), ch, out); err != nil {
		if progress != nil {
			progress.Error(err)
		}
		return cli.NewCommandError("ledger export", err)
	}
	if progress != nil {
		progress.Finish()
	}

	if ledgerFlags.output != "" {
		fmt.Printf("✓ exported %d entries to %s\n", len(entries), ledgerFlags.output)
	}
	return nil
}
