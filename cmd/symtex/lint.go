package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jaretmartin/symtex/pkg/cli"
	"github.com/jaretmartin/symtex/pkg/sop"
	"github.com/jaretmartin/symtex/pkg/sop/diag"
)

var lintFlags struct {
	format string
}

var lintCmd = &cobra.Command{
	Use:   "lint <ruleset.yaml>...",
	Short: "Validate rule documents",
	Long: `Validate rule documents for syntax and semantic errors.

The lint command parses each document and runs every validation pass:
  - YAML syntax and structure
  - Identity fields, versions, timestamps
  - Trigger, operator and value consistency per condition
  - Action types and their config parameters
  - Duplicate rule names and orders

Errors block compilation; warnings do not.

Examples:
  # Lint a single document
  symtex lint ruleset.yaml

  # Lint several at once
  symtex lint rules/email.yaml rules/spend.yaml

  # JSON output for CI
  symtex lint ruleset.yaml --format json`,
	Args: cobra.MinimumNArgs(1),
	RunE: lintRuleSets,
}

func init() {
	rootCmd.AddCommand(lintCmd)

	lintCmd.Flags().StringVar(&lintFlags.format, "format", "text", "output format: text, json")
}

// LintResult is the lint outcome for one rule document.
type LintResult struct {
	File        string           `json:"file"`
	Valid       bool             `json:"valid"`
	Rules       int              `json:"rules"`
	Diagnostics []LintDiagnostic `json:"diagnostics,omitempty"`
}

// LintDiagnostic is one finding, flattened for output.
type LintDiagnostic struct {
	Severity   string `json:"severity"`
	Kind       string `json:"kind"`
	Message    string `json:"message"`
	Path       string `json:"path,omitempty"`
	Location   string `json:"location,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

func lintRuleSets(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(lintFlags.format)
	if err != nil {
		return cli.NewExitError(cli.ExitUsage, err)
	}

	results := make([]LintResult, 0, len(args))
	for _, file := range args {
		results = append(results, lintRuleSet(file))
	}

	if format == cli.FormatJSON {
		if err := (&cli.JSONFormatter{Indent: true}).FormatTo(os.Stdout, results); err != nil {
			return err
		}
		return lintVerdict(results)
	}

	for _, result := range results {
		fmt.Printf("Validating %s...\n", result.File)
		if len(result.Diagnostics) == 0 {
			fmt.Printf("✓ %d rule(s), no findings\n\n", result.Rules)
			continue
		}
		for _, d := range result.Diagnostics {
			glyph := "✗"
			if d.Severity == string(diag.SeverityWarning) {
				glyph = "⚠"
			}
			fmt.Printf("%s %s: %s\n", glyph, d.Severity, d.Message)
			if d.Path != "" {
				fmt.Printf("  at %s\n", d.Path)
			}
			if d.Location != "" {
				fmt.Printf("  --> %s\n", d.Location)
			}
			if d.Suggestion != "" {
				fmt.Printf("  = suggestion: %s\n", d.Suggestion)
			}
		}
		fmt.Println()
	}

	errorCount, warningCount := 0, 0
	for _, result := range results {
		for _, d := range result.Diagnostics {
			if d.Severity == string(diag.SeverityError) {
				errorCount++
			} else {
				warningCount++
			}
		}
	}
	fmt.Println("Summary:")
	fmt.Printf("  %d error(s), %d warning(s)\n", errorCount, warningCount)

	return lintVerdict(results)
}

func lintRuleSet(path string) LintResult {
	result := LintResult{File: path, Valid: true}

	rs, err := sop.ParseFile(path)
	if err != nil {
		result.Valid = false
		result.Diagnostics = flattenDiagnostics(err)
		return result
	}

	result.Rules = len(rs.Rules)

	list := sop.Validate(rs)
	if list.Count() > 0 {
		result.Diagnostics = flattenList(list)
	}
	if list.HasErrors() {
		result.Valid = false
	}
	return result
}

// flattenDiagnostics converts parser errors, which are either a single
// diagnostic or a list, into output form.
func flattenDiagnostics(err error) []LintDiagnostic {
	switch e := err.(type) {
	case *diag.List:
		return flattenList(e)
	case *diag.Diagnostic:
		return []LintDiagnostic{flattenDiagnostic(e)}
	default:
		return []LintDiagnostic{{
			Severity: string(diag.SeverityError),
			Message:  err.Error(),
		}}
	}
}

func flattenList(list *diag.List) []LintDiagnostic {
	out := make([]LintDiagnostic, 0, len(list.Diagnostics))
	for _, d := range list.Diagnostics {
		out = append(out, flattenDiagnostic(d))
	}
	return out
}

func flattenDiagnostic(d *diag.Diagnostic) LintDiagnostic {
	ld := LintDiagnostic{
		Severity:   string(d.Severity),
		Kind:       string(d.Kind),
		Message:    d.Message,
		Path:       d.Path,
		Suggestion: d.Suggestion,
	}
	if d.Location.IsValid() {
		ld.Location = d.Location.String()
	}
	return ld
}

func lintVerdict(results []LintResult) error {
	for _, result := range results {
		if !result.Valid {
			return cli.NewExitError(cli.ExitFailure,
				cli.NewCommandError("lint", fmt.Errorf("validation failed")))
		}
	}
	return nil
}
