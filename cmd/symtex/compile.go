package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jaretmartin/symtex/pkg/cli"
	"github.com/jaretmartin/symtex/pkg/sop"
)

var compileFlags struct {
	output string
}

var compileCmd = &cobra.Command{
	Use:   "compile <ruleset.yaml>",
	Short: "Compile a rule document to script form",
	Long: `Compile a rule document into its deterministic script form.

The document is parsed and fully validated first; any validation error
aborts the compilation. The rendered script is identical across runs for
the same input, so its checksum can gate deployments.

Examples:
  # Print the script to stdout
  symtex compile ruleset.yaml

  # Write the script to a file
  symtex compile ruleset.yaml -o ruleset.s1`,
	Args: cobra.ExactArgs(1),
	RunE: compileRuleSet,
}

func init() {
	rootCmd.AddCommand(compileCmd)

	compileCmd.Flags().StringVarP(&compileFlags.output, "output", "o", "", "output file (default: stdout)")
}

func compileRuleSet(cmd *cobra.Command, args []string) error {
	path := args[0]

	rs, err := sop.ParseFile(path)
	if err != nil {
		printDiagnostics(path, flattenDiagnostics(err))
		return cli.NewExitError(cli.ExitFailure,
			cli.NewCommandError("compile", fmt.Errorf("parsing failed")))
	}

	list := sop.Validate(rs)
	if list.HasErrors() {
		printDiagnostics(path, flattenList(list))
		return cli.NewExitError(cli.ExitFailure,
			cli.NewCommandError("compile", fmt.Errorf("validation failed")))
	}

	script, err := sop.Compile(rs)
	if err != nil {
		return cli.NewCommandError("compile", err)
	}

	text := script.Render()

	if compileFlags.output == "" {
		fmt.Print(text)
		return nil
	}

	if err := os.WriteFile(compileFlags.output, []byte(text), 0o644); err != nil {
		return cli.NewCommandError("compile", fmt.Errorf("writing script: %w", err))
	}
	fmt.Printf("✓ compiled %d block(s) to %s\n", script.BlockCount(), compileFlags.output)
	fmt.Printf("  checksum: %s\n", script.Checksum())
	return nil
}

func printDiagnostics(path string, diagnostics []LintDiagnostic) {
	fmt.Fprintf(os.Stderr, "%s:\n", path)
	for _, d := range diagnostics {
		fmt.Fprintf(os.Stderr, "  %s: %s", d.Severity, d.Message)
		if d.Location != "" {
			fmt.Fprintf(os.Stderr, " (%s)", d.Location)
		}
		fmt.Fprintln(os.Stderr)
		if d.Suggestion != "" {
			fmt.Fprintf(os.Stderr, "    suggestion: %s\n", d.Suggestion)
		}
	}
}
