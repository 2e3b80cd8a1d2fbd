package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jaretmartin/symtex/pkg/cli"
	"github.com/jaretmartin/symtex/pkg/policy"
)

var policyFlags struct {
	format string
}

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Inspect policy documents",
	Long: `Inspect governance policy documents.

Policies declare what cognates may do: each one scopes a set of triggers
to an effect (allow, deny) or an approval requirement with approvers and
escalation levels.

Subcommands:
  validate - Load a policy file or directory and report problems
  list     - Show loaded policies as a table

Examples:
  # Check a policy directory before rollout
  symtex policy validate policies/

  # List policies in a single file
  symtex policy list policies.yaml

  # JSON output
  symtex policy list policies/ --format json`,
}

var policyValidateCmd = &cobra.Command{
	Use:   "validate <path>",
	Short: "Validate a policy file or directory",
	Long: `Validate a policy file or directory of policy files.

The loader checks identity fields, scope kinds, trigger specs, condition
predicates, risk levels, approver declarations and escalation levels.
Loading stops at the first invalid policy and reports where it failed.

Examples:
  symtex policy validate policies.yaml
  symtex policy validate policies/`,
	Args: cobra.ExactArgs(1),
	RunE: validatePolicies,
}

var policyListCmd = &cobra.Command{
	Use:   "list <path>",
	Short: "List loaded policies",
	Long: `List the policies loaded from a file or directory.

Examples:
  symtex policy list policies/
  symtex policy list policies.yaml --format csv`,
	Args: cobra.ExactArgs(1),
	RunE: listPolicies,
}

func init() {
	rootCmd.AddCommand(policyCmd)
	policyCmd.AddCommand(policyValidateCmd, policyListCmd)

	policyListCmd.Flags().StringVar(&policyFlags.format, "format", "text", "output format: text, json, csv")
}

func validatePolicies(cmd *cobra.Command, args []string) error {
	loader := policy.NewLoader(policy.DefaultLoaderConfig())
	policies, err := loader.Load(args[0])
	if err != nil {
		fmt.Printf("✗ %v\n", err)
		return cli.NewExitError(cli.ExitFailure,
			cli.NewCommandError("policy validate", fmt.Errorf("validation failed")))
	}

	fmt.Printf("✓ %d policies valid\n", len(policies))
	return nil
}

func listPolicies(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(policyFlags.format)
	if err != nil {
		return cli.NewExitError(cli.ExitUsage, err)
	}

	loader := policy.NewLoader(policy.DefaultLoaderConfig())
	policies, err := loader.Load(args[0])
	if err != nil {
		return cli.NewCommandError("policy list", err)
	}

	table := &cli.Table{
		Headers: []string{"ID", "NAME", "ENABLED", "EFFECT", "RISK", "SCOPES", "TRIGGERS"},
	}
	for _, p := range policies {
		table.Append(p.ID, p.Name, p.Enabled, effectLabel(p), p.RiskLevel,
			formatScopes(p.Scopes), len(p.Triggers))
	}

	return cli.NewFormatter(format).FormatTo(os.Stdout, table)
}

// effectLabel reports the outcome a match produces, folding the approval
// requirement in, since Effect alone is only half the story.
func effectLabel(p *policy.Policy) string {
	if p.ApprovalRequired {
		return "require_approval"
	}
	return string(p.Effect)
}

func formatScopes(scopes []policy.Scope) string {
	parts := make([]string, 0, len(scopes))
	for _, s := range scopes {
		if s.Kind == policy.ScopeGlobal {
			parts = append(parts, string(s.Kind))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s:%s", s.Kind, s.ID))
	}
	return strings.Join(parts, ",")
}
