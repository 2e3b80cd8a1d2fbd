package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jaretmartin/symtex/pkg/cli"
	"github.com/jaretmartin/symtex/pkg/policy"
	"github.com/jaretmartin/symtex/pkg/policy/engine"
)

var simulateFlags struct {
	policies   string
	actionFile string
	actionType string
	space      string
	project    string
	cognate    string
	automation string
	user       string
	context    []string
	format     string
}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Evaluate an action against a policy set",
	Long: `Evaluate a proposed action against a policy set without executing it.

The action comes from --action-file (JSON) or from flags. Context values
given as --context key=value are parsed as bool, number or string in that
order. Threshold triggers resolve against the action context only; there
is no live usage history in a simulation.

Action file format:
  {
    "type": "send_email",
    "cognate_id": "crm-bot",
    "space_id": "space-sales",
    "context": {"recipient": "vip@acme.com", "amount": 2500}
  }

Examples:
  # Evaluate from flags
  symtex simulate -p policies/ --action-type send_email --cognate crm-bot

  # Evaluate with context values
  symtex simulate -p policies/ --action-type spend --context amount=2500

  # Evaluate from a file, JSON output
  symtex simulate -p policies/ --action-file action.json --format json`,
	RunE: simulateAction,
}

func init() {
	rootCmd.AddCommand(simulateCmd)

	simulateCmd.Flags().StringVarP(&simulateFlags.policies, "policies", "p", "", "policy file or directory (required)")
	simulateCmd.Flags().StringVar(&simulateFlags.actionFile, "action-file", "", "JSON file describing the action")
	simulateCmd.Flags().StringVar(&simulateFlags.actionType, "action-type", "", "action type, e.g. send_email")
	simulateCmd.Flags().StringVar(&simulateFlags.space, "space", "", "space ID the action runs in")
	simulateCmd.Flags().StringVar(&simulateFlags.project, "project", "", "project ID the action runs in")
	simulateCmd.Flags().StringVar(&simulateFlags.cognate, "cognate", "", "cognate ID proposing the action")
	simulateCmd.Flags().StringVar(&simulateFlags.automation, "automation", "", "automation ID proposing the action")
	simulateCmd.Flags().StringVar(&simulateFlags.user, "user", "", "user ID the action acts for")
	simulateCmd.Flags().StringArrayVar(&simulateFlags.context, "context", nil, "context value as key=value (repeatable)")
	simulateCmd.Flags().StringVar(&simulateFlags.format, "format", "text", "output format: text, json")

	_ = simulateCmd.MarkFlagRequired("policies")
}

// actionSpec is the JSON shape of --action-file.
type actionSpec struct {
	Type          string                 `json:"type"`
	Context       map[string]interface{} `json:"context,omitempty"`
	SpaceID       string                 `json:"space_id,omitempty"`
	ProjectID     string                 `json:"project_id,omitempty"`
	CognateID     string                 `json:"cognate_id,omitempty"`
	AutomationID  string                 `json:"automation_id,omitempty"`
	UserID        string                 `json:"user_id,omitempty"`
	IntegrationID string                 `json:"integration_id,omitempty"`
}

// decisionOutput is the stable JSON rendering of a decision.
type decisionOutput struct {
	Effect           string    `json:"effect"`
	RiskLevel        string    `json:"risk_level"`
	PolicyID         string    `json:"policy_id,omitempty"`
	PolicyName       string    `json:"policy_name,omitempty"`
	MatchedPolicyIDs []string  `json:"matched_policy_ids,omitempty"`
	Reason           string    `json:"reason"`
	AutoApproved     bool      `json:"auto_approved,omitempty"`
	EvaluatedAt      time.Time `json:"evaluated_at"`
	DurationMs       float64   `json:"duration_ms"`
}

func simulateAction(cmd *cobra.Command, args []string) error {
	action, err := buildAction()
	if err != nil {
		return cli.NewExitError(cli.ExitUsage, err)
	}

	loader := policy.NewLoader(policy.DefaultLoaderConfig())
	policies, err := loader.Load(simulateFlags.policies)
	if err != nil {
		return cli.NewCommandError("simulate", err)
	}

	store := policy.NewStore()
	if err := store.Replace(policies); err != nil {
		return cli.NewCommandError("simulate", err)
	}

	evaluator, err := engine.NewEvaluator(store, nil, commandLogger())
	if err != nil {
		return cli.NewCommandError("simulate", err)
	}

	decision, err := evaluator.Evaluate(cmd.Context(), action)
	if err != nil {
		return cli.NewCommandError("simulate", err)
	}

	out := decisionOutput{
		Effect:           string(decision.Effect),
		RiskLevel:        string(decision.RiskLevel),
		PolicyID:         decision.PolicyID,
		PolicyName:       decision.PolicyName,
		MatchedPolicyIDs: decision.MatchedPolicyIDs,
		Reason:           decision.Reason,
		AutoApproved:     decision.AutoApproved,
		EvaluatedAt:      decision.EvaluatedAt,
		DurationMs:       float64(decision.Duration.Microseconds()) / 1000,
	}

	if simulateFlags.format == "json" {
		return (&cli.JSONFormatter{Indent: true}).FormatTo(os.Stdout, out)
	}

	fmt.Printf("Decision: %s\n", out.Effect)
	fmt.Printf("Risk: %s\n", out.RiskLevel)
	if out.PolicyID != "" {
		fmt.Printf("Policy: %s (%s)\n", out.PolicyID, out.PolicyName)
	}
	fmt.Printf("Reason: %s\n", out.Reason)
	if len(out.MatchedPolicyIDs) > 0 {
		fmt.Printf("Matched: %s\n", strings.Join(out.MatchedPolicyIDs, ", "))
	}
	if out.AutoApproved {
		fmt.Println("Auto-approved: approval requirement waived")
	}
	fmt.Printf("Evaluated in %.3fms\n", out.DurationMs)
	return nil
}

func buildAction() (engine.ProposedAction, error) {
	var spec actionSpec

	if simulateFlags.actionFile != "" {
		data, err := os.ReadFile(simulateFlags.actionFile)
		if err != nil {
			return engine.ProposedAction{}, fmt.Errorf("reading action file: %w", err)
		}
		if err := json.Unmarshal(data, &spec); err != nil {
			return engine.ProposedAction{}, fmt.Errorf("parsing action file: %w", err)
		}
	}

	// Flags override the file.
	if simulateFlags.actionType != "" {
		spec.Type = simulateFlags.actionType
	}
	if simulateFlags.space != "" {
		spec.SpaceID = simulateFlags.space
	}
	if simulateFlags.project != "" {
		spec.ProjectID = simulateFlags.project
	}
	if simulateFlags.cognate != "" {
		spec.CognateID = simulateFlags.cognate
	}
	if simulateFlags.automation != "" {
		spec.AutomationID = simulateFlags.automation
	}
	if simulateFlags.user != "" {
		spec.UserID = simulateFlags.user
	}

	if spec.Type == "" {
		return engine.ProposedAction{}, fmt.Errorf("an action type is required (--action-type or --action-file)")
	}

	if len(simulateFlags.context) > 0 && spec.Context == nil {
		spec.Context = make(map[string]interface{}, len(simulateFlags.context))
	}
	for _, pair := range simulateFlags.context {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return engine.ProposedAction{}, fmt.Errorf("invalid --context %q (expected key=value)", pair)
		}
		spec.Context[key] = parseContextValue(value)
	}

	return engine.ProposedAction{
		Type:          spec.Type,
		Context:       spec.Context,
		SpaceID:       spec.SpaceID,
		ProjectID:     spec.ProjectID,
		CognateID:     spec.CognateID,
		AutomationID:  spec.AutomationID,
		UserID:        spec.UserID,
		IntegrationID: spec.IntegrationID,
	}, nil
}

// parseContextValue interprets a flag value the way JSON would: bools and
// numbers stay typed so predicates and thresholds compare correctly.
func parseContextValue(s string) interface{} {
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}
