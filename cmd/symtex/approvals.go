package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jaretmartin/symtex/pkg/approval"
	"github.com/jaretmartin/symtex/pkg/cli"
	"github.com/jaretmartin/symtex/pkg/config"
	"github.com/jaretmartin/symtex/pkg/governor"
	"github.com/jaretmartin/symtex/pkg/ledger"
	"github.com/jaretmartin/symtex/pkg/policy"
	"github.com/jaretmartin/symtex/pkg/policy/engine"
	"github.com/jaretmartin/symtex/pkg/usage"
)

var approvalsFlags struct {
	status    string
	requestor string
	policy    string
	limit     int
	format    string
	by        string
	reason    string
}

var approvalsCmd = &cobra.Command{
	Use:   "approvals",
	Short: "Operate on the approval queue",
	Long: `Operate on the approval queue from the configured store.

Verdicts issued here go through the governor, so every approval and
rejection lands in the audit ledger alongside the original request.

Subcommands:
  list      - Show approval requests
  approve   - Approve a pending request
  reject    - Reject a pending request
  reconcile - Expire overdue pending requests now

Examples:
  # Show the pending queue
  symtex approvals list

  # Approve with a reason
  symtex approvals approve req-42 --by dana --reason "recipient checked"

  # Reject
  symtex approvals reject req-42 --by dana --reason "wrong quarter"

  # Sweep overdue requests without waiting for the scheduler
  symtex approvals reconcile`,
}

var approvalsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show approval requests",
	Long: `Show approval requests from the configured store.

Examples:
  # Pending requests (default)
  symtex approvals list

  # Everything a requestor has open, as JSON
  symtex approvals list --status "" --requestor crm-bot --format json`,
	RunE: listApprovals,
}

var approvalsApproveCmd = &cobra.Command{
	Use:   "approve <request-id>",
	Short: "Approve a pending request",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return resolveApproval(cmd, args[0], governor.ResolutionApprove)
	},
}

var approvalsRejectCmd = &cobra.Command{
	Use:   "reject <request-id>",
	Short: "Reject a pending request",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return resolveApproval(cmd, args[0], governor.ResolutionReject)
	},
}

var approvalsReconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Expire overdue pending requests",
	Long: `Expire every pending request whose approval window has elapsed.

Expired requests reject with the reason "approval window elapsed" and the
expiry is written to the audit ledger.`,
	RunE: reconcileApprovals,
}

func init() {
	rootCmd.AddCommand(approvalsCmd)
	approvalsCmd.AddCommand(approvalsListCmd, approvalsApproveCmd, approvalsRejectCmd, approvalsReconcileCmd)

	approvalsListCmd.Flags().StringVar(&approvalsFlags.status, "status", "pending", "filter by status (empty for all)")
	approvalsListCmd.Flags().StringVar(&approvalsFlags.requestor, "requestor", "", "filter by requestor")
	approvalsListCmd.Flags().StringVar(&approvalsFlags.policy, "policy", "", "filter by decisive policy ID")
	approvalsListCmd.Flags().IntVar(&approvalsFlags.limit, "limit", 0, "max results (0 for all)")
	approvalsListCmd.Flags().StringVar(&approvalsFlags.format, "format", "text", "output format: text, json, csv")

	for _, cmd := range []*cobra.Command{approvalsApproveCmd, approvalsRejectCmd} {
		cmd.Flags().StringVar(&approvalsFlags.by, "by", "", "who is deciding (required)")
		cmd.Flags().StringVar(&approvalsFlags.reason, "reason", "", "justification for the verdict")
		_ = cmd.MarkFlagRequired("by")
	}
}

// openApprovalStore builds the approval store the config names.
func openApprovalStore(cfg *config.Config, logger *slog.Logger) (approval.Store, error) {
	switch cfg.Approvals.Store {
	case config.BackendMemory:
		return approval.NewMemoryStore(), nil
	case config.BackendSQLite:
		sqliteCfg := approval.DefaultSQLiteConfig()
		sqliteCfg.Path = cfg.Approvals.SQLitePath
		return approval.NewSQLiteStore(sqliteCfg, logger)
	default:
		return nil, fmt.Errorf("unsupported approvals store %q", cfg.Approvals.Store)
	}
}

// openWorkflow wires a one-shot workflow over the configured store. The
// scheduled sweep stays off; reconcile runs it explicitly. Expiries reach
// the shared ledger through the audit notifier. The cleanup closes the
// workflow and store but not the ledger, which the caller owns.
func openWorkflow(cfg *config.Config, led *ledger.Ledger, logger *slog.Logger) (*approval.Workflow, func(), error) {
	store, err := openApprovalStore(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	wfCfg := approval.Config{
		DefaultTimeout: cfg.Approvals.DefaultTimeout,
	}
	notifier := governor.NewAuditNotifier(led, nil, logger)

	workflow, err := approval.NewWorkflow(wfCfg, store, notifier, nil, logger)
	if err != nil {
		closeStore(store, logger)
		return nil, nil, err
	}

	cleanup := func() {
		workflow.Close()
		closeStore(store, logger)
	}
	return workflow, cleanup, nil
}

func closeStore(store approval.Store, logger *slog.Logger) {
	if closer, ok := store.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Warn("closing approval store", "error", err)
		}
	}
}

// buildGovernor wires the full resolution path so verdicts issued from
// the CLI are recorded exactly like verdicts issued by an embedding
// application.
func buildGovernor(cfg *config.Config, logger *slog.Logger) (*governor.Governor, func(), error) {
	loader := policy.NewLoader(policy.DefaultLoaderConfig())
	policies, err := loader.Load(cfg.Policies.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("loading policies: %w", err)
	}

	store := policy.NewStore()
	if err := store.Replace(policies); err != nil {
		return nil, nil, err
	}

	tracker := usage.NewTracker(logger)

	evaluator, err := engine.NewEvaluator(store, tracker, logger)
	if err != nil {
		return nil, nil, err
	}

	led, err := openLedger(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	workflow, wfCleanup, err := openWorkflow(cfg, led, logger)
	if err != nil {
		led.Close()
		return nil, nil, err
	}

	gov, err := governor.New(evaluator, workflow, led, tracker, store, nil, logger)
	if err != nil {
		wfCleanup()
		led.Close()
		return nil, nil, err
	}

	// The workflow closes first so notifier writes drain into the ledger.
	closeAll := func() {
		wfCleanup()
		led.Close()
	}
	return gov, closeAll, nil
}

func listApprovals(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(approvalsFlags.format)
	if err != nil {
		return cli.NewExitError(cli.ExitUsage, err)
	}

	status := approval.Status(approvalsFlags.status)
	if status != "" && !status.IsValid() {
		return cli.NewExitError(cli.ExitUsage, fmt.Errorf("unknown status %q", status))
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := buildLogger(cfg)
	if err != nil {
		return err
	}

	store, err := openApprovalStore(cfg, logger)
	if err != nil {
		return cli.NewCommandError("approvals list", err)
	}
	defer closeStore(store, logger)

	requests, err := store.List(cmd.Context(), approval.Filter{
		Status:    status,
		Requestor: approvalsFlags.requestor,
		PolicyID:  approvalsFlags.policy,
		Limit:     approvalsFlags.limit,
	})
	if err != nil {
		return cli.NewCommandError("approvals list", err)
	}

	if format == cli.FormatText && len(requests) == 0 {
		fmt.Println("No matching requests.")
		return nil
	}

	table := &cli.Table{
		Headers: []string{"ID", "ACTION", "RISK", "STATUS", "REQUESTOR", "CREATED", "EXPIRES"},
	}
	for _, req := range requests {
		expires := "-"
		if req.ExpiresAt != nil {
			expires = req.ExpiresAt.UTC().Format(time.RFC3339)
		}
		table.Append(req.ID, req.ActionType, req.RiskLevel, req.Status,
			req.Requestor, req.CreatedAt.UTC().Format(time.RFC3339), expires)
	}

	return cli.NewFormatter(format).FormatTo(os.Stdout, table)
}

func resolveApproval(cmd *cobra.Command, requestID string, kind governor.Resolution) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := buildLogger(cfg)
	if err != nil {
		return err
	}

	gov, cleanup, err := buildGovernor(cfg, logger)
	if err != nil {
		return cli.NewCommandError("approvals "+string(kind), err)
	}
	defer cleanup()

	req, err := gov.Resolve(cmd.Context(), requestID, kind, approval.Verdict{
		Actor:  approvalsFlags.by,
		Reason: approvalsFlags.reason,
	})
	if err != nil {
		return cli.NewCommandError("approvals "+string(kind), err)
	}

	fmt.Printf("✓ %s %s (%s by %s)\n", req.Status, req.ID, req.ActionType, approvalsFlags.by)
	return nil
}

func reconcileApprovals(cmd *cobra.Command, args []string) error {
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
		return cli.NewCommandError("approvals reconcile", err)
	}
	defer led.Close()

	workflow, cleanup, err := openWorkflow(cfg, led, logger)
	if err != nil {
		return cli.NewCommandError("approvals reconcile", err)
	}
	defer cleanup()

	expired, err := workflow.ReconcileExpired(cmd.Context())
	if err != nil {
		return cli.NewCommandError("approvals reconcile", err)
	}

	if expired == 0 {
		fmt.Println("No overdue requests.")
		return nil
	}
	fmt.Printf("✓ expired %d overdue request(s)\n", expired)
	return nil
}
