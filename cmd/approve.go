package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	mcerrors "github.com/otherjamesbrown/mycroft/pkg/errors"
	"github.com/otherjamesbrown/mycroft/pkg/vault"
)

// NewApproveCommand creates the approve command.
func NewApproveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "approve <plan>",
		Short: "Approve a pending plan",
		Long: `Move a plan from Pending_Approval to Approved.

The next cycle executes it: sends the drafted reply for reply plans, then
archives the plan to Done. The move is atomic; if another reviewer already
moved the plan, the command reports it instead of duplicating the approval.

Examples:
  mycroft approve plan-invoice-overdue.md
  mycroft approve plan-invoice-overdue`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return movePlan(args[0], vault.StagePendingApproval, vault.StageApproved, "approved")
		},
	}
}

// NewRejectCommand creates the reject command.
func NewRejectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reject <plan>",
		Short: "Reject a pending plan",
		Long: `Move a plan from Pending_Approval to Rejected.

The next cycle reviews the rejection, appends any lesson to Agent_Memory.md,
and archives the plan to Done. Future plans see the lesson in their prompt.

Examples:
  mycroft reject plan-invoice-overdue.md`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return movePlan(args[0], vault.StagePendingApproval, vault.StageRejected, "rejected")
		},
	}
}

func movePlan(name string, from, to vault.Stage, verb string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	v, err := openVault(cfg)
	if err != nil {
		return err
	}

	if !strings.HasSuffix(name, ".md") {
		name += ".md"
	}

	dest, err := v.ClaimItem(name, from, to)
	if err != nil {
		if errors.Is(err, mcerrors.ErrNotFound) {
			return fmt.Errorf("no plan %q in %s (already reviewed?)", name, from)
		}
		if errors.Is(err, mcerrors.ErrAlreadyExists) {
			return fmt.Errorf("plan %q already exists in %s", name, to)
		}
		return err
	}

	vault.NewAuditLog(v.LogsDir()).Record("human", verb, name, "moved_to:"+string(to))
	fmt.Printf("Plan %s: %s\n", verb, dest)
	return nil
}
