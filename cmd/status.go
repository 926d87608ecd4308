package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/otherjamesbrown/mycroft/pkg/orchestrator"
	"github.com/otherjamesbrown/mycroft/pkg/vault"
)

// NewStatusCommand creates the status command.
func NewStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show queue depths, today's send count, and sync state",
		Long: `Show a snapshot of the vault: how many items sit in each stage,
how many replies have been sent today against the daily limit, how many
lessons the memory document holds, and whether the vault has unsynced changes.

Examples:
  mycroft status`,
		RunE: runVaultStatus,
	}
}

func runVaultStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	v, err := openVault(cfg)
	if err != nil {
		return err
	}

	fmt.Printf("Vault: %s\n\n", v.Root())

	fmt.Println("Queues:")
	for _, stage := range []vault.Stage{
		vault.StageNeedsAction,
		vault.StagePendingApproval,
		vault.StageApproved,
		vault.StageRejected,
		vault.StageQuarantine,
		vault.StageDone,
	} {
		items, err := v.Stage(stage).List()
		if err != nil {
			return fmt.Errorf("listing %s: %w", stage, err)
		}
		fmt.Printf("  %-18s %d\n", string(stage), len(items))
	}

	ledger := vault.NewSendLedger(v.LogsDir())
	fmt.Printf("\nReplies sent today: %d / %d\n", ledger.Count(), cfg.DailySendLimit)

	lessons := orchestrator.CountLessons(v.ReadMemory())
	fmt.Printf("Memory lessons: %d", lessons)
	if lessons > orchestrator.MemoryWarnThreshold {
		fmt.Printf("  (past the soft threshold of %d; consider distilling)", orchestrator.MemoryWarnThreshold)
	}
	fmt.Println()

	if cfg.SyncEnabled {
		status := vault.NewSyncer(v).Status(cmd.Context())
		fmt.Println("\nSync:")
		fmt.Printf("  Repository:      %t\n", status.IsRepo)
		fmt.Printf("  Remote:          %t\n", status.HasRemote)
		fmt.Printf("  Pending changes: %d\n", status.PendingChanges)
		if status.LastSync != "" {
			fmt.Printf("  Last commit:     %s\n", status.LastSync)
		}
	}

	return nil
}
