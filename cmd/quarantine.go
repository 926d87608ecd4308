package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/otherjamesbrown/mycroft/pkg/vault"
)

var quarantineRestoreAll bool

// NewQuarantineCommand creates the quarantine command group.
func NewQuarantineCommand() *cobra.Command {
	quarantineCmd := &cobra.Command{
		Use:   "quarantine",
		Short: "Inspect and restore quarantined work items",
		Long: `Work items that repeatedly fail processing are moved to Quarantine/ so
they cannot wedge the queue. The loop restores them automatically after a
cooling-off period, up to a retry limit; these commands let a human look at
what is stuck and force a restore.`,
	}

	quarantineCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List quarantined items with their failure reasons",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			v, err := openVault(cfg)
			if err != nil {
				return err
			}

			items, err := v.Stage(vault.StageQuarantine).List()
			if err != nil {
				return err
			}
			if len(items) == 0 {
				fmt.Println("Quarantine is empty.")
				return nil
			}

			fmt.Printf("%-50s %-8s %s\n", "ITEM", "RETRIES", "REASON")
			for _, item := range items {
				doc, err := v.Stage(vault.StageQuarantine).Read(item.Name)
				if err != nil {
					continue
				}
				fm, _ := vault.ParseFrontmatter(doc)
				reason := fm.QuarantineReason
				if len(reason) > 60 {
					reason = reason[:60] + "..."
				}
				fmt.Printf("%-50s %-8d %s\n", item.Name, fm.RetryCount, reason)
			}
			return nil
		},
	})

	restoreCmd := &cobra.Command{
		Use:   "restore",
		Short: "Restore quarantined items to Needs_Action",
		Long: `Restore quarantined items back to Needs_Action for another attempt.

By default this applies the same rules as the loop: items younger than the
cooling-off period or past the retry limit stay put. Use --all to restore
everything regardless.

Examples:
  mycroft quarantine restore
  mycroft quarantine restore --all`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			v, err := openVault(cfg)
			if err != nil {
				return err
			}

			minAge := vault.DefaultQuarantineMinAge
			maxRetries := vault.DefaultQuarantineMaxRetries
			if quarantineRestoreAll {
				minAge = 0
				maxRetries = 1 << 30
			}

			restored, err := v.RestoreQuarantined(minAge, maxRetries)
			if err != nil {
				return err
			}
			if len(restored) == 0 {
				fmt.Println("Nothing eligible for restore.")
				return nil
			}
			for _, name := range restored {
				fmt.Printf("Restored: %s\n", name)
			}
			return nil
		},
	}
	restoreCmd.Flags().BoolVar(&quarantineRestoreAll, "all", false, "Ignore age and retry limits")
	quarantineCmd.AddCommand(restoreCmd)

	return quarantineCmd
}
