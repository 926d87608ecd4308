package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/otherjamesbrown/mycroft/pkg/vault"
)

// NewSyncCommand creates the sync command group.
func NewSyncCommand() *cobra.Command {
	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Synchronize the vault with its git remote",
		Long: `Pull and push vault changes through git. The run loop does this every
cycle when sync_enabled is set; these commands do it on demand.`,
	}

	syncCmd.AddCommand(&cobra.Command{
		Use:   "now",
		Short: "Pull remote changes, then commit and push local ones",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			v, err := openVault(cfg)
			if err != nil {
				return err
			}

			syncer := vault.NewSyncer(v)
			if !syncer.IsRepo(cmd.Context()) {
				return fmt.Errorf("vault is not a git repository; run 'mycroft init --sync' first")
			}

			message := "mycroft: manual sync " + time.Now().UTC().Format(time.RFC3339)
			result, err := syncer.Sync(cmd.Context(), message)
			if err != nil {
				return err
			}
			fmt.Printf("Pulled changes: %t\n", result.Pulled)
			fmt.Printf("Pushed changes: %t\n", result.Pushed)
			return nil
		},
	})

	syncCmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the vault's git state",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			v, err := openVault(cfg)
			if err != nil {
				return err
			}

			status := vault.NewSyncer(v).Status(cmd.Context())
			if !status.IsRepo {
				fmt.Println("Vault is not a git repository. Run 'mycroft init --sync' to set it up.")
				return nil
			}
			fmt.Printf("Remote configured: %t\n", status.HasRemote)
			fmt.Printf("Pending changes:   %d\n", status.PendingChanges)
			if status.LastSync != "" {
				fmt.Printf("Last commit:       %s\n", status.LastSync)
			}
			return nil
		},
	})

	return syncCmd
}

// initVaultRepo turns the vault into a git repository. Shared with init.
func initVaultRepo(cmd *cobra.Command, v *vault.Vault) (bool, error) {
	return vault.NewSyncer(v).Init(cmd.Context())
}
