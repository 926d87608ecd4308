package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/otherjamesbrown/mycroft/config"
)

var (
	initVaultPath string
	initWithSync  bool
)

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize mycroft configuration and vault",
		Long: `Initialize mycroft for first-time use.

This command will:
1. Create ~/.mycroft/config.yaml with default settings (kept if present)
2. Create the vault stage directories and seed documents
3. Optionally initialize the vault as a git repository (--sync)

The vault defaults to ~/.mycroft/vault; override with --vault or set
vault_path in the config file afterwards.

Examples:
  mycroft init
  mycroft init --vault ~/work/vault --sync`,
		RunE: runInit,
	}

	initCmd.Flags().StringVar(&initVaultPath, "vault", "", "Vault root directory")
	initCmd.Flags().BoolVar(&initWithSync, "sync", false, "Initialize the vault as a git repository and enable sync")

	return initCmd
}

func runInit(cmd *cobra.Command, args []string) error {
	if err := config.EnsureConfigDir(); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	configPath, err := config.ConfigPath()
	if err != nil {
		return err
	}

	var cfg *config.Config
	if _, statErr := os.Stat(configPath); statErr == nil {
		fmt.Printf("Configuration file already exists: %s\n", configPath)
		cfg, err = loadConfig()
		if err != nil {
			return err
		}
	} else {
		cfg = config.DefaultConfig()
	}

	if initVaultPath != "" {
		cfg.VaultPath = initVaultPath
	}
	if initWithSync {
		cfg.SyncEnabled = true
	}

	if err := config.SaveConfig(cfg); err != nil {
		return fmt.Errorf("saving configuration: %w", err)
	}
	fmt.Printf("Configuration saved: %s\n", configPath)

	v, err := openVault(cfg)
	if err != nil {
		return err
	}
	fmt.Printf("Vault ready: %s\n", v.Root())

	if cfg.SyncEnabled {
		created, err := initVaultRepo(cmd, v)
		if err != nil {
			return err
		}
		if created {
			fmt.Println("Vault initialized as a git repository.")
		} else {
			fmt.Println("Vault is already a git repository.")
		}
	}

	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  mycroft auth login    Connect a Gmail account")
	fmt.Println("  mycroft once          Run a single cycle")
	fmt.Println("  mycroft run           Start the polling loop")
	return nil
}
