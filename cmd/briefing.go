package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/otherjamesbrown/mycroft/pkg/orchestrator"
)

var briefingDays int

// NewBriefingCommand creates the briefing command.
func NewBriefingCommand() *cobra.Command {
	briefingCmd := &cobra.Command{
		Use:   "briefing",
		Short: "Generate an activity briefing from the vault",
		Long: `Summarize the reporting period from the audit log and the stage folders:
replies sent, plans created, completed items, and anything stuck waiting for
review. The briefing is printed and saved to the vault's Briefings folder.

Examples:
  mycroft briefing
  mycroft briefing --days 30`,
		RunE: runBriefing,
	}
	briefingCmd.Flags().IntVar(&briefingDays, "days", 7, "reporting period in days")
	return briefingCmd
}

func runBriefing(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	v, err := openVault(cfg)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	content, err := orchestrator.GenerateBriefing(v, now, briefingDays)
	if err != nil {
		return fmt.Errorf("generating briefing: %w", err)
	}
	path, err := orchestrator.SaveBriefing(v, content, now)
	if err != nil {
		return fmt.Errorf("saving briefing: %w", err)
	}

	fmt.Print(content)
	fmt.Printf("\nSaved to %s\n", path)
	return nil
}
