package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/otherjamesbrown/mycroft/pkg/orchestrator"
)

// NewMemoryCommand creates the memory command group.
func NewMemoryCommand() *cobra.Command {
	memoryCmd := &cobra.Command{
		Use:   "memory",
		Short: "Inspect and edit the agent's lesson memory",
		Long: `Work with Agent_Memory.md, the append-only document of lessons the
agent learned from rejected plans. Every planning prompt includes it.`,
	}

	memoryCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the memory document",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			v, err := openVault(cfg)
			if err != nil {
				return err
			}
			content := v.ReadMemory()
			if strings.TrimSpace(content) == "" {
				fmt.Println("No lessons recorded yet.")
				return nil
			}
			fmt.Print(content)
			count := orchestrator.CountLessons(content)
			if count > orchestrator.MemoryWarnThreshold {
				fmt.Printf("\n%d lessons recorded; past the soft threshold of %d, consider distilling.\n",
					count, orchestrator.MemoryWarnThreshold)
			}
			return nil
		},
	})

	memoryCmd.AddCommand(&cobra.Command{
		Use:   "add <lesson>",
		Short: "Append a lesson by hand",
		Long: `Append a dated lesson to Agent_Memory.md, the same way the agent does
after a rejection. Useful for seeding guidance the agent has not had the
chance to learn yet.

Examples:
  mycroft memory add "Never commit to deadlines without checking the calendar"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			v, err := openVault(cfg)
			if err != nil {
				return err
			}
			lesson := strings.TrimSpace(args[0])
			if lesson == "" {
				return fmt.Errorf("lesson is empty")
			}
			if err := orchestrator.AppendLesson(v, "manual", lesson, time.Now()); err != nil {
				return fmt.Errorf("appending lesson: %w", err)
			}
			fmt.Println("Lesson recorded.")
			return nil
		},
	})

	return memoryCmd
}
