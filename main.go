// Package main provides the mycroft entry point.
// mycroft is a human-in-the-loop email agent that drafts plans for incoming
// work and only acts once a person (or a confidence gate) approves them.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/otherjamesbrown/mycroft/cmd"
	"github.com/otherjamesbrown/mycroft/pkg/buildinfo"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "mycroft",
	Short: "Mycroft - human-in-the-loop email agent",
	Long: `mycroft watches Gmail and a drop folder, turns what it finds into work
items in a markdown vault, and drafts an execution plan for each one. Plans
wait in Pending_Approval until a human approves or rejects them; high
confidence plans can skip the queue when auto-approval is enabled.

The vault is plain markdown in stage directories, editable with any tool.
Rejections become lessons in Agent_Memory.md that shape future plans.

COMMON WORKFLOWS:
  First run:      mycroft init  ->  mycroft auth login  ->  mycroft run
  Review plans:   ls vault/Pending_Approval  ->  mycroft approve <plan>
  Check state:    mycroft status
  Stuck items:    mycroft quarantine list  ->  mycroft quarantine restore

DISCOVERY:
  mycroft <command> --help    Subcommands, flags, and examples`,
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		info := buildinfo.Get("mycroft")
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "mycroft version %s\n", info.Version)
		fmt.Fprintf(out, "  commit:  %s\n", info.Commit)
		fmt.Fprintf(out, "  built:   %s\n", info.BuildTime)
		fmt.Fprintf(out, "  go:      %s\n", info.GoVersion)
		return nil
	},
}

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: "agent", Title: "Agent:"},
		&cobra.Group{ID: "review", Title: "Review:"},
		&cobra.Group{ID: "vault", Title: "Vault:"},
		&cobra.Group{ID: "setup", Title: "Setup:"},
	)

	runCmd := cmd.NewRunCommand()
	runCmd.GroupID = "agent"
	rootCmd.AddCommand(runCmd)

	onceCmd := cmd.NewOnceCommand()
	onceCmd.GroupID = "agent"
	rootCmd.AddCommand(onceCmd)

	statusCmd := cmd.NewStatusCommand()
	statusCmd.GroupID = "agent"
	rootCmd.AddCommand(statusCmd)

	approveCmd := cmd.NewApproveCommand()
	approveCmd.GroupID = "review"
	rootCmd.AddCommand(approveCmd)

	rejectCmd := cmd.NewRejectCommand()
	rejectCmd.GroupID = "review"
	rootCmd.AddCommand(rejectCmd)

	quarantineCmd := cmd.NewQuarantineCommand()
	quarantineCmd.GroupID = "review"
	rootCmd.AddCommand(quarantineCmd)

	memoryCmd := cmd.NewMemoryCommand()
	memoryCmd.GroupID = "vault"
	rootCmd.AddCommand(memoryCmd)

	syncCmd := cmd.NewSyncCommand()
	syncCmd.GroupID = "vault"
	rootCmd.AddCommand(syncCmd)

	briefingCmd := cmd.NewBriefingCommand()
	briefingCmd.GroupID = "vault"
	rootCmd.AddCommand(briefingCmd)

	initCmd := cmd.NewInitCommand()
	initCmd.GroupID = "setup"
	rootCmd.AddCommand(initCmd)

	authCmd := cmd.NewAuthCommand()
	authCmd.GroupID = "setup"
	rootCmd.AddCommand(authCmd)

	versionCmd.GroupID = "setup"
	rootCmd.AddCommand(versionCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
