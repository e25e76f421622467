package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"proposaldesk/internal/cli"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "proposalctl",
		Short: "Operate the event proposal review service",
		Long: `proposalctl talks to the proposal API to review, edit and inspect proposals,
and runs maintenance tasks (migrations, search reindex) against the backing stores.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(cli.LoginCmd())
	rootCmd.AddCommand(cli.ListCmd())
	rootCmd.AddCommand(cli.ShowCmd())
	rootCmd.AddCommand(cli.ThreadCmd())
	rootCmd.AddCommand(cli.ReviewCmd())
	rootCmd.AddCommand(cli.ReplyCmd())
	rootCmd.AddCommand(cli.EditCmd())
	rootCmd.AddCommand(cli.SearchCmd())

	// Maintenance
	rootCmd.AddCommand(cli.MigrateCmd())
	rootCmd.AddCommand(cli.ReindexCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
