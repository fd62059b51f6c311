package commands

import (
	"github.com/spf13/cobra"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "tally",
		Short: "Bank statement import tools",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newBanksCommand())
	rootCmd.AddCommand(newPreviewCommand())
	rootCmd.AddCommand(newMigrateCommand())

	return rootCmd
}
