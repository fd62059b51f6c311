package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MrJamesThe3rd/tally/cmd/tally/internal/view"
	"github.com/MrJamesThe3rd/tally/internal/importer/bank"
)

func newBanksCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "banks",
		Short: "List the built-in bank profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), view.ProfileTable(bank.Default().List()))
			return err
		},
	}
}
