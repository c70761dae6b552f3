package commands

import (
	"mealplan-backend/lib/serviceutil"

	"github.com/spf13/cobra"
)

var historyLimit *int

func init() {
	historyLimit = historyCmd.Flags().Int("limit", 0, "The maximum number of searches to list (server default when 0).")
	rootCmd.AddCommand(historyCmd)
}

var historyCmd = &cobra.Command{
	Use:   "history [search id]",
	Short: "Lists recent ledger searches of a running ledgerd, or prints a single one.",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client, err := newClient()
		if err != nil {
			serviceutil.Fatal("failed to create client", err)
		}

		if len(args) == 1 {
			entry, err := client.Search(cmd.Context(), args[0])
			if err != nil {
				serviceutil.Fatal("failed to fetch search", err)
			}
			err = printJSON(entry)
			if err != nil {
				serviceutil.Fatal("failed to print search", err)
			}
			return
		}

		entries, err := client.Searches(cmd.Context(), *historyLimit)
		if err != nil {
			serviceutil.Fatal("failed to fetch search history", err)
		}
		renderSearches(entries)
	},
}
