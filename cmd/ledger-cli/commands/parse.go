package commands

import (
	"os"

	"mealplan-backend/lib/serviceutil"
	"mealplan-backend/services/ingest"

	"github.com/spf13/cobra"
)

var parseJSON *bool

func init() {
	parseJSON = parseCmd.Flags().Bool("json", false, "Print the classified records as json instead of a table.")
	rootCmd.AddCommand(parseCmd)
}

var parseCmd = &cobra.Command{
	Use:   "parse <ledger.txt>",
	Short: "Classifies a serialized ledger or a raw eLiving export without contacting a server.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		text, err := os.ReadFile(args[0])
		if err != nil {
			serviceutil.Fatal("failed to read ledger", err)
		}

		records, err := ingest.NewService().Ingest(cmd.Context(), string(text))
		if err != nil {
			serviceutil.Fatal("failed to parse ledger", err)
		}

		if *parseJSON {
			err = printJSON(records)
			if err != nil {
				serviceutil.Fatal("failed to print records", err)
			}
			return
		}
		renderRecords(records)
	},
}
