package commands

import (
	"log/slog"
	"os"

	"mealplan-backend/lib/serviceutil"
	"mealplan-backend/services/ledger"

	"github.com/spf13/cobra"
)

var uploadUser *string

func init() {
	uploadUser = uploadCmd.Flags().String("user", "", "The user id the transactions belong to.")
	uploadCmd.MarkFlagRequired("user")
	rootCmd.AddCommand(uploadCmd)
}

var uploadCmd = &cobra.Command{
	Use:   "upload --user <id> <ledger.txt>",
	Short: "Uploads ledger text to a running ledgerd and prints the classified transactions.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		text, err := os.ReadFile(args[0])
		if err != nil {
			serviceutil.Fatal("failed to read ledger", err)
		}
		client, err := newClient()
		if err != nil {
			serviceutil.Fatal("failed to create client", err)
		}

		res, err := client.Upload(cmd.Context(), ledger.UploadRequest{
			CsvData: string(text),
			UserId:  *uploadUser,
		})
		if err != nil {
			serviceutil.Fatal("failed to upload transactions", err)
		}
		slog.Info("uploaded transactions", "count", res.TransactionCount)
		renderRecords(res.Transactions)
	},
}
