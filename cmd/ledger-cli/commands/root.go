package commands

import (
	"context"
	"fmt"
	"os"

	devenv "mealplan-backend/dev/env"
	"mealplan-backend/lib/restyutil"
	"mealplan-backend/services/ledger"

	"github.com/pkg/profile"
	"github.com/spf13/cobra"
)

var (
	serverUrl   string
	accessToken string
	profileDir  string
	profiler    interface{ Stop() }
)

var rootCmd = &cobra.Command{
	Use:   "ledger-cli",
	Short: "ledger-cli retrieves, classifies and inspects eLiving meal plan ledgers.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if profileDir == "" {
			return nil
		}
		dir, err := devenv.ResolvePath(profileDir)
		if err != nil {
			return err
		}
		profiler = profile.Start(profile.CPUProfile, profile.ProfilePath(dir), profile.NoShutdownHook)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if profiler != nil {
			profiler.Stop()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&serverUrl, "server", "http://localhost:8080",
		"The base url of a running ledgerd.",
	)
	rootCmd.PersistentFlags().StringVar(
		&accessToken, "token", os.Getenv("LEDGER_ACCESS_TOKEN"),
		"The access token of the ledgerd api (defaults to $LEDGER_ACCESS_TOKEN).",
	)
	rootCmd.PersistentFlags().StringVar(
		&profileDir, "profile", "",
		"Write a cpu profile of the command into this directory (may be a <dev_state>/... path).",
	)
}

// newClient dumps every exchange with the server into <dev_state>/resty.
func newClient() (ledger.Client, error) {
	output, err := restyutil.NewFilesystemOutput("<dev_state>/resty/ledger")
	if err != nil {
		return ledger.Client{}, fmt.Errorf("resty output: %w", err)
	}
	return ledger.NewClient(ledger.ClientOptions{
		BaseUrl:     serverUrl,
		AccessToken: accessToken,
		Output:      output,
	}), nil
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
