package commands

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	devenv "mealplan-backend/dev/env"
	"mealplan-backend/lib/browser"
	"mealplan-backend/lib/configutil"
	"mealplan-backend/lib/ledger"
	"mealplan-backend/lib/scrapers/eliving"
	"mealplan-backend/lib/serviceutil"
	"mealplan-backend/lib/timezone"
	"mealplan-backend/services/ingest"

	"github.com/spf13/cobra"
)

var (
	scrapeConfig   *string
	scrapeDev      *bool
	scrapeEmail    *string
	scrapeFrom     *string
	scrapeTo       *string
	scrapeHeadless *bool
	scrapeOut      *string
)

func init() {
	scrapeConfig = scrapeCmd.Flags().String("config", "ledger.json5", "The scraper configuration, missing files fall back to defaults.")
	scrapeDev = scrapeCmd.Flags().Bool("dev", false, "Read the account from <dev_state>/"+devenv.PortalAccountFile+".")
	scrapeEmail = scrapeCmd.Flags().String("email", "", "The psu.edu email to log in with.")
	scrapeFrom = scrapeCmd.Flags().String("from", "", "The first day of the range (MM/DD/YYYY).")
	scrapeTo = scrapeCmd.Flags().String("to", "", "The last day of the range (MM/DD/YYYY).")
	scrapeHeadless = scrapeCmd.Flags().Bool("headless", true, "Run chrome without a window.")
	scrapeOut = scrapeCmd.Flags().String("out", "", "Write the serialized ledger to this file.")
	rootCmd.AddCommand(scrapeCmd)
}

func prompt(in *bufio.Reader, label string) (string, error) {
	fmt.Fprintf(os.Stderr, "%s: ", label)
	line, err := in.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// scrapeRequest fills the request from flags (or the dev account), the
// password comes from $LEDGER_PASSWORD or stdin and the one-time code
// always comes from stdin.
func scrapeRequest() (eliving.Request, error) {
	account := devenv.PortalAccountConfig{
		Email:    *scrapeEmail,
		Password: os.Getenv("LEDGER_PASSWORD"),
		From:     *scrapeFrom,
		To:       *scrapeTo,
	}
	if *scrapeDev {
		dev, err := devenv.GetStateConfig[devenv.PortalAccountConfig](devenv.PortalAccountFile)
		if err != nil {
			return eliving.Request{}, err
		}
		account, err = configutil.WithDefaults(account, dev)
		if err != nil {
			return eliving.Request{}, err
		}
	}

	in := bufio.NewReader(os.Stdin)
	var err error
	if account.Password == "" {
		account.Password, err = prompt(in, "password")
		if err != nil {
			return eliving.Request{}, err
		}
	}
	code, err := prompt(in, "one-time code")
	if err != nil {
		return eliving.Request{}, err
	}

	return eliving.Request{
		Credentials: eliving.Credentials{
			Email:       account.Email,
			Password:    account.Password,
			OneTimeCode: code,
		},
		From: account.From,
		To:   account.To,
	}, nil
}

func readScraperConfig() (eliving.Config, error) {
	cfg, err := configutil.ReadConfig[eliving.Config](*scrapeConfig)
	if errors.Is(err, os.ErrNotExist) {
		slog.Info("no scraper config found, using defaults", "path", *scrapeConfig)
		return eliving.Config{}, nil
	}
	return cfg, err
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape [--dev] [--email <email> --from <date> --to <date>]",
	Short: "Logs into eLiving with a local chrome and retrieves the ledger of a date range.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := readScraperConfig()
		if err != nil {
			serviceutil.Fatal("failed to read config", err)
		}
		opts, err := cfg.Options(nil)
		if err != nil {
			serviceutil.Fatal("invalid scraper config", err)
		}
		req, err := scrapeRequest()
		if err != nil {
			serviceutil.Fatal("failed to read request", err)
		}

		slog.Info("retrieving ledger", "request", req)
		launcher := browser.NewChromeLauncher(browser.ChromeOptions{Headless: *scrapeHeadless})
		t1 := timezone.Now()
		out, err := eliving.Scrape(cmd.Context(), launcher, req, opts)
		if err != nil {
			printJSON(eliving.Failure(err))
			os.Exit(1)
		}
		slog.Info("retrieved ledger", "transactions", out.Count, "seconds", timezone.Now().Sub(t1).Seconds())

		if *scrapeOut != "" {
			err = os.WriteFile(*scrapeOut, []byte(out.Data), 0600)
			if err != nil {
				serviceutil.Fatal("failed to write ledger", err)
			}
		}

		txs, err := ledger.Decode(strings.NewReader(out.Data), opts.Location)
		if err != nil {
			serviceutil.Fatal("failed to decode ledger", err)
		}
		service := ingest.NewService(ingest.WithLocation(opts.Location))
		renderRecords(service.Classify(cmd.Context(), txs))
	},
}
