package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	devenv "mealplan-backend/dev/env"
	"mealplan-backend/lib/sqliteutil"
	"mealplan-backend/services/searchlog/db"
)

const searchLogFile = "<dev_state>/searchlog.db"

// CreateSearchLog creates the search log database ledgerd uses with the
// default ledger.json5.
func CreateSearchLog(ctx context.Context) error {
	path, err := devenv.ResolvePath(searchLogFile)
	if err != nil {
		return err
	}
	_, err = os.Stat(path)
	if err == nil {
		fmt.Println("database already created at", path)
		return nil
	}

	fmt.Println("creating database at", path)
	database, err := sqliteutil.Config{File: searchLogFile}.OpenDB(ctx, db.Schema)
	if err != nil {
		return err
	}
	return database.Close()
}

const portalAccountTemplate = `// used by "ledger-cli scrape --dev", the one-time code is always prompted for
{
  email: "",
  password: "",
  from: "01/01/2024",
  to: "01/31/2024",
}
`

func CreatePortalAccountTemplate() error {
	path, err := devenv.GetStateFilePath(devenv.PortalAccountFile)
	if err != nil {
		return err
	}
	_, err = os.Stat(path)
	if err == nil {
		return nil
	}
	err = os.MkdirAll(filepath.Dir(path), 0777)
	if err != nil {
		return err
	}
	fmt.Println("writing account template to", path)
	return os.WriteFile(path, []byte(portalAccountTemplate), 0600)
}

func PrintConfigLocations() {
	slog.Info("fill in dev/.state/" + devenv.PortalAccountFile + " before running `ledger-cli scrape --dev`, everything else runs against the fake portal in tests.")
}
