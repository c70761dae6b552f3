package testutil

import (
	"context"
	"database/sql"
	"testing"

	"mealplan-backend/lib/sqliteutil"
)

type ServiceParams struct {
	Name string
	// if unspecified, it will skip setting up a schema
	DbSchema string
	// if unspecified, it will use sqliteutil.Memory
	DbPath string
}

type ServiceResult struct {
	DB *sql.DB
}

// SetupService opens a fresh database for a service under test, the
// database is closed when the test finishes.
func SetupService(t testing.TB, params ServiceParams) ServiceResult {
	t.Helper()

	dbpath := sqliteutil.Memory
	if params.DbPath != "" {
		dbpath = params.DbPath
	}
	db, err := sqliteutil.Config{File: dbpath}.OpenDB(context.Background(), params.DbSchema)
	if err != nil {
		t.Fatalf("setup %s: %v", params.Name, err)
	}
	t.Cleanup(func() {
		db.Close()
	})
	return ServiceResult{DB: db}
}
