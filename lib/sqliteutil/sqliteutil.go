// Package sqliteutil opens the sqlite databases backing the services, either
// a local file (modernc.org/sqlite) or a remote libsql server.
package sqliteutil

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"

	devenv "mealplan-backend/dev/env"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

// Memory is a File value that opens a private in-memory database.
const Memory = ":memory:"

type Config struct {
	// File is a local database path, "<dev_state>/..." paths are resolved
	// against the dev environment.
	File string `json:"file"`
	// Url points at a remote libsql server, it takes precedence over File.
	Url       string `json:"url"`
	AuthToken string `json:"auth_token"`
}

func (config Config) open() (*sql.DB, error) {
	if config.Url != "" {
		values := url.Values{}
		if config.AuthToken != "" {
			values.Add("authToken", config.AuthToken)
		}
		return sql.Open("libsql", config.Url+"?"+values.Encode())
	}

	if config.File == "" {
		return nil, fmt.Errorf("neither a file nor a url was specified")
	}
	dbpath := config.File
	if dbpath != Memory {
		var err error
		dbpath, err = devenv.ResolvePath(dbpath)
		if err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", dbpath)
	if err != nil {
		return nil, err
	}
	// sqlite allows a single writer, an in-memory database additionally
	// only exists for the connection that created it.
	db.SetMaxOpenConns(1)
	if dbpath != Memory {
		_, err = db.Exec("PRAGMA journal_mode=WAL")
		if err != nil {
			db.Close()
			return nil, err
		}
	}
	return db, nil
}

// OpenDB opens the configured database and applies schema, which must be
// idempotent ("create table if not exists ...").
func (config Config) OpenDB(ctx context.Context, schema string) (*sql.DB, error) {
	db, err := config.open()
	if err != nil {
		return nil, err
	}
	if schema == "" {
		return db, nil
	}
	_, err = db.ExecContext(ctx, schema)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return db, nil
}
