package main

import (
	"time"

	"mealplan-backend/lib/browser"
	"mealplan-backend/lib/configutil"
	"mealplan-backend/lib/scrapers/eliving"
	"mealplan-backend/lib/sqliteutil"
	"mealplan-backend/services/ingest"
	"mealplan-backend/services/ledger"
)

type Config struct {
	eliving.Config

	Headless     *bool               `json:"headless"`
	ChromePath   string              `json:"chrome_path"`
	PollInterval configutil.Duration `json:"poll_interval"`

	MaxSessions  int64               `json:"max_sessions"`
	QueueTimeout configutil.Duration `json:"queue_timeout"`
	// LaunchInterval is the minimum spacing between browser launches once
	// max_sessions launches have happened in a burst.
	LaunchInterval configutil.Duration `json:"launch_interval"`

	Port        int    `json:"port"`
	AccessToken string `json:"access_token"`

	SearchLog       sqliteutil.Config   `json:"search_log"`
	SearchRetention configutil.Duration `json:"search_retention"`
	// RetentionSchedule is a cron spec, hourly when empty.
	RetentionSchedule string `json:"retention_schedule"`

	Classifier ingest.Config `json:"classifier"`
}

var defaultConfig = Config{
	Port: 8080,
	SearchLog: sqliteutil.Config{
		File: "<dev_state>/searchlog.db",
	},
	SearchRetention: configutil.Duration(90 * 24 * time.Hour),
}

func (c Config) chromeOptions() browser.ChromeOptions {
	headless := true
	if c.Headless != nil {
		headless = *c.Headless
	}
	return browser.ChromeOptions{
		Headless:     headless,
		ExecPath:     c.ChromePath,
		PollInterval: c.PollInterval.Std(),
	}
}

func (c Config) launcher() browser.Launcher {
	return browser.Throttle(
		browser.NewChromeLauncher(c.chromeOptions()),
		c.LaunchInterval.Std(),
		int(c.MaxSessions),
	)
}

func (c Config) serviceOptions(scrape eliving.Options) ledger.Options {
	return ledger.Options{
		Scrape:       scrape,
		MaxSessions:  c.MaxSessions,
		QueueTimeout: c.QueueTimeout.Std(),
	}
}
