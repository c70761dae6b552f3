package main

import (
	"context"
	"flag"
	"log/slog"

	"mealplan-backend/lib/chrono"
	"mealplan-backend/lib/configutil"
	"mealplan-backend/lib/serviceutil"
	"mealplan-backend/lib/telemetry"
	"mealplan-backend/services/ingest"
	"mealplan-backend/services/ledger"
	"mealplan-backend/services/searchlog"
	"mealplan-backend/services/searchlog/db"
)

func initTelemetry(ctx context.Context, verbose bool) {
	telemetry.InitSlog(verbose)
	if verbose {
		slog.DebugContext(ctx, "verbose logging enabled")
	}

	err := telemetry.SetupFromEnv(ctx, "ledgerd")
	if err != nil {
		serviceutil.Fatal("setup telemetry", err)
	}
	go func() {
		<-ctx.Done()
		telemetry.Shutdown(context.Background())
	}()
	telemetry.InstrumentPerfStats(ctx)
}

func main() {
	verbose := flag.Bool("v", false, "Enable verbose logging/instrumentation.")
	configPath := flag.String("config", "ledger.json5", "The configuration file to read.")
	flag.Parse()

	ctx := serviceutil.SignalContext()
	initTelemetry(ctx, *verbose)

	cfg, err := configutil.ReadConfig[Config](*configPath)
	if err != nil {
		serviceutil.Fatal("read config", err)
	}
	cfg, err = configutil.WithDefaults(cfg, defaultConfig)
	if err != nil {
		serviceutil.Fatal("apply config defaults", err)
	}

	scrape, err := cfg.Config.Options(telemetry.SlogAPI{})
	if err != nil {
		serviceutil.Fatal("scraper config", err)
	}
	classifier, err := cfg.Classifier.Classifier()
	if err != nil {
		serviceutil.Fatal("classifier config", err)
	}

	database, err := cfg.SearchLog.OpenDB(ctx, db.Schema)
	if err != nil {
		serviceutil.Fatal("open search log", err)
	}
	defer database.Close()
	searches := searchlog.NewStore(database)

	cron := chrono.NewStandardCron(chrono.WithLocation(scrape.Location))
	defer cron.Stop()
	err = searches.ScheduleRetention(ctx, cron, cfg.RetentionSchedule, cfg.SearchRetention.Std())
	if err != nil {
		serviceutil.Fatal("schedule search log retention", err)
	}

	service := ledger.NewService(
		cfg.launcher(),
		ingest.NewService(
			ingest.WithClassifier(classifier),
			ingest.WithLocation(scrape.Location),
		),
		searches,
		cfg.serviceOptions(scrape),
	)
	if cfg.AccessToken == "" {
		slog.Warn("no access_token configured, the api is open to anyone who can reach it")
	}

	serviceutil.StartHttpServer(ctx, cfg.Port, service.Handler(cfg.AccessToken))
}
