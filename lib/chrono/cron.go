// Package chrono runs periodic jobs on cron schedules evaluated in the
// ledger's timezone.
package chrono

import (
	"fmt"
	"time"

	"mealplan-backend/lib/telemetry"
	"mealplan-backend/lib/timezone"

	"github.com/robfig/cron/v3"
)

const report_job_failed = "cron.job"

// CronAPI is what anything that needs to happen on a schedule depends on.
type CronAPI interface {
	Cron(spec string, callback func()) error
}

// StandardCron implements CronAPI with `github.com/robfig/cron/v3`.
type StandardCron struct {
	cron *cron.Cron
}

type CronOption func(opts *cronOptions)

type cronOptions struct {
	location *time.Location
	tel      telemetry.API
}

func WithLocation(loc *time.Location) CronOption {
	return func(opts *cronOptions) {
		opts.location = loc
	}
}

func WithCustomTelemetryAPI(api telemetry.API) CronOption {
	return func(opts *cronOptions) {
		opts.tel = api
	}
}

// NewStandardCron starts the scheduler, it runs until Stop is called.
func NewStandardCron(options ...CronOption) StandardCron {
	opts := cronOptions{
		location: timezone.Location,
		tel:      telemetry.SlogAPI{},
	}
	for _, opt := range options {
		opt(&opts)
	}
	tel := telemetry.NewScopedAPI("chrono", opts.tel)

	cronner := cron.New(
		cron.WithLogger(cronLogger{tel: tel}),
		cron.WithLocation(opts.location),
		cron.WithChain(cron.Recover(cronLogger{tel: tel})),
	)
	cronner.Start()
	return StandardCron{cron: cronner}
}

func (s StandardCron) Cron(spec string, callback func()) error {
	_, err := s.cron.AddFunc(spec, callback)
	if err != nil {
		return fmt.Errorf("schedule %q: %w", spec, err)
	}
	return nil
}

// Stop prevents new runs and waits for the running ones to finish.
func (s StandardCron) Stop() {
	<-s.cron.Stop().Done()
}

type cronLogger struct {
	tel telemetry.API
}

func (l cronLogger) formatParams(keysAndValues []any) []any {
	params := make([]any, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		params = append(params, fmt.Sprintf("%v: %v", keysAndValues[i], keysAndValues[i+1]))
	}
	return params
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.tel.ReportDebug(fmt.Sprintf("cron: %s", msg), l.formatParams(keysAndValues)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	params := append([]any{fmt.Errorf("%s: %w", msg, err)}, l.formatParams(keysAndValues)...)
	l.tel.ReportBroken(report_job_failed, params...)
}
