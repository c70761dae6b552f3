package eliving

import (
	"context"
	"fmt"

	"mealplan-backend/lib/browser"
	"mealplan-backend/lib/ledger"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Output is a successful scrape, Data is the serialized ledger (see
// ledger.Encode) and Count the number of transactions in it.
type Output struct {
	Data  string `json:"data"`
	Count int    `json:"count"`
}

// Scrape launches a fresh page, logs in, extracts and normalizes the whole
// ledger for the requested date range. The page is closed on every return
// path. Errors can be turned into a FailureResult with Failure.
func Scrape(ctx context.Context, launcher browser.Launcher, req Request, opts Options) (Output, error) {
	ctx, span := tracer.Start(ctx, "Scrape")
	defer span.End()

	opts = opts.withDefaults()
	out, err := scrape(ctx, launcher, req, opts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Output{}, err
	}
	span.SetAttributes(attribute.Int("transactions", out.Count))
	return out, nil
}

func scrape(ctx context.Context, launcher browser.Launcher, req Request, opts Options) (Output, error) {
	err := req.Validate(opts.Location)
	if err != nil {
		return Output{}, &StepError{State: StateStart, Err: err}
	}

	page, err := launcher.Launch(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Output{}, &StepError{State: StateStart, Err: ctxErr}
		}
		return Output{}, &StepError{
			State: StateStart,
			Err:   fmt.Errorf("%w: launch browser: %w", ErrNavigation, err),
		}
	}
	defer func() {
		err := page.Close()
		if err != nil {
			opts.Telemetry.ReportWarning(report_session_close, err)
		}
	}()

	err = NewDriver(page, opts).AuthenticateAndNavigateToLedger(ctx, req)
	if err != nil {
		return Output{}, err
	}
	rows, err := NewExtractor(page, opts).Extract(ctx)
	if err != nil {
		return Output{}, err
	}
	txs, err := ledger.NormalizeAll(rows, opts.Location)
	if err != nil {
		return Output{}, &StepError{State: StateLedgerLoaded, Err: err}
	}
	data, err := ledger.EncodeString(txs)
	if err != nil {
		return Output{}, &StepError{State: StateLedgerLoaded, Err: err}
	}
	return Output{Data: data, Count: len(txs)}, nil
}
