package eliving

import (
	"context"
	"errors"
	"fmt"

	"mealplan-backend/lib/browser"
	"mealplan-backend/lib/telemetry"

	"go.opentelemetry.io/otel/codes"
)

// Driver logs a session into the portal and parks it on the ledger screen.
// A Driver is single use and, like the page it drives, not safe for
// concurrent use.
type Driver struct {
	session
	tel   telemetry.API
	state State

	// set while advancing, they record which optional screens showed up
	atIdentityProvider bool
	accountChooser     bool
	codePrompted       bool
}

func NewDriver(page browser.Page, opts Options) *Driver {
	opts = opts.withDefaults()
	return &Driver{
		session: session{page: page, opts: opts},
		tel:     telemetry.NewScopedAPI("eliving_driver", opts.Telemetry),
		state:   StateStart,
	}
}

// State is the last state the session reached.
func (d *Driver) State() State {
	return d.state
}

// step runs one transition into next. On failure the session moves to
// StateFailed and the returned *StepError carries the state it failed in.
func (d *Driver) step(ctx context.Context, next State, fn func(ctx context.Context) error) error {
	ctx, span := tracer.Start(ctx, fmt.Sprintf("driver:%s", next))
	defer span.End()

	err := fn(ctx)
	if err != nil {
		stepErr := &StepError{State: d.state, Err: err}
		d.state = StateFailed

		span.RecordError(stepErr)
		span.SetStatus(codes.Error, stepErr.Error())
		switch {
		case errors.Is(err, context.Canceled):
		case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrInvalidOrExpiredCode):
			d.tel.ReportWarning(report_driver_rejected, stepErr.State.String(), err)
		default:
			d.tel.ReportBroken(report_driver_failed, stepErr.State.String(), err)
		}
		return stepErr
	}

	d.state = next
	d.tel.ReportDebug(report_driver_transition, next.String())
	return nil
}

// AuthenticateAndNavigateToLedger walks the login flow with the request's
// credentials and submits its date range, on success the session is parked
// on a loaded ledger grid. Authentication steps are never retried.
func (d *Driver) AuthenticateAndNavigateToLedger(ctx context.Context, req Request) error {
	ctx, span := tracer.Start(ctx, "driver:AuthenticateAndNavigateToLedger")
	defer span.End()

	if d.state != StateStart {
		return fmt.Errorf("driver was already used, it is in state %s", d.state)
	}

	type transition struct {
		next State
		run  func(ctx context.Context) error
	}
	transitions := []transition{
		{next: StatePortalLoaded, run: d.loadPortal},
		{next: StateDepositEntryReached, run: d.enterDeposit},
		{next: StateIdentityProviderReached, run: d.reachIdentityProvider},
		{next: StateAccountChooserResolved, run: d.resolveAccountChooser},
		{next: StateEmailSubmitted, run: func(ctx context.Context) error {
			return d.submitEmail(ctx, req.Credentials.Email)
		}},
		{next: StatePasswordSubmitted, run: func(ctx context.Context) error {
			return d.submitPassword(ctx, req.Credentials.Password)
		}},
		{next: StateMfaMethodSelected, run: d.selectMfaMethod},
		{next: StateMfaCodeSubmitted, run: func(ctx context.Context) error {
			return d.submitCode(ctx, req.Credentials.OneTimeCode)
		}},
		{next: StateLedgerMenuReached, run: d.reachLedgerMenu},
		{next: StateDateRangeSubmitted, run: func(ctx context.Context) error {
			return d.submitDateRange(ctx, req.From, req.To)
		}},
		{next: StateLedgerLoaded, run: d.loadLedger},
	}

	for _, t := range transitions {
		// the account chooser is a detour only taken when it is offered
		if t.next == StateAccountChooserResolved && !d.accountChooser {
			continue
		}
		err := d.step(ctx, t.next, t.run)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}
	}
	return nil
}

func (d *Driver) loadPortal(ctx context.Context) error {
	sels := d.opts.Selectors
	err := d.navigate(ctx, d.opts.PortalUrl)
	if err != nil {
		return err
	}
	// signed out sessions may be redirected straight to the identity
	// provider
	idx, err := d.waitLong(ctx, browser.VisibleAny(sels.DepositEntry, sels.OtherAccount, sels.EmailInput))
	if err != nil {
		return err
	}
	d.atIdentityProvider = idx > 0
	return nil
}

func (d *Driver) enterDeposit(ctx context.Context) error {
	if d.atIdentityProvider {
		return nil
	}
	sels := d.opts.Selectors
	err := d.clickAndNavigate(ctx, sels.DepositEntry)
	if err != nil {
		return err
	}
	idx, err := d.waitLong(ctx, browser.VisibleAny(sels.SignIn, sels.OtherAccount, sels.EmailInput))
	if err != nil {
		return err
	}
	if idx == 0 {
		return d.clickAndNavigate(ctx, sels.SignIn)
	}
	return nil
}

func (d *Driver) reachIdentityProvider(ctx context.Context) error {
	sels := d.opts.Selectors
	idx, err := d.waitLong(ctx, browser.VisibleAny(sels.EmailInput, sels.OtherAccount))
	if err != nil {
		return err
	}
	d.accountChooser = idx == 1
	return nil
}

func (d *Driver) resolveAccountChooser(ctx context.Context) error {
	sels := d.opts.Selectors
	err := d.click(ctx, sels.OtherAccount)
	if err != nil {
		return err
	}
	_, err = d.waitLong(ctx, browser.VisibleAny(sels.EmailInput))
	return err
}

func (d *Driver) submitEmail(ctx context.Context, email string) error {
	sels := d.opts.Selectors
	err := d.typeInto(ctx, sels.EmailInput, email)
	if err != nil {
		return err
	}
	err = d.click(ctx, sels.NextButton)
	if err != nil {
		return err
	}
	idx, err := d.wait(ctx, browser.VisibleAny(sels.PasswordInput, sels.EmailError))
	if err != nil {
		return err
	}
	if idx == 1 {
		return fmt.Errorf("%w: the email was rejected", ErrInvalidCredentials)
	}
	return nil
}

func (d *Driver) submitPassword(ctx context.Context, password string) error {
	sels := d.opts.Selectors
	err := d.typeInto(ctx, sels.PasswordInput, password)
	if err != nil {
		return err
	}
	err = d.click(ctx, sels.NextButton)
	if err != nil {
		return err
	}
	// accounts whose default method is a code skip the method chooser
	idx, err := d.waitLong(ctx, browser.VisibleAny(sels.OtherWay, sels.PasswordError, sels.CodeInput))
	if err != nil {
		return err
	}
	if idx == 1 {
		return fmt.Errorf("%w: the password was rejected", ErrInvalidCredentials)
	}
	d.codePrompted = idx == 2
	return nil
}

func (d *Driver) selectMfaMethod(ctx context.Context) error {
	sels := d.opts.Selectors
	if !d.codePrompted {
		err := d.click(ctx, sels.OtherWay)
		if err != nil {
			return err
		}
		_, err = d.wait(ctx, browser.VisibleAny(sels.CodeMethod))
		if err != nil {
			return err
		}
		err = d.click(ctx, sels.CodeMethod)
		if err != nil {
			return err
		}
	}
	_, err := d.wait(ctx, browser.VisibleAny(sels.CodeInput))
	return err
}

func (d *Driver) submitCode(ctx context.Context, code string) error {
	sels := d.opts.Selectors
	err := d.typeInto(ctx, sels.CodeInput, code)
	if err != nil {
		return err
	}
	err = d.click(ctx, sels.CodeSubmit)
	if err != nil {
		return err
	}

	idx, err := d.waitLong(ctx, browser.VisibleAny(sels.LedgerMenu, sels.CodeError, sels.StaySignedInNo))
	if errors.Is(err, ErrTimeout) {
		return fmt.Errorf("%w: %w", ErrInvalidOrExpiredCode, err)
	}
	if err != nil {
		return err
	}
	switch idx {
	case 1:
		return fmt.Errorf("%w: the code was rejected", ErrInvalidOrExpiredCode)
	case 2:
		// "stay signed in?" is declined so that nothing outlives the session
		return d.click(ctx, sels.StaySignedInNo)
	}
	return nil
}

func (d *Driver) reachLedgerMenu(ctx context.Context) error {
	_, err := d.waitLong(ctx, browser.VisibleAny(d.opts.Selectors.LedgerMenu))
	return err
}

func (d *Driver) submitDateRange(ctx context.Context, from, to string) error {
	sels := d.opts.Selectors
	err := d.clickAndNavigate(ctx, sels.LedgerMenu)
	if err != nil {
		return err
	}
	_, err = d.wait(ctx, browser.VisibleAny(sels.FromDate))
	if err != nil {
		return err
	}
	err = d.typeInto(ctx, sels.FromDate, from)
	if err != nil {
		return err
	}
	err = d.typeInto(ctx, sels.ToDate, to)
	if err != nil {
		return err
	}
	return d.click(ctx, sels.DateSubmit)
}

func (d *Driver) loadLedger(ctx context.Context) error {
	_, err := d.tableReady(ctx)
	return err
}
