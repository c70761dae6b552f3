package eliving

import (
	"context"
	"errors"
	"testing"
	"time"

	"mealplan-backend/lib/browser/browsertest"
	"mealplan-backend/lib/retry"
	"mealplan-backend/lib/scrapers/eliving/elivingtest"
	"mealplan-backend/lib/telemetry"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func testOptions(tel telemetry.API) Options {
	return Options{
		PortalUrl:         "https://eliving.test/",
		WaitTimeout:       50 * time.Millisecond,
		NavigationTimeout: 50 * time.Millisecond,
		Pagination:        retry.Policy{MaxAttempts: 2, Backoff: time.Millisecond},
		Location:          time.UTC,
		Telemetry:         tel,
	}
}

func testPortal() *elivingtest.Portal {
	portal := elivingtest.New()
	portal.Email = testEmail
	portal.Password = testPassword
	portal.Code = testCode
	portal.Pages = elivingtest.Rows(3)
	return portal
}

func TestDriverReachesLedger(t *testing.T) {
	cases := []struct {
		name      string
		configure func(p *elivingtest.Portal)
		detour    bool
	}{
		{name: "plain", configure: func(*elivingtest.Portal) {}},
		{name: "redirected to login", configure: func(p *elivingtest.Portal) { p.RedirectToLogin = true }},
		{name: "account chooser", configure: func(p *elivingtest.Portal) { p.AccountChooser = true }, detour: true},
		{name: "stay signed in prompt", configure: func(p *elivingtest.Portal) { p.StaySignedIn = true }},
		{name: "code by default", configure: func(p *elivingtest.Portal) { p.CodeByDefault = true }},
	}

	for _, test := range cases {
		t.Run(test.name, func(t *testing.T) {
			portal := testPortal()
			test.configure(portal)
			rec := &telemetry.Recorder{}

			driver := NewDriver(portal.Page, testOptions(rec))
			err := driver.AuthenticateAndNavigateToLedger(context.Background(), testRequest())
			require.NoError(t, err)
			require.Equal(t, StateLedgerLoaded, driver.State())
			require.Equal(t, elivingtest.ScreenGrid, portal.Screen())

			require.Equal(t, []string{"https://eliving.test/"}, portal.Page.Visited())
			require.Equal(t, testEmail, portal.Page.Typed(DefaultSelectors.EmailInput))
			require.Equal(t, "01/01/2024", portal.Page.Typed(DefaultSelectors.FromDate))
			require.Equal(t, "03/31/2024", portal.Page.Typed(DefaultSelectors.ToDate))
			require.Equal(t, test.detour, rec.Contains(StateAccountChooserResolved.String()))

			// a driver is single use
			err = driver.AuthenticateAndNavigateToLedger(context.Background(), testRequest())
			require.Error(t, err)
		})
	}
}

func TestDriverFailures(t *testing.T) {
	cases := []struct {
		name      string
		configure func(p *elivingtest.Portal)
		sentinel  error
		state     State
		class     Class
	}{
		{
			name:      "portal unreachable",
			configure: func(p *elivingtest.Portal) { p.Page.NavigateFunc = failNavigation },
			sentinel:  ErrNavigation,
			state:     StateStart,
			class:     ClassTryAgain,
		},
		{
			name:      "portal never renders",
			configure: func(p *elivingtest.Portal) { p.Stall = elivingtest.ScreenPortal },
			sentinel:  ErrTimeout,
			state:     StateStart,
			class:     ClassTryAgain,
		},
		{
			name:      "deposit entry never renders",
			configure: func(p *elivingtest.Portal) { p.Stall = elivingtest.ScreenDeposit },
			sentinel:  ErrTimeout,
			state:     StatePortalLoaded,
		},
		{
			name:      "identity provider never renders",
			configure: func(p *elivingtest.Portal) { p.Stall = elivingtest.ScreenEmail },
			sentinel:  ErrTimeout,
			state:     StateDepositEntryReached,
		},
		{
			name: "account chooser leads nowhere",
			configure: func(p *elivingtest.Portal) {
				p.AccountChooser = true
				p.Stall = elivingtest.ScreenEmail
			},
			sentinel: ErrTimeout,
			state:    StateIdentityProviderReached,
		},
		{
			name:      "email rejected",
			configure: func(p *elivingtest.Portal) { p.Email = "someone-else@psu.edu" },
			sentinel:  ErrInvalidCredentials,
			state:     StateIdentityProviderReached,
			class:     ClassReenterCredentials,
		},
		{
			name:      "password rejected",
			configure: func(p *elivingtest.Portal) { p.Password = "something else" },
			sentinel:  ErrInvalidCredentials,
			state:     StateEmailSubmitted,
			class:     ClassReenterCredentials,
		},
		{
			name:      "method chooser never renders",
			configure: func(p *elivingtest.Portal) { p.Stall = elivingtest.ScreenMethods },
			sentinel:  ErrTimeout,
			state:     StateEmailSubmitted,
		},
		{
			name:      "code rejected",
			configure: func(p *elivingtest.Portal) { p.Code = "000000" },
			sentinel:  ErrInvalidOrExpiredCode,
			state:     StateMfaMethodSelected,
			class:     ClassReenterCode,
		},
		{
			name:      "code never answered",
			configure: func(p *elivingtest.Portal) { p.SilentCode = true },
			sentinel:  ErrInvalidOrExpiredCode,
			state:     StateMfaMethodSelected,
			class:     ClassReenterCode,
		},
		{
			name: "ledger menu never renders after stay signed in",
			configure: func(p *elivingtest.Portal) {
				p.StaySignedIn = true
				p.Stall = elivingtest.ScreenHome
			},
			sentinel: ErrTimeout,
			state:    StateMfaCodeSubmitted,
		},
		{
			name:      "date form never renders",
			configure: func(p *elivingtest.Portal) { p.Stall = elivingtest.ScreenForm },
			sentinel:  ErrTimeout,
			state:     StateLedgerMenuReached,
		},
		{
			name:      "grid never loads",
			configure: func(p *elivingtest.Portal) { p.Stall = elivingtest.ScreenGrid },
			sentinel:  ErrTimeout,
			state:     StateDateRangeSubmitted,
		},
	}

	for _, test := range cases {
		t.Run(test.name, func(t *testing.T) {
			portal := testPortal()
			test.configure(portal)
			rec := &telemetry.Recorder{}

			driver := NewDriver(portal.Page, testOptions(rec))
			err := driver.AuthenticateAndNavigateToLedger(context.Background(), testRequest())
			require.ErrorIs(t, err, test.sentinel)

			var stepErr *StepError
			require.True(t, errors.As(err, &stepErr))
			require.Equal(t, test.state, stepErr.State)
			require.Equal(t, StateFailed, driver.State())

			class := test.class
			if class == "" {
				class = ClassTryAgain
			}
			require.Equal(t, class, Failure(err).Class)

			for _, secret := range []string{testPassword, testCode, testEmail} {
				require.NotContains(t, err.Error(), secret)
				require.False(t, rec.Contains(secret), "%s was reported", secret)
			}
			require.NotEmpty(t, append(rec.IDs(telemetry.LevelWarning), rec.IDs(telemetry.LevelBroken)...))
		})
	}
}

func failNavigation(*browsertest.Page, string) error {
	return errors.New("net::ERR_NAME_NOT_RESOLVED")
}

func TestDriverCancelled(t *testing.T) {
	portal := testPortal()
	ctx, cancel := context.WithCancel(context.Background())
	// the user gives up while the identity provider checks the code
	portal.Page.OnClick(DefaultSelectors.CodeSubmit, func(*browsertest.Page, *goquery.Selection) {
		cancel()
	})

	rec := &telemetry.Recorder{}
	driver := NewDriver(portal.Page, testOptions(rec))
	err := driver.AuthenticateAndNavigateToLedger(ctx, testRequest())
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, ClassCancelled, Failure(err).Class)
	require.Empty(t, rec.IDs(telemetry.LevelBroken))
}
