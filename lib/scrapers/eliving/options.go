package eliving

import (
	"fmt"
	"time"

	"mealplan-backend/lib/configutil"
	"mealplan-backend/lib/retry"
	"mealplan-backend/lib/telemetry"
	"mealplan-backend/lib/timezone"

	"github.com/PuerkitoBio/purell"
)

const DefaultPortalUrl = "https://eliving.psu.edu/"

type Options struct {
	PortalUrl string
	// WaitTimeout bounds every wait for an element.
	WaitTimeout time.Duration
	// NavigationTimeout bounds page loads and identity provider redirects.
	NavigationTimeout time.Duration
	// Pagination is applied to every page transition of the grid.
	Pagination retry.Policy
	Selectors  Selectors
	// Location is the timezone ledger timestamps are rendered in.
	Location  *time.Location
	Telemetry telemetry.API
}

func (o Options) withDefaults() Options {
	if o.PortalUrl == "" {
		o.PortalUrl = DefaultPortalUrl
	}
	if o.WaitTimeout <= 0 {
		o.WaitTimeout = 30 * time.Second
	}
	if o.NavigationTimeout <= 0 {
		o.NavigationTimeout = 2 * time.Minute
	}
	if o.Pagination.MaxAttempts <= 0 {
		o.Pagination.MaxAttempts = 2
	}
	if o.Pagination.Backoff <= 0 {
		o.Pagination.Backoff = time.Second
	}
	if o.Location == nil {
		o.Location = timezone.Location
	}
	if o.Telemetry == nil {
		o.Telemetry = telemetry.SlogAPI{}
	}
	selectors, err := configutil.WithDefaults(o.Selectors, DefaultSelectors)
	if err != nil {
		panic(err)
	}
	o.Selectors = selectors
	return o
}

type RetryConfig struct {
	MaxAttempts int                 `json:"max_attempts"`
	Backoff     configutil.Duration `json:"backoff"`
}

// Config is the json form of Options, zero values fall back to the
// defaults.
type Config struct {
	PortalUrl         string              `json:"portal_url"`
	WaitTimeout       configutil.Duration `json:"wait_timeout"`
	NavigationTimeout configutil.Duration `json:"navigation_timeout"`
	PaginationRetry   RetryConfig         `json:"pagination_retry"`
	Selectors         Selectors           `json:"selectors"`
	Timezone          string              `json:"timezone"`
}

func (c Config) Options(tel telemetry.API) (Options, error) {
	loc, err := timezone.Load(c.Timezone)
	if err != nil {
		return Options{}, fmt.Errorf("timezone: %w", err)
	}
	portalUrl := c.PortalUrl
	if portalUrl != "" {
		portalUrl, err = purell.NormalizeURLString(portalUrl, purell.FlagsSafe|purell.FlagRemoveFragment)
		if err != nil {
			return Options{}, fmt.Errorf("portal_url: %w", err)
		}
	}
	opts := Options{
		PortalUrl:         portalUrl,
		WaitTimeout:       c.WaitTimeout.Std(),
		NavigationTimeout: c.NavigationTimeout.Std(),
		Pagination: retry.Policy{
			MaxAttempts: c.PaginationRetry.MaxAttempts,
			Backoff:     c.PaginationRetry.Backoff.Std(),
		},
		Selectors: c.Selectors,
		Location:  loc,
		Telemetry: tel,
	}
	return opts.withDefaults(), nil
}
