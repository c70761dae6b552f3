package eliving

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"mealplan-backend/lib/browser"
)

// session bounds every interaction with the page by the configured timeouts
// and maps page errors onto the package sentinels.
type session struct {
	page browser.Page
	opts Options
}

func describe(cond browser.Condition) string {
	return strings.Join(cond.Selectors, " | ")
}

// pageError maps err, returned by an interaction bounded by a child context
// of ctx, to ctx.Err() when the caller gave up, to ErrTimeout when only the
// interaction ran out of time and to ErrNavigation otherwise.
func pageError(ctx context.Context, err error, what string) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s", ErrTimeout, what)
	}
	return fmt.Errorf("%w: %s: %w", ErrNavigation, what, err)
}

func (s session) waitFor(ctx context.Context, cond browser.Condition, long bool) (int, error) {
	timeout := s.opts.WaitTimeout
	if long {
		timeout = s.opts.NavigationTimeout
	}
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	idx, err := s.page.WaitFor(waitCtx, cond)
	if err != nil {
		return -1, pageError(ctx, err, "waiting for "+describe(cond))
	}
	return idx, nil
}

// wait blocks for at most WaitTimeout.
func (s session) wait(ctx context.Context, cond browser.Condition) (int, error) {
	return s.waitFor(ctx, cond, false)
}

// waitLong blocks for at most NavigationTimeout, it is used for waits that
// span identity provider redirects.
func (s session) waitLong(ctx context.Context, cond browser.Condition) (int, error) {
	return s.waitFor(ctx, cond, true)
}

func (s session) interact(ctx context.Context, what string, fn func(ctx context.Context) error) error {
	interactCtx, cancel := context.WithTimeout(ctx, s.opts.WaitTimeout)
	defer cancel()

	err := fn(interactCtx)
	if err != nil {
		return pageError(ctx, err, what)
	}
	return nil
}

func (s session) navigation(ctx context.Context, what string, fn func(ctx context.Context) error) error {
	navCtx, cancel := context.WithTimeout(ctx, s.opts.NavigationTimeout)
	defer cancel()

	err := fn(navCtx)
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return fmt.Errorf("%w: %s: %w", ErrNavigation, what, err)
}

func (s session) navigate(ctx context.Context, url string) error {
	return s.navigation(ctx, "load portal", func(ctx context.Context) error {
		return s.page.Navigate(ctx, url)
	})
}

func (s session) clickAndNavigate(ctx context.Context, selector string) error {
	return s.navigation(ctx, "follow "+selector, func(ctx context.Context) error {
		return s.page.ClickAndWaitNavigation(ctx, selector)
	})
}

func (s session) click(ctx context.Context, selector string) error {
	return s.interact(ctx, "click "+selector, func(ctx context.Context) error {
		return s.page.Click(ctx, selector)
	})
}

// typeInto never mentions text in its errors, it is used for credentials.
func (s session) typeInto(ctx context.Context, selector, text string) error {
	return s.interact(ctx, "type into "+selector, func(ctx context.Context) error {
		return s.page.Type(ctx, selector, text)
	})
}

// tableReady waits for the grid's loading mask to disappear and for either
// a row or the "no records" placeholder to be present. It reports whether
// the grid is empty.
func (s session) tableReady(ctx context.Context) (bool, error) {
	sels := s.opts.Selectors
	_, err := s.wait(ctx, browser.Hidden(sels.LoadingMask))
	if err != nil {
		return false, err
	}
	idx, err := s.wait(ctx, browser.PresentAny(sels.Row, sels.NoRecords))
	if err != nil {
		return false, err
	}
	return idx == 1, nil
}
