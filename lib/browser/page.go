// Package browser abstracts the handful of page interactions the portal
// scrapers need so that the state machines driving them can run against a
// real browser or an in-memory fake.
package browser

import (
	"context"
	"errors"
)

var (
	ErrNotFound = errors.New("element not found")
	ErrClosed   = errors.New("page closed")
)

type ElementState int

const (
	// StateVisible is satisfied by an element that is rendered with a size.
	StateVisible ElementState = iota
	// StatePresent is satisfied by an element that exists in the DOM.
	StatePresent
	// StateHidden is satisfied by an element that is absent or not rendered.
	StateHidden
)

// Condition is satisfied as soon as any of its selectors reach State.
type Condition struct {
	State     ElementState
	Selectors []string
}

func VisibleAny(selectors ...string) Condition {
	return Condition{State: StateVisible, Selectors: selectors}
}

func PresentAny(selectors ...string) Condition {
	return Condition{State: StatePresent, Selectors: selectors}
}

func Hidden(selector string) Condition {
	return Condition{State: StateHidden, Selectors: []string{selector}}
}

// Page is a single automated browser page. A page is not safe for
// concurrent use, callers drive it from one goroutine.
//
// Every blocking method returns ctx.Err() once ctx is done.
type Page interface {
	// Navigate loads url and waits for its load event.
	Navigate(ctx context.Context, url string) error
	// WaitFor blocks until cond is satisfied and returns the index of the
	// selector that satisfied it.
	WaitFor(ctx context.Context, cond Condition) (int, error)
	// Click clicks the first element matching selector.
	Click(ctx context.Context, selector string) error
	// ClickNth clicks the nth (zero-based) element matching selector.
	ClickNth(ctx context.Context, selector string, n int) error
	// ClickAndWaitNavigation clicks selector and waits for the resulting
	// page load.
	ClickAndWaitNavigation(ctx context.Context, selector string) error
	// Type replaces the value of the input matching selector with text.
	Type(ctx context.Context, selector, text string) error
	// ReadText returns the text content of the first element matching
	// selector, or ErrNotFound without waiting.
	ReadText(ctx context.Context, selector string) (string, error)
	// ReadHTML returns the outer html of the first element matching
	// selector, or ErrNotFound without waiting.
	ReadHTML(ctx context.Context, selector string) (string, error)
	// Close releases the page and everything backing it, it is safe to call
	// more than once.
	Close() error
}

// Launcher acquires new, isolated pages.
type Launcher interface {
	Launch(ctx context.Context) (Page, error)
}
