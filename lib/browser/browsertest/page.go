// Package browsertest provides an in-memory browser.Page backed by goquery so
// that scraping state machines can be exercised without a browser.
package browsertest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"mealplan-backend/lib/browser"

	"github.com/PuerkitoBio/goquery"
)

type clickHandler struct {
	selector string
	fn       func(p *Page, el *goquery.Selection)
}

// Page is a scripted fake page. The current screen is an html document,
// clicks on registered selectors run handlers that usually swap the screen
// or queue asynchronous mutations with Later.
//
// Pending mutations are applied one per WaitFor poll, which mimics content
// that renders some time after an interaction.
type Page struct {
	mu       sync.Mutex
	doc      *goquery.Document
	handlers []clickHandler
	pending  []func(p *Page)
	typed    map[string]string
	clicks   []string
	visited  []string
	closed   bool

	// NavigateFunc handles Navigate, the default renders nothing.
	NavigateFunc func(p *Page, url string) error
	// Launches counts how many times the Launcher handed this page out.
	Launches int
}

func New() *Page {
	p := &Page{typed: map[string]string{}}
	p.SetHTML("<html><body></body></html>")
	return p
}

// SetHTML replaces the current screen.
func (p *Page) SetHTML(html string) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		panic(err)
	}
	p.mu.Lock()
	p.doc = doc
	p.mu.Unlock()
}

// Mutate edits the current screen in place.
func (p *Page) Mutate(fn func(doc *goquery.Document)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(p.doc)
}

// Later queues a mutation that is applied while something waits on the page.
func (p *Page) Later(fn func(p *Page)) {
	p.mu.Lock()
	p.pending = append(p.pending, fn)
	p.mu.Unlock()
}

// OnClick registers fn to run whenever a clicked element matches selector.
func (p *Page) OnClick(selector string, fn func(p *Page, el *goquery.Selection)) {
	p.mu.Lock()
	p.handlers = append(p.handlers, clickHandler{selector: selector, fn: fn})
	p.mu.Unlock()
}

// Typed returns the last text typed into selector.
func (p *Page) Typed(selector string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.typed[selector]
}

// Clicks returns the selectors clicked so far, ClickNth is recorded as
// "selector[n]".
func (p *Page) Clicks() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.clicks...)
}

func (p *Page) Visited() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.visited...)
}

func (p *Page) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *Page) HTML() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	html, _ := p.doc.Html()
	return html
}

func isVisible(el *goquery.Selection) bool {
	if el.Length() == 0 {
		return false
	}
	hidden := func(s *goquery.Selection) bool {
		if _, ok := s.Attr("hidden"); ok {
			return true
		}
		style := strings.ReplaceAll(s.AttrOr("style", ""), " ", "")
		return strings.Contains(style, "display:none")
	}
	if hidden(el) {
		return false
	}
	visible := true
	el.Parents().EachWithBreak(func(_ int, parent *goquery.Selection) bool {
		visible = !hidden(parent)
		return visible
	})
	return visible
}

func (p *Page) match(cond browser.Condition) int {
	for i, sel := range cond.Selectors {
		el := p.doc.Find(sel).First()
		switch cond.State {
		case browser.StateVisible:
			if isVisible(el) {
				return i
			}
		case browser.StatePresent:
			if el.Length() > 0 {
				return i
			}
		case browser.StateHidden:
			if !isVisible(el) {
				return i
			}
		}
	}
	return -1
}

func (p *Page) Navigate(ctx context.Context, url string) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return browser.ErrClosed
	}
	p.visited = append(p.visited, url)
	fn := p.NavigateFunc
	p.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if fn == nil {
		return nil
	}
	return fn(p, url)
}

func (p *Page) WaitFor(ctx context.Context, cond browser.Condition) (int, error) {
	for {
		if err := ctx.Err(); err != nil {
			return -1, err
		}
		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			return -1, browser.ErrClosed
		}
		idx := p.match(cond)
		if idx >= 0 {
			p.mu.Unlock()
			return idx, nil
		}
		var next func(p *Page)
		if len(p.pending) > 0 {
			next = p.pending[0]
			p.pending = p.pending[1:]
		}
		p.mu.Unlock()

		if next != nil {
			next(p)
			continue
		}
		select {
		case <-ctx.Done():
			return -1, ctx.Err()
		case <-time.After(time.Millisecond):
		}
	}
}

func (p *Page) click(ctx context.Context, selector string, n int, label string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return browser.ErrClosed
	}
	all := p.doc.Find(selector)
	if n < 0 || n >= all.Length() {
		p.mu.Unlock()
		return fmt.Errorf("%w: %s", browser.ErrNotFound, label)
	}
	el := all.Eq(n)
	p.clicks = append(p.clicks, label)
	var matched []clickHandler
	for _, h := range p.handlers {
		if el.Is(h.selector) {
			matched = append(matched, h)
		}
	}
	p.mu.Unlock()

	for _, h := range matched {
		h.fn(p, el)
	}
	return nil
}

func (p *Page) Click(ctx context.Context, selector string) error {
	return p.click(ctx, selector, 0, selector)
}

func (p *Page) ClickNth(ctx context.Context, selector string, n int) error {
	return p.click(ctx, selector, n, fmt.Sprintf("%s[%d]", selector, n))
}

func (p *Page) ClickAndWaitNavigation(ctx context.Context, selector string) error {
	return p.Click(ctx, selector)
}

func (p *Page) Type(ctx context.Context, selector, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return browser.ErrClosed
	}
	if p.doc.Find(selector).Length() == 0 {
		return fmt.Errorf("%w: %s", browser.ErrNotFound, selector)
	}
	p.typed[selector] = text
	return nil
}

func (p *Page) ReadText(ctx context.Context, selector string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return "", browser.ErrClosed
	}
	el := p.doc.Find(selector).First()
	if el.Length() == 0 {
		return "", fmt.Errorf("%w: %s", browser.ErrNotFound, selector)
	}
	return el.Text(), nil
}

func (p *Page) ReadHTML(ctx context.Context, selector string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return "", browser.ErrClosed
	}
	el := p.doc.Find(selector).First()
	if el.Length() == 0 {
		return "", fmt.Errorf("%w: %s", browser.ErrNotFound, selector)
	}
	return goquery.OuterHtml(el)
}

func (p *Page) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	return nil
}

// Launcher hands out a single prepared page.
type Launcher struct {
	Page *Page
	Err  error
}

func (l *Launcher) Launch(ctx context.Context) (browser.Page, error) {
	if l.Err != nil {
		return nil, l.Err
	}
	l.Page.mu.Lock()
	l.Page.Launches++
	l.Page.mu.Unlock()
	return l.Page, nil
}
