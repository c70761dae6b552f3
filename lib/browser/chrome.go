package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("mealplan.lib.browser")

type ChromeOptions struct {
	Headless bool
	// ExecPath overrides chrome discovery when non-empty.
	ExecPath  string
	UserAgent string
	// PollInterval is how often WaitFor re-checks the DOM.
	PollInterval time.Duration
}

// ChromeLauncher starts a dedicated headless chrome per page so that
// concurrent sessions never share cookies or DOM state.
type ChromeLauncher struct {
	opts ChromeOptions
}

func NewChromeLauncher(opts ChromeOptions) ChromeLauncher {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 250 * time.Millisecond
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"
	}
	return ChromeLauncher{opts: opts}
}

func (l ChromeLauncher) Launch(ctx context.Context) (Page, error) {
	ctx, span := tracer.Start(ctx, "chrome:Launch")
	defer span.End()

	allocOpts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", l.opts.Headless),
		chromedp.NoSandbox,
		chromedp.WindowSize(1920, 1080),
		chromedp.UserAgent(l.opts.UserAgent),
	)
	if l.opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(l.opts.ExecPath))
	}

	// the browser lives until Close, not until the launching request ends
	base := context.WithoutCancel(ctx)
	allocCtx, allocCancel := chromedp.NewExecAllocator(base, allocOpts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	p := &chromePage{
		ctx: tabCtx,
		cancel: func() {
			tabCancel()
			allocCancel()
		},
		pollInterval: l.opts.PollInterval,
	}

	err := p.run(ctx, chromedp.ActionFunc(func(context.Context) error { return nil }))
	if err != nil {
		p.Close()
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to start browser")
		return nil, fmt.Errorf("start browser: %w", err)
	}
	return p, nil
}

type chromePage struct {
	ctx          context.Context
	cancel       context.CancelFunc
	pollInterval time.Duration

	closeOnce sync.Once
	closed    bool
	mu        sync.Mutex
}

func (p *chromePage) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// run executes actions on the tab while honoring the deadline and
// cancellation of the caller's ctx.
func (p *chromePage) run(ctx context.Context, actions ...chromedp.Action) error {
	if p.isClosed() {
		return ErrClosed
	}
	runCtx, cancel := context.WithCancel(p.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (p *chromePage) Navigate(ctx context.Context, url string) error {
	ctx, span := tracer.Start(ctx, "chrome:Navigate", trace.WithAttributes(attribute.String("url", url)))
	defer span.End()

	err := p.run(ctx, chromedp.Navigate(url))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "navigate failed")
	}
	return err
}

const checkScript = `(function(sels, state) {
	for (let i = 0; i < sels.length; i++) {
		const el = document.querySelector(sels[i]);
		const visible = !!el && !!(el.offsetWidth || el.offsetHeight || el.getClientRects().length);
		if (state === 0 && visible) return i;
		if (state === 1 && el) return i;
		if (state === 2 && !visible) return i;
	}
	return -1;
})(%s, %d)`

func (p *chromePage) check(ctx context.Context, cond Condition) (int, error) {
	sels, err := json.Marshal(cond.Selectors)
	if err != nil {
		return -1, err
	}
	var idx int
	err = p.run(ctx, chromedp.Evaluate(fmt.Sprintf(checkScript, sels, int(cond.State)), &idx))
	if err != nil {
		return -1, err
	}
	return idx, nil
}

func (p *chromePage) WaitFor(ctx context.Context, cond Condition) (int, error) {
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		idx, err := p.check(ctx, cond)
		if err != nil {
			return -1, err
		}
		if idx >= 0 {
			return idx, nil
		}
		select {
		case <-ctx.Done():
			return -1, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (p *chromePage) Click(ctx context.Context, selector string) error {
	return p.ClickNth(ctx, selector, 0)
}

func (p *chromePage) ClickNth(ctx context.Context, selector string, n int) error {
	var nodes []*cdp.Node
	err := p.run(ctx, chromedp.Nodes(selector, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0)))
	if err != nil {
		return err
	}
	if n < 0 || n >= len(nodes) {
		return fmt.Errorf("%w: %s[%d]", ErrNotFound, selector, n)
	}
	return p.run(ctx, chromedp.MouseClickNode(nodes[n]))
}

func (p *chromePage) ClickAndWaitNavigation(ctx context.Context, selector string) error {
	ctx, span := tracer.Start(ctx, "chrome:ClickAndWaitNavigation")
	defer span.End()

	loaded := make(chan struct{}, 1)
	listenCtx, stopListening := context.WithCancel(p.ctx)
	defer stopListening()
	chromedp.ListenTarget(listenCtx, func(ev any) {
		if _, ok := ev.(*page.EventLoadEventFired); ok {
			select {
			case loaded <- struct{}{}:
			default:
			}
		}
	})

	err := p.Click(ctx, selector)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "click failed")
		return err
	}

	select {
	case <-loaded:
		return nil
	case <-ctx.Done():
		span.SetStatus(codes.Error, "navigation never completed")
		return ctx.Err()
	}
}

func (p *chromePage) Type(ctx context.Context, selector, text string) error {
	return p.run(
		ctx,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.SetValue(selector, "", chromedp.ByQuery),
		chromedp.SendKeys(selector, text, chromedp.ByQuery),
	)
}

const readScript = `(function(sel, html) {
	const el = document.querySelector(sel);
	if (!el) return null;
	return html ? el.outerHTML : el.textContent;
})(%s, %t)`

func (p *chromePage) read(ctx context.Context, selector string, html bool) (string, error) {
	sel, err := json.Marshal(selector)
	if err != nil {
		return "", err
	}
	var out *string
	err = p.run(ctx, chromedp.Evaluate(fmt.Sprintf(readScript, sel, html), &out))
	if err != nil {
		return "", err
	}
	if out == nil {
		return "", fmt.Errorf("%w: %s", ErrNotFound, selector)
	}
	return *out, nil
}

func (p *chromePage) ReadText(ctx context.Context, selector string) (string, error) {
	return p.read(ctx, selector, false)
}

func (p *chromePage) ReadHTML(ctx context.Context, selector string) (string, error) {
	return p.read(ctx, selector, true)
}

func (p *chromePage) Close() error {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		p.mu.Unlock()
		p.cancel()
	})
	return nil
}
