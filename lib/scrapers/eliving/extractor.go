package eliving

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"mealplan-backend/lib/browser"
	"mealplan-backend/lib/htmlutil"
	"mealplan-backend/lib/ledger"
	"mealplan-backend/lib/telemetry"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Extractor reads every row of the ledger grid of a session parked on the
// ledger screen.
type Extractor struct {
	session
	tel telemetry.API
}

func NewExtractor(page browser.Page, opts Options) Extractor {
	opts = opts.withDefaults()
	return Extractor{
		session: session{page: page, opts: opts},
		tel:     telemetry.NewScopedAPI("eliving_extractor", opts.Telemetry),
	}
}

// Extract returns the rows of every page in page-then-row order. It either
// returns all rows or none: any failure discards the rows gathered so far.
func (e Extractor) Extract(ctx context.Context) ([]ledger.RawRow, error) {
	ctx, span := tracer.Start(ctx, "extractor:Extract")
	defer span.End()

	rows, err := e.extract(ctx)
	if err != nil {
		stepErr := &StepError{State: StateLedgerLoaded, Err: err}
		span.RecordError(stepErr)
		span.SetStatus(codes.Error, stepErr.Error())
		return nil, stepErr
	}
	span.SetAttributes(attribute.Int("rows", len(rows)))
	e.tel.ReportCount(report_extractor_rows, int64(len(rows)))
	return rows, nil
}

func (e Extractor) extract(ctx context.Context) ([]ledger.RawRow, error) {
	empty, err := e.tableReady(ctx)
	if err != nil {
		return nil, err
	}
	info, err := e.readPagerInfo(ctx)
	if err != nil {
		return nil, err
	}
	if empty {
		if info.Pages > 1 || info.TotalItems > 0 {
			return nil, fmt.Errorf("%w: grid is empty but the pager reports %d pages", ErrPagination, info.Pages)
		}
		return nil, nil
	}

	var rows []ledger.RawRow
	for page := 1; page <= info.Pages; page++ {
		if page > 1 {
			err = e.advance(ctx, page, info.Pages)
			if err != nil {
				return nil, err
			}
		}
		pageRows, err := e.readRows(ctx)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", page, err)
		}
		e.tel.ReportDebug(report_extractor_page, page, info.Pages, len(pageRows))
		rows = append(rows, pageRows...)
	}

	if info.HasItems && len(rows) != info.TotalItems {
		e.tel.ReportBroken(report_extractor_incomplete, len(rows), info.TotalItems)
		return nil, fmt.Errorf(
			"%w: extracted %d rows but the pager reports %d",
			ErrPagination, len(rows), info.TotalItems,
		)
	}
	return rows, nil
}

// readPagerInfo treats a missing or empty pager as a single page.
func (e Extractor) readPagerInfo(ctx context.Context) (PagerInfo, error) {
	text, err := e.page.ReadText(ctx, e.opts.Selectors.PagerInfo)
	if errors.Is(err, browser.ErrNotFound) {
		return PagerInfo{Page: 1, Pages: 1}, nil
	}
	if err != nil {
		return PagerInfo{}, pageError(ctx, err, "read pager info")
	}
	return ParsePagerInfo(text)
}

func (e Extractor) readPagerView(ctx context.Context) (PagerView, error) {
	html, err := e.page.ReadHTML(ctx, e.opts.Selectors.Pager)
	if errors.Is(err, browser.ErrNotFound) {
		return PagerView{Jump: -1}, nil
	}
	if err != nil {
		return PagerView{}, pageError(ctx, err, "read pager")
	}
	return ParsePagerView(html, e.opts.Selectors)
}

func (e Extractor) readRows(ctx context.Context) ([]ledger.RawRow, error) {
	sels := e.opts.Selectors
	html, err := e.page.ReadHTML(ctx, sels.Grid)
	if err != nil {
		return nil, pageError(ctx, err, "read grid")
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse grid: %w", err)
	}

	table := htmlutil.TableRows(doc.Selection, sels.Row, sels.Cell)
	rows := make([]ledger.RawRow, 0, len(table))
	for i, cells := range table {
		if len(cells) != ledger.ColumnCount {
			return nil, fmt.Errorf(
				"%w: grid row %d has %d cells, expected %d",
				ledger.ErrMalformedRow, i, len(cells), ledger.ColumnCount,
			)
		}
		var row ledger.RawRow
		copy(row[:], cells)
		rows = append(rows, row)
	}
	return rows, nil
}

// advance moves the grid to target, retrying failed transitions according
// to the pagination policy.
func (e Extractor) advance(ctx context.Context, target, total int) error {
	ctx, span := tracer.Start(ctx, "extractor:advance")
	defer span.End()
	span.SetAttributes(attribute.Int("target", target), attribute.Int("total", total))

	err := e.opts.Pagination.Do(ctx, func(ctx context.Context, attempt int) error {
		span.SetAttributes(attribute.Int("attempt", attempt))
		return e.turnPage(ctx, target, total)
	}, func(err error, wait time.Duration) {
		e.tel.ReportWarning(report_extractor_paginate, target, err, wait)
	})
	if err == nil {
		return nil
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	if ctx.Err() != nil {
		return err
	}
	e.tel.ReportBroken(report_extractor_paginate, target, err)
	if errors.Is(err, ErrPagination) {
		return err
	}
	return fmt.Errorf("%w: page %d: %w", ErrPagination, target, err)
}

// turnPage is a single attempt at moving to target. A previous attempt may
// have landed late, in which case no click is needed.
func (e Extractor) turnPage(ctx context.Context, target, total int) error {
	view, err := e.readPagerView(ctx)
	if err != nil {
		return err
	}
	if view.Active != target {
		pos, err := NextClick(view, target, total)
		if err != nil {
			return err
		}
		err = e.interact(ctx, "click pager link", func(ctx context.Context) error {
			return e.page.ClickNth(ctx, e.opts.Selectors.PagerLinks, pos)
		})
		if err != nil {
			return err
		}
	}

	// the grid re-renders asynchronously, so the old page may still be
	// shown for a while after the click
	verifyCtx, cancel := context.WithTimeout(ctx, e.opts.WaitTimeout)
	defer cancel()
	seen := view.Active
	for {
		active, err := e.landedOn(verifyCtx)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err == nil && active == target {
			return nil
		}
		if err == nil && active > 0 {
			seen = active
		}
		if verifyCtx.Err() != nil {
			return fmt.Errorf("%w: expected page %d to be active, still on %d", ErrPagination, target, seen)
		}
		if err != nil {
			return err
		}
		select {
		case <-verifyCtx.Done():
		case <-time.After(verifyPollInterval):
		}
	}
}

const verifyPollInterval = 50 * time.Millisecond

// landedOn returns the active page once the grid is ready, 0 while the grid
// is empty.
func (e Extractor) landedOn(ctx context.Context) (int, error) {
	empty, err := e.tableReady(ctx)
	if err != nil || empty {
		return 0, err
	}
	return e.activePage(ctx)
}

// activePage prefers the highlighted pager link and falls back to the pager
// status text.
func (e Extractor) activePage(ctx context.Context) (int, error) {
	view, err := e.readPagerView(ctx)
	if err != nil {
		return 0, err
	}
	if view.Active > 0 {
		return view.Active, nil
	}
	info, err := e.readPagerInfo(ctx)
	if err != nil {
		return 0, err
	}
	return info.Page, nil
}
