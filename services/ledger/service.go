// Package ledger is the HTTP front of the scraper: it runs ledger
// retrievals on behalf of users, classifies the result and keeps a history
// of searches.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"mealplan-backend/lib/browser"
	"mealplan-backend/lib/scrapers/eliving"
	"mealplan-backend/lib/telemetry"
	"mealplan-backend/services/ingest"
	"mealplan-backend/services/searchlog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/semaphore"
)

var tracer = otel.Tracer("mealplan.services.ledger")

const (
	report_search_log = "searchlog.log"
	report_busy       = "sessions.busy"
)

// ErrBusy is returned when no browser session frees up in time.
var ErrBusy = errors.New("too many concurrent sessions")

// LoginRequest is the body of POST /login.
type LoginRequest struct {
	PsuEmail         string `json:"psuEmail"`
	Password         string `json:"password"`
	VerificationCode string `json:"verificationCode"`
	FromDate         string `json:"fromDate"`
	ToDate           string `json:"toDate"`
}

func (r LoginRequest) scrapeRequest() eliving.Request {
	return eliving.Request{
		Credentials: eliving.Credentials{
			Email:       r.PsuEmail,
			Password:    r.Password,
			OneTimeCode: r.VerificationCode,
		},
		From: r.FromDate,
		To:   r.ToDate,
	}
}

func (r LoginRequest) LogValue() slog.Value {
	return r.scrapeRequest().LogValue()
}

type LoginResponse struct {
	Success          bool            `json:"success"`
	SearchId         string          `json:"searchId,omitempty"`
	TransactionCount int             `json:"transactionCount"`
	Data             string          `json:"data"`
	Transactions     []ingest.Record `json:"transactions"`
}

// LoginFailure is the body of a failed POST /login.
type LoginFailure struct {
	eliving.FailureResult
	SearchId string `json:"searchId,omitempty"`
}

// UploadRequest is the body of POST /upload-transactions, CsvData is either
// serialized ledger text or a raw export.
type UploadRequest struct {
	CsvData string `json:"csvData"`
	UserId  string `json:"userId"`
}

type UploadResponse struct {
	Success          bool            `json:"success"`
	TransactionCount int             `json:"transactionCount"`
	Transactions     []ingest.Record `json:"transactions"`
}

type Options struct {
	Scrape eliving.Options
	// MaxSessions bounds the number of browsers running at once.
	MaxSessions int64
	// QueueTimeout is how long a login waits for a free session.
	QueueTimeout time.Duration
}

type Service struct {
	launcher browser.Launcher
	ingest   ingest.Service
	searches searchlog.Store
	opts     Options
	sessions *semaphore.Weighted
	tel      telemetry.API
}

type ServiceOption func(s *Service)

func WithCustomTelemetryAPI(api telemetry.API) ServiceOption {
	return func(s *Service) {
		s.tel = telemetry.NewScopedAPI("ledger", api)
	}
}

func NewService(
	launcher browser.Launcher,
	ingestor ingest.Service,
	searches searchlog.Store,
	opts Options,
	options ...ServiceOption,
) *Service {
	if opts.MaxSessions <= 0 {
		opts.MaxSessions = 2
	}
	if opts.QueueTimeout <= 0 {
		opts.QueueTimeout = 30 * time.Second
	}
	s := &Service{
		launcher: launcher,
		ingest:   ingestor,
		searches: searches,
		opts:     opts,
		sessions: semaphore.NewWeighted(opts.MaxSessions),
		tel:      telemetry.NewScopedAPI("ledger", telemetry.SlogAPI{}),
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// Login retrieves and classifies the ledger of the requested date range. A
// search entry is logged for every outcome but cancellation, its id is
// returned along with the error.
func (s *Service) Login(ctx context.Context, req LoginRequest) (LoginResponse, string, error) {
	ctx, span := tracer.Start(ctx, "Login")
	defer span.End()

	res, err := s.login(ctx, req)
	if errors.Is(err, context.Canceled) {
		span.SetStatus(codes.Error, err.Error())
		return LoginResponse{}, "", err
	}

	entry := searchlog.Entry{
		Email:   eliving.MaskEmail(req.PsuEmail),
		From:    req.FromDate,
		To:      req.ToDate,
		Success: err == nil,
		Count:   res.TransactionCount,
	}
	if err != nil {
		failure := eliving.Failure(err)
		entry.Class = string(failure.Class)
		entry.Reason = failure.Reason
	}
	logged, logErr := s.searches.Log(ctx, entry)
	if logErr != nil {
		s.tel.ReportBroken(report_search_log, logErr)
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return LoginResponse{}, logged.ID, err
	}
	res.SearchId = logged.ID
	span.SetAttributes(attribute.Int("transactions", res.TransactionCount))
	return res, logged.ID, nil
}

func (s *Service) login(ctx context.Context, req LoginRequest) (LoginResponse, error) {
	err := s.acquire(ctx)
	if err != nil {
		return LoginResponse{}, err
	}
	defer s.sessions.Release(1)

	slog.InfoContext(ctx, "retrieving ledger", "request", req)
	out, err := eliving.Scrape(ctx, s.launcher, req.scrapeRequest(), s.opts.Scrape)
	if err != nil {
		return LoginResponse{}, err
	}
	records, err := s.ingest.Ingest(ctx, out.Data)
	if err != nil {
		return LoginResponse{}, fmt.Errorf("classify ledger: %w", err)
	}
	return LoginResponse{
		Success:          true,
		TransactionCount: out.Count,
		Data:             out.Data,
		Transactions:     records,
	}, nil
}

func (s *Service) acquire(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, s.opts.QueueTimeout)
	defer cancel()
	err := s.sessions.Acquire(waitCtx, 1)
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	s.tel.ReportWarning(report_busy, s.opts.MaxSessions)
	return &eliving.StepError{
		State: eliving.StateStart,
		Err:   fmt.Errorf("%w: %w", eliving.ErrTimeout, ErrBusy),
	}
}

// Upload classifies ledger text supplied by a user.
func (s *Service) Upload(ctx context.Context, req UploadRequest) (UploadResponse, error) {
	ctx, span := tracer.Start(ctx, "Upload")
	defer span.End()
	span.SetAttributes(attribute.String("user", req.UserId))

	records, err := s.ingest.Ingest(ctx, req.CsvData)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return UploadResponse{}, err
	}
	return UploadResponse{
		Success:          true,
		TransactionCount: len(records),
		Transactions:     records,
	}, nil
}

func (s *Service) Searches(ctx context.Context, limit int) ([]searchlog.Entry, error) {
	return s.searches.List(ctx, limit)
}

func (s *Service) Search(ctx context.Context, id string) (searchlog.Entry, error) {
	return s.searches.Get(ctx, id)
}
