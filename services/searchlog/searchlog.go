// Package searchlog keeps a history of ledger searches: who searched which
// date range, when, and how it went. Transactions themselves are never
// stored.
package searchlog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"mealplan-backend/lib/telemetry"
	"mealplan-backend/lib/timezone"
	"mealplan-backend/services/searchlog/db"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("mealplan.services.searchlog")

var ErrNotFound = errors.New("search not found")

// DefaultLimit is the number of entries List returns when asked for none.
const DefaultLimit = 50

type Entry struct {
	ID string `json:"id"`
	// Email is masked before it reaches the store.
	Email   string    `json:"email"`
	From    string    `json:"from"`
	To      string    `json:"to"`
	Time    time.Time `json:"time"`
	Success bool      `json:"success"`
	Count   int       `json:"count"`
	Class   string    `json:"class,omitempty"`
	Reason  string    `json:"reason,omitempty"`
}

func entryFromRow(row db.Search) Entry {
	return Entry{
		ID:      row.ID,
		Email:   row.Email,
		From:    row.FromDate,
		To:      row.ToDate,
		Time:    time.UnixMilli(row.CreatedAt).In(timezone.Location),
		Success: row.Success,
		Count:   int(row.TransactionCount),
		Class:   row.FailureClass,
		Reason:  row.FailureReason,
	}
}

type Store struct {
	qry *db.Queries
	now func() time.Time
	tel telemetry.API
}

type StoreOption func(s *Store)

// WithClock replaces the clock used to timestamp new entries.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		s.now = now
	}
}

func WithCustomTelemetryAPI(api telemetry.API) StoreOption {
	return func(s *Store) {
		s.tel = telemetry.NewScopedAPI("searchlog", api)
	}
}

// NewStore wraps a database that has db.Schema applied.
func NewStore(database *sql.DB, options ...StoreOption) Store {
	s := Store{
		qry: db.New(database),
		now: timezone.Now,
		tel: telemetry.NewScopedAPI("searchlog", telemetry.SlogAPI{}),
	}
	for _, opt := range options {
		opt(&s)
	}
	return s
}

// Log stores entry under a new id and the current time, the stored entry is
// returned.
func (s Store) Log(ctx context.Context, entry Entry) (Entry, error) {
	ctx, span := tracer.Start(ctx, "Log")
	defer span.End()

	entry.ID = uuid.NewString()
	entry.Time = s.now().Truncate(time.Millisecond)
	span.SetAttributes(
		attribute.String("id", entry.ID),
		attribute.Bool("success", entry.Success),
	)

	err := s.qry.CreateSearch(ctx, db.Search{
		ID:               entry.ID,
		Email:            entry.Email,
		FromDate:         entry.From,
		ToDate:           entry.To,
		CreatedAt:        entry.Time.UnixMilli(),
		Success:          entry.Success,
		TransactionCount: int64(entry.Count),
		FailureClass:     entry.Class,
		FailureReason:    entry.Reason,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Entry{}, fmt.Errorf("log search: %w", err)
	}
	entry.Time = entry.Time.In(timezone.Location)
	return entry, nil
}

// List returns up to limit entries, newest first.
func (s Store) List(ctx context.Context, limit int) ([]Entry, error) {
	ctx, span := tracer.Start(ctx, "List")
	defer span.End()

	if limit <= 0 {
		limit = DefaultLimit
	}
	rows, err := s.qry.ListSearches(ctx, int64(limit))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	entries := make([]Entry, len(rows))
	for i, row := range rows {
		entries[i] = entryFromRow(row)
	}
	return entries, nil
}

func (s Store) Get(ctx context.Context, id string) (Entry, error) {
	ctx, span := tracer.Start(ctx, "Get")
	defer span.End()
	span.SetAttributes(attribute.String("id", id))

	row, err := s.qry.GetSearch(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Entry{}, err
	}
	return entryFromRow(row), nil
}

// Prune deletes entries older than retention and returns how many were
// deleted.
func (s Store) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	ctx, span := tracer.Start(ctx, "Prune")
	defer span.End()

	deleted, err := s.qry.DeleteSearchesBefore(ctx, s.now().Add(-retention).UnixMilli())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}
	span.SetAttributes(attribute.Int64("deleted", deleted))
	return deleted, nil
}
