// Package ingest turns ledger text (a serialized scrape or a raw export
// pasted by a user) into classified records.
package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"mealplan-backend/lib/configutil"
	"mealplan-backend/lib/ledger"
	"mealplan-backend/lib/telemetry"
	"mealplan-backend/lib/timezone"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("mealplan.services.ingest")

const (
	report_unclassified = "ingest.unclassified"
	report_records      = "ingest.records"
)

// Record is a transaction with the category and subcategory of its
// location.
type Record struct {
	ledger.Transaction
	Category    string `json:"category"`
	Subcategory string `json:"subcategory"`
}

type Format int

const (
	// FormatSerialized is the comma delimited text written by ledger.Encode.
	FormatSerialized Format = iota
	// FormatExport is the tab separated text copied out of the portal.
	FormatExport
)

func (f Format) String() string {
	if f == FormatSerialized {
		return "serialized"
	}
	return "export"
}

// DetectFormat looks at the first non-blank line of text.
func DetectFormat(text string) Format {
	header := strings.Join(ledger.Header, ",")
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == header {
			return FormatSerialized
		}
		return FormatExport
	}
	return FormatExport
}

type Config struct {
	Categories    []Rule  `json:"categories"`
	Subcategories []Rule  `json:"subcategories"`
	Similarity    float64 `json:"similarity"`
}

func (c Config) Classifier() (Classifier, error) {
	c, err := configutil.WithDefaults(c, Config{
		Categories:    DefaultCategories,
		Subcategories: DefaultSubcategories,
		Similarity:    DefaultSimilarity,
	})
	if err != nil {
		return Classifier{}, err
	}
	return NewClassifier(c.Categories, c.Subcategories, c.Similarity), nil
}

type Service struct {
	classifier Classifier
	loc        *time.Location
	tel        telemetry.API
}

type ServiceOption func(s *Service)

func WithClassifier(classifier Classifier) ServiceOption {
	return func(s *Service) {
		s.classifier = classifier
	}
}

// WithLocation sets the timezone raw export timestamps are read in.
func WithLocation(loc *time.Location) ServiceOption {
	return func(s *Service) {
		s.loc = loc
	}
}

func WithCustomTelemetryAPI(api telemetry.API) ServiceOption {
	return func(s *Service) {
		s.tel = telemetry.NewScopedAPI("ingest", api)
	}
}

func NewService(options ...ServiceOption) Service {
	s := Service{
		classifier: DefaultClassifier(),
		loc:        timezone.Location,
		tel:        telemetry.NewScopedAPI("ingest", telemetry.SlogAPI{}),
	}
	for _, opt := range options {
		opt(&s)
	}
	return s
}

// Ingest parses text in whichever format it is in and classifies every
// transaction. Parse failures abort the whole batch.
func (s Service) Ingest(ctx context.Context, text string) ([]Record, error) {
	ctx, span := tracer.Start(ctx, "Ingest")
	defer span.End()

	format := DetectFormat(text)
	span.SetAttributes(attribute.String("format", format.String()))

	var txs []ledger.Transaction
	var err error
	switch format {
	case FormatSerialized:
		txs, err = ledger.Decode(strings.NewReader(text), s.loc)
	default:
		txs, err = ledger.ParseExport(text, s.loc)
	}
	if err != nil {
		err = fmt.Errorf("parse %s ledger: %w", format, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	records := s.Classify(ctx, txs)
	span.SetAttributes(attribute.Int("records", len(records)))
	return records, nil
}

// Classify attaches a category and subcategory to every transaction, order
// is preserved.
func (s Service) Classify(ctx context.Context, txs []ledger.Transaction) []Record {
	records := make([]Record, len(txs))
	unclassified := map[string]struct{}{}
	for i, t := range txs {
		category, subcategory := s.classifier.Classify(t.Location)
		if category == Other && subcategory == Other {
			unclassified[t.Location] = struct{}{}
		}
		records[i] = Record{
			Transaction: t,
			Category:    category,
			Subcategory: subcategory,
		}
	}
	for location := range unclassified {
		s.tel.ReportDebug(report_unclassified, location)
	}
	s.tel.ReportCount(report_records, int64(len(records)))
	return records
}
