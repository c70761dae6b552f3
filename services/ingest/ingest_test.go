package ingest

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"mealplan-backend/lib/ledger"
	"mealplan-backend/lib/telemetry"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	classifier := DefaultClassifier()
	cases := []struct {
		location    string
		category    string
		subcategory string
	}{
		{location: "Findlay Commons", category: "East", subcategory: "Dining Hall"},
		{location: "Warnock Market", category: "North", subcategory: "Convenience"},
		{location: "Redifer Bluespoon", category: "South", subcategory: "Cafe"},
		{location: "Pollock Commons", category: "Pollock", subcategory: "Dining Hall"},
		{location: "HUB-Robeson Starbucks", category: "Central", subcategory: "Coffee"},
		{location: "Waring Commons", category: "West", subcategory: "Dining Hall"},
		{location: "WEPA Printer HUB", category: "Central", subcategory: "Printing"},
		{location: "findlay   MARKET", category: "East", subcategory: "Convenience"},
		// misspelled by the register
		{location: "Finlay Commons", category: "East", subcategory: "Dining Hall"},
		{location: "Redifer Starbuck", category: "South", subcategory: "Coffee"},
		// "hub" is only matched as a word
		{location: "Chubby's Grill", category: Other, subcategory: Other},
		{location: "Vending Machine 12", category: Other, subcategory: Other},
		{location: "", category: Other, subcategory: Other},
	}
	for _, test := range cases {
		category, subcategory := classifier.Classify(test.location)
		require.Equal(t, test.category, category, test.location)
		require.Equal(t, test.subcategory, subcategory, test.location)
	}
}

func TestClassifyWithoutFuzzyMatching(t *testing.T) {
	classifier := NewClassifier(DefaultCategories, DefaultSubcategories, 0)
	category, _ := classifier.Classify("Finlay Commons")
	require.Equal(t, Other, category)
}

func TestClassifierCachesLocations(t *testing.T) {
	classifier := DefaultClassifier()
	for i := 0; i < 3; i++ {
		category, subcategory := classifier.Classify("Finlay Commons")
		require.Equal(t, "East", category)
		require.Equal(t, "Dining Hall", subcategory)
	}
	classifier.Classify("Warnock Market")
	require.Equal(t, 2, classifier.cache.Len())

	// a zero classifier still classifies everything as Other
	category, subcategory := Classifier{}.Classify("Findlay Commons")
	require.Equal(t, Other, category)
	require.Equal(t, Other, subcategory)
}

func TestConfigClassifier(t *testing.T) {
	classifier, err := Config{
		Categories: []Rule{{Keyword: "East Halls", Value: "East"}},
	}.Classifier()
	require.NoError(t, err)

	category, subcategory := classifier.Classify("East Halls Market")
	require.Equal(t, "East", category)
	require.Equal(t, "Convenience", subcategory)

	// configured categories replace the defaults
	category, _ = classifier.Classify("Warnock Market")
	require.Equal(t, Other, category)
}

func TestDetectFormat(t *testing.T) {
	require.Equal(t, FormatSerialized, DetectFormat("\n"+strings.Join(ledger.Header, ",")+"\n"))
	require.Equal(t, FormatExport, DetectFormat("03/14/2024 13:05\tLionCash\t6001\tWarnock Market\tPurchase\t(4.50) USD"))
	require.Equal(t, FormatExport, DetectFormat(""))
}

const export = "Transaction History\n" +
	"03/14/2024 13:05\tLionCash\t60011234\tWarnock Market\tPurchase\t(4.50) USD\n" +
	"\n" +
	"12345678910...  Page 1 of 2, items 1 to 2 of 2.\n" +
	"03/15/2024 08:30\tCampus Meal Plan\t60011234\tHUB-Robeson Starbucks\tPurchase\t(6.25) USD\n"

func TestIngestExport(t *testing.T) {
	rec := &telemetry.Recorder{}
	service := NewService(WithLocation(time.UTC), WithCustomTelemetryAPI(rec))

	records, err := service.Ingest(context.Background(), export)
	require.NoError(t, err)
	require.Len(t, records, 2)

	require.Equal(t, "Warnock Market", records[0].Location)
	require.Equal(t, "North", records[0].Category)
	require.Equal(t, "Convenience", records[0].Subcategory)
	require.True(t, decimal.RequireFromString("-4.50").Equal(records[0].Amount))
	require.Equal(t, time.Date(2024, time.March, 14, 13, 5, 0, 0, time.UTC), records[0].Timestamp)

	require.Equal(t, ledger.CampusMealPlan, records[1].AccountType)
	require.Equal(t, "Central", records[1].Category)
	require.Equal(t, "Coffee", records[1].Subcategory)
}

func TestIngestSerialized(t *testing.T) {
	txs, err := ledger.ParseExport(export, time.UTC)
	require.NoError(t, err)
	text, err := ledger.EncodeString(txs)
	require.NoError(t, err)

	service := NewService(WithLocation(time.UTC), WithCustomTelemetryAPI(&telemetry.Recorder{}))
	records, err := service.Ingest(context.Background(), text)
	require.NoError(t, err)
	require.Len(t, records, len(txs))
	for i, r := range records {
		require.True(t, txs[i].Equal(r.Transaction), "record %d", i)
	}
}

func TestIngestRejectsMalformedText(t *testing.T) {
	service := NewService(WithLocation(time.UTC), WithCustomTelemetryAPI(&telemetry.Recorder{}))

	_, err := service.Ingest(context.Background(), "03/14/2024 13:05\tDining Dollars\t6001\tWarnock Market\tPurchase\t(4.50) USD")
	require.ErrorIs(t, err, ledger.ErrUnknownAccountType)

	_, err = service.Ingest(context.Background(), strings.Join(ledger.Header, ",")+"\nnot,a,valid,row,at,all\n")
	require.Error(t, err)
}

func TestClassifyReportsUnknownLocations(t *testing.T) {
	rec := &telemetry.Recorder{}
	service := NewService(WithCustomTelemetryAPI(rec))

	records := service.Classify(context.Background(), []ledger.Transaction{
		{Location: "Vending Machine 12"},
		{Location: "Vending Machine 12"},
		{Location: "Pollock Commons"},
	})
	require.Len(t, records, 3)
	require.Equal(t, []string{"ingest: " + report_unclassified}, rec.IDs(telemetry.LevelDebug))
	require.True(t, rec.Contains("Vending Machine 12"))
}

func TestRecordJSON(t *testing.T) {
	record := Record{
		Transaction: ledger.Transaction{
			Timestamp:   time.Date(2024, time.March, 14, 13, 5, 0, 0, time.UTC),
			AccountType: ledger.LionCash,
			Location:    "Warnock Market",
			Amount:      decimal.RequireFromString("-4.5"),
		},
		Category:    "North",
		Subcategory: "Convenience",
	}
	data, err := json.Marshal(record)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))
	require.Equal(t, "2024-03-14T13:05:00Z", fields["timestamp"])
	require.Equal(t, "LionCash", fields["account_type"])
	require.Equal(t, "-4.5", fields["amount"])
	require.Equal(t, "North", fields["category"])
}
