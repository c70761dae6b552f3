package commands

import (
	"encoding/json"
	"os"

	"mealplan-backend/services/ingest"
	"mealplan-backend/services/searchlog"

	"github.com/jedib0t/go-pretty/v6/table"
)

const timeLayout = "01/02/2006 15:04"

func renderRecords(records []ingest.Record) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{
		"Time", "Account", "Location", "Type", "Amount", "Category", "Subcategory",
	})
	for _, r := range records {
		t.AppendRow(table.Row{
			r.Timestamp.Format(timeLayout),
			r.AccountType,
			r.Location,
			r.TransactionType,
			r.Amount.StringFixed(2),
			r.Category,
			r.Subcategory,
		})
	}
	t.AppendFooter(table.Row{"", "", "", "Total", len(records)})
	t.SetStyle(table.StyleRounded)
	t.Render()
}

func renderSearches(entries []searchlog.Entry) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Id", "Time", "Email", "From", "To", "Result", "Transactions"})
	for _, e := range entries {
		result := "ok"
		if !e.Success {
			result = e.Class
		}
		t.AppendRow(table.Row{
			e.ID,
			e.Time.Format(timeLayout),
			e.Email,
			e.From,
			e.To,
			result,
			e.Count,
		})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
}

func printJSON(value any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}
