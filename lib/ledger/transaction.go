package ledger

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type AccountType string

const (
	LionCash       AccountType = "LionCash"
	CampusMealPlan AccountType = "CampusMealPlan"
)

// column positions of a scraped ledger row
const (
	ColDatetime = iota
	ColAccount
	ColCardNumber
	ColLocation
	ColTransactionType
	ColAmount

	ColumnCount
)

// RawRow is a single scraped ledger entry before typing, cells are in
// presentation order.
type RawRow [ColumnCount]string

// Transaction is the normalized form of a ledger row. Category and
// subcategory are deliberately absent, they are assigned downstream.
type Transaction struct {
	Timestamp       time.Time   `json:"timestamp"`
	AccountType     AccountType `json:"account_type"`
	CardNumber      string      `json:"card_number"`
	Location        string      `json:"location"`
	TransactionType string      `json:"transaction_type"`
	// negative amounts are refunds/credits
	Amount decimal.Decimal `json:"amount"`
}

func (t Transaction) String() string {
	return fmt.Sprintf(
		"%s %s %s %s",
		t.Timestamp.Format(timestampLayout),
		t.AccountType,
		t.Location,
		t.Amount.StringFixed(2),
	)
}

// Equal reports whether two transactions hold the same values, amounts are
// compared numerically.
func (t Transaction) Equal(o Transaction) bool {
	return t.Timestamp.Equal(o.Timestamp) &&
		t.AccountType == o.AccountType &&
		t.CardNumber == o.CardNumber &&
		t.Location == o.Location &&
		t.TransactionType == o.TransactionType &&
		t.Amount.Equal(o.Amount)
}
