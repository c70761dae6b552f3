package ledger

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrMalformedTimestamp = errors.New("malformed timestamp")
	ErrMalformedAmount    = errors.New("malformed amount")
	ErrUnknownAccountType = errors.New("unknown account type")
	ErrMalformedRow       = errors.New("malformed row")
)

// ParseError locates a normalization failure within a batch.
type ParseError struct {
	// Row is the zero-based index of the row (or line) in the input.
	Row   int
	Field string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("row %d: %s %q: %s", e.Row, e.Field, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

const timestampLayout = "01/02/2006 15:04"

func atoiRange(s string, lo, hi int) (int, bool) {
	if s == "" {
		return 0, false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < lo || n > hi {
		return 0, false
	}
	return n, true
}

func daysIn(month time.Month, year int) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// ParseTimestamp parses the ledger's "MM/DD/YYYY HH:MM" format into an
// absolute time in loc.
func ParseTimestamp(text string, loc *time.Location) (time.Time, error) {
	parts := strings.Split(strings.TrimSpace(text), " ")
	if len(parts) != 2 {
		return time.Time{}, fmt.Errorf("%w: %q", ErrMalformedTimestamp, text)
	}
	date := strings.Split(parts[0], "/")
	clock := strings.Split(parts[1], ":")
	if len(date) != 3 || len(clock) != 2 {
		return time.Time{}, fmt.Errorf("%w: %q", ErrMalformedTimestamp, text)
	}

	month, ok1 := atoiRange(date[0], 1, 12)
	day, ok2 := atoiRange(date[1], 1, 31)
	year, ok3 := atoiRange(date[2], 1, 9999)
	ok3 = ok3 && len(date[2]) == 4
	hour, ok4 := atoiRange(clock[0], 0, 23)
	minute, ok5 := atoiRange(clock[1], 0, 59)
	if !(ok1 && ok2 && ok3 && ok4 && ok5) {
		return time.Time{}, fmt.Errorf("%w: %q", ErrMalformedTimestamp, text)
	}
	if day > daysIn(time.Month(month), year) {
		return time.Time{}, fmt.Errorf("%w: %q: no such day", ErrMalformedTimestamp, text)
	}

	return time.Date(year, time.Month(month), day, hour, minute, 0, 0, loc), nil
}

var (
	currencySuffix = regexp.MustCompile(`\s*[A-Za-z]{3}$`)
	plainDecimal   = regexp.MustCompile(`^-?(?:\d+(?:\.\d+)?|\.\d+)$`)
)

// ParseAmount parses an amount cell like "12.34 USD" or "(12.34)".
// Parentheses mark a refund and negate the value.
func ParseAmount(text string) (decimal.Decimal, error) {
	s := strings.TrimSpace(text)
	s = currencySuffix.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	} else if strings.ContainsAny(s, "()") {
		return decimal.Decimal{}, fmt.Errorf("%w: %q: unbalanced parentheses", ErrMalformedAmount, text)
	}
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")

	if !plainDecimal.MatchString(s) || (negative && strings.HasPrefix(s, "-")) {
		return decimal.Decimal{}, fmt.Errorf("%w: %q", ErrMalformedAmount, text)
	}
	value, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %q", ErrMalformedAmount, text)
	}
	if negative {
		value = value.Neg()
	}
	return value, nil
}

// ParseAccountType maps the portal's account name to the closed set of
// account types. Anything unrecognized is an error so the caller can decide
// whether to skip or abort.
func ParseAccountType(text string) (AccountType, error) {
	s := strings.TrimSpace(text)
	switch {
	case strings.Contains(s, "Campus Meal Plan"), s == string(CampusMealPlan):
		return CampusMealPlan, nil
	case strings.Contains(s, "LionCash"), strings.Contains(s, "Lion Cash"):
		return LionCash, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAccountType, text)
}

func normalizeAt(index int, row RawRow, loc *time.Location) (Transaction, error) {
	ts, err := ParseTimestamp(row[ColDatetime], loc)
	if err != nil {
		return Transaction{}, &ParseError{Row: index, Field: "timestamp", Value: row[ColDatetime], Err: err}
	}
	account, err := ParseAccountType(row[ColAccount])
	if err != nil {
		return Transaction{}, &ParseError{Row: index, Field: "account_type", Value: row[ColAccount], Err: err}
	}
	amount, err := ParseAmount(row[ColAmount])
	if err != nil {
		return Transaction{}, &ParseError{Row: index, Field: "amount", Value: row[ColAmount], Err: err}
	}

	return Transaction{
		Timestamp:       ts,
		AccountType:     account,
		CardNumber:      strings.TrimSpace(row[ColCardNumber]),
		Location:        strings.TrimSpace(row[ColLocation]),
		TransactionType: strings.TrimSpace(row[ColTransactionType]),
		Amount:          amount,
	}, nil
}

// Normalize converts a single raw row, it is a pure function of its inputs.
func Normalize(row RawRow, loc *time.Location) (Transaction, error) {
	return normalizeAt(0, row, loc)
}

// NormalizeAll converts every row in order. The first failing row aborts the
// whole batch, a partial set of financial records is never returned.
func NormalizeAll(rows []RawRow, loc *time.Location) ([]Transaction, error) {
	out := make([]Transaction, 0, len(rows))
	for i, row := range rows {
		t, err := normalizeAt(i, row, loc)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

var (
	// The grid's pager text, e.g. "12345678910...  Page 3 of 9, items 41 to 60 of 172."
	// The portal sometimes glues it onto the neighbouring rows.
	pageBreak = regexp.MustCompile(`(?m)(?:\d+\.\.\.|(?:^|[^\S\n]+)\d+)?[^\S\n]*(?:Ã‚|Â|\x{00A0})?[^\S\n]*Page \d+ of \d+(?:,[^\S\n]*items \d+ to \d+ of \d+\.?)?`)
	// What can be left of a pager line once the marker is cut out.
	pagerResidue = regexp.MustCompile(`^[\d.\s\x{00A0}Ã‚]*$`)
	footerTexts  = []string{
		"No records to display",
		"Transaction History",
		"Printed on",
	}
)

// IsDataLine reports whether an export line looks like a ledger row rather
// than a header, footer or page-break marker.
func IsDataLine(line string) bool {
	trimmed := strings.TrimSpace(pageBreak.ReplaceAllString(line, ""))
	if trimmed == "" || pagerResidue.MatchString(trimmed) {
		return false
	}
	if trimmed[0] < '0' || trimmed[0] > '9' {
		return false
	}
	for _, footer := range footerTexts {
		if strings.Contains(trimmed, footer) {
			return false
		}
	}
	return true
}

// exportSections splits the export at page-break markers and returns the
// data lines of each page. Pages the portal rendered more than once are
// only returned the first time.
func exportSections(text string) [][]string {
	var sections [][]string
	seen := map[string]bool{}
	for _, section := range pageBreak.Split(text, -1) {
		var lines []string
		for _, line := range strings.Split(section, "\n") {
			line = strings.TrimRight(line, "\r")
			if IsDataLine(line) {
				lines = append(lines, line)
			}
		}
		if len(lines) == 0 {
			continue
		}
		key := strings.Join(lines, "\n")
		if seen[key] {
			continue
		}
		seen[key] = true
		sections = append(sections, lines)
	}
	return sections
}

// ParseExport normalizes raw tab separated ledger export text. Metadata lines
// intermixed with the data are skipped, malformed data lines abort the batch.
// ParseError.Row counts data lines.
func ParseExport(text string, loc *time.Location) ([]Transaction, error) {
	var out []Transaction
	i := 0
	for _, lines := range exportSections(text) {
		for _, line := range lines {
			cells := strings.Split(line, "\t")
			if len(cells) != ColumnCount {
				return nil, &ParseError{
					Row:   i,
					Field: "line",
					Value: line,
					Err:   fmt.Errorf("%w: expected %d cells, got %d", ErrMalformedRow, ColumnCount, len(cells)),
				}
			}
			var row RawRow
			copy(row[:], cells)
			t, err := normalizeAt(i, row, loc)
			if err != nil {
				return nil, err
			}
			out = append(out, t)
			i++
		}
	}
	return out, nil
}
