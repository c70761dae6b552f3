package ledger

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

// Header is the first record of every serialized ledger.
var Header = []string{
	"timestamp",
	"account_type",
	"card_number",
	"location",
	"transaction_type",
	"amount",
}

// Encode writes transactions as comma delimited text with a header line.
func Encode(w io.Writer, txs []Transaction) error {
	out := csv.NewWriter(w)
	err := out.Write(Header)
	if err != nil {
		return err
	}
	for _, t := range txs {
		err = out.Write([]string{
			t.Timestamp.Format(time.RFC3339),
			string(t.AccountType),
			t.CardNumber,
			t.Location,
			t.TransactionType,
			t.Amount.String(),
		})
		if err != nil {
			return err
		}
	}
	out.Flush()
	return out.Error()
}

// EncodeString is Encode into a string.
func EncodeString(txs []Transaction) (string, error) {
	var buff strings.Builder
	err := Encode(&buff, txs)
	if err != nil {
		return "", err
	}
	return buff.String(), nil
}

// Decode parses text produced by Encode, timestamps are converted into loc.
func Decode(r io.Reader, loc *time.Location) ([]Transaction, error) {
	in := csv.NewReader(r)
	in.FieldsPerRecord = len(Header)

	header, err := in.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: missing header", ErrMalformedRow)
	}
	if err != nil {
		return nil, err
	}
	for i, name := range Header {
		if header[i] != name {
			return nil, fmt.Errorf("%w: unexpected header column %q", ErrMalformedRow, header[i])
		}
	}

	var out []Transaction
	for row := 0; ; row++ {
		record, err := in.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &ParseError{Row: row, Field: "record", Err: fmt.Errorf("%w: %w", ErrMalformedRow, err)}
		}

		ts, err := time.Parse(time.RFC3339, record[0])
		if err != nil {
			return nil, &ParseError{Row: row, Field: "timestamp", Value: record[0], Err: ErrMalformedTimestamp}
		}
		account, err := ParseAccountType(record[1])
		if err != nil {
			return nil, &ParseError{Row: row, Field: "account_type", Value: record[1], Err: err}
		}
		amount, err := ParseAmount(record[5])
		if err != nil {
			return nil, &ParseError{Row: row, Field: "amount", Value: record[5], Err: err}
		}

		out = append(out, Transaction{
			Timestamp:       ts.In(loc),
			AccountType:     account,
			CardNumber:      record[2],
			Location:        record[3],
			TransactionType: record[4],
			Amount:          amount,
		})
	}
	return out, nil
}
