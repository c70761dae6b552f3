package eliving

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"mealplan-backend/lib/timezone"
)

// Credentials are only ever typed into the portal, they are redacted
// whenever formatted or logged.
type Credentials struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	OneTimeCode string `json:"one_time_code"`
}

// MaskEmail keeps the first character of the mailbox and the domain.
func MaskEmail(email string) string {
	at := strings.LastIndexByte(email, '@')
	if at <= 0 {
		return "***"
	}
	return email[:1] + "***" + email[at:]
}

func (c Credentials) String() string {
	return fmt.Sprintf("Credentials{Email: %s, Password: [redacted], OneTimeCode: [redacted]}", MaskEmail(c.Email))
}

func (c Credentials) GoString() string {
	return c.String()
}

func (c Credentials) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("email", MaskEmail(c.Email)),
		slog.String("password", "[redacted]"),
		slog.String("one_time_code", "[redacted]"),
	)
}

// Request is a single ledger retrieval, From and To are MM/DD/YYYY dates.
type Request struct {
	Credentials Credentials
	From        string
	To          string
}

func (r Request) String() string {
	return fmt.Sprintf("Request{%s, From: %s, To: %s}", r.Credentials, r.From, r.To)
}

func (r Request) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Any("credentials", r.Credentials),
		slog.String("from", r.From),
		slog.String("to", r.To),
	)
}

// Validate checks that every field is present and that From <= To.
func (r Request) Validate(loc *time.Location) error {
	switch {
	case strings.TrimSpace(r.Credentials.Email) == "":
		return fmt.Errorf("%w: email is required", ErrInvalidRequest)
	case r.Credentials.Password == "":
		return fmt.Errorf("%w: password is required", ErrInvalidRequest)
	case strings.TrimSpace(r.Credentials.OneTimeCode) == "":
		return fmt.Errorf("%w: one-time code is required", ErrInvalidRequest)
	}

	from, err := timezone.ParseDate(r.From, loc)
	if err != nil {
		return fmt.Errorf("%w: from: %w", ErrInvalidRequest, err)
	}
	to, err := timezone.ParseDate(r.To, loc)
	if err != nil {
		return fmt.Errorf("%w: to: %w", ErrInvalidRequest, err)
	}
	if from.After(to) {
		return fmt.Errorf("%w: from %s is after to %s", ErrInvalidRequest, r.From, r.To)
	}
	return nil
}
