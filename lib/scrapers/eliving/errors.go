package eliving

import (
	"context"
	"errors"
	"fmt"

	"mealplan-backend/lib/ledger"
)

var (
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrInvalidOrExpiredCode = errors.New("invalid or expired one-time code")
	ErrTimeout              = errors.New("timeout")
	ErrNavigation           = errors.New("navigation failed")
	ErrPagination           = errors.New("pagination failed")
	ErrInvalidRequest       = errors.New("invalid request")
)

// StepError is a failure of the session while it was in State.
type StepError struct {
	State State
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("eliving: failed in state %s: %v", e.State, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Class tells the caller what the user should do about a failure.
type Class string

const (
	ClassReenterCredentials Class = "reenter_credentials"
	ClassReenterCode        Class = "reenter_code"
	ClassTryAgain           Class = "try_again"
	ClassContactSupport     Class = "contact_support"
	ClassCancelled          Class = "cancelled"
)

// FailureResult is the structured form of a failed scrape handed back to
// clients.
type FailureResult struct {
	Success bool   `json:"success"`
	Reason  string `json:"reason"`
	Class   Class  `json:"class"`
}

type classRule struct {
	target error
	class  Class
}

// checked in order, the first match wins
var classRules = []classRule{
	{target: context.Canceled, class: ClassCancelled},
	{target: ErrInvalidRequest, class: ClassReenterCredentials},
	{target: ErrInvalidCredentials, class: ClassReenterCredentials},
	{target: ErrInvalidOrExpiredCode, class: ClassReenterCode},
	{target: ErrTimeout, class: ClassTryAgain},
	{target: ErrNavigation, class: ClassTryAgain},
	{target: ErrPagination, class: ClassTryAgain},
	{target: context.DeadlineExceeded, class: ClassTryAgain},
	{target: ledger.ErrMalformedRow, class: ClassContactSupport},
	{target: ledger.ErrMalformedTimestamp, class: ClassContactSupport},
	{target: ledger.ErrMalformedAmount, class: ClassContactSupport},
	{target: ledger.ErrUnknownAccountType, class: ClassContactSupport},
}

// Failure turns an error returned by Scrape into a FailureResult. The
// reason names the error kind and, when known, the state it happened in,
// it never contains credentials.
func Failure(err error) FailureResult {
	class := ClassContactSupport
	kind := "unexpected error"
	for _, rule := range classRules {
		if errors.Is(err, rule.target) {
			class = rule.class
			kind = rule.target.Error()
			break
		}
	}

	reason := kind
	var stepErr *StepError
	if errors.As(err, &stepErr) {
		reason = fmt.Sprintf("%s (%s)", kind, stepErr.State)
	}
	return FailureResult{Success: false, Reason: reason, Class: class}
}
