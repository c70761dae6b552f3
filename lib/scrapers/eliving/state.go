package eliving

// State is a step of the login flow, a session only ever moves forward
// through them.
type State int

const (
	StateStart State = iota
	StatePortalLoaded
	StateDepositEntryReached
	StateIdentityProviderReached
	// StateAccountChooserResolved is only entered when the identity
	// provider offers an account chooser.
	StateAccountChooserResolved
	StateEmailSubmitted
	StatePasswordSubmitted
	StateMfaMethodSelected
	StateMfaCodeSubmitted
	StateLedgerMenuReached
	StateDateRangeSubmitted
	StateLedgerLoaded
	StateFailed
)

var stateNames = [...]string{
	StateStart:                   "Start",
	StatePortalLoaded:            "PortalLoaded",
	StateDepositEntryReached:     "DepositEntryReached",
	StateIdentityProviderReached: "IdentityProviderReached",
	StateAccountChooserResolved:  "AccountChooserResolved",
	StateEmailSubmitted:          "EmailSubmitted",
	StatePasswordSubmitted:       "PasswordSubmitted",
	StateMfaMethodSelected:       "MfaMethodSelected",
	StateMfaCodeSubmitted:        "MfaCodeSubmitted",
	StateLedgerMenuReached:       "LedgerMenuReached",
	StateDateRangeSubmitted:      "DateRangeSubmitted",
	StateLedgerLoaded:            "LedgerLoaded",
	StateFailed:                  "Failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "Unknown"
	}
	return stateNames[s]
}

// Terminal reports whether no further transition can happen from s.
func (s State) Terminal() bool {
	return s == StateLedgerLoaded || s == StateFailed
}
