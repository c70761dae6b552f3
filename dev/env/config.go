package devenv

// PortalAccountConfig is the account used by `ledger-cli scrape --dev`, it
// lives in <dev_state>/portal_account.json5 and is never committed. The
// one-time code is always asked for interactively.
type PortalAccountConfig struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	From     string `json:"from"`
	To       string `json:"to"`
}

const PortalAccountFile = "portal_account.json5"
