package eliving

// Selectors are the css selectors of every element the session interacts
// with. Any of them can be overridden from configuration when the portal or
// the identity provider changes its markup.
type Selectors struct {
	// portal
	DepositEntry string `json:"deposit_entry"`
	SignIn       string `json:"sign_in"`

	// identity provider
	OtherAccount   string `json:"other_account"`
	EmailInput     string `json:"email_input"`
	EmailError     string `json:"email_error"`
	NextButton     string `json:"next_button"`
	PasswordInput  string `json:"password_input"`
	PasswordError  string `json:"password_error"`
	OtherWay       string `json:"other_way"`
	CodeMethod     string `json:"code_method"`
	CodeInput      string `json:"code_input"`
	CodeSubmit     string `json:"code_submit"`
	CodeError      string `json:"code_error"`
	StaySignedInNo string `json:"stay_signed_in_no"`

	// ledger
	LedgerMenu   string `json:"ledger_menu"`
	FromDate     string `json:"from_date"`
	ToDate       string `json:"to_date"`
	DateSubmit   string `json:"date_submit"`
	Grid         string `json:"grid"`
	Row          string `json:"row"`
	Cell         string `json:"cell"`
	NoRecords    string `json:"no_records"`
	LoadingMask  string `json:"loading_mask"`
	Pager        string `json:"pager"`
	PagerInfo    string `json:"pager_info"`
	PagerLinks   string `json:"pager_links"`
	PagerCurrent string `json:"pager_current"`
}

// DefaultSelectors match the portal's Telerik grid and the Microsoft
// identity provider login flow.
var DefaultSelectors = Selectors{
	DepositEntry: `a[href*="Deposit"]`,
	SignIn:       `#loginButton`,

	OtherAccount:   `#otherTile`,
	EmailInput:     `#i0116`,
	EmailError:     `#usernameError`,
	NextButton:     `#idSIButton9`,
	PasswordInput:  `#i0118`,
	PasswordError:  `#passwordError`,
	OtherWay:       `a#signInAnotherWay`,
	CodeMethod:     `div[data-value="PhoneAppOTP"]`,
	CodeInput:      `#idTxtBx_SAOTCC_OTC`,
	CodeSubmit:     `#idSubmit_SAOTCC_Continue`,
	CodeError:      `#idSpan_SAOTCC_Error_OTC`,
	StaySignedInNo: `#idBtn_Back`,

	LedgerMenu:   `a[href*="TransactionHistory"]`,
	FromDate:     `input[id$="dpFrom_dateInput"]`,
	ToDate:       `input[id$="dpTo_dateInput"]`,
	DateSubmit:   `input[id$="btnSearch"]`,
	Grid:         `.RadGrid`,
	Row:          `.rgMasterTable > tbody > tr.rgRow, .rgMasterTable > tbody > tr.rgAltRow`,
	Cell:         `td`,
	NoRecords:    `.rgMasterTable tr.rgNoRecords`,
	LoadingMask:  `.raDiv`,
	Pager:        `.rgPager`,
	PagerInfo:    `.rgPager .rgInfoPart`,
	PagerLinks:   `.rgNumPart a`,
	PagerCurrent: `.rgCurrentPage`,
}
