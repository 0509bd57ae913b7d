// Package etrade is the read-only E*TRADE data client: accounts, balances,
// portfolio holdings and market quotes, shaped into stable response types.
package etrade

import "github.com/shopspring/decimal"

// Account is one brokerage or bank account without balance detail.
type Account struct {
	AccountID       string `json:"account_id"`
	AccountIDKey    string `json:"account_id_key"`
	AccountMode     string `json:"account_mode"`
	AccountDesc     string `json:"account_desc"`
	AccountName     string `json:"account_name,omitempty"`
	AccountType     string `json:"account_type"`
	InstitutionType string `json:"institution_type"`
	AccountStatus   string `json:"account_status"`
	ClosedDate      *int64 `json:"closed_date,omitempty"`
	ProfileID       string `json:"profile_id"`
	ProfileLabel    string `json:"profile_label,omitempty"`
}

// Balance is the detailed balance picture for one account. Monetary amounts
// are USD with decimal precision; nil means the provider omitted the field.
type Balance struct {
	AccountID          string `json:"account_id"`
	AccountType        string `json:"account_type"`
	AccountDescription string `json:"account_description,omitempty"`
	AccountMode        string `json:"account_mode,omitempty"`

	CashBalance       *decimal.Decimal `json:"cash_balance,omitempty"`
	CashBuyingPower   *decimal.Decimal `json:"cash_buying_power,omitempty"`
	MarginBuyingPower *decimal.Decimal `json:"margin_buying_power,omitempty"`

	TotalAccountValue *decimal.Decimal `json:"total_account_value,omitempty"`
	NetAccountValue   *decimal.Decimal `json:"net_account_value,omitempty"`

	UnclearedDeposits              *decimal.Decimal `json:"uncleared_deposits,omitempty"`
	FundsWithheldFromPurchasePower *decimal.Decimal `json:"funds_withheld_from_purchase_power,omitempty"`
	FundsWithheldFromWithdrawal    *decimal.Decimal `json:"funds_withheld_from_withdrawal,omitempty"`

	ProfileID    string `json:"profile_id"`
	ProfileLabel string `json:"profile_label,omitempty"`
}

// Position is a single holding with current valuation.
type Position struct {
	Symbol            string          `json:"symbol"`
	SymbolDescription string          `json:"symbol_description"`
	TypeCode          string          `json:"type_code"`
	Quantity          decimal.Decimal `json:"quantity"`

	PricePaid    *decimal.Decimal `json:"price_paid,omitempty"`
	TotalCost    *decimal.Decimal `json:"total_cost,omitempty"`
	CostPerShare *decimal.Decimal `json:"cost_per_share,omitempty"`

	LastTrade   *decimal.Decimal `json:"last_trade,omitempty"`
	MarketValue *decimal.Decimal `json:"market_value,omitempty"`

	TotalGain    *decimal.Decimal `json:"total_gain,omitempty"`
	TotalGainPct *decimal.Decimal `json:"total_gain_pct,omitempty"`
	DaysGain     *decimal.Decimal `json:"days_gain,omitempty"`
	DaysGainPct  *decimal.Decimal `json:"days_gain_pct,omitempty"`

	PositionType string `json:"position_type,omitempty"`
	QuoteDetail  string `json:"quote_detail,omitempty"`
}

// Portfolio holds all positions in one account.
type Portfolio struct {
	AccountID        string           `json:"account_id"`
	Positions        []Position       `json:"positions"`
	TotalMarketValue *decimal.Decimal `json:"total_market_value,omitempty"`
	ProfileID        string           `json:"profile_id"`
	ProfileLabel     string           `json:"profile_label,omitempty"`
}

// Quote is a real-time or delayed quote for one security.
type Quote struct {
	Symbol       string `json:"symbol"`
	CompanyName  string `json:"company_name,omitempty"`
	SecurityType string `json:"security_type,omitempty"`

	LastTrade *decimal.Decimal `json:"last_trade,omitempty"`
	Bid       *decimal.Decimal `json:"bid,omitempty"`
	Ask       *decimal.Decimal `json:"ask,omitempty"`

	Change    *decimal.Decimal `json:"change,omitempty"`
	ChangePct *decimal.Decimal `json:"change_pct,omitempty"`

	Volume  *int64 `json:"volume,omitempty"`
	BidSize *int64 `json:"bid_size,omitempty"`
	AskSize *int64 `json:"ask_size,omitempty"`

	High   *decimal.Decimal `json:"high,omitempty"`
	Low    *decimal.Decimal `json:"low,omitempty"`
	Open   *decimal.Decimal `json:"open,omitempty"`
	Close  *decimal.Decimal `json:"close,omitempty"`
	High52 *decimal.Decimal `json:"high_52,omitempty"`
	Low52  *decimal.Decimal `json:"low_52,omitempty"`

	PERatio       *decimal.Decimal `json:"pe_ratio,omitempty"`
	Dividend      *decimal.Decimal `json:"dividend,omitempty"`
	DividendYield *decimal.Decimal `json:"dividend_yield,omitempty"`
	MarketCap     *decimal.Decimal `json:"market_cap,omitempty"`

	QuoteStatus string `json:"quote_status,omitempty"`
	Timestamp   string `json:"timestamp,omitempty"`
}

// AccountsResponse wraps the account list for the tool surface.
type AccountsResponse struct {
	Accounts []Account `json:"accounts"`
}

// QuotesResponse wraps quotes for the tool surface.
type QuotesResponse struct {
	Quotes []Quote `json:"quotes"`
}
