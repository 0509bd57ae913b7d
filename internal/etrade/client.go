package etrade

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/dvcrn/etrade-mcp/internal/auth"
	"github.com/dvcrn/etrade-mcp/internal/config"
)

// MaxQuoteSymbols is the provider's per-request symbol limit.
const MaxQuoteSymbols = 25

// Client issues read-only data calls over the profile's authorized session.
// Every call ensures authorization first; renewal failures from the manager
// surface unchanged.
type Client struct {
	manager      *auth.Manager
	baseURL      string
	profileID    string
	profileLabel string
	logger       zerolog.Logger
}

func NewClient(profile config.Profile, manager *auth.Manager, log zerolog.Logger) *Client {
	return &Client{
		manager:      manager,
		baseURL:      profile.Environment.BaseURL(),
		profileID:    profile.ID,
		profileLabel: profile.Label,
		logger:       log.With().Str("profile", profile.ID).Logger(),
	}
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values) (map[string]any, error) {
	if err := c.manager.EnsureAuthorized(); err != nil {
		return nil, err
	}
	httpClient, err := c.manager.SignedClient()
	if err != nil {
		return nil, err
	}

	u := c.baseURL + endpoint
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	c.logger.Debug().Str("url", u).Msg("GET")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("request to %s failed with status %d: %s", endpoint, resp.StatusCode, string(body))
	}

	var data map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode response from %s: %w", endpoint, err)
	}
	return data, nil
}

// GetAccounts lists all active accounts. Closed accounts are filtered out.
func (c *Client) GetAccounts(ctx context.Context) ([]Account, error) {
	c.logger.Info().Msg("Fetching account list")
	data, err := c.get(ctx, "/v1/accounts/list.json", nil)
	if err != nil {
		return nil, err
	}
	accounts := c.parseAccounts(data)
	c.logger.Info().Int("count", len(accounts)).Msg("Found active accounts")
	return accounts, nil
}

func (c *Client) parseAccounts(data map[string]any) []Account {
	raw := objects(child(child(data, "AccountListResponse"), "Accounts")["Account"])

	accounts := make([]Account, 0, len(raw))
	for _, acct := range raw {
		if str(acct, "accountStatus") == "CLOSED" {
			continue
		}
		accounts = append(accounts, Account{
			AccountID:       str(acct, "accountId"),
			AccountIDKey:    str(acct, "accountIdKey"),
			AccountMode:     str(acct, "accountMode"),
			AccountDesc:     str(acct, "accountDesc"),
			AccountName:     str(acct, "accountName"),
			AccountType:     str(acct, "accountType"),
			InstitutionType: str(acct, "institutionType"),
			AccountStatus:   str(acct, "accountStatus"),
			ClosedDate:      intPtr(acct, "closedDate"),
			ProfileID:       c.profileID,
			ProfileLabel:    c.profileLabel,
		})
	}
	return accounts
}

// GetBalance fetches the detailed balance for one account. The balance
// endpoint requires the institution type, which is resolved from the account
// list first.
func (c *Client) GetBalance(ctx context.Context, accountIDKey string) (*Balance, error) {
	c.logger.Info().Str("account", accountIDKey).Msg("Fetching balance")

	accounts, err := c.GetAccounts(ctx)
	if err != nil {
		return nil, err
	}
	var account *Account
	for i := range accounts {
		if accounts[i].AccountIDKey == accountIDKey {
			account = &accounts[i]
			break
		}
	}
	if account == nil {
		return nil, fmt.Errorf("account not found: %s", accountIDKey)
	}

	params := url.Values{}
	params.Set("instType", account.InstitutionType)
	params.Set("realTimeNAV", "true")

	data, err := c.get(ctx, fmt.Sprintf("/v1/accounts/%s/balance.json", accountIDKey), params)
	if err != nil {
		return nil, err
	}
	return c.parseBalance(data), nil
}

func (c *Client) parseBalance(data map[string]any) *Balance {
	balance := child(data, "BalanceResponse")
	computed := child(balance, "Computed")
	realTime := child(computed, "RealTimeValues")

	return &Balance{
		AccountID:          str(balance, "accountId"),
		AccountType:        str(balance, "accountType"),
		AccountDescription: str(balance, "accountDescription"),
		AccountMode:        str(balance, "accountMode"),

		CashBalance:       dec(computed, "cashBalance"),
		CashBuyingPower:   dec(computed, "cashBuyingPower"),
		MarginBuyingPower: dec(computed, "marginBuyingPower"),

		TotalAccountValue: dec(realTime, "totalAccountValue"),
		NetAccountValue:   dec(realTime, "netAccountValue"),

		UnclearedDeposits:              dec(computed, "unclearedDeposits"),
		FundsWithheldFromPurchasePower: dec(computed, "fundsWithheldFromPurchasePower"),
		FundsWithheldFromWithdrawal:    dec(computed, "fundsWithheldFromWithdrawal"),

		ProfileID:    c.profileID,
		ProfileLabel: c.profileLabel,
	}
}

// GetPortfolio fetches all positions for one account with valuations.
func (c *Client) GetPortfolio(ctx context.Context, accountIDKey string) (*Portfolio, error) {
	c.logger.Info().Str("account", accountIDKey).Msg("Fetching portfolio")

	data, err := c.get(ctx, fmt.Sprintf("/v1/accounts/%s/portfolio.json", accountIDKey), nil)
	if err != nil {
		return nil, err
	}
	return c.parsePortfolio(accountIDKey, data), nil
}

func (c *Client) parsePortfolio(accountIDKey string, data map[string]any) *Portfolio {
	accountPortfolios := objects(child(data, "PortfolioResponse")["AccountPortfolio"])

	var positions []Position
	totalMarketValue := decimal.Zero

	for _, acctPortfolio := range accountPortfolios {
		for _, pos := range objects(acctPortfolio["Position"]) {
			quick := child(pos, "Quick")

			position := Position{
				Symbol:            str(pos, "symbolDescription"),
				SymbolDescription: str(pos, "symbolDescription"),
				TypeCode:          str(child(pos, "Product"), "securityType"),
				Quantity:          decOrZero(pos, "quantity"),
				PricePaid:         dec(pos, "pricePaid"),
				TotalCost:         dec(pos, "totalCost"),
				CostPerShare:      dec(pos, "costPerShare"),
				LastTrade:         dec(quick, "lastTrade"),
				MarketValue:       dec(pos, "marketValue"),
				TotalGain:         dec(pos, "totalGain"),
				TotalGainPct:      dec(pos, "totalGainPct"),
				DaysGain:          dec(pos, "daysGain"),
				DaysGainPct:       dec(pos, "daysGainPct"),
				PositionType:      str(pos, "positionType"),
				QuoteDetail:       str(pos, "quoteDetail"),
			}
			positions = append(positions, position)

			if position.MarketValue != nil {
				totalMarketValue = totalMarketValue.Add(*position.MarketValue)
			}
		}
	}

	portfolio := &Portfolio{
		AccountID:    accountIDKey,
		Positions:    positions,
		ProfileID:    c.profileID,
		ProfileLabel: c.profileLabel,
	}
	if totalMarketValue.IsPositive() {
		portfolio.TotalMarketValue = &totalMarketValue
	}
	return portfolio
}

// GetQuotes fetches quotes for up to MaxQuoteSymbols securities.
func (c *Client) GetQuotes(ctx context.Context, symbols []string) ([]Quote, error) {
	if len(symbols) > MaxQuoteSymbols {
		return nil, fmt.Errorf("maximum %d symbols allowed per request", MaxQuoteSymbols)
	}
	if len(symbols) == 0 {
		return []Quote{}, nil
	}

	c.logger.Info().Int("symbols", len(symbols)).Msg("Fetching quotes")

	endpoint := fmt.Sprintf("/v1/market/quote/%s.json", strings.Join(symbols, ","))
	data, err := c.get(ctx, endpoint, nil)
	if err != nil {
		return nil, err
	}
	return parseQuotes(data), nil
}

func parseQuotes(data map[string]any) []Quote {
	raw := objects(child(data, "QuoteResponse")["QuoteData"])

	quotes := make([]Quote, 0, len(raw))
	for _, quoteData := range raw {
		product := child(quoteData, "Product")
		all := child(quoteData, "All")

		quotes = append(quotes, Quote{
			Symbol:       str(product, "symbol"),
			CompanyName:  str(product, "companyName"),
			SecurityType: str(product, "securityType"),

			LastTrade: dec(all, "lastTrade"),
			Bid:       dec(all, "bid"),
			Ask:       dec(all, "ask"),

			Change:    dec(all, "change"),
			ChangePct: dec(all, "changePct"),

			Volume:  intPtr(all, "totalVolume"),
			BidSize: intPtr(all, "bidSize"),
			AskSize: intPtr(all, "askSize"),

			High:   dec(all, "high"),
			Low:    dec(all, "low"),
			Open:   dec(all, "open"),
			Close:  dec(all, "previousClose"),
			High52: dec(all, "high52"),
			Low52:  dec(all, "low52"),

			PERatio:       dec(all, "peRatio"),
			Dividend:      dec(all, "annualDividend"),
			DividendYield: dec(all, "dividendYield"),
			MarketCap:     dec(all, "marketCap"),

			QuoteStatus: str(all, "quoteStatus"),
			Timestamp:   str(all, "dateTime"),
		})
	}
	return quotes
}
