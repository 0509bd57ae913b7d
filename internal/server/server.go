// Package server exposes the E*TRADE data client as MCP tools over stdio.
package server

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/dvcrn/etrade-mcp/internal/etrade"
	"github.com/dvcrn/etrade-mcp/internal/registry"
)

const serverInstructions = `Provides access to E*TRADE brokerage and bank accounts, including account
information, balances, portfolio holdings, and market quotes.

This server is designed for personal finance management and investment
tracking, not for active trading. It provides read-only access to help users
understand their investment performance and asset allocation.

Key capabilities:
- List all E*TRADE accounts
- Get detailed balance information for accounts
- View portfolio holdings with current valuations
- Get real-time or delayed quotes for securities

The server works with both E*TRADE sandbox (for testing) and production
environments, configured per profile.`

// Server wraps the profile registry and exposes it through the MCP protocol.
type Server struct {
	registry  *registry.Registry
	logger    zerolog.Logger
	mcpServer *server.MCPServer
}

func New(reg *registry.Registry, logger zerolog.Logger) *Server {
	mcpServer := server.NewMCPServer(
		"etrade",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithInstructions(serverInstructions),
	)

	s := &Server{
		registry:  reg,
		logger:    logger,
		mcpServer: mcpServer,
	}
	s.registerTools()
	return s
}

// Start serves MCP over stdio and blocks until the client disconnects.
func (s *Server) Start() error {
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) registerTools() {
	listAccountsTool := mcp.NewTool("list_accounts",
		mcp.WithDescription("List all active E*TRADE accounts (brokerage and bank) for a profile. Closed accounts are excluded. Use the account_id_key field from the result when calling other tools."),
		mcp.WithString("profile",
			mcp.Description("Profile identifier (default: \"0\")"),
		),
	)
	s.mcpServer.AddTool(listAccountsTool, s.handleListAccounts)

	balanceTool := mcp.NewTool("get_account_balance",
		mcp.WithDescription("Get detailed balance information for an account: cash balances, buying power, total account value, margin information, pending deposits and holds."),
		mcp.WithString("account_id_key",
			mcp.Required(),
			mcp.Description("Account identifier key from list_accounts (the account_id_key field)"),
		),
		mcp.WithString("profile",
			mcp.Description("Profile identifier (default: \"0\")"),
		),
	)
	s.mcpServer.AddTool(balanceTool, s.handleGetBalance)

	portfolioTool := mcp.NewTool("get_account_portfolio",
		mcp.WithDescription("Get portfolio holdings for an account: all positions with quantity, cost basis, current market value and gains/losses."),
		mcp.WithString("account_id_key",
			mcp.Required(),
			mcp.Description("Account identifier key from list_accounts (the account_id_key field)"),
		),
		mcp.WithString("profile",
			mcp.Description("Profile identifier (default: \"0\")"),
		),
	)
	s.mcpServer.AddTool(portfolioTool, s.handleGetPortfolio)

	quotesTool := mcp.NewTool("get_quotes",
		mcp.WithDescription("Get real-time or delayed quotes for one or more securities: pricing, changes, volume, daily and 52-week ranges, and fundamentals. Maximum 25 symbols per request."),
		mcp.WithArray("symbols",
			mcp.Required(),
			mcp.Description("Ticker symbols to quote, e.g. [\"AAPL\", \"SPY\"]"),
			mcp.Items(map[string]any{"type": "string"}),
		),
		mcp.WithString("profile",
			mcp.Description("Profile identifier (default: \"0\")"),
		),
	)
	s.mcpServer.AddTool(quotesTool, s.handleGetQuotes)
}

func (s *Server) entry(request mcp.CallToolRequest) (*registry.Entry, error) {
	return s.registry.Get(request.GetString("profile", "0"))
}

func (s *Server) handleListAccounts(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entry, err := s.entry(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	accounts, err := entry.Client.GetAccounts(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list accounts: %v", err)), nil
	}
	return jsonResult(etrade.AccountsResponse{Accounts: accounts})
}

func (s *Server) handleGetBalance(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	accountIDKey, err := request.RequireString("account_id_key")
	if err != nil {
		return mcp.NewToolResultError("account_id_key argument is required"), nil
	}
	entry, err := s.entry(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	balance, err := entry.Client.GetBalance(ctx, accountIDKey)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get balance: %v", err)), nil
	}
	return jsonResult(balance)
}

func (s *Server) handleGetPortfolio(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	accountIDKey, err := request.RequireString("account_id_key")
	if err != nil {
		return mcp.NewToolResultError("account_id_key argument is required"), nil
	}
	entry, err := s.entry(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	portfolio, err := entry.Client.GetPortfolio(ctx, accountIDKey)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get portfolio: %v", err)), nil
	}
	return jsonResult(portfolio)
}

func (s *Server) handleGetQuotes(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	symbolsRaw, ok := request.GetArguments()["symbols"].([]any)
	if !ok {
		return mcp.NewToolResultError("symbols argument must be an array of strings"), nil
	}
	symbols := make([]string, 0, len(symbolsRaw))
	for _, v := range symbolsRaw {
		sym, ok := v.(string)
		if !ok {
			return mcp.NewToolResultError("symbols argument must be an array of strings"), nil
		}
		symbols = append(symbols, sym)
	}
	if len(symbols) > etrade.MaxQuoteSymbols {
		return mcp.NewToolResultError(fmt.Sprintf("Maximum %d symbols allowed per request", etrade.MaxQuoteSymbols)), nil
	}

	entry, err := s.entry(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	quotes, err := entry.Client.GetQuotes(ctx, symbols)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get quotes: %v", err)), nil
	}
	return jsonResult(etrade.QuotesResponse{Quotes: quotes})
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to format result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(b)), nil
}
