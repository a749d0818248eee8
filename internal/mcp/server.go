package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/Jasminestrone/MiataMaestro/internal/maestro"
	"github.com/Jasminestrone/MiataMaestro/pkg/models"
)

// DefaultSession is used when a tool call names no session.
const DefaultSession = "default"

// Config holds MCP server configuration.
type Config struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
}

// Server exposes the session service as MCP tools.
type Server struct {
	mcpServer *server.MCPServer
	service   *maestro.Service
}

// NewServer creates a new MCP server with the listing tools.
func NewServer(config Config, service *maestro.Service) (*Server, error) {
	if service == nil {
		return nil, fmt.Errorf("service is required")
	}

	mcpServer := server.NewMCPServer(
		config.Name,
		config.Version,
		server.WithToolCapabilities(true),
	)

	s := &Server{
		mcpServer: mcpServer,
		service:   service,
	}

	sessionArg := mcp.WithString("session",
		mcp.Description("Session id grouping listings and progress (default: \"default\")"),
	)

	scrapeTool := mcp.NewTool("scrape_listings",
		mcp.WithDescription("Search Marketplace for Mazda Miatas, extract and filter listings, and store them in the session (replacing previous results)."),
		sessionArg,
		mcp.WithNumber("year_min", mcp.Description("Minimum model year (0 = no bound)")),
		mcp.WithNumber("year_max", mcp.Description("Maximum model year (0 = no bound)")),
		mcp.WithNumber("max_mileage", mcp.Description("Maximum mileage (0 = no bound)")),
		mcp.WithNumber("max_price", mcp.Description("Maximum price in dollars (0 = no bound)")),
		mcp.WithNumber("limit", mcp.Description("Maximum listings to visit (0 = all found)")),
		mcp.WithString("zip", mcp.Description("Zip code of the search area")),
		mcp.WithNumber("radius", mcp.Description("Search radius in miles")),
		mcp.WithBoolean("debug", mcp.Description("Only process the first 3 listings")),
	)
	mcpServer.AddTool(scrapeTool, s.scrapeHandler)

	moreTool := mcp.NewTool("scrape_more",
		mcp.WithDescription("Repeat the session's last search for 10 more listings and merge them. Returns only listings that were not already stored."),
		sessionArg,
	)
	mcpServer.AddTool(moreTool, s.scrapeMoreHandler)

	listTool := mcp.NewTool("list_listings",
		mcp.WithDescription("List the listings stored in a session"),
		sessionArg,
	)
	mcpServer.AddTool(listTool, s.listHandler)

	evalTool := mcp.NewTool("evaluate_listing",
		mcp.WithDescription("Ask the LLM for pros, concerns, a fair price and a lowball offer for one listing"),
		sessionArg,
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Listing ID to evaluate"),
		),
	)
	mcpServer.AddTool(evalTool, s.evaluateHandler)

	analyzeTool := mcp.NewTool("analyze_all",
		mcp.WithDescription("Evaluate every listing in the session"),
		sessionArg,
	)
	mcpServer.AddTool(analyzeTool, s.analyzeAllHandler)

	messageTool := mcp.NewTool("lowball_message",
		mcp.WithDescription("Draft a casual lowball message to the seller of a listing"),
		sessionArg,
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Listing ID"),
		),
	)
	mcpServer.AddTool(messageTool, s.lowballMessageHandler)

	return s, nil
}

func session(req mcp.CallToolRequest) string {
	if s := req.GetString("session", ""); s != "" {
		return s
	}
	return DefaultSession
}

func searchParams(req mcp.CallToolRequest) models.SearchParams {
	return models.SearchParams{
		Zip:        req.GetString("zip", ""),
		Radius:     req.GetInt("radius", 0),
		YearMin:    req.GetInt("year_min", 0),
		YearMax:    req.GetInt("year_max", 0),
		MaxMileage: req.GetInt("max_mileage", 0),
		MaxPrice:   req.GetInt("max_price", 0),
		Limit:      req.GetInt("limit", 0),
		Debug:      req.GetBool("debug", false),
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	result, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(result)), nil
}

// scrapeHandler handles the scrape_listings tool call.
func (s *Server) scrapeHandler(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := searchParams(req)
	if err := params.Validate(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	res, err := s.service.Scrape(ctx, session(req), params)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("scrape failed: %v", err)), nil
	}
	return jsonResult(res)
}

// scrapeMoreHandler handles the scrape_more tool call.
func (s *Server) scrapeMoreHandler(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := s.service.ScrapeMore(ctx, session(req))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("scrape more failed: %v", err)), nil
	}
	return jsonResult(res)
}

// listHandler handles the list_listings tool call.
func (s *Server) listHandler(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	listings := s.service.Listings(session(req))
	if listings == nil {
		listings = []models.Listing{}
	}
	return jsonResult(listings)
}

// evaluateHandler handles the evaluate_listing tool call.
func (s *Server) evaluateHandler(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("id parameter is required"), nil
	}

	eval, err := s.service.Evaluate(ctx, session(req), id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("evaluation failed: %v", err)), nil
	}
	return jsonResult(eval)
}

// analyzeAllHandler handles the analyze_all tool call.
func (s *Server) analyzeAllHandler(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	analysis, err := s.service.AnalyzeAll(ctx, session(req))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("analyze all failed: %v", err)), nil
	}
	return jsonResult(analysis)
}

// lowballMessageHandler handles the lowball_message tool call.
func (s *Server) lowballMessageHandler(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("id parameter is required"), nil
	}

	msg, err := s.service.LowballMessage(ctx, session(req), id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("lowball message failed: %v", err)), nil
	}
	return mcp.NewToolResultText(msg), nil
}

// ServeStdio starts the MCP server using stdio transport.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}
