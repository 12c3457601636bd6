package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/joescharf/reviewlens/internal/ledger"
	"github.com/joescharf/reviewlens/internal/models"
	"github.com/joescharf/reviewlens/internal/report"
)

// Server exposes one review ledger as MCP tools. The ledger lives as long as
// the process.
type Server struct {
	ledger        *ledger.Ledger
	version       string
	defaultRating int
}

// NewServer creates the MCP server wrapper around l.
func NewServer(l *ledger.Ledger, version string, defaultRating int) *Server {
	return &Server{
		ledger:        l,
		version:       version,
		defaultRating: models.ClampRating(defaultRating),
	}
}

// MCPServer returns a configured mcp-go server with all tools registered.
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer("reviewlens", s.version, server.WithToolCapabilities(true))

	srv.AddTool(s.addReviewTool())
	srv.AddTool(s.listReviewsTool())
	srv.AddTool(s.summaryTool())
	srv.AddTool(s.exportTool())

	return srv
}

// ServeStdio starts the stdio transport, blocking until ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	srv := s.MCPServer()
	stdioServer := server.NewStdioServer(srv)
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

func jsonResult(v any, what string) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal %s: %v", what, err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// ---------------------------------------------------------------------------
// Tool definitions and handlers
// ---------------------------------------------------------------------------

// review_add
func (s *Server) addReviewTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("review_add",
		mcp.WithDescription("Analyze a customer review and append it to the ledger. Returns the stored review with its positive, negative, problems and solutions lists, plus the extraction status (structured, unparsed or unavailable)."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Review text")),
		mcp.WithNumber("rating", mcp.Description("Star rating 1-5; out-of-range values are clamped")),
	)
	return tool, s.handleAddReview
}

func (s *Server) handleAddReview(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := request.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError("text is required"), nil
	}
	rating := request.GetInt("rating", s.defaultRating)

	sub, err := s.ledger.Add(ctx, text, rating)
	if err != nil {
		if errors.Is(err, ledger.ErrEmptyReview) {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("failed to add review: %v", err)), nil
	}

	out := struct {
		Review models.Review `json:"review"`
		Status string        `json:"status"`
		Total  int           `json:"total"`
	}{sub.Review, string(sub.Status), len(sub.Reviews)}
	return jsonResult(out, "review")
}

// review_list
func (s *Server) listReviewsTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("review_list",
		mcp.WithDescription("List every review in the ledger in insertion order as a JSON array."),
	)
	return tool, s.handleListReviews
}

func (s *Server) handleListReviews(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	reviews, err := s.ledger.All(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list reviews: %v", err)), nil
	}
	return jsonResult(reviews, "reviews")
}

// review_summary
func (s *Server) summaryTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("review_summary",
		mcp.WithDescription("Summarize the ledger: review count, average rating, insight counts per category and the positive/negative share of mentions."),
	)
	return tool, s.handleSummary
}

func (s *Server) handleSummary(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sum, err := s.ledger.Summary(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to summarize: %v", err)), nil
	}
	pos, neg := sum.Shares()
	out := struct {
		report.Summary
		PositiveShare float64 `json:"positive_share"`
		NegativeShare float64 `json:"negative_share"`
	}{sum, pos, neg}
	return jsonResult(out, "summary")
}

// review_export
func (s *Server) exportTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("review_export",
		mcp.WithDescription("Export the ledger as CSV (default), JSON or a Markdown table."),
		mcp.WithString("format",
			mcp.Description("Output format"),
			mcp.Enum(report.FormatCSV, report.FormatJSON, report.FormatMarkdown),
		),
	)
	return tool, s.handleExport
}

func (s *Server) handleExport(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	format := request.GetString("format", report.FormatCSV)

	reviews, err := s.ledger.All(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list reviews: %v", err)), nil
	}

	var buf bytes.Buffer
	if err := report.Write(&buf, format, reviews); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(buf.String()), nil
}
