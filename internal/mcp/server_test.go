package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/reviewlens/internal/insights"
	"github.com/joescharf/reviewlens/internal/ledger"
	"github.com/joescharf/reviewlens/internal/models"
	"github.com/joescharf/reviewlens/internal/store"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

type fakeExtractor struct {
	result insights.Result
	calls  int
}

func (f *fakeExtractor) Extract(_ context.Context, _ string) insights.Result {
	f.calls++
	return f.result
}

func newTestServer(t *testing.T, result insights.Result) (*Server, *fakeExtractor) {
	t.Helper()
	ex := &fakeExtractor{result: result}
	l := ledger.New(store.NewMemoryStore(), ex, ledger.Options{
		Now: func() time.Time { return time.Date(2026, time.October, 18, 0, 0, 0, 0, time.UTC) },
	})
	t.Cleanup(func() { l.Close() })

	srv := NewServer(l, "test", 3)
	require.NotNil(t, srv)
	return srv, ex
}

func structuredResult() insights.Result {
	return insights.Result{
		Insights: models.Insights{
			Positive:  []string{"friendly staff"},
			Negative:  []string{"long wait"},
			Problems:  []string{"understaffed"},
			Solutions: []string{"hire more staff"},
		},
		Status: insights.StatusStructured,
	}
}

// callToolReq builds a CallToolRequest with the given tool name and arguments.
func callToolReq(name string, args map[string]any) mcpgo.CallToolRequest {
	return mcpgo.CallToolRequest{
		Params: mcpgo.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

// resultText extracts the concatenated text from a CallToolResult.
func resultText(t *testing.T, result *mcpgo.CallToolResult) string {
	t.Helper()
	var b strings.Builder
	for _, c := range result.Content {
		tc, ok := c.(mcpgo.TextContent)
		if ok {
			b.WriteString(tc.Text)
		}
	}
	return b.String()
}

// resultJSON parses the text result as JSON into the provided target.
func resultJSON(t *testing.T, result *mcpgo.CallToolResult, target any) {
	t.Helper()
	text := resultText(t, result)
	err := json.Unmarshal([]byte(text), target)
	require.NoError(t, err, "failed to parse result JSON: %s", text)
}

func addReview(t *testing.T, srv *Server, args map[string]any) *mcpgo.CallToolResult {
	t.Helper()
	result, err := srv.handleAddReview(context.Background(), callToolReq("review_add", args))
	require.NoError(t, err)
	require.NotNil(t, result)
	return result
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestNewServer(t *testing.T) {
	srv, _ := newTestServer(t, structuredResult())
	require.NotNil(t, srv.MCPServer(), "MCPServer() should return non-nil")
}

func TestHandleAddReview(t *testing.T) {
	srv, ex := newTestServer(t, structuredResult())

	result := addReview(t, srv, map[string]any{"text": "Friendly staff, long wait", "rating": float64(2)})
	assert.False(t, result.IsError)

	var out struct {
		Review models.Review `json:"review"`
		Status string        `json:"status"`
		Total  int           `json:"total"`
	}
	resultJSON(t, result, &out)
	assert.Equal(t, "R00001", out.Review.ID)
	assert.Equal(t, 2, out.Review.Rating)
	assert.Equal(t, "2026-10-18", out.Review.Date)
	assert.Equal(t, []string{"friendly staff"}, out.Review.Insights.Positive)
	assert.Equal(t, "structured", out.Status)
	assert.Equal(t, 1, out.Total)
	assert.Equal(t, 1, ex.calls)
}

func TestHandleAddReview_DefaultRating(t *testing.T) {
	srv, _ := newTestServer(t, structuredResult())

	result := addReview(t, srv, map[string]any{"text": "ok"})
	require.False(t, result.IsError)
	assert.Contains(t, resultText(t, result), `"rating":3`)
}

func TestHandleAddReview_MissingText(t *testing.T) {
	srv, ex := newTestServer(t, structuredResult())

	result := addReview(t, srv, nil)
	assert.True(t, result.IsError, "should error when text argument is missing")

	result = addReview(t, srv, map[string]any{"text": "   "})
	assert.True(t, result.IsError, "should error on blank text")
	assert.Zero(t, ex.calls)
}

func TestHandleAddReview_Degraded(t *testing.T) {
	srv, _ := newTestServer(t, insights.Result{
		Insights: models.Insights{
			Positive:  []string{},
			Negative:  []string{},
			Problems:  []string{},
			Solutions: []string{insights.NoResponsePlaceholder},
		},
		Status: insights.StatusUnavailable,
	})

	result := addReview(t, srv, map[string]any{"text": "great"})
	assert.False(t, result.IsError, "extraction failures still record the review")
	assert.Contains(t, resultText(t, result), `"status":"unavailable"`)
}

func TestHandleListReviews(t *testing.T) {
	srv, _ := newTestServer(t, structuredResult())
	ctx := context.Background()

	result, err := srv.handleListReviews(ctx, callToolReq("review_list", nil))
	require.NoError(t, err)
	assert.Equal(t, "[]", resultText(t, result))

	addReview(t, srv, map[string]any{"text": "one"})
	addReview(t, srv, map[string]any{"text": "two"})

	result, err = srv.handleListReviews(ctx, callToolReq("review_list", nil))
	require.NoError(t, err)
	var reviews []models.Review
	resultJSON(t, result, &reviews)
	require.Len(t, reviews, 2)
	assert.Equal(t, "R00001", reviews[0].ID)
	assert.Equal(t, "R00002", reviews[1].ID)
}

func TestHandleSummary(t *testing.T) {
	srv, _ := newTestServer(t, structuredResult())
	addReview(t, srv, map[string]any{"text": "one", "rating": float64(5)})
	addReview(t, srv, map[string]any{"text": "two", "rating": float64(1)})

	result, err := srv.handleSummary(context.Background(), callToolReq("review_summary", nil))
	require.NoError(t, err)
	assert.False(t, result.IsError)

	var out map[string]any
	resultJSON(t, result, &out)
	assert.Equal(t, float64(2), out["reviews"])
	assert.Equal(t, float64(2), out["positive"])
	assert.Equal(t, float64(2), out["negative"])
	assert.Equal(t, float64(3), out["average_rating"])
	assert.Equal(t, float64(50), out["positive_share"])
}

func TestHandleExport(t *testing.T) {
	srv, _ := newTestServer(t, structuredResult())
	addReview(t, srv, map[string]any{"text": "Friendly staff"})
	ctx := context.Background()

	result, err := srv.handleExport(ctx, callToolReq("review_export", nil))
	require.NoError(t, err)
	text := resultText(t, result)
	assert.True(t, strings.HasPrefix(text, "review_id,date,rating,original_text,positive,negative,problems,solutions\n"))
	assert.Contains(t, text, "R00001")

	result, err = srv.handleExport(ctx, callToolReq("review_export", map[string]any{"format": "json"}))
	require.NoError(t, err)
	var reviews []models.Review
	resultJSON(t, result, &reviews)
	assert.Len(t, reviews, 1)

	result, err = srv.handleExport(ctx, callToolReq("review_export", map[string]any{"format": "xml"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}
