// Package insights turns free-text reviews into structured insight records
// by asking a text-generation service for a fixed JSON shape.
package insights

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joescharf/reviewlens/internal/llm"
	"github.com/joescharf/reviewlens/internal/metrics"
	"github.com/joescharf/reviewlens/internal/models"
)

// NoResponsePlaceholder fills the solutions list when the service produced no text at all.
const NoResponsePlaceholder = "no response from insight service"

// DefaultTimeout bounds a single service call when no timeout is configured.
const DefaultTimeout = 60 * time.Second

// Status tells a caller how an Insights record was obtained.
type Status string

const (
	// StatusStructured means the service answer contained a parseable JSON object.
	StatusStructured Status = "structured"
	// StatusUnparsed means the service answered but nothing could be parsed;
	// the raw answer is kept in Solutions.
	StatusUnparsed Status = "unparsed"
	// StatusUnavailable means no answer was obtained (transport error, timeout,
	// empty answer or no client configured).
	StatusUnavailable Status = "unavailable"
)

// Result is the outcome of one extraction. Insights is always well formed.
type Result struct {
	Insights models.Insights `json:"insights"`
	Status   Status          `json:"status"`
	Raw      string          `json:"raw,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// Degraded reports whether the record is a fallback rather than a parsed answer.
func (r Result) Degraded() bool { return r.Status != StatusStructured }

// Extractor calls the insight service once per review.
type Extractor struct {
	client  llm.Client
	timeout time.Duration
	logger  *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithTimeout bounds each service call. Zero or negative keeps the default.
func WithTimeout(d time.Duration) Option {
	return func(e *Extractor) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithLogger sets the logger used for degraded outcomes.
func WithLogger(l *slog.Logger) Option {
	return func(e *Extractor) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewExtractor creates an Extractor. The client may be nil, in which case
// every extraction reports StatusUnavailable.
func NewExtractor(client llm.Client, opts ...Option) *Extractor {
	e := &Extractor{
		client:  client,
		timeout: DefaultTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// BuildPrompt embeds the review text in the fixed extraction instructions.
func BuildPrompt(reviewText string) string {
	var sb strings.Builder
	sb.WriteString("Extract insights from this customer review.\n\n")
	sb.WriteString("Review: \"")
	sb.WriteString(reviewText)
	sb.WriteString("\"\n\n")
	sb.WriteString(`Return ONLY JSON (no explanation, no markdown) with exactly the keys "positive", "negative", "problems" and "solutions", each a list of short strings. Example:

{
  "positive": ["good service"],
  "negative": ["slow delivery"],
  "problems": ["checkout error"],
  "solutions": ["improve checkout process"]
}
`)
	return sb.String()
}

// Extract asks the service for insights about reviewText. It never fails:
// errors are folded into Result.Status and the fallback record.
func (e *Extractor) Extract(ctx context.Context, reviewText string) Result {
	provider := "none"
	if e.client != nil {
		provider = e.client.Provider()
	}
	start := time.Now()

	res := e.extract(ctx, reviewText)

	metrics.ExtractionDurationSeconds.WithLabelValues(provider).Observe(time.Since(start).Seconds())
	metrics.ExtractionsTotal.WithLabelValues(provider, string(res.Status)).Inc()
	if res.Degraded() {
		e.logger.Warn("insight extraction degraded",
			"provider", provider, "status", res.Status, "error", res.Error)
	} else {
		e.logger.Debug("insight extraction succeeded", "provider", provider)
	}
	return res
}

func (e *Extractor) extract(ctx context.Context, reviewText string) Result {
	if e.client == nil {
		return unavailable(errors.New("no insight service configured"))
	}

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	text, err := e.client.Generate(callCtx, BuildPrompt(reviewText))
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("timed out after %s: %w", e.timeout, err)
		}
		return unavailable(err)
	}
	return ParseResponse(text)
}

func unavailable(err error) Result {
	return Result{
		Insights: fallback(NoResponsePlaceholder),
		Status:   StatusUnavailable,
		Error:    err.Error(),
	}
}

// ParseResponse converts a raw service answer into a Result. The answer is
// trimmed, the span from the first '{' to the last '}' is parsed as a JSON
// object, and on any failure the whole trimmed answer is kept in Solutions.
func ParseResponse(raw string) Result {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return unavailable(llm.ErrNoText)
	}

	span, ok := locateObject(trimmed)
	if !ok {
		return Result{
			Insights: fallback(trimmed),
			Status:   StatusUnparsed,
			Raw:      trimmed,
			Error:    "no JSON object in response",
		}
	}

	ins, err := decodeInsights(span)
	if err != nil {
		return Result{
			Insights: fallback(trimmed),
			Status:   StatusUnparsed,
			Raw:      trimmed,
			Error:    err.Error(),
		}
	}
	return Result{Insights: ins, Status: StatusStructured, Raw: trimmed}
}

// locateObject returns the greedy span from the first '{' to the last '}'.
func locateObject(s string) (string, bool) {
	start := strings.Index(s, "{")
	if start < 0 {
		return "", false
	}
	end := strings.LastIndex(s, "}")
	if end < start {
		return "", false
	}
	return s[start : end+1], true
}

func decodeInsights(span string) (models.Insights, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(span), &fields); err != nil {
		return models.Insights{}, fmt.Errorf("parse response as JSON: %w", err)
	}
	return models.Insights{
		Positive:  coerceList(fields["positive"]),
		Negative:  coerceList(fields["negative"]),
		Problems:  coerceList(fields["problems"]),
		Solutions: coerceList(fields["solutions"]),
	}, nil
}

// coerceList turns one JSON value into a list of strings. Lists keep their
// string elements as-is and render other elements as JSON text; a lone
// string becomes a one-element list; absent or null becomes empty.
func coerceList(raw json.RawMessage) []string {
	out := []string{}
	if len(raw) == 0 {
		return out
	}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return out
	}

	switch val := v.(type) {
	case nil:
		return out
	case string:
		return append(out, val)
	case []any:
		for _, el := range val {
			out = append(out, stringify(el))
		}
		return out
	default:
		return append(out, stringify(val))
	}
}

func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

func fallback(raw string) models.Insights {
	return models.Insights{
		Positive:  []string{},
		Negative:  []string{},
		Problems:  []string{},
		Solutions: []string{raw},
	}
}
