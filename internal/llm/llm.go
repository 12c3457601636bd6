package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrNoText is returned when the service answers without any text content.
	ErrNoText = errors.New("no text content in API response")
	// ErrMissingAPIKey is returned by NewClient when no key is configured.
	ErrMissingAPIKey = errors.New("API key is required")
)

// Provider names accepted by NewClient.
const (
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

// Client sends a single prompt to a text-generation service and returns the
// text of its answer. Calls are stateless and single-shot.
type Client interface {
	Generate(ctx context.Context, prompt string) (string, error)
	// Provider returns a short label for logs and metrics.
	Provider() string
}

// Config selects and configures a Client.
type Config struct {
	Provider  string
	APIKey    string
	Model     string
	MaxTokens int64
	// BaseURL overrides the service endpoint. Used by tests.
	BaseURL string
	Timeout time.Duration
}

// NewClient creates a Client for cfg.Provider.
func NewClient(cfg Config) (Client, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", ProviderAnthropic:
		return newAnthropicClient(cfg)
	case ProviderGemini:
		return newGeminiClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}
