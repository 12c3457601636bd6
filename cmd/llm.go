package cmd

import (
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/joescharf/reviewlens/internal/insights"
	"github.com/joescharf/reviewlens/internal/ledger"
	"github.com/joescharf/reviewlens/internal/llm"
)

// apiKeyEnv maps each provider to the conventional env var checked when the
// config key is empty.
var apiKeyEnv = map[string]string{
	llm.ProviderAnthropic: "ANTHROPIC_API_KEY",
	llm.ProviderGemini:    "GEMINI_API_KEY",
}

func llmProvider() string {
	p := strings.ToLower(viper.GetString("llm.provider"))
	if p == "" {
		return llm.ProviderAnthropic
	}
	return p
}

// newLLMClient creates an LLM client from config/env, or returns nil if no
// API key is configured. A nil client makes every extraction unavailable.
func newLLMClient() llm.Client {
	provider := llmProvider()

	apiKey := viper.GetString(provider + ".api_key")
	if apiKey == "" {
		apiKey = os.Getenv(apiKeyEnv[provider])
	}
	if apiKey == "" {
		ui.Warning("No API key for %s (set %s.api_key or %s); insights will be unavailable",
			provider, provider, apiKeyEnv[provider])
		return nil
	}

	client, err := llm.NewClient(llm.Config{
		Provider: provider,
		APIKey:   apiKey,
		Model:    viper.GetString(provider + ".model"),
		Timeout:  viper.GetDuration("llm.timeout"),
	})
	if err != nil {
		ui.Warning("LLM client: %v", err)
		return nil
	}
	ui.VerboseLog("Using %s model %s", provider, viper.GetString(provider+".model"))
	return client
}

func newExtractor() *insights.Extractor {
	return insights.NewExtractor(newLLMClient(),
		insights.WithTimeout(viper.GetDuration("llm.timeout")),
		insights.WithLogger(slog.Default()),
	)
}

func ledgerOptions() ledger.Options {
	return ledger.Options{Normalize: viper.GetBool("review.normalize")}
}
