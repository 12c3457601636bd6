package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/reviewlens/internal/ledger"
	"github.com/joescharf/reviewlens/internal/output"
	"github.com/joescharf/reviewlens/internal/textclean"
)

var analyzePretty bool

var analyzeCmd = &cobra.Command{
	Use:   "analyze [TEXT...]",
	Short: "Extract insights from a single review",
	Long: `Send one review to the insight service and print the result.

The review is read from the arguments, or from stdin when no arguments
are given or the only argument is "-". Nothing is recorded.`,
	Example: `  reviewlens analyze "Fast delivery but the app crashed at checkout"
  cat review.txt | reviewlens analyze --pretty`,
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := analyzeInput(args, cmd.InOrStdin())
		if err != nil {
			return err
		}
		return analyzeRun(cmd.Context(), newExtractor(), text)
	},
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzePretty, "pretty", false, "Print colored sections instead of JSON")
	rootCmd.AddCommand(analyzeCmd)
}

func analyzeInput(args []string, stdin io.Reader) (string, error) {
	if len(args) > 0 && !(len(args) == 1 && args[0] == "-") {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read review from stdin: %w", err)
	}
	return string(data), nil
}

func analyzeRun(ctx context.Context, ex ledger.Extractor, text string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if viper.GetBool("review.normalize") {
		text = textclean.Normalize(text)
	}
	if strings.TrimSpace(text) == "" {
		return ledger.ErrEmptyReview
	}

	res := ex.Extract(ctx, text)

	if analyzePretty {
		ui.Insights(res.Insights)
	} else {
		enc := json.NewEncoder(ui.Out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res.Insights.Normalized()); err != nil {
			return fmt.Errorf("encode insights: %w", err)
		}
	}

	status := output.StatusColor(string(res.Status))
	if res.Degraded() {
		ui.Warning("Extraction %s: %s", status, res.Error)
	} else {
		fmt.Fprintf(ui.ErrOut, "status: %s\n", status)
	}
	return nil
}

// stdinIsTerminal reports whether stdin is an interactive terminal.
func stdinIsTerminal() bool {
	fi, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
