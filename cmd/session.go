package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/reviewlens/internal/ledger"
	"github.com/joescharf/reviewlens/internal/models"
	"github.com/joescharf/reviewlens/internal/output"
	"github.com/joescharf/reviewlens/internal/report"
	"github.com/joescharf/reviewlens/internal/store"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Analyze reviews interactively",
	Long: `Start an interactive session. Each line you enter is analyzed as a
review and appended to the session ledger; you are then asked for a 1-5
rating (blank uses review.default_rating).

Lines starting with ':' are commands:
` + sessionHelp + `
The ledger is discarded when the session ends.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := store.New(viper.GetString("ledger.backend"))
		if err != nil {
			return err
		}
		l := ledger.New(s, newExtractor(), ledgerOptions())
		defer l.Close()

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		return sessionRun(ctx, l, cmd.InOrStdin(), stdinIsTerminal())
	},
}

func init() {
	rootCmd.AddCommand(sessionCmd)
}

const sessionHelp = `  :list           table of all reviews
  :export FILE    write CSV to FILE ("-" for stdout)
  :chart          positive vs negative bar and pie charts
  :json           print the ledger as JSON
  :help           show this help
  :quit           end the session
`

var errQuit = errors.New("quit")

// sessionRun reads reviews and commands from in until EOF or :quit.
// Prompts are only printed when interactive is set.
func sessionRun(ctx context.Context, l *ledger.Ledger, in io.Reader, interactive bool) error {
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)

	defaultRating := models.ClampRating(viper.GetInt("review.default_rating"))
	prompt := func(p string) {
		if interactive {
			fmt.Fprint(ui.Out, p)
		}
	}

	if interactive {
		ui.Info("Enter a review per line, :help for commands")
	}

	for {
		prompt("review> ")
		if !sc.Scan() {
			break
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, ":") {
			err := sessionCommand(ctx, l, line)
			if errors.Is(err, errQuit) {
				return nil
			}
			if err != nil {
				ui.Error("%v", err)
			}
			continue
		}

		prompt(fmt.Sprintf("rating [%d]> ", defaultRating))
		rating := defaultRating
		var pending string
		if sc.Scan() {
			answer := strings.TrimSpace(sc.Text())
			if strings.HasPrefix(answer, ":") {
				// A command typed at the rating prompt runs once the review is in.
				ui.Warning("Rating expected, using %d and then running %s", defaultRating, answer)
				pending = answer
			} else {
				rating = parseRating(answer, defaultRating)
			}
		}

		sub, err := l.Add(ctx, line, rating)
		switch {
		case errors.Is(err, ledger.ErrEmptyReview):
			ui.Warning("Review is empty after cleaning, not recorded")
		case err != nil:
			return err
		default:
			ui.Success("%s recorded (rating %s, %s)",
				sub.Review.ID, output.RatingColor(sub.Review.Rating), output.StatusColor(string(sub.Status)))
			ui.Insights(sub.Review.Insights)
		}

		if pending != "" {
			err := sessionCommand(ctx, l, pending)
			if errors.Is(err, errQuit) {
				return nil
			}
			if err != nil {
				ui.Error("%v", err)
			}
		}
	}
	return sc.Err()
}

// parseRating parses s, falling back to def when blank or not a number.
// Numbers outside 1..5 are clamped.
func parseRating(s string, def int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		ui.Warning("Invalid rating %q, using %d", s, def)
		return def
	}
	return models.ClampRating(n)
}

func sessionCommand(ctx context.Context, l *ledger.Ledger, line string) error {
	fields := strings.Fields(line)
	switch fields[0] {
	case ":quit", ":q", ":exit":
		return errQuit
	case ":help", ":h":
		fmt.Fprint(ui.Out, sessionHelp)
		return nil
	case ":list", ":ls":
		reviews, err := l.All(ctx)
		if err != nil {
			return err
		}
		if len(reviews) == 0 {
			ui.Info("No reviews yet")
			return nil
		}
		return ui.ReviewTable(reviews)
	case ":chart":
		sum, err := l.Summary(ctx)
		if err != nil {
			return err
		}
		ui.BarChart(sum.Positive, sum.Negative)
		fmt.Fprintln(ui.Out)
		ui.PieChart(sum.Positive, sum.Negative)
		return nil
	case ":json":
		reviews, err := l.All(ctx)
		if err != nil {
			return err
		}
		return report.WriteJSON(ui.Out, reviews)
	case ":export":
		if len(fields) < 2 {
			return fmt.Errorf("usage: :export FILE")
		}
		return sessionExport(ctx, l, fields[1])
	default:
		return fmt.Errorf("unknown command %s (try :help)", fields[0])
	}
}

func sessionExport(ctx context.Context, l *ledger.Ledger, path string) error {
	reviews, err := l.All(ctx)
	if err != nil {
		return err
	}
	if path == "-" {
		return report.WriteCSV(ui.Out, reviews)
	}

	if dryRun {
		ui.DryRunMsg("Would write %d reviews to %s", len(reviews), path)
		return nil
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := report.WriteCSV(f, reviews); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	ui.Success("Exported %d reviews to %s", len(reviews), path)
	return nil
}
