package output

import (
	"fmt"
	"strings"

	"github.com/joescharf/reviewlens/internal/models"
)

const (
	barWidth  = 40
	cellWidth = 48
)

// truncate shortens s to max runes, marking the cut with an ellipsis.
func truncate(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}

// ReviewTable renders every review as one row.
func (u *UI) ReviewTable(reviews []models.Review) error {
	table := u.Table([]string{"ID", "Date", "Rating", "Review", "Positive", "Negative", "Problems", "Solutions"})
	for _, r := range reviews {
		if err := table.Append([]string{
			r.ID,
			r.Date,
			RatingColor(r.Rating),
			truncate(r.OriginalText, cellWidth),
			truncate(strings.Join(r.Insights.Positive, "; "), cellWidth),
			truncate(strings.Join(r.Insights.Negative, "; "), cellWidth),
			truncate(strings.Join(r.Insights.Problems, "; "), cellWidth),
			truncate(strings.Join(r.Insights.Solutions, "; "), cellWidth),
		}); err != nil {
			return err
		}
	}
	return table.Render()
}

// Insights prints the four insight lists of one review.
func (u *UI) Insights(ins models.Insights) {
	sections := []struct {
		title string
		items []string
		paint func(string) string
	}{
		{"Positive", ins.Positive, Green},
		{"Negative", ins.Negative, Red},
		{"Problems", ins.Problems, Yellow},
		{"Solutions", ins.Solutions, Cyan},
	}
	for _, s := range sections {
		fmt.Fprintf(u.Out, "%s\n", s.paint(s.title))
		if len(s.items) == 0 {
			fmt.Fprintln(u.Out, "  (none)")
			continue
		}
		for _, item := range s.items {
			fmt.Fprintf(u.Out, "  - %s\n", item)
		}
	}
}

// scaled returns n scaled into [0, width] relative to max.
func scaled(n, max, width int) int {
	if max <= 0 || n <= 0 {
		return 0
	}
	w := n * width / max
	if w == 0 {
		w = 1
	}
	return w
}

// BarChart prints positive and negative mention counts as horizontal bars.
func (u *UI) BarChart(positive, negative int) {
	max := positive
	if negative > max {
		max = negative
	}
	fmt.Fprintln(u.Out, "Positive vs Negative (mentions)")
	fmt.Fprintf(u.Out, "  Positive %s %d\n", Green(strings.Repeat("█", scaled(positive, max, barWidth))), positive)
	fmt.Fprintf(u.Out, "  Negative %s %d\n", Red(strings.Repeat("█", scaled(negative, max, barWidth))), negative)
}

// PieChart prints the positive/negative distribution as one proportional strip
// with percentages.
func (u *UI) PieChart(positive, negative int) {
	total := positive + negative
	fmt.Fprintln(u.Out, "Sentiment distribution")
	if total == 0 {
		fmt.Fprintln(u.Out, "  (no mentions)")
		return
	}

	posShare := 100 * float64(positive) / float64(total)
	posCells := positive * barWidth / total
	strip := Green(strings.Repeat("●", posCells)) + Red(strings.Repeat("●", barWidth-posCells))

	fmt.Fprintf(u.Out, "  %s\n", strip)
	fmt.Fprintf(u.Out, "  Positive %.1f%%  Negative %.1f%%\n", posShare, 100-posShare)
}
