// Package report exports ledgers and aggregates their insight counts.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/joescharf/reviewlens/internal/models"
)

// Export formats.
const (
	FormatCSV      = "csv"
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
)

// CSVHeader is the column layout of a CSV export.
var CSVHeader = []string{
	"review_id", "date", "rating", "original_text",
	"positive", "negative", "problems", "solutions",
}

// Write renders reviews to w in the given format.
func Write(w io.Writer, format string, reviews []models.Review) error {
	switch format {
	case FormatCSV:
		return WriteCSV(w, reviews)
	case FormatJSON:
		return WriteJSON(w, reviews)
	case FormatMarkdown:
		return WriteMarkdown(w, reviews)
	default:
		return fmt.Errorf("unknown format: %s (use: csv, json, markdown)", format)
	}
}

// listText renders a list column as a JSON array.
func listText(items []string) string {
	if items == nil {
		items = []string{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "[]"
	}
	return string(b)
}

// WriteCSV writes one row per review under CSVHeader.
func WriteCSV(w io.Writer, reviews []models.Review) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, r := range reviews {
		row := []string{
			r.ID,
			r.Date,
			strconv.Itoa(r.Rating),
			r.OriginalText,
			listText(r.Insights.Positive),
			listText(r.Insights.Negative),
			listText(r.Insights.Problems),
			listText(r.Insights.Solutions),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSON writes the reviews as an indented JSON array.
func WriteJSON(w io.Writer, reviews []models.Review) error {
	if reviews == nil {
		reviews = []models.Review{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(reviews)
}

// WriteMarkdown writes the reviews as a Markdown table.
func WriteMarkdown(w io.Writer, reviews []models.Review) error {
	var sb strings.Builder
	sb.WriteString("# Reviews\n\n")
	sb.WriteString("| ID | Date | Rating | Review | Positive | Negative | Problems | Solutions |\n")
	sb.WriteString("|----|------|--------|--------|----------|----------|----------|-----------|\n")
	for _, r := range reviews {
		fmt.Fprintf(&sb, "| %s | %s | %d | %s | %s | %s | %s | %s |\n",
			r.ID, r.Date, r.Rating,
			mdCell(r.OriginalText),
			mdCell(strings.Join(r.Insights.Positive, "; ")),
			mdCell(strings.Join(r.Insights.Negative, "; ")),
			mdCell(strings.Join(r.Insights.Problems, "; ")),
			mdCell(strings.Join(r.Insights.Solutions, "; ")),
		)
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

func mdCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.Join(strings.Fields(s), " ")
}
