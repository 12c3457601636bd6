package models

import (
	"fmt"
	"time"
)

// Rating bounds accepted for a review.
const (
	MinRating = 1
	MaxRating = 5
)

// DateLayout is the calendar-date format used for Review.Date.
const DateLayout = "2006-01-02"

// Insights holds the four categories extracted from a review.
// All four lists are always present; absent values are empty, never nil.
type Insights struct {
	Positive  []string `json:"positive"`
	Negative  []string `json:"negative"`
	Problems  []string `json:"problems"`
	Solutions []string `json:"solutions"`
}

// Normalized returns a copy with nil lists replaced by empty ones.
func (i Insights) Normalized() Insights {
	return Insights{
		Positive:  nonNil(i.Positive),
		Negative:  nonNil(i.Negative),
		Problems:  nonNil(i.Problems),
		Solutions: nonNil(i.Solutions),
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}

// Review is one entry in a ledger. It is immutable once created.
type Review struct {
	ID           string   `json:"review_id"`
	Date         string   `json:"date"`
	Rating       int      `json:"rating"`
	OriginalText string   `json:"original_text"`
	Insights     Insights `json:"insights"`
}

// FormatReviewID returns the identifier for the seq-th review (1-based).
func FormatReviewID(seq int) string {
	return fmt.Sprintf("R%05d", seq)
}

// ClampRating forces r into [MinRating, MaxRating].
func ClampRating(r int) int {
	switch {
	case r < MinRating:
		return MinRating
	case r > MaxRating:
		return MaxRating
	default:
		return r
	}
}

// ReviewDate formats t as a review calendar date in t's location.
func ReviewDate(t time.Time) string {
	return t.Format(DateLayout)
}
