package report

import "github.com/joescharf/reviewlens/internal/models"

// Summary aggregates insight mention counts over a set of reviews.
type Summary struct {
	Reviews       int     `json:"reviews"`
	Positive      int     `json:"positive"`
	Negative      int     `json:"negative"`
	Problems      int     `json:"problems"`
	Solutions     int     `json:"solutions"`
	AverageRating float64 `json:"average_rating"`
}

// Summarize sums the lengths of each insight list across reviews.
func Summarize(reviews []models.Review) Summary {
	var s Summary
	var ratingTotal int
	for _, r := range reviews {
		s.Reviews++
		s.Positive += len(r.Insights.Positive)
		s.Negative += len(r.Insights.Negative)
		s.Problems += len(r.Insights.Problems)
		s.Solutions += len(r.Insights.Solutions)
		ratingTotal += r.Rating
	}
	if s.Reviews > 0 {
		s.AverageRating = float64(ratingTotal) / float64(s.Reviews)
	}
	return s
}

// Mentions is the positive plus negative count, the total the charts divide.
func (s Summary) Mentions() int {
	return s.Positive + s.Negative
}

// Shares returns the positive and negative percentages of all mentions.
// Both are zero when there are no mentions.
func (s Summary) Shares() (positive, negative float64) {
	total := s.Mentions()
	if total == 0 {
		return 0, 0
	}
	positive = 100 * float64(s.Positive) / float64(total)
	return positive, 100 - positive
}
