// Package ledger keeps the append-only, session-scoped list of analyzed reviews.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/joescharf/reviewlens/internal/insights"
	"github.com/joescharf/reviewlens/internal/metrics"
	"github.com/joescharf/reviewlens/internal/models"
	"github.com/joescharf/reviewlens/internal/report"
	"github.com/joescharf/reviewlens/internal/store"
	"github.com/joescharf/reviewlens/internal/textclean"
)

// ErrEmptyReview is returned by Add for blank review text, or text that is
// blank after normalization. Nothing is recorded and the insight service is
// not called.
var ErrEmptyReview = errors.New("review text is empty")

// Extractor produces insights for a review. *insights.Extractor satisfies it.
type Extractor interface {
	Extract(ctx context.Context, reviewText string) insights.Result
}

// Options controls how a Ledger prepares reviews.
type Options struct {
	// Normalize cleans review text with textclean.Normalize before extraction.
	Normalize bool
	// Now returns the creation time; defaults to time.Now.
	Now func() time.Time
}

// Ledger is an ordered, append-only collection of reviews.
type Ledger struct {
	// mu serializes Add so ids are assigned without gaps.
	mu        sync.Mutex
	store     store.Store
	extractor Extractor
	opts      Options
}

// Submission is the outcome of Add.
type Submission struct {
	Review models.Review   `json:"review"`
	Status insights.Status `json:"status"`
	// Reviews is a snapshot of the whole ledger after the append.
	Reviews []models.Review `json:"reviews"`
}

// New creates a Ledger over s.
func New(s store.Store, ex Extractor, opts Options) *Ledger {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Ledger{store: s, extractor: ex, opts: opts}
}

// Add analyzes text and appends a new review with the next sequence id.
// Extraction failures never fail Add; they show up in Submission.Status.
func (l *Ledger) Add(ctx context.Context, text string, rating int) (*Submission, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyReview
	}
	if l.opts.Normalize {
		text = textclean.Normalize(text)
		if text == "" {
			return nil, ErrEmptyReview
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	res := l.extractor.Extract(ctx, text)

	// The review is recorded even if the caller gave up during extraction.
	ctx = context.WithoutCancel(ctx)

	n, err := l.store.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count reviews: %w", err)
	}

	r := models.Review{
		ID:           models.FormatReviewID(n + 1),
		Date:         models.ReviewDate(l.opts.Now()),
		Rating:       models.ClampRating(rating),
		OriginalText: text,
		Insights:     res.Insights.Normalized(),
	}
	if err := l.store.Append(ctx, r); err != nil {
		return nil, fmt.Errorf("append review: %w", err)
	}
	metrics.ReviewsTotal.Inc()

	all, err := l.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}

	return &Submission{Review: r, Status: res.Status, Reviews: all}, nil
}

// All returns a snapshot of every review in insertion order.
func (l *Ledger) All(ctx context.Context) ([]models.Review, error) {
	return l.store.List(ctx)
}

// Len returns the number of reviews.
func (l *Ledger) Len(ctx context.Context) (int, error) {
	return l.store.Count(ctx)
}

// Summary aggregates the ledger's insight counts.
func (l *Ledger) Summary(ctx context.Context) (report.Summary, error) {
	all, err := l.store.List(ctx)
	if err != nil {
		return report.Summary{}, err
	}
	return report.Summarize(all), nil
}

// Close releases the underlying store.
func (l *Ledger) Close() error {
	return l.store.Close()
}
