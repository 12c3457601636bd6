package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/joescharf/reviewlens/internal/models"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore implements Store on a private in-memory SQLite database
// (modernc.org/sqlite, pure Go). Nothing is written to disk; the data is
// gone once the store is closed.
type SQLiteStore struct {
	db *sql.DB
}

// newULID generates a new ULID string.
func newULID() string {
	entropy := rand.New(rand.NewSource(time.Now().UnixNano()))
	return ulid.MustNew(ulid.Timestamp(time.Now()), ulid.Monotonic(entropy, 0)).String()
}

// NewSQLiteStore opens a fresh, uniquely named in-memory database.
func NewSQLiteStore() (*SQLiteStore, error) {
	dsn := fmt.Sprintf("file:reviewlens-%s?mode=memory&cache=shared", newULID())

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// A shared-cache memory database lives as long as one connection is open.
	// Pinning the pool to a single long-lived connection keeps it alive and
	// serializes access.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Migrate runs all embedded SQL migration files in order.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	// Create migrations tracking table
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		filename TEXT PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT (datetime('now'))
	)`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()

		var count int
		err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations WHERE filename = ?", name).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %s: %w", name, err)
		}
		if count > 0 {
			continue
		}

		data, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}

		if _, err := s.db.ExecContext(ctx, string(data)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}

		if _, err := s.db.ExecContext(ctx, "INSERT INTO schema_migrations (filename) VALUES (?)", name); err != nil {
			return fmt.Errorf("record migration %s: %w", name, err)
		}
	}

	return nil
}

// Close closes the database connection, discarding the data.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func encodeList(items []string) (string, error) {
	if items == nil {
		items = []string{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeList(s string) ([]string, error) {
	out := []string{}
	if s == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
}

func (s *SQLiteStore) Append(ctx context.Context, r models.Review) error {
	lists := [4]string{}
	for i, items := range [][]string{r.Insights.Positive, r.Insights.Negative, r.Insights.Problems, r.Insights.Solutions} {
		enc, err := encodeList(items)
		if err != nil {
			return fmt.Errorf("encode insights: %w", err)
		}
		lists[i] = enc
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO reviews (review_id, review_date, rating, original_text, positive, negative, problems, solutions)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Date, r.Rating, r.OriginalText, lists[0], lists[1], lists[2], lists[3],
	)
	if err != nil {
		return fmt.Errorf("append review: %w", err)
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]models.Review, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT review_id, review_date, rating, original_text, positive, negative, problems, solutions
		FROM reviews ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer func() { _ = rows.Close() }()

	reviews := []models.Review{}
	for rows.Next() {
		var r models.Review
		var pos, neg, prob, sol string
		if err := rows.Scan(&r.ID, &r.Date, &r.Rating, &r.OriginalText, &pos, &neg, &prob, &sol); err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		for _, f := range []struct {
			src string
			dst *[]string
		}{
			{pos, &r.Insights.Positive},
			{neg, &r.Insights.Negative},
			{prob, &r.Insights.Problems},
			{sol, &r.Insights.Solutions},
		} {
			items, err := decodeList(f.src)
			if err != nil {
				return nil, fmt.Errorf("decode insights for %s: %w", r.ID, err)
			}
			*f.dst = items
		}
		reviews = append(reviews, r)
	}
	return reviews, rows.Err()
}

func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM reviews").Scan(&n); err != nil {
		return 0, fmt.Errorf("count reviews: %w", err)
	}
	return n, nil
}
