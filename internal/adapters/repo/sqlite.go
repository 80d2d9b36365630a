package repo

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"coffee-review-bot/internal/domain"
	"coffee-review-bot/internal/infra/metrics"
)

const sqliteTimeLayout = "2006-01-02 15:04:05"

// SQLite реализует журнал отзывов в файле SQLite.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

var _ domain.ReviewRepo = (*SQLite)(nil)

// NewSQLite создаёт адаптер поверх открытого *sql.DB.
func NewSQLite(db *sql.DB) *SQLite {
	return &SQLite{db: db, now: time.Now}
}

// EnsureSchema создаёт таблицу отзывов, если её нет.
func (s *SQLite) EnsureSchema(ctx context.Context) error {
	ctx, cancel := connCtxWithParent(ctx)
	defer cancel()

	statements := []string{
		`CREATE TABLE IF NOT EXISTS reviews (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER,
	username TEXT,
	location TEXT,
	rating INTEGER,
	comment TEXT,
	timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
)`,
		`CREATE INDEX IF NOT EXISTS reviews_timestamp_idx ON reviews (timestamp DESC, id DESC)`,
	}
	for _, stmt := range statements {
		start := time.Now()
		_, err := s.db.ExecContext(ctx, stmt)
		metrics.ObserveNetworkRequest("sqlite", "ensure_schema", "reviews", start, err)
		if err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// SaveReview реализует domain.ReviewRepo. Время создания назначается в UTC с точностью до секунды.
func (s *SQLite) SaveReview(ctx context.Context, review domain.Review) (domain.Review, error) {
	ctx, cancel := connCtxWithParent(ctx)
	defer cancel()

	created := s.now().UTC().Truncate(time.Second)
	start := time.Now()
	res, err := s.db.ExecContext(ctx, `
INSERT INTO reviews (user_id, username, location, rating, comment, timestamp)
VALUES (?, ?, ?, ?, ?, ?)
`, review.UserID, review.DisplayName, review.LocationID, nullableRating(review.Rating), review.Comment, created.Format(sqliteTimeLayout))
	metrics.ObserveNetworkRequest("sqlite", "reviews_insert", "reviews", start, err)
	if err != nil {
		return domain.Review{}, fmt.Errorf("insert review: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.Review{}, fmt.Errorf("insert review id: %w", err)
	}
	review.ID = id
	review.CreatedAt = created
	return review, nil
}

// ListRecentReviews реализует domain.ReviewRepo.
func (s *SQLite) ListRecentReviews(ctx context.Context, limit int) ([]domain.Review, error) {
	ctx, cancel := connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	rows, err := s.db.QueryContext(ctx, `
SELECT id, COALESCE(user_id, 0), COALESCE(username, ''), COALESCE(location, ''), rating, COALESCE(comment, ''), COALESCE(timestamp, '')
FROM reviews
ORDER BY timestamp DESC, id DESC
LIMIT ?
`, limit)
	metrics.ObserveNetworkRequest("sqlite", "reviews_recent", "reviews", start, err)
	if err != nil {
		return nil, fmt.Errorf("select reviews: %w", err)
	}
	defer rows.Close()

	var out []domain.Review
	for rows.Next() {
		var (
			r       domain.Review
			rating  sql.NullInt64
			created string
		)
		if err := rows.Scan(&r.ID, &r.UserID, &r.DisplayName, &r.LocationID, &rating, &r.Comment, &created); err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		r.Rating = ratingPtr(rating.Valid, rating.Int64)
		r.CreatedAt, err = parseSQLiteTime(created)
		if err != nil {
			return nil, fmt.Errorf("review %d: %w", r.ID, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reviews: %w", err)
	}
	return out, nil
}

var sqliteTimeLayouts = []string{
	sqliteTimeLayout,
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
}

func parseSQLiteTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	for _, layout := range sqliteTimeLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unexpected timestamp %q", raw)
}
