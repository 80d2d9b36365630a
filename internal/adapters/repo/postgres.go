package repo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"coffee-review-bot/internal/domain"
	"coffee-review-bot/internal/infra/metrics"
)

// Postgres реализует журнал отзывов на основе pgxpool.
type Postgres struct {
	pool *pgxpool.Pool
}

var _ domain.ReviewRepo = (*Postgres)(nil)

// NewPostgres создаёт адаптер БД.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// EnsureSchema создаёт таблицу отзывов, если её нет.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	ctx, cancel := connCtxWithParent(ctx)
	defer cancel()

	statements := []string{
		`CREATE TABLE IF NOT EXISTS reviews (
	id BIGSERIAL PRIMARY KEY,
	user_id BIGINT NOT NULL,
	username TEXT NOT NULL DEFAULT '',
	location TEXT NOT NULL,
	rating INTEGER CHECK (rating BETWEEN 1 AND 5),
	comment TEXT NOT NULL DEFAULT '',
	"timestamp" TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
		`CREATE INDEX IF NOT EXISTS reviews_timestamp_idx ON reviews ("timestamp" DESC, id DESC)`,
	}
	for _, stmt := range statements {
		start := time.Now()
		_, err := p.pool.Exec(ctx, stmt)
		metrics.ObserveNetworkRequest("postgres", "ensure_schema", "reviews", start, err)
		if err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// SaveReview реализует domain.ReviewRepo. ID и время назначает БД.
func (p *Postgres) SaveReview(ctx context.Context, review domain.Review) (domain.Review, error) {
	ctx, cancel := connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	err := p.pool.QueryRow(ctx, `
INSERT INTO reviews (user_id, username, location, rating, comment)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, "timestamp"
`, review.UserID, review.DisplayName, review.LocationID, nullableRating(review.Rating), review.Comment).Scan(&review.ID, &review.CreatedAt)
	metrics.ObserveNetworkRequest("postgres", "reviews_insert", "reviews", start, err)
	if err != nil {
		return domain.Review{}, fmt.Errorf("insert review: %w", err)
	}
	return review, nil
}

// ListRecentReviews реализует domain.ReviewRepo.
func (p *Postgres) ListRecentReviews(ctx context.Context, limit int) ([]domain.Review, error) {
	ctx, cancel := connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT id, user_id, username, location, rating, comment, "timestamp"
FROM reviews
ORDER BY "timestamp" DESC, id DESC
LIMIT $1
`, limit)
	metrics.ObserveNetworkRequest("postgres", "reviews_recent", "reviews", start, err)
	if err != nil {
		return nil, fmt.Errorf("select reviews: %w", err)
	}
	defer rows.Close()

	var out []domain.Review
	for rows.Next() {
		var (
			r      domain.Review
			rating sql.NullInt64
		)
		if err := rows.Scan(&r.ID, &r.UserID, &r.DisplayName, &r.LocationID, &rating, &r.Comment, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		r.Rating = ratingPtr(rating.Valid, rating.Int64)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reviews: %w", err)
	}
	return out, nil
}
