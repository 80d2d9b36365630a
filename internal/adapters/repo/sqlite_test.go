package repo

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"coffee-review-bot/internal/domain"
	"coffee-review-bot/internal/infra/db"
)

func newTestSQLite(t *testing.T) *SQLite {
	t.Helper()
	conn, err := db.OpenSQLite(filepath.Join(t.TempDir(), "reviews.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	repo := NewSQLite(conn)
	if err := repo.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("schema: %v", err)
	}
	return repo
}

func intPtr(v int) *int { return &v }

func TestSQLiteEnsureSchemaIdempotent(t *testing.T) {
	repo := newTestSQLite(t)
	if err := repo.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("повторное создание схемы: %v", err)
	}
}

func TestSQLiteSaveReview(t *testing.T) {
	repo := newTestSQLite(t)
	fixed := time.Date(2025, 6, 1, 9, 30, 15, 500, time.UTC)
	repo.now = func() time.Time { return fixed }

	saved, err := repo.SaveReview(context.Background(), domain.Review{
		UserID:      42,
		DisplayName: "barista",
		LocationID:  "location1",
		Rating:      intPtr(4),
		Comment:     "Great coffee",
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if saved.ID == 0 {
		t.Fatal("ожидали назначенный id")
	}
	if !saved.CreatedAt.Equal(fixed.Truncate(time.Second)) {
		t.Fatalf("created_at = %s", saved.CreatedAt)
	}

	list, err := repo.ListRecentReviews(context.Background(), 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("ожидали 1 отзыв, получили %d", len(list))
	}
	got := list[0]
	if got.ID != saved.ID || got.UserID != 42 || got.DisplayName != "barista" || got.LocationID != "location1" || got.Comment != "Great coffee" {
		t.Fatalf("unexpected review: %+v", got)
	}
	if got.Rating == nil || *got.Rating != 4 {
		t.Fatalf("rating = %v", got.Rating)
	}
	if !got.CreatedAt.Equal(saved.CreatedAt) {
		t.Fatalf("created_at после чтения %s != %s", got.CreatedAt, saved.CreatedAt)
	}
}

func TestSQLiteKeepsEmptyCommentAndNullRating(t *testing.T) {
	repo := newTestSQLite(t)
	if _, err := repo.SaveReview(context.Background(), domain.Review{UserID: 1, LocationID: "location2"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	list, err := repo.ListRecentReviews(context.Background(), 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if list[0].Comment != "" {
		t.Fatalf("комментарий должен храниться пустым, получили %q", list[0].Comment)
	}
	if list[0].Rating != nil {
		t.Fatalf("оценка должна быть NULL, получили %d", *list[0].Rating)
	}
}

func TestSQLiteListRecentOrderAndLimit(t *testing.T) {
	repo := newTestSQLite(t)
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	step := 0
	repo.now = func() time.Time {
		step++
		return base.Add(time.Duration(step) * time.Minute)
	}
	for i := 0; i < 12; i++ {
		if _, err := repo.SaveReview(context.Background(), domain.Review{UserID: int64(i), LocationID: "location1"}); err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
	}

	list, err := repo.ListRecentReviews(context.Background(), 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 10 {
		t.Fatalf("ожидали 10 отзывов, получили %d", len(list))
	}
	if list[0].UserID != 11 {
		t.Fatalf("первым должен быть самый новый отзыв, получили user %d", list[0].UserID)
	}
	for i := 1; i < len(list); i++ {
		if !list[i-1].CreatedAt.After(list[i].CreatedAt) {
			t.Fatalf("нарушен порядок: %s до %s", list[i-1].CreatedAt, list[i].CreatedAt)
		}
	}
}

func TestSQLiteSameSecondFallsBackToID(t *testing.T) {
	repo := newTestSQLite(t)
	fixed := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return fixed }
	for i := 0; i < 3; i++ {
		if _, err := repo.SaveReview(context.Background(), domain.Review{UserID: int64(i), LocationID: "location3"}); err != nil {
			t.Fatalf("save: %v", err)
		}
	}
	list, err := repo.ListRecentReviews(context.Background(), 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if list[0].ID < list[1].ID || list[1].ID < list[2].ID {
		t.Fatalf("ожидали убывание id: %d %d %d", list[0].ID, list[1].ID, list[2].ID)
	}
}

func TestSQLiteReadsRowsWithDefaultTimestamp(t *testing.T) {
	repo := newTestSQLite(t)
	if _, err := repo.db.Exec(`INSERT INTO reviews (user_id, username, location, rating, comment) VALUES (7, 'olena', 'location2', 5, '')`); err != nil {
		t.Fatalf("seed: %v", err)
	}
	list, err := repo.ListRecentReviews(context.Background(), 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].CreatedAt.IsZero() {
		t.Fatalf("ожидали разобранное время по умолчанию: %+v", list)
	}
}

func TestParseSQLiteTime(t *testing.T) {
	want := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)
	cases := []string{
		"2025-03-04 05:06:07",
		"2025-03-04T05:06:07Z",
		"2025-03-04 05:06:07+00:00",
	}
	for _, raw := range cases {
		got, err := parseSQLiteTime(raw)
		if err != nil {
			t.Fatalf("parse %q: %v", raw, err)
		}
		if !got.Equal(want) {
			t.Fatalf("parse %q = %s", raw, got)
		}
	}
	if _, err := parseSQLiteTime("yesterday"); err == nil {
		t.Fatal("ожидали ошибку для некорректного времени")
	}
	if got, err := parseSQLiteTime(""); err != nil || !got.IsZero() {
		t.Fatalf("пустое время должно давать нулевое значение: %s %v", got, err)
	}
}
