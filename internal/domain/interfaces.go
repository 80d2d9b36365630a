package domain

import "context"

// SessionStore хранит незавершённые анкеты по идентификатору пользователя.
type SessionStore interface {
	// Lookup возвращает сессию и признак её наличия.
	Lookup(ctx context.Context, userID int64) (Session, bool, error)
	// GetOrCreate возвращает существующую сессию или создаёт новую.
	GetOrCreate(ctx context.Context, userID int64) (Session, error)
	// Update применяет изменения к сессии, создавая её при отсутствии.
	// Ошибка apply возвращается как есть, изменения при этом не сохраняются.
	Update(ctx context.Context, userID int64, apply func(*Session) error) (Session, error)
	// Clear удаляет сессию. Отсутствие сессии не ошибка.
	Clear(ctx context.Context, userID int64) error
}

// ReviewRepo управляет журналом отзывов.
type ReviewRepo interface {
	SaveReview(ctx context.Context, review Review) (Review, error)
	ListRecentReviews(ctx context.Context, limit int) ([]Review, error)
}

// AdminNotifier доставляет сообщение в административный чат.
type AdminNotifier interface {
	NotifyAdmin(ctx context.Context, text string) error
}
