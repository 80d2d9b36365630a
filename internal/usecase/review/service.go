package review

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"coffee-review-bot/internal/domain"
	"coffee-review-bot/internal/infra/metrics"
)

// Префиксы callback-данных инлайн-кнопок.
const (
	CallbackLocationPrefix = "location_"
	CallbackRatingPrefix   = "rating_"
)

// DefaultDigestLimit ограничивает сводку последних отзывов.
const DefaultDigestLimit = 10

// Choice описывает одну инлайн-кнопку.
type Choice struct {
	Label string
	Data  string
}

// Reply описывает ответ пользователю.
type Reply struct {
	Text    string
	Choices []Choice
	// Edit означает, что ответ заменяет сообщение с меню, а не отправляется новым.
	Edit bool
}

// Outcome возвращается шагом комментария.
// Review заполнен, только если отзыв сохранён. NotifyErr не влияет на ответ пользователю.
type Outcome struct {
	Reply     Reply
	Review    *domain.Review
	NotifyErr error
}

// Config задаёт вариант анкеты.
type Config struct {
	CollectRating bool
	DigestLimit   int
	Location      *time.Location
}

// Service ведёт пользователя по шагам анкеты и сохраняет отзыв.
type Service struct {
	sessions domain.SessionStore
	reviews  domain.ReviewRepo
	notifier domain.AdminNotifier
	cfg      Config
	log      zerolog.Logger
}

// NewService создаёт сервис.
func NewService(sessions domain.SessionStore, reviews domain.ReviewRepo, notifier domain.AdminNotifier, log zerolog.Logger, cfg Config) *Service {
	if cfg.DigestLimit <= 0 {
		cfg.DigestLimit = DefaultDigestLimit
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Service{
		sessions: sessions,
		reviews:  reviews,
		notifier: notifier,
		cfg:      cfg,
		log:      log,
	}
}

// LocationChoices возвращает меню локаций.
func LocationChoices() []Choice {
	locs := domain.Locations()
	out := make([]Choice, 0, len(locs))
	for _, loc := range locs {
		out = append(out, Choice{Label: loc.Label, Data: CallbackLocationPrefix + loc.ID})
	}
	return out
}

// RatingChoices возвращает меню оценок 1..5.
func RatingChoices() []Choice {
	out := make([]Choice, 0, domain.MaxRating)
	for r := domain.MinRating; r <= domain.MaxRating; r++ {
		out = append(out, Choice{Label: stars(r), Data: CallbackRatingPrefix + strconv.Itoa(r)})
	}
	return out
}

// Start сбрасывает сессию и показывает меню локаций.
func (s *Service) Start(ctx context.Context, userID int64) (Reply, error) {
	if err := s.sessions.Clear(ctx, userID); err != nil {
		return Reply{}, &domain.PersistenceError{Op: domain.OpSessionClear, Err: err}
	}
	sess, err := s.sessions.GetOrCreate(ctx, userID)
	if err != nil {
		return Reply{}, &domain.PersistenceError{Op: domain.OpSessionCreate, Err: err}
	}
	metrics.IncFlowEvent(metrics.EventStart)
	s.log.Debug().Int64("user", userID).Str("flow", sess.FlowID).Msg("анкета начата")
	return Reply{Text: TextWelcome, Choices: LocationChoices()}, nil
}

// HandleCallback разбирает данные инлайн-кнопки и выполняет нужный шаг.
func (s *Service) HandleCallback(ctx context.Context, userID int64, data string) (Reply, error) {
	switch {
	case strings.HasPrefix(data, CallbackLocationPrefix):
		return s.SelectLocation(ctx, userID, strings.TrimPrefix(data, CallbackLocationPrefix))
	case strings.HasPrefix(data, CallbackRatingPrefix):
		raw := strings.TrimPrefix(data, CallbackRatingPrefix)
		rating, err := strconv.Atoi(raw)
		if err != nil || strconv.Itoa(rating) != raw {
			return Reply{}, s.reject(data, "rating is not a canonical number")
		}
		return s.SelectRating(ctx, userID, rating)
	default:
		return Reply{}, s.reject(data, "unknown callback prefix")
	}
}

// SelectLocation запоминает локацию и предлагает оценку или комментарий.
func (s *Service) SelectLocation(ctx context.Context, userID int64, locationID string) (Reply, error) {
	loc, ok := domain.LookupLocation(locationID)
	if !ok {
		return Reply{}, s.reject(CallbackLocationPrefix+locationID, "unknown location")
	}
	sess, err := s.sessions.Update(ctx, userID, func(ss *domain.Session) error {
		if ss.Stage != domain.StageAwaitingLocation {
			return s.reject(CallbackLocationPrefix+locationID, "location is not expected at stage "+string(ss.Stage))
		}
		ss.ChooseLocation(loc.ID, s.cfg.CollectRating)
		return nil
	})
	if err != nil {
		return Reply{}, s.updateFailed(err)
	}
	metrics.IncFlowEvent(metrics.EventLocation)
	s.log.Debug().Int64("user", userID).Str("flow", sess.FlowID).Str("location", loc.ID).Msg("локация выбрана")
	if sess.Stage == domain.StageAwaitingRating {
		return Reply{Text: FormatRatingPrompt(loc.Label), Choices: RatingChoices(), Edit: true}, nil
	}
	return Reply{Text: FormatCommentPrompt(loc.Label, nil), Edit: true}, nil
}

// SelectRating запоминает оценку и просит комментарий.
func (s *Service) SelectRating(ctx context.Context, userID int64, rating int) (Reply, error) {
	input := CallbackRatingPrefix + strconv.Itoa(rating)
	if !s.cfg.CollectRating {
		return Reply{}, s.reject(input, "rating step is disabled")
	}
	if !domain.ValidRating(rating) {
		return Reply{}, s.reject(input, "rating out of range")
	}
	sess, err := s.sessions.Update(ctx, userID, func(ss *domain.Session) error {
		if ss.Stage != domain.StageAwaitingRating {
			return s.reject(input, "rating is not expected at stage "+string(ss.Stage))
		}
		ss.ChooseRating(rating)
		return nil
	})
	if err != nil {
		return Reply{}, s.updateFailed(err)
	}
	metrics.IncFlowEvent(metrics.EventRating)
	s.log.Debug().Int64("user", userID).Str("flow", sess.FlowID).Int("rating", rating).Msg("оценка выбрана")
	return Reply{Text: FormatCommentPrompt(domain.LocationLabel(sess.LocationID), sess.Rating), Edit: true}, nil
}

// SubmitComment обрабатывает свободный текст как комментарий.
// Текст без активной сессии сохраняется как отзыв с неизвестной локацией.
func (s *Service) SubmitComment(ctx context.Context, author domain.Author, comment string) (Outcome, error) {
	return s.finish(ctx, author, comment, false)
}

// Skip завершает анкету без комментария.
func (s *Service) Skip(ctx context.Context, author domain.Author) (Outcome, error) {
	return s.finish(ctx, author, "", true)
}

func (s *Service) finish(ctx context.Context, author domain.Author, comment string, skipped bool) (Outcome, error) {
	sess, found, err := s.sessions.Lookup(ctx, author.UserID)
	if err != nil {
		return Outcome{}, &domain.PersistenceError{Op: domain.OpSessionGet, Err: err}
	}
	switch {
	case !found && skipped:
		return Outcome{Reply: Reply{Text: TextStartFirst}}, nil
	case !found:
		sess = domain.Session{UserID: author.UserID, Stage: domain.StageAwaitingComment}
		metrics.IncFlowEvent(metrics.EventImplicitFlow)
		s.log.Warn().Int64("user", author.UserID).Msg("комментарий без активной анкеты, локация неизвестна")
	case sess.Stage == domain.StageAwaitingLocation:
		return Outcome{Reply: Reply{Text: TextChooseLocation}}, nil
	case sess.Stage == domain.StageAwaitingRating:
		return Outcome{Reply: Reply{Text: TextChooseRating}}, nil
	}

	locationID := sess.LocationID
	if locationID == "" {
		locationID = domain.UnknownLocationID
	}
	saved, err := s.reviews.SaveReview(ctx, domain.Review{
		UserID:      author.UserID,
		DisplayName: author.DisplayName(),
		LocationID:  locationID,
		Rating:      sess.Rating,
		Comment:     comment,
	})
	if err != nil {
		metrics.PersistErrors.Inc()
		return Outcome{}, &domain.PersistenceError{Op: domain.OpSaveReview, Err: err}
	}
	metrics.IncReviewSubmitted(saved.LocationID)
	s.log.Info().
		Int64("user", author.UserID).
		Str("flow", sess.FlowID).
		Int64("review", saved.ID).
		Str("location", saved.LocationID).
		Bool("skipped", skipped).
		Msg("отзыв сохранён")

	if found {
		if err := s.sessions.Clear(ctx, author.UserID); err != nil {
			s.log.Error().Err(err).Int64("user", author.UserID).Msg("не удалось очистить сессию после сохранения")
		}
	}

	out := Outcome{Reply: Reply{Text: FormatThankYou(saved)}, Review: &saved}
	if err := s.notify(ctx, saved); err != nil {
		metrics.AdminNotifyErrors.Inc()
		out.NotifyErr = &domain.NotificationError{Err: err}
	}
	return out, nil
}

func (s *Service) notify(ctx context.Context, r domain.Review) error {
	if s.notifier == nil {
		return fmt.Errorf("notifier is not configured")
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	return s.notifier.NotifyAdmin(ctx, FormatAdminNotification(r, s.cfg.Location))
}

// RecentDigest возвращает сводку последних отзывов, новые сверху.
func (s *Service) RecentDigest(ctx context.Context) (Reply, error) {
	list, err := s.reviews.ListRecentReviews(ctx, s.cfg.DigestLimit)
	if err != nil {
		return Reply{}, &domain.PersistenceError{Op: domain.OpListReviews, Err: err}
	}
	if len(list) > s.cfg.DigestLimit {
		list = list[:s.cfg.DigestLimit]
	}
	metrics.IncFlowEvent(metrics.EventDigest)
	return Reply{Text: FormatDigest(list, s.cfg.Location)}, nil
}

// updateFailed отделяет отказ шага, вернувшийся из Update, от сбоя хранилища.
func (s *Service) updateFailed(err error) error {
	var invalid *domain.InvalidInputError
	if errors.As(err, &invalid) {
		return invalid
	}
	return &domain.PersistenceError{Op: domain.OpSessionUpdate, Err: err}
}

func (s *Service) reject(input, reason string) error {
	metrics.IncFlowEvent(metrics.EventRejected)
	return &domain.InvalidInputError{Input: input, Reason: reason}
}
