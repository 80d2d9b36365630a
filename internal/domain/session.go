package domain

import "time"

// Stage описывает шаг анкеты, на котором находится пользователь.
type Stage string

const (
	StageAwaitingLocation Stage = "awaiting_location"
	StageAwaitingRating   Stage = "awaiting_rating"
	StageAwaitingComment  Stage = "awaiting_comment"
)

// Valid сообщает, известен ли шаг.
func (s Stage) Valid() bool {
	switch s {
	case StageAwaitingLocation, StageAwaitingRating, StageAwaitingComment:
		return true
	}
	return false
}

// MinRating и MaxRating ограничивают допустимую оценку.
const (
	MinRating = 1
	MaxRating = 5
)

// ValidRating проверяет, что оценка входит в 1..5.
func ValidRating(r int) bool {
	return r >= MinRating && r <= MaxRating
}

// Session хранит незавершённый отзыв пользователя.
// LocationID заполняется начиная с шага оценки, Rating только после выбора оценки.
type Session struct {
	UserID     int64     `json:"user_id"`
	FlowID     string    `json:"flow_id"`
	Stage      Stage     `json:"stage"`
	LocationID string    `json:"location_id,omitempty"`
	Rating     *int      `json:"rating,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// NewSession создаёт сессию на первом шаге.
func NewSession(userID int64, flowID string, now time.Time) Session {
	return Session{
		UserID:    userID,
		FlowID:    flowID,
		Stage:     StageAwaitingLocation,
		UpdatedAt: now,
	}
}

// ChooseLocation переводит сессию на следующий шаг после выбора локации.
func (s *Session) ChooseLocation(locationID string, collectRating bool) {
	s.LocationID = locationID
	s.Rating = nil
	if collectRating {
		s.Stage = StageAwaitingRating
		return
	}
	s.Stage = StageAwaitingComment
}

// ChooseRating запоминает оценку и переводит сессию к комментарию.
func (s *Session) ChooseRating(rating int) {
	r := rating
	s.Rating = &r
	s.Stage = StageAwaitingComment
}
