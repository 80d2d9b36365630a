package domain

import "fmt"

// InvalidInputError означает, что ввод пользователя не подходит текущему шагу.
type InvalidInputError struct {
	Input  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input %q: %s", e.Input, e.Reason)
}

// Операции хранилища, попадающие в PersistenceError.Op.
const (
	OpSaveReview    = "save_review"
	OpListReviews   = "list_reviews"
	OpSessionGet    = "session_get"
	OpSessionCreate = "session_create"
	OpSessionUpdate = "session_update"
	OpSessionClear  = "session_clear"
)

// PersistenceError оборачивает сбой хранилища отзывов или сессий.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// NotificationError оборачивает сбой отправки в админ-чат.
type NotificationError struct {
	Err error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("admin notification: %v", e.Err)
}

func (e *NotificationError) Unwrap() error { return e.Err }
