package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"coffee-review-bot/internal/domain"
)

// Memory хранит сессии в памяти процесса. Записи не истекают.
type Memory struct {
	mu       sync.Mutex
	sessions map[int64]domain.Session
	now      func() time.Time
	newID    func() string
}

var _ domain.SessionStore = (*Memory)(nil)

// NewMemory создаёт хранилище сессий в памяти.
func NewMemory() *Memory {
	return &Memory{
		sessions: make(map[int64]domain.Session),
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Lookup реализует domain.SessionStore.
func (m *Memory) Lookup(_ context.Context, userID int64) (domain.Session, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[userID]
	return cloneSession(s), ok, nil
}

// GetOrCreate реализует domain.SessionStore.
func (m *Memory) GetOrCreate(_ context.Context, userID int64) (domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneSession(m.getOrCreateLocked(userID)), nil
}

// Update реализует domain.SessionStore.
func (m *Memory) Update(_ context.Context, userID int64, apply func(*domain.Session) error) (domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[userID]
	if ok {
		s = cloneSession(s)
	} else {
		s = domain.NewSession(userID, m.newID(), m.now())
	}
	if err := apply(&s); err != nil {
		return domain.Session{}, err
	}
	s.UserID = userID
	s.UpdatedAt = m.now()
	m.sessions[userID] = s
	return cloneSession(s), nil
}

// Clear реализует domain.SessionStore.
func (m *Memory) Clear(_ context.Context, userID int64) error {
	m.mu.Lock()
	delete(m.sessions, userID)
	m.mu.Unlock()
	return nil
}

// Len возвращает число активных сессий.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Memory) getOrCreateLocked(userID int64) domain.Session {
	if s, ok := m.sessions[userID]; ok {
		return s
	}
	s := domain.NewSession(userID, m.newID(), m.now())
	m.sessions[userID] = s
	return s
}

func cloneSession(s domain.Session) domain.Session {
	if s.Rating != nil {
		r := *s.Rating
		s.Rating = &r
	}
	return s
}
