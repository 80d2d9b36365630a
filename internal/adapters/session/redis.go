package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"coffee-review-bot/internal/domain"
	"coffee-review-bot/internal/infra/metrics"
)

const updateRetries = 5

// ErrConflict возвращается, если сессию не удалось создать или обновить из-за конкурентных изменений.
var ErrConflict = errors.New("session: concurrent update")

// Redis хранит сессии JSON-значениями в Redis.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	now    func() time.Time
	newID  func() string
}

var _ domain.SessionStore = (*Redis)(nil)

// NewRedis создаёт хранилище. ttl = 0 отключает истечение сессий.
func NewRedis(client *redis.Client, prefix string, ttl time.Duration) *Redis {
	return &Redis{
		client: client,
		prefix: prefix,
		ttl:    ttl,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

func (r *Redis) key(userID int64) string {
	return r.prefix + strconv.FormatInt(userID, 10)
}

// Lookup реализует domain.SessionStore.
func (r *Redis) Lookup(ctx context.Context, userID int64) (domain.Session, bool, error) {
	return r.read(ctx, r.client, userID)
}

// GetOrCreate реализует domain.SessionStore.
// Если ключ успевают создать и удалить между чтением и SETNX, попытка повторяется.
func (r *Redis) GetOrCreate(ctx context.Context, userID int64) (domain.Session, error) {
	for attempt := 0; attempt < updateRetries; attempt++ {
		s, ok, err := r.Lookup(ctx, userID)
		if err != nil {
			return domain.Session{}, err
		}
		if ok {
			return s, nil
		}
		fresh := domain.NewSession(userID, r.newID(), r.now())
		payload, err := json.Marshal(fresh)
		if err != nil {
			return domain.Session{}, fmt.Errorf("marshal session: %w", err)
		}
		start := time.Now()
		created, err := r.client.SetNX(ctx, r.key(userID), payload, r.ttl).Result()
		metrics.ObserveNetworkRequest("redis", "session_create", "sessions", start, err)
		if err != nil {
			return domain.Session{}, fmt.Errorf("create session: %w", err)
		}
		if created {
			return fresh, nil
		}
	}
	return domain.Session{}, ErrConflict
}

// Update реализует domain.SessionStore через WATCH/MULTI.
func (r *Redis) Update(ctx context.Context, userID int64, apply func(*domain.Session) error) (domain.Session, error) {
	key := r.key(userID)
	var (
		result   domain.Session
		applyErr error
	)
	txf := func(tx *redis.Tx) error {
		s, ok, err := r.read(ctx, tx, userID)
		if err != nil {
			return err
		}
		if !ok {
			s = domain.NewSession(userID, r.newID(), r.now())
		}
		if err := apply(&s); err != nil {
			applyErr = err
			return err
		}
		s.UserID = userID
		s.UpdatedAt = r.now()
		payload, err := json.Marshal(s)
		if err != nil {
			return fmt.Errorf("marshal session: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, r.ttl)
			return nil
		})
		if err != nil {
			return err
		}
		result = s
		return nil
	}
	for attempt := 0; attempt < updateRetries; attempt++ {
		applyErr = nil
		start := time.Now()
		err := r.client.Watch(ctx, txf, key)
		if applyErr != nil {
			metrics.ObserveNetworkRequest("redis", "session_update", "sessions", start, nil)
			return domain.Session{}, applyErr
		}
		metrics.ObserveNetworkRequest("redis", "session_update", "sessions", start, err)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return domain.Session{}, fmt.Errorf("update session: %w", err)
	}
	return domain.Session{}, ErrConflict
}

// Clear реализует domain.SessionStore.
func (r *Redis) Clear(ctx context.Context, userID int64) error {
	start := time.Now()
	err := r.client.Del(ctx, r.key(userID)).Err()
	metrics.ObserveNetworkRequest("redis", "session_clear", "sessions", start, err)
	if err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

func (r *Redis) read(ctx context.Context, c redis.Cmdable, userID int64) (domain.Session, bool, error) {
	start := time.Now()
	raw, err := c.Get(ctx, r.key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.ObserveNetworkRequest("redis", "session_get", "sessions", start, nil)
		return domain.Session{}, false, nil
	}
	metrics.ObserveNetworkRequest("redis", "session_get", "sessions", start, err)
	if err != nil {
		return domain.Session{}, false, fmt.Errorf("get session: %w", err)
	}
	var s domain.Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return domain.Session{}, false, fmt.Errorf("decode session: %w", err)
	}
	if !s.Stage.Valid() {
		return domain.Session{}, false, fmt.Errorf("decode session: unknown stage %q", s.Stage)
	}
	return s, true, nil
}
