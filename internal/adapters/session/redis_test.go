package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"coffee-review-bot/internal/domain"
)

func newTestRedis(t *testing.T, ttl time.Duration) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedis(client, "test:session:", ttl), mr
}

func TestRedisRoundTrip(t *testing.T) {
	store, mr := newTestRedis(t, 0)
	ctx := context.Background()

	if _, ok, err := store.Lookup(ctx, 42); err != nil || ok {
		t.Fatalf("ожидали отсутствие сессии, ok=%v err=%v", ok, err)
	}

	created, err := store.GetOrCreate(ctx, 42)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !mr.Exists("test:session:42") {
		t.Fatal("ожидали ключ сессии в redis")
	}

	updated, err := store.Update(ctx, 42, func(s *domain.Session) error {
		s.ChooseLocation("location1", true)
		s.ChooseRating(4)
		return nil
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.FlowID != created.FlowID {
		t.Fatalf("flow id должен сохраниться: %s != %s", updated.FlowID, created.FlowID)
	}

	got, ok, err := store.Lookup(ctx, 42)
	if err != nil || !ok {
		t.Fatalf("lookup: ok=%v err=%v", ok, err)
	}
	if got.Stage != domain.StageAwaitingComment || got.LocationID != "location1" || got.Rating == nil || *got.Rating != 4 {
		t.Fatalf("unexpected session: %+v", got)
	}

	if err := store.Clear(ctx, 42); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if mr.Exists("test:session:42") {
		t.Fatal("ключ должен быть удалён")
	}
}

func TestRedisUpdateCreatesMissingSession(t *testing.T) {
	store, _ := newTestRedis(t, 0)
	s, err := store.Update(context.Background(), 5, func(s *domain.Session) error {
		s.ChooseLocation("location2", false)
		return nil
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if s.UserID != 5 || s.FlowID == "" || s.Stage != domain.StageAwaitingComment {
		t.Fatalf("unexpected session: %+v", s)
	}
}

func TestRedisTTL(t *testing.T) {
	store, mr := newTestRedis(t, time.Minute)
	ctx := context.Background()
	if _, err := store.GetOrCreate(ctx, 1); err != nil {
		t.Fatalf("create: %v", err)
	}
	mr.FastForward(2 * time.Minute)
	if _, ok, _ := store.Lookup(ctx, 1); ok {
		t.Fatal("сессия должна истечь")
	}
}

func TestRedisCorruptedValue(t *testing.T) {
	store, mr := newTestRedis(t, 0)
	if err := mr.Set("test:session:3", "{not json"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, _, err := store.Lookup(context.Background(), 3); err == nil {
		t.Fatal("ожидали ошибку декодирования")
	}
}

func TestRedisUnavailable(t *testing.T) {
	store, mr := newTestRedis(t, 0)
	mr.Close()
	if _, err := store.GetOrCreate(context.Background(), 1); err == nil {
		t.Fatal("ожидали ошибку при недоступном redis")
	}
}

func TestRedisUpdateErrorKeepsSession(t *testing.T) {
	store, mr := newTestRedis(t, 0)
	ctx := context.Background()
	before, err := store.GetOrCreate(ctx, 8)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	raw, _ := mr.Get("test:session:8")

	_, err = store.Update(ctx, 8, func(s *domain.Session) error {
		s.ChooseLocation("location1", true)
		return errWrongStage
	})
	if !errors.Is(err, errWrongStage) {
		t.Fatalf("ожидали ошибку apply, получили %v", err)
	}
	if got, _ := mr.Get("test:session:8"); got != raw {
		t.Fatalf("значение в redis не должно меняться: %s -> %s", raw, got)
	}
	after, _, _ := store.Lookup(ctx, 8)
	if after.Stage != before.Stage || after.LocationID != "" {
		t.Fatalf("отклонённое изменение не должно сохраняться: %+v", after)
	}
}

func TestRedisUpdateErrorDoesNotCreateSession(t *testing.T) {
	store, mr := newTestRedis(t, 0)
	_, err := store.Update(context.Background(), 9, func(*domain.Session) error { return errWrongStage })
	if !errors.Is(err, errWrongStage) {
		t.Fatalf("ожидали ошибку apply, получили %v", err)
	}
	if mr.Exists("test:session:9") {
		t.Fatal("отклонённое изменение не должно создавать сессию")
	}
}

// racingCreate создаёт и сразу удаляет ключ вокруг SETNX, как конкурентный /start с последующей очисткой.
type racingCreate struct {
	mr    *miniredis.Miniredis
	key   string
	times int
}

func (h *racingCreate) DialHook(next redis.DialHook) redis.DialHook { return next }

func (h *racingCreate) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func (h *racingCreate) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		if cmd.Name() != "setnx" || h.times == 0 {
			return next(ctx, cmd)
		}
		h.times--
		_ = h.mr.Set(h.key, "{}")
		err := next(ctx, cmd)
		h.mr.Del(h.key)
		return err
	}
}

func TestRedisGetOrCreateRetriesLostRace(t *testing.T) {
	store, mr := newTestRedis(t, 0)
	store.client.AddHook(&racingCreate{mr: mr, key: "test:session:6", times: 1})

	s, err := store.GetOrCreate(context.Background(), 6)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if s.UserID != 6 || s.FlowID == "" || s.Stage != domain.StageAwaitingLocation {
		t.Fatalf("ожидали новую сессию, получили %+v", s)
	}
	if !mr.Exists("test:session:6") {
		t.Fatal("ожидали ключ сессии в redis")
	}
}

func TestRedisGetOrCreateGivesUpOnConstantRace(t *testing.T) {
	store, mr := newTestRedis(t, 0)
	store.client.AddHook(&racingCreate{mr: mr, key: "test:session:6", times: updateRetries})

	s, err := store.GetOrCreate(context.Background(), 6)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("ожидали ErrConflict, получили %v (сессия %+v)", err, s)
	}
}
