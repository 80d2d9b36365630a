package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"
	_ "time/tzdata"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"coffee-review-bot/internal/adapters/bot"
	"coffee-review-bot/internal/adapters/repo"
	"coffee-review-bot/internal/adapters/session"
	"coffee-review-bot/internal/adapters/telegram"
	"coffee-review-bot/internal/domain"
	"coffee-review-bot/internal/infra/cache"
	"coffee-review-bot/internal/infra/config"
	"coffee-review-bot/internal/infra/db"
	"coffee-review-bot/internal/infra/heartbeat"
	httpserver "coffee-review-bot/internal/infra/http"
	"coffee-review-bot/internal/infra/log"
	"coffee-review-bot/internal/infra/metrics"
	"coffee-review-bot/internal/usecase/review"
)

const updateKeyPrefix = "coffee:update:"

type reviewStore interface {
	domain.ReviewRepo
	EnsureSchema(ctx context.Context) error
}

func main() {
	cfg := config.Load()
	logger := log.NewLogger(cfg.AppEnv)
	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	loc, err := time.LoadLocation(cfg.DisplayTZ)
	if err != nil {
		logger.Warn().Err(err).Str("tz", cfg.DisplayTZ).Msg("неизвестная таймзона, используем UTC")
		loc = time.UTC
	}

	store, closeStore := openStore(ctx, cfg, logger)
	defer closeStore()

	sessions, redisClient := openSessions(ctx, cfg, logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		logger.Fatal().Err(err).Msg("не удалось создать бота")
	}
	botAPI.Debug = cfg.Telegram.Debug
	logger.Info().Str("bot", botAPI.Self.UserName).Msg("бот авторизован")

	notifier := telegram.NewAdminNotifier(botAPI, cfg.Telegram.AdminChatID)
	reviews := review.NewService(sessions, store, notifier, logger, review.Config{
		CollectRating: cfg.Reviews.CollectRating,
		DigestLimit:   cfg.Reviews.DigestLimit,
		Location:      loc,
	})
	h := bot.NewHandler(botAPI, logger, reviews)
	if redisClient != nil && cfg.Session.DedupTTL > 0 {
		h.WithDeduplicator(cache.NewRedis(redisClient, updateKeyPrefix), cfg.Session.DedupTTL)
	}

	srv := httpserver.NewServer(logger)
	if cfg.WebhookEnabled() {
		srv.Router.Post("/bot/webhook", func(w http.ResponseWriter, r *http.Request) {
			var update tgbotapi.Update
			if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			h.HandleUpdate(r.Context(), update)
			w.WriteHeader(http.StatusOK)
		})
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Start(":" + strconv.Itoa(cfg.Port))
	})
	g.Go(func() error {
		heartbeat.Run(gctx, logger, cfg.HeartbeatInterval)
		return nil
	})
	g.Go(func() error {
		if cfg.WebhookEnabled() {
			if err := registerWebhook(botAPI, cfg.Telegram.WebhookURL); err != nil {
				return err
			}
			logger.Info().Str("url", cfg.Telegram.WebhookURL).Msg("вебхук зарегистрирован")
			<-gctx.Done()
			return nil
		}
		poll(gctx, botAPI, h, cfg.Telegram.PollTimeout, logger)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("остановка бота")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("бот остановлен с ошибкой")
	}
}

// poll получает апдейты через long polling и обрабатывает их по одному до отмены ctx.
func poll(ctx context.Context, api *tgbotapi.BotAPI, h *bot.Handler, timeout int, logger zerolog.Logger) {
	if _, err := api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		logger.Warn().Err(err).Msg("не удалось снять вебхук перед polling")
	}
	u := tgbotapi.NewUpdate(0)
	u.Timeout = timeout
	updates := api.GetUpdatesChan(u)
	logger.Info().Int("timeout", timeout).Msg("long polling запущен")
	for {
		select {
		case <-ctx.Done():
			api.StopReceivingUpdates()
			return
		case upd, ok := <-updates:
			if !ok {
				return
			}
			h.HandleUpdate(ctx, upd)
		}
	}
}

func registerWebhook(api *tgbotapi.BotAPI, url string) error {
	wh, err := tgbotapi.NewWebhook(url)
	if err != nil {
		return fmt.Errorf("parse TG_WEBHOOK_URL: %w", err)
	}
	if _, err := api.Request(wh); err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}
	return nil
}

func openStore(ctx context.Context, cfg config.AppConfig, logger zerolog.Logger) (reviewStore, func()) {
	var (
		store   reviewStore
		closeFn func()
	)
	switch cfg.Storage.Driver {
	case config.StoragePostgres:
		pool, err := db.Connect(cfg.Storage.PGDSN)
		if err != nil {
			logger.Fatal().Err(err).Msg("не удалось подключиться к БД")
		}
		store, closeFn = repo.NewPostgres(pool), pool.Close
	default:
		sqlDB, err := db.OpenSQLite(cfg.Storage.SQLitePath)
		if err != nil {
			logger.Fatal().Err(err).Str("path", cfg.Storage.SQLitePath).Msg("не удалось открыть SQLite")
		}
		store, closeFn = repo.NewSQLite(sqlDB), func() { _ = sqlDB.Close() }
	}
	if err := store.EnsureSchema(ctx); err != nil {
		closeFn()
		logger.Fatal().Err(err).Msg("не удалось подготовить схему отзывов")
	}
	logger.Info().Str("driver", cfg.Storage.Driver).Msg("хранилище отзывов готово")
	return store, closeFn
}

// openSessions возвращает хранилище сессий и клиент Redis, если сессии хранятся в нём.
func openSessions(ctx context.Context, cfg config.AppConfig, logger zerolog.Logger) (domain.SessionStore, *redis.Client) {
	if cfg.Session.Backend != config.SessionRedis {
		return session.NewMemory(), nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Fatal().Err(err).Str("addr", cfg.Redis.Addr).Msg("не удалось подключиться к Redis")
	}
	logger.Info().Str("addr", cfg.Redis.Addr).Dur("ttl", cfg.Session.TTL).Msg("сессии хранятся в Redis")
	return session.NewRedis(client, cfg.Session.KeyPrefix, cfg.Session.TTL), client
}
