package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"

	SessionMemory = "memory"
	SessionRedis  = "redis"
)

// AppConfig описывает конфигурацию бота.
type AppConfig struct {
	AppEnv    string `envconfig:"APP_ENV" default:"dev"`
	DisplayTZ string `envconfig:"DISPLAY_TZ" default:"Europe/Kyiv"`
	Port      int    `envconfig:"PORT" default:"8080"`

	Telegram struct {
		Token       string `envconfig:"BOT_TOKEN"`
		AdminChatID int64  `envconfig:"ADMIN_CHAT_ID"`
		WebhookURL  string `envconfig:"TG_WEBHOOK_URL"`
		PollTimeout int    `envconfig:"TG_POLL_TIMEOUT" default:"60"`
		Debug       bool   `envconfig:"TG_DEBUG" default:"false"`
	} `envconfig:""`

	Reviews struct {
		CollectRating bool `envconfig:"COLLECT_RATING" default:"true"`
		DigestLimit   int  `envconfig:"ADMIN_DIGEST_LIMIT" default:"10"`
	} `envconfig:""`

	Storage struct {
		Driver     string `envconfig:"STORAGE_DRIVER" default:"sqlite"`
		SQLitePath string `envconfig:"SQLITE_PATH" default:"coffee_reviews.db"`
		PGDSN      string `envconfig:"PG_DSN"`
	} `envconfig:""`

	Session struct {
		Backend   string        `envconfig:"SESSION_BACKEND" default:"memory"`
		TTL       time.Duration `envconfig:"SESSION_TTL" default:"0s"`
		KeyPrefix string        `envconfig:"SESSION_KEY_PREFIX" default:"coffee:session:"`
		DedupTTL  time.Duration `envconfig:"UPDATE_DEDUP_TTL" default:"10m"`
	} `envconfig:""`

	Redis struct {
		Addr     string `envconfig:"REDIS_ADDR"`
		Password string `envconfig:"REDIS_PASSWORD"`
		DB       int    `envconfig:"REDIS_DB" default:"0"`
	} `envconfig:""`

	HeartbeatInterval time.Duration `envconfig:"HEARTBEAT_INTERVAL" default:"5m"`
}

// Parse читает конфиг из окружения и проверяет его.
func Parse() (AppConfig, error) {
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return AppConfig{}, fmt.Errorf("чтение окружения: %w", err)
	}
	cfg.Storage.Driver = strings.ToLower(strings.TrimSpace(cfg.Storage.Driver))
	cfg.Session.Backend = strings.ToLower(strings.TrimSpace(cfg.Session.Backend))
	if err := cfg.Validate(); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

// Load загружает конфиг из окружения и завершает процесс при ошибке.
func Load() AppConfig {
	cfg, err := Parse()
	if err != nil {
		log.Fatalf("не удалось загрузить конфиг: %v", err)
	}
	return cfg
}

// Validate проверяет обязательные параметры.
func (c AppConfig) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Telegram.Token) == "" {
		errs = append(errs, errors.New("BOT_TOKEN is required"))
	}
	if c.Telegram.AdminChatID == 0 {
		errs = append(errs, errors.New("ADMIN_CHAT_ID is required"))
	}
	switch c.Storage.Driver {
	case StorageSQLite:
		if strings.TrimSpace(c.Storage.SQLitePath) == "" {
			errs = append(errs, errors.New("SQLITE_PATH is empty"))
		}
	case StoragePostgres:
		if strings.TrimSpace(c.Storage.PGDSN) == "" {
			errs = append(errs, errors.New("PG_DSN is required for postgres storage"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_DRIVER %q", c.Storage.Driver))
	}
	switch c.Session.Backend {
	case SessionMemory:
	case SessionRedis:
		if strings.TrimSpace(c.Redis.Addr) == "" {
			errs = append(errs, errors.New("REDIS_ADDR is required for redis sessions"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown SESSION_BACKEND %q", c.Session.Backend))
	}
	if c.Reviews.DigestLimit <= 0 {
		errs = append(errs, errors.New("ADMIN_DIGEST_LIMIT must be positive"))
	}
	return errors.Join(errs...)
}

// WebhookEnabled сообщает, принимает ли бот апдейты через вебхук.
func (c AppConfig) WebhookEnabled() bool {
	return strings.TrimSpace(c.Telegram.WebhookURL) != ""
}
