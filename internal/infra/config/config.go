package config

import (
	"log"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// AppConfig описывает конфигурацию сервисов.
type AppConfig struct {
	AppEnv      string `envconfig:"APP_ENV" default:"dev"`
	Port        int    `envconfig:"PORT" default:"8080"`
	MetricsAddr string `envconfig:"METRICS_ADDR" default:":9090"`
	AdminToken  string `envconfig:"ADMIN_TOKEN"`

	Discord struct {
		Token    string   `envconfig:"DISCORD_BOT_TOKEN"`
		AppID    string   `envconfig:"DISCORD_APP_ID"`
		GuildIDs []string `envconfig:"DISCORD_GUILD_IDS"`
	} `envconfig:""`

	Telegram struct {
		Token      string `envconfig:"TG_BOT_TOKEN"`
		WebhookURL string `envconfig:"TG_WEBHOOK_URL"`
	} `envconfig:""`

	Storage struct {
		Driver     string `envconfig:"STORAGE_DRIVER" default:"postgres"`
		PGDSN      string `envconfig:"PG_DSN"`
		SQLitePath string `envconfig:"SQLITE_PATH" default:"./data/suggestions.db"`
	} `envconfig:""`

	RedisAddr string `envconfig:"REDIS_ADDR"`
	RabbitURL string `envconfig:"RABBITMQ_URL"`

	Cache struct {
		ChannelTTL time.Duration `envconfig:"CHANNEL_CACHE_TTL" default:"5m"`
		IngestTTL  time.Duration `envconfig:"INGEST_DEDUP_TTL" default:"10m"`
	} `envconfig:""`

	Notify struct {
		Backend  string `envconfig:"NOTIFY_BACKEND" default:"direct"`
		QueueKey string `envconfig:"NOTIFY_QUEUE_KEY" default:"suggestion_notifications"`
	} `envconfig:""`

	ReasonPromptTTL time.Duration `envconfig:"REASON_PROMPT_TTL" default:"15m"`
}

// Load загружает конфиг из окружения.
func Load() AppConfig {
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("не удалось загрузить конфиг: %v", err)
	}
	return cfg
}
