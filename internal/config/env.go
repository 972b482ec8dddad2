package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Env is the process configuration read from the environment (.env in dev).
type Env struct {
	DBUser     string `env:"DB_USER"`
	DBPassword string `env:"DB_PASSWORD"`
	DBHost     string `env:"DB_HOST" envDefault:"localhost"`
	DBPort     string `env:"DB_PORT" envDefault:"5432"`
	DBName     string `env:"DB_NAME"`
	DBSSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`

	BotToken         string  `env:"TELEGRAM_BOT_TOKEN"`
	BotWebhookSecret string  `env:"TELEGRAM_WEBHOOK_SECRET"`
	BotAPIURL        string  `env:"TELEGRAM_API_URL" envDefault:"https://api.telegram.org"`
	BotOwnerUserID   string  `env:"BOT_OWNER_USER_ID"`
	BotAllowedChats  []int64 `env:"BOT_ALLOWED_CHATS" envSeparator:","`
	NotifyChatID     int64   `env:"NOTIFY_CHAT_ID"`

	SnapshotOwners []string `env:"SNAPSHOT_OWNER_IDS" envSeparator:","`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv() (Env, error) {
	var cfg Env
	if err := env.Parse(&cfg); err != nil {
		return Env{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// HasDatabase reports whether enough DB settings are present to connect.
func (e Env) HasDatabase() bool {
	return e.DBUser != "" && e.DBHost != "" && e.DBPort != "" && e.DBName != ""
}

// PostgresURL is the DSN for pgxpool.
func (e Env) PostgresURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		e.DBUser, e.DBPassword, e.DBHost, e.DBPort, e.DBName, e.DBSSLMode)
}

// PostgresConnString is the key/value form used by lib/pq.
func (e Env) PostgresConnString() string {
	return fmt.Sprintf(
		"user=%s password=%s host=%s port=%s dbname=%s sslmode=%s",
		e.DBUser, e.DBPassword, e.DBHost, e.DBPort, e.DBName, e.DBSSLMode,
	)
}
