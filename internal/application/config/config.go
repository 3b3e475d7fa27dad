package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
)

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

type Config struct {
	Debug      bool   `env:"DEBUG" envDefault:"false"`
	Port       string `env:"PORT" envDefault:"3000"`
	MetricPort string `env:"METRIC_PORT" envDefault:"9090"`
	Domain     string `env:"DOMAIN" envDefault:"http://localhost:3000"`
	JWTSecret  string `env:"JWT_SECRET,required,notEmpty"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`
	Storage    string `env:"STORAGE" envDefault:"postgres"`

	Postgres PostgresConfig
	Nats     NatsConfig
	Chat     ChatConfig
}

type PostgresConfig struct {
	URL string `env:"POSTGRES_URL"`

	Host     string `env:"POSTGRES_HOST" envDefault:"localhost"`
	Port     int    `env:"POSTGRES_PORT" envDefault:"5432"`
	User     string `env:"POSTGRES_USER" envDefault:"postgres"`
	Password string `env:"POSTGRES_PASSWORD" envDefault:"postgres"`
	Name     string `env:"POSTGRES_NAME" envDefault:"roomchat"`
	SSL      string `env:"POSTGRES_SSL" envDefault:"disable"`
}

func (p *PostgresConfig) DSN() string {
	if p.URL != "" {
		return p.URL
	}

	return fmt.Sprintf("postgresql://%s:%s@%s:%d/%s?sslmode=%s",
		p.User,
		p.Password,
		p.Host,
		p.Port,
		p.Name,
		p.SSL,
	)
}

// NatsConfig - если URL пуст, fan-out работает только внутри процесса
type NatsConfig struct {
	URL           string `env:"NATS_URL"`
	SubjectPrefix string `env:"NATS_SUBJECT_PREFIX" envDefault:"roomchat"`
}

type ChatConfig struct {
	MaxContentLength int `env:"CHAT_MAX_CONTENT_LENGTH" envDefault:"2000"`
	ChannelPageSize  int `env:"CHAT_CHANNEL_PAGE_SIZE" envDefault:"20"`
	MessagePageSize  int `env:"CHAT_MESSAGE_PAGE_SIZE" envDefault:"50"`
	MaxPageSize      int `env:"CHAT_MAX_PAGE_SIZE" envDefault:"100"`
	SubscriberBuffer int `env:"CHAT_SUBSCRIBER_BUFFER" envDefault:"64"`
}

func New() (*Config, error) {
	c, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	switch c.Storage {
	case StoragePostgres, StorageMemory:
	default:
		return nil, fmt.Errorf("unknown storage %q", c.Storage)
	}

	if c.Chat.MaxContentLength <= 0 {
		return nil, fmt.Errorf("CHAT_MAX_CONTENT_LENGTH must be positive, got %d", c.Chat.MaxContentLength)
	}

	if c.Chat.SubscriberBuffer <= 0 {
		return nil, fmt.Errorf("CHAT_SUBSCRIBER_BUFFER must be positive, got %d", c.Chat.SubscriberBuffer)
	}

	return &c, nil
}

// SlogLevel переводит LOG_LEVEL в slog.Level, неизвестные значения дают Info
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
