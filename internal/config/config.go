package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// DefaultEnvFile is the local file loaded into the environment at startup.
const DefaultEnvFile = ".env"

// Config is the process configuration, read from the environment after the
// env file has been loaded.
type Config struct {
	DB     DBConfig  `envPrefix:"DB_"`
	Log    LogConfig `envPrefix:"LOG_"`
	HTTP   HTTPConfig
	Notify NotifyConfig `envPrefix:"NOTIFY_"`
	// Password is the database password, read from PASSWORD.
	Password    string `env:"PASSWORD"`
	FindMode    string `env:"FIND_MODE" envDefault:"first"`
	Maintenance string `env:"MAINTENANCE_SCHEDULE" envDefault:"@daily"`
}

// DBConfig holds the connection parameters.
type DBConfig struct {
	Driver  string `env:"DRIVER" envDefault:"sqlite"`
	Name    string `env:"NAME" envDefault:"clients.db"`
	User    string `env:"USER" envDefault:"postgres"`
	Host    string `env:"HOST" envDefault:"localhost"`
	Port    int    `env:"PORT" envDefault:"5432"`
	SSLMode string `env:"SSLMODE" envDefault:"disable"`
}

// LogConfig controls log level and the optional rotating log file.
type LogConfig struct {
	Level      string `env:"LEVEL" envDefault:"info"`
	File       string `env:"FILE"`
	MaxSizeMB  int    `env:"MAX_SIZE_MB" envDefault:"50"`
	MaxBackups int    `env:"MAX_BACKUPS" envDefault:"5"`
	MaxAgeDays int    `env:"MAX_AGE_DAYS" envDefault:"30"`
	Compress   bool   `env:"COMPRESS" envDefault:"true"`
}

// HTTPConfig configures the serve command.
type HTTPConfig struct {
	Addr string `env:"LISTEN_ADDR" envDefault:"127.0.0.1:8080"`
	// TokenHash is a bcrypt hash of the API bearer token; empty disables auth.
	TokenHash string `env:"API_TOKEN_HASH"`
}

// NotifyConfig configures outbound event notifications. Each provider is
// enabled by setting its URL.
type NotifyConfig struct {
	WebhookURL    string `env:"WEBHOOK_URL"`
	WebhookMethod string `env:"WEBHOOK_METHOD" envDefault:"POST"`
	// WebhookBody is a text/template; empty uses the built-in JSON body.
	WebhookBody     string            `env:"WEBHOOK_BODY"`
	WebhookHeaders  map[string]string `env:"WEBHOOK_HEADERS" envKeyValSeparator:":"`
	DiscordURL      string            `env:"DISCORD_URL"`
	DiscordUsername string            `env:"DISCORD_USERNAME" envDefault:"Clientdir"`
	// Events limits delivery to these event types; empty sends all.
	Events  []string      `env:"EVENTS"`
	Timeout time.Duration `env:"TIMEOUT" envDefault:"10s"`
}

// Load reads envFile into the process environment (a missing file is fine,
// existing variables win) and parses the configuration.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	cfg := &Config{}
	if err := ParseEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
