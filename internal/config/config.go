package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Discord  DiscordConfig
	Auth     AuthConfig
	Roles    RolesConfig
	Log      LogConfig

	AllowInsecureDefaults bool `env:"ALLOW_INSECURE_DEFAULTS" envDefault:"false"`
}

type ServerConfig struct {
	Port           string        `env:"PORT" envDefault:":8080"`
	BaseURL        string        `env:"APP_URL" envDefault:"http://localhost:8080"`
	ReadTimeout    time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout   time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"15s"`
	IdleTimeout    time.Duration `env:"SERVER_IDLE_TIMEOUT" envDefault:"60s"`
	AllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000,http://localhost:8080"`
}

type DatabaseConfig struct {
	Driver       string        `env:"DB_DRIVER" envDefault:"sqlite"`
	URL          string        `env:"DATABASE_URL"`
	Host         string        `env:"DB_HOST" envDefault:"localhost"`
	Port         string        `env:"DB_PORT" envDefault:"3306"`
	Username     string        `env:"DB_USERNAME" envDefault:"calendar"`
	Password     string        `env:"DB_PASSWORD" envDefault:"calendar"`
	Name         string        `env:"DB_NAME" envDefault:"calendar"`
	Path         string        `env:"DB_PATH" envDefault:"calendar.db"`
	MaxOpenConns int           `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns int           `env:"DB_MAX_IDLE_CONNS" envDefault:"25"`
	MaxLifetime  time.Duration `env:"DB_MAX_LIFETIME" envDefault:"5m"`
	AutoMigrate  bool          `env:"DB_AUTO_MIGRATE" envDefault:"true"`
}

type RedisConfig struct {
	Enabled bool   `env:"REDIS_ENABLED" envDefault:"true"`
	Addr    string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
}

type KafkaConfig struct {
	Enabled           bool     `env:"KAFKA_ENABLED" envDefault:"false"`
	Brokers           []string `env:"KAFKA_BROKERS" envSeparator:"," envDefault:"localhost:9092"`
	EventCreatedTopic string   `env:"KAFKA_TOPIC_EVENT_CREATED" envDefault:"calendar.event.created"`
}

type DiscordConfig struct {
	ClientID     string `env:"DISCORD_ID"`
	ClientSecret string `env:"DISCORD_SECRET"`
	GuildID      string `env:"DISCORD_GUILD_ID"`
	BotToken     string `env:"DISCORD_BOT_TOKEN"`
	APIBase      string `env:"DISCORD_API_BASE" envDefault:"https://discord.com/api/v10"`
}

type AuthConfig struct {
	Secret            string        `env:"AUTH_SECRET"`
	SessionTTL        time.Duration `env:"AUTH_SESSION_TTL" envDefault:"720h"`
	StateTTL          time.Duration `env:"AUTH_STATE_TTL" envDefault:"10m"`
	CookieName        string        `env:"AUTH_COOKIE_NAME" envDefault:"calendar_session"`
	CookieSecure      bool          `env:"AUTH_COOKIE_SECURE" envDefault:"false"`
	OIDCIssuer        string        `env:"OIDC_ISSUER"`
	OIDCClientID      string        `env:"OIDC_CLIENT_ID"`
	EventCreatePolicy string        `env:"EVENT_CREATE_POLICY" envDefault:"all"`
}

type RolesConfig struct {
	ConfigPath string `env:"ROLES_CONFIG_PATH"`
}

type LogConfig struct {
	Level   string `env:"LOG_LEVEL" envDefault:"INFO"`
	Dir     string `env:"LOG_DIR" envDefault:"logs"`
	Service string `env:"LOG_SERVICE" envDefault:"calendar-service"`
}

// Load reads the given .env files (missing ones are ignored) and then the
// process environment. It reports whether any .env file was loaded.
func Load(files ...string) (*Config, bool, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	loaded := false
	for _, f := range files {
		if err := godotenv.Load(f); err == nil {
			loaded = true
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, loaded, fmt.Errorf("parse config: %w", err)
	}
	return cfg, loaded, nil
}

// Validate rejects configuration that must not reach production.
// ALLOW_INSECURE_DEFAULTS=true skips the credential checks for local dev.
func (c *Config) Validate() error {
	var errs []error

	switch c.Database.Driver {
	case "sqlite", "mysql", "postgres":
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER %q is not one of sqlite, mysql, postgres", c.Database.Driver))
	}

	switch c.Auth.EventCreatePolicy {
	case "all", "any":
	default:
		errs = append(errs, fmt.Errorf("EVENT_CREATE_POLICY %q is not one of all, any", c.Auth.EventCreatePolicy))
	}

	if !c.AllowInsecureDefaults {
		if c.Discord.ClientID == "" {
			errs = append(errs, errors.New("DISCORD_ID is required"))
		}
		if c.Discord.ClientSecret == "" {
			errs = append(errs, errors.New("DISCORD_SECRET is required"))
		}
		if c.Discord.GuildID == "" {
			errs = append(errs, errors.New("DISCORD_GUILD_ID is required"))
		}
		if c.Discord.BotToken == "" {
			errs = append(errs, errors.New("DISCORD_BOT_TOKEN is required"))
		}
		if c.Auth.Secret == "" {
			errs = append(errs, errors.New("AUTH_SECRET is required"))
		} else if len(c.Auth.Secret) < 32 {
			errs = append(errs, fmt.Errorf("AUTH_SECRET is too short (%d chars); minimum 32 characters required", len(c.Auth.Secret)))
		}
	}

	return errors.Join(errs...)
}

// SessionSecret returns the signing secret, falling back to a fixed dev value
// when insecure defaults are allowed and none is set.
func (c *Config) SessionSecret() string {
	if c.Auth.Secret == "" && c.AllowInsecureDefaults {
		return "insecure-development-secret-change-me"
	}
	return c.Auth.Secret
}

// DSN returns the driver-specific connection string, preferring DATABASE_URL.
func (c *DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	switch c.Driver {
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true&loc=UTC&charset=utf8mb4&multiStatements=true",
			c.Username, c.Password, c.Host, c.Port, c.Name)
	case "postgres":
		return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
			c.Username, c.Password, c.Host, c.Port, c.Name)
	default:
		return fmt.Sprintf("file:%s?cache=shared", c.Path)
	}
}
