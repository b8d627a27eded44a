package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Database: DatabaseConfig{Driver: "sqlite"},
		Discord:  DiscordConfig{ClientID: "id", ClientSecret: "secret", GuildID: "guild", BotToken: "bot"},
		Auth: AuthConfig{
			Secret:            "0123456789abcdef0123456789abcdef",
			EventCreatePolicy: "all",
		},
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, loaded, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.False(t, loaded)

	assert.Equal(t, ":8080", cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "all", cfg.Auth.EventCreatePolicy)
	assert.Equal(t, 720*time.Hour, cfg.Auth.SessionTTL)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "calendar.event.created", cfg.Kafka.EventCreatedTopic)
}

func TestLoadReadsDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "DB_DRIVER=postgres\nKAFKA_BROKERS=k1:9092,k2:9092\nEVENT_CREATE_POLICY=any\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("DB_DRIVER")
		os.Unsetenv("KAFKA_BROKERS")
		os.Unsetenv("EVENT_CREATE_POLICY")
	})

	cfg, loaded, err := Load(path)
	require.NoError(t, err)
	assert.True(t, loaded)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "any", cfg.Auth.EventCreatePolicy)
}

func TestValidate(t *testing.T) {
	require.NoError(t, validConfig().Validate())

	cfg := validConfig()
	cfg.Discord.ClientID = ""
	assert.ErrorContains(t, cfg.Validate(), "DISCORD_ID")

	cfg = validConfig()
	cfg.Discord.GuildID = ""
	cfg.Discord.BotToken = ""
	err := cfg.Validate()
	assert.ErrorContains(t, err, "DISCORD_GUILD_ID")
	assert.ErrorContains(t, err, "DISCORD_BOT_TOKEN")

	cfg = validConfig()
	cfg.Auth.Secret = "short"
	assert.ErrorContains(t, cfg.Validate(), "too short")

	cfg = validConfig()
	cfg.Database.Driver = "oracle"
	assert.ErrorContains(t, cfg.Validate(), "DB_DRIVER")

	cfg = validConfig()
	cfg.Auth.EventCreatePolicy = "some"
	assert.ErrorContains(t, cfg.Validate(), "EVENT_CREATE_POLICY")
}

func TestValidateInsecureDefaults(t *testing.T) {
	cfg := &Config{
		AllowInsecureDefaults: true,
		Database:              DatabaseConfig{Driver: "sqlite"},
		Auth:                  AuthConfig{EventCreatePolicy: "all"},
	}
	require.NoError(t, cfg.Validate())
	assert.NotEmpty(t, cfg.SessionSecret())

	cfg.Database.Driver = "oracle"
	assert.Error(t, cfg.Validate())
}

func TestDSN(t *testing.T) {
	db := DatabaseConfig{Driver: "mysql", Username: "u", Password: "p", Host: "h", Port: "3306", Name: "cal"}
	assert.Equal(t, "u:p@tcp(h:3306)/cal?parseTime=true&loc=UTC&charset=utf8mb4&multiStatements=true", db.DSN())

	db.Driver = "postgres"
	db.Port = "5432"
	assert.Equal(t, "postgres://u:p@h:5432/cal?sslmode=disable", db.DSN())

	db.Driver = "sqlite"
	db.Path = "dev.db"
	assert.Equal(t, "file:dev.db?cache=shared", db.DSN())

	db.URL = "postgres://override"
	assert.Equal(t, "postgres://override", db.DSN())
}
