package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("JWT_SECRET_KEY", "jwt-secret")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 8080, cfg.App.Port)
	assert.Equal(t, "UTC", cfg.App.Timezone)
	assert.Equal(t, "en", cfg.App.Locale)
	assert.Equal(t, 2, cfg.Notification.WorkerCount)
	assert.Equal(t, 16, cfg.Jobs.StaleSessionHours)
	assert.True(t, cfg.Database.RunMigrations)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.App.AllowedOrigins)
}

func TestLoad_Overrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("APP_TIMEZONE", "Asia/Jakarta")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("RUN_MIGRATIONS", "false")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.App.AllowedOrigins)
	assert.False(t, cfg.Database.RunMigrations)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())

	jakarta, err := time.LoadLocation("Asia/Jakarta")
	require.NoError(t, err)
	assert.Equal(t, jakarta.String(), cfg.Location().String())
}

func TestLoad_InvalidPort(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("DB_PORT", "not-a-port")

	_, err := Load()
	assert.ErrorContains(t, err, "invalid DB_PORT")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Database:     DatabaseConfig{Password: "x"},
			JWT:          JWTConfig{Secret: "s", AccessExpiration: "1h"},
			App:          AppConfig{Timezone: "UTC"},
			Jobs:         JobsConfig{RunHour: 1, StaleSessionHours: 12},
			Notification: NotificationConfig{WorkerCount: 1, QueueSize: 10},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"missing password", func(c *Config) { c.Database.Password = "" }, "DB_PASSWORD"},
		{"missing secret", func(c *Config) { c.JWT.Secret = "" }, "JWT_SECRET_KEY"},
		{"bad expiration", func(c *Config) { c.JWT.AccessExpiration = "soon" }, "JWT_ACCESS_EXPIRATION_TIME"},
		{"bad timezone", func(c *Config) { c.App.Timezone = "Mars/Olympus" }, "APP_TIMEZONE"},
		{"bad run hour", func(c *Config) { c.Jobs.RunHour = 24 }, "JOBS_RUN_HOUR"},
		{"bad stale hours", func(c *Config) { c.Jobs.StaleSessionHours = 0 }, "STALE_SESSION_HOURS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestDatabaseURL(t *testing.T) {
	c := &Config{Database: DatabaseConfig{User: "u", Password: "p", Host: "h", Port: 5433, Name: "db", SSLMode: "disable"}}
	assert.Equal(t, "postgres://u:p@h:5433/db?sslmode=disable", c.DatabaseURL())
}
