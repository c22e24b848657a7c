package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("APP_TIMEZONE", "UTC")
	t.Setenv("REGISTRATION_PORT", "")
	t.Setenv("CHECKIN_PORT", "")
	t.Setenv("CHECKIN_SWEEP_INTERVAL", "")
	t.Setenv("ADMIN_JWT_SECRET", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")
	t.Setenv("TIME_RECORD_API_URL", "")
	t.Setenv("HR_API_TIMEOUT", "")
	t.Setenv("LOG_LEVEL", "")
}

func TestLoad_Defaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5001, cfg.App.RegistrationPort)
	assert.Equal(t, 3001, cfg.App.CheckinPort)
	assert.Equal(t, []string{"*"}, cfg.App.AllowedOrigins)
	assert.Equal(t, 5*time.Second, cfg.HR.SearchTimeout)
	assert.Equal(t, time.Hour, cfg.Cron.SweepInterval)
	assert.Equal(t, "http://10.10.110.7:3000/timerecord", cfg.HR.TimeRecordURL)
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
	assert.Equal(t, time.UTC, cfg.Location())
}

func TestLoad_Overrides(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("CHECKIN_PORT", "8080")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, ,https://b.example.com")
	t.Setenv("TIME_RECORD_API_URL", "http://hr.local/timerecord/")
	t.Setenv("CHECKIN_SWEEP_INTERVAL", "15m")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.App.CheckinPort)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.App.AllowedOrigins)
	assert.Equal(t, "http://hr.local/timerecord", cfg.HR.TimeRecordURL)
	assert.Equal(t, 15*time.Minute, cfg.Cron.SweepInterval)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"port", "CHECKIN_PORT", "abc"},
		{"timeout", "HR_API_TIMEOUT", "-1"},
		{"driver", "STORE_DRIVER", "sqlite"},
		{"timezone", "APP_TIMEZONE", "Mars/Olympus"},
		{"sweep", "CHECKIN_SWEEP_INTERVAL", "0s"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setBaseEnv(t)
			t.Setenv(tt.key, tt.val)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestValidate_PostgresNeedsPassword(t *testing.T) {
	cfg := &Config{
		App:   AppConfig{Timezone: "UTC"},
		Store: StoreConfig{Driver: "postgres"},
		Cron:  CronConfig{SweepInterval: time.Minute},
	}
	assert.Error(t, cfg.Validate())

	cfg.Store.Postgres.Password = "secret"
	assert.NoError(t, cfg.Validate())
}

func TestDatabaseURL(t *testing.T) {
	cfg := &Config{}
	cfg.Store.Postgres = DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", Name: "n", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@db:5432/n?sslmode=disable", cfg.DatabaseURL())
}
