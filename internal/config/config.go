package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

type Config struct {
	App        AppConfig
	Store      StoreConfig
	Storage    StorageConfig
	CheckinLog CheckinLogConfig
	HR         HRConfig
	LINE       LINEConfig
	Watermark  WatermarkConfig
	Admin      AdminConfig
	Cron       CronConfig
}

// AppConfig holds application configuration
type AppConfig struct {
	RegistrationPort int
	CheckinPort      int
	Env              string
	LogLevel         string
	Timezone         string
	PublicBaseURL    string
	StaticDir        string
	AllowedOrigins   []string
}

// StoreConfig selects and configures the employee directory backend.
type StoreConfig struct {
	Driver   string // postgres, mongodb, memory
	Postgres DatabaseConfig
	MongoURI string
	MongoDB  string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

type StorageConfig struct {
	Type     string
	BasePath string
	BaseURL  string
}

type CheckinLogConfig struct {
	File string
}

type HRConfig struct {
	VerificationEnabled bool
	SearchURL           string
	SearchTimeout       time.Duration
	TimeRecordURL       string
	TimeRecordTimeout   time.Duration
}

type LINEConfig struct {
	ChannelAccessToken string
	ChannelSecret      string
	APIBaseURL         string
	Timeout            time.Duration
}

type WatermarkConfig struct {
	FontPaths []string
}

// AdminConfig guards the registration management API. An empty secret
// leaves those routes open.
type AdminConfig struct {
	JWTSecret string
	TokenTTL  string
}

type CronConfig struct {
	SweepInterval time.Duration
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	config := &Config{}

	registrationPort, err := strconv.Atoi(getEnv("REGISTRATION_PORT", "5001"))
	if err != nil {
		return nil, fmt.Errorf("invalid REGISTRATION_PORT: %w", err)
	}
	checkinPort, err := strconv.Atoi(getEnv("CHECKIN_PORT", "3001"))
	if err != nil {
		return nil, fmt.Errorf("invalid CHECKIN_PORT: %w", err)
	}

	config.App = AppConfig{
		RegistrationPort: registrationPort,
		CheckinPort:      checkinPort,
		Env:              getEnv("APP_ENV", "development"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		Timezone:         getEnv("APP_TIMEZONE", "Asia/Bangkok"),
		PublicBaseURL:    strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:3001"), "/"),
		StaticDir:        getEnv("STATIC_DIR", "./web"),
		AllowedOrigins:   getEnvSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
	}

	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	config.Store = StoreConfig{
		Driver: strings.ToLower(getEnv("STORE_DRIVER", "mongodb")),
		Postgres: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     dbPort,
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Name:     getEnv("DB_NAME", "linebot_register"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		MongoURI: getEnv("MONGO_URI", getEnv("MONGODB_URI", "")),
		MongoDB:  getEnv("MONGO_DB", "linebot_register"),
	}

	config.Storage = StorageConfig{
		Type:     getEnv("STORAGE_TYPE", "local"),
		BasePath: getEnv("UPLOAD_DIR", "uploads"),
		BaseURL:  config.App.PublicBaseURL + "/uploads",
	}

	config.CheckinLog = CheckinLogConfig{
		File: getEnv("CHECKIN_DATA_FILE", "checkin_records.json"),
	}

	hrTimeout, err := getEnvSeconds("HR_API_TIMEOUT", 5)
	if err != nil {
		return nil, err
	}
	timeRecordTimeout, err := getEnvSeconds("TIME_RECORD_API_TIMEOUT", 10)
	if err != nil {
		return nil, err
	}

	config.HR = HRConfig{
		VerificationEnabled: strings.EqualFold(getEnv("ENABLE_HR_VERIFICATION", "false"), "true"),
		SearchURL:           getEnv("HR_API_URL", "http://10.10.110.7:3000/employee/search"),
		SearchTimeout:       hrTimeout,
		TimeRecordURL:       strings.TrimRight(getEnv("TIME_RECORD_API_URL", "http://10.10.110.7:3000/timerecord"), "/"),
		TimeRecordTimeout:   timeRecordTimeout,
	}

	lineTimeout, err := getEnvSeconds("LINE_API_TIMEOUT", 10)
	if err != nil {
		return nil, err
	}

	config.LINE = LINEConfig{
		ChannelAccessToken: getEnv("LINE_CHANNEL_ACCESS_TOKEN", ""),
		ChannelSecret:      getEnv("LINE_CHANNEL_SECRET", ""),
		APIBaseURL:         strings.TrimRight(getEnv("LINE_API_BASE_URL", "https://api.line.me"), "/"),
		Timeout:            lineTimeout,
	}

	config.Watermark = WatermarkConfig{
		FontPaths: getEnvSlice("WATERMARK_FONT_PATHS", []string{
			"/usr/share/fonts/truetype/dejavu/DejaVuSans-Bold.ttf",
			"/System/Library/Fonts/Supplemental/Arial.ttf",
			"/usr/share/fonts/truetype/liberation/LiberationSans-Bold.ttf",
		}),
	}

	config.Admin = AdminConfig{
		JWTSecret: getEnv("ADMIN_JWT_SECRET", ""),
		TokenTTL:  getEnv("ADMIN_TOKEN_TTL", "12h"),
	}

	sweepInterval, err := time.ParseDuration(getEnv("CHECKIN_SWEEP_INTERVAL", "1h"))
	if err != nil {
		return nil, fmt.Errorf("invalid CHECKIN_SWEEP_INTERVAL: %w", err)
	}
	config.Cron = CronConfig{SweepInterval: sweepInterval}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	if config.LINE.ChannelAccessToken == "" {
		slog.Warn("LINE_CHANNEL_ACCESS_TOKEN is not set, LINE messages will not be sent")
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "postgres":
		if c.Store.Postgres.Password == "" {
			return fmt.Errorf("DB_PASSWORD is required")
		}
	case "mongodb":
		if c.Store.MongoURI == "" {
			return fmt.Errorf("MONGO_URI is required")
		}
	case "memory":
	default:
		return fmt.Errorf("unsupported STORE_DRIVER: %s", c.Store.Driver)
	}

	if _, err := time.LoadLocation(c.App.Timezone); err != nil {
		return fmt.Errorf("invalid APP_TIMEZONE: %w", err)
	}
	if c.Admin.JWTSecret != "" {
		if _, err := time.ParseDuration(c.Admin.TokenTTL); err != nil {
			return fmt.Errorf("invalid ADMIN_TOKEN_TTL: %w", err)
		}
	}
	if c.Cron.SweepInterval <= 0 {
		return fmt.Errorf("CHECKIN_SWEEP_INTERVAL must be positive")
	}
	return nil
}

// Location returns the configured local time zone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return time.FixedZone("ICT", 7*60*60)
	}
	return loc
}

// SlogLevel parses LOG_LEVEL, falling back to info.
func (c *Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.App.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Store.Postgres.User,
		c.Store.Postgres.Password,
		c.Store.Postgres.Host,
		c.Store.Postgres.Port,
		c.Store.Postgres.Name,
		c.Store.Postgres.SSLMode,
	)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvSlice(env string, fallback []string) []string {
	value := getEnv(env, "")
	if value == "" {
		return fallback
	}
	var result []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}

func getEnvSeconds(key string, fallback int) (time.Duration, error) {
	seconds, err := strconv.Atoi(getEnv(key, strconv.Itoa(fallback)))
	if err != nil || seconds <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive number of seconds", key)
	}
	return time.Duration(seconds) * time.Second, nil
}
