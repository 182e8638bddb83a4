package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Env                   string `mapstructure:"APP_ENV"`
	LogLevel              string `mapstructure:"LOG_LEVEL"`
	ServerAddr            string `mapstructure:"SERVER_ADDR"`
	MongoURI              string `mapstructure:"MONGO_URI"`
	MongoDB               string `mapstructure:"MONGO_DB"`
	FrontendOrigin        string `mapstructure:"FRONTEND_ORIGIN"`
	RedisURL              string `mapstructure:"REDIS_URL"`
	RedisAddr             string `mapstructure:"REDIS_ADDR"`
	RedisPassword         string `mapstructure:"REDIS_PASSWORD"`
	RedisDB               int    `mapstructure:"REDIS_DB"`
	CacheTTLSeconds       int    `mapstructure:"CACHE_TTL_SECONDS"`
	JWTSecret             string `mapstructure:"JWT_SECRET"`
	TimezoneName          string `mapstructure:"TZ"`
	BookingHorizonMonths  int    `mapstructure:"BOOKING_HORIZON_MONTHS"`
	BookingTimeoutSec     int    `mapstructure:"BOOKING_TIMEOUT_SEC"`
	RateLimitAppointments int    `mapstructure:"RATE_LIMIT_APPOINTMENTS"`
	RateLimitWindowSec    int    `mapstructure:"RATE_LIMIT_WINDOW_SEC"`
	ArchiveSweepSpec      string `mapstructure:"ARCHIVE_SWEEP_SPEC"`
	ArchiveAfterDays      int    `mapstructure:"ARCHIVE_AFTER_DAYS"`
	BrevoAPIKey           string `mapstructure:"BREVO_API_KEY"`
	BrevoSenderEmail      string `mapstructure:"BREVO_SENDER_EMAIL"`
	BrevoSenderName       string `mapstructure:"BREVO_SENDER_NAME"`
	BrevoSandbox          bool   `mapstructure:"BREVO_SANDBOX"`

	Timezone *time.Location `mapstructure:"-"`
}

var defaults = map[string]interface{}{
	"APP_ENV":                 "development",
	"LOG_LEVEL":               "info",
	"SERVER_ADDR":             ":8080",
	"MONGO_URI":               "mongodb://localhost:27017/tapdetail",
	"MONGO_DB":                "",
	"FRONTEND_ORIGIN":         "http://localhost:3000",
	"REDIS_URL":               "",
	"REDIS_ADDR":              "",
	"REDIS_PASSWORD":          "",
	"REDIS_DB":                0,
	"CACHE_TTL_SECONDS":       60,
	"JWT_SECRET":              "",
	"TZ":                      "America/Los_Angeles",
	"BOOKING_HORIZON_MONTHS":  3,
	"BOOKING_TIMEOUT_SEC":     5,
	"RATE_LIMIT_APPOINTMENTS": 10,
	"RATE_LIMIT_WINDOW_SEC":   60,
	"ARCHIVE_SWEEP_SPEC":      "@daily",
	"ARCHIVE_AFTER_DAYS":      30,
	"BREVO_API_KEY":           "",
	"BREVO_SENDER_EMAIL":      "",
	"BREVO_SENDER_NAME":       "Tap Detail",
	"BREVO_SANDBOX":           false,
}

// Load reads the environment, then an optional .env file in the working directory.
func Load() (*Config, error) {
	return load(".env")
}

func load(envFile string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(envFile)
	v.SetConfigType("env")
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
		_ = v.BindEnv(key)
	}

	if err := v.ReadInConfig(); err != nil {
		slog.Debug("config load: no env file", slog.String("path", envFile))
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	loc, err := time.LoadLocation(cfg.TimezoneName)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", cfg.TimezoneName, err)
	}
	cfg.Timezone = loc

	if cfg.MongoDB == "" {
		cfg.MongoDB = mongoDBFromURI(cfg.MongoURI)
	}
	if cfg.MongoDB == "" {
		cfg.MongoDB = "tapdetail"
	}
	if cfg.BookingHorizonMonths <= 0 {
		cfg.BookingHorizonMonths = 3
	}
	if cfg.BookingTimeoutSec <= 0 {
		cfg.BookingTimeoutSec = 5
	}

	if cfg.IsProduction() && cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required in production")
	}

	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func (c *Config) BookingTimeout() time.Duration {
	return time.Duration(c.BookingTimeoutSec) * time.Second
}

func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

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

func mongoDBFromURI(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return ""
	}
	db := strings.Trim(u.Path, "/")
	if db == "" {
		return ""
	}
	// only the first path segment names the database
	if idx := strings.Index(db, "/"); idx >= 0 {
		db = db[:idx]
	}
	return db
}
