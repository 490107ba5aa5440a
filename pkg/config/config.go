package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Store drivers.
const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// Cascade modes.
const (
	CascadeModeAtomic   = "atomic"
	CascadeModeJoin     = "join"
	CascadeModeDetached = "detached"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Store     StoreConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Log       LogConfig
	Retention RetentionConfig
	Cascade   CascadeConfig
	Retry     RetryConfig
	Lock      LockConfig
	Defaults  DefaultsConfig
}

// StoreConfig selects the document store backend.
type StoreConfig struct {
	Driver string
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
	Issuer string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// RetentionConfig governs the recycle bin reaper.
type RetentionConfig struct {
	Window            time.Duration
	SweepOnRecycleBin bool
}

// CascadeConfig controls how collection transitions reach their items.
type CascadeConfig struct {
	Mode        string
	Concurrency int
	Workers     int
	Retries     int
	RetryDelay  time.Duration
}

// RetryConfig bounds retries of idempotent store operations.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// LockConfig configures the password lock guard.
type LockConfig struct {
	MinPasswordLength int
}

// DefaultsConfig carries field defaults applied on upsert.
type DefaultsConfig struct {
	Color string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Store = StoreConfig{Driver: strings.ToLower(v.GetString("STORE_DRIVER"))}

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret: v.GetString("JWT_SECRET"),
		Issuer: v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Retention = RetentionConfig{
		Window:            parseDuration(v.GetString("RETENTION_WINDOW"), 30*24*time.Hour),
		SweepOnRecycleBin: v.GetBool("SWEEP_ON_RECYCLE_BIN_OPEN"),
	}

	cfg.Cascade = CascadeConfig{
		Mode:        normalizeCascadeMode(v.GetString("CASCADE_MODE")),
		Concurrency: positiveOr(v.GetInt("CASCADE_CONCURRENCY"), 8),
		Workers:     positiveOr(v.GetInt("CASCADE_WORKERS"), 4),
		Retries:     positiveOr(v.GetInt("CASCADE_RETRIES"), 3),
		RetryDelay:  parseDuration(v.GetString("CASCADE_RETRY_DELAY"), 500*time.Millisecond),
	}

	cfg.Retry = RetryConfig{
		MaxAttempts: positiveOr(v.GetInt("RETRY_MAX_ATTEMPTS"), 3),
		BaseDelay:   parseDuration(v.GetString("RETRY_BASE_DELAY"), 100*time.Millisecond),
	}

	cfg.Lock = LockConfig{MinPasswordLength: positiveOr(v.GetInt("LOCK_MIN_PASSWORD_LENGTH"), 4)}

	cfg.Defaults = DefaultsConfig{Color: v.GetString("DEFAULT_COLOR")}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("STORE_DRIVER", StoreDriverPostgres)

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "notevault")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "notevault")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("RETENTION_WINDOW", "720h")
	v.SetDefault("SWEEP_ON_RECYCLE_BIN_OPEN", true)

	v.SetDefault("CASCADE_MODE", CascadeModeAtomic)
	v.SetDefault("CASCADE_CONCURRENCY", 8)
	v.SetDefault("CASCADE_WORKERS", 4)
	v.SetDefault("CASCADE_RETRIES", 3)
	v.SetDefault("CASCADE_RETRY_DELAY", "500ms")

	v.SetDefault("RETRY_MAX_ATTEMPTS", 3)
	v.SetDefault("RETRY_BASE_DELAY", "100ms")

	v.SetDefault("LOCK_MIN_PASSWORD_LENGTH", 4)
	v.SetDefault("DEFAULT_COLOR", "#4ECDC4")
}

func normalizeCascadeMode(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case CascadeModeJoin:
		return CascadeModeJoin
	case CascadeModeDetached:
		return CascadeModeDetached
	default:
		return CascadeModeAtomic
	}
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

func positiveOr(value, fallback int) int {
	if value <= 0 {
		return fallback
	}
	return value
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}
