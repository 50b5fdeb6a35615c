package config

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/court-opinions/engine/pkg/database"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration loaded from environment variables or config files.
type Config struct {
	AppEnv          string        `mapstructure:"APP_ENV" validate:"required,oneof=development staging production test"`
	HTTPAddr        string        `mapstructure:"HTTP_ADDR" validate:"required,hostname_port"`
	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT" validate:"required"`

	LogLevel  string `mapstructure:"LOG_LEVEL" validate:"required,oneof=debug info warn error dpanic panic fatal"`
	LogFormat string `mapstructure:"LOG_FORMAT" validate:"required,oneof=json console"`

	DatabaseDriver string `mapstructure:"DATABASE_DRIVER" validate:"required,oneof=postgres sqlite"`
	DatabaseURL    string `mapstructure:"DATABASE_URL" validate:"required"`

	DBMaxOpenConns    int           `mapstructure:"DB_MAX_OPEN_CONNS" validate:"gte=1"`
	DBMaxIdleConns    int           `mapstructure:"DB_MAX_IDLE_CONNS" validate:"gte=0,ltefield=DBMaxOpenConns"`
	DBConnMaxLifetime time.Duration `mapstructure:"DB_CONN_MAX_LIFETIME"`
	DBConnectRetries  int           `mapstructure:"DB_CONNECT_RETRIES" validate:"gte=0,lte=50"`

	JWTSecret string        `mapstructure:"JWT_SECRET" validate:"required,min=16"`
	TokenTTL  time.Duration `mapstructure:"TOKEN_TTL" validate:"required"`

	UploadDir     string        `mapstructure:"UPLOAD_DIR" validate:"required"`
	MaxUploadMB   int64         `mapstructure:"MAX_UPLOAD_MB" validate:"gte=1,lte=65536"`
	UploadTimeout time.Duration `mapstructure:"UPLOAD_TIMEOUT" validate:"required"`

	// RedisAddr switches project locking from in-process to Redis when set.
	RedisAddr     string        `mapstructure:"REDIS_ADDR" validate:"omitempty,hostname_port"`
	RedisPassword string        `mapstructure:"REDIS_PASSWORD"`
	LockTTL       time.Duration `mapstructure:"LOCK_TTL" validate:"required"`

	RateLimitRPS   float64 `mapstructure:"RATE_LIMIT_RPS" validate:"gt=0"`
	RateLimitBurst int     `mapstructure:"RATE_LIMIT_BURST" validate:"gte=1"`

	// CORSAllowedOrigins is a comma-separated list; "*" allows any origin.
	CORSAllowedOrigins string `mapstructure:"CORS_ALLOWED_ORIGINS" validate:"required"`

	DefaultBudgetLimit float64 `mapstructure:"DEFAULT_BUDGET_LIMIT" validate:"gte=0"`
	DefaultAIModel     string  `mapstructure:"DEFAULT_AI_MODEL" validate:"required,oneof=GPT-5.2 'Sonnet 4.5' 'Gemini 3.1'"`

	GoMaxProcs int `mapstructure:"GOMAXPROCS" validate:"gte=0,lte=4096"`
}

var (
	cfg      *Config
	validate = validator.New(validator.WithRequiredStructEnabled())
)

var keys = []string{
	"APP_ENV",
	"HTTP_ADDR",
	"SHUTDOWN_TIMEOUT",
	"LOG_LEVEL",
	"LOG_FORMAT",
	"DATABASE_DRIVER",
	"DATABASE_URL",
	"DB_MAX_OPEN_CONNS",
	"DB_MAX_IDLE_CONNS",
	"DB_CONN_MAX_LIFETIME",
	"DB_CONNECT_RETRIES",
	"JWT_SECRET",
	"TOKEN_TTL",
	"UPLOAD_DIR",
	"MAX_UPLOAD_MB",
	"UPLOAD_TIMEOUT",
	"REDIS_ADDR",
	"REDIS_PASSWORD",
	"LOCK_TTL",
	"RATE_LIMIT_RPS",
	"RATE_LIMIT_BURST",
	"CORS_ALLOWED_ORIGINS",
	"DEFAULT_BUDGET_LIMIT",
	"DEFAULT_AI_MODEL",
	"GOMAXPROCS",
}

var durations = []string{"SHUTDOWN_TIMEOUT", "TOKEN_TTL", "UPLOAD_TIMEOUT", "LOCK_TTL", "DB_CONN_MAX_LIFETIME"}

// Load initializes configuration using Viper. It loads from .env if present,
// applies defaults, binds env vars, and validates the result.
func Load() (*Config, error) {
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AutomaticEnv()

	v.SetDefault("APP_ENV", "development")
	v.SetDefault("HTTP_ADDR", "0.0.0.0:8080")
	v.SetDefault("SHUTDOWN_TIMEOUT", "15s")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("DATABASE_DRIVER", "postgres")
	v.SetDefault("DB_MAX_OPEN_CONNS", 25)
	v.SetDefault("DB_MAX_IDLE_CONNS", 10)
	v.SetDefault("DB_CONN_MAX_LIFETIME", "30m")
	v.SetDefault("DB_CONNECT_RETRIES", 5)
	v.SetDefault("TOKEN_TTL", "30m")
	v.SetDefault("UPLOAD_DIR", "uploads")
	v.SetDefault("MAX_UPLOAD_MB", 512)
	v.SetDefault("UPLOAD_TIMEOUT", "5m")
	v.SetDefault("LOCK_TTL", "10m")
	v.SetDefault("RATE_LIMIT_RPS", 10)
	v.SetDefault("RATE_LIMIT_BURST", 20)
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("DEFAULT_BUDGET_LIMIT", 100.0)
	v.SetDefault("DEFAULT_AI_MODEL", "GPT-5.2")
	v.SetDefault("GOMAXPROCS", 0)

	// Optional config file
	_ = v.ReadInConfig()

	for _, key := range keys {
		_ = v.BindEnv(key)
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("config unmarshal error: %w", err)
	}

	// Durations may arrive as strings from the environment.
	for _, key := range durations {
		s := v.GetString(key)
		if s == "" {
			continue
		}
		d, err := time.ParseDuration(s)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", key, err)
		}
		switch key {
		case "SHUTDOWN_TIMEOUT":
			c.ShutdownTimeout = d
		case "TOKEN_TTL":
			c.TokenTTL = d
		case "UPLOAD_TIMEOUT":
			c.UploadTimeout = d
		case "LOCK_TTL":
			c.LockTTL = d
		case "DB_CONN_MAX_LIFETIME":
			c.DBConnMaxLifetime = d
		}
	}

	if err := validate.Struct(&c); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if c.GoMaxProcs > 0 {
		runtime.GOMAXPROCS(c.GoMaxProcs)
	}

	cfg = &c
	return cfg, nil
}

// MustLoad loads configuration or exits the process on failure.
func MustLoad() *Config {
	c, err := Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	return c
}

// Get returns the loaded configuration. Panics if not loaded.
func Get() *Config {
	if cfg == nil {
		panic("config not loaded: call config.Load or config.MustLoad first")
	}
	return cfg
}

// MaxUploadBytes is the upload ceiling in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return c.MaxUploadMB << 20
}

// DatabaseSettings returns the connection parameters for database.Open.
func (c *Config) DatabaseSettings() database.Settings {
	return database.Settings{
		Driver: c.DatabaseDriver,
		DSN:    c.DatabaseURL,
		AppEnv: c.AppEnv,
		Pool: database.Pool{
			MaxOpenConns:    c.DBMaxOpenConns,
			MaxIdleConns:    c.DBMaxIdleConns,
			ConnMaxLifetime: c.DBConnMaxLifetime,
			ConnectRetries:  c.DBConnectRetries,
		},
	}
}

// CORSOrigins splits CORSAllowedOrigins, dropping blanks.
func (c *Config) CORSOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSAllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
