package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	AppPort string

	DBDriver string // mysql, postgres or memory
	DSN      string

	JWTSecret string
	TokenTTL  time.Duration

	Storage StorageConfig
	Redis   RedisConfig
	Kafka   KafkaConfig
	Log     LogConfig

	AllowOrgDelete bool

	SeedAdminEmail    string
	SeedAdminPassword string
}

type StorageConfig struct {
	Backend string // s3, disk or memory
	Dir     string
	BaseURL string

	S3Endpoint  string
	S3Region    string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type LogConfig struct {
	Level  string
	Format string
	File   string
}

// ConsoleConfig is what cmd/console needs to reach the API.
type ConsoleConfig struct {
	BaseURL   string
	Token     string
	StateFile string
	Debounce  time.Duration
	PerPage   int
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("DB_DRIVER", "mysql")
	v.SetDefault("TOKEN_TTL", "12h")
	v.SetDefault("STORAGE_BACKEND", "disk")
	v.SetDefault("STORAGE_DIR", "./uploads")
	v.SetDefault("S3_REGION", "us-east-1")
	v.SetDefault("REDIS_TTL", "5m")
	v.SetDefault("KAFKA_TOPIC", "launchpad.stage-changed")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("ALLOW_ORG_DELETE", false)

	v.SetDefault("CONSOLE_BASE_URL", "http://localhost:8080")
	v.SetDefault("CONSOLE_STATE_FILE", ".launchpad-console.json")
	v.SetDefault("CONSOLE_DEBOUNCE", "1300ms")
	v.SetDefault("CONSOLE_PER_PAGE", 10)
}

func newViper() *viper.Viper {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		slog.Debug(".env file not found, using system environment variables")
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	return v
}

// Load reads the API server configuration from the environment.
func Load() (Config, error) {
	v := newViper()

	cfg := Config{
		AppPort:   v.GetString("APP_PORT"),
		DBDriver:  strings.ToLower(v.GetString("DB_DRIVER")),
		DSN:       v.GetString("DB_DSN"),
		JWTSecret: v.GetString("JWT_SECRET"),
		TokenTTL:  v.GetDuration("TOKEN_TTL"),
		Storage: StorageConfig{
			Backend:     strings.ToLower(v.GetString("STORAGE_BACKEND")),
			Dir:         v.GetString("STORAGE_DIR"),
			BaseURL:     v.GetString("STORAGE_BASE_URL"),
			S3Endpoint:  v.GetString("S3_ENDPOINT"),
			S3Region:    v.GetString("S3_REGION"),
			S3Bucket:    v.GetString("S3_BUCKET"),
			S3AccessKey: v.GetString("S3_ACCESS_KEY"),
			S3SecretKey: v.GetString("S3_SECRET_KEY"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
			TTL:      v.GetDuration("REDIS_TTL"),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(v.GetString("KAFKA_BROKERS")),
			Topic:   v.GetString("KAFKA_TOPIC"),
		},
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
			File:   v.GetString("LOG_FILE"),
		},
		AllowOrgDelete:    v.GetBool("ALLOW_ORG_DELETE"),
		SeedAdminEmail:    v.GetString("SEED_ADMIN_EMAIL"),
		SeedAdminPassword: v.GetString("SEED_ADMIN_PASSWORD"),
	}

	// fallback: the older deployments only set MYSQL_DSN
	if cfg.DSN == "" {
		cfg.DSN = v.GetString("MYSQL_DSN")
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "dev-secret-only"
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.DBDriver {
	case "mysql", "postgres":
		if c.DSN == "" {
			return errors.New("DB_DSN not set in environment")
		}
	case "memory":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}

	switch c.Storage.Backend {
	case "s3":
		if c.Storage.S3Bucket == "" {
			return errors.New("S3_BUCKET is required for the s3 storage backend")
		}
	case "disk":
		if c.Storage.Dir == "" {
			return errors.New("STORAGE_DIR is required for the disk storage backend")
		}
	case "memory":
	default:
		return fmt.Errorf("unsupported STORAGE_BACKEND %q", c.Storage.Backend)
	}

	if c.TokenTTL <= 0 {
		return errors.New("TOKEN_TTL must be positive")
	}
	return nil
}

// LoadConsole reads the console client configuration.
func LoadConsole() (ConsoleConfig, error) {
	v := newViper()
	cfg := ConsoleConfig{
		BaseURL:   strings.TrimRight(v.GetString("CONSOLE_BASE_URL"), "/"),
		Token:     v.GetString("CONSOLE_TOKEN"),
		StateFile: v.GetString("CONSOLE_STATE_FILE"),
		Debounce:  v.GetDuration("CONSOLE_DEBOUNCE"),
		PerPage:   v.GetInt("CONSOLE_PER_PAGE"),
	}
	if cfg.BaseURL == "" {
		return ConsoleConfig{}, errors.New("CONSOLE_BASE_URL not set")
	}
	if cfg.PerPage <= 0 {
		return ConsoleConfig{}, errors.New("CONSOLE_PER_PAGE must be positive")
	}
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
