package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "memory")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.AppPort)
	assert.Equal(t, "memory", cfg.DBDriver)
	assert.Equal(t, "disk", cfg.Storage.Backend)
	assert.Equal(t, "./uploads", cfg.Storage.Dir)
	assert.Equal(t, 12*time.Hour, cfg.TokenTTL)
	assert.Equal(t, "launchpad.stage-changed", cfg.Kafka.Topic)
	assert.Equal(t, "dev-secret-only", cfg.JWTSecret)
	assert.False(t, cfg.AllowOrgDelete)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("DB_DRIVER", "Postgres")
	t.Setenv("DB_DSN", "host=db user=lp")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("STORAGE_BACKEND", "s3")
	t.Setenv("S3_BUCKET", "launchpad-docs")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,,")
	t.Setenv("ALLOW_ORG_DELETE", "true")
	t.Setenv("REDIS_TTL", "30s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.AppPort)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, "host=db user=lp", cfg.DSN)
	assert.Equal(t, "s3cret", cfg.JWTSecret)
	assert.Equal(t, "launchpad-docs", cfg.Storage.S3Bucket)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.AllowOrgDelete)
	assert.Equal(t, 30*time.Second, cfg.Redis.TTL)
}

func TestLoad_MySQLDSNFallback(t *testing.T) {
	t.Setenv("DB_DRIVER", "mysql")
	t.Setenv("MYSQL_DSN", "root@tcp(localhost:3306)/launchpad")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "root@tcp(localhost:3306)/launchpad", cfg.DSN)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "missing dsn", env: map[string]string{"DB_DRIVER": "mysql"}},
		{name: "unknown driver", env: map[string]string{"DB_DRIVER": "oracle"}},
		{name: "s3 without bucket", env: map[string]string{"DB_DRIVER": "memory", "STORAGE_BACKEND": "s3"}},
		{name: "unknown storage", env: map[string]string{"DB_DRIVER": "memory", "STORAGE_BACKEND": "ftp"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadConsole(t *testing.T) {
	t.Setenv("CONSOLE_BASE_URL", "http://api.local/")
	t.Setenv("CONSOLE_TOKEN", "tok")

	cfg, err := LoadConsole()
	require.NoError(t, err)
	assert.Equal(t, "http://api.local", cfg.BaseURL)
	assert.Equal(t, "tok", cfg.Token)
	assert.Equal(t, 1300*time.Millisecond, cfg.Debounce)
	assert.Equal(t, 10, cfg.PerPage)
}
