package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{
		"SERVER_PORT", "DATABASE_DRIVER", "DATABASE_URL", "SESSION_TTL",
		"COOKIE_SECURE", "CORS_ORIGINS", "KAFKA_BROKERS", "ES_INDEX", "SEED_USERS",
	} {
		t.Setenv(k, "")
	}

	cfg := Load()

	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, DriverSQLite, cfg.DatabaseDriver)
	assert.Equal(t, "ecommerce.db", cfg.DatabaseURL)
	assert.Equal(t, 7*24*time.Hour, cfg.SessionTTL)
	assert.False(t, cfg.CookieSecure)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Nil(t, cfg.KafkaBrokers)
	assert.Equal(t, "products", cfg.ESIndex)
	assert.Empty(t, cfg.SeedUsers)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("DATABASE_DRIVER", "Postgres")
	t.Setenv("SESSION_SECRET", "s3cret")
	t.Setenv("SESSION_TTL", "30m")
	t.Setenv("COOKIE_SECURE", "true")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("SEED_USERS", "alice:pw1,bob:pw:2,broken")

	cfg := Load()

	assert.Equal(t, 9000, cfg.ServerPort)
	assert.Equal(t, DriverPostgres, cfg.DatabaseDriver)
	assert.Equal(t, []byte("s3cret"), cfg.SessionSecret)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.True(t, cfg.CookieSecure)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, map[string]string{"alice": "pw1", "bob": "pw:2"}, cfg.SeedUsers)
}

func TestEnvDefaults_FallBackOnGarbage(t *testing.T) {
	t.Setenv("X_INT", "abc")
	t.Setenv("X_BOOL", "maybe")
	t.Setenv("X_DUR", "-5s")

	assert.Equal(t, 7, EnvIntDefault("X_INT", 7))
	assert.True(t, EnvBoolDefault("X_BOOL", true))
	assert.Equal(t, time.Second, EnvDurationDefault("X_DUR", time.Second))
}

func TestValidate(t *testing.T) {
	cfg := Config{DatabaseDriver: DriverSQLite}
	assert.Error(t, cfg.Validate())

	cfg.SessionSecret = []byte("k")
	assert.NoError(t, cfg.Validate())

	cfg.DatabaseDriver = "mysql"
	assert.ErrorContains(t, cfg.Validate(), "mysql")
}
