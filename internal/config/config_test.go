package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvDev, cfg.Env)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "HS256", cfg.JWTAlgorithm)
	assert.Equal(t, 8*time.Hour, cfg.JWTTTL)
	assert.Equal(t, "s3cret", cfg.JWTSecret)
	assert.False(t, cfg.InsecureSecret)
	assert.True(t, cfg.AutoMigrate)
	assert.Equal(t, "sqlite://dev.db", cfg.DatabaseURL)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
}

func TestLoad_MissingSecretWithoutOptIn(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	assert.ErrorIs(t, err, ErrMissingSecret)
}

func TestLoad_InsecureSecretOptIn(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("ALLOW_INSECURE_SECRET", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DevSecret, cfg.JWTSecret)
	assert.True(t, cfg.InsecureSecret)
}

func TestLoad_ProdNeverUsesDevSecret(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("DATABASE_URL", "mysql://u:p@tcp(db:3306)/shop")
	t.Setenv("ALLOW_INSECURE_SECRET", "true")

	t.Setenv("JWT_SECRET", "")
	_, err := Load()
	assert.ErrorIs(t, err, ErrMissingSecret)

	t.Setenv("JWT_SECRET", DevSecret)
	_, err = Load()
	assert.ErrorIs(t, err, ErrInsecureSecret)
}

func TestLoad_ProdRequiresDatabase(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	t.Setenv("JWT_SECRET", "x")

	_, err := Load()
	assert.ErrorIs(t, err, ErrMissingDB)
}

func TestLoad_TestEnvUsesMemoryAndSkipsMigrations(t *testing.T) {
	t.Setenv("APP_ENV", "testing")
	t.Setenv("JWT_SECRET", "x")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, EnvTest, cfg.Env)
	assert.Equal(t, "sqlite://:memory:", cfg.DatabaseURL)
	assert.False(t, cfg.AutoMigrate)
}

func TestLoad_MySQLFromParts(t *testing.T) {
	t.Setenv("JWT_SECRET", "x")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_NAME", "shop")
	t.Setenv("DB_USER", "app")
	t.Setenv("DB_PASS", "pw")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "mysql://app:pw@tcp(db:3306)/shop", cfg.DatabaseURL)
}

func TestLoad_InvalidBcryptCost(t *testing.T) {
	t.Setenv("JWT_SECRET", "x")
	t.Setenv("BCRYPT_COST", "99")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRateLimitConfig_Clamps(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")

	rl := LoadRateLimitConfig()
	assert.Equal(t, 1, rl.Capacity)
	assert.Equal(t, 10*time.Second, rl.TTL)
}

func TestLoadCacheConfig_Methods(t *testing.T) {
	t.Setenv("CACHE_METHODS", "get, head")

	cc := LoadCacheConfig()
	assert.True(t, cc.Methods["GET"])
	assert.True(t, cc.Methods["HEAD"])
	assert.False(t, cc.Methods["POST"])
}

func TestLoadRedisConfig_HostPortWins(t *testing.T) {
	t.Setenv("REDIS_ADDR", "ignored:1")
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("REDIS_PORT", "6380")

	assert.Equal(t, "cache:6380", LoadRedisConfig().Addr)
	assert.Nil(t, NewRedisClient(RedisConfig{}))
}
