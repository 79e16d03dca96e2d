package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBase(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("APP_PORT", "8080")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("STORE_DRIVER", "memory")
}

func TestLoadDefaults(t *testing.T) {
	setBase(t)

	c, err := Load()

	require.NoError(t, err)
	assert.Equal(t, StoreMemory, c.StoreDriver)
	assert.Equal(t, PaymentFake, c.PaymentDriver)
	assert.Equal(t, BrokerNone, c.EventBroker)
	assert.Equal(t, LockLocal, c.LockDriver)
	assert.Equal(t, 30*time.Second, c.LockTTL)
	assert.Equal(t, 60, c.AccessTTLMin)
}

func TestLoadReportsEveryMissingVariable(t *testing.T) {
	setBase(t)
	t.Setenv("APP_PORT", "")
	t.Setenv("STORE_DRIVER", "mysql")
	t.Setenv("PAYMENT_DRIVER", "stripe")

	_, err := Load()

	require.Error(t, err)
	for _, key := range []string{"APP_PORT", "DB_USER", "DB_HOST", "DB_NAME", "STRIPE_SECRET_KEY"} {
		assert.Contains(t, err.Error(), key)
	}
}

func TestLoadRejectsUnknownDrivers(t *testing.T) {
	setBase(t)
	t.Setenv("EVENT_BROKER", "carrier-pigeon")

	_, err := Load()

	assert.ErrorContains(t, err, "EVENT_BROKER")
}

func TestLoadKafkaBrokers(t *testing.T) {
	setBase(t)
	t.Setenv("EVENT_BROKER", "Kafka")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")

	c, err := Load()

	require.NoError(t, err)
	assert.Equal(t, BrokerKafka, c.EventBroker)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.KafkaBrokers)
}

func TestProdRequiresTicketCodeSalt(t *testing.T) {
	setBase(t)
	t.Setenv("APP_ENV", "prod")

	_, err := Load()

	assert.ErrorContains(t, err, "TICKET_CODE_SALT")
}

func TestRateLimitConfigClampsValues(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")

	c := LoadRateLimitConfig()

	assert.Equal(t, 1, c.Capacity)
	assert.Equal(t, 10*time.Second, c.TTL)
	assert.InDelta(t, 0.5, c.PerSecond(), 1e-9)
}

func TestCacheConfigMethods(t *testing.T) {
	t.Setenv("CACHE_METHODS", "get, head")

	c := LoadCacheConfig()

	assert.True(t, c.Methods["GET"])
	assert.True(t, c.Methods["HEAD"])
	assert.False(t, c.Methods["POST"])
}

func TestRedisHostAndPortOverrideAddr(t *testing.T) {
	t.Setenv("REDIS_ADDR", "ignored:1")
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("REDIS_PORT", "6380")

	assert.Equal(t, "cache:6380", LoadRedisConfig().Addr)
}
