package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEnvBool(t *testing.T) {
	tests := []struct {
		value string
		def   bool
		want  bool
	}{
		{"", true, true},
		{"yes", false, true},
		{"ON", false, true},
		{"0", true, false},
		{"off", true, false},
		{"maybe", true, true},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("ZAIKO_TEST_BOOL", tt.value)
			assert.Equal(t, tt.want, envBool("ZAIKO_TEST_BOOL", tt.def))
		})
	}
}

func TestEnvDurAndInt(t *testing.T) {
	t.Setenv("ZAIKO_TEST_DUR", "90s")
	t.Setenv("ZAIKO_TEST_INT", "nope")

	assert.Equal(t, 90*time.Second, envDur("ZAIKO_TEST_DUR", time.Second))
	assert.Equal(t, 7, envInt("ZAIKO_TEST_INT", 7))
}

func TestRateLimitNormalize(t *testing.T) {
	c := RateLimitConfig{Capacity: 0, RefillTokens: -1, RefillInterval: 0, TTL: time.Second}.normalize()

	assert.Equal(t, 1, c.Capacity)
	assert.Equal(t, 1, c.RefillTokens)
	assert.Equal(t, time.Second, c.RefillInterval)
	assert.Equal(t, 5*time.Second, c.TTL)
}

func TestLoadCacheConfigMethods(t *testing.T) {
	t.Setenv("CACHE_METHODS", "get, head ,")

	cfg := LoadCacheConfig()
	assert.Equal(t, map[string]bool{"GET": true, "HEAD": true}, cfg.Methods)
}

func TestLoadRabbitConfigFallbackURL(t *testing.T) {
	t.Setenv("RABBITMQ_URL", "")
	t.Setenv("AMQP_URL", "amqp://u:p@broker:5672/")

	cfg := LoadRabbitConfig()
	assert.Equal(t, "amqp://u:p@broker:5672/", cfg.URL)
	assert.Equal(t, "sale.events", cfg.Queue)
}

func TestLoadLocation(t *testing.T) {
	assert.Equal(t, time.Local, loadLocation(""))
	assert.Equal(t, time.Local, loadLocation("Not/AZone"))
	assert.Equal(t, time.UTC, loadLocation("UTC"))
}

func TestRedisOptions(t *testing.T) {
	t.Setenv("REDIS_URL", "")
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("REDIS_TLS", "true")

	opts, err := LoadRedisConfig().Options()
	if assert.NoError(t, err) {
		assert.Equal(t, "cache:6380", opts.Addr)
		assert.NotNil(t, opts.TLSConfig)
	}

	opts, err = RedisConfig{URL: "redis://:secret@broker:6379/2"}.Options()
	if assert.NoError(t, err) {
		assert.Equal(t, "broker:6379", opts.Addr)
		assert.Equal(t, "secret", opts.Password)
		assert.Equal(t, 2, opts.DB)
	}

	_, err = RedisConfig{URL: "http://nope"}.Options()
	assert.Error(t, err)
}
