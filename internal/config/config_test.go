package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)

	assert.Equal(t, 10*time.Second, cfg.APITimeout)
	assert.Equal(t, 5*time.Minute, cfg.CacheExpiry)
	assert.Equal(t, 1000, cfg.MaxCachedUtilities)
	assert.Equal(t, 5.0, cfg.DefaultSearchRadiusKm)
	assert.Equal(t, 50.0, cfg.MaxSearchRadiusKm)
	assert.Equal(t, 30*time.Second, cfg.OfflineSyncInterval)
	assert.Equal(t, 100, cfg.MaxOfflineQueueSize)

	assert.Empty(t, cfg.RedisAddr)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, "facility-submissions", cfg.KafkaSubmissionTopic)

	assert.True(t, cfg.ProvidersEnabled)
	assert.Equal(t, "https://data.hrsa.gov", cfg.HRSABaseURL)
	assert.Equal(t, "https://api.va.gov", cfg.VABaseURL)
	assert.Equal(t, "https://www.usda.gov", cfg.USDABaseURL)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("API_TIMEOUT", "2500")
	t.Setenv("CACHE_EXPIRY", "60000")
	t.Setenv("MAX_CACHED_UTILITIES", "50")
	t.Setenv("DEFAULT_SEARCH_RADIUS", "2.5")
	t.Setenv("MAX_SEARCH_RADIUS", "25")
	t.Setenv("OFFLINE_SYNC_INTERVAL", "5000")
	t.Setenv("MAX_OFFLINE_QUEUE_SIZE", "10")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("KAFKA_BROKERS", "broker1:9092, broker2:9092")
	t.Setenv("KAFKA_SUBMISSION_TOPIC", "custom-submissions")
	t.Setenv("GOV_PROVIDERS_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 2500*time.Millisecond, cfg.APITimeout)
	assert.Equal(t, time.Minute, cfg.CacheExpiry)
	assert.Equal(t, 50, cfg.MaxCachedUtilities)
	assert.Equal(t, 2.5, cfg.DefaultSearchRadiusKm)
	assert.Equal(t, 25.0, cfg.MaxSearchRadiusKm)
	assert.Equal(t, 5*time.Second, cfg.OfflineSyncInterval)
	assert.Equal(t, 10, cfg.MaxOfflineQueueSize)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-submissions", cfg.KafkaSubmissionTopic)
	assert.False(t, cfg.ProvidersEnabled)
}

func TestLoad_InvalidShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_InvalidCacheExpiry(t *testing.T) {
	t.Setenv("CACHE_EXPIRY", "five minutes")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CACHE_EXPIRY")
}

func TestLoad_ZeroQueueSize(t *testing.T) {
	t.Setenv("MAX_OFFLINE_QUEUE_SIZE", "0")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MAX_OFFLINE_QUEUE_SIZE")
}

func TestLoad_NegativeRadius(t *testing.T) {
	t.Setenv("DEFAULT_SEARCH_RADIUS", "-1")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DEFAULT_SEARCH_RADIUS")
}

func TestLoad_MaxRadiusBelowDefault(t *testing.T) {
	t.Setenv("DEFAULT_SEARCH_RADIUS", "20")
	t.Setenv("MAX_SEARCH_RADIUS", "10")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MAX_SEARCH_RADIUS")
}
