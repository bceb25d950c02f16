package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Discovery core tuning. Durations arrive as millisecond integers so the
	// env schema stays compatible with the mobile client that shares it.
	APITimeout            time.Duration
	CacheExpiry           time.Duration
	MaxCachedUtilities    int
	DefaultSearchRadiusKm float64
	MaxSearchRadiusKm     float64
	OfflineSyncInterval   time.Duration
	MaxOfflineQueueSize   int

	// Persistence layer. Empty RedisAddr runs memory-only.
	RedisAddr     string
	RedisPassword string

	// Submission sink. An empty broker list disables the Kafka write path and
	// submissions stay in the offline queue.
	KafkaBrokers         []string
	KafkaSubmissionTopic string

	// Remote provider configuration.
	ProvidersEnabled bool
	HRSABaseURL      string
	VABaseURL        string
	USDABaseURL      string
}

// Load reads configuration from the environment, after a best-effort .env
// load, applying defaults where unset.
func Load() (*Config, error) {
	_ = godotenv.Load() // a missing .env file is fine

	shutdownTimeout, err := time.ParseDuration(envOrDefault("SHUTDOWN_TIMEOUT", "10s"))
	if err != nil || shutdownTimeout <= 0 {
		return nil, errors.New("invalid SHUTDOWN_TIMEOUT")
	}

	apiTimeout, err := parseMillis("API_TIMEOUT", 10_000)
	if err != nil {
		return nil, err
	}
	cacheExpiry, err := parseMillis("CACHE_EXPIRY", 5*60*1000)
	if err != nil {
		return nil, err
	}
	syncInterval, err := parseMillis("OFFLINE_SYNC_INTERVAL", 30_000)
	if err != nil {
		return nil, err
	}
	maxCached, err := parsePositiveInt("MAX_CACHED_UTILITIES", 1000)
	if err != nil {
		return nil, err
	}
	maxQueue, err := parsePositiveInt("MAX_OFFLINE_QUEUE_SIZE", 100)
	if err != nil {
		return nil, err
	}
	defaultRadius, err := parseKm("DEFAULT_SEARCH_RADIUS", 5.0)
	if err != nil {
		return nil, err
	}
	maxRadius, err := parseKm("MAX_SEARCH_RADIUS", 50.0)
	if err != nil {
		return nil, err
	}
	if maxRadius < defaultRadius {
		return nil, errors.New("MAX_SEARCH_RADIUS must be >= DEFAULT_SEARCH_RADIUS")
	}

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		APITimeout:            apiTimeout,
		CacheExpiry:           cacheExpiry,
		MaxCachedUtilities:    maxCached,
		DefaultSearchRadiusKm: defaultRadius,
		MaxSearchRadiusKm:     maxRadius,
		OfflineSyncInterval:   syncInterval,
		MaxOfflineQueueSize:   maxQueue,

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		KafkaBrokers:         parseBrokers(os.Getenv("KAFKA_BROKERS")),
		KafkaSubmissionTopic: envOrDefault("KAFKA_SUBMISSION_TOPIC", "facility-submissions"),

		ProvidersEnabled: envOrDefault("GOV_PROVIDERS_ENABLED", "true") == "true",
		HRSABaseURL:      envOrDefault("HRSA_BASE_URL", "https://data.hrsa.gov"),
		VABaseURL:        envOrDefault("VA_BASE_URL", "https://api.va.gov"),
		USDABaseURL:      envOrDefault("USDA_BASE_URL", "https://www.usda.gov"),
	}

	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaSubmissionTopic == "" {
		return nil, errors.New("KAFKA_SUBMISSION_TOPIC is required when KAFKA_BROKERS is set")
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// parseMillis reads a positive millisecond integer into a Duration.
func parseMillis(key string, def int) (time.Duration, error) {
	ms := def
	if s := os.Getenv(key); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("invalid %s: %q", key, s)
		}
		ms = n
	}
	return time.Duration(ms) * time.Millisecond, nil
}

func parsePositiveInt(key string, def int) (int, error) {
	if s := os.Getenv(key); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("invalid %s: %q", key, s)
		}
		return n, nil
	}
	return def, nil
}

func parseKm(key string, def float64) (float64, error) {
	if s := os.Getenv(key); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || v <= 0 {
			return 0, fmt.Errorf("invalid %s: %q", key, s)
		}
		return v, nil
	}
	return def, nil
}

func parseBrokers(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			brokers = append(brokers, p)
		}
	}
	return brokers
}
