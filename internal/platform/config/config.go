package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures everything the service reads from the environment so main
// stays lean. Empty broker/object-store/redis settings select the in-memory
// fallbacks, which keeps local development brokerless.
type Config struct {
	Addr          string
	JWTSigningKey string

	DatabaseURL string

	KafkaBrokers  []string
	EvidenceTopic string
	ImportTopic   string
	ConsumerGroup string

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioUseSSL    bool
	EvidenceBucket string

	RedisURL     string
	JobStatusTTL time.Duration

	// StaleAfter is the threshold past which PENDING/PROCESSING units and
	// PROCESSING jobs are reported as stale. Nothing is cancelled
	// automatically; staleness is a read-side signal only.
	StaleAfter time.Duration

	// ImportFlushEvery controls how often the import worker persists job
	// counters. The final state is always flushed regardless.
	ImportFlushEvery int
}

// FromEnv builds a Config from environment variables with development
// defaults.
func FromEnv() Config {
	return Config{
		Addr:          getString("GRC_ADDR", ":8080"),
		JWTSigningKey: getString("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),

		DatabaseURL: os.Getenv("DATABASE_URL"),

		KafkaBrokers:  splitList(os.Getenv("KAFKA_BROKERS")),
		EvidenceTopic: getString("KAFKA_EVIDENCE_TOPIC", "evidence-processing"),
		ImportTopic:   getString("KAFKA_IMPORT_TOPIC", "thirdparty-import"),
		ConsumerGroup: getString("KAFKA_CONSUMER_GROUP", "grc-workers"),

		MinioEndpoint:  os.Getenv("MINIO_ENDPOINT"),
		MinioAccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey: os.Getenv("MINIO_SECRET_KEY"),
		MinioUseSSL:    os.Getenv("MINIO_USE_SSL") == "true",
		EvidenceBucket: getString("MINIO_BUCKET_EVIDENCE", "evidence-uploads"),

		RedisURL:     os.Getenv("REDIS_URL"),
		JobStatusTTL: getDuration("JOB_STATUS_CACHE_TTL", 5*time.Second),

		StaleAfter:       getDuration("STALE_AFTER", 30*time.Minute),
		ImportFlushEvery: getInt("IMPORT_FLUSH_EVERY", 100),
	}
}

func getString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
