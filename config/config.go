package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration for the service.
type Config struct {
	Port        string
	Environment string
	CORSOrigins []string

	MongoURI string
	MongoDB  string

	RedisAddr     string
	RedisPassword string

	JWTSecret string
	Domain    string

	// MediaDir is the root directory for uploaded issue photos.
	MediaDir string

	// PublicMapAPI controls whether /api/issue-data requires authentication.
	// The upstream deployments disagree on this, so it is a single explicit flag.
	PublicMapAPI bool

	// MapFeedLimit caps the heatmap feed. 0 means unbounded.
	MapFeedLimit int64

	// ReportDailyLimit is the per-user cap on issue reports per 24h.
	ReportDailyLimit int

	// SentimentTimeout bounds the sentiment scoring step of issue creation.
	SentimentTimeout time.Duration
}

// Load reads configuration from environment variables, applying defaults.
func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("GO_ENV", "development"),
		CORSOrigins: []string{getEnv("CORS_ORIGIN", "http://localhost:3000")},

		MongoURI: getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDB:  getEnv("MONGODB_DB", "civicgrid"),

		RedisAddr:     getEnv("REDIS_ADDRESS", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		JWTSecret: getEnv("JWT_SECRET", ""),
		Domain:    getEnv("DOMAIN", ""),

		MediaDir: getEnv("MEDIA_DIR", "./media"),

		PublicMapAPI: getBoolEnv("PUBLIC_MAP_API", true),
		MapFeedLimit: int64(getIntEnv("MAP_FEED_LIMIT", 1000)),

		ReportDailyLimit: getIntEnv("REPORT_DAILY_LIMIT", 10),

		SentimentTimeout: getDurationEnv("SENTIMENT_TIMEOUT", 2*time.Second),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
