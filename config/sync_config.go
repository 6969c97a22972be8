package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port        string
	Environment string
	NodeID      int64

	// Database
	DatabaseURL string
	RedisURL    string
	MongoDBURL  string
	MongoDBName string

	// JWT
	JWTSecret string

	// History
	HistoryTTL      time.Duration
	HistoryStackCap int
	HistoryPageSize int

	// CORS
	AllowedOrigins []string

	// Rate limiting (requests per user per minute)
	RateLimitPerMin int
}

func Load() (*Config, error) {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENV", "development"),
		NodeID:      int64(getEnvInt("NODE_ID", 0)),

		// Database
		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisURL:    getEnv("REDIS_URL", ""),
		MongoDBURL:  getEnv("MONGODB_URL", ""),
		MongoDBName: getEnv("MONGODB_DATABASE", "syncdesk"),

		// JWT
		JWTSecret: getEnv("JWT_SECRET", ""),

		// History
		HistoryTTL:      time.Duration(getEnvInt("HISTORY_TTL_MIN", 120)) * time.Minute,
		HistoryStackCap: getEnvInt("HISTORY_STACK_CAP", 100),
		HistoryPageSize: getEnvInt("HISTORY_PAGE_SIZE", 100),

		// CORS
		AllowedOrigins: getEnvSlice("ALLOWED_ORIGINS", []string{"http://localhost:3000", "http://localhost:5173"}),

		// Rate limiting
		RateLimitPerMin: getEnvInt("RATE_LIMIT_PER_MIN", 600),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
