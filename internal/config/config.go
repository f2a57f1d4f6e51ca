package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	Environment string
	LogLevel    slog.Level
	RedisURL    string

	CaseID           string
	WitnessRadius    float64
	DialogueDistance float64
	NotificationTTL  time.Duration
	GameOverDelay    time.Duration
}

// Load reads the environment, after a .env file when one exists.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:             getEnv("PORT", "8080"),
		Environment:      getEnv("ENVIRONMENT", "development"),
		LogLevel:         parseLogLevel(getEnv("LOG_LEVEL", "info")),
		RedisURL:         getEnv("REDIS_URL", ""),
		CaseID:           getEnv("CASE_ID", "tutorial"),
		WitnessRadius:    getFloat("WITNESS_RADIUS", 220),
		DialogueDistance: getFloat("DIALOGUE_DISTANCE", 70),
		NotificationTTL:  getDuration("NOTIFICATION_TTL", 3*time.Second),
		GameOverDelay:    getDuration("GAME_OVER_DELAY", 900*time.Millisecond),
	}
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getFloat falls back to the default for unset, malformed or non-positive values.
func getFloat(key string, defaultValue float64) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(os.Getenv(key)), 64)
	if err != nil || v <= 0 {
		return defaultValue
	}
	return v
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(os.Getenv(key)))
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}
