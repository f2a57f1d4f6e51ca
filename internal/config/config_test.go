package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "ENVIRONMENT", "LOG_LEVEL", "REDIS_URL", "CASE_ID",
		"WITNESS_RADIUS", "DIALOGUE_DISTANCE", "NOTIFICATION_TTL", "GAME_OVER_DELAY"} {
		t.Setenv(k, "")
	}

	cfg := Load()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Empty(t, cfg.RedisURL)
	assert.Equal(t, "tutorial", cfg.CaseID)
	assert.Equal(t, 220.0, cfg.WitnessRadius)
	assert.Equal(t, 70.0, cfg.DialogueDistance)
	assert.Equal(t, 3*time.Second, cfg.NotificationTTL)
	assert.Equal(t, 900*time.Millisecond, cfg.GameOverDelay)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("LOG_LEVEL", "WARNING")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("CASE_ID", "introduction_city_murder")
	t.Setenv("WITNESS_RADIUS", "180.5")
	t.Setenv("DIALOGUE_DISTANCE", "-3")
	t.Setenv("NOTIFICATION_TTL", "1500ms")
	t.Setenv("GAME_OVER_DELAY", "soon")

	cfg := Load()
	assert.Equal(t, slog.LevelWarn, cfg.LogLevel)
	assert.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
	assert.Equal(t, "introduction_city_murder", cfg.CaseID)
	assert.Equal(t, 180.5, cfg.WitnessRadius)
	assert.Equal(t, 70.0, cfg.DialogueDistance, "non-positive values fall back")
	assert.Equal(t, 1500*time.Millisecond, cfg.NotificationTTL)
	assert.Equal(t, 900*time.Millisecond, cfg.GameOverDelay, "malformed values fall back")
}
