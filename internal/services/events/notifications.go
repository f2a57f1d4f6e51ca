package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// StoredNotification is a notification as kept in Redis.
type StoredNotification struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	PostedAt  time.Time `json:"posted_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NotificationStore keeps each session's notifications in a sorted set scored by expiry,
// so the active ones are a range query.
type NotificationStore struct {
	redisClient *redis.Client
	ttl         time.Duration
	logger      *slog.Logger
}

func NewNotificationStore(redisClient *redis.Client, ttl time.Duration, logger *slog.Logger) *NotificationStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &NotificationStore{redisClient: redisClient, ttl: ttl, logger: logger}
}

func notificationsKey(sessionID string) string {
	return "notifications:" + sessionID
}

// Add stores a notification posted at now.
func (s *NotificationStore) Add(ctx context.Context, sessionID, message string, now time.Time) (StoredNotification, error) {
	n := StoredNotification{
		ID:        uuid.NewString(),
		Message:   message,
		PostedAt:  now,
		ExpiresAt: now.Add(s.ttl),
	}
	member, err := json.Marshal(n)
	if err != nil {
		return StoredNotification{}, fmt.Errorf("failed to marshal notification: %w", err)
	}
	key := notificationsKey(sessionID)
	pipe := s.redisClient.TxPipeline()
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(n.ExpiresAt.UnixMilli()), Member: member})
	pipe.Expire(ctx, key, s.ttl+time.Minute)
	if _, err := pipe.Exec(ctx); err != nil {
		s.logger.Error("Failed to store notification", "error", err, "key", key)
		return StoredNotification{}, fmt.Errorf("failed to store notification: %w", err)
	}
	return n, nil
}

// Active drops expired notifications and returns the rest, oldest expiry first.
func (s *NotificationStore) Active(ctx context.Context, sessionID string, now time.Time) ([]StoredNotification, error) {
	key := notificationsKey(sessionID)
	cutoff := strconv.FormatInt(now.UnixMilli(), 10)
	if err := s.redisClient.ZRemRangeByScore(ctx, key, "-inf", cutoff).Err(); err != nil {
		return nil, fmt.Errorf("failed to prune notifications: %w", err)
	}
	members, err := s.redisClient.ZRangeByScore(ctx, key, &redis.ZRangeBy{Min: "(" + cutoff, Max: "+inf"}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read notifications: %w", err)
	}
	out := make([]StoredNotification, 0, len(members))
	for _, m := range members {
		var n StoredNotification
		if err := json.Unmarshal([]byte(m), &n); err != nil {
			s.logger.Warn("Skipping unreadable notification", "key", key, "error", err)
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

// Clear removes every notification of a session.
func (s *NotificationStore) Clear(ctx context.Context, sessionID string) error {
	return s.redisClient.Del(ctx, notificationsKey(sessionID)).Err()
}
