package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// EventType represents the type of event being broadcast
type EventType string

const (
	EventTypeItemUsed      EventType = "item.used"
	EventTypeEffectApplied EventType = "effect.applied"
	EventTypeDialogueEnded EventType = "dialogue.ended"
	EventTypeNotification  EventType = "notification.posted"
	EventTypeVerdict       EventType = "accusation.verdict"
	EventTypeGameOver      EventType = "game.over"
)

// Event represents a generic event structure
type Event struct {
	Type      EventType      `json:"type"`
	RequestID string         `json:"request_id,omitempty"`
	SessionID string         `json:"session_id,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}

// Channel is the pub/sub channel of a play session.
func Channel(sessionID string) string {
	return fmt.Sprintf("case-events:%s", sessionID)
}

// Broadcaster publishes case events to Redis Pub/Sub
type Broadcaster struct {
	redisClient *redis.Client
	logger      *slog.Logger
}

// NewBroadcaster creates a new event broadcaster
func NewBroadcaster(redisClient *redis.Client, logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{
		redisClient: redisClient,
		logger:      logger,
	}
}

// PublishItemUsed publishes an item.used event
func (b *Broadcaster) PublishItemUsed(ctx context.Context, sessionID, itemID, status string, witnesses []string) error {
	return b.publish(ctx, sessionID, EventTypeItemUsed, map[string]any{
		"item_id":   itemID,
		"status":    status,
		"witnesses": witnesses,
	})
}

// PublishEffectApplied publishes an effect.applied event
func (b *Broadcaster) PublishEffectApplied(ctx context.Context, sessionID string, effect any) error {
	return b.publish(ctx, sessionID, EventTypeEffectApplied, map[string]any{
		"effect": effect,
	})
}

// PublishDialogueEnded publishes a dialogue.ended event
func (b *Broadcaster) PublishDialogueEnded(ctx context.Context, sessionID, sourceID string) error {
	return b.publish(ctx, sessionID, EventTypeDialogueEnded, map[string]any{
		"source_id": sourceID,
	})
}

// PublishNotification publishes a notification.posted event
func (b *Broadcaster) PublishNotification(ctx context.Context, sessionID, message string) error {
	return b.publish(ctx, sessionID, EventTypeNotification, map[string]any{
		"message": message,
	})
}

// PublishVerdict publishes an accusation.verdict event
func (b *Broadcaster) PublishVerdict(ctx context.Context, sessionID, suspectID, crimeID string, correct bool) error {
	return b.publish(ctx, sessionID, EventTypeVerdict, map[string]any{
		"suspect_id": suspectID,
		"crime_id":   crimeID,
		"correct":    correct,
	})
}

// PublishGameOver publishes a game.over event
func (b *Broadcaster) PublishGameOver(ctx context.Context, sessionID, reason string) error {
	return b.publish(ctx, sessionID, EventTypeGameOver, map[string]any{
		"reason": reason,
	})
}

// publish sends an event to the session channel. Each event gets its own request id.
func (b *Broadcaster) publish(ctx context.Context, sessionID string, eventType EventType, data map[string]any) error {
	event := Event{
		Type:      eventType,
		RequestID: uuid.NewString(),
		SessionID: sessionID,
		Data:      data,
	}
	channel := Channel(sessionID)

	payload, err := json.Marshal(event)
	if err != nil {
		b.logger.Error("Failed to marshal event", "error", err, "event_type", eventType)
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.redisClient.Publish(ctx, channel, payload).Err(); err != nil {
		b.logger.Error("Failed to publish event", "error", err, "channel", channel)
		return fmt.Errorf("failed to publish event: %w", err)
	}

	b.logger.Debug("Event published",
		"channel", channel,
		"event_type", eventType,
		"request_id", event.RequestID,
	)

	return nil
}
