package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	rediscommon "moodweather/internal/common/redis"
	"moodweather/internal/domain"
	"moodweather/internal/metrics"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// MindfulIncrementer bumps the mindful-moment counter and recomputes stats
type MindfulIncrementer interface {
	IncrementMindfulMoments(ctx context.Context, userID string) (*domain.UserStats, error)
}

// errMalformedEvent events that can never succeed; they are acked and dropped
var errMalformedEvent = errors.New("malformed mindful event")

// MindfulConsumer reads mindful-moment events published by other services
type MindfulConsumer struct {
	redisClient  *redis.Client
	incrementer  MindfulIncrementer
	logger       *zap.Logger
	stream       string
	groupName    string
	consumerName string
	batchSize    int64
	block        time.Duration

	// pendingFrom is the cursor into this consumer's unacked entries; "" reads new ones
	pendingFrom string
	retry       bool
}

// MindfulEvent either flat fields or a JSON "data" field carrying the same shape
type MindfulEvent struct {
	UserID    string `json:"user_id"`
	Source    string `json:"source,omitempty"` // "breathing", "meditation", ...
	Timestamp int64  `json:"timestamp,omitempty"`
}

func NewMindfulConsumer(
	redisClient *redis.Client,
	incrementer MindfulIncrementer,
	logger *zap.Logger,
	stream string,
	groupName string,
	consumerName string,
	batchSize int64,
) *MindfulConsumer {
	return &MindfulConsumer{
		redisClient:  redisClient,
		incrementer:  incrementer,
		logger:       logger,
		stream:       stream,
		groupName:    groupName,
		consumerName: consumerName,
		batchSize:    batchSize,
		block:        5 * time.Second,
		pendingFrom:  "0",
	}
}

const (
	initialBackoff = time.Second
	maxBackoff     = 30 * time.Second
)

// Start blocks until ctx is cancelled, backing off exponentially on read errors
func (c *MindfulConsumer) Start(ctx context.Context) error {
	if err := rediscommon.CreateConsumerGroup(ctx, c.redisClient, c.stream, c.groupName); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	c.logger.Info("Mindful event consumer started",
		zap.String("stream", c.stream),
		zap.String("consumer_group", c.groupName),
		zap.String("consumer_name", c.consumerName),
	)

	wait := initialBackoff
	for ctx.Err() == nil {
		_, err := c.consumeEvents(ctx)
		if err == nil {
			wait = initialBackoff
			continue
		}
		if ctx.Err() != nil {
			break
		}
		c.logger.Error("Failed to consume mindful events", zap.Error(err), zap.Duration("retry_in", wait))

		select {
		case <-ctx.Done():
		case <-time.After(wait):
		}
		wait = min(wait*2, maxBackoff)
	}
	return nil
}

// consumeEvents one read; returns the number of events applied.
// Unacked entries from earlier runs are retried before new ones, and once more
// after every blocking read that followed a failure.
func (c *MindfulConsumer) consumeEvents(ctx context.Context) (int, error) {
	if c.pendingFrom != "" {
		messages, err := rediscommon.ReadPendingFromStream(ctx, c.redisClient, c.stream, c.groupName, c.consumerName, c.pendingFrom, c.batchSize)
		if err != nil {
			return 0, fmt.Errorf("failed to read pending entries: %w", err)
		}
		if len(messages) > 0 {
			c.pendingFrom = messages[len(messages)-1].ID
			return c.applyEvents(ctx, messages), nil
		}
		c.pendingFrom = ""
	}

	messages, err := rediscommon.ReadFromStream(
		ctx,
		c.redisClient,
		c.stream,
		c.groupName,
		c.consumerName,
		c.batchSize,
		c.block,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to read from stream: %w", err)
	}
	if c.retry {
		c.retry = false
		c.pendingFrom = "0"
	}
	return c.applyEvents(ctx, messages), nil
}

func (c *MindfulConsumer) applyEvents(ctx context.Context, messages []rediscommon.StreamMessage) int {
	applied := 0
	for _, msg := range messages {
		err := c.processEvent(ctx, msg)
		switch {
		case err == nil:
			applied++
		case errors.Is(err, errMalformedEvent):
			c.logger.Warn("Dropping malformed mindful event",
				zap.String("message_id", msg.ID),
				zap.Error(err),
			)
		default:
			// left pending; retried on a later pass
			c.retry = true
			c.logger.Error("Failed to process mindful event",
				zap.String("message_id", msg.ID),
				zap.Error(err),
			)
			continue
		}

		if err := rediscommon.Ack(ctx, c.redisClient, c.stream, c.groupName, msg.ID); err != nil {
			c.logger.Warn("Failed to ack message",
				zap.String("message_id", msg.ID),
				zap.Error(err),
			)
		}
	}
	return applied
}

func (c *MindfulConsumer) processEvent(ctx context.Context, msg rediscommon.StreamMessage) error {
	event, err := ParseMindfulEvent(msg.Values)
	if err != nil {
		return err
	}

	if _, err := c.incrementer.IncrementMindfulMoments(ctx, event.UserID); err != nil {
		return fmt.Errorf("failed to increment mindful moments: %w", err)
	}
	metrics.RecordMindfulEvent("stream")

	c.logger.Info("Processed mindful event",
		zap.String("message_id", msg.ID),
		zap.String("user_id", event.UserID),
		zap.String("source", event.Source),
	)
	return nil
}

// ParseMindfulEvent accepts {"user_id": ...} or {"data": "<json>"}
func ParseMindfulEvent(values map[string]interface{}) (*MindfulEvent, error) {
	var event MindfulEvent
	if raw, ok := values["data"].(string); ok {
		if err := json.Unmarshal([]byte(raw), &event); err != nil {
			return nil, fmt.Errorf("%w: %v", errMalformedEvent, err)
		}
	} else {
		event.UserID, _ = values["user_id"].(string)
		event.Source, _ = values["source"].(string)
	}
	if event.UserID == "" {
		return nil, fmt.Errorf("%w: user_id is required", errMalformedEvent)
	}
	return &event, nil
}
