package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

// StreamMessage one entry read through a consumer group
type StreamMessage struct {
	Stream string
	ID     string
	Values map[string]interface{}
}

// streamValue flattens v into the string form XADD stores
func streamValue(v interface{}) (string, error) {
	switch val := v.(type) {
	case string:
		return val, nil
	case []byte:
		return string(val), nil
	case bool:
		return strconv.FormatBool(val), nil
	case int:
		return strconv.Itoa(val), nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode stream field: %w", err)
	}
	return string(b), nil
}

// PublishToStream XADDs values; non-scalar values are stored as JSON
func PublishToStream(ctx context.Context, client *redis.Client, stream string, values map[string]interface{}) (string, error) {
	fields := make(map[string]interface{}, len(values))
	for k, v := range values {
		s, err := streamValue(v)
		if err != nil {
			return "", err
		}
		fields[k] = s
	}
	return client.XAdd(ctx, &redis.XAddArgs{Stream: stream, Values: fields}).Result()
}

// PublishJSONToStream data goes under "data", with the publish time in unix seconds
func PublishJSONToStream(ctx context.Context, client *redis.Client, stream string, data interface{}) (string, error) {
	return PublishToStream(ctx, client, stream, map[string]interface{}{
		"data":      data,
		"timestamp": time.Now().Unix(),
	})
}

// ReadFromStream new entries for consumer; a block timeout yields an empty slice
func ReadFromStream(ctx context.Context, client *redis.Client, stream, group, consumer string, count int64, block time.Duration) ([]StreamMessage, error) {
	return readGroup(ctx, client, stream, group, consumer, ">", count, block)
}

// ReadPendingFromStream entries already delivered to consumer but not acked,
// with IDs after the given one ("0" for the whole list). Never blocks.
func ReadPendingFromStream(ctx context.Context, client *redis.Client, stream, group, consumer, after string, count int64) ([]StreamMessage, error) {
	return readGroup(ctx, client, stream, group, consumer, after, count, -1)
}

func readGroup(ctx context.Context, client *redis.Client, stream, group, consumer, id string, count int64, block time.Duration) ([]StreamMessage, error) {
	res, err := client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    group,
		Consumer: consumer,
		Streams:  []string{stream, id},
		Count:    count,
		Block:    block,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return []StreamMessage{}, nil
	}
	if err != nil {
		return nil, err
	}

	messages := make([]StreamMessage, 0, count)
	for _, s := range res {
		for _, m := range s.Messages {
			messages = append(messages, StreamMessage{Stream: s.Stream, ID: m.ID, Values: m.Values})
		}
	}
	return messages, nil
}

// Ack marks ids as processed for group
func Ack(ctx context.Context, client *redis.Client, stream, group string, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	return client.XAck(ctx, stream, group, ids...).Err()
}

// CreateConsumerGroup idempotent; creates the stream when missing
func CreateConsumerGroup(ctx context.Context, client *redis.Client, stream, group string) error {
	err := client.XGroupCreateMkStream(ctx, stream, group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group %s on %s: %w", group, stream, err)
	}
	return nil
}
