package consumer

import (
	"context"
	"errors"
	"testing"
	"time"

	rediscommon "moodweather/internal/common/redis"
	"moodweather/internal/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingIncrementer struct {
	calls map[string]int
	fail  bool
}

func (c *countingIncrementer) IncrementMindfulMoments(_ context.Context, userID string) (*domain.UserStats, error) {
	if c.fail {
		return nil, errors.New("store down")
	}
	c.calls[userID]++
	return &domain.UserStats{UserID: userID, MindfulMomentsCount: c.calls[userID]}, nil
}

func setupConsumer(t *testing.T, inc MindfulIncrementer) (*MindfulConsumer, *redis.Client) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	c := NewMindfulConsumer(client, inc, zap.NewNop(), "mindful:events", "g", "c1", 10)
	c.block = 10 * time.Millisecond
	require.NoError(t, rediscommon.CreateConsumerGroup(context.Background(), client, "mindful:events", "g"))
	return c, client
}

func TestConsumeEvents_IncrementsPerEvent(t *testing.T) {
	inc := &countingIncrementer{calls: map[string]int{}}
	c, client := setupConsumer(t, inc)
	ctx := context.Background()

	_, err := rediscommon.PublishToStream(ctx, client, "mindful:events", map[string]interface{}{"user_id": "user-1", "source": "breathing"})
	require.NoError(t, err)
	_, err = rediscommon.PublishJSONToStream(ctx, client, "mindful:events", MindfulEvent{UserID: "user-1", Source: "meditation"})
	require.NoError(t, err)
	_, err = rediscommon.PublishToStream(ctx, client, "mindful:events", map[string]interface{}{"source": "breathing"})
	require.NoError(t, err)

	applied, err := c.consumeEvents(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, applied)
	assert.Equal(t, 2, inc.calls["user-1"])

	// malformed event was acked, so nothing is pending
	pending, err := client.XPending(ctx, "mindful:events", "g").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(0), pending.Count)
}

func TestConsumeEvents_FailureLeavesPending(t *testing.T) {
	inc := &countingIncrementer{calls: map[string]int{}, fail: true}
	c, client := setupConsumer(t, inc)
	ctx := context.Background()

	_, err := rediscommon.PublishToStream(ctx, client, "mindful:events", map[string]interface{}{"user_id": "user-1"})
	require.NoError(t, err)

	applied, err := c.consumeEvents(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, applied)

	pending, err := client.XPending(ctx, "mindful:events", "g").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), pending.Count)
}

func TestConsumeEvents_RedeliversAfterRecovery(t *testing.T) {
	inc := &countingIncrementer{calls: map[string]int{}, fail: true}
	c, client := setupConsumer(t, inc)
	ctx := context.Background()

	_, err := rediscommon.PublishToStream(ctx, client, "mindful:events", map[string]interface{}{"user_id": "user-1"})
	require.NoError(t, err)

	applied, err := c.consumeEvents(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, applied)

	inc.fail = false
	for i := 0; i < 3; i++ {
		_, err := c.consumeEvents(ctx)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, inc.calls["user-1"])

	pending, err := client.XPending(ctx, "mindful:events", "g").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(0), pending.Count)
}

func TestConsumeEvents_RestartDrainsPending(t *testing.T) {
	inc := &countingIncrementer{calls: map[string]int{}, fail: true}
	c, client := setupConsumer(t, inc)
	ctx := context.Background()

	_, err := rediscommon.PublishToStream(ctx, client, "mindful:events", map[string]interface{}{"user_id": "user-1"})
	require.NoError(t, err)
	_, err = c.consumeEvents(ctx)
	require.NoError(t, err)

	// same consumer name after a restart
	healthy := &countingIncrementer{calls: map[string]int{}}
	restarted := NewMindfulConsumer(client, healthy, zap.NewNop(), "mindful:events", "g", "c1", 10)
	restarted.block = 10 * time.Millisecond

	applied, err := restarted.consumeEvents(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, applied)
	assert.Equal(t, 1, healthy.calls["user-1"])

	// acked, so a second pass applies nothing
	applied, err = restarted.consumeEvents(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, applied)
	assert.Equal(t, 1, healthy.calls["user-1"])
}

func TestParseMindfulEvent(t *testing.T) {
	ev, err := ParseMindfulEvent(map[string]interface{}{"data": `{"user_id":"u","source":"meditation"}`})
	require.NoError(t, err)
	assert.Equal(t, "u", ev.UserID)
	assert.Equal(t, "meditation", ev.Source)

	_, err = ParseMindfulEvent(map[string]interface{}{"data": "{"})
	assert.True(t, errors.Is(err, errMalformedEvent))

	_, err = ParseMindfulEvent(map[string]interface{}{})
	assert.True(t, errors.Is(err, errMalformedEvent))
}

func TestStart_StopsOnCancel(t *testing.T) {
	inc := &countingIncrementer{calls: map[string]int{}}
	c, _ := setupConsumer(t, inc)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop")
	}
}
