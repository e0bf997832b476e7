package service

import (
	"context"
	"errors"
	"testing"

	"moodweather/internal/domain"
	"moodweather/internal/notify"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDeleteAccount_RemovesEverything(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tokens := notify.NewTokenStore(env.kv)
	svc := NewAccountService(env.store, env.aggregator, tokens, zap.NewNop())

	_, err := env.moods.CreateMood(ctx, "user-1", newMood("user-1", now, 50, "sunny"))
	require.NoError(t, err)
	_, err = env.moods.CreateMood(ctx, "user-1", newMood("user-1", now.AddDate(0, 0, -1), 50, "rainy"))
	require.NoError(t, err)
	require.NoError(t, svc.RegisterPushToken(ctx, "user-1", "device-token"))

	_, err = svc.DeleteAccount(ctx, "user-1", "user-2")
	assert.True(t, errors.Is(err, domain.ErrOwnership))

	deleted, err := svc.DeleteAccount(ctx, "user-1", "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	_, err = env.aggregator.GetStats(ctx, "user-1")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	token, err := tokens.Token(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestRegisterPushToken_DisabledWithoutStore(t *testing.T) {
	env := newTestEnv(t)
	svc := NewAccountService(env.store, env.aggregator, nil, zap.NewNop())
	err := svc.RegisterPushToken(context.Background(), "user-1", "t")
	assert.True(t, errors.Is(err, domain.ErrStoreUnavailable))
}
