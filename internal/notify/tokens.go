package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"moodweather/internal/domain"
)

// KV storage used for push tokens (Redis in production)
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// TokenStore push-gateway device token per user (last registration wins)
type TokenStore struct {
	kv KV
}

func NewTokenStore(kv KV) *TokenStore {
	return &TokenStore{kv: kv}
}

func tokenKey(userID string) string {
	return fmt.Sprintf("moodweather:push-token:%s", userID)
}

// Register stores token without expiry
func (s *TokenStore) Register(ctx context.Context, userID, token string) error {
	token = strings.TrimSpace(token)
	if userID == "" || token == "" {
		return fmt.Errorf("%w: userId and token are required", domain.ErrValidation)
	}
	if err := s.kv.Set(ctx, tokenKey(userID), token, 0); err != nil {
		return fmt.Errorf("failed to store push token: %w", err)
	}
	return nil
}

// Token returns "" when the user never registered
func (s *TokenStore) Token(ctx context.Context, userID string) (string, error) {
	token, err := s.kv.Get(ctx, tokenKey(userID))
	if err != nil {
		return "", nil
	}
	return token, nil
}

// Forget removes the token (account erasure)
func (s *TokenStore) Forget(ctx context.Context, userID string) error {
	if err := s.kv.Delete(ctx, tokenKey(userID)); err != nil {
		return fmt.Errorf("failed to delete push token: %w", err)
	}
	return nil
}
