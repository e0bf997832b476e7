package external

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotConfigured no API key for the upstream service
var ErrNotConfigured = errors.New("external service not configured")

// ErrUpstreamTimeout upstream did not answer within the client timeout
var ErrUpstreamTimeout = errors.New("external service timeout")

// UpstreamError non-2xx answer from an upstream API
type UpstreamError struct {
	Service    string
	StatusCode int
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s API error: status %d", e.Service, e.StatusCode)
}

// Cache minimal KV used for upstream response caching (Redis in production)
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
}

// PrefixDeleter optional Cache capability used to clear a whole namespace
type PrefixDeleter interface {
	DeletePrefix(ctx context.Context, prefix string) (int, error)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}
