// Package cache stores JSON-encoded values for a limited time. Callers treat
// every cache error as a miss.
package cache

import (
	"context"
	"time"
)

type Cache interface {
	// Get decodes the value stored at key into dst and reports whether it
	// was found.
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

type Noop struct{}

func (Noop) Get(_ context.Context, _ string, _ any) (bool, error) {
	return false, nil
}

func (Noop) Set(_ context.Context, _ string, _ any, _ time.Duration) error {
	return nil
}
