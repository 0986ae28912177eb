package store

import (
	"context"
	"errors"

	"github.com/SEBSEB62/KAYE-sub000/internal/domain"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidBundle = errors.New("invalid bundle")
)

// Repository persists one bundle per account, keyed by user id.
type Repository interface {
	Get(ctx context.Context, userID string) (*domain.Bundle, error)
	Put(ctx context.Context, userID string, bundle domain.Bundle) error
	Delete(ctx context.Context, userID string) error
}

// Validate rejects bundles that cannot be loaded into a workspace.
func Validate(userID string, bundle domain.Bundle) error {
	if userID == "" {
		return ErrInvalidBundle
	}
	if bundle.Settings == nil {
		return ErrInvalidBundle
	}
	return nil
}
