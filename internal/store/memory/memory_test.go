package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SEBSEB62/KAYE-sub000/internal/domain"
	"github.com/SEBSEB62/KAYE-sub000/internal/store"
)

func TestStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	s := New()

	_, err := s.Get(ctx, "acct-1")
	require.ErrorIs(t, err, store.ErrNotFound)

	bundle := domain.NewBundle()
	bundle.Products = append(bundle.Products, domain.Product{ID: "p1", Name: "Soda", Stock: 3})
	require.NoError(t, s.Put(ctx, "acct-1", bundle))

	bundle.Products[0].Stock = 99

	got, err := s.Get(ctx, "acct-1")
	require.NoError(t, err)
	require.Len(t, got.Products, 1)
	assert.Equal(t, 3, got.Products[0].Stock)
	assert.Equal(t, 1, s.Puts())

	require.NoError(t, s.Delete(ctx, "acct-1"))
	assert.ErrorIs(t, s.Delete(ctx, "acct-1"), store.ErrNotFound)
}

func TestStoreRejectsBundleWithoutSettings(t *testing.T) {
	s := New()
	err := s.Put(context.Background(), "acct-1", domain.Bundle{})
	assert.ErrorIs(t, err, store.ErrInvalidBundle)
}
