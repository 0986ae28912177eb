package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/SEBSEB62/KAYE-sub000/internal/domain"
	"github.com/SEBSEB62/KAYE-sub000/internal/store"
)

func TestBundleRoundTrip(t *testing.T) {
	databaseURL := os.Getenv("BUVETTE_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set BUVETTE_TEST_DATABASE_URL to run postgres integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, databaseURL)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})
	if err := s.EnsureSchema(ctx); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}

	userID := fmt.Sprintf("it-%d", time.Now().UnixNano())
	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM account_bundles WHERE user_id = $1`, userID)
	})

	bundle := domain.NewBundle()
	bundle.Products = append(bundle.Products, domain.Product{
		ID:    "p-soda",
		Name:  "Soda",
		Price: decimal.RequireFromString("2.50"),
		Stock: 10,
		Image: domain.EmojiImage("🥤"),
	})
	if err := s.Put(ctx, userID, bundle); err != nil {
		t.Fatalf("put: %v", err)
	}

	bundle.Products[0].Stock = 8
	if err := s.Put(ctx, userID, bundle); err != nil {
		t.Fatalf("second put: %v", err)
	}

	got, err := s.Get(ctx, userID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Products) != 1 || got.Products[0].Stock != 8 {
		t.Fatalf("expected upserted stock 8, got %+v", got.Products)
	}
	if !got.Products[0].Price.Equal(decimal.RequireFromString("2.5")) {
		t.Fatalf("expected price 2.5, got %s", got.Products[0].Price)
	}

	if err := s.Delete(ctx, userID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Get(ctx, userID); err != store.ErrNotFound {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}
