// Package legacy reads account state written by the previous storage
// layout, where every collection lived under its own flat string key.
package legacy

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/SEBSEB62/KAYE-sub000/internal/domain"
	"github.com/SEBSEB62/KAYE-sub000/internal/store"
)

// Source is a flat string key-value store.
type Source interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Delete(ctx context.Context, keys ...string) error
}

// Collections lists the legacy keys in the order they are read.
var Collections = []string{
	"settings",
	"products",
	"sales",
	"donations",
	"manualRefunds",
	"safeDeposits",
	"stockHistory",
	"cashOuts",
}

func Key(userID string, collection string) string {
	return "buvette_" + userID + "_" + collection
}

// Migrate assembles a bundle from the legacy keys of userID. It returns
// store.ErrNotFound when the account has neither settings nor products in
// the legacy store.
func Migrate(ctx context.Context, src Source, userID string) (domain.Bundle, error) {
	bundle := domain.NewBundle()
	found := false

	for _, collection := range Collections {
		raw, ok, err := src.Get(ctx, Key(userID, collection))
		if err != nil {
			return domain.Bundle{}, fmt.Errorf("reading legacy %s: %w", collection, err)
		}
		if !ok || raw == "" {
			continue
		}

		var target any
		switch collection {
		case "settings":
			settings := domain.DefaultSettings()
			bundle.Settings = &settings
			target = bundle.Settings
			found = true
		case "products":
			target = &bundle.Products
			found = true
		case "sales":
			target = &bundle.Sales
		case "donations":
			target = &bundle.Donations
		case "manualRefunds":
			target = &bundle.ManualRefunds
		case "safeDeposits":
			target = &bundle.SafeDeposits
		case "stockHistory":
			target = &bundle.StockHistory
		case "cashOuts":
			target = &bundle.CashOuts
		}
		if err := json.Unmarshal([]byte(raw), target); err != nil {
			return domain.Bundle{}, fmt.Errorf("decoding legacy %s: %w", collection, err)
		}
	}

	if !found {
		return domain.Bundle{}, store.ErrNotFound
	}
	// json.Unmarshal of "null" leaves nil slices; normalise them.
	return bundle.Clone(), nil
}

// Purge removes every legacy key of userID once the bundle has been saved
// in the new layout.
func Purge(ctx context.Context, src Source, userID string) error {
	keys := make([]string, 0, len(Collections))
	for _, collection := range Collections {
		keys = append(keys, Key(userID, collection))
	}
	return src.Delete(ctx, keys...)
}

// Map is an in-memory Source, used in development and tests.
type Map struct {
	mu     sync.Mutex
	values map[string]string
}

func NewMap(values map[string]string) *Map {
	copied := make(map[string]string, len(values))
	for k, v := range values {
		copied[k] = v
	}
	return &Map{values: copied}
}

func (m *Map) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *Map) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.values, key)
	}
	return nil
}

func (m *Map) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.values)
}
