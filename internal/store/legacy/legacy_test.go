package legacy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SEBSEB62/KAYE-sub000/internal/domain"
	"github.com/SEBSEB62/KAYE-sub000/internal/store"
)

func TestMigrateAssemblesBundle(t *testing.T) {
	src := NewMap(map[string]string{
		Key("u1", "settings"): `{"businessName":"Buvette du Stade","tokenMode":true,"hourlyRate":12}`,
		Key("u1", "products"): `[{"id":"p1","name":"Soda","price":2.5,"purchasePrice":1,"stock":10,"category":"Boissons","image":"🥤"}]`,
		Key("u1", "sales"):    `[]`,
		Key("u2", "products"): `[{"id":"other"}]`,
	})

	bundle, err := Migrate(context.Background(), src, "u1")
	require.NoError(t, err)
	require.NotNil(t, bundle.Settings)
	assert.Equal(t, "Buvette du Stade", bundle.Settings.BusinessName)
	assert.True(t, bundle.Settings.TokenMode)
	// Fields absent from the legacy settings keep their defaults.
	assert.NotEmpty(t, bundle.Settings.Categories)

	require.Len(t, bundle.Products, 1)
	assert.Equal(t, domain.EmojiImage("🥤"), bundle.Products[0].Image)
	assert.Equal(t, "2.5", bundle.Products[0].Price.String())
	assert.NotNil(t, bundle.CashOuts)
}

func TestMigrateWithoutLegacyData(t *testing.T) {
	_, err := Migrate(context.Background(), NewMap(nil), "nobody")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestMigrateRejectsCorruptValue(t *testing.T) {
	src := NewMap(map[string]string{Key("u1", "products"): `{not json`})
	_, err := Migrate(context.Background(), src, "u1")
	assert.Error(t, err)
}

func TestPurgeRemovesOnlyAccountKeys(t *testing.T) {
	src := NewMap(map[string]string{
		Key("u1", "settings"): `{}`,
		Key("u1", "products"): `[]`,
		Key("u2", "products"): `[]`,
	})

	require.NoError(t, Purge(context.Background(), src, "u1"))
	assert.Equal(t, 1, src.Len())
}
