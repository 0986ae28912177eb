package domain

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImageJSON(t *testing.T) {
	t.Run("emoji", func(t *testing.T) {
		raw, err := json.Marshal(EmojiImage("🥤"))
		require.NoError(t, err)

		var got Image
		require.NoError(t, json.Unmarshal(raw, &got))
		assert.Equal(t, ImageEmoji, got.Kind)
		assert.Equal(t, "🥤", got.Emoji)
	})

	t.Run("bitmap", func(t *testing.T) {
		raw, err := json.Marshal(BitmapImage([]byte{0xff, 0xd8, 0xff}, "image/jpeg"))
		require.NoError(t, err)

		var got Image
		require.NoError(t, json.Unmarshal(raw, &got))
		assert.Equal(t, ImageBitmap, got.Kind)
		assert.Equal(t, []byte{0xff, 0xd8, 0xff}, got.Data)
		assert.Equal(t, "image/jpeg", got.MIMEType)
	})

	t.Run("bare string from older exports", func(t *testing.T) {
		var got Image
		require.NoError(t, json.Unmarshal([]byte(`"🍟"`), &got))
		assert.Equal(t, EmojiImage("🍟"), got)
	})

	t.Run("zero value is null", func(t *testing.T) {
		raw, err := json.Marshal(Image{})
		require.NoError(t, err)
		assert.Equal(t, "null", string(raw))

		var got Image
		require.NoError(t, json.Unmarshal(raw, &got))
		assert.True(t, got.IsZero())
	})

	t.Run("unknown kind", func(t *testing.T) {
		var got Image
		assert.Error(t, json.Unmarshal([]byte(`{"kind":"svg"}`), &got))
	})
}

func TestPaymentMethodFee(t *testing.T) {
	tests := []struct {
		method PaymentMethod
		amount string
		want   string
	}{
		{PaymentCard, "100", "1.75"},
		{PaymentPaypal, "10", "0.64"},
		{PaymentPaypal, "0", "0"},
		{PaymentCash, "100", "0"},
		{PaymentWero, "100", "0"},
	}

	for _, tt := range tests {
		t.Run(string(tt.method)+"/"+tt.amount, func(t *testing.T) {
			got := tt.method.Fee(decimal.RequireFromString(tt.amount))
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "got %s", got)
		})
	}
}

func TestParsePaymentMethod(t *testing.T) {
	got, err := ParsePaymentMethod(" PayPal ")
	require.NoError(t, err)
	assert.Equal(t, PaymentPaypal, got)

	_, err = ParsePaymentMethod("bitcoin")
	assert.Error(t, err)
}

func TestBundleCloneIsDeep(t *testing.T) {
	b := NewBundle()
	b.Products = append(b.Products, Product{ID: "p1", Image: BitmapImage([]byte{1, 2}, "image/png")})
	b.Sales = append(b.Sales, SaleRecord{ID: "s1", Items: []CartItem{{Product: Product{ID: "p1"}, Quantity: 1}}})

	clone := b.Clone()
	clone.Products[0].Image.Data[0] = 9
	clone.Sales[0].Items[0].Quantity = 5
	clone.Settings.Categories[0] = "changed"

	assert.Equal(t, byte(1), b.Products[0].Image.Data[0])
	assert.Equal(t, 1, b.Sales[0].Items[0].Quantity)
	assert.NotEqual(t, "changed", b.Settings.Categories[0])
}
