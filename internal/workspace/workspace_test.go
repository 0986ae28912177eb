package workspace

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SEBSEB62/KAYE-sub000/internal/domain"
	"github.com/SEBSEB62/KAYE-sub000/internal/sales"
)

func newWorkspace(t *testing.T) (*Workspace, *atomic.Int32) {
	t.Helper()
	var changes atomic.Int32
	w := New("acct-1", domain.NewBundle(), Options{OnChange: func() { changes.Add(1) }})
	return w, &changes
}

func TestMutationsNotifyAndCartDoesNot(t *testing.T) {
	w, changes := newWorkspace(t)

	p, err := w.AddProduct(domain.Product{Name: "Soda", Price: decimal.RequireFromString("2.5"), Stock: 3})
	require.NoError(t, err)
	assert.EqualValues(t, 1, changes.Load())

	_, err = w.AddToCart(p.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, changes.Load())

	_, err = w.ProcessSale(domain.PaymentCash, "", "Léa")
	require.NoError(t, err)
	assert.EqualValues(t, 2, changes.Load())

	_, err = w.ProcessSale(domain.PaymentCash, "", "")
	assert.ErrorIs(t, err, sales.ErrEmptyCart)
	assert.EqualValues(t, 2, changes.Load())
}

func TestSnapshotRoundTrip(t *testing.T) {
	w, _ := newWorkspace(t)
	p, err := w.AddProduct(domain.Product{Name: "Soda", Price: decimal.RequireFromString("2.5"), Stock: 3})
	require.NoError(t, err)
	_, err = w.AddToCart(p.ID)
	require.NoError(t, err)
	_, err = w.ProcessSale(domain.PaymentCard, "Paul", "")
	require.NoError(t, err)
	_, err = w.AddDonation(decimal.NewFromInt(5), domain.PaymentCash, "")
	require.NoError(t, err)

	snap := w.Snapshot()
	restored := New("acct-1", snap, Options{})

	assert.Equal(t, w.Products(), restored.Products())
	assert.Equal(t, w.Sales(), restored.Sales())
	assert.Equal(t, w.Settings(), restored.Settings())
	assert.Equal(t, w.StockHistory(""), restored.StockHistory(""))
	assert.Len(t, snap.Donations, 1)
}

func TestReplaceEmptiesCart(t *testing.T) {
	w, changes := newWorkspace(t)
	p, err := w.AddProduct(domain.Product{Name: "Soda", Stock: 3})
	require.NoError(t, err)
	_, err = w.AddToCart(p.ID)
	require.NoError(t, err)

	w.Replace(domain.NewBundle())
	assert.Empty(t, w.Cart())
	assert.Empty(t, w.Products())
	assert.EqualValues(t, 2, changes.Load())
}

func TestUpdateSettingsValidates(t *testing.T) {
	w, changes := newWorkspace(t)

	_, err := w.UpdateSettings(func(s *domain.Settings) error {
		s.BusinessName = "  "
		return nil
	})
	assert.ErrorIs(t, err, ErrInvalidSettings)

	_, err = w.UpdateSettings(func(s *domain.Settings) error {
		s.URSSAFRate = decimal.NewFromInt(140)
		return nil
	})
	assert.ErrorIs(t, err, ErrInvalidSettings)

	boom := errors.New("boom")
	_, err = w.UpdateSettings(func(s *domain.Settings) error {
		s.BusinessName = "changed"
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "Ma Buvette", w.Settings().BusinessName)
	assert.EqualValues(t, 0, changes.Load())

	got, err := w.UpdateSettings(func(s *domain.Settings) error {
		s.BusinessName = "Buvette du stade"
		s.TokenMode = true
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "Buvette du stade", got.BusinessName)
	assert.EqualValues(t, 1, changes.Load())
}

func TestCartTotalFollowsTokenMode(t *testing.T) {
	w, _ := newWorkspace(t)
	p, err := w.AddProduct(domain.Product{Name: "Soda", Price: decimal.RequireFromString("2.5"), TokenPrice: decimal.NewFromInt(2), Stock: 3})
	require.NoError(t, err)
	_, err = w.AddToCart(p.ID)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("2.5").Equal(w.CartTotal()))

	_, err = w.UpdateSettings(func(s *domain.Settings) error {
		s.TokenMode = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(2).Equal(w.CartTotal()))
}

func TestConcurrentRestockKeepsLedgerConsistent(t *testing.T) {
	w, _ := newWorkspace(t)
	p, err := w.AddProduct(domain.Product{Name: "Soda", Stock: 1})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = w.Restock(p.ID, 2, "")
		}()
	}
	wg.Wait()

	got, ok := w.Product(p.ID)
	require.True(t, ok)
	assert.Equal(t, 41, got.Stock)

	sum := 0
	for _, entry := range w.StockHistory(p.ID) {
		sum += entry.QuantityChange
	}
	assert.Equal(t, got.Stock, sum)
}
