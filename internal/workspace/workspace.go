// Package workspace composes one account's catalog, register and ledger
// behind a single lock and reports every committed change to a hook.
package workspace

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/SEBSEB62/KAYE-sub000/internal/domain"
	"github.com/SEBSEB62/KAYE-sub000/internal/inventory"
	"github.com/SEBSEB62/KAYE-sub000/internal/ledger"
	"github.com/SEBSEB62/KAYE-sub000/internal/sales"
)

var ErrInvalidSettings = errors.New("invalid settings")

var hundred = decimal.NewFromInt(100)

type Options struct {
	Now func() time.Time
	// OnChange runs after every successful persistent mutation, outside the
	// workspace lock. Cart edits do not trigger it.
	OnChange func()
}

type Workspace struct {
	accountID string
	now       func() time.Time
	onChange  func()

	mu       sync.RWMutex
	settings domain.Settings
	catalog  *inventory.Catalog
	register *sales.Register
	ledger   *ledger.Ledger
}

func New(accountID string, bundle domain.Bundle, opts Options) *Workspace {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.OnChange == nil {
		opts.OnChange = func() {}
	}
	w := &Workspace{accountID: accountID, now: opts.Now, onChange: opts.OnChange}
	w.load(bundle)
	return w
}

func (w *Workspace) AccountID() string { return w.accountID }

// load must be called with mu held for writing, or before w is shared.
func (w *Workspace) load(bundle domain.Bundle) {
	bundle = bundle.Clone()
	if bundle.Settings == nil {
		settings := domain.DefaultSettings()
		bundle.Settings = &settings
	}
	w.settings = *bundle.Settings
	w.catalog = inventory.New(bundle.Products, bundle.StockHistory, w.now)
	w.register = sales.New(w.catalog, bundle.Sales, w.now)
	w.ledger = ledger.New(bundle, w.now)
}

// Snapshot returns a deep copy of the persistent state. The open cart is not
// part of it.
func (w *Workspace) Snapshot() domain.Bundle {
	w.mu.RLock()
	defer w.mu.RUnlock()
	settings := w.settings.Clone()
	return domain.Bundle{
		Products:      w.catalog.List(),
		Settings:      &settings,
		Sales:         w.register.Sales(),
		Donations:     w.ledger.Donations(),
		ManualRefunds: w.ledger.ManualRefunds(),
		SafeDeposits:  w.ledger.SafeDeposits(),
		StockHistory:  w.catalog.History(""),
		CashOuts:      w.ledger.CashOuts(),
	}
}

// Replace swaps the whole state for bundle and empties the cart.
func (w *Workspace) Replace(bundle domain.Bundle) {
	w.mu.Lock()
	w.load(bundle)
	w.mu.Unlock()
	w.onChange()
}

func (w *Workspace) Settings() domain.Settings {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.settings.Clone()
}

// UpdateSettings applies fn to a copy of the settings and keeps the result
// only when fn succeeds and the result is valid. fn runs under the workspace
// lock and must not call back into w.
func (w *Workspace) UpdateSettings(fn func(*domain.Settings) error) (domain.Settings, error) {
	return mutate(w, func() (domain.Settings, error) {
		next := w.settings.Clone()
		if err := fn(&next); err != nil {
			return domain.Settings{}, err
		}
		if err := validateSettings(&next); err != nil {
			return domain.Settings{}, err
		}
		w.settings = next
		return next.Clone(), nil
	})
}

func (w *Workspace) Products() []domain.Product {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.catalog.List()
}

func (w *Workspace) Product(id string) (domain.Product, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.catalog.Get(id)
}

func (w *Workspace) StockHistory(productID string) []domain.StockHistoryEntry {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.catalog.History(productID)
}

func (w *Workspace) AddProduct(p domain.Product) (domain.Product, error) {
	return mutate(w, func() (domain.Product, error) { return w.catalog.Add(p) })
}

func (w *Workspace) UpdateProduct(p domain.Product) (domain.Product, error) {
	return mutate(w, func() (domain.Product, error) { return w.catalog.Update(p) })
}

func (w *Workspace) SetProductImage(id string, img domain.Image) (domain.Product, error) {
	return mutate(w, func() (domain.Product, error) { return w.catalog.SetImage(id, img) })
}

// DeleteProduct also drops the product's cart line, if any.
func (w *Workspace) DeleteProduct(id string) error {
	_, err := mutate(w, func() (struct{}, error) {
		if err := w.catalog.Delete(id); err != nil {
			return struct{}{}, err
		}
		if err := w.register.RemoveFromCart(id); err != nil && !errors.Is(err, sales.ErrNotInCart) {
			return struct{}{}, err
		}
		return struct{}{}, nil
	})
	return err
}

func (w *Workspace) Restock(id string, qty int, note string) (domain.Product, error) {
	return mutate(w, func() (domain.Product, error) { return w.catalog.Restock(id, qty, note) })
}

func (w *Workspace) Cart() []domain.CartItem {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.register.Cart()
}

// CartTotal prices the cart with the active pricing scheme.
func (w *Workspace) CartTotal() decimal.Decimal {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.register.CartTotal(w.settings.TokenMode)
}

func (w *Workspace) AddToCart(productID string) (domain.CartItem, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.register.AddToCart(productID)
}

func (w *Workspace) UpdateCartQuantity(lineID string, qty int) (domain.CartItem, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.register.UpdateCartQuantity(lineID, qty)
}

func (w *Workspace) RemoveFromCart(lineID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.register.RemoveFromCart(lineID)
}

func (w *Workspace) AddMiscItem(name string, price decimal.Decimal) (domain.CartItem, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.register.AddMiscItem(name, price)
}

func (w *Workspace) ClearCart() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.register.ClearCart()
}

func (w *Workspace) ProcessSale(method domain.PaymentMethod, customerName, memberName string) (domain.SaleRecord, error) {
	return mutate(w, func() (domain.SaleRecord, error) {
		return w.register.ProcessSale(sales.Checkout{
			Method:       method,
			CustomerName: customerName,
			MemberName:   memberName,
			TokenMode:    w.settings.TokenMode,
		})
	})
}

func (w *Workspace) DeleteSale(id string) error {
	_, err := mutate(w, func() (struct{}, error) { return struct{}{}, w.register.DeleteSale(id) })
	return err
}

func (w *Workspace) MarkRefunded(id string) (domain.SaleRecord, error) {
	return mutate(w, func() (domain.SaleRecord, error) { return w.register.MarkRefunded(id) })
}

func (w *Workspace) Sales() []domain.SaleRecord {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.register.Sales()
}

func (w *Workspace) Sale(id string) (domain.SaleRecord, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.register.Sale(id)
}

func (w *Workspace) AddDonation(amount decimal.Decimal, method domain.PaymentMethod, donor string) (domain.DonationRecord, error) {
	return mutate(w, func() (domain.DonationRecord, error) { return w.ledger.AddDonation(amount, method, donor) })
}

func (w *Workspace) AddManualRefund(amount decimal.Decimal, reason string) (domain.ManualRefund, error) {
	return mutate(w, func() (domain.ManualRefund, error) { return w.ledger.AddManualRefund(amount, reason) })
}

func (w *Workspace) AddSafeDeposit(amount decimal.Decimal, note string) (domain.SafeDepositRecord, error) {
	return mutate(w, func() (domain.SafeDepositRecord, error) { return w.ledger.AddSafeDeposit(amount, note) })
}

func (w *Workspace) AddCashOut(amount decimal.Decimal, reason string) (domain.CashOutRecord, error) {
	return mutate(w, func() (domain.CashOutRecord, error) { return w.ledger.AddCashOut(amount, reason) })
}

func (w *Workspace) Donations() []domain.DonationRecord {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.ledger.Donations()
}

func (w *Workspace) ManualRefunds() []domain.ManualRefund {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.ledger.ManualRefunds()
}

func (w *Workspace) SafeDeposits() []domain.SafeDepositRecord {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.ledger.SafeDeposits()
}

func (w *Workspace) CashOuts() []domain.CashOutRecord {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.ledger.CashOuts()
}

func (w *Workspace) DeleteDonation(id string) error {
	_, err := mutate(w, func() (struct{}, error) { return struct{}{}, w.ledger.DeleteDonation(id) })
	return err
}

func (w *Workspace) DeleteManualRefund(id string) error {
	_, err := mutate(w, func() (struct{}, error) { return struct{}{}, w.ledger.DeleteManualRefund(id) })
	return err
}

func (w *Workspace) DeleteSafeDeposit(id string) error {
	_, err := mutate(w, func() (struct{}, error) { return struct{}{}, w.ledger.DeleteSafeDeposit(id) })
	return err
}

func (w *Workspace) DeleteCashOut(id string) error {
	_, err := mutate(w, func() (struct{}, error) { return struct{}{}, w.ledger.DeleteCashOut(id) })
	return err
}

func mutate[T any](w *Workspace, fn func() (T, error)) (T, error) {
	w.mu.Lock()
	out, err := fn()
	w.mu.Unlock()
	if err == nil {
		w.onChange()
	}
	return out, err
}

func validateSettings(s *domain.Settings) error {
	s.BusinessName = strings.TrimSpace(s.BusinessName)
	if s.BusinessName == "" {
		return fmt.Errorf("%w: business name is required", ErrInvalidSettings)
	}
	if s.TokenValue.IsNegative() || s.HourlyRate.IsNegative() || s.InitialCash.IsNegative() {
		return fmt.Errorf("%w: amounts cannot be negative", ErrInvalidSettings)
	}
	if s.URSSAFRate.IsNegative() || s.URSSAFRate.GreaterThan(hundred) {
		return fmt.Errorf("%w: urssaf rate must be between 0 and 100", ErrInvalidSettings)
	}
	if s.Theme == "" {
		s.Theme = "light"
	}
	return nil
}
