// Package sales implements the cart and checkout state machine.
package sales

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/SEBSEB62/KAYE-sub000/internal/domain"
	"github.com/SEBSEB62/KAYE-sub000/internal/inventory"
	"github.com/SEBSEB62/KAYE-sub000/internal/xid"
)

var (
	ErrOutOfStock        = errors.New("product is out of stock")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrNotInCart         = errors.New("item is not in the cart")
	ErrEmptyCart         = errors.New("cart is empty")
	ErrInvalidItem       = errors.New("invalid cart item")
	ErrSaleNotFound      = errors.New("sale not found")
	ErrAlreadyRefunded   = errors.New("sale already refunded")
	ErrInvalidPayment    = errors.New("unsupported payment method")
)

const miscPrefix = "misc"

// Stock is the part of the catalog the register needs. *inventory.Catalog
// satisfies it.
type Stock interface {
	Get(id string) (domain.Product, bool)
	Sell(id string, qty int, note string) (int, error)
	Restore(id string, qty int, note string) error
}

// Checkout carries everything ProcessSale needs besides the cart.
type Checkout struct {
	Method       domain.PaymentMethod
	CustomerName string
	MemberName   string
	TokenMode    bool
}

// Register holds the open cart and the sales journal, most recent first.
type Register struct {
	stock Stock
	cart  []domain.CartItem
	sales []domain.SaleRecord
	now   func() time.Time
}

func New(stock Stock, sales []domain.SaleRecord, now func() time.Time) *Register {
	if now == nil {
		now = time.Now
	}
	r := &Register{
		stock: stock,
		cart:  []domain.CartItem{},
		sales: make([]domain.SaleRecord, 0, len(sales)),
		now:   now,
	}
	for _, sale := range sales {
		r.sales = append(r.sales, sale.Clone())
	}
	return r
}

// AddToCart adds one unit of a catalog product. Nothing changes when the
// product has no stock or the line would exceed it.
func (r *Register) AddToCart(productID string) (domain.CartItem, error) {
	product, ok := r.stock.Get(productID)
	if !ok {
		return domain.CartItem{}, inventory.ErrProductNotFound
	}
	if product.Stock <= 0 {
		return domain.CartItem{}, fmt.Errorf("%w: %s", ErrOutOfStock, product.Name)
	}

	if idx := r.line(productID); idx >= 0 {
		if r.cart[idx].Quantity+1 > product.Stock {
			return domain.CartItem{}, fmt.Errorf("%w: only %d %s available", ErrInsufficientStock, product.Stock, product.Name)
		}
		r.cart[idx].Quantity++
		return r.cart[idx].Clone(), nil
	}

	item := domain.CartItem{Product: product, Quantity: 1}
	r.cart = append(r.cart, item)
	return item.Clone(), nil
}

// UpdateCartQuantity sets a line's quantity, clamped to the product's current
// stock. A quantity of zero or less removes the line.
func (r *Register) UpdateCartQuantity(lineID string, qty int) (domain.CartItem, error) {
	idx := r.line(lineID)
	if idx < 0 {
		return domain.CartItem{}, ErrNotInCart
	}
	if qty > 0 && !r.cart[idx].IsMisc {
		product, ok := r.stock.Get(lineID)
		if !ok {
			return domain.CartItem{}, inventory.ErrProductNotFound
		}
		qty = min(qty, product.Stock)
	}
	if qty <= 0 {
		r.cart = slices.Delete(r.cart, idx, idx+1)
		return domain.CartItem{}, nil
	}
	r.cart[idx].Quantity = qty
	return r.cart[idx].Clone(), nil
}

func (r *Register) RemoveFromCart(lineID string) error {
	idx := r.line(lineID)
	if idx < 0 {
		return ErrNotInCart
	}
	r.cart = slices.Delete(r.cart, idx, idx+1)
	return nil
}

// AddMiscItem adds a free-form line with no catalog product behind it. The
// same price applies in both pricing schemes.
func (r *Register) AddMiscItem(name string, price decimal.Decimal) (domain.CartItem, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.CartItem{}, fmt.Errorf("%w: name is required", ErrInvalidItem)
	}
	if !price.IsPositive() {
		return domain.CartItem{}, fmt.Errorf("%w: price must be positive", ErrInvalidItem)
	}
	item := domain.CartItem{
		Product: domain.Product{
			ID:         xid.New(miscPrefix),
			Name:       name,
			Price:      price,
			TokenPrice: price,
			Category:   "Divers",
		},
		Quantity: 1,
		IsMisc:   true,
	}
	r.cart = append(r.cart, item)
	return item.Clone(), nil
}

func (r *Register) ClearCart() {
	r.cart = []domain.CartItem{}
}

func (r *Register) Cart() []domain.CartItem {
	out := make([]domain.CartItem, len(r.cart))
	for i, item := range r.cart {
		out[i] = item.Clone()
	}
	return out
}

func (r *Register) CartTotal(tokenMode bool) decimal.Decimal {
	return linesTotal(r.cart, tokenMode)
}

// ProcessSale turns the cart into a sale record. Stock is checked again for
// every line before anything is written, so a failed checkout leaves the
// cart, the journal and the catalog untouched.
func (r *Register) ProcessSale(co Checkout) (domain.SaleRecord, error) {
	if !co.Method.Valid() {
		return domain.SaleRecord{}, fmt.Errorf("%w: %q", ErrInvalidPayment, co.Method)
	}
	if len(r.cart) == 0 {
		return domain.SaleRecord{}, ErrEmptyCart
	}
	if err := r.checkStock(); err != nil {
		return domain.SaleRecord{}, err
	}

	sale := domain.SaleRecord{
		ID:            xid.New("sale"),
		Date:          r.now(),
		Items:         r.Cart(),
		Total:         linesTotal(r.cart, co.TokenMode),
		PaymentMethod: co.Method,
		CustomerName:  strings.TrimSpace(co.CustomerName),
		MemberName:    strings.TrimSpace(co.MemberName),
		TokenMode:     co.TokenMode,
	}

	note := "Vente " + sale.ID
	for _, item := range sale.Items {
		if item.IsMisc {
			continue
		}
		if _, err := r.stock.Sell(item.ID, item.Quantity, note); err != nil {
			return domain.SaleRecord{}, fmt.Errorf("selling %s: %w", item.ID, err)
		}
	}

	r.sales = slices.Insert(r.sales, 0, sale)
	r.ClearCart()
	return sale.Clone(), nil
}

// DeleteSale removes a sale and puts its units back on the shelf. A sale that
// was already refunded has no stock left to restore.
func (r *Register) DeleteSale(id string) error {
	idx := r.saleIndex(id)
	if idx < 0 {
		return ErrSaleNotFound
	}
	sale := r.sales[idx]
	if !sale.Refunded {
		if err := r.restore(sale, "Annulation vente "+sale.ID); err != nil {
			return err
		}
	}
	r.sales = slices.Delete(r.sales, idx, idx+1)
	return nil
}

// MarkRefunded cancels a sale but keeps it in the journal.
func (r *Register) MarkRefunded(id string) (domain.SaleRecord, error) {
	idx := r.saleIndex(id)
	if idx < 0 {
		return domain.SaleRecord{}, ErrSaleNotFound
	}
	if r.sales[idx].Refunded {
		return domain.SaleRecord{}, ErrAlreadyRefunded
	}
	if err := r.restore(r.sales[idx], "Remboursement vente "+id); err != nil {
		return domain.SaleRecord{}, err
	}
	r.sales[idx].Refunded = true
	return r.sales[idx].Clone(), nil
}

func (r *Register) Sale(id string) (domain.SaleRecord, bool) {
	idx := r.saleIndex(id)
	if idx < 0 {
		return domain.SaleRecord{}, false
	}
	return r.sales[idx].Clone(), true
}

func (r *Register) Sales() []domain.SaleRecord {
	out := make([]domain.SaleRecord, len(r.sales))
	for i, sale := range r.sales {
		out[i] = sale.Clone()
	}
	return out
}

func (r *Register) checkStock() error {
	wanted := map[string]int{}
	for _, item := range r.cart {
		if !item.IsMisc {
			wanted[item.ID] += item.Quantity
		}
	}
	for id, qty := range wanted {
		product, ok := r.stock.Get(id)
		if !ok {
			return fmt.Errorf("%w: %s", inventory.ErrProductNotFound, id)
		}
		if qty > product.Stock {
			return fmt.Errorf("%w: %s has %d left, cart holds %d", ErrInsufficientStock, product.Name, product.Stock, qty)
		}
	}
	return nil
}

// restore skips products deleted since the sale; there is nothing left to
// put stock back on.
func (r *Register) restore(sale domain.SaleRecord, note string) error {
	for _, item := range sale.Items {
		if item.IsMisc || item.Quantity <= 0 {
			continue
		}
		err := r.stock.Restore(item.ID, item.Quantity, note)
		if err != nil && !errors.Is(err, inventory.ErrProductNotFound) {
			return fmt.Errorf("restoring %s: %w", item.ID, err)
		}
	}
	return nil
}

func (r *Register) line(id string) int {
	return slices.IndexFunc(r.cart, func(item domain.CartItem) bool { return item.ID == id })
}

func (r *Register) saleIndex(id string) int {
	return slices.IndexFunc(r.sales, func(sale domain.SaleRecord) bool { return sale.ID == id })
}

func linesTotal(items []domain.CartItem, tokenMode bool) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.LineTotal(tokenMode))
	}
	return total
}
