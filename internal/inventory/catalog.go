// Package inventory owns the product catalog and its append-only stock
// ledger. Every stock change goes through Catalog so that each product's
// summed ledger deltas always equal its current stock.
package inventory

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/SEBSEB62/KAYE-sub000/internal/domain"
	"github.com/SEBSEB62/KAYE-sub000/internal/xid"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrInvalidProduct  = errors.New("invalid product")
	ErrInvalidQuantity = errors.New("quantity must be positive")
)

const defaultCategory = "Autre"

// Catalog is not safe for concurrent use; workspace.Workspace serialises
// access to it.
type Catalog struct {
	products []domain.Product
	history  []domain.StockHistoryEntry
	now      func() time.Time
}

func New(products []domain.Product, history []domain.StockHistoryEntry, now func() time.Time) *Catalog {
	if now == nil {
		now = time.Now
	}
	c := &Catalog{
		products: make([]domain.Product, 0, len(products)),
		history:  slices.Clone(history),
		now:      now,
	}
	for _, p := range products {
		c.products = append(c.products, p.Clone())
	}
	if c.history == nil {
		c.history = []domain.StockHistoryEntry{}
	}
	return c
}

// Add assigns an id and records the opening stock as an initial entry.
func (c *Catalog) Add(p domain.Product) (domain.Product, error) {
	p, err := normalize(p)
	if err != nil {
		return domain.Product{}, err
	}
	p.ID = xid.New("prd")
	c.products = append(c.products, p)
	if p.Stock > 0 {
		c.record(p, domain.StockInitial, p.Stock, "Stock initial")
	}
	return p.Clone(), nil
}

// Update replaces every field of an existing product. A stock change is
// recorded as an edit entry carrying the difference.
func (c *Catalog) Update(p domain.Product) (domain.Product, error) {
	idx := c.index(p.ID)
	if idx < 0 {
		return domain.Product{}, ErrProductNotFound
	}
	p, err := normalize(p)
	if err != nil {
		return domain.Product{}, err
	}
	previous := c.products[idx].Stock
	c.products[idx] = p
	if delta := p.Stock - previous; delta != 0 {
		c.record(p, domain.StockEdit, delta, "Modification manuelle")
	}
	return p.Clone(), nil
}

func (c *Catalog) Delete(id string) error {
	idx := c.index(id)
	if idx < 0 {
		return ErrProductNotFound
	}
	c.products = slices.Delete(c.products, idx, idx+1)
	return nil
}

func (c *Catalog) Restock(id string, qty int, note string) (domain.Product, error) {
	if qty <= 0 {
		return domain.Product{}, ErrInvalidQuantity
	}
	idx := c.index(id)
	if idx < 0 {
		return domain.Product{}, ErrProductNotFound
	}
	c.products[idx].Stock += qty
	if strings.TrimSpace(note) == "" {
		note = "Réapprovisionnement"
	}
	c.record(c.products[idx], domain.StockAdd, qty, note)
	return c.products[idx].Clone(), nil
}

// Sell removes up to qty units, never going below zero, and returns how many
// units were actually taken.
func (c *Catalog) Sell(id string, qty int, note string) (int, error) {
	if qty <= 0 {
		return 0, ErrInvalidQuantity
	}
	idx := c.index(id)
	if idx < 0 {
		return 0, ErrProductNotFound
	}
	applied := min(qty, c.products[idx].Stock)
	c.products[idx].Stock -= applied
	c.record(c.products[idx], domain.StockSale, -applied, note)
	return applied, nil
}

// Restore puts qty units back after a cancelled or refunded sale.
func (c *Catalog) Restore(id string, qty int, note string) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	idx := c.index(id)
	if idx < 0 {
		return ErrProductNotFound
	}
	c.products[idx].Stock += qty
	c.record(c.products[idx], domain.StockRefund, qty, note)
	return nil
}

// SetImage replaces the picture of a product without touching its stock.
func (c *Catalog) SetImage(id string, img domain.Image) (domain.Product, error) {
	idx := c.index(id)
	if idx < 0 {
		return domain.Product{}, ErrProductNotFound
	}
	c.products[idx].Image = img.Clone()
	return c.products[idx].Clone(), nil
}

func (c *Catalog) Get(id string) (domain.Product, bool) {
	idx := c.index(id)
	if idx < 0 {
		return domain.Product{}, false
	}
	return c.products[idx].Clone(), true
}

func (c *Catalog) List() []domain.Product {
	out := make([]domain.Product, len(c.products))
	for i, p := range c.products {
		out[i] = p.Clone()
	}
	return out
}

// History returns ledger entries in the order they were written. An empty
// productID returns the whole ledger.
func (c *Catalog) History(productID string) []domain.StockHistoryEntry {
	if productID == "" {
		return slices.Clone(c.history)
	}
	out := []domain.StockHistoryEntry{}
	for _, entry := range c.history {
		if entry.ProductID == productID {
			out = append(out, entry)
		}
	}
	return out
}

func (c *Catalog) index(id string) int {
	if id == "" {
		return -1
	}
	return slices.IndexFunc(c.products, func(p domain.Product) bool { return p.ID == id })
}

func (c *Catalog) record(p domain.Product, kind domain.StockChangeType, delta int, note string) {
	c.history = append(c.history, domain.StockHistoryEntry{
		ID:             xid.New("stk"),
		ProductID:      p.ID,
		ProductName:    p.Name,
		Type:           kind,
		QuantityChange: delta,
		NewStock:       p.Stock,
		Note:           note,
		Date:           c.now(),
	})
}

func normalize(p domain.Product) (domain.Product, error) {
	p = p.Clone()
	p.Name = strings.TrimSpace(p.Name)
	p.Category = strings.TrimSpace(p.Category)
	if p.Name == "" {
		return p, fmt.Errorf("%w: name is required", ErrInvalidProduct)
	}
	if p.Price.IsNegative() || p.PurchasePrice.IsNegative() || p.TokenPrice.IsNegative() {
		return p, fmt.Errorf("%w: prices cannot be negative", ErrInvalidProduct)
	}
	if p.LaborTimeMinutes.IsNegative() {
		return p, fmt.Errorf("%w: labor time cannot be negative", ErrInvalidProduct)
	}
	if p.Stock < 0 || p.ServingsPerPackage < 0 {
		return p, fmt.Errorf("%w: stock cannot be negative", ErrInvalidProduct)
	}
	if p.Category == "" {
		p.Category = defaultCategory
	}
	return p, nil
}
