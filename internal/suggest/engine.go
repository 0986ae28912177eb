// Package suggest proposes an extra product for the open cart, from what
// past customers bought together, and optionally asks a remote model for
// catalog ideas.
package suggest

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/SEBSEB62/KAYE-sub000/internal/cache"
	"github.com/SEBSEB62/KAYE-sub000/internal/domain"
)

const (
	defaultTTL        = 20 * time.Second
	defaultConfidence = 0.35
	// stock level at which the stock signal saturates
	healthyStock = 40.0
	// margin ratio at which the margin signal saturates
	targetMargin = 0.6
)

type Request struct {
	AccountID string
	Cart      []domain.CartItem
	Products  []domain.Product
	Sales     []domain.SaleRecord
	At        time.Time
}

type Suggestion struct {
	ProductID  string          `json:"productId"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	ReasonCode string          `json:"reasonCode"`
	Confidence float64         `json:"confidence"`
}

type Response struct {
	Suggestion *Suggestion `json:"suggestion"`
}

type Engine struct {
	cache         cache.Cache
	cacheTTL      time.Duration
	minConfidence float64
}

func NewEngine(store cache.Cache, ttl time.Duration) *Engine {
	if store == nil {
		store = cache.Noop{}
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Engine{cache: store, cacheTTL: ttl, minConfidence: defaultConfidence}
}

// Suggest returns the single best product to offer next, or an empty
// response when nothing scores above the confidence floor.
func (e *Engine) Suggest(ctx context.Context, req Request) Response {
	inCart := cartQuantities(req.Cart)
	if len(inCart) == 0 {
		return Response{}
	}

	key := cacheKey(req, inCart)
	var cached Response
	if ok, err := e.cache.Get(ctx, key, &cached); err == nil && ok {
		return cached
	}

	affinity := pairAffinity(req.Sales, inCart)
	at := req.At
	if at.IsZero() {
		at = time.Now()
	}

	var (
		best      *Suggestion
		bestScore float64
	)
	for _, p := range req.Products {
		if _, ok := inCart[p.ID]; ok || p.Stock <= 0 {
			continue
		}
		pair := clamp(affinity[p.ID], 0, 1)
		margin := clamp(marginRatio(p)/targetMargin, 0, 1)
		stock := clamp(float64(p.Stock)/healthyStock, 0, 1)
		slot := categoryHourRelevance(p.Category, at.Hour())

		score := 0.45*pair + 0.25*margin + 0.20*stock + 0.10*slot
		confidence := clamp(score, 0, 1)
		if confidence < e.minConfidence || confidence <= bestScore {
			continue
		}
		bestScore = confidence
		best = &Suggestion{
			ProductID:  p.ID,
			Name:       p.Name,
			Price:      p.Price,
			ReasonCode: deriveReason(pair, margin, stock, slot),
			Confidence: round2(confidence),
		}
	}

	resp := Response{Suggestion: best}
	_ = e.cache.Set(ctx, key, resp, e.cacheTTL)
	return resp
}

func cartQuantities(items []domain.CartItem) map[string]int {
	out := make(map[string]int, len(items))
	for _, item := range items {
		if item.IsMisc || item.ID == "" || item.Quantity < 1 {
			continue
		}
		out[item.ID] += item.Quantity
	}
	return out
}

// pairAffinity returns, per product, the share of past sales containing a
// cart product that also contained it.
func pairAffinity(sales []domain.SaleRecord, inCart map[string]int) map[string]float64 {
	together := map[string]int{}
	anchors := 0
	for _, sale := range sales {
		if sale.Refunded {
			continue
		}
		ids := map[string]bool{}
		anchored := false
		for _, item := range sale.Items {
			if item.IsMisc {
				continue
			}
			if _, ok := inCart[item.ID]; ok {
				anchored = true
				continue
			}
			ids[item.ID] = true
		}
		if !anchored {
			continue
		}
		anchors++
		for id := range ids {
			together[id]++
		}
	}

	out := make(map[string]float64, len(together))
	if anchors == 0 {
		return out
	}
	for id, n := range together {
		out[id] = float64(n) / float64(anchors)
	}
	return out
}

func marginRatio(p domain.Product) float64 {
	if !p.Price.IsPositive() {
		return 0
	}
	ratio, _ := p.Price.Sub(p.PurchasePrice).Div(p.Price).Float64()
	return ratio
}

func deriveReason(pair, margin, stock, slot float64) string {
	type reasonWeight struct {
		code  string
		value float64
	}
	reasons := []reasonWeight{
		{code: "often_bought_together", value: pair},
		{code: "high_margin", value: margin},
		{code: "healthy_stock", value: stock},
		{code: "time_slot_match", value: slot},
	}
	slices.SortStableFunc(reasons, func(a, b reasonWeight) int {
		switch {
		case a.value > b.value:
			return -1
		case a.value < b.value:
			return 1
		default:
			return 0
		}
	})
	return reasons[0].code
}

func categoryHourRelevance(category string, hour int) float64 {
	switch strings.ToLower(category) {
	case "boissons":
		if hour >= 11 && hour <= 22 {
			return 0.95
		}
	case "snacks", "desserts":
		if hour >= 15 && hour <= 19 {
			return 0.90
		}
	case "repas":
		if (hour >= 11 && hour <= 14) || (hour >= 18 && hour <= 21) {
			return 0.95
		}
	}
	return 0.55
}

func cacheKey(req Request, inCart map[string]int) string {
	ids := make([]string, 0, len(inCart))
	for id := range inCart {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	parts := make([]string, 0, len(ids)+3)
	parts = append(parts, req.AccountID)
	for _, id := range ids {
		parts = append(parts, fmt.Sprintf("%s:%d", id, inCart[id]))
	}
	parts = append(parts, fmt.Sprintf("sales:%d", len(req.Sales)), fmt.Sprintf("h:%d", req.At.Hour()))

	hash := sha1.Sum([]byte(strings.Join(parts, "|")))
	return "buvette:suggest:" + hex.EncodeToString(hash[:])
}

func clamp(val, lo, hi float64) float64 {
	return min(max(val, lo), hi)
}

func round2(val float64) float64 {
	return float64(int(val*100+0.5)) / 100
}
