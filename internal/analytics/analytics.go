// Package analytics computes the financial report of an event from the raw
// sale and cash-movement journals. Compute is pure: it never mutates its
// input and returns identical output for identical input.
package analytics

import (
	"cmp"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/SEBSEB62/KAYE-sub000/internal/domain"
)

const (
	TopN            = 5
	dayLayout       = "2006-01-02"
	miscCategory    = "Divers"
	defaultCategory = "Autre"
)

var (
	sixty   = decimal.NewFromInt(60)
	hundred = decimal.NewFromInt(100)
)

// DateRange bounds a report by calendar day. Start is taken from the start of
// its day and End through the last instant of its day. A zero bound is open.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls inside the range.
func (r DateRange) Contains(t time.Time) bool {
	if !r.Start.IsZero() && t.Before(startOfDay(r.Start)) {
		return false
	}
	if !r.End.IsZero() && t.After(endOfDay(r.End)) {
		return false
	}
	return true
}

type Input struct {
	Sales         []domain.SaleRecord        `json:"sales"`
	Donations     []domain.DonationRecord    `json:"donations"`
	ManualRefunds []domain.ManualRefund      `json:"manualRefunds"`
	SafeDeposits  []domain.SafeDepositRecord `json:"safeDeposits"`
	CashOuts      []domain.CashOutRecord     `json:"cashOuts"`
	Products      []domain.Product           `json:"products"`
	Settings      domain.Settings            `json:"settings"`
	Range         *DateRange                 `json:"range,omitempty"`
	// Location decides which calendar day a sale falls on. Defaults to UTC.
	Location *time.Location `json:"-"`
}

// FromBundle builds an Input over every collection of b.
func FromBundle(b domain.Bundle, r *DateRange, loc *time.Location) Input {
	in := Input{
		Sales:         b.Sales,
		Donations:     b.Donations,
		ManualRefunds: b.ManualRefunds,
		SafeDeposits:  b.SafeDeposits,
		CashOuts:      b.CashOuts,
		Products:      b.Products,
		Range:         r,
		Location:      loc,
	}
	if b.Settings != nil {
		in.Settings = *b.Settings
	} else {
		in.Settings = domain.DefaultSettings()
	}
	return in
}

type DailyTotal struct {
	Date  string          `json:"date"`
	Total decimal.Decimal `json:"total"`
	Count int             `json:"count"`
}

type ProductRanking struct {
	ProductID   string          `json:"productId"`
	Name        string          `json:"name"`
	Quantity    int             `json:"quantity"`
	Revenue     decimal.Decimal `json:"revenue"`
	UnitProfit  decimal.Decimal `json:"unitProfit"`
	TotalProfit decimal.Decimal `json:"totalProfit"`
}

type CategoryTotal struct {
	Category string          `json:"category"`
	Revenue  decimal.Decimal `json:"revenue"`
	Quantity int             `json:"quantity"`
}

type Report struct {
	Range *DateRange `json:"range,omitempty"`

	TotalRevenue    decimal.Decimal                          `json:"totalRevenue"`
	RevenueByMethod map[domain.PaymentMethod]decimal.Decimal `json:"revenueByMethod"`
	CashSales       decimal.Decimal                          `json:"cashSales"`
	CardSales       decimal.Decimal                          `json:"cardSales"`
	TokenSales      decimal.Decimal                          `json:"tokenSales"`
	CheckSales      decimal.Decimal                          `json:"checkSales"`
	PaypalSales     decimal.Decimal                          `json:"paypalSales"`
	WeroSales       decimal.Decimal                          `json:"weroSales"`

	TotalDonations decimal.Decimal `json:"totalDonations"`
	CashDonations  decimal.Decimal `json:"cashDonations"`
	CardDonations  decimal.Decimal `json:"cardDonations"`

	RefundedSalesCount int             `json:"refundedSalesCount"`
	RefundedSalesTotal decimal.Decimal `json:"refundedSalesTotal"`

	TotalManualRefunds decimal.Decimal `json:"totalManualRefunds"`
	TotalSafeDeposits  decimal.Decimal `json:"totalSafeDeposits"`
	TotalCashOuts      decimal.Decimal `json:"totalCashOuts"`

	MaterialCost decimal.Decimal `json:"materialCost"`
	LaborCost    decimal.Decimal `json:"laborCost"`
	COGS         decimal.Decimal `json:"cogs"`
	GrossProfit  decimal.Decimal `json:"grossProfit"`

	CardFees      decimal.Decimal `json:"cardFees"`
	PaypalFees    decimal.Decimal `json:"paypalFees"`
	EstimatedFees decimal.Decimal `json:"estimatedFees"`

	NetEncaissements decimal.Decimal `json:"netEncaissements"`
	NetAfterFees     decimal.Decimal `json:"netAfterFees"`
	TotalCosts       decimal.Decimal `json:"totalCosts"`
	NetProfit        decimal.Decimal `json:"netProfit"`
	URSSAFEstimate   decimal.Decimal `json:"urssafEstimate"`

	InitialCash  decimal.Decimal `json:"initialCash"`
	CaisseFinale decimal.Decimal `json:"caisseFinale"`

	SalesCount    int             `json:"salesCount"`
	ItemsSold     int             `json:"itemsSold"`
	AverageBasket decimal.Decimal `json:"averageBasket"`

	Daily         []DailyTotal     `json:"daily"`
	TopByProfit   []ProductRanking `json:"topByProfit"`
	TopByQuantity []ProductRanking `json:"topByQuantity"`
	Categories    []CategoryTotal  `json:"categories"`
}

// Compute builds the report for in. Refunded sales count towards the refund
// figures only.
func Compute(in Input) Report {
	loc := in.Location
	if loc == nil {
		loc = time.UTC
	}
	keep := func(t time.Time) bool { return in.Range == nil || in.Range.Contains(t) }

	rep := Report{
		RevenueByMethod: make(map[domain.PaymentMethod]decimal.Decimal, len(domain.PaymentMethods)),
		InitialCash:     in.Settings.InitialCash,
		Daily:           []DailyTotal{},
		TopByProfit:     []ProductRanking{},
		TopByQuantity:   []ProductRanking{},
		Categories:      []CategoryTotal{},
	}
	if in.Range != nil {
		r := *in.Range
		rep.Range = &r
	}
	for _, method := range domain.PaymentMethods {
		rep.RevenueByMethod[method] = decimal.Zero
	}

	catalog := make(map[string]domain.Product, len(in.Products))
	for _, p := range in.Products {
		catalog[p.ID] = p
	}
	hourlyRate := in.Settings.HourlyRate

	var (
		valid      []domain.SaleRecord
		days       = map[string]*DailyTotal{}
		products   = newRanking()
		categories = newCategoryTotals()
	)

	for _, sale := range in.Sales {
		if !keep(sale.Date) {
			continue
		}
		if sale.Refunded {
			rep.RefundedSalesCount++
			rep.RefundedSalesTotal = rep.RefundedSalesTotal.Add(sale.Total)
			continue
		}
		valid = append(valid, sale)
	}

	for _, sale := range valid {
		rep.TotalRevenue = rep.TotalRevenue.Add(sale.Total)
		rep.RevenueByMethod[sale.PaymentMethod] = rep.RevenueByMethod[sale.PaymentMethod].Add(sale.Total)
		if sale.PaymentMethod == domain.PaymentPaypal {
			rep.PaypalFees = rep.PaypalFees.Add(sale.PaymentMethod.Fee(sale.Total))
		}

		key := sale.Date.In(loc).Format(dayLayout)
		day, ok := days[key]
		if !ok {
			day = &DailyTotal{Date: key}
			days[key] = day
		}
		day.Total = day.Total.Add(sale.Total)
		day.Count++

		for _, item := range sale.Items {
			qty := decimal.NewFromInt(int64(item.Quantity))
			rep.ItemsSold += item.Quantity
			rep.MaterialCost = rep.MaterialCost.Add(item.PurchasePrice.Mul(qty))

			labor := item.LaborTimeMinutes
			if current, ok := catalog[item.ID]; ok && !item.IsMisc {
				labor = current.LaborTimeMinutes
			}
			rep.LaborCost = rep.LaborCost.Add(labor.Div(sixty).Mul(hourlyRate).Mul(qty))

			category := item.Category
			switch {
			case item.IsMisc:
				category = miscCategory
			case category == "":
				category = defaultCategory
			}
			categories.add(category, item.LineTotal(sale.TokenMode), item.Quantity)

			if current, ok := catalog[item.ID]; ok && !item.IsMisc {
				products.add(current, item.Quantity)
			}
		}
	}
	rep.SalesCount = len(valid)

	rep.CashSales = rep.RevenueByMethod[domain.PaymentCash]
	rep.CardSales = rep.RevenueByMethod[domain.PaymentCard]
	rep.TokenSales = rep.RevenueByMethod[domain.PaymentToken]
	rep.CheckSales = rep.RevenueByMethod[domain.PaymentCheck]
	rep.PaypalSales = rep.RevenueByMethod[domain.PaymentPaypal]
	rep.WeroSales = rep.RevenueByMethod[domain.PaymentWero]

	for _, d := range in.Donations {
		if !keep(d.Date) {
			continue
		}
		rep.TotalDonations = rep.TotalDonations.Add(d.Amount)
		switch d.PaymentMethod {
		case domain.PaymentCash:
			rep.CashDonations = rep.CashDonations.Add(d.Amount)
		case domain.PaymentCard:
			rep.CardDonations = rep.CardDonations.Add(d.Amount)
		}
	}
	for _, r := range in.ManualRefunds {
		if keep(r.Date) {
			rep.TotalManualRefunds = rep.TotalManualRefunds.Add(r.Amount)
		}
	}
	for _, d := range in.SafeDeposits {
		if keep(d.Date) {
			rep.TotalSafeDeposits = rep.TotalSafeDeposits.Add(d.Amount)
		}
	}
	for _, c := range in.CashOuts {
		if keep(c.Date) {
			rep.TotalCashOuts = rep.TotalCashOuts.Add(c.Amount)
		}
	}

	rep.COGS = rep.MaterialCost.Add(rep.LaborCost)
	rep.GrossProfit = rep.TotalRevenue.Sub(rep.COGS)

	rep.CardFees = domain.PaymentCard.Fee(rep.CardSales.Add(rep.CardDonations))
	rep.EstimatedFees = rep.CardFees.Add(rep.PaypalFees)

	rep.NetEncaissements = rep.TotalRevenue.Add(rep.TotalDonations)
	rep.NetAfterFees = rep.NetEncaissements.Sub(rep.EstimatedFees)
	rep.TotalCosts = rep.COGS.Add(rep.TotalManualRefunds).Add(rep.TotalCashOuts).Add(rep.EstimatedFees)
	rep.NetProfit = rep.NetEncaissements.Sub(rep.TotalCosts)
	rep.URSSAFEstimate = rep.TotalRevenue.Mul(in.Settings.URSSAFRate).Div(hundred)

	outflows := rep.TotalManualRefunds.Add(rep.TotalSafeDeposits).Add(rep.TotalCashOuts)
	rep.CaisseFinale = rep.InitialCash.Add(rep.CashSales).Add(rep.CashDonations).Sub(outflows)

	if rep.SalesCount > 0 {
		rep.AverageBasket = rep.TotalRevenue.DivRound(decimal.NewFromInt(int64(rep.SalesCount)), 2)
	}

	for _, day := range days {
		rep.Daily = append(rep.Daily, *day)
	}
	slices.SortFunc(rep.Daily, func(a, b DailyTotal) int { return cmp.Compare(a.Date, b.Date) })

	rep.TopByProfit = products.top(func(a, b ProductRanking) int { return b.TotalProfit.Cmp(a.TotalProfit) })
	rep.TopByQuantity = products.top(func(a, b ProductRanking) int { return cmp.Compare(b.Quantity, a.Quantity) })
	rep.Categories = categories.sorted()

	return rep
}

// ranking keeps products in first-seen order so that ties sort stably.
type ranking struct {
	order []string
	byID  map[string]*ProductRanking
}

func newRanking() *ranking {
	return &ranking{byID: map[string]*ProductRanking{}}
}

func (r *ranking) add(p domain.Product, qty int) {
	entry, ok := r.byID[p.ID]
	if !ok {
		entry = &ProductRanking{
			ProductID:  p.ID,
			Name:       p.Name,
			UnitProfit: p.Price.Sub(p.PurchasePrice),
		}
		r.byID[p.ID] = entry
		r.order = append(r.order, p.ID)
	}
	entry.Quantity += qty
	units := decimal.NewFromInt(int64(entry.Quantity))
	entry.Revenue = p.Price.Mul(units)
	entry.TotalProfit = entry.UnitProfit.Mul(units)
}

func (r *ranking) top(compare func(a, b ProductRanking) int) []ProductRanking {
	out := make([]ProductRanking, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.byID[id])
	}
	slices.SortStableFunc(out, compare)
	if len(out) > TopN {
		out = out[:TopN]
	}
	return out
}

type categoryTotals struct {
	order []string
	byKey map[string]*CategoryTotal
}

func newCategoryTotals() *categoryTotals {
	return &categoryTotals{byKey: map[string]*CategoryTotal{}}
}

func (c *categoryTotals) add(category string, revenue decimal.Decimal, qty int) {
	entry, ok := c.byKey[category]
	if !ok {
		entry = &CategoryTotal{Category: category}
		c.byKey[category] = entry
		c.order = append(c.order, category)
	}
	entry.Revenue = entry.Revenue.Add(revenue)
	entry.Quantity += qty
}

func (c *categoryTotals) sorted() []CategoryTotal {
	out := make([]CategoryTotal, 0, len(c.order))
	for _, key := range c.order {
		out = append(out, *c.byKey[key])
	}
	slices.SortStableFunc(out, func(a, b CategoryTotal) int { return b.Revenue.Cmp(a.Revenue) })
	return out
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return startOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}
