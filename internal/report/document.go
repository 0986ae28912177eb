// Package report lays out an analytics report as a printable document and
// renders it to HTML, CSV or XLSX. It also prints sale receipts for ESC/POS
// thermal printers.
package report

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/SEBSEB62/KAYE-sub000/internal/analytics"
	"github.com/SEBSEB62/KAYE-sub000/internal/domain"
)

const DefaultLogLimit = 50

// Cell is a table value. Text is what HTML and CSV show; Value, when set, is
// the raw number a spreadsheet should store.
type Cell struct {
	Text  string
	Value any
}

func (c Cell) Numeric() bool { return c.Value != nil }

func text(s string) Cell { return Cell{Text: s} }

func money(d decimal.Decimal) Cell {
	f, _ := d.Round(2).Float64()
	return Cell{Text: FormatEuro(d), Value: f}
}

func count(n int) Cell {
	return Cell{Text: strconv.Itoa(n), Value: n}
}

type KPI struct {
	Label string
	Value Cell
}

type Table struct {
	Title string
	// Sheet is the short name used for the spreadsheet tab.
	Sheet   string
	Columns []string
	Rows    [][]Cell
}

type Header struct {
	BusinessName string
	Logo         domain.Image
	Period       string
	GeneratedAt  time.Time
}

// Document sections always come in this order: header, KPIs, then Tables
// (payment methods, costs and fees, top products by profit and by quantity,
// categories, transaction log).
type Document struct {
	Header Header
	KPIs   []KPI
	Tables []Table
}

type Options struct {
	Location    *time.Location
	LogLimit    int
	GeneratedAt time.Time
}

// Build lays out rep. sales feeds the transaction log; only sales inside the
// report range are listed, most recent first.
func Build(rep analytics.Report, settings domain.Settings, sales []domain.SaleRecord, opts Options) Document {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.LogLimit <= 0 {
		opts.LogLimit = DefaultLogLimit
	}
	if opts.GeneratedAt.IsZero() {
		opts.GeneratedAt = time.Now()
	}

	return Document{
		Header: Header{
			BusinessName: settings.BusinessName,
			Logo:         settings.Logo,
			Period:       describePeriod(rep.Range, opts.Location),
			GeneratedAt:  opts.GeneratedAt.In(opts.Location),
		},
		KPIs: []KPI{
			{Label: "Chiffre d'affaires", Value: money(rep.TotalRevenue)},
			{Label: "Ventes", Value: count(rep.SalesCount)},
			{Label: "Articles vendus", Value: count(rep.ItemsSold)},
			{Label: "Panier moyen", Value: money(rep.AverageBasket)},
			{Label: "Dons", Value: money(rep.TotalDonations)},
			{Label: "Bénéfice net", Value: money(rep.NetProfit)},
			{Label: "Caisse finale", Value: money(rep.CaisseFinale)},
		},
		Tables: []Table{
			paymentTable(rep),
			costTable(rep),
			rankingTable("Top produits par bénéfice", "Top bénéfice", rep.TopByProfit),
			rankingTable("Top produits par quantité", "Top quantité", rep.TopByQuantity),
			categoryTable(rep.Categories),
			transactionLog(sales, rep.Range, opts),
		},
	}
}

func paymentTable(rep analytics.Report) Table {
	t := Table{Title: "Moyens de paiement", Sheet: "Paiements", Columns: []string{"Moyen", "Montant"}}
	for _, method := range domain.PaymentMethods {
		t.Rows = append(t.Rows, []Cell{text(method.Label()), money(rep.RevenueByMethod[method])})
	}
	t.Rows = append(t.Rows,
		[]Cell{text("Dons en espèces"), money(rep.CashDonations)},
		[]Cell{text("Dons par carte"), money(rep.CardDonations)},
	)
	return t
}

func costTable(rep analytics.Report) Table {
	return Table{
		Title:   "Coûts et frais",
		Sheet:   "Coûts",
		Columns: []string{"Poste", "Montant"},
		Rows: [][]Cell{
			{text("Coût matière"), money(rep.MaterialCost)},
			{text("Coût main-d'œuvre"), money(rep.LaborCost)},
			{text("Coût des ventes"), money(rep.COGS)},
			{text("Marge brute"), money(rep.GrossProfit)},
			{text("Frais carte (1,75 %)"), money(rep.CardFees)},
			{text("Frais PayPal"), money(rep.PaypalFees)},
			{text("Remboursements"), money(rep.TotalManualRefunds)},
			{text("Sorties de caisse"), money(rep.TotalCashOuts)},
			{text("Dépôts au coffre"), money(rep.TotalSafeDeposits)},
			{text("Ventes annulées (" + strconv.Itoa(rep.RefundedSalesCount) + ")"), money(rep.RefundedSalesTotal)},
			{text("Total encaissé"), money(rep.NetEncaissements)},
			{text("Net après frais"), money(rep.NetAfterFees)},
			{text("Total des coûts"), money(rep.TotalCosts)},
			{text("Estimation URSSAF"), money(rep.URSSAFEstimate)},
			{text("Fond de caisse"), money(rep.InitialCash)},
		},
	}
}

func rankingTable(title, sheet string, rows []analytics.ProductRanking) Table {
	t := Table{Title: title, Sheet: sheet, Columns: []string{"Produit", "Quantité", "CA", "Bénéfice"}}
	for _, r := range rows {
		t.Rows = append(t.Rows, []Cell{text(r.Name), count(r.Quantity), money(r.Revenue), money(r.TotalProfit)})
	}
	return t
}

func categoryTable(rows []analytics.CategoryTotal) Table {
	t := Table{Title: "Catégories", Sheet: "Catégories", Columns: []string{"Catégorie", "Quantité", "CA"}}
	for _, r := range rows {
		t.Rows = append(t.Rows, []Cell{text(r.Category), count(r.Quantity), money(r.Revenue)})
	}
	return t
}

func transactionLog(sales []domain.SaleRecord, r *analytics.DateRange, opts Options) Table {
	t := Table{Title: "Journal des transactions", Sheet: "Transactions", Columns: []string{"Date", "Articles", "Paiement", "Total", "Statut"}}

	inRange := make([]domain.SaleRecord, 0, len(sales))
	for _, sale := range sales {
		if r == nil || r.Contains(sale.Date) {
			inRange = append(inRange, sale)
		}
	}
	slices.SortStableFunc(inRange, func(a, b domain.SaleRecord) int { return cmp.Compare(b.Date.UnixNano(), a.Date.UnixNano()) })
	if len(inRange) > opts.LogLimit {
		inRange = inRange[:opts.LogLimit]
	}

	for _, sale := range inRange {
		status := "Payée"
		if sale.Refunded {
			status = "Annulée"
		}
		t.Rows = append(t.Rows, []Cell{
			text(sale.Date.In(opts.Location).Format("02/01/2006 15:04")),
			text(describeItems(sale.Items)),
			text(sale.PaymentMethod.Label()),
			money(sale.Total),
			text(status),
		})
	}
	return t
}

func describeItems(items []domain.CartItem) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		parts = append(parts, fmt.Sprintf("%d× %s", item.Quantity, item.Name))
	}
	return strings.Join(parts, ", ")
}

func describePeriod(r *analytics.DateRange, loc *time.Location) string {
	const layout = "02/01/2006"
	switch {
	case r == nil || (r.Start.IsZero() && r.End.IsZero()):
		return "Toute la période"
	case r.Start.IsZero():
		return "Jusqu'au " + r.End.In(loc).Format(layout)
	case r.End.IsZero():
		return "Depuis le " + r.Start.In(loc).Format(layout)
	default:
		return "Du " + r.Start.In(loc).Format(layout) + " au " + r.End.In(loc).Format(layout)
	}
}

// FormatEuro renders an amount the French way, e.g. "1234,50 €".
func FormatEuro(d decimal.Decimal) string {
	return strings.Replace(d.StringFixed(2), ".", ",", 1) + " €"
}
