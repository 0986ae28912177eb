package domain

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID                 string          `json:"id"`
	Name               string          `json:"name"`
	Price              decimal.Decimal `json:"price"`
	PurchasePrice      decimal.Decimal `json:"purchasePrice"`
	TokenPrice         decimal.Decimal `json:"tokenPrice"`
	Stock              int             `json:"stock"`
	Category           string          `json:"category"`
	Image              Image           `json:"image"`
	PackageUnit        string          `json:"packageUnit,omitempty"`
	ServingsPerPackage int             `json:"servingsPerPackage,omitempty"`
	LaborTimeMinutes   decimal.Decimal `json:"laborTimeMinutes"`
}

func (p Product) Clone() Product {
	out := p
	out.Image = p.Image.Clone()
	return out
}

// UnitPrice returns the price charged for one unit under the active pricing
// scheme.
func (p Product) UnitPrice(tokenMode bool) decimal.Decimal {
	if tokenMode {
		return p.TokenPrice
	}
	return p.Price
}

// CartItem is a product snapshot taken when the line was added to the cart.
// Misc lines have no backing catalog product.
type CartItem struct {
	Product
	Quantity int  `json:"quantity"`
	IsMisc   bool `json:"isMisc,omitempty"`
}

func (c CartItem) Clone() CartItem {
	out := c
	out.Product = c.Product.Clone()
	return out
}

func (c CartItem) LineTotal(tokenMode bool) decimal.Decimal {
	return c.UnitPrice(tokenMode).Mul(decimal.NewFromInt(int64(c.Quantity)))
}

type SaleRecord struct {
	ID            string          `json:"id"`
	Date          time.Time       `json:"date"`
	Items         []CartItem      `json:"items"`
	Total         decimal.Decimal `json:"total"`
	PaymentMethod PaymentMethod   `json:"paymentMethod"`
	CustomerName  string          `json:"customerName,omitempty"`
	MemberName    string          `json:"memberName,omitempty"`
	Refunded      bool            `json:"refunded,omitempty"`
	// TokenMode records whether Total was priced in tokens.
	TokenMode     bool            `json:"tokenMode,omitempty"`
}

func (s SaleRecord) Clone() SaleRecord {
	out := s
	out.Items = make([]CartItem, len(s.Items))
	for i, item := range s.Items {
		out.Items[i] = item.Clone()
	}
	return out
}

type StockChangeType string

const (
	StockAdd     StockChangeType = "add"
	StockSale    StockChangeType = "sale"
	StockEdit    StockChangeType = "edit"
	StockRefund  StockChangeType = "refund"
	StockInitial StockChangeType = "initial"
)

// StockHistoryEntry is one line of the append-only stock ledger. NewStock is
// the product's stock immediately after the change.
type StockHistoryEntry struct {
	ID             string          `json:"id"`
	ProductID      string          `json:"productId"`
	ProductName    string          `json:"productName,omitempty"`
	Type           StockChangeType `json:"type"`
	QuantityChange int             `json:"quantityChange"`
	NewStock       int             `json:"newStock"`
	Note           string          `json:"note,omitempty"`
	Date           time.Time       `json:"date"`
}

type DonationRecord struct {
	ID            string          `json:"id"`
	Amount        decimal.Decimal `json:"amount"`
	Date          time.Time       `json:"date"`
	PaymentMethod PaymentMethod   `json:"paymentMethod"`
	Donor         string          `json:"donor,omitempty"`
}

type ManualRefund struct {
	ID     string          `json:"id"`
	Amount decimal.Decimal `json:"amount"`
	Date   time.Time       `json:"date"`
	Reason string          `json:"reason,omitempty"`
}

type SafeDepositRecord struct {
	ID     string          `json:"id"`
	Amount decimal.Decimal `json:"amount"`
	Date   time.Time       `json:"date"`
	Note   string          `json:"note,omitempty"`
}

type CashOutRecord struct {
	ID     string          `json:"id"`
	Amount decimal.Decimal `json:"amount"`
	Date   time.Time       `json:"date"`
	Reason string          `json:"reason,omitempty"`
}

type MemberRole string

const (
	RoleOwner  MemberRole = "owner"
	RoleMember MemberRole = "member"
)

// TeamMember is a person allowed to operate the register with a PIN.
type TeamMember struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Role      MemberRole `json:"role"`
	PINHash   string     `json:"pinHash"`
	CreatedAt time.Time  `json:"createdAt"`
}

type Settings struct {
	BusinessName       string          `json:"businessName"`
	Logo               Image           `json:"logo"`
	Theme              string          `json:"theme"`
	SubscriptionPlan   string          `json:"subscriptionPlan,omitempty"`
	SubscriptionExpiry *time.Time      `json:"subscriptionExpiry,omitempty"`
	TokenMode          bool            `json:"tokenMode"`
	TokenValue         decimal.Decimal `json:"tokenValue"`
	Categories         []string        `json:"categories"`
	HourlyRate         decimal.Decimal `json:"hourlyRate"`
	URSSAFRate         decimal.Decimal `json:"urssafRate"`
	InitialCash        decimal.Decimal `json:"initialCash"`
	ReceiptFooter      string          `json:"receiptFooter,omitempty"`
	Team               []TeamMember    `json:"team,omitempty"`
}

func (s Settings) Clone() Settings {
	out := s
	out.Logo = s.Logo.Clone()
	out.Categories = slices.Clone(s.Categories)
	out.Team = slices.Clone(s.Team)
	if s.SubscriptionExpiry != nil {
		expiry := *s.SubscriptionExpiry
		out.SubscriptionExpiry = &expiry
	}
	return out
}

func DefaultSettings() Settings {
	return Settings{
		BusinessName: "Ma Buvette",
		Logo:         EmojiImage("🍺"),
		Theme:        "light",
		TokenValue:   decimal.NewFromInt(1),
		Categories:   []string{"Boissons", "Snacks", "Repas", "Desserts", "Autre"},
		HourlyRate:   decimal.Zero,
		URSSAFRate:   decimal.RequireFromString("12.3"),
		InitialCash:  decimal.Zero,
	}
}

// Bundle is the full persisted state of one account. Its JSON keys are fixed
// because exported backup files use the same shape.
type Bundle struct {
	Products      []Product           `json:"products"`
	Settings      *Settings           `json:"settings"`
	Sales         []SaleRecord        `json:"sales"`
	Donations     []DonationRecord    `json:"donations"`
	ManualRefunds []ManualRefund      `json:"manualRefunds"`
	SafeDeposits  []SafeDepositRecord `json:"safeDeposits"`
	StockHistory  []StockHistoryEntry `json:"stockHistory"`
	CashOuts      []CashOutRecord     `json:"cashOuts"`
}

func NewBundle() Bundle {
	settings := DefaultSettings()
	return Bundle{
		Products:      []Product{},
		Settings:      &settings,
		Sales:         []SaleRecord{},
		Donations:     []DonationRecord{},
		ManualRefunds: []ManualRefund{},
		SafeDeposits:  []SafeDepositRecord{},
		StockHistory:  []StockHistoryEntry{},
		CashOuts:      []CashOutRecord{},
	}
}

func (b Bundle) Clone() Bundle {
	out := Bundle{
		Products:      make([]Product, len(b.Products)),
		Sales:         make([]SaleRecord, len(b.Sales)),
		Donations:     slices.Clone(b.Donations),
		ManualRefunds: slices.Clone(b.ManualRefunds),
		SafeDeposits:  slices.Clone(b.SafeDeposits),
		StockHistory:  slices.Clone(b.StockHistory),
		CashOuts:      slices.Clone(b.CashOuts),
	}
	for i, p := range b.Products {
		out.Products[i] = p.Clone()
	}
	for i, sale := range b.Sales {
		out.Sales[i] = sale.Clone()
	}
	if b.Settings != nil {
		settings := b.Settings.Clone()
		out.Settings = &settings
	}
	if out.Donations == nil {
		out.Donations = []DonationRecord{}
	}
	if out.ManualRefunds == nil {
		out.ManualRefunds = []ManualRefund{}
	}
	if out.SafeDeposits == nil {
		out.SafeDeposits = []SafeDepositRecord{}
	}
	if out.StockHistory == nil {
		out.StockHistory = []StockHistoryEntry{}
	}
	if out.CashOuts == nil {
		out.CashOuts = []CashOutRecord{}
	}
	return out
}

// Actor identifies the authenticated team member behind a request.
type Actor struct {
	AccountID string
	Member    string
	Role      MemberRole
}
