// Package ledger keeps the cash movements that are not sales: donations,
// manual refunds, safe deposits and cash-outs. Records are immutable once
// written and listed most recent first.
package ledger

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/SEBSEB62/KAYE-sub000/internal/domain"
	"github.com/SEBSEB62/KAYE-sub000/internal/xid"
)

var (
	ErrInvalidAmount  = errors.New("amount must be positive")
	ErrInvalidPayment = errors.New("unsupported payment method")
	ErrRecordNotFound = errors.New("record not found")
)

type Ledger struct {
	donations     []domain.DonationRecord
	manualRefunds []domain.ManualRefund
	safeDeposits  []domain.SafeDepositRecord
	cashOuts      []domain.CashOutRecord
	now           func() time.Time
}

// New copies the given collections.
func New(b domain.Bundle, now func() time.Time) *Ledger {
	if now == nil {
		now = time.Now
	}
	return &Ledger{
		donations:     nonNil(slices.Clone(b.Donations)),
		manualRefunds: nonNil(slices.Clone(b.ManualRefunds)),
		safeDeposits:  nonNil(slices.Clone(b.SafeDeposits)),
		cashOuts:      nonNil(slices.Clone(b.CashOuts)),
		now:           now,
	}
}

func (l *Ledger) AddDonation(amount decimal.Decimal, method domain.PaymentMethod, donor string) (domain.DonationRecord, error) {
	if err := checkAmount(amount); err != nil {
		return domain.DonationRecord{}, err
	}
	if !method.Valid() {
		return domain.DonationRecord{}, fmt.Errorf("%w: %q", ErrInvalidPayment, method)
	}
	record := domain.DonationRecord{
		ID:            xid.New("don"),
		Amount:        amount,
		Date:          l.now(),
		PaymentMethod: method,
		Donor:         strings.TrimSpace(donor),
	}
	l.donations = slices.Insert(l.donations, 0, record)
	return record, nil
}

func (l *Ledger) AddManualRefund(amount decimal.Decimal, reason string) (domain.ManualRefund, error) {
	if err := checkAmount(amount); err != nil {
		return domain.ManualRefund{}, err
	}
	record := domain.ManualRefund{
		ID:     xid.New("rfd"),
		Amount: amount,
		Date:   l.now(),
		Reason: strings.TrimSpace(reason),
	}
	l.manualRefunds = slices.Insert(l.manualRefunds, 0, record)
	return record, nil
}

func (l *Ledger) AddSafeDeposit(amount decimal.Decimal, note string) (domain.SafeDepositRecord, error) {
	if err := checkAmount(amount); err != nil {
		return domain.SafeDepositRecord{}, err
	}
	record := domain.SafeDepositRecord{
		ID:     xid.New("dep"),
		Amount: amount,
		Date:   l.now(),
		Note:   strings.TrimSpace(note),
	}
	l.safeDeposits = slices.Insert(l.safeDeposits, 0, record)
	return record, nil
}

func (l *Ledger) AddCashOut(amount decimal.Decimal, reason string) (domain.CashOutRecord, error) {
	if err := checkAmount(amount); err != nil {
		return domain.CashOutRecord{}, err
	}
	record := domain.CashOutRecord{
		ID:     xid.New("out"),
		Amount: amount,
		Date:   l.now(),
		Reason: strings.TrimSpace(reason),
	}
	l.cashOuts = slices.Insert(l.cashOuts, 0, record)
	return record, nil
}

func (l *Ledger) DeleteDonation(id string) error {
	return deleteByID(&l.donations, id, func(r domain.DonationRecord) string { return r.ID })
}

func (l *Ledger) DeleteManualRefund(id string) error {
	return deleteByID(&l.manualRefunds, id, func(r domain.ManualRefund) string { return r.ID })
}

func (l *Ledger) DeleteSafeDeposit(id string) error {
	return deleteByID(&l.safeDeposits, id, func(r domain.SafeDepositRecord) string { return r.ID })
}

func (l *Ledger) DeleteCashOut(id string) error {
	return deleteByID(&l.cashOuts, id, func(r domain.CashOutRecord) string { return r.ID })
}

func (l *Ledger) Donations() []domain.DonationRecord {
	return slices.Clone(l.donations)
}

func (l *Ledger) ManualRefunds() []domain.ManualRefund {
	return slices.Clone(l.manualRefunds)
}

func (l *Ledger) SafeDeposits() []domain.SafeDepositRecord {
	return slices.Clone(l.safeDeposits)
}

func (l *Ledger) CashOuts() []domain.CashOutRecord {
	return slices.Clone(l.cashOuts)
}

func checkAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: got %s", ErrInvalidAmount, amount)
	}
	return nil
}

func deleteByID[T any](records *[]T, id string, key func(T) string) error {
	idx := slices.IndexFunc(*records, func(r T) bool { return key(r) == id })
	if idx < 0 {
		return ErrRecordNotFound
	}
	*records = slices.Delete(*records, idx, idx+1)
	return nil
}

func nonNil[T any](records []T) []T {
	if records == nil {
		return []T{}
	}
	return records
}
