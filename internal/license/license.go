// Package license turns licence keys into subscription periods and derives
// the gating state shown to the operator.
package license

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/SEBSEB62/KAYE-sub000/internal/domain"
)

var (
	ErrInvalidKey  = errors.New("invalid licence key format")
	ErrRejected    = errors.New("licence key rejected")
	ErrUnavailable = errors.New("licence service unavailable")
)

const warningDays = 7

var keyPattern = regexp.MustCompile(`^[A-Z]+-[A-Z0-9]{4}-[A-Z0-9]{4}-[A-Z0-9]{4}$`)

// Grant is what a verifier allows for a key.
type Grant struct {
	Plan         string `json:"plan"`
	DurationDays int    `json:"durationDays"`
}

//go:generate mockgen -source=license.go -destination=verifier_mock.go -package=license
type Verifier interface {
	Verify(ctx context.Context, key, userID string) (Grant, error)
}

// NormalizeKey upper-cases and trims raw and checks it has the
// PREFIX-XXXX-XXXX-XXXX shape.
func NormalizeKey(raw string) (string, error) {
	key := strings.ToUpper(strings.TrimSpace(raw))
	if !keyPattern.MatchString(key) {
		return "", ErrInvalidKey
	}
	return key, nil
}

type Gate struct {
	verifier Verifier
}

func NewGate(verifier Verifier) *Gate {
	if verifier == nil {
		verifier = OfflineVerifier{}
	}
	return &Gate{verifier: verifier}
}

// Activate verifies key once and returns settings carrying the new plan and
// expiry. On any error settings is returned unchanged.
func (g *Gate) Activate(ctx context.Context, settings domain.Settings, rawKey, userID string, now time.Time) (domain.Settings, Grant, error) {
	key, err := NormalizeKey(rawKey)
	if err != nil {
		return settings, Grant{}, err
	}
	grant, err := g.verifier.Verify(ctx, key, userID)
	if err != nil {
		return settings, Grant{}, err
	}
	if grant.DurationDays <= 0 {
		return settings, Grant{}, fmt.Errorf("%w: no duration granted", ErrRejected)
	}

	next := settings.Clone()
	expiry := now.AddDate(0, 0, grant.DurationDays)
	next.SubscriptionExpiry = &expiry
	next.SubscriptionPlan = grant.Plan
	return next, grant, nil
}

type Status struct {
	IsFirstRun    bool       `json:"isFirstRun"`
	IsExpired     bool       `json:"isExpired"`
	DaysRemaining int        `json:"daysRemaining"`
	ShowWarning   bool       `json:"showWarning"`
	Plan          string     `json:"plan,omitempty"`
	Expiry        *time.Time `json:"expiry,omitempty"`
}

// Locked reports whether paid features must be refused. A first run is in
// its trial and stays open.
func (s Status) Locked() bool {
	return s.IsExpired
}

func Evaluate(settings domain.Settings, now time.Time) Status {
	status := Status{Plan: settings.SubscriptionPlan}
	if settings.SubscriptionExpiry == nil {
		status.IsFirstRun = true
		return status
	}

	expiry := *settings.SubscriptionExpiry
	status.Expiry = &expiry
	status.IsExpired = expiry.Before(now)
	days := math.Ceil(expiry.Sub(now).Hours() / 24)
	status.DaysRemaining = int(days)
	status.ShowWarning = status.DaysRemaining >= 0 && status.DaysRemaining <= warningDays
	return status
}

// Message turns an activation error into text for the operator.
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidKey):
		return "Format de clé invalide (attendu : PREFIXE-XXXX-XXXX-XXXX)."
	case errors.Is(err, ErrRejected):
		return "Clé refusée : " + strings.TrimPrefix(err.Error(), ErrRejected.Error()+": ")
	case errors.Is(err, ErrUnavailable):
		return "Service de licence injoignable, réessayez plus tard."
	default:
		return "Activation impossible."
	}
}
