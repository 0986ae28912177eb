package service

import (
	"context"

	"github.com/SEBSEB62/KAYE-sub000/internal/domain"
	"github.com/SEBSEB62/KAYE-sub000/internal/license"
)

// ActivateApp verifies key and stores the granted plan. The verifier may
// be remote, so it runs before the workspace lock is taken.
func (s *Service) ActivateApp(ctx context.Context, userID, key string) (license.Status, error) {
	ws, err := s.Open(ctx, userID)
	if err != nil {
		return license.Status{}, err
	}

	now := s.now()
	next, grant, err := s.gate.Activate(ctx, ws.Settings(), key, userID, now)
	if err != nil {
		s.logger.WarnContext(ctx, "licence activation failed", "account", userID, "error", err)
		return license.Status{}, err
	}
	settings, err := ws.UpdateSettings(func(settings *domain.Settings) error {
		settings.SubscriptionPlan = next.SubscriptionPlan
		settings.SubscriptionExpiry = next.SubscriptionExpiry
		return nil
	})
	if err != nil {
		return license.Status{}, err
	}

	s.mu.Lock()
	s.justActivated[userID] = true
	s.mu.Unlock()

	s.logAudit(ctx, "licence_activate", userID, "plan="+grant.Plan)
	return license.Evaluate(settings, now), nil
}

func (s *Service) LicenseStatus(ctx context.Context, userID string) (license.Status, error) {
	ws, err := s.Open(ctx, userID)
	if err != nil {
		return license.Status{}, err
	}
	return license.Evaluate(ws.Settings(), s.now()), nil
}

// ConsumeJustActivated reports whether userID was activated since the last
// call, so that a welcome screen is shown exactly once.
func (s *Service) ConsumeJustActivated(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	ok := s.justActivated[userID]
	delete(s.justActivated, userID)
	return ok
}
