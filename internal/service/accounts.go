package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/SEBSEB62/KAYE-sub000/internal/domain"
	"github.com/SEBSEB62/KAYE-sub000/internal/store"
	"github.com/SEBSEB62/KAYE-sub000/internal/team"
)

// Register creates an account whose only member is its owner. An account
// that exists without any member, such as one migrated from the legacy
// layout, is claimed instead: its data is kept and the owner is added, but
// only against the operator's claim code for that account. The bundle is
// written at once so that the account survives a crash before the first
// idle flush.
func (s *Service) Register(ctx context.Context, userID, businessName, ownerName, pin, claimCode string) (domain.Settings, domain.TeamMember, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.Settings{}, domain.TeamMember{}, ErrInvalidAccount
	}
	members, owner, err := team.AddMember(nil, ownerName, domain.RoleOwner, pin, s.now())
	if err != nil {
		return domain.Settings{}, domain.TeamMember{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var bundle domain.Bundle
	existed := true
	if ws, ok := s.sessions[userID]; ok {
		bundle = ws.Snapshot()
	} else {
		loaded, err := s.load(ctx, userID)
		switch {
		case errors.Is(err, store.ErrNotFound):
			loaded = domain.NewBundle()
			existed = false
		case err != nil:
			return domain.Settings{}, domain.TeamMember{}, err
		}
		bundle = loaded
	}
	if bundle.Settings == nil {
		defaults := domain.DefaultSettings()
		bundle.Settings = &defaults
	}
	if len(bundle.Settings.Team) > 0 {
		return domain.Settings{}, domain.TeamMember{}, ErrAccountExists
	}
	if existed && !s.claimAllowed(userID, claimCode) {
		s.logger.WarnContext(ctx, "account claim refused", "account", userID)
		return domain.Settings{}, domain.TeamMember{}, ErrClaimRequired
	}

	settings := bundle.Settings.Clone()
	if name := strings.TrimSpace(businessName); name != "" {
		settings.BusinessName = name
	}
	settings.Team = members
	bundle.Settings = &settings

	if err := s.repo.Put(ctx, userID, bundle); err != nil {
		return domain.Settings{}, domain.TeamMember{}, fmt.Errorf("saving new account %s: %w", userID, err)
	}
	if ws, ok := s.sessions[userID]; ok {
		ws.Replace(bundle)
	} else {
		s.attach(userID, bundle)
	}

	s.logger.InfoContext(ctx, "account registered", "account", userID, "claimed", existed)
	owner.PINHash = ""
	settings.Team = team.Public(settings.Team)
	return settings, owner, nil
}

// Login checks a member's PIN and returns the actor to carry in the access
// token. Unknown accounts fail exactly like a wrong PIN.
func (s *Service) Login(ctx context.Context, userID, memberName, pin string) (domain.Actor, error) {
	ws, err := s.existing(ctx, userID)
	if errors.Is(err, store.ErrNotFound) || errors.Is(err, ErrInvalidAccount) {
		_, _ = team.Authenticate(nil, memberName, pin)
		return domain.Actor{}, team.ErrBadCredentials
	}
	if err != nil {
		return domain.Actor{}, err
	}

	member, err := team.Authenticate(ws.Settings().Team, memberName, pin)
	if err != nil {
		s.logger.WarnContext(ctx, "login failed", "account", ws.AccountID(), "member", memberName)
		return domain.Actor{}, err
	}
	return domain.Actor{AccountID: ws.AccountID(), Member: member.Name, Role: member.Role}, nil
}

func (s *Service) Members(ctx context.Context, userID string) ([]domain.TeamMember, error) {
	ws, err := s.Open(ctx, userID)
	if err != nil {
		return nil, err
	}
	return team.Public(ws.Settings().Team), nil
}

func (s *Service) AddMember(ctx context.Context, userID, name string, role domain.MemberRole, pin string) (domain.TeamMember, error) {
	if err := requireOwner(ctx); err != nil {
		return domain.TeamMember{}, err
	}
	ws, err := s.Open(ctx, userID)
	if err != nil {
		return domain.TeamMember{}, err
	}

	var added domain.TeamMember
	_, err = ws.UpdateSettings(func(settings *domain.Settings) error {
		members, member, err := team.AddMember(settings.Team, name, role, pin, s.now())
		if err != nil {
			return err
		}
		settings.Team = members
		added = member
		return nil
	})
	if err != nil {
		return domain.TeamMember{}, err
	}

	s.logAudit(ctx, "member_add", added.ID, fmt.Sprintf("name=%s,role=%s", added.Name, added.Role))
	added.PINHash = ""
	return added, nil
}

func (s *Service) RemoveMember(ctx context.Context, userID, memberID string) error {
	if err := requireOwner(ctx); err != nil {
		return err
	}
	ws, err := s.Open(ctx, userID)
	if err != nil {
		return err
	}
	_, err = ws.UpdateSettings(func(settings *domain.Settings) error {
		members, err := team.RemoveMember(settings.Team, memberID)
		if err != nil {
			return err
		}
		settings.Team = members
		return nil
	})
	if err != nil {
		return err
	}
	s.logAudit(ctx, "member_remove", memberID, "")
	return nil
}

// ChangePIN lets a member change their own PIN; owners may change anyone's.
func (s *Service) ChangePIN(ctx context.Context, userID, memberID, pin string) error {
	actor, _ := ActorFromContext(ctx)
	ws, err := s.Open(ctx, userID)
	if err != nil {
		return err
	}
	_, err = ws.UpdateSettings(func(settings *domain.Settings) error {
		idx := slices.IndexFunc(settings.Team, func(m domain.TeamMember) bool { return m.ID == memberID })
		if idx >= 0 && actor.Role != domain.RoleOwner && !strings.EqualFold(actor.Member, settings.Team[idx].Name) {
			return ErrForbidden
		}
		members, err := team.ChangePIN(settings.Team, memberID, pin)
		if err != nil {
			return err
		}
		settings.Team = members
		return nil
	})
	if err != nil {
		return err
	}
	s.logAudit(ctx, "member_pin_change", memberID, "")
	return nil
}

func requireOwner(ctx context.Context) error {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleOwner {
		return ErrForbidden
	}
	return nil
}
