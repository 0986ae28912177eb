// Package service manages account sessions: it loads or migrates each
// account's bundle into a live workspace, wires its changes to the
// write-behind queue, and exposes the account-level operations that sit
// above a single workspace.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/SEBSEB62/KAYE-sub000/internal/cache"
	"github.com/SEBSEB62/KAYE-sub000/internal/domain"
	"github.com/SEBSEB62/KAYE-sub000/internal/license"
	"github.com/SEBSEB62/KAYE-sub000/internal/persist"
	"github.com/SEBSEB62/KAYE-sub000/internal/store"
	"github.com/SEBSEB62/KAYE-sub000/internal/store/legacy"
	"github.com/SEBSEB62/KAYE-sub000/internal/suggest"
	"github.com/SEBSEB62/KAYE-sub000/internal/workspace"
)

var (
	ErrInvalidAccount = errors.New("invalid account id")
	ErrAccountExists  = errors.New("account already exists")
	ErrForbidden      = errors.New("owner role required")
	ErrInvalidBackup  = errors.New("invalid backup file")
	ErrClaimRequired  = errors.New("account exists without members, a valid claim code is required")
)

const defaultReportTTL = 30 * time.Second

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

// Deps lists the collaborators of a Service. Only Repo is required.
type Deps struct {
	Repo      store.Repository
	Queue     *persist.Queue
	Legacy    legacy.Source
	Cache     cache.Cache
	ReportTTL time.Duration
	Gate      *license.Gate
	Suggest   *suggest.Engine
	Ideas     *suggest.AIClient
	Location  *time.Location
	Now       func() time.Time
	Logger    *slog.Logger

	// ClaimSecret signs the codes that let an owner claim a memberless
	// account. Empty disables claiming.
	ClaimSecret string
}

type Service struct {
	repo      store.Repository
	queue     *persist.Queue
	legacy    legacy.Source
	cache     cache.Cache
	reportTTL time.Duration
	gate      *license.Gate
	suggester *suggest.Engine
	ideas     *suggest.AIClient
	loc       *time.Location
	now       func() time.Time
	logger    *slog.Logger

	claimSecret string

	mu            sync.Mutex
	sessions      map[string]*workspace.Workspace
	justActivated map[string]bool
}

func New(deps Deps) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Queue == nil {
		deps.Queue = persist.NewQueue(deps.Repo, 0, deps.Logger)
	}
	if deps.Cache == nil {
		deps.Cache = cache.Noop{}
	}
	if deps.ReportTTL <= 0 {
		deps.ReportTTL = defaultReportTTL
	}
	if deps.Gate == nil {
		deps.Gate = license.NewGate(nil)
	}
	if deps.Suggest == nil {
		deps.Suggest = suggest.NewEngine(deps.Cache, 0)
	}
	if deps.Location == nil {
		deps.Location = time.UTC
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	return &Service{
		repo:          deps.Repo,
		queue:         deps.Queue,
		legacy:        deps.Legacy,
		cache:         deps.Cache,
		reportTTL:     deps.ReportTTL,
		gate:          deps.Gate,
		suggester:     deps.Suggest,
		ideas:         deps.Ideas,
		loc:           deps.Location,
		now:           deps.Now,
		logger:        deps.Logger.With("component", "service"),
		claimSecret:   deps.ClaimSecret,
		sessions:      make(map[string]*workspace.Workspace),
		justActivated: make(map[string]bool),
	}
}

func (s *Service) Location() *time.Location { return s.loc }

// Open returns the live workspace of userID. A first open reads the stored
// bundle, falls back to the legacy key layout, and finally to a fresh
// bundle with default settings.
func (s *Service) Open(ctx context.Context, userID string) (*workspace.Workspace, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrInvalidAccount
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if ws, ok := s.sessions[userID]; ok {
		return ws, nil
	}

	bundle, err := s.load(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		bundle, err = domain.NewBundle(), nil
	}
	if err != nil {
		return nil, err
	}
	return s.attach(userID, bundle), nil
}

// Exists reports whether userID has data in the store or the legacy store.
// Loading it caches the workspace.
func (s *Service) Exists(ctx context.Context, userID string) (bool, error) {
	_, err := s.existing(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// existing is Open without the fresh-bundle fallback.
func (s *Service) existing(ctx context.Context, userID string) (*workspace.Workspace, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrInvalidAccount
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if ws, ok := s.sessions[userID]; ok {
		return ws, nil
	}
	bundle, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.attach(userID, bundle), nil
}

// load must be called with mu held.
func (s *Service) load(ctx context.Context, userID string) (domain.Bundle, error) {
	stored, err := s.repo.Get(ctx, userID)
	if err == nil {
		return *stored, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return domain.Bundle{}, fmt.Errorf("loading account %s: %w", userID, err)
	}
	if s.legacy == nil {
		return domain.Bundle{}, store.ErrNotFound
	}

	bundle, err := legacy.Migrate(ctx, s.legacy, userID)
	if err != nil {
		return domain.Bundle{}, err
	}
	if err := s.repo.Put(ctx, userID, bundle); err != nil {
		return domain.Bundle{}, fmt.Errorf("saving migrated account %s: %w", userID, err)
	}
	if err := legacy.Purge(ctx, s.legacy, userID); err != nil {
		s.logger.Warn("failed to purge legacy keys", "account", userID, "error", err)
	}
	s.logger.Info("migrated legacy account", "account", userID, "products", len(bundle.Products), "sales", len(bundle.Sales))
	return bundle, nil
}

// attach must be called with mu held.
func (s *Service) attach(userID string, bundle domain.Bundle) *workspace.Workspace {
	var ws *workspace.Workspace
	ws = workspace.New(userID, bundle, workspace.Options{
		Now:      s.now,
		OnChange: func() { s.queue.Schedule(userID, ws.Snapshot) },
	})
	s.sessions[userID] = ws
	return ws
}

// Close flushes every pending change. It is called on shutdown.
func (s *Service) Close(ctx context.Context) error {
	return s.queue.Close(ctx)
}

func (s *Service) logAudit(ctx context.Context, action string, entityID string, detail string) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Member: "system"}
	}
	s.logger.InfoContext(ctx, "audit",
		"account", actor.AccountID,
		"member", actor.Member,
		"role", actor.Role,
		"action", action,
		"entity", entityID,
		"detail", detail,
	)
}
