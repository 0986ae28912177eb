package service

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/SEBSEB62/KAYE-sub000/internal/analytics"
	"github.com/SEBSEB62/KAYE-sub000/internal/domain"
	"github.com/SEBSEB62/KAYE-sub000/internal/media"
	"github.com/SEBSEB62/KAYE-sub000/internal/report"
	"github.com/SEBSEB62/KAYE-sub000/internal/sales"
	"github.com/SEBSEB62/KAYE-sub000/internal/suggest"
)

const reportCachePrefix = "buvette:report:"

// Report computes the analytics of userID over r. Results are cached under
// a digest of the exact input, so any change to the data misses the cache.
func (s *Service) Report(ctx context.Context, userID string, r *analytics.DateRange) (analytics.Report, error) {
	ws, err := s.Open(ctx, userID)
	if err != nil {
		return analytics.Report{}, err
	}
	return s.compute(ctx, analytics.FromBundle(ws.Snapshot(), r, s.loc))
}

func (s *Service) compute(ctx context.Context, in analytics.Input) (analytics.Report, error) {
	key, err := reportKey(in)
	if err != nil {
		return analytics.Compute(in), nil
	}

	var cached analytics.Report
	if ok, err := s.cache.Get(ctx, key, &cached); err != nil {
		s.logger.WarnContext(ctx, "report cache read failed", "error", err)
	} else if ok {
		return cached, nil
	}

	rep := analytics.Compute(in)
	if err := s.cache.Set(ctx, key, rep, s.reportTTL); err != nil {
		s.logger.WarnContext(ctx, "report cache write failed", "error", err)
	}
	return rep, nil
}

func reportKey(in analytics.Input) (string, error) {
	payload, err := json.Marshal(struct {
		Input    analytics.Input `json:"input"`
		Location string          `json:"location"`
	}{in, in.Location.String()})
	if err != nil {
		return "", err
	}
	sum := sha1.Sum(payload)
	return reportCachePrefix + hex.EncodeToString(sum[:]), nil
}

// Document lays the report of userID out for the printable renderers. The
// transaction log keeps at most logLimit sales; zero means the default.
func (s *Service) Document(ctx context.Context, userID string, r *analytics.DateRange, logLimit int) (report.Document, error) {
	ws, err := s.Open(ctx, userID)
	if err != nil {
		return report.Document{}, err
	}
	snapshot := ws.Snapshot()
	rep, err := s.compute(ctx, analytics.FromBundle(snapshot, r, s.loc))
	if err != nil {
		return report.Document{}, err
	}
	return report.Build(rep, *snapshot.Settings, snapshot.Sales, report.Options{
		Location:    s.loc,
		LogLimit:    logLimit,
		GeneratedAt: s.now(),
	}), nil
}

func (s *Service) Receipt(ctx context.Context, userID, saleID string) (report.Receipt, error) {
	ws, err := s.Open(ctx, userID)
	if err != nil {
		return report.Receipt{}, err
	}
	sale, ok := ws.Sale(saleID)
	if !ok {
		return report.Receipt{}, sales.ErrSaleNotFound
	}
	return report.BuildReceipt(sale, ws.Settings(), s.loc)
}

// Suggest proposes one product to add to the open cart.
func (s *Service) Suggest(ctx context.Context, userID string) (suggest.Response, error) {
	ws, err := s.Open(ctx, userID)
	if err != nil {
		return suggest.Response{}, err
	}
	return s.suggester.Suggest(ctx, suggest.Request{
		AccountID: userID,
		Cart:      ws.Cart(),
		Products:  ws.Products(),
		Sales:     ws.Sales(),
		At:        s.now().In(s.loc),
	}), nil
}

// ProductIdea asks the remote assistant for a category, emoji and price for
// a product the operator is about to create.
func (s *Service) ProductIdea(ctx context.Context, userID, name string) (suggest.ProductIdea, error) {
	if s.ideas == nil || !s.ideas.Enabled() {
		return suggest.ProductIdea{}, suggest.ErrDisabled
	}
	ws, err := s.Open(ctx, userID)
	if err != nil {
		return suggest.ProductIdea{}, err
	}
	return s.ideas.IdeaFor(ctx, name, ws.Settings().Categories)
}

// SetProductImage normalises an uploaded picture and attaches it to a
// product.
func (s *Service) SetProductImage(ctx context.Context, userID, productID string, data []byte) (domain.Product, error) {
	ws, err := s.Open(ctx, userID)
	if err != nil {
		return domain.Product{}, err
	}
	img, err := media.Normalize(data, media.DefaultMaxSide)
	if err != nil {
		return domain.Product{}, err
	}
	product, err := ws.SetProductImage(productID, img)
	if err != nil {
		return domain.Product{}, err
	}
	s.logAudit(ctx, "product_image", productID, fmt.Sprintf("type=%s,bytes=%d", img.MIMEType, len(img.Data)))
	return product, nil
}

// SetLogo normalises an uploaded picture and uses it as the business logo.
func (s *Service) SetLogo(ctx context.Context, userID string, data []byte) (domain.Settings, error) {
	ws, err := s.Open(ctx, userID)
	if err != nil {
		return domain.Settings{}, err
	}
	img, err := media.Normalize(data, media.DefaultMaxSide)
	if err != nil {
		return domain.Settings{}, err
	}
	return ws.UpdateSettings(func(settings *domain.Settings) error {
		settings.Logo = img
		return nil
	})
}
