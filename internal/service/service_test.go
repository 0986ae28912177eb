package service

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SEBSEB62/KAYE-sub000/internal/cache"
	"github.com/SEBSEB62/KAYE-sub000/internal/domain"
	"github.com/SEBSEB62/KAYE-sub000/internal/license"
	"github.com/SEBSEB62/KAYE-sub000/internal/persist"
	"github.com/SEBSEB62/KAYE-sub000/internal/store"
	"github.com/SEBSEB62/KAYE-sub000/internal/store/legacy"
	"github.com/SEBSEB62/KAYE-sub000/internal/store/memory"
	"github.com/SEBSEB62/KAYE-sub000/internal/team"
)

var testNow = time.Date(2026, 6, 21, 18, 0, 0, 0, time.UTC)

type fixture struct {
	svc    *Service
	repo   *memory.Store
	legacy *legacy.Map
	cache  *cache.Memory
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	repo := memory.New()
	src := legacy.NewMap(nil)
	mem := cache.NewMemory()
	svc := New(Deps{
		Repo:   repo,
		Queue:  persist.NewQueue(repo, time.Hour, nil),
		Legacy: src,
		Cache:  mem,
		Now:    func() time.Time { return testNow },
	})
	t.Cleanup(func() { _ = svc.Close(context.Background()) })
	return fixture{svc: svc, repo: repo, legacy: src, cache: mem}
}

func ownerCtx(accountID string) context.Context {
	return WithActor(context.Background(), domain.Actor{AccountID: accountID, Member: "Alice", Role: domain.RoleOwner})
}

func TestRegisterAndLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	settings, owner, err := f.svc.Register(ctx, "club", "Buvette du Stade", "Alice", "1234", "")
	require.NoError(t, err)
	assert.Equal(t, "Buvette du Stade", settings.BusinessName)
	assert.Equal(t, domain.RoleOwner, owner.Role)
	assert.Empty(t, owner.PINHash)
	assert.Equal(t, 1, f.repo.Puts())

	actor, err := f.svc.Login(ctx, "club", "alice", "1234")
	require.NoError(t, err)
	assert.Equal(t, domain.Actor{AccountID: "club", Member: "Alice", Role: domain.RoleOwner}, actor)

	_, err = f.svc.Login(ctx, "club", "Alice", "9999")
	assert.ErrorIs(t, err, team.ErrBadCredentials)

	_, err = f.svc.Login(ctx, "nobody", "Alice", "1234")
	assert.ErrorIs(t, err, team.ErrBadCredentials)

	_, _, err = f.svc.Register(ctx, "club", "Autre", "Bob", "5678", "")
	assert.ErrorIs(t, err, ErrAccountExists)
}

func TestRegisterValidatesInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, _, err := f.svc.Register(ctx, "  ", "X", "Alice", "1234", "")
	assert.ErrorIs(t, err, ErrInvalidAccount)

	_, _, err = f.svc.Register(ctx, "club", "X", "Alice", "12", "")
	assert.ErrorIs(t, err, team.ErrInvalidPIN)
}

func TestOpenMigratesLegacyAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.legacy = legacy.NewMap(map[string]string{
		legacy.Key("old", "settings"): `{"businessName":"Vieille Buvette"}`,
		legacy.Key("old", "products"): `[{"id":"p1","name":"Soda","price":2.5,"stock":4,"image":"🥤"}]`,
	})
	f.svc.legacy = f.legacy
	f.svc.claimSecret = "operator-claim-secret"

	ws, err := f.svc.Open(ctx, "old")
	require.NoError(t, err)
	assert.Equal(t, "Vieille Buvette", ws.Settings().BusinessName)
	require.Len(t, ws.Products(), 1)

	stored, err := f.repo.Get(ctx, "old")
	require.NoError(t, err)
	assert.Len(t, stored.Products, 1)
	assert.Zero(t, f.legacy.Len())

	// The migrated account has no members yet and is claimed with the
	// operator's code.
	settings, _, err := f.svc.Register(ctx, "old", "", "Alice", "1234", ClaimCode("operator-claim-secret", "old"))
	require.NoError(t, err)
	assert.Equal(t, "Vieille Buvette", settings.BusinessName)
	assert.Len(t, ws.Products(), 1)
}

func TestRegisterRefusesUnprovenClaim(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.svc.claimSecret = "operator-claim-secret"
	require.NoError(t, f.repo.Put(ctx, "old", domain.NewBundle()))

	for _, code := range []string{"", "0000000000000000", ClaimCode("other-secret", "old"), ClaimCode("operator-claim-secret", "other")} {
		_, _, err := f.svc.Register(ctx, "old", "", "Mallory", "1234", code)
		assert.ErrorIs(t, err, ErrClaimRequired, code)
	}
	stored, err := f.repo.Get(ctx, "old")
	require.NoError(t, err)
	assert.Empty(t, stored.Settings.Team)

	// Codes are case-insensitive.
	code := strings.ToLower(ClaimCode("operator-claim-secret", "old"))
	_, owner, err := f.svc.Register(ctx, "old", "", "Alice", "1234", code)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleOwner, owner.Role)
}

func TestRegisterWithoutClaimSecretCannotClaim(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.repo.Put(ctx, "old", domain.NewBundle()))

	_, _, err := f.svc.Register(ctx, "old", "", "Alice", "1234", ClaimCode("", "old"))
	assert.ErrorIs(t, err, ErrClaimRequired)

	// New accounts never need a code.
	_, _, err = f.svc.Register(ctx, "new", "", "Alice", "1234", "")
	assert.NoError(t, err)
}

func TestClaimCodeIsStable(t *testing.T) {
	code := ClaimCode("operator-claim-secret", "old")
	assert.Len(t, code, 16)
	assert.Equal(t, code, ClaimCode("operator-claim-secret", " old "))
	assert.Equal(t, strings.ToUpper(code), code)
	assert.NotEqual(t, code, ClaimCode("operator-claim-secret", "club"))
}

func TestOpenFallsBackToDefaults(t *testing.T) {
	f := newFixture(t)

	ws, err := f.svc.Open(context.Background(), "fresh")
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultSettings().BusinessName, ws.Settings().BusinessName)

	again, err := f.svc.Open(context.Background(), "fresh")
	require.NoError(t, err)
	assert.Same(t, ws, again)
}

func TestCloseFlushesPendingChanges(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, _, err := f.svc.Register(ctx, "club", "", "Alice", "1234", "")
	require.NoError(t, err)

	ws, err := f.svc.Open(ctx, "club")
	require.NoError(t, err)
	_, err = ws.AddProduct(domain.Product{Name: "Soda", Price: decimal.RequireFromString("2.50"), Stock: 5})
	require.NoError(t, err)

	stored, err := f.repo.Get(ctx, "club")
	require.NoError(t, err)
	assert.Empty(t, stored.Products, "the idle delay has not elapsed")

	require.NoError(t, f.svc.Close(ctx))
	stored, err = f.repo.Get(ctx, "club")
	require.NoError(t, err)
	assert.Len(t, stored.Products, 1)
}

func TestRestoreConvertsLegacyEncoding(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, _, err := f.svc.Register(ctx, "club", "", "Alice", "1234", "")
	require.NoError(t, err)

	// "Café" in Windows-1252.
	backup := []byte(`{"settings":{"businessName":"Caf` + "\xe9" + `"},"products":[{"id":"p1","name":"Cr` + "\xea" + `pe","price":"3","stock":2}]}`)
	bundle, err := f.svc.Restore(ctx, "club", bytes.NewReader(backup))
	require.NoError(t, err)
	assert.Equal(t, "Café", bundle.Settings.BusinessName)
	require.Len(t, bundle.Products, 1)
	assert.Equal(t, "Crêpe", bundle.Products[0].Name)
	assert.NotNil(t, bundle.Sales)

	// Members survive a backup that carries none.
	_, err = f.svc.Login(ctx, "club", "Alice", "1234")
	require.NoError(t, err)

	stored, err := f.repo.Get(ctx, "club")
	require.NoError(t, err)
	assert.Equal(t, "Café", stored.Settings.BusinessName)
}

func TestRestoreRejectsBackupWithoutSettings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Restore(ctx, "club", strings.NewReader(`{"products":[]}`))
	assert.ErrorIs(t, err, ErrInvalidBackup)

	_, err = f.svc.Restore(ctx, "club", strings.NewReader(`not json`))
	assert.ErrorIs(t, err, ErrInvalidBackup)
}

func TestExportRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ws, err := f.svc.Open(ctx, "club")
	require.NoError(t, err)
	_, err = ws.AddProduct(domain.Product{Name: "Soda", Price: decimal.RequireFromString("2.50"), Stock: 5})
	require.NoError(t, err)

	data, err := f.svc.Export(ctx, "club")
	require.NoError(t, err)
	assert.Contains(t, string(data), `"stockHistory"`)

	restored, err := f.svc.Restore(ctx, "other", bytes.NewReader(data))
	require.NoError(t, err)
	require.Len(t, restored.Products, 1)
	assert.Equal(t, 5, restored.Products[0].Stock)
	assert.Len(t, restored.StockHistory, 1)
}

func TestReportIsCachedPerInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ws, err := f.svc.Open(ctx, "club")
	require.NoError(t, err)
	p, err := ws.AddProduct(domain.Product{Name: "Soda", Price: decimal.RequireFromString("2.50"), PurchasePrice: decimal.RequireFromString("1"), Stock: 5})
	require.NoError(t, err)
	_, err = ws.AddToCart(p.ID)
	require.NoError(t, err)
	_, err = ws.ProcessSale(domain.PaymentCash, "", "Alice")
	require.NoError(t, err)

	rep, err := f.svc.Report(ctx, "club", nil)
	require.NoError(t, err)
	assert.Equal(t, "2.5", rep.TotalRevenue.String())
	assert.Equal(t, 1, f.cache.Len())

	_, err = f.svc.Report(ctx, "club", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, f.cache.Len())

	_, err = ws.AddDonation(decimal.NewFromInt(5), domain.PaymentCash, "")
	require.NoError(t, err)
	rep, err = f.svc.Report(ctx, "club", nil)
	require.NoError(t, err)
	assert.Equal(t, "5", rep.TotalDonations.String())
	assert.Equal(t, 2, f.cache.Len())

	doc, err := f.svc.Document(ctx, "club", nil, 0)
	require.NoError(t, err)
	assert.NotEmpty(t, doc.Tables)
}

func TestReceiptForUnknownSale(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Receipt(context.Background(), "club", "missing")
	assert.Error(t, err)
}

func TestActivateApp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	status, err := f.svc.LicenseStatus(ctx, "club")
	require.NoError(t, err)
	assert.True(t, status.IsFirstRun)

	_, err = f.svc.ActivateApp(ctx, "club", "bad key")
	assert.ErrorIs(t, err, license.ErrInvalidKey)
	assert.False(t, f.svc.ConsumeJustActivated("club"))

	status, err = f.svc.ActivateApp(ctx, "club", "trial-abcd-1234-wxyz")
	require.NoError(t, err)
	assert.Equal(t, "trial", status.Plan)
	assert.Equal(t, 7, status.DaysRemaining)
	assert.True(t, status.ShowWarning)

	assert.True(t, f.svc.ConsumeJustActivated("club"))
	assert.False(t, f.svc.ConsumeJustActivated("club"))
}

func TestMemberManagementRequiresOwner(t *testing.T) {
	f := newFixture(t)
	_, _, err := f.svc.Register(context.Background(), "club", "", "Alice", "1234", "")
	require.NoError(t, err)

	memberCtx := WithActor(context.Background(), domain.Actor{AccountID: "club", Member: "Bob", Role: domain.RoleMember})
	_, err = f.svc.AddMember(memberCtx, "club", "Carol", domain.RoleMember, "5678")
	assert.ErrorIs(t, err, ErrForbidden)

	bob, err := f.svc.AddMember(ownerCtx("club"), "club", "Bob", domain.RoleMember, "5678")
	require.NoError(t, err)
	assert.Empty(t, bob.PINHash)

	members, err := f.svc.Members(context.Background(), "club")
	require.NoError(t, err)
	require.Len(t, members, 2)
	for _, m := range members {
		assert.Empty(t, m.PINHash)
	}

	require.NoError(t, f.svc.ChangePIN(memberCtx, "club", bob.ID, "4321"))
	_, err = f.svc.Login(context.Background(), "club", "Bob", "4321")
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.ChangePIN(memberCtx, "club", members[0].ID, "0000"), ErrForbidden)
	assert.ErrorIs(t, f.svc.RemoveMember(memberCtx, "club", bob.ID), ErrForbidden)
	require.NoError(t, f.svc.RemoveMember(ownerCtx("club"), "club", bob.ID))
}

func TestSetProductImage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ws, err := f.svc.Open(ctx, "club")
	require.NoError(t, err)
	p, err := ws.AddProduct(domain.Product{Name: "Crêpe", Price: decimal.NewFromInt(3), Stock: 2})
	require.NoError(t, err)

	img := image.NewRGBA(image.Rect(0, 0, 10, 10))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	updated, err := f.svc.SetProductImage(ctx, "club", p.ID, buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, domain.ImageBitmap, updated.Image.Kind)
	assert.Equal(t, 2, updated.Stock)
}

func TestOpenRejectsEmptyAccount(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Open(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidAccount)

	ok, err := f.svc.Exists(context.Background(), "ghost")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = f.repo.Get(context.Background(), "ghost")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
