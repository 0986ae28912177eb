package license_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/SEBSEB62/KAYE-sub000/internal/domain"
	"github.com/SEBSEB62/KAYE-sub000/internal/license"
)

var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func TestGate_Activate(t *testing.T) {
	type testCase struct {
		name      string
		key       string
		setupMock func(m *license.MockVerifier)
		wantErr   error
		wantPlan  string
		wantDays  int
	}

	tests := []testCase{
		{
			name: "Success",
			key:  " year-ab12-cd34-ef56 ",
			setupMock: func(m *license.MockVerifier) {
				m.EXPECT().
					Verify(gomock.Any(), "YEAR-AB12-CD34-EF56", "acct-1").
					Return(license.Grant{Plan: "yearly", DurationDays: 365}, nil)
			},
			wantPlan: "yearly",
			wantDays: 365,
		},
		{
			name:      "MalformedKeyNeverCallsVerifier",
			key:       "YEAR-AB12-CD34",
			setupMock: func(m *license.MockVerifier) {},
			wantErr:   license.ErrInvalidKey,
		},
		{
			name: "Rejected",
			key:  "MONTH-AAAA-BBBB-CCCC",
			setupMock: func(m *license.MockVerifier) {
				m.EXPECT().
					Verify(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(license.Grant{}, license.ErrRejected).
					Times(1)
			},
			wantErr: license.ErrRejected,
		},
		{
			name: "ZeroDuration",
			key:  "MONTH-AAAA-BBBB-CCCC",
			setupMock: func(m *license.MockVerifier) {
				m.EXPECT().
					Verify(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(license.Grant{Plan: "monthly"}, nil)
			},
			wantErr: license.ErrRejected,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			verifier := license.NewMockVerifier(ctrl)
			tt.setupMock(verifier)

			before := domain.DefaultSettings()
			got, grant, err := license.NewGate(verifier).Activate(context.Background(), before, tt.key, "acct-1", now)

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got.SubscriptionExpiry)
				assert.Empty(t, got.SubscriptionPlan)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantPlan, grant.Plan)
			assert.Equal(t, tt.wantPlan, got.SubscriptionPlan)
			require.NotNil(t, got.SubscriptionExpiry)
			assert.Equal(t, now.AddDate(0, 0, tt.wantDays), *got.SubscriptionExpiry)
			assert.Nil(t, before.SubscriptionExpiry)
		})
	}
}

func TestOfflineVerifier(t *testing.T) {
	tests := []struct {
		key  string
		plan string
		days int
	}{
		{"TRIAL-0000-0000-0000", "trial", 7},
		{"MONTH-0000-0000-0000", "monthly", 30},
		{"YEAR-0000-0000-0000", "yearly", 365},
		{"LIFE-0000-0000-0000", "lifetime", 36500},
		{"PROMO-0000-0000-0000", "standard", 30},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			grant, err := license.OfflineVerifier{}.Verify(context.Background(), tt.key, "acct")
			require.NoError(t, err)
			assert.Equal(t, license.Grant{Plan: tt.plan, DurationDays: tt.days}, grant)
		})
	}
}

func TestHTTPVerifier(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "k3y", r.Header.Get("X-API-Key"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		switch body["licenseKey"] {
		case "GOOD-AAAA-BBBB-CCCC":
			_ = json.NewEncoder(w).Encode(map[string]any{"valid": true, "plan": "pro", "durationDays": 90})
		case "USED-AAAA-BBBB-CCCC":
			_ = json.NewEncoder(w).Encode(map[string]any{"valid": false, "message": "already activated"})
		default:
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]any{"message": "unknown key"})
		}
	}))
	defer srv.Close()

	v := license.NewHTTPVerifier(srv.URL, "k3y", nil)

	grant, err := v.Verify(context.Background(), "GOOD-AAAA-BBBB-CCCC", "acct-1")
	require.NoError(t, err)
	assert.Equal(t, license.Grant{Plan: "pro", DurationDays: 90}, grant)

	_, err = v.Verify(context.Background(), "USED-AAAA-BBBB-CCCC", "acct-1")
	require.ErrorIs(t, err, license.ErrRejected)
	assert.Contains(t, license.Message(err), "already activated")

	_, err = v.Verify(context.Background(), "NOPE-AAAA-BBBB-CCCC", "acct-1")
	require.ErrorIs(t, err, license.ErrRejected)
	assert.Contains(t, err.Error(), "unknown key")

	assert.Equal(t, 3, calls)
}

func TestHTTPVerifierUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := license.NewHTTPVerifier(url, "", nil).Verify(context.Background(), "GOOD-AAAA-BBBB-CCCC", "acct")
	require.Error(t, err)
	assert.True(t, errors.Is(err, license.ErrUnavailable))
}

func TestHTTPVerifierServerErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]any{"message": "maintenance"})
	}))
	defer srv.Close()

	_, err := license.NewHTTPVerifier(srv.URL, "", nil).Verify(context.Background(), "GOOD-AAAA-BBBB-CCCC", "acct")
	require.ErrorIs(t, err, license.ErrUnavailable)
	assert.NotErrorIs(t, err, license.ErrRejected)
	assert.Equal(t, license.Message(license.ErrUnavailable), license.Message(err))
}

func TestEvaluate(t *testing.T) {
	at := func(d time.Duration) *time.Time {
		v := now.Add(d)
		return &v
	}
	day := 24 * time.Hour

	tests := []struct {
		name   string
		expiry *time.Time
		want   license.Status
		locked bool
	}{
		{name: "FirstRun", expiry: nil, want: license.Status{IsFirstRun: true}},
		{name: "FarAway", expiry: at(30 * day), want: license.Status{DaysRemaining: 30}},
		{name: "PartialDayRoundsUp", expiry: at(6*day + time.Hour), want: license.Status{DaysRemaining: 7, ShowWarning: true}},
		{name: "LastHours", expiry: at(3 * time.Hour), want: license.Status{DaysRemaining: 1, ShowWarning: true}},
		{name: "Expired", expiry: at(-2 * day), want: license.Status{IsExpired: true, DaysRemaining: -2}, locked: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := domain.DefaultSettings()
			settings.SubscriptionExpiry = tt.expiry

			got := license.Evaluate(settings, now)
			assert.Equal(t, tt.want.IsFirstRun, got.IsFirstRun)
			assert.Equal(t, tt.want.IsExpired, got.IsExpired)
			assert.Equal(t, tt.want.DaysRemaining, got.DaysRemaining)
			assert.Equal(t, tt.want.ShowWarning, got.ShowWarning)
			assert.Equal(t, tt.locked, got.Locked())
		})
	}
}

func TestMessage(t *testing.T) {
	assert.Contains(t, license.Message(license.ErrInvalidKey), "PREFIXE-XXXX-XXXX-XXXX")
	assert.Contains(t, license.Message(license.ErrUnavailable), "injoignable")
	assert.Empty(t, license.Message(nil))
}
