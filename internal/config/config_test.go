package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDoesNotInjectWeakAuthDefaults(t *testing.T) {
	t.Setenv("AUTH_SECRET", "   ")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.AuthSecret)
}

func TestLoadTrimsClaimSecret(t *testing.T) {
	t.Setenv("LEGACY_CLAIM_SECRET", "  operator-claim-secret \n")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "operator-claim-secret", cfg.ClaimSecret)
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Address())
	assert.Equal(t, 800*time.Millisecond, cfg.PersistIdleDelay)
	assert.Equal(t, "Europe/Paris", cfg.ReportTimezone)
	assert.Empty(t, cfg.LicenseAPIURL)
	assert.Empty(t, cfg.SuggestAPIKey)
}

func TestLoadParsesListsAndDurations(t *testing.T) {
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example,,")
	t.Setenv("LICENSE_OAUTH_SCOPES", "licenses.verify")
	t.Setenv("PERSIST_IDLE_DELAY", "2s")
	t.Setenv("REPORT_TIMEZONE", "Not/AZone")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Origins())
	assert.Equal(t, []string{"licenses.verify"}, cfg.OAuthScopes())
	assert.Equal(t, 2*time.Second, cfg.PersistIdleDelay)
	assert.Equal(t, time.UTC, cfg.Location())
}

func TestLoadRejectsMalformedValues(t *testing.T) {
	t.Setenv("REDIS_DB", "zero")

	_, err := Load()
	assert.Error(t, err)
}
