package main

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/SEBSEB62/KAYE-sub000/internal/config"
	"github.com/SEBSEB62/KAYE-sub000/internal/license"
)

func TestValidateSecurityConfigRejectsWeakValues(t *testing.T) {
	err := validateSecurityConfig(config.Config{AuthSecret: "short"})
	assert.Error(t, err)

	err = validateSecurityConfig(config.Config{
		AuthSecret:     "0123456789abcdef0123456789abcdef",
		AllowedOrigins: "*",
		DatabaseURL:    "postgres://buvette@db/buvette",
	})
	assert.Error(t, err)
}

func TestValidateSecurityConfigAcceptsStrongValues(t *testing.T) {
	err := validateSecurityConfig(config.Config{
		AuthSecret:     "0123456789abcdef0123456789abcdef",
		AllowedOrigins: "https://caisse.example.fr",
	})
	assert.NoError(t, err)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, parseLevel(" WARN "))
	assert.Equal(t, slog.LevelInfo, parseLevel("chatty"))
}

func TestNewVerifierFallsBackToOffline(t *testing.T) {
	verifier := newVerifier(config.Config{}, slog.Default())
	assert.IsType(t, license.OfflineVerifier{}, verifier)

	verifier = newVerifier(config.Config{LicenseAPIURL: "https://licences.example.fr/verify"}, slog.Default())
	assert.IsType(t, &license.HTTPVerifier{}, verifier)
}
