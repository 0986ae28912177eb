package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SEBSEB62/KAYE-sub000/internal/service"
)

func TestPrintCodes(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, printCodes(&out, "operator-claim-secret", []string{"old", "club"}))

	want := "old\t" + service.ClaimCode("operator-claim-secret", "old") + "\n" +
		"club\t" + service.ClaimCode("operator-claim-secret", "club") + "\n"
	assert.Equal(t, want, out.String())
}

func TestPrintCodesNeedsSecretAndAccounts(t *testing.T) {
	var out bytes.Buffer
	assert.Error(t, printCodes(&out, "", []string{"old"}))
	assert.Error(t, printCodes(&out, "operator-claim-secret", nil))
	assert.Empty(t, out.String())
}
