package team

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/SEBSEB62/KAYE-sub000/internal/domain"
)

func TestMain(m *testing.M) {
	hashCost = bcrypt.MinCost
	os.Exit(m.Run())
}

func TestSimpleHashRoundTrip(t *testing.T) {
	for _, secret := range []string{"1234", "mot de passe", "café ☕ 日本語"} {
		hash, err := SimpleHash(secret)
		require.NoError(t, err)
		assert.NotEqual(t, secret, hash)
		assert.True(t, VerifyHash(secret, hash), secret)
		assert.False(t, VerifyHash(secret+"x", hash), secret)
	}
	assert.False(t, VerifyHash("1234", "not-a-hash"))
}

func TestValidatePIN(t *testing.T) {
	for pin, ok := range map[string]bool{
		"1234":      true,
		"12345678":  true,
		"123":       false,
		"123456789": false,
		"12a4":      false,
		"12-4":      false,
	} {
		err := ValidatePIN(pin)
		if ok {
			assert.NoError(t, err, pin)
		} else {
			assert.ErrorIs(t, err, ErrInvalidPIN, pin)
		}
	}
}

func TestMembersLifecycle(t *testing.T) {
	now := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

	members, owner, err := AddMember(nil, "Sophie", domain.RoleOwner, "2468", now)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(owner.PINHash, "$2"))

	members, helper, err := AddMember(members, " Karim ", domain.RoleMember, "1357", now)
	require.NoError(t, err)
	assert.Equal(t, "Karim", helper.Name)

	_, _, err = AddMember(members, "karim", domain.RoleMember, "0000", now)
	assert.ErrorIs(t, err, ErrDuplicateMember)

	got, err := Authenticate(members, "KARIM", "1357")
	require.NoError(t, err)
	assert.Equal(t, helper.ID, got.ID)

	_, err = Authenticate(members, "Karim", "9999")
	assert.ErrorIs(t, err, ErrBadCredentials)
	_, err = Authenticate(members, "Nobody", "1357")
	assert.ErrorIs(t, err, ErrBadCredentials)

	_, err = RemoveMember(members, owner.ID)
	assert.ErrorIs(t, err, ErrLastOwner)

	members, err = ChangePIN(members, helper.ID, "8642")
	require.NoError(t, err)
	_, err = Authenticate(members, "Karim", "8642")
	require.NoError(t, err)

	members, err = RemoveMember(members, helper.ID)
	require.NoError(t, err)
	assert.Len(t, members, 1)

	for _, m := range Public(members) {
		assert.Empty(t, m.PINHash)
	}
	assert.NotEmpty(t, members[0].PINHash)
}
