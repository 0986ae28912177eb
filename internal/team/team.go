// Package team manages the people allowed to operate an account's register
// and their PIN codes.
package team

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/SEBSEB62/KAYE-sub000/internal/domain"
	"github.com/SEBSEB62/KAYE-sub000/internal/xid"
)

var (
	ErrInvalidPIN      = errors.New("pin must be 4 to 8 digits")
	ErrInvalidName     = errors.New("member name is required")
	ErrInvalidRole     = errors.New("unknown member role")
	ErrDuplicateMember = errors.New("a member with this name already exists")
	ErrMemberNotFound  = errors.New("member not found")
	ErrLastOwner       = errors.New("the last owner cannot be removed")
	ErrBadCredentials  = errors.New("invalid member or pin")
)

// hashCost is lowered by tests.
var hashCost = bcrypt.DefaultCost

// dummyHash keeps Authenticate's timing the same whether or not the member
// exists.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("00000000"), bcrypt.MinCost)

// SimpleHash hashes any UTF-8 secret with bcrypt.
func SimpleHash(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), hashCost)
	if err != nil {
		return "", fmt.Errorf("hashing secret: %w", err)
	}
	return string(hash), nil
}

func VerifyHash(secret, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}

func ValidatePIN(pin string) error {
	if len(pin) < 4 || len(pin) > 8 {
		return ErrInvalidPIN
	}
	for _, r := range pin {
		if r < '0' || r > '9' {
			return ErrInvalidPIN
		}
	}
	return nil
}

// AddMember returns a new member list with name appended.
func AddMember(members []domain.TeamMember, name string, role domain.MemberRole, pin string, now time.Time) ([]domain.TeamMember, domain.TeamMember, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return members, domain.TeamMember{}, ErrInvalidName
	}
	if role != domain.RoleOwner && role != domain.RoleMember {
		return members, domain.TeamMember{}, ErrInvalidRole
	}
	if err := ValidatePIN(pin); err != nil {
		return members, domain.TeamMember{}, err
	}
	if find(members, name) >= 0 {
		return members, domain.TeamMember{}, ErrDuplicateMember
	}
	hash, err := SimpleHash(pin)
	if err != nil {
		return members, domain.TeamMember{}, err
	}

	member := domain.TeamMember{
		ID:        xid.New("mbr"),
		Name:      name,
		Role:      role,
		PINHash:   hash,
		CreatedAt: now,
	}
	return append(slices.Clone(members), member), member, nil
}

// RemoveMember refuses to leave the account without an owner.
func RemoveMember(members []domain.TeamMember, id string) ([]domain.TeamMember, error) {
	idx := slices.IndexFunc(members, func(m domain.TeamMember) bool { return m.ID == id })
	if idx < 0 {
		return members, ErrMemberNotFound
	}
	if members[idx].Role == domain.RoleOwner && owners(members) == 1 {
		return members, ErrLastOwner
	}
	return slices.Delete(slices.Clone(members), idx, idx+1), nil
}

func ChangePIN(members []domain.TeamMember, id, pin string) ([]domain.TeamMember, error) {
	if err := ValidatePIN(pin); err != nil {
		return members, err
	}
	idx := slices.IndexFunc(members, func(m domain.TeamMember) bool { return m.ID == id })
	if idx < 0 {
		return members, ErrMemberNotFound
	}
	hash, err := SimpleHash(pin)
	if err != nil {
		return members, err
	}
	out := slices.Clone(members)
	out[idx].PINHash = hash
	return out, nil
}

// Authenticate matches name case-insensitively and checks pin.
func Authenticate(members []domain.TeamMember, name, pin string) (domain.TeamMember, error) {
	idx := find(members, strings.TrimSpace(name))
	if idx < 0 {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(pin))
		return domain.TeamMember{}, ErrBadCredentials
	}
	if !VerifyHash(pin, members[idx].PINHash) {
		return domain.TeamMember{}, ErrBadCredentials
	}
	return members[idx], nil
}

// Public strips PIN hashes before members leave the process.
func Public(members []domain.TeamMember) []domain.TeamMember {
	out := slices.Clone(members)
	for i := range out {
		out[i].PINHash = ""
	}
	if out == nil {
		out = []domain.TeamMember{}
	}
	return out
}

func find(members []domain.TeamMember, name string) int {
	return slices.IndexFunc(members, func(m domain.TeamMember) bool { return strings.EqualFold(m.Name, name) })
}

func owners(members []domain.TeamMember) int {
	n := 0
	for _, m := range members {
		if m.Role == domain.RoleOwner {
			n++
		}
	}
	return n
}
