// Package common contains shared constants and sentinel errors used across
// the Locker sharing core.
package common

// Member roles within a team, ordered from most to least privileged.
const (
	RoleOwner   = "owner"
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleMember  = "member"
)

// Membership statuses. A row only ever moves forward through these;
// the only exit is deletion.
const (
	StatusInvited   = "invited"
	StatusAccepted  = "accepted"
	StatusConfirmed = "confirmed"
)

// Cipher types. The numeric values are part of the stored representation.
const (
	CipherTypeLogin    = 1
	CipherTypeNote     = 2
	CipherTypeCard     = 3
	CipherTypeIdentity = 4
	CipherTypeTOTP     = 5
)

// IsImmutableCipherType reports whether a cipher type is excluded from
// move and reclaim flows (TOTP entries stay where they were created).
func IsImmutableCipherType(t int) bool {
	return t == CipherTypeTOTP
}

// ValidRole reports whether s is one of the known member roles.
func ValidRole(s string) bool {
	switch s {
	case RoleOwner, RoleAdmin, RoleManager, RoleMember:
		return true
	}
	return false
}
