package models

import "time"

// Cipher is an encrypted vault entry. It is owned by exactly one user
// (personal) XOR one team (shared); the storage layer enforces the
// exclusivity with a CHECK constraint.
type Cipher struct {
	ID     string
	UserID *string
	TeamID *int64
	Type   int
	// Data is the opaque ciphertext payload; the server never inspects it.
	Data string
	// Folders maps user id to that viewer's personal folder id. A shared
	// cipher can sit in different folders for different viewers; the map
	// is cleared for the sharing user when the cipher moves to a team.
	Folders     map[string]string
	DeletedDate *time.Time
	CreatedAt   time.Time
}

// Owned reports whether the cipher is personally owned (not team-shared).
func (c *Cipher) Owned() bool { return c.UserID != nil && c.TeamID == nil }

// Deleted reports whether the cipher is soft-deleted (in trash).
func (c *Cipher) Deleted() bool { return c.DeletedDate != nil }
