package models

import "time"

// TeamMember is one user's (or pending email's) membership row in a team.
// A user has at most one row per team; a pending invite is keyed by email
// with UserID unset until the invitee registers.
type TeamMember struct {
	ID     string
	TeamID int64
	// Exactly one of UserID/Email is set while the invite is pending;
	// Email is cleared on confirmation.
	UserID *string
	Email  *string
	Role   string
	Status string
	// Key is the member's wrapped copy of the team key; nil until the
	// owner delivers it (confirmation).
	Key *string
	// HidePasswords applies only to Role == member.
	HidePasswords bool
	// AddedByGroup records provenance: the row exists because an
	// enterprise group granted access, not an individual invite.
	AddedByGroup bool
	IsDefault    bool
	IsPrimary    bool
	CreatedAt    time.Time
}

// HasUser reports whether the row is bound to a registered user.
func (m *TeamMember) HasUser() bool { return m.UserID != nil && *m.UserID != "" }
