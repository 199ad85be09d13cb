package models

import "time"

// Collection is a team-scoped named bucket of ciphers, created when a
// folder (not a single item) is shared.
type Collection struct {
	ID        string
	TeamID    int64
	Name      string
	IsDefault bool
	CreatedAt time.Time
}

// CollectionMember is a per-member override for a specific collection,
// finer grained than the member-level HidePasswords flag. Only meaningful
// for manager/member roles.
type CollectionMember struct {
	CollectionID  string
	MemberID      string
	HidePasswords bool
}
