// Package models defines server-side data models persisted in the database.
package models

import "time"

// User is referenced, never owned, by membership and vault rows: deleting
// teams or members must not touch users.
type User struct {
	ID        string
	Email     string
	Activated bool
	// RevisionDate is the per-user sync watermark. Clients compare it to
	// their last pull and refetch when it moved.
	RevisionDate time.Time
	CreatedAt    time.Time
}
