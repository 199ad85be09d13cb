package models

import "time"

// Team is the container for shared ownership: either a real enterprise
// organization or an ad-hoc personal share created lazily on first share.
//
// Invariant: every team has exactly one member row with
// IsPrimary=true, Role=owner.
type Team struct {
	// ID is an application-allocated random numeric id, collision-checked
	// at creation time.
	ID   int64
	Name string
	// Key is the wrapped team symmetric key; opaque to the server.
	Key string
	// PersonalShare marks an ad-hoc one-off share container. Such a team
	// is deleted when its last non-owner member is removed.
	PersonalShare bool
	// Locked is billing-driven; locked teams reject sharing mutations.
	Locked                bool
	DefaultCollectionName string
	CreatedAt             time.Time
}
