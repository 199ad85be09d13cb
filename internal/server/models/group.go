package models

import "time"

// Group links an enterprise-directory group into one team with a role
// applied to all of its members within that team. The bigserial id doubles
// as creation order: the lowest id is the earliest-created group.
type Group struct {
	ID                int64
	TeamID            int64
	EnterpriseGroupID string
	Role              string
	// AccessAll grants group members visibility into every cipher and
	// collection of the team regardless of per-collection assignment.
	AccessAll bool
	CreatedAt time.Time
}
