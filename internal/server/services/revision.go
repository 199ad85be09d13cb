// Package services contains the sharing core business logic: permission
// resolution, membership state transitions, the sharing orchestrator, and
// the revision consistency protocol.
package services

import (
	"context"
	"time"

	"github.com/lockerhq/locker/internal/common"
	"github.com/lockerhq/locker/internal/dbx"
	"github.com/lockerhq/locker/internal/server/repositories/repomanager"
)

// nowFunc is a seam for tests.
var nowFunc = time.Now

// RevisionService implements the revision consistency protocol: every
// mutation of the sharing state ends by moving the revision date of each
// user whose visible dataset changed, which is what sync layers watch.
type RevisionService struct {
	repos repomanager.RepositoryManager
}

func NewRevisionService(m repomanager.RepositoryManager) *RevisionService {
	return &RevisionService{repos: m}
}

// BumpUser moves a single user's revision date to now.
func (s *RevisionService) BumpUser(ctx context.Context, db dbx.DBTX, userID string) error {
	return s.repos.Users(db).BumpRevision(ctx, []string{userID}, nowFunc())
}

// BumpUsers moves revision dates for a batch of users in one statement.
func (s *RevisionService) BumpUsers(ctx context.Context, db dbx.DBTX, userIDs []string) error {
	return s.repos.Users(db).BumpRevision(ctx, userIDs, nowFunc())
}

// BumpTeam resolves the confirmed members of a team affected by a mutation
// and bumps their users in one batch, returning the affected user ids.
//
// With no collection narrowing every confirmed member is affected. When
// collectionIDs is non-empty, the set narrows to members whose role is in
// roles (typically owner/admin, affected regardless of collection) united
// with members holding an override row for one of the touched collections.
func (s *RevisionService) BumpTeam(ctx context.Context, db dbx.DBTX, teamID int64, collectionIDs []string, roles []string) ([]string, error) {
	affected, err := s.repos.Members(db).SelectAffectedUserIDs(ctx, teamID, roles, collectionIDs)
	if err != nil {
		return nil, err
	}
	if len(affected) == 0 {
		return nil, nil
	}
	if err := s.repos.Users(db).BumpRevision(ctx, affected, nowFunc()); err != nil {
		return nil, err
	}
	return affected, nil
}

// AdminRoles is the narrowing passed for collection-scoped mutations:
// owners and admins are affected no matter which collection was touched.
var AdminRoles = []string{common.RoleOwner, common.RoleAdmin}
