package members

import (
	"context"

	"github.com/lockerhq/locker/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, m *models.TeamMember) error
	GetByID(ctx context.Context, id string) (*models.TeamMember, error)
	GetByTeamAndUser(ctx context.Context, teamID int64, userID string) (*models.TeamMember, error)
	GetByTeamAndEmail(ctx context.Context, teamID int64, email string) (*models.TeamMember, error)
	GetPrimaryOwner(ctx context.Context, teamID int64) (*models.TeamMember, error)
	ListByTeam(ctx context.Context, teamID int64) ([]*models.TeamMember, error)
	Update(ctx context.Context, m *models.TeamMember) error
	Delete(ctx context.Context, id string) error
	// CountNonOwners counts remaining member rows that are not the primary
	// owner; zero triggers personal-share teardown.
	CountNonOwners(ctx context.Context, teamID int64) (int, error)
	// SelectAffectedUserIDs resolves the confirmed members of a team whose
	// users must have their revision date bumped. With no narrowing, every
	// confirmed member is affected; otherwise members whose role is in
	// roles, united with members holding a collection_members row for one
	// of collectionIDs.
	SelectAffectedUserIDs(ctx context.Context, teamID int64, roles []string, collectionIDs []string) ([]string, error)
}
