package groups

import (
	"context"

	"github.com/lockerhq/locker/internal/server/models"
)

type Repository interface {
	// Create inserts the team-scoped group and fills in the serial id.
	Create(ctx context.Context, g *models.Group) (*models.Group, error)
	GetByID(ctx context.Context, id int64) (*models.Group, error)
	GetByTeamAndEnterpriseGroup(ctx context.Context, teamID int64, enterpriseGroupID string) (*models.Group, error)
	// ListByEnterpriseGroup returns every team-scoped group wrapping the
	// given enterprise group (used by the retroactive member fan-out).
	ListByEnterpriseGroup(ctx context.Context, enterpriseGroupID string) ([]*models.Group, error)
	UpdateRole(ctx context.Context, id int64, role string) error
	Delete(ctx context.Context, id int64) error

	// AddMember links a team member to a group; re-linking is a no-op.
	AddMember(ctx context.Context, groupID int64, memberID string) error
	ListMemberIDs(ctx context.Context, groupID int64) ([]string, error)
	// ListByMember returns the groups a member row belongs to, ordered by
	// ascending group id (creation order). The first element is the
	// fallback group during group teardown.
	ListByMember(ctx context.Context, memberID string) ([]*models.Group, error)

	// ListEnterpriseGroupUserIDs returns the directory roster of an
	// enterprise group.
	ListEnterpriseGroupUserIDs(ctx context.Context, enterpriseGroupID string) ([]string, error)
}
