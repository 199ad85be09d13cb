package teams

import (
	"context"

	"github.com/lockerhq/locker/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, team *models.Team) error
	GetByID(ctx context.Context, id int64) (*models.Team, error)
	// Exists backs the collision-checked random id allocation.
	Exists(ctx context.Context, id int64) (bool, error)
	// Delete removes the team; member/group/collection/cipher rows owned
	// by the team go with it (ON DELETE CASCADE).
	Delete(ctx context.Context, id int64) error
}
