package folders

import (
	"context"

	"github.com/lockerhq/locker/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, f *models.Folder) error
	GetByID(ctx context.Context, id string) (*models.Folder, error)
	Delete(ctx context.Context, id string) error
}
