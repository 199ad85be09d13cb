package collections

import (
	"context"

	"github.com/lockerhq/locker/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, c *models.Collection) error
	GetByID(ctx context.Context, id string) (*models.Collection, error)
	ListByTeam(ctx context.Context, teamID int64) ([]*models.Collection, error)
	Delete(ctx context.Context, id string) error

	// UpsertMember creates or refreshes the per-member hide_passwords
	// override for one collection.
	UpsertMember(ctx context.Context, cm *models.CollectionMember) error
	// ListMembersByMember returns every collection override held by one
	// team member (a permission-resolver reach path).
	ListMembersByMember(ctx context.Context, memberID string) ([]*models.CollectionMember, error)
	DeleteMembersByMember(ctx context.Context, memberID string) error

	AttachCipher(ctx context.Context, collectionID, cipherID string) error
	ListCollectionIDsByCipher(ctx context.Context, cipherID string) ([]string, error)
}
