package ciphers

import (
	"context"
	"time"

	"github.com/lockerhq/locker/internal/server/models"
)

type Repository interface {
	GetByID(ctx context.Context, id string) (*models.Cipher, error)
	// GetByIDForUpdate locks the cipher row for the rest of the
	// transaction. The share path takes this lock before deciding whether
	// the cipher already belongs to a team, so two concurrent first-share
	// requests cannot both create a personal-share team for it.
	GetByIDForUpdate(ctx context.Context, id string) (*models.Cipher, error)
	// ListByFolder returns the user's ciphers whose folders map places
	// them in the given personal folder.
	ListByFolder(ctx context.Context, userID, folderID string) ([]*models.Cipher, error)
	// MoveToTeam converts the given ciphers to team ownership, clearing
	// user_id and the per-user folders map.
	MoveToTeam(ctx context.Context, ids []string, teamID int64) error
	// MoveToUser converts every cipher of a team back to personal
	// ownership. When folderID is non-nil the restored ciphers land in
	// that folder for the owner; the rest of the folders map stays empty.
	MoveToUser(ctx context.Context, teamID int64, userID string, folderID *string) error
	// SoftDeleteToUser converts a team's ciphers back to the owner and
	// marks them deleted (trash) in one pass.
	SoftDeleteToUser(ctx context.Context, teamID int64, userID string, at time.Time) error
}
