package users

import (
	"context"
	"time"

	"github.com/lockerhq/locker/internal/server/models"
)

// Repository is the user directory consumed by the sharing core. Users are
// referenced, never owned: nothing here deletes them.
type Repository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	// GetActivatedByEmail resolves an email to an activated account;
	// common.ErrorNotFound means the invite stays email-only.
	GetActivatedByEmail(ctx context.Context, email string) (*models.User, error)
	// BumpRevision sets revision_date for every given user in one batch.
	BumpRevision(ctx context.Context, userIDs []string, at time.Time) error
}
