package repomanager

import (
	"context"
	"database/sql"

	"github.com/lockerhq/locker/internal/dbx"
	"github.com/lockerhq/locker/internal/server/repositories/ciphers"
	"github.com/lockerhq/locker/internal/server/repositories/collections"
	"github.com/lockerhq/locker/internal/server/repositories/folders"
	"github.com/lockerhq/locker/internal/server/repositories/groups"
	"github.com/lockerhq/locker/internal/server/repositories/members"
	"github.com/lockerhq/locker/internal/server/repositories/teams"
	"github.com/lockerhq/locker/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a DBTX, so a service can use
// the same constructors against the pooled connection or a transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Teams(db dbx.DBTX) teams.Repository
	Members(db dbx.DBTX) members.Repository
	Groups(db dbx.DBTX) groups.Repository
	Collections(db dbx.DBTX) collections.Repository
	Ciphers(db dbx.DBTX) ciphers.Repository
	Folders(db dbx.DBTX) folders.Repository
}
