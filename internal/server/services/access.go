package services

import (
	"context"
	"database/sql"
	"errors"
	"slices"

	"github.com/lockerhq/locker/internal/common"
	"github.com/lockerhq/locker/internal/dbx"
	"github.com/lockerhq/locker/internal/server/models"
	"github.com/lockerhq/locker/internal/server/repositories/repomanager"
)

// Access is the resolved capability of one user over one cipher.
// ViewPassword only annotates listing results for the client; it never
// gates access to the ciphertext blob itself.
type Access struct {
	Reachable    bool
	ViewPassword bool
	Role         string
}

// accessSnapshot is everything the reach-path functions look at, loaded
// up front so each path stays a pure function.
type accessSnapshot struct {
	team              *models.Team
	member            *models.TeamMember
	memberGroups      []*models.Group
	overrides         []*models.CollectionMember
	cipherCollections []string
}

// AccessResolver computes effective permissions by combining direct
// ownership, team role, access-all group membership, and per-collection
// overrides. It has no side effects.
type AccessResolver struct {
	db    *sql.DB
	repos repomanager.RepositoryManager
}

func NewAccessResolver(db *sql.DB, m repomanager.RepositoryManager) *AccessResolver {
	return &AccessResolver{db: db, repos: m}
}

// ResolveCipher resolves userID's access to the given cipher id.
// An unreachable cipher yields common.ErrorNotFound: callers cannot tell
// a missing cipher from one they may not see.
func (r *AccessResolver) ResolveCipher(ctx context.Context, userID, cipherID string) (*Access, error) {
	cipher, err := r.repos.Ciphers(r.db).GetByID(ctx, cipherID)
	if err != nil {
		return nil, err
	}
	access, err := r.Resolve(ctx, r.db, userID, cipher)
	if err != nil {
		return nil, err
	}
	if !access.Reachable {
		return nil, common.ErrorNotFound
	}
	return access, nil
}

// Resolve computes userID's access to an already-loaded cipher. It is
// usable inside a transaction via the db handle. A cipher with no reach
// path comes back with Reachable=false and no error; list filtering
// happens upstream, not here.
func (r *AccessResolver) Resolve(ctx context.Context, db dbx.DBTX, userID string, cipher *models.Cipher) (*Access, error) {
	// Owner of a personal cipher sees everything.
	if cipher.TeamID == nil {
		if cipher.UserID != nil && *cipher.UserID == userID {
			return &Access{Reachable: true, ViewPassword: true, Role: common.RoleOwner}, nil
		}
		return &Access{}, nil
	}

	snap, err := r.loadSnapshot(ctx, db, userID, cipher)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return &Access{}, nil
		}
		return nil, err
	}

	reached, view := combinePaths(snap,
		adminPath,
		accessAllGroupPath,
		collectionPath,
		personalSharePath,
	)
	if !reached {
		return &Access{}, nil
	}
	return &Access{Reachable: true, ViewPassword: view, Role: snap.member.Role}, nil
}

func (r *AccessResolver) loadSnapshot(ctx context.Context, db dbx.DBTX, userID string, cipher *models.Cipher) (*accessSnapshot, error) {
	team, err := r.repos.Teams(db).GetByID(ctx, *cipher.TeamID)
	if err != nil {
		return nil, err
	}
	member, err := r.repos.Members(db).GetByTeamAndUser(ctx, team.ID, userID)
	if err != nil {
		return nil, err
	}
	memberGroups, err := r.repos.Groups(db).ListByMember(ctx, member.ID)
	if err != nil {
		return nil, err
	}
	overrides, err := r.repos.Collections(db).ListMembersByMember(ctx, member.ID)
	if err != nil {
		return nil, err
	}
	cipherCollections, err := r.repos.Collections(db).ListCollectionIDsByCipher(ctx, cipher.ID)
	if err != nil {
		return nil, err
	}
	return &accessSnapshot{
		team:              team,
		member:            member,
		memberGroups:      memberGroups,
		overrides:         overrides,
		cipherCollections: cipherCollections,
	}, nil
}

type reachPath func(*accessSnapshot) (reached, view bool)

// combinePaths evaluates every reach path and ORs view_password across the
// paths that reached the cipher: the most permissive path wins, and a hide
// flag only forces false on its own path.
func combinePaths(s *accessSnapshot, paths ...reachPath) (bool, bool) {
	anyReached, anyView := false, false
	for _, p := range paths {
		reached, view := p(s)
		anyReached = anyReached || reached
		anyView = anyView || (reached && view)
	}
	return anyReached, anyView
}

// adminPath: owners and admins reach every cipher of the team
// unconditionally and always see passwords.
func adminPath(s *accessSnapshot) (bool, bool) {
	reached := s.member.Role == common.RoleOwner || s.member.Role == common.RoleAdmin
	return reached, reached
}

// accessAllGroupPath: membership in any access-all group of the team
// grants full reach with passwords visible.
func accessAllGroupPath(s *accessSnapshot) (bool, bool) {
	for _, g := range s.memberGroups {
		if g.TeamID == s.team.ID && g.AccessAll {
			return true, true
		}
	}
	return false, false
}

// collectionPath: a collection_members row for any collection containing
// the cipher reaches it. The password hides on this path when the override
// says so, or when a member-role user of a personal share carries the
// member-level hide flag.
func collectionPath(s *accessSnapshot) (bool, bool) {
	reached, view := false, false
	for _, cm := range s.overrides {
		if !slices.Contains(s.cipherCollections, cm.CollectionID) {
			continue
		}
		reached = true
		hidden := cm.HidePasswords ||
			(s.member.Role == common.RoleMember && s.team.PersonalShare && s.member.HidePasswords)
		view = view || !hidden
	}
	return reached, view
}

// personalSharePath: a personal share exposes all contained items to every
// confirmed member by team membership alone.
func personalSharePath(s *accessSnapshot) (bool, bool) {
	if !s.team.PersonalShare || s.member.Status != common.StatusConfirmed {
		return false, false
	}
	hidden := s.member.Role == common.RoleMember && s.member.HidePasswords
	return true, !hidden
}
