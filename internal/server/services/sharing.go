package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/lockerhq/locker/internal/common"
	"github.com/lockerhq/locker/internal/dbx"
	"github.com/lockerhq/locker/internal/logging"
	"github.com/lockerhq/locker/internal/server/models"
	"github.com/lockerhq/locker/internal/server/notify"
	"github.com/lockerhq/locker/internal/server/repositories/repomanager"
	"github.com/lockerhq/locker/internal/server/repositories/teams"
)

const notifyTimeout = 5 * time.Second

// Seams for tests.
var (
	newID = uuid.NewString

	// Personal-share team ids are random nine-digit numbers, collision
	// checked at allocation time.
	randTeamID = func() int64 { return 100_000_000 + rand.Int64N(900_000_000) }
)

const teamIDAttempts = 10

// MemberInput describes one member to attach to a share: either an
// existing user by id, or a pending invite by email.
type MemberInput struct {
	UserID        string
	Email         string
	Role          string
	Key           *string
	HidePasswords bool
}

// GroupMemberInput describes one enterprise-group member to attach. A
// pre-distributed key confirms the row immediately.
type GroupMemberInput struct {
	UserID        string
	Key           *string
	HidePasswords bool
}

// GroupInput attaches an enterprise group to a share with a role applied
// to all of its members within this team. An empty Members list pulls the
// full roster from the directory.
type GroupInput struct {
	EnterpriseGroupID string
	Role              string
	AccessAll         bool
	Members           []GroupMemberInput
}

// CreateSharingInput carries one share action: exactly one of CipherID or
// FolderID must be set.
type CreateSharingInput struct {
	SharingKey     string
	CipherID       *string
	FolderID       *string
	CollectionName string
	Members        []MemberInput
	Groups         []GroupInput
}

// SharingResult reports the team and the two notification channels:
// resolved users get an in-app notification, unknown emails get an invite
// mail. Both are owned by the caller.
type SharingResult struct {
	Team                   *models.Team
	CollectionID           *string
	ExistedMemberUserIDs   []string
	NonExistedMemberEmails []string
}

// StopSharingInput removes one member or one group from a share.
type StopSharingInput struct {
	TeamID int64
	// Exactly one of MemberID/GroupID.
	MemberID *string
	GroupID  *int64
	// FolderName names the personal folder that receives the ciphers if
	// the removal tears the share down; defaults to the team's default
	// collection name.
	FolderName string
}

// SharingService is the orchestrator: it converts personal vault items
// into team-owned shared resources and back, creating the ad-hoc
// personal-share team lazily on first share.
type SharingService struct {
	db       *sql.DB
	repos    repomanager.RepositoryManager
	rev      *RevisionService
	notifier notify.Notifier
	logger   logging.Logger
}

func NewSharingService(db *sql.DB, m repomanager.RepositoryManager, rev *RevisionService, n notify.Notifier, l logging.Logger) *SharingService {
	return &SharingService{
		db:       db,
		repos:    m,
		rev:      rev,
		notifier: n,
		logger:   l.With("module", "sharing_service"),
	}
}

// CreateSharing shares a single cipher or a whole folder. Re-sharing an
// already shared cipher reuses its team and adds members instead of
// nesting shares. The whole action is one serializable transaction; the
// cipher row is locked before the reuse-or-create decision so concurrent
// first shares cannot race a duplicate team into existence.
func (s *SharingService) CreateSharing(ctx context.Context, actorID string, in CreateSharingInput) (*SharingResult, error) {
	if (in.CipherID == nil) == (in.FolderID == nil) {
		return nil, common.ErrorMissingShareTarget
	}

	result := &SharingResult{}
	var affected []string

	err := dbx.WithSerializableTx(ctx, s.db, func(ctx context.Context, tx dbx.DBTX) error {
		var cipher *models.Cipher
		var folder *models.Folder
		var owningUserID string
		var err error

		if in.FolderID != nil {
			folder, err = s.repos.Folders(tx).GetByID(ctx, *in.FolderID)
			if err != nil {
				return err
			}
			owningUserID = folder.UserID
		} else {
			cipher, err = s.repos.Ciphers(tx).GetByIDForUpdate(ctx, *in.CipherID)
			if err != nil {
				return err
			}
			if cipher.TeamID != nil {
				owner, err := s.repos.Members(tx).GetPrimaryOwner(ctx, *cipher.TeamID)
				if err != nil {
					return err
				}
				owningUserID = *owner.UserID
			} else {
				owningUserID = *cipher.UserID
			}
		}
		if owningUserID != actorID {
			return common.ErrorNotFound
		}
		owningUser, err := s.repos.Users(tx).GetByID(ctx, owningUserID)
		if err != nil {
			return err
		}

		team, err := s.reuseOrCreateTeam(ctx, tx, cipher, owningUser, in)
		if err != nil {
			return err
		}
		result.Team = team

		var collectionIDs []string
		if folder != nil {
			col := &models.Collection{
				ID:     newID(),
				TeamID: team.ID,
				Name:   in.CollectionName,
			}
			if err := s.repos.Collections(tx).Create(ctx, col); err != nil {
				return err
			}
			result.CollectionID = &col.ID
			collectionIDs = []string{col.ID}
		}

		existed, nonExisted, err := s.addMembers(ctx, tx, team, owningUser, result.CollectionID, in.Members)
		if err != nil {
			return err
		}
		result.ExistedMemberUserIDs = existed
		result.NonExistedMemberEmails = nonExisted

		if err := s.addGroupMembers(ctx, tx, team, owningUser, result.CollectionID, in.Groups); err != nil {
			return err
		}

		if folder != nil {
			if err := s.moveFolderToTeam(ctx, tx, folder, team, *result.CollectionID); err != nil {
				return err
			}
		} else if cipher.TeamID == nil {
			if common.IsImmutableCipherType(cipher.Type) {
				return common.ErrorImmutableCipherType
			}
			if err := s.repos.Ciphers(tx).MoveToTeam(ctx, []string{cipher.ID}, team.ID); err != nil {
				return err
			}
		}

		// Membership rows land before the bump, so the first sync pulled
		// by a new member already reflects their row.
		roles := []string(nil)
		if len(collectionIDs) > 0 {
			roles = AdminRoles
		}
		affected, err = s.rev.BumpTeam(ctx, tx, team.ID, collectionIDs, roles)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publish(notify.EventSharingCreated, affected)
	return result, nil
}

// StopSharing removes one member or one group from a share. When the last
// non-owner row disappears the whole share is torn down and the content
// returns to the primary owner.
func (s *SharingService) StopSharing(ctx context.Context, actorID string, in StopSharingInput) error {
	if (in.MemberID == nil) == (in.GroupID == nil) {
		return fmt.Errorf("%w: exactly one of member or group", common.ErrorInvariantViolation)
	}

	var affected []string
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		team, err := s.repos.Teams(tx).GetByID(ctx, in.TeamID)
		if err != nil {
			return err
		}
		owner, err := s.repos.Members(tx).GetPrimaryOwner(ctx, team.ID)
		if err != nil {
			return err
		}
		if *owner.UserID != actorID {
			return common.ErrorNotFound
		}

		var removed []string
		if in.GroupID != nil {
			removed, err = s.removeGroup(ctx, tx, team, *in.GroupID)
		} else {
			removed, err = s.removeMember(ctx, tx, team, owner, *in.MemberID)
		}
		if err != nil {
			return err
		}

		if err := s.teardownIfEmpty(ctx, tx, team, owner, in.FolderName); err != nil {
			return err
		}

		affected = append(removed, *owner.UserID)
		return s.rev.BumpUsers(ctx, tx, affected)
	})
	if err != nil {
		return err
	}

	s.publish(notify.EventSharingStopped, affected)
	return nil
}

// LeaveSharing lets a non-owner member remove themself from a share.
func (s *SharingService) LeaveSharing(ctx context.Context, actorID string, teamID int64) error {
	var affected []string
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		team, err := s.repos.Teams(tx).GetByID(ctx, teamID)
		if err != nil {
			return err
		}
		m, err := s.repos.Members(tx).GetByTeamAndUser(ctx, team.ID, actorID)
		if err != nil {
			return err
		}
		if m.IsPrimary {
			return fmt.Errorf("%w: sole owner cannot leave the share", common.ErrorInvariantViolation)
		}
		owner, err := s.repos.Members(tx).GetPrimaryOwner(ctx, team.ID)
		if err != nil {
			return err
		}

		if err := s.repos.Collections(tx).DeleteMembersByMember(ctx, m.ID); err != nil {
			return err
		}
		if err := s.repos.Members(tx).Delete(ctx, m.ID); err != nil {
			return err
		}

		if err := s.teardownIfEmpty(ctx, tx, team, owner, ""); err != nil {
			return err
		}

		affected = []string{actorID, *owner.UserID}
		return s.rev.BumpUsers(ctx, tx, affected)
	})
	if err != nil {
		return err
	}

	s.publish(notify.EventSharingStopped, affected)
	return nil
}

// DeleteShareFolder deletes an entire shared folder. The reclaimed ciphers
// go to the owner's trash rather than into a fresh personal folder; this
// asymmetry with StopSharing is deliberate (delete expresses destructive
// intent, stop only revokes access).
func (s *SharingService) DeleteShareFolder(ctx context.Context, actorID, collectionID string) error {
	var affected []string
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		col, err := s.repos.Collections(tx).GetByID(ctx, collectionID)
		if err != nil {
			return err
		}
		team, err := s.repos.Teams(tx).GetByID(ctx, col.TeamID)
		if err != nil {
			return err
		}
		owner, err := s.repos.Members(tx).GetPrimaryOwner(ctx, team.ID)
		if err != nil {
			return err
		}
		if *owner.UserID != actorID {
			return common.ErrorNotFound
		}

		// Everyone who could see the share needs to resync after it is
		// gone, so resolve the affected set before the cascade delete.
		affected, err = s.repos.Members(tx).SelectAffectedUserIDs(ctx, team.ID, nil, nil)
		if err != nil {
			return err
		}

		if err := s.repos.Ciphers(tx).SoftDeleteToUser(ctx, team.ID, *owner.UserID, nowFunc()); err != nil {
			return err
		}
		if err := s.repos.Teams(tx).Delete(ctx, team.ID); err != nil {
			return err
		}
		return s.rev.BumpUsers(ctx, tx, affected)
	})
	if err != nil {
		return err
	}

	s.publish(notify.EventSharingStopped, affected)
	return nil
}

// AddEnterpriseGroupMembers replays group-member addition across every
// personal-share team linked to the enterprise group, so users joining the
// group retroactively gain access to existing shares.
func (s *SharingService) AddEnterpriseGroupMembers(ctx context.Context, enterpriseGroupID string, userIDs []string) error {
	groupRows, err := s.repos.Groups(s.db).ListByEnterpriseGroup(ctx, enterpriseGroupID)
	if err != nil {
		return err
	}

	var affected []string
	for _, g := range groupRows {
		err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
			team, err := s.repos.Teams(tx).GetByID(ctx, g.TeamID)
			if err != nil {
				return err
			}
			if !team.PersonalShare {
				return nil
			}
			owningUser, err := s.teamOwnerUser(ctx, tx, team.ID)
			if err != nil {
				return err
			}

			var collectionID *string
			cols, err := s.repos.Collections(tx).ListByTeam(ctx, team.ID)
			if err != nil {
				return err
			}
			if len(cols) > 0 {
				collectionID = &cols[0].ID
			}

			gi := GroupInput{EnterpriseGroupID: enterpriseGroupID, Role: g.Role, AccessAll: g.AccessAll}
			for _, id := range userIDs {
				gi.Members = append(gi.Members, GroupMemberInput{UserID: id})
			}
			if err := s.addGroupMembers(ctx, tx, team, owningUser, collectionID, []GroupInput{gi}); err != nil {
				return err
			}

			teamAffected, err := s.rev.BumpTeam(ctx, tx, team.ID, nil, nil)
			if err != nil {
				return err
			}
			affected = append(affected, teamAffected...)
			return nil
		})
		if err != nil {
			return err
		}
	}

	s.publish(notify.EventVaultChanged, affected)
	return nil
}

// --- orchestration helpers ---

func (s *SharingService) reuseOrCreateTeam(ctx context.Context, tx dbx.DBTX, cipher *models.Cipher, owner *models.User, in CreateSharingInput) (*models.Team, error) {
	if cipher != nil && cipher.TeamID != nil {
		team, err := s.repos.Teams(tx).GetByID(ctx, *cipher.TeamID)
		if err != nil {
			return nil, err
		}
		if team.Locked {
			return nil, common.ErrorTeamLocked
		}
		return team, nil
	}

	id, err := s.allocateTeamID(ctx, s.repos.Teams(tx))
	if err != nil {
		return nil, err
	}

	name := in.CollectionName
	if name == "" {
		name = fmt.Sprintf("Shared by %s", owner.Email)
	}
	team := &models.Team{
		ID:                    id,
		Name:                  name,
		Key:                   in.SharingKey,
		PersonalShare:         true,
		DefaultCollectionName: in.CollectionName,
	}
	if err := s.repos.Teams(tx).Create(ctx, team); err != nil {
		return nil, err
	}

	key := in.SharingKey
	ownerMember := &models.TeamMember{
		ID:        newID(),
		TeamID:    team.ID,
		UserID:    &owner.ID,
		Role:      common.RoleOwner,
		Status:    common.StatusConfirmed,
		Key:       &key,
		IsDefault: true,
		IsPrimary: true,
	}
	if err := s.repos.Members(tx).Create(ctx, ownerMember); err != nil {
		return nil, err
	}
	return team, nil
}

// allocateTeamID draws random ids until one is free. The surrounding
// serializable transaction keeps the check-then-insert sequence atomic.
func (s *SharingService) allocateTeamID(ctx context.Context, repo teams.Repository) (int64, error) {
	for i := 0; i < teamIDAttempts; i++ {
		id := randTeamID()
		exists, err := repo.Exists(ctx, id)
		if err != nil {
			return 0, err
		}
		if !exists {
			return id, nil
		}
	}
	return 0, fmt.Errorf("team id allocation failed after %d attempts", teamIDAttempts)
}

func (s *SharingService) addMembers(ctx context.Context, tx dbx.DBTX, team *models.Team, owner *models.User, collectionID *string, inputs []MemberInput) (existed []string, nonExisted []string, err error) {
	for _, mi := range inputs {
		if !common.ValidRole(mi.Role) {
			return nil, nil, fmt.Errorf("%w: unknown role %q", common.ErrorInvariantViolation, mi.Role)
		}

		user, err := s.resolveUser(ctx, tx, mi.UserID, mi.Email)
		if err != nil {
			return nil, nil, err
		}

		// Sharing with yourself is silently skipped, not an error.
		if user != nil && user.ID == owner.ID {
			continue
		}
		if user == nil && mi.Email == owner.Email {
			continue
		}

		if user != nil {
			member, err := s.upsertUserMember(ctx, tx, team, user, mi)
			if err != nil {
				return nil, nil, err
			}
			existed = append(existed, user.ID)
			if err := s.assignCollection(ctx, tx, collectionID, member, mi.HidePasswords); err != nil {
				return nil, nil, err
			}
			continue
		}

		if mi.Email == "" {
			continue
		}
		member, err := s.upsertEmailMember(ctx, tx, team, mi)
		if err != nil {
			return nil, nil, err
		}
		nonExisted = append(nonExisted, mi.Email)
		if err := s.assignCollection(ctx, tx, collectionID, member, mi.HidePasswords); err != nil {
			return nil, nil, err
		}
	}
	return existed, nonExisted, nil
}

// resolveUser prefers the user id and falls back to the email; a nil user
// with no error means the invite stays email-only.
func (s *SharingService) resolveUser(ctx context.Context, tx dbx.DBTX, userID, email string) (*models.User, error) {
	repo := s.repos.Users(tx)
	if userID != "" {
		user, err := repo.GetByID(ctx, userID)
		if err == nil && user.Activated {
			return user, nil
		}
		if err != nil && !errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}
	}
	if email != "" {
		user, err := repo.GetActivatedByEmail(ctx, email)
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}
	}
	return nil, nil
}

func (s *SharingService) upsertUserMember(ctx context.Context, tx dbx.DBTX, team *models.Team, user *models.User, mi MemberInput) (*models.TeamMember, error) {
	existing, err := s.repos.Members(tx).GetByTeamAndUser(ctx, team.ID, user.ID)
	if err == nil {
		// Idempotent re-invite: the stored key only changes when the
		// caller supplies a new one.
		if mi.Key != nil {
			existing.Key = mi.Key
			if err := s.repos.Members(tx).Update(ctx, existing); err != nil {
				return nil, err
			}
		}
		return existing, nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return nil, err
	}

	m := &models.TeamMember{
		ID:            newID(),
		TeamID:        team.ID,
		UserID:        &user.ID,
		Role:          mi.Role,
		Status:        common.StatusInvited,
		Key:           mi.Key,
		HidePasswords: mi.Role == common.RoleMember && mi.HidePasswords,
	}
	if err := s.repos.Members(tx).Create(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *SharingService) upsertEmailMember(ctx context.Context, tx dbx.DBTX, team *models.Team, mi MemberInput) (*models.TeamMember, error) {
	existing, err := s.repos.Members(tx).GetByTeamAndEmail(ctx, team.ID, mi.Email)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return nil, err
	}

	email := mi.Email
	m := &models.TeamMember{
		ID:            newID(),
		TeamID:        team.ID,
		Email:         &email,
		Role:          mi.Role,
		Status:        common.StatusInvited,
		Key:           mi.Key,
		HidePasswords: mi.Role == common.RoleMember && mi.HidePasswords,
	}
	if err := s.repos.Members(tx).Create(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// assignCollection gives manager/member roles a per-collection override
// row; owners and admins reach everything without one.
func (s *SharingService) assignCollection(ctx context.Context, tx dbx.DBTX, collectionID *string, m *models.TeamMember, hidePasswords bool) error {
	if collectionID == nil {
		return nil
	}
	if m.Role != common.RoleManager && m.Role != common.RoleMember {
		return nil
	}
	return s.repos.Collections(tx).UpsertMember(ctx, &models.CollectionMember{
		CollectionID:  *collectionID,
		MemberID:      m.ID,
		HidePasswords: hidePasswords,
	})
}

func (s *SharingService) addGroupMembers(ctx context.Context, tx dbx.DBTX, team *models.Team, owner *models.User, collectionID *string, inputs []GroupInput) error {
	for _, gi := range inputs {
		if !common.ValidRole(gi.Role) {
			return fmt.Errorf("%w: unknown role %q", common.ErrorInvariantViolation, gi.Role)
		}

		group, err := s.repos.Groups(tx).GetByTeamAndEnterpriseGroup(ctx, team.ID, gi.EnterpriseGroupID)
		if errors.Is(err, common.ErrorNotFound) {
			group, err = s.repos.Groups(tx).Create(ctx, &models.Group{
				TeamID:            team.ID,
				EnterpriseGroupID: gi.EnterpriseGroupID,
				Role:              gi.Role,
				AccessAll:         gi.AccessAll,
			})
		}
		if err != nil {
			return err
		}

		memberInputs := gi.Members
		if len(memberInputs) == 0 {
			roster, err := s.repos.Groups(tx).ListEnterpriseGroupUserIDs(ctx, gi.EnterpriseGroupID)
			if err != nil {
				return err
			}
			for _, id := range roster {
				memberInputs = append(memberInputs, GroupMemberInput{UserID: id})
			}
		}

		for _, gm := range memberInputs {
			if gm.UserID == owner.ID {
				continue
			}
			user, err := s.repos.Users(tx).GetByID(ctx, gm.UserID)
			if errors.Is(err, common.ErrorNotFound) {
				continue
			}
			if err != nil {
				return err
			}

			member, err := s.repos.Members(tx).GetByTeamAndUser(ctx, team.ID, user.ID)
			if errors.Is(err, common.ErrorNotFound) {
				status := common.StatusInvited
				if gm.Key != nil {
					// Group-seeded keys are pre-distributed.
					status = common.StatusConfirmed
				}
				member = &models.TeamMember{
					ID:            newID(),
					TeamID:        team.ID,
					UserID:        &user.ID,
					Role:          group.Role,
					Status:        status,
					Key:           gm.Key,
					HidePasswords: group.Role == common.RoleMember && gm.HidePasswords,
					AddedByGroup:  true,
				}
				if err := s.repos.Members(tx).Create(ctx, member); err != nil {
					return err
				}
			} else if err != nil {
				return err
			}

			if err := s.repos.Groups(tx).AddMember(ctx, group.ID, member.ID); err != nil {
				return err
			}
			if err := s.assignCollection(ctx, tx, collectionID, member, gm.HidePasswords); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *SharingService) moveFolderToTeam(ctx context.Context, tx dbx.DBTX, folder *models.Folder, team *models.Team, collectionID string) error {
	folderCiphers, err := s.repos.Ciphers(tx).ListByFolder(ctx, folder.UserID, folder.ID)
	if err != nil {
		return err
	}

	var ids []string
	for _, c := range folderCiphers {
		// Immutable types stay personal.
		if common.IsImmutableCipherType(c.Type) {
			continue
		}
		ids = append(ids, c.ID)
	}
	if err := s.repos.Ciphers(tx).MoveToTeam(ctx, ids, team.ID); err != nil {
		return err
	}
	for _, id := range ids {
		if err := s.repos.Collections(tx).AttachCipher(ctx, collectionID, id); err != nil {
			return err
		}
	}
	return s.repos.Folders(tx).Delete(ctx, folder.ID)
}

// removeGroup deletes a group link. Member rows whose only provenance was
// this group are deleted; rows still covered by other groups fall back to
// the role of the earliest remaining group (lowest group id).
func (s *SharingService) removeGroup(ctx context.Context, tx dbx.DBTX, team *models.Team, groupID int64) ([]string, error) {
	group, err := s.repos.Groups(tx).GetByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if group.TeamID != team.ID {
		return nil, common.ErrorNotFound
	}

	memberIDs, err := s.repos.Groups(tx).ListMemberIDs(ctx, group.ID)
	if err != nil {
		return nil, err
	}
	// Delete the group first so the per-member group count below is
	// computed fresh against the remaining links only.
	if err := s.repos.Groups(tx).Delete(ctx, group.ID); err != nil {
		return nil, err
	}

	var removed []string
	for _, id := range memberIDs {
		m, err := s.repos.Members(tx).GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if !m.AddedByGroup {
			// Independent invite path; the group never owned this row.
			continue
		}

		remaining, err := s.repos.Groups(tx).ListByMember(ctx, m.ID)
		if err != nil {
			return nil, err
		}
		if len(remaining) == 0 {
			if err := s.repos.Collections(tx).DeleteMembersByMember(ctx, m.ID); err != nil {
				return nil, err
			}
			if err := s.repos.Members(tx).Delete(ctx, m.ID); err != nil {
				return nil, err
			}
			if m.HasUser() {
				removed = append(removed, *m.UserID)
			}
			continue
		}

		m.Role = remaining[0].Role
		if err := s.repos.Members(tx).Update(ctx, m); err != nil {
			return nil, err
		}
		if m.HasUser() {
			removed = append(removed, *m.UserID)
		}
	}
	return removed, nil
}

func (s *SharingService) removeMember(ctx context.Context, tx dbx.DBTX, team *models.Team, owner *models.TeamMember, memberID string) ([]string, error) {
	m, err := s.repos.Members(tx).GetByID(ctx, memberID)
	if err != nil {
		return nil, err
	}
	if m.TeamID != team.ID {
		return nil, common.ErrorNotFound
	}
	if m.ID == owner.ID {
		return nil, fmt.Errorf("%w: cannot remove the primary owner", common.ErrorInvariantViolation)
	}

	if err := s.repos.Collections(tx).DeleteMembersByMember(ctx, m.ID); err != nil {
		return nil, err
	}
	if err := s.repos.Members(tx).Delete(ctx, m.ID); err != nil {
		return nil, err
	}
	if m.HasUser() {
		return []string{*m.UserID}, nil
	}
	return nil, nil
}

// teardownIfEmpty folds a personal share back to its owner once the last
// non-owner row is gone: a folder share is restored into a fresh personal
// folder, a single-item share simply returns to personal ownership, and
// the team (with its collections and groups) is deleted.
func (s *SharingService) teardownIfEmpty(ctx context.Context, tx dbx.DBTX, team *models.Team, owner *models.TeamMember, folderName string) error {
	if !team.PersonalShare {
		return nil
	}
	n, err := s.repos.Members(tx).CountNonOwners(ctx, team.ID)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	cols, err := s.repos.Collections(tx).ListByTeam(ctx, team.ID)
	if err != nil {
		return err
	}

	var folderID *string
	if len(cols) > 0 {
		name := folderName
		if name == "" {
			name = team.DefaultCollectionName
		}
		if name == "" {
			name = cols[0].Name
		}
		f := &models.Folder{ID: newID(), UserID: *owner.UserID, Name: name}
		if err := s.repos.Folders(tx).Create(ctx, f); err != nil {
			return err
		}
		folderID = &f.ID
	}

	if err := s.repos.Ciphers(tx).MoveToUser(ctx, team.ID, *owner.UserID, folderID); err != nil {
		return err
	}
	return s.repos.Teams(tx).Delete(ctx, team.ID)
}

func (s *SharingService) teamOwnerUser(ctx context.Context, tx dbx.DBTX, teamID int64) (*models.User, error) {
	owner, err := s.repos.Members(tx).GetPrimaryOwner(ctx, teamID)
	if err != nil {
		return nil, err
	}
	return s.repos.Users(tx).GetByID(ctx, *owner.UserID)
}

func (s *SharingService) publish(event string, userIDs []string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := s.notifier.Publish(ctx, notify.SyncEvent{Event: event, UserIDs: userIDs}); err != nil {
			s.logger.Warn(ctx, "sync event publish failed", "event", event, "error", err.Error())
		}
	}()
}
