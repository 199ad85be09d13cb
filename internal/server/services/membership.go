package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lockerhq/locker/internal/common"
	"github.com/lockerhq/locker/internal/dbx"
	"github.com/lockerhq/locker/internal/logging"
	"github.com/lockerhq/locker/internal/server/models"
	"github.com/lockerhq/locker/internal/server/notify"
	"github.com/lockerhq/locker/internal/server/repositories/repomanager"
)

// MembershipService owns the invitation lifecycle of a team member:
// invited -> accepted -> confirmed, with deletion as the only exit.
// Status never moves backwards.
type MembershipService struct {
	db       *sql.DB
	repos    repomanager.RepositoryManager
	rev      *RevisionService
	notifier notify.Notifier
	logger   logging.Logger
}

func NewMembershipService(db *sql.DB, m repomanager.RepositoryManager, rev *RevisionService, n notify.Notifier, l logging.Logger) *MembershipService {
	return &MembershipService{
		db:       db,
		repos:    m,
		rev:      rev,
		notifier: n,
		logger:   l.With("module", "membership_service"),
	}
}

// Accept records the invitee's acceptance. If the owner pre-seeded the
// wrapped key at invite time the row goes straight to confirmed; otherwise
// it parks at accepted until the owner delivers a key via Confirm.
func (s *MembershipService) Accept(ctx context.Context, userID, memberID string) (*models.TeamMember, error) {
	var member *models.TeamMember
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		m, err := s.repos.Members(tx).GetByID(ctx, memberID)
		if err != nil {
			return err
		}
		if !m.HasUser() || *m.UserID != userID {
			return common.ErrorNotFound
		}
		if m.Status != common.StatusInvited {
			return fmt.Errorf("%w: accept from %s", common.ErrorInvalidStatus, m.Status)
		}

		if m.Key != nil {
			m.Status = common.StatusConfirmed
		} else {
			m.Status = common.StatusAccepted
		}
		if err := s.repos.Members(tx).Update(ctx, m); err != nil {
			return err
		}
		member = m
		return s.rev.BumpUser(ctx, tx, userID)
	})
	if err != nil {
		return nil, err
	}
	s.publish(notify.EventMemberAccepted, []string{userID})
	return member, nil
}

// Reject deletes the invitation row. No notification side effect beyond
// the caller-level sync event.
func (s *MembershipService) Reject(ctx context.Context, userID, memberID string) error {
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		m, err := s.repos.Members(tx).GetByID(ctx, memberID)
		if err != nil {
			return err
		}
		if !m.HasUser() || *m.UserID != userID {
			return common.ErrorNotFound
		}
		if m.Status == common.StatusConfirmed {
			return fmt.Errorf("%w: reject from %s", common.ErrorInvalidStatus, m.Status)
		}
		if err := s.repos.Members(tx).Delete(ctx, m.ID); err != nil {
			return err
		}
		return s.rev.BumpUser(ctx, tx, userID)
	})
	if err != nil {
		return err
	}
	s.publish(notify.EventMemberRejected, []string{userID})
	return nil
}

// Confirm is the owner-side transition delivering the wrapped team key.
// The member must currently be accepted; confirming an invited row is
// rejected rather than silently legalized. Confirming an already
// confirmed row is an idempotent no-op.
func (s *MembershipService) Confirm(ctx context.Context, actorID, memberID, key string) (*models.TeamMember, error) {
	var member *models.TeamMember
	var affected []string
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		m, err := s.repos.Members(tx).GetByID(ctx, memberID)
		if err != nil {
			return err
		}
		if err := s.requireTeamAdmin(ctx, tx, m.TeamID, actorID); err != nil {
			return err
		}

		switch m.Status {
		case common.StatusConfirmed:
			member = m
			return nil
		case common.StatusAccepted:
			// proceed
		default:
			return fmt.Errorf("%w: confirm from %s", common.ErrorInvalidStatus, m.Status)
		}

		m.Key = &key
		m.Email = nil
		m.Status = common.StatusConfirmed
		if err := s.repos.Members(tx).Update(ctx, m); err != nil {
			return err
		}
		member = m
		if m.HasUser() {
			affected = []string{*m.UserID}
			return s.rev.BumpUser(ctx, tx, *m.UserID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(notify.EventMemberConfirmed, affected)
	return member, nil
}

// UpdateRole changes a member's role in place. The hide_passwords
// override is only persisted for the member role; for any other role it
// resets to false.
func (s *MembershipService) UpdateRole(ctx context.Context, actorID, memberID, role string, hidePasswords bool) (*models.TeamMember, error) {
	if !common.ValidRole(role) {
		return nil, fmt.Errorf("%w: unknown role %q", common.ErrorInvariantViolation, role)
	}

	var member *models.TeamMember
	var affected []string
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		m, err := s.repos.Members(tx).GetByID(ctx, memberID)
		if err != nil {
			return err
		}
		if err := s.requireTeamAdmin(ctx, tx, m.TeamID, actorID); err != nil {
			return err
		}
		if m.IsPrimary {
			return fmt.Errorf("%w: primary owner role is fixed", common.ErrorInvariantViolation)
		}

		m.Role = role
		if role == common.RoleMember {
			m.HidePasswords = hidePasswords
		} else {
			m.HidePasswords = false
		}
		if err := s.repos.Members(tx).Update(ctx, m); err != nil {
			return err
		}
		member = m
		if m.HasUser() {
			affected = []string{*m.UserID}
			return s.rev.BumpUser(ctx, tx, *m.UserID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(notify.EventMemberUpdated, affected)
	return member, nil
}

// UpdateGroupRole changes a group's role and cascades it onto every member
// row whose provenance is that group (added_by_group). Rows created by an
// individual invite are left alone even when the user also sits in the
// group.
func (s *MembershipService) UpdateGroupRole(ctx context.Context, actorID string, groupID int64, role string) error {
	if !common.ValidRole(role) {
		return fmt.Errorf("%w: unknown role %q", common.ErrorInvariantViolation, role)
	}

	var affected []string
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		group, err := s.repos.Groups(tx).GetByID(ctx, groupID)
		if err != nil {
			return err
		}
		if err := s.requireTeamAdmin(ctx, tx, group.TeamID, actorID); err != nil {
			return err
		}
		if err := s.repos.Groups(tx).UpdateRole(ctx, group.ID, role); err != nil {
			return err
		}

		memberIDs, err := s.repos.Groups(tx).ListMemberIDs(ctx, group.ID)
		if err != nil {
			return err
		}
		for _, id := range memberIDs {
			m, err := s.repos.Members(tx).GetByID(ctx, id)
			if err != nil {
				return err
			}
			if !m.AddedByGroup {
				continue
			}
			m.Role = role
			if role != common.RoleMember {
				m.HidePasswords = false
			}
			if err := s.repos.Members(tx).Update(ctx, m); err != nil {
				return err
			}
			if m.HasUser() {
				affected = append(affected, *m.UserID)
			}
		}
		if len(affected) == 0 {
			return nil
		}
		return s.rev.BumpUsers(ctx, tx, affected)
	})
	if err != nil {
		return err
	}
	s.publish(notify.EventMemberUpdated, affected)
	return nil
}

// requireTeamAdmin rejects actors without the owner or admin role. An
// outsider with no membership row gets not-found, so callers cannot probe
// for team existence; a known member gets an explicit permission error.
func (s *MembershipService) requireTeamAdmin(ctx context.Context, tx dbx.DBTX, teamID int64, actorID string) error {
	actor, err := s.repos.Members(tx).GetByTeamAndUser(ctx, teamID, actorID)
	if err != nil {
		return err
	}
	if actor.Role != common.RoleOwner && actor.Role != common.RoleAdmin {
		return common.ErrorPermissionDenied
	}
	return nil
}

func (s *MembershipService) publish(event string, userIDs []string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := s.notifier.Publish(ctx, notify.SyncEvent{Event: event, UserIDs: userIDs}); err != nil {
			s.logger.Warn(ctx, "sync event publish failed", "event", event, "error", err.Error())
		}
	}()
}
