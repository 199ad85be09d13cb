// Package members provides PostgreSQL-backed team membership persistence,
// including the affected-user resolution behind revision bumps.
package members

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lockerhq/locker/internal/common"
	"github.com/lockerhq/locker/internal/dbx"
	"github.com/lockerhq/locker/internal/server/models"
)

const memberColumns = `id, team_id, user_id, email, role, status, key,
	hide_passwords, added_by_group, is_default, is_primary, created_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func scanMember(row interface{ Scan(...any) error }) (*models.TeamMember, error) {
	m := &models.TeamMember{}
	err := row.Scan(&m.ID, &m.TeamID, &m.UserID, &m.Email, &m.Role, &m.Status, &m.Key,
		&m.HidePasswords, &m.AddedByGroup, &m.IsDefault, &m.IsPrimary, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return m, nil
}

func (r *PostgresRepository) Create(ctx context.Context, m *models.TeamMember) error {
	query := `INSERT INTO team_members
		 (id, team_id, user_id, email, role, status, key, hide_passwords, added_by_group, is_default, is_primary)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.db.ExecContext(ctx, query,
		m.ID, m.TeamID, m.UserID, m.Email, m.Role, m.Status, m.Key,
		m.HidePasswords, m.AddedByGroup, m.IsDefault, m.IsPrimary)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.TeamMember, error) {
	query := fmt.Sprintf(`SELECT %s FROM team_members WHERE id = $1`, memberColumns)
	return scanMember(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) GetByTeamAndUser(ctx context.Context, teamID int64, userID string) (*models.TeamMember, error) {
	query := fmt.Sprintf(`SELECT %s FROM team_members WHERE team_id = $1 AND user_id = $2`, memberColumns)
	return scanMember(r.db.QueryRowContext(ctx, query, teamID, userID))
}

func (r *PostgresRepository) GetByTeamAndEmail(ctx context.Context, teamID int64, email string) (*models.TeamMember, error) {
	query := fmt.Sprintf(`SELECT %s FROM team_members WHERE team_id = $1 AND email = $2`, memberColumns)
	return scanMember(r.db.QueryRowContext(ctx, query, teamID, email))
}

func (r *PostgresRepository) GetPrimaryOwner(ctx context.Context, teamID int64) (*models.TeamMember, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM team_members WHERE team_id = $1 AND is_primary = TRUE AND role = $2`,
		memberColumns)
	return scanMember(r.db.QueryRowContext(ctx, query, teamID, common.RoleOwner))
}

func (r *PostgresRepository) ListByTeam(ctx context.Context, teamID int64) ([]*models.TeamMember, error) {
	query := fmt.Sprintf(`SELECT %s FROM team_members WHERE team_id = $1 ORDER BY created_at, id`, memberColumns)

	rows, err := r.db.QueryContext(ctx, query, teamID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.TeamMember
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) Update(ctx context.Context, m *models.TeamMember) error {
	query := `UPDATE team_members SET
		 user_id = $2, email = $3, role = $4, status = $5, key = $6,
		 hide_passwords = $7, added_by_group = $8, is_default = $9, is_primary = $10
		 WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query,
		m.ID, m.UserID, m.Email, m.Role, m.Status, m.Key,
		m.HidePasswords, m.AddedByGroup, m.IsDefault, m.IsPrimary)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM team_members WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) CountNonOwners(ctx context.Context, teamID int64) (int, error) {
	query := `SELECT COUNT(*) FROM team_members WHERE team_id = $1 AND is_primary = FALSE`

	var n int
	if err := r.db.QueryRowContext(ctx, query, teamID).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) SelectAffectedUserIDs(ctx context.Context, teamID int64, roles []string, collectionIDs []string) ([]string, error) {
	args := []any{teamID, common.StatusConfirmed}
	query := `SELECT DISTINCT tm.user_id FROM team_members tm
		 WHERE tm.team_id = $1 AND tm.status = $2 AND tm.user_id IS NOT NULL`

	// With collection narrowing, keep the always-affected roles and union
	// in members scoped to one of the touched collections.
	if len(collectionIDs) > 0 {
		rolePh := make([]string, len(roles))
		for i, role := range roles {
			args = append(args, role)
			rolePh[i] = fmt.Sprintf("$%d", len(args))
		}
		colPh := make([]string, len(collectionIDs))
		for i, id := range collectionIDs {
			args = append(args, id)
			colPh[i] = fmt.Sprintf("$%d", len(args))
		}
		query += fmt.Sprintf(` AND (tm.role IN (%s)
			 OR EXISTS (SELECT 1 FROM collection_members cm
				WHERE cm.member_id = tm.id AND cm.collection_id IN (%s)))`,
			strings.Join(rolePh, ", "), strings.Join(colPh, ", "))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		result = append(result, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
