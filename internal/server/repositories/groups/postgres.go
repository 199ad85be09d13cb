// Package groups provides PostgreSQL-backed persistence for team-scoped
// sharing groups, group membership links, and the enterprise roster lookup.
package groups

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lockerhq/locker/internal/common"
	"github.com/lockerhq/locker/internal/dbx"
	"github.com/lockerhq/locker/internal/server/models"
)

const groupColumns = `id, team_id, enterprise_group_id, role, access_all, created_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func scanGroup(row interface{ Scan(...any) error }) (*models.Group, error) {
	g := &models.Group{}
	err := row.Scan(&g.ID, &g.TeamID, &g.EnterpriseGroupID, &g.Role, &g.AccessAll, &g.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return g, nil
}

func (r *PostgresRepository) Create(ctx context.Context, g *models.Group) (*models.Group, error) {
	query := `INSERT INTO groups (team_id, enterprise_group_id, role, access_all)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		g.TeamID, g.EnterpriseGroupID, g.Role, g.AccessAll).Scan(&g.ID, &g.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return g, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.Group, error) {
	query := fmt.Sprintf(`SELECT %s FROM groups WHERE id = $1`, groupColumns)
	return scanGroup(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) GetByTeamAndEnterpriseGroup(ctx context.Context, teamID int64, enterpriseGroupID string) (*models.Group, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM groups WHERE team_id = $1 AND enterprise_group_id = $2`, groupColumns)
	return scanGroup(r.db.QueryRowContext(ctx, query, teamID, enterpriseGroupID))
}

func (r *PostgresRepository) ListByEnterpriseGroup(ctx context.Context, enterpriseGroupID string) ([]*models.Group, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM groups WHERE enterprise_group_id = $1 ORDER BY id`, groupColumns)
	return r.listGroups(ctx, query, enterpriseGroupID)
}

func (r *PostgresRepository) UpdateRole(ctx context.Context, id int64, role string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE groups SET role = $2 WHERE id = $1`, id, role)
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

func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM groups WHERE id = $1`, id)
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

func (r *PostgresRepository) AddMember(ctx context.Context, groupID int64, memberID string) error {
	query := `INSERT INTO group_members (group_id, member_id) VALUES ($1, $2)
		 ON CONFLICT (group_id, member_id) DO NOTHING`

	if _, err := r.db.ExecContext(ctx, query, groupID, memberID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListMemberIDs(ctx context.Context, groupID int64) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT member_id FROM group_members WHERE group_id = $1`, groupID)
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

func (r *PostgresRepository) ListByMember(ctx context.Context, memberID string) ([]*models.Group, error) {
	query := `SELECT g.id, g.team_id, g.enterprise_group_id, g.role, g.access_all, g.created_at
		 FROM groups g
		 JOIN group_members gm ON gm.group_id = g.id
		 WHERE gm.member_id = $1
		 ORDER BY g.id`
	return r.listGroups(ctx, query, memberID)
}

func (r *PostgresRepository) ListEnterpriseGroupUserIDs(ctx context.Context, enterpriseGroupID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id FROM enterprise_group_members WHERE enterprise_group_id = $1`, enterpriseGroupID)
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

func (r *PostgresRepository) listGroups(ctx context.Context, query string, args ...any) ([]*models.Group, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Group
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
