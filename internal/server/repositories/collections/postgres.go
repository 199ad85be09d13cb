// Package collections provides PostgreSQL-backed persistence for team
// collections, per-member overrides, and the collection-cipher links.
package collections

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lockerhq/locker/internal/common"
	"github.com/lockerhq/locker/internal/dbx"
	"github.com/lockerhq/locker/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, c *models.Collection) error {
	query := `INSERT INTO collections (id, team_id, name, is_default) VALUES ($1, $2, $3, $4)`

	if _, err := r.db.ExecContext(ctx, query, c.ID, c.TeamID, c.Name, c.IsDefault); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Collection, error) {
	query := `SELECT id, team_id, name, is_default, created_at FROM collections WHERE id = $1`

	c := &models.Collection{}
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&c.ID, &c.TeamID, &c.Name, &c.IsDefault, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return c, nil
}

func (r *PostgresRepository) ListByTeam(ctx context.Context, teamID int64) ([]*models.Collection, error) {
	query := `SELECT id, team_id, name, is_default, created_at FROM collections
		 WHERE team_id = $1 ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, query, teamID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Collection
	for rows.Next() {
		c := &models.Collection{}
		if err := rows.Scan(&c.ID, &c.TeamID, &c.Name, &c.IsDefault, &c.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM collections WHERE id = $1`, id)
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

func (r *PostgresRepository) UpsertMember(ctx context.Context, cm *models.CollectionMember) error {
	query := `INSERT INTO collection_members (collection_id, member_id, hide_passwords)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (collection_id, member_id) DO UPDATE SET hide_passwords = EXCLUDED.hide_passwords`

	if _, err := r.db.ExecContext(ctx, query, cm.CollectionID, cm.MemberID, cm.HidePasswords); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListMembersByMember(ctx context.Context, memberID string) ([]*models.CollectionMember, error) {
	query := `SELECT collection_id, member_id, hide_passwords FROM collection_members
		 WHERE member_id = $1`

	rows, err := r.db.QueryContext(ctx, query, memberID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.CollectionMember
	for rows.Next() {
		cm := &models.CollectionMember{}
		if err := rows.Scan(&cm.CollectionID, &cm.MemberID, &cm.HidePasswords); err != nil {
			return nil, err
		}
		result = append(result, cm)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) DeleteMembersByMember(ctx context.Context, memberID string) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM collection_members WHERE member_id = $1`, memberID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) AttachCipher(ctx context.Context, collectionID, cipherID string) error {
	query := `INSERT INTO collection_ciphers (collection_id, cipher_id) VALUES ($1, $2)
		 ON CONFLICT (collection_id, cipher_id) DO NOTHING`

	if _, err := r.db.ExecContext(ctx, query, collectionID, cipherID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListCollectionIDsByCipher(ctx context.Context, cipherID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT collection_id FROM collection_ciphers WHERE cipher_id = $1`, cipherID)
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
