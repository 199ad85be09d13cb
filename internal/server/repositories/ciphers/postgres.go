// Package ciphers provides PostgreSQL-backed persistence for vault entries.
// Payloads are opaque; only ownership and placement are managed here.
package ciphers

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lockerhq/locker/internal/common"
	"github.com/lockerhq/locker/internal/dbx"
	"github.com/lockerhq/locker/internal/server/models"
)

const cipherColumns = `id, user_id, team_id, type, data, folders, deleted_date, created_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func scanCipher(row interface{ Scan(...any) error }) (*models.Cipher, error) {
	c := &models.Cipher{}
	var folders []byte
	err := row.Scan(&c.ID, &c.UserID, &c.TeamID, &c.Type, &c.Data, &folders, &c.DeletedDate, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	c.Folders = map[string]string{}
	if len(folders) > 0 {
		if err := json.Unmarshal(folders, &c.Folders); err != nil {
			return nil, fmt.Errorf("folders decode error: %w", err)
		}
	}
	return c, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Cipher, error) {
	query := fmt.Sprintf(`SELECT %s FROM ciphers WHERE id = $1`, cipherColumns)
	return scanCipher(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) GetByIDForUpdate(ctx context.Context, id string) (*models.Cipher, error) {
	query := fmt.Sprintf(`SELECT %s FROM ciphers WHERE id = $1 FOR UPDATE`, cipherColumns)
	return scanCipher(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) ListByFolder(ctx context.Context, userID, folderID string) ([]*models.Cipher, error) {
	query := fmt.Sprintf(`SELECT %s FROM ciphers
		 WHERE user_id = $1 AND folders ->> $1 = $2 AND deleted_date IS NULL`, cipherColumns)

	rows, err := r.db.QueryContext(ctx, query, userID, folderID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Cipher
	for rows.Next() {
		c, err := scanCipher(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) MoveToTeam(ctx context.Context, ids []string, teamID int64) error {
	if len(ids) == 0 {
		return nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, 0, len(ids)+1)
	args = append(args, teamID)
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+2)
		args = append(args, id)
	}

	query := fmt.Sprintf(`UPDATE ciphers
		 SET user_id = NULL, team_id = $1, folders = '{}'::jsonb
		 WHERE id IN (%s)`, strings.Join(placeholders, ", "))

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) MoveToUser(ctx context.Context, teamID int64, userID string, folderID *string) error {
	// The previous per-user folders map is not restored; the restored
	// cipher gets at most one entry, for the owner.
	folders := map[string]string{}
	if folderID != nil {
		folders[userID] = *folderID
	}
	encoded, err := json.Marshal(folders)
	if err != nil {
		return fmt.Errorf("folders encode error: %w", err)
	}

	query := `UPDATE ciphers
		 SET user_id = $2, team_id = NULL, folders = $3::jsonb
		 WHERE team_id = $1`

	if _, err := r.db.ExecContext(ctx, query, teamID, userID, string(encoded)); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) SoftDeleteToUser(ctx context.Context, teamID int64, userID string, at time.Time) error {
	query := `UPDATE ciphers
		 SET user_id = $2, team_id = NULL, folders = '{}'::jsonb, deleted_date = $3
		 WHERE team_id = $1`

	if _, err := r.db.ExecContext(ctx, query, teamID, userID, at); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
