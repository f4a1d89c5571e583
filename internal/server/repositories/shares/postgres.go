package shares

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/envvault/internal/common"
	"github.com/dmitrijs2005/envvault/internal/dbx"
	"github.com/dmitrijs2005/envvault/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const shareColumns = `id, project_id, environment_id, created_by,
        encrypted_payload, payload_iv, payload_auth_tag,
        share_salt, encrypted_share_key, share_key_iv, share_key_auth_tag,
        encrypted_passcode, passcode_iv, passcode_auth_tag,
        expires_at, is_indefinite, views, max_views, disabled, created_at`

func (r *PostgresRepository) Create(ctx context.Context, s *models.SharedSecret) (*models.SharedSecret, error) {
	query :=
		`INSERT INTO shared_secrets (project_id, environment_id, created_by,
             encrypted_payload, payload_iv, payload_auth_tag,
             share_salt, encrypted_share_key, share_key_iv, share_key_auth_tag,
             encrypted_passcode, passcode_iv, passcode_auth_tag,
             expires_at, is_indefinite, max_views)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		 RETURNING id, created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		s.ProjectID, s.EnvironmentID, s.CreatedBy,
		s.EncryptedPayload, s.PayloadIV, s.PayloadAuthTag,
		s.ShareSalt, s.EncryptedShareKey, s.ShareKeyIV, s.ShareKeyAuthTag,
		s.EncryptedPasscode, s.PasscodeIV, s.PasscodeAuthTag,
		s.ExpiresAt, s.IsIndefinite, s.MaxViews).
		Scan(&s.ID, &s.CreatedAt)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return s, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.SharedSecret, error) {
	query := `SELECT ` + shareColumns + ` FROM shared_secrets WHERE id = $1`
	return r.scanShare(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) ListByProject(ctx context.Context, projectID string) ([]*models.SharedSecret, error) {
	query := `SELECT ` + shareColumns + ` FROM shared_secrets WHERE project_id = $1 ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.SharedSecret
	for rows.Next() {
		s := &models.SharedSecret{}
		if err := rows.Scan(
			&s.ID, &s.ProjectID, &s.EnvironmentID, &s.CreatedBy,
			&s.EncryptedPayload, &s.PayloadIV, &s.PayloadAuthTag,
			&s.ShareSalt, &s.EncryptedShareKey, &s.ShareKeyIV, &s.ShareKeyAuthTag,
			&s.EncryptedPasscode, &s.PasscodeIV, &s.PasscodeAuthTag,
			&s.ExpiresAt, &s.IsIndefinite, &s.Views, &s.MaxViews, &s.Disabled, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) CountByProject(ctx context.Context, projectID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM shared_secrets WHERE project_id = $1`, projectID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return count, nil
}

func (r *PostgresRepository) IncrementViews(ctx context.Context, id string) (int, error) {
	query :=
		`UPDATE shared_secrets SET views = views + 1
		 WHERE id = $1 AND NOT disabled AND (max_views IS NULL OR views < max_views)
		 RETURNING views
		 `

	var views int
	err := r.db.QueryRowContext(ctx, query, id).Scan(&views)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, common.ErrViewLimitReached
		}
		return 0, fmt.Errorf("db error: %w", err)
	}

	return views, nil
}

func (r *PostgresRepository) SetDisabled(ctx context.Context, id string, disabled bool) error {
	query := `UPDATE shared_secrets SET disabled = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, disabled); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM shared_secrets WHERE id = $1`, id); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) scanShare(row *sql.Row) (*models.SharedSecret, error) {
	s := &models.SharedSecret{}
	err := row.Scan(
		&s.ID, &s.ProjectID, &s.EnvironmentID, &s.CreatedBy,
		&s.EncryptedPayload, &s.PayloadIV, &s.PayloadAuthTag,
		&s.ShareSalt, &s.EncryptedShareKey, &s.ShareKeyIV, &s.ShareKeyAuthTag,
		&s.EncryptedPasscode, &s.PasscodeIV, &s.PasscodeAuthTag,
		&s.ExpiresAt, &s.IsIndefinite, &s.Views, &s.MaxViews, &s.Disabled, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return s, nil
}
