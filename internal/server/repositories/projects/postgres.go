package projects

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

const projectColumns = `id, owner_id, name, description, passcode_hash, passcode_salt,
        encrypted_passcode, passcode_iv, passcode_auth_tag,
        verifier_ciphertext, verifier_iv, verifier_auth_tag, created_at, updated_at`

func (r *PostgresRepository) Create(ctx context.Context, p *models.Project) (*models.Project, error) {
	query :=
		`INSERT INTO projects (owner_id, name, description, passcode_hash, passcode_salt,
             encrypted_passcode, passcode_iv, passcode_auth_tag,
             verifier_ciphertext, verifier_iv, verifier_auth_tag)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING id, created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		p.OwnerID, p.Name, p.Description, p.PasscodeHash, p.PasscodeSalt,
		p.EncryptedPasscode, p.PasscodeIV, p.PasscodeAuthTag,
		p.VerifierCiphertext, p.VerifierIV, p.VerifierAuthTag).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return p, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = $1`

	p := &models.Project{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.OwnerID, &p.Name, &p.Description, &p.PasscodeHash, &p.PasscodeSalt,
		&p.EncryptedPasscode, &p.PasscodeIV, &p.PasscodeAuthTag,
		&p.VerifierCiphertext, &p.VerifierIV, &p.VerifierAuthTag, &p.CreatedAt, &p.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return p, nil
}

func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerID string) ([]*models.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE owner_id = $1 ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Project
	for rows.Next() {
		p := &models.Project{}
		if err := rows.Scan(
			&p.ID, &p.OwnerID, &p.Name, &p.Description, &p.PasscodeHash, &p.PasscodeSalt,
			&p.EncryptedPasscode, &p.PasscodeIV, &p.PasscodeAuthTag,
			&p.VerifierCiphertext, &p.VerifierIV, &p.VerifierAuthTag, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) CountByOwner(ctx context.Context, ownerID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM projects WHERE owner_id = $1`, ownerID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return count, nil
}

func (r *PostgresRepository) UpdateInfo(ctx context.Context, id, name, description string) error {
	query :=
		`UPDATE projects SET name = $2, description = $3, updated_at = now()
		 WHERE id = $1
		 `
	if _, err := r.db.ExecContext(ctx, query, id, name, description); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) UpdateWrappedPasscode(ctx context.Context, id string, encryptedPasscode, iv, authTag []byte) error {
	query :=
		`UPDATE projects SET encrypted_passcode = $2, passcode_iv = $3, passcode_auth_tag = $4, updated_at = now()
		 WHERE id = $1
		 `
	if _, err := r.db.ExecContext(ctx, query, id, encryptedPasscode, iv, authTag); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM projects WHERE id = $1`, id); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
