package variables

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

func (r *PostgresRepository) Create(ctx context.Context, v *models.Variable) (*models.Variable, error) {
	query :=
		`INSERT INTO variables (environment_id, name, encrypted_value, iv, auth_tag)
         VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		v.EnvironmentID, v.Name, v.EncryptedValue, v.IV, v.AuthTag).
		Scan(&v.ID, &v.CreatedAt, &v.UpdatedAt)

	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrConflict
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return v, nil
}

func (r *PostgresRepository) GetByName(ctx context.Context, environmentID, name string) (*models.Variable, error) {
	query :=
		`SELECT id, environment_id, name, encrypted_value, iv, auth_tag, created_at, updated_at
		 FROM variables
		 WHERE environment_id = $1 AND name = $2
		 `

	v := &models.Variable{}
	err := r.db.QueryRowContext(ctx, query, environmentID, name).
		Scan(&v.ID, &v.EnvironmentID, &v.Name, &v.EncryptedValue, &v.IV, &v.AuthTag,
			&v.CreatedAt, &v.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return v, nil
}

func (r *PostgresRepository) ListByEnvironment(ctx context.Context, environmentID string) ([]*models.Variable, error) {
	query :=
		`SELECT id, environment_id, name, encrypted_value, iv, auth_tag, created_at, updated_at
		 FROM variables
		 WHERE environment_id = $1 ORDER BY name
		 `

	rows, err := r.db.QueryContext(ctx, query, environmentID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Variable
	for rows.Next() {
		v := &models.Variable{}
		if err := rows.Scan(&v.ID, &v.EnvironmentID, &v.Name, &v.EncryptedValue, &v.IV, &v.AuthTag,
			&v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) CountByEnvironment(ctx context.Context, environmentID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM variables WHERE environment_id = $1`, environmentID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return count, nil
}

func (r *PostgresRepository) UpdateValue(ctx context.Context, id string, encryptedValue, iv, authTag []byte) error {
	query :=
		`UPDATE variables SET encrypted_value = $2, iv = $3, auth_tag = $4, updated_at = now()
		 WHERE id = $1
		 `
	if _, err := r.db.ExecContext(ctx, query, id, encryptedValue, iv, authTag); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM variables WHERE id = $1`, id); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
