package snapshots

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

func (r *PostgresRepository) Create(ctx context.Context, s *models.Snapshot) (*models.Snapshot, error) {
	query :=
		`INSERT INTO snapshots (project_id, environment_id, created_by, storage_key, iv, auth_tag, upload_status)
         VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		s.ProjectID, s.EnvironmentID, s.CreatedBy, s.StorageKey, s.IV, s.AuthTag, s.UploadStatus).
		Scan(&s.ID, &s.CreatedAt)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return s, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Snapshot, error) {
	query :=
		`SELECT id, project_id, environment_id, created_by, storage_key, iv, auth_tag, upload_status, created_at
		 FROM snapshots
		 WHERE id = $1
		 `

	s := &models.Snapshot{}
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&s.ID, &s.ProjectID, &s.EnvironmentID, &s.CreatedBy, &s.StorageKey,
			&s.IV, &s.AuthTag, &s.UploadStatus, &s.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return s, nil
}

func (r *PostgresRepository) ListByProject(ctx context.Context, projectID string) ([]*models.Snapshot, error) {
	query :=
		`SELECT id, project_id, environment_id, created_by, storage_key, iv, auth_tag, upload_status, created_at
		 FROM snapshots
		 WHERE project_id = $1 ORDER BY created_at DESC
		 `

	rows, err := r.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Snapshot
	for rows.Next() {
		s := &models.Snapshot{}
		if err := rows.Scan(&s.ID, &s.ProjectID, &s.EnvironmentID, &s.CreatedBy, &s.StorageKey,
			&s.IV, &s.AuthTag, &s.UploadStatus, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) MarkUploaded(ctx context.Context, id string) error {
	query := `UPDATE snapshots SET upload_status = 'uploaded' WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM snapshots WHERE id = $1`, id); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
