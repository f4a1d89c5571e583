package quotas

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

func (r *PostgresRepository) Get(ctx context.Context, projectID string, rt models.ResourceType) (*models.Quota, error) {
	query :=
		`SELECT id, project_id, resource_type, used, lim FROM quotas
		 WHERE project_id = $1 AND resource_type = $2
		 `

	q := &models.Quota{}
	var resourceType string
	err := r.db.QueryRowContext(ctx, query, projectID, string(rt)).
		Scan(&q.ID, &q.ProjectID, &resourceType, &q.Used, &q.Limit)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	q.ResourceType = models.ResourceType(resourceType)
	return q, nil
}

func (r *PostgresRepository) Upsert(ctx context.Context, projectID string, rt models.ResourceType, used, limit int) error {
	query :=
		`INSERT INTO quotas (project_id, resource_type, used, lim)
         VALUES ($1, $2, $3, $4)
         ON CONFLICT (project_id, resource_type)
         DO UPDATE SET used = EXCLUDED.used, lim = EXCLUDED.lim
		 `
	if _, err := r.db.ExecContext(ctx, query, projectID, string(rt), used, limit); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Add(ctx context.Context, projectID string, rt models.ResourceType, delta int) error {
	query :=
		`UPDATE quotas SET used = GREATEST(used + $3, 0)
		 WHERE project_id = $1 AND resource_type = $2
		 `

	res, err := r.db.ExecContext(ctx, query, projectID, string(rt), delta)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if affected == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) ListByProject(ctx context.Context, projectID string) ([]*models.Quota, error) {
	query :=
		`SELECT id, project_id, resource_type, used, lim FROM quotas
		 WHERE project_id = $1
		 `

	rows, err := r.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Quota
	for rows.Next() {
		q := &models.Quota{}
		var resourceType string
		if err := rows.Scan(&q.ID, &q.ProjectID, &resourceType, &q.Used, &q.Limit); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		q.ResourceType = models.ResourceType(resourceType)
		result = append(result, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}
