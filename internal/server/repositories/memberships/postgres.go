package memberships

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

func (r *PostgresRepository) Create(ctx context.Context, m *models.ProjectMember) (*models.ProjectMember, error) {
	query :=
		`INSERT INTO project_members (project_id, user_id, role)
         VALUES ($1, $2, $3)
		 RETURNING id, created_at
		 `

	err := r.db.QueryRowContext(ctx, query, m.ProjectID, m.UserID, m.Role.String()).
		Scan(&m.ID, &m.CreatedAt)

	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrConflict
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return m, nil
}

func (r *PostgresRepository) Get(ctx context.Context, projectID, userID string) (*models.ProjectMember, error) {
	query :=
		`SELECT id, project_id, user_id, role, created_at FROM project_members
		 WHERE project_id = $1 AND user_id = $2
		 `

	m := &models.ProjectMember{}
	var role string
	err := r.db.QueryRowContext(ctx, query, projectID, userID).
		Scan(&m.ID, &m.ProjectID, &m.UserID, &role, &m.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	m.Role, err = models.ParseRole(role)
	if err != nil {
		return nil, err
	}

	return m, nil
}

func (r *PostgresRepository) ListByProject(ctx context.Context, projectID string) ([]*models.ProjectMember, error) {
	query :=
		`SELECT id, project_id, user_id, role, created_at FROM project_members
		 WHERE project_id = $1 ORDER BY created_at
		 `

	rows, err := r.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.ProjectMember
	for rows.Next() {
		m := &models.ProjectMember{}
		var role string
		if err := rows.Scan(&m.ID, &m.ProjectID, &m.UserID, &role, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		if m.Role, err = models.ParseRole(role); err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) CountByProject(ctx context.Context, projectID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM project_members WHERE project_id = $1`, projectID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return count, nil
}

func (r *PostgresRepository) UpdateRole(ctx context.Context, projectID, userID string, role models.Role) error {
	query :=
		`UPDATE project_members SET role = $3
		 WHERE project_id = $1 AND user_id = $2
		 `
	if _, err := r.db.ExecContext(ctx, query, projectID, userID, role.String()); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, projectID, userID string) error {
	query := `DELETE FROM project_members WHERE project_id = $1 AND user_id = $2`
	if _, err := r.db.ExecContext(ctx, query, projectID, userID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
