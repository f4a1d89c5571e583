// Package environments stores environment records.
package environments

import (
	"context"

	"github.com/dmitrijs2005/envvault/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, env *models.Environment) (*models.Environment, error)
	GetByID(ctx context.Context, id string) (*models.Environment, error)
	ListByProject(ctx context.Context, projectID string) ([]*models.Environment, error)
	CountByProject(ctx context.Context, projectID string) (int, error)
	UpdateInfo(ctx context.Context, id, name, description string) error
	Delete(ctx context.Context, id string) error
}
