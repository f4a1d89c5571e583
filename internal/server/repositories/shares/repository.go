// Package shares stores double-wrapped shared-secret records.
package shares

import (
	"context"

	"github.com/dmitrijs2005/envvault/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, s *models.SharedSecret) (*models.SharedSecret, error)
	GetByID(ctx context.Context, id string) (*models.SharedSecret, error)
	ListByProject(ctx context.Context, projectID string) ([]*models.SharedSecret, error)
	CountByProject(ctx context.Context, projectID string) (int, error)
	// IncrementViews bumps the view counter if and only if the share is still
	// viewable; the guard runs inside the UPDATE so concurrent reveals cannot
	// overshoot max_views.
	IncrementViews(ctx context.Context, id string) (int, error)
	SetDisabled(ctx context.Context, id string, disabled bool) error
	Delete(ctx context.Context, id string) error
}
