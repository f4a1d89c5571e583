// Package quotas stores denormalized per-project usage counters.
package quotas

import (
	"context"

	"github.com/dmitrijs2005/envvault/internal/server/models"
)

type Repository interface {
	Get(ctx context.Context, projectID string, rt models.ResourceType) (*models.Quota, error)
	Upsert(ctx context.Context, projectID string, rt models.ResourceType, used, limit int) error
	// Add shifts the counter by delta (positive or negative), clamping at zero.
	Add(ctx context.Context, projectID string, rt models.ResourceType, delta int) error
	ListByProject(ctx context.Context, projectID string) ([]*models.Quota, error)
}
