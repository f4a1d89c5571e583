// Package snapshots stores metadata of encrypted environment exports kept in
// object storage.
package snapshots

import (
	"context"

	"github.com/dmitrijs2005/envvault/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, s *models.Snapshot) (*models.Snapshot, error)
	GetByID(ctx context.Context, id string) (*models.Snapshot, error)
	ListByProject(ctx context.Context, projectID string) ([]*models.Snapshot, error)
	MarkUploaded(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}
