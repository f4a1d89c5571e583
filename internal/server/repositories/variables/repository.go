// Package variables stores encrypted variable records.
package variables

import (
	"context"

	"github.com/dmitrijs2005/envvault/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, v *models.Variable) (*models.Variable, error)
	GetByName(ctx context.Context, environmentID, name string) (*models.Variable, error)
	ListByEnvironment(ctx context.Context, environmentID string) ([]*models.Variable, error)
	CountByEnvironment(ctx context.Context, environmentID string) (int, error)
	UpdateValue(ctx context.Context, id string, encryptedValue, iv, authTag []byte) error
	Delete(ctx context.Context, id string) error
}
