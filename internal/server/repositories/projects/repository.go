// Package projects stores project records and their passcode envelope
// artifacts.
package projects

import (
	"context"

	"github.com/dmitrijs2005/envvault/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, project *models.Project) (*models.Project, error)
	GetByID(ctx context.Context, id string) (*models.Project, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*models.Project, error)
	CountByOwner(ctx context.Context, ownerID string) (int, error)
	UpdateInfo(ctx context.Context, id, name, description string) error
	// UpdateWrappedPasscode replaces the master-key wrapping of the project
	// passcode. The passcode salt is intentionally left untouched.
	UpdateWrappedPasscode(ctx context.Context, id string, encryptedPasscode, iv, authTag []byte) error
	Delete(ctx context.Context, id string) error
}
