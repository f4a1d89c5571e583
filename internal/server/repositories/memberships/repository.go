// Package memberships stores (project, user, role) links.
package memberships

import (
	"context"

	"github.com/dmitrijs2005/envvault/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, member *models.ProjectMember) (*models.ProjectMember, error)
	Get(ctx context.Context, projectID, userID string) (*models.ProjectMember, error)
	ListByProject(ctx context.Context, projectID string) ([]*models.ProjectMember, error)
	CountByProject(ctx context.Context, projectID string) (int, error)
	UpdateRole(ctx context.Context, projectID, userID string, role models.Role) error
	Delete(ctx context.Context, projectID, userID string) error
}
