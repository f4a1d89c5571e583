package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/envvault/internal/common"
	"github.com/dmitrijs2005/envvault/internal/dbx"
	"github.com/dmitrijs2005/envvault/internal/server/models"
	"github.com/dmitrijs2005/envvault/internal/server/repositories/repomanager"
)

// EnvironmentService manages the environments of a project. Mutations require
// admin; reads require membership. Counter updates share the transaction of
// the record change.
type EnvironmentService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	access      *AccessService
	quotas      *QuotaService
}

func NewEnvironmentService(db *sql.DB, m repomanager.RepositoryManager, access *AccessService, quotas *QuotaService) *EnvironmentService {
	return &EnvironmentService{db: db, repomanager: m, access: access, quotas: quotas}
}

func (s *EnvironmentService) Create(ctx context.Context, userID, projectID, name, description string) (*models.Environment, error) {
	if _, err := s.access.RequireRole(ctx, s.db, projectID, userID, models.RoleAdmin); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, fmt.Errorf("%w: empty environment name", common.ErrBadRequest)
	}

	owner, err := s.projectOwner(ctx, projectID)
	if err != nil {
		return nil, err
	}

	env := &models.Environment{ProjectID: projectID, Name: name, Description: description}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.quotas.CheckAndIncrement(ctx, tx, projectID, owner.Tier, models.ResourceEnvironments); err != nil {
			return err
		}
		_, err := s.repomanager.Environments(tx).Create(ctx, env)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("error creating environment: %w", err)
	}

	return env, nil
}

func (s *EnvironmentService) List(ctx context.Context, userID, projectID string) ([]*models.Environment, error) {
	if _, err := s.access.RequireMember(ctx, s.db, projectID, userID); err != nil {
		return nil, err
	}
	return s.repomanager.Environments(s.db).ListByProject(ctx, projectID)
}

func (s *EnvironmentService) UpdateInfo(ctx context.Context, userID, environmentID, name, description string) error {
	env, err := s.repomanager.Environments(s.db).GetByID(ctx, environmentID)
	if err != nil {
		return err
	}
	if _, err := s.access.RequireRole(ctx, s.db, env.ProjectID, userID, models.RoleAdmin); err != nil {
		return err
	}
	if name == "" {
		return fmt.Errorf("%w: empty environment name", common.ErrBadRequest)
	}
	return s.repomanager.Environments(s.db).UpdateInfo(ctx, environmentID, name, description)
}

// Delete removes an environment (variables cascade), decrements the counter
// and re-evaluates the owner's plan limits.
func (s *EnvironmentService) Delete(ctx context.Context, userID, environmentID string) error {
	env, err := s.repomanager.Environments(s.db).GetByID(ctx, environmentID)
	if err != nil {
		return err
	}
	if _, err := s.access.RequireRole(ctx, s.db, env.ProjectID, userID, models.RoleAdmin); err != nil {
		return err
	}

	owner, err := s.projectOwner(ctx, env.ProjectID)
	if err != nil {
		return err
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Environments(tx).Delete(ctx, environmentID); err != nil {
			return err
		}
		return s.quotas.Decrement(ctx, tx, env.ProjectID, models.ResourceEnvironments)
	})
	if err != nil {
		return fmt.Errorf("error deleting environment: %w", err)
	}

	return s.quotas.Reevaluate(ctx, s.db, owner.ID)
}

func (s *EnvironmentService) projectOwner(ctx context.Context, projectID string) (*models.User, error) {
	project, err := s.repomanager.Projects(s.db).GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return s.repomanager.Users(s.db).GetByID(ctx, project.OwnerID)
}
