package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/envvault/internal/common"
	"github.com/dmitrijs2005/envvault/internal/cryptox"
	"github.com/dmitrijs2005/envvault/internal/server/models"
	"github.com/dmitrijs2005/envvault/internal/server/repositories/repomanager"
)

// VariableService reads and writes encrypted variables. Every operation needs
// the project unlocked (the project key in the cache); writes require admin,
// reads membership. Values are encrypted under the project key before they
// reach the repository and decrypted only on the way out to the caller.
type VariableService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	access      *AccessService
	keys        *KeyCache
}

func NewVariableService(db *sql.DB, m repomanager.RepositoryManager, access *AccessService, keys *KeyCache) *VariableService {
	return &VariableService{db: db, repomanager: m, access: access, keys: keys}
}

// Set creates a variable or replaces its value. Name is unique within the
// environment; a create colliding with an existing name surfaces ErrConflict
// unless overwrite is requested via Set semantics (existing variables are
// updated in place).
func (s *VariableService) Set(ctx context.Context, userID, projectID, environmentID, name, value string) (*models.Variable, error) {
	if _, err := s.access.RequireRole(ctx, s.db, projectID, userID, models.RoleAdmin); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, fmt.Errorf("%w: empty variable name", common.ErrBadRequest)
	}

	env, err := s.environmentInProject(ctx, projectID, environmentID)
	if err != nil {
		return nil, err
	}

	projectKey, ok := s.keys.Get(projectID)
	if !ok {
		return nil, common.ErrProjectLocked
	}
	defer common.WipeByteArray(projectKey)

	encrypted, iv, tag, err := cryptox.Encrypt([]byte(value), projectKey)
	if err != nil {
		return nil, err
	}

	repo := s.repomanager.Variables(s.db)

	existing, err := repo.GetByName(ctx, environmentID, name)
	if err == nil {
		if uerr := repo.UpdateValue(ctx, existing.ID, encrypted, iv, tag); uerr != nil {
			return nil, uerr
		}
		existing.EncryptedValue, existing.IV, existing.AuthTag = encrypted, iv, tag
		return existing, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}

	owner, err := s.projectOwner(ctx, projectID)
	if err != nil {
		return nil, err
	}
	limit := models.LimitsFor(owner.Tier).MaxVariablesPerEnvironment
	if limit != models.Unlimited {
		count, err := repo.CountByEnvironment(ctx, env.ID)
		if err != nil {
			return nil, err
		}
		if count >= limit {
			return nil, fmt.Errorf("%w: variables (%d/%d)", common.ErrLimitReached, count, limit)
		}
	}

	v := &models.Variable{EnvironmentID: environmentID, Name: name, EncryptedValue: encrypted, IV: iv, AuthTag: tag}
	return repo.Create(ctx, v)
}

// Get decrypts a single variable for a member of an unlocked project.
func (s *VariableService) Get(ctx context.Context, userID, projectID, environmentID, name string) (string, error) {
	if _, err := s.access.RequireMember(ctx, s.db, projectID, userID); err != nil {
		return "", err
	}
	if _, err := s.environmentInProject(ctx, projectID, environmentID); err != nil {
		return "", err
	}

	projectKey, ok := s.keys.Get(projectID)
	if !ok {
		return "", common.ErrProjectLocked
	}
	defer common.WipeByteArray(projectKey)

	v, err := s.repomanager.Variables(s.db).GetByName(ctx, environmentID, name)
	if err != nil {
		return "", err
	}

	value, err := cryptox.Decrypt(v.EncryptedValue, v.IV, v.AuthTag, projectKey)
	if err != nil {
		return "", err
	}

	return string(value), nil
}

// List decrypts every variable of an environment for a member of an unlocked
// project.
func (s *VariableService) List(ctx context.Context, userID, projectID, environmentID string) (map[string]string, error) {
	if _, err := s.access.RequireMember(ctx, s.db, projectID, userID); err != nil {
		return nil, err
	}
	if _, err := s.environmentInProject(ctx, projectID, environmentID); err != nil {
		return nil, err
	}

	projectKey, ok := s.keys.Get(projectID)
	if !ok {
		return nil, common.ErrProjectLocked
	}
	defer common.WipeByteArray(projectKey)

	vars, err := s.repomanager.Variables(s.db).ListByEnvironment(ctx, environmentID)
	if err != nil {
		return nil, err
	}

	result := make(map[string]string, len(vars))
	for _, v := range vars {
		value, err := cryptox.Decrypt(v.EncryptedValue, v.IV, v.AuthTag, projectKey)
		if err != nil {
			return nil, fmt.Errorf("variable %q: %w", v.Name, err)
		}
		result[v.Name] = string(value)
	}

	return result, nil
}

// Delete removes a variable. Requires admin; no quota counter tracks
// variables, the per-environment ceiling is checked on create.
func (s *VariableService) Delete(ctx context.Context, userID, projectID, environmentID, name string) error {
	if _, err := s.access.RequireRole(ctx, s.db, projectID, userID, models.RoleAdmin); err != nil {
		return err
	}
	if _, err := s.environmentInProject(ctx, projectID, environmentID); err != nil {
		return err
	}

	v, err := s.repomanager.Variables(s.db).GetByName(ctx, environmentID, name)
	if err != nil {
		return err
	}

	return s.repomanager.Variables(s.db).Delete(ctx, v.ID)
}

func (s *VariableService) environmentInProject(ctx context.Context, projectID, environmentID string) (*models.Environment, error) {
	env, err := s.repomanager.Environments(s.db).GetByID(ctx, environmentID)
	if err != nil {
		return nil, err
	}
	if env.ProjectID != projectID {
		return nil, common.ErrNotFound
	}
	return env, nil
}

func (s *VariableService) projectOwner(ctx context.Context, projectID string) (*models.User, error) {
	project, err := s.repomanager.Projects(s.db).GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return s.repomanager.Users(s.db).GetByID(ctx, project.OwnerID)
}
