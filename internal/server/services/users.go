package services

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/envvault/internal/common"
	"github.com/dmitrijs2005/envvault/internal/cryptox"
	"github.com/dmitrijs2005/envvault/internal/server/models"
	"github.com/dmitrijs2005/envvault/internal/server/repositories/repomanager"
)

// UserService provisions accounts from the external identity provider and
// manages master-key setup, tier changes and deactivation.
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	quotas      *QuotaService
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, quotas *QuotaService) *UserService {
	return &UserService{db: db, repomanager: m, quotas: quotas}
}

// EnsureUser maps an authenticated identity to a User record, creating it on
// first sign-in. Deactivated accounts are rejected.
func (s *UserService) EnsureUser(ctx context.Context, email string) (*models.User, error) {
	if email == "" {
		return nil, fmt.Errorf("%w: empty email", common.ErrBadRequest)
	}

	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByEmail(ctx, email)
	if errors.Is(err, common.ErrNotFound) {
		user, err = repo.Create(ctx, &models.User{Email: email, Tier: models.TierFree})
	}
	if err != nil {
		return nil, fmt.Errorf("error provisioning user: %w", err)
	}

	if user.Deactivated {
		return nil, fmt.Errorf("%w: account deactivated", common.ErrForbidden)
	}

	return user, nil
}

// GetByID returns the user record for an authenticated caller.
func (s *UserService) GetByID(ctx context.Context, id string) (*models.User, error) {
	return s.repomanager.Users(s.db).GetByID(ctx, id)
}

// SetMasterKey stores the salted hash of the user's master key. The master
// key itself is never persisted. It can be set once; afterwards only
// rotation may replace it.
func (s *UserService) SetMasterKey(ctx context.Context, userID, masterKey string) error {
	if len(masterKey) < common.MinMasterKeyLength {
		return fmt.Errorf("%w: master key must be at least %d characters", common.ErrBadRequest, common.MinMasterKeyLength)
	}

	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.HasMasterKey() {
		return fmt.Errorf("%w: master key already set", common.ErrConflict)
	}

	salt := cryptox.GenerateSalt()
	hash := cryptox.Hash([]byte(masterKey), salt)

	return repo.UpdateMasterKey(ctx, userID, hash, salt)
}

// VerifyMasterKey checks a candidate master key against the stored hash in
// constant time.
func VerifyMasterKey(user *models.User, masterKey string) bool {
	if !user.HasMasterKey() {
		return false
	}
	candidate := cryptox.Hash([]byte(masterKey), user.MasterKeySalt)
	return subtle.ConstantTimeCompare(user.MasterKeyHash, candidate) == 1
}

// ChangeTier moves a user to another tier. Self-service changes between plan
// tiers are allowed; changing someone else requires the superadmin tier.
// Superadmin is a platform role, not a plan: only an existing superadmin can
// grant it, and a superadmin can never be moved to a lower rank, not even by
// itself. Downgrades trigger plan-limit re-evaluation instead of deleting
// data.
func (s *UserService) ChangeTier(ctx context.Context, actorID, targetID string, newTier models.Tier) error {
	repo := s.repomanager.Users(s.db)

	actor, err := repo.GetByID(ctx, actorID)
	if err != nil {
		return err
	}
	if actorID != targetID && actor.Tier != models.TierSuperAdmin {
		return fmt.Errorf("%w: cannot change another account's tier", common.ErrForbidden)
	}
	if newTier == models.TierSuperAdmin && actor.Tier != models.TierSuperAdmin {
		return fmt.Errorf("%w: only a superadmin can grant superadmin", common.ErrForbidden)
	}

	target, err := repo.GetByID(ctx, targetID)
	if err != nil {
		return err
	}
	if target.Tier == models.TierSuperAdmin && newTier < models.TierSuperAdmin {
		return fmt.Errorf("%w: superadmin cannot be demoted", common.ErrForbidden)
	}

	if err := repo.UpdateTier(ctx, targetID, newTier); err != nil {
		return err
	}

	return s.quotas.Reevaluate(ctx, s.db, targetID)
}

// SetDeactivated toggles the deactivation flag. Only a superadmin may do
// this, and neither a superadmin nor a project owner can be deactivated.
func (s *UserService) SetDeactivated(ctx context.Context, actorID, targetID string, deactivated bool) error {
	repo := s.repomanager.Users(s.db)

	actor, err := repo.GetByID(ctx, actorID)
	if err != nil {
		return err
	}
	if actor.Tier != models.TierSuperAdmin {
		return fmt.Errorf("%w: requires superadmin", common.ErrForbidden)
	}

	target, err := repo.GetByID(ctx, targetID)
	if err != nil {
		return err
	}
	if deactivated {
		if target.Tier == models.TierSuperAdmin {
			return fmt.Errorf("%w: superadmin cannot be deactivated", common.ErrForbidden)
		}
		owned, err := s.repomanager.Projects(s.db).CountByOwner(ctx, targetID)
		if err != nil {
			return err
		}
		if owned > 0 {
			return fmt.Errorf("%w: project owner cannot be deactivated", common.ErrForbidden)
		}
	}

	return repo.SetDeactivated(ctx, targetID, deactivated)
}
