package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/envvault/internal/common"
	"github.com/dmitrijs2005/envvault/internal/dbx"
	"github.com/dmitrijs2005/envvault/internal/server/models"
	"github.com/dmitrijs2005/envvault/internal/server/repositories/repomanager"
)

// planEnforcementGrace is how long an owner has to shed resources after a
// tier downgrade before enforcement kicks in.
const planEnforcementGrace = 7 * 24 * time.Hour

// QuotaService keeps the denormalized per-project usage counters consistent
// with the records they track and enforces the owner-tier ceilings. Limits of
// any project are always the owner's, never the collaborator's.
type QuotaService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewQuotaService(db *sql.DB, m repomanager.RepositoryManager) *QuotaService {
	return &QuotaService{db: db, repomanager: m}
}

// CheckAndIncrement verifies the owner-tier ceiling for the resource type and
// bumps the counter. It must run inside the same transaction as the record
// insert it accompanies. Legacy projects without a counter row fall back to a
// full recount.
func (s *QuotaService) CheckAndIncrement(ctx context.Context, tx dbx.DBTX, projectID string, ownerTier models.Tier, rt models.ResourceType) error {
	limit := rt.Limit(ownerTier)
	repo := s.repomanager.Quotas(tx)

	quota, err := repo.Get(ctx, projectID, rt)
	if errors.Is(err, common.ErrNotFound) {
		used, rerr := s.recount(ctx, tx, projectID, rt)
		if rerr != nil {
			return rerr
		}
		if uerr := repo.Upsert(ctx, projectID, rt, used, limit); uerr != nil {
			return uerr
		}
		quota = &models.Quota{ProjectID: projectID, ResourceType: rt, Used: used, Limit: limit}
	} else if err != nil {
		return err
	}

	if limit != models.Unlimited && quota.Used >= limit {
		return fmt.Errorf("%w: %s (%d/%d)", common.ErrLimitReached, rt, quota.Used, limit)
	}

	return repo.Add(ctx, projectID, rt, 1)
}

// Decrement lowers the counter alongside the deletion it accompanies. A
// missing counter row is not an error; the next increment recounts.
func (s *QuotaService) Decrement(ctx context.Context, tx dbx.DBTX, projectID string, rt models.ResourceType) error {
	err := s.repomanager.Quotas(tx).Add(ctx, projectID, rt, -1)
	if errors.Is(err, common.ErrNotFound) {
		return nil
	}
	return err
}

// InitProject seeds the counter rows of a fresh project.
func (s *QuotaService) InitProject(ctx context.Context, tx dbx.DBTX, projectID string, ownerTier models.Tier, environments, members, sharedSecrets int) error {
	repo := s.repomanager.Quotas(tx)
	seed := []struct {
		rt   models.ResourceType
		used int
	}{
		{models.ResourceEnvironments, environments},
		{models.ResourceMembers, members},
		{models.ResourceSharedSecrets, sharedSecrets},
	}
	for _, q := range seed {
		if err := repo.Upsert(ctx, projectID, q.rt, q.used, q.rt.Limit(ownerTier)); err != nil {
			return err
		}
	}
	return nil
}

func (s *QuotaService) recount(ctx context.Context, tx dbx.DBTX, projectID string, rt models.ResourceType) (int, error) {
	switch rt {
	case models.ResourceEnvironments:
		return s.repomanager.Environments(tx).CountByProject(ctx, projectID)
	case models.ResourceMembers:
		return s.repomanager.Memberships(tx).CountByProject(ctx, projectID)
	case models.ResourceSharedSecrets:
		return s.repomanager.Shares(tx).CountByProject(ctx, projectID)
	default:
		return 0, fmt.Errorf("%w: unknown resource type %q", common.ErrBadRequest, rt)
	}
}

// Reevaluate recomputes whether the owner's current usage fits their tier and
// updates the enforcement flag accordingly. Called after a tier change and
// after every deletion that frees quota, scoped to the project owner.
func (s *QuotaService) Reevaluate(ctx context.Context, db dbx.DBTX, ownerID string) error {
	userRepo := s.repomanager.Users(db)

	owner, err := userRepo.GetByID(ctx, ownerID)
	if err != nil {
		return err
	}

	exceeded, err := s.usageExceeds(ctx, db, owner)
	if err != nil {
		return err
	}

	if exceeded && !owner.ExceedsPlanLimits {
		deadline := time.Now().Add(planEnforcementGrace)
		return userRepo.SetPlanEnforcement(ctx, ownerID, true, &deadline)
	}
	if !exceeded && owner.ExceedsPlanLimits {
		return userRepo.SetPlanEnforcement(ctx, ownerID, false, nil)
	}
	return nil
}

func (s *QuotaService) usageExceeds(ctx context.Context, db dbx.DBTX, owner *models.User) (bool, error) {
	limits := models.LimitsFor(owner.Tier)

	projectRepo := s.repomanager.Projects(db)

	count, err := projectRepo.CountByOwner(ctx, owner.ID)
	if err != nil {
		return false, err
	}
	if limits.MaxProjects != models.Unlimited && count > limits.MaxProjects {
		return true, nil
	}

	owned, err := projectRepo.ListByOwner(ctx, owner.ID)
	if err != nil {
		return false, err
	}

	for _, p := range owned {
		for _, rt := range []models.ResourceType{models.ResourceEnvironments, models.ResourceMembers, models.ResourceSharedSecrets} {
			limit := rt.Limit(owner.Tier)
			if limit == models.Unlimited {
				continue
			}
			used, err := s.recount(ctx, db, p.ID, rt)
			if err != nil {
				return false, err
			}
			if used > limit {
				return true, nil
			}
		}
	}

	return false, nil
}
