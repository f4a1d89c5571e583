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

// MemberService manages project memberships under the access-gate rules:
// owner/admin may add members, an admin never acts on another admin, only the
// owner changes roles, and the owner membership itself is untouchable.
type MemberService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	access      *AccessService
	quotas      *QuotaService
}

func NewMemberService(db *sql.DB, m repomanager.RepositoryManager, access *AccessService, quotas *QuotaService) *MemberService {
	return &MemberService{db: db, repomanager: m, access: access, quotas: quotas}
}

// Add invites a user (by email) to the project. Admins may grant the member
// role; granting admin requires the owner. Duplicate membership surfaces
// ErrConflict; the members quota is checked and bumped in the same
// transaction as the insert.
func (s *MemberService) Add(ctx context.Context, actorID, projectID, email string, role models.Role) (*models.ProjectMember, error) {
	actor, err := s.access.RequireRole(ctx, s.db, projectID, actorID, models.RoleAdmin)
	if err != nil {
		return nil, err
	}
	if role == models.RoleOwner {
		return nil, fmt.Errorf("%w: a project has exactly one owner", common.ErrBadRequest)
	}
	if role == models.RoleAdmin && actor.Role != models.RoleOwner {
		return nil, fmt.Errorf("%w: only the owner can grant admin", common.ErrForbidden)
	}

	target, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if target.Deactivated {
		return nil, fmt.Errorf("%w: account deactivated", common.ErrBadRequest)
	}

	owner, err := s.projectOwner(ctx, projectID)
	if err != nil {
		return nil, err
	}

	member := &models.ProjectMember{ProjectID: projectID, UserID: target.ID, Role: role}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.quotas.CheckAndIncrement(ctx, tx, projectID, owner.Tier, models.ResourceMembers); err != nil {
			return err
		}
		_, err := s.repomanager.Memberships(tx).Create(ctx, member)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("error adding member: %w", err)
	}

	return member, nil
}

// List returns the project's memberships to one of its members.
func (s *MemberService) List(ctx context.Context, userID, projectID string) ([]*models.ProjectMember, error) {
	if _, err := s.access.RequireMember(ctx, s.db, projectID, userID); err != nil {
		return nil, err
	}
	return s.repomanager.Memberships(s.db).ListByProject(ctx, projectID)
}

// Remove deletes a membership. The owner membership can never be removed; an
// admin cannot remove another admin. The members counter is decremented in
// the same transaction, then the owner's plan limits are re-evaluated.
func (s *MemberService) Remove(ctx context.Context, actorID, projectID, targetUserID string) error {
	actor, err := s.access.RequireRole(ctx, s.db, projectID, actorID, models.RoleAdmin)
	if err != nil {
		return err
	}

	target, err := s.repomanager.Memberships(s.db).Get(ctx, projectID, targetUserID)
	if err != nil {
		return err
	}

	if !CanActOn(actor.Role, target.Role) {
		return fmt.Errorf("%w: cannot remove %s", common.ErrForbidden, target.Role)
	}

	owner, err := s.projectOwner(ctx, projectID)
	if err != nil {
		return err
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Memberships(tx).Delete(ctx, projectID, targetUserID); err != nil {
			return err
		}
		return s.quotas.Decrement(ctx, tx, projectID, models.ResourceMembers)
	})
	if err != nil {
		return fmt.Errorf("error removing member: %w", err)
	}

	return s.quotas.Reevaluate(ctx, s.db, owner.ID)
}

// ChangeRole moves a member between member and admin. Owner only; the owner
// membership itself is never demoted and ownership is never granted here.
func (s *MemberService) ChangeRole(ctx context.Context, actorID, projectID, targetUserID string, role models.Role) error {
	if _, err := s.access.RequireRole(ctx, s.db, projectID, actorID, models.RoleOwner); err != nil {
		return err
	}
	if role == models.RoleOwner {
		return fmt.Errorf("%w: ownership cannot be granted", common.ErrBadRequest)
	}

	target, err := s.repomanager.Memberships(s.db).Get(ctx, projectID, targetUserID)
	if err != nil {
		return err
	}
	if target.Role == models.RoleOwner {
		return fmt.Errorf("%w: the owner cannot be demoted", common.ErrForbidden)
	}

	return s.repomanager.Memberships(s.db).UpdateRole(ctx, projectID, targetUserID, role)
}

func (s *MemberService) projectOwner(ctx context.Context, projectID string) (*models.User, error) {
	project, err := s.repomanager.Projects(s.db).GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return s.repomanager.Users(s.db).GetByID(ctx, project.OwnerID)
}
