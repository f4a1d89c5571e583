// Package services contains the server-side business logic: the project
// passcode envelope, master-key rotation, public shares, and the access gate
// (roles plus quotas) that fronts every mutating operation.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/envvault/internal/common"
	"github.com/dmitrijs2005/envvault/internal/dbx"
	"github.com/dmitrijs2005/envvault/internal/server/models"
	"github.com/dmitrijs2005/envvault/internal/server/repositories/repomanager"
)

// AccessService resolves a caller's effective role on a project and enforces
// the role rules shared by all mutating operations.
type AccessService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewAccessService(db *sql.DB, m repomanager.RepositoryManager) *AccessService {
	return &AccessService{db: db, repomanager: m}
}

// RequireMember returns the caller's membership on the project, or
// ErrForbidden when the caller is not a member. A missing membership is an
// authorization failure, not a lookup failure.
func (s *AccessService) RequireMember(ctx context.Context, db dbx.DBTX, projectID, userID string) (*models.ProjectMember, error) {
	member, err := s.repomanager.Memberships(db).Get(ctx, projectID, userID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrForbidden
		}
		return nil, err
	}
	return member, nil
}

// RequireRole returns the caller's membership if it ranks at or above min.
func (s *AccessService) RequireRole(ctx context.Context, db dbx.DBTX, projectID, userID string, min models.Role) (*models.ProjectMember, error) {
	member, err := s.RequireMember(ctx, db, projectID, userID)
	if err != nil {
		return nil, err
	}
	if !member.Role.AtLeast(min) {
		return nil, fmt.Errorf("%w: requires %s role", common.ErrForbidden, min)
	}
	return member, nil
}

// CanActOn reports whether an actor role may remove or demote a member with
// the target role. The owner membership is untouchable by anyone, and an
// admin may not act on another admin.
func CanActOn(actor, target models.Role) bool {
	if target == models.RoleOwner {
		return false
	}
	if actor == models.RoleAdmin && target == models.RoleAdmin {
		return false
	}
	return actor.AtLeast(models.RoleAdmin)
}
