// Package users stores account records.
package users

import (
	"context"
	"time"

	"github.com/dmitrijs2005/envvault/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateMasterKey(ctx context.Context, userID string, hash, salt []byte) error
	UpdateTier(ctx context.Context, userID string, tier models.Tier) error
	SetDeactivated(ctx context.Context, userID string, deactivated bool) error
	SetPlanEnforcement(ctx context.Context, userID string, exceeds bool, deadline *time.Time) error
}
