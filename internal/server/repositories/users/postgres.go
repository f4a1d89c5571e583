package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/envvault/internal/common"
	"github.com/dmitrijs2005/envvault/internal/dbx"
	"github.com/dmitrijs2005/envvault/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const userColumns = `id, email, master_key_hash, master_key_salt, tier, deactivated,
        exceeds_plan_limits, plan_enforcement_deadline, created_at`

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query :=
		`INSERT INTO users (email, tier)
         VALUES ($1, $2)
		 RETURNING id, created_at
		 `

	err := r.db.QueryRowContext(ctx, query, user.Email, user.Tier.String()).
		Scan(&user.ID, &user.CreatedAt)

	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrConflict
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return r.scanUser(r.db.QueryRowContext(ctx, query, email))
}

func (r *PostgresRepository) UpdateMasterKey(ctx context.Context, userID string, hash, salt []byte) error {
	query :=
		`UPDATE users SET master_key_hash = $2, master_key_salt = $3
		 WHERE id = $1
		 `
	if _, err := r.db.ExecContext(ctx, query, userID, hash, salt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) UpdateTier(ctx context.Context, userID string, tier models.Tier) error {
	query := `UPDATE users SET tier = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, userID, tier.String()); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) SetDeactivated(ctx context.Context, userID string, deactivated bool) error {
	query := `UPDATE users SET deactivated = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, userID, deactivated); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) SetPlanEnforcement(ctx context.Context, userID string, exceeds bool, deadline *time.Time) error {
	query :=
		`UPDATE users SET exceeds_plan_limits = $2, plan_enforcement_deadline = $3
		 WHERE id = $1
		 `
	if _, err := r.db.ExecContext(ctx, query, userID, exceeds, deadline); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	var tier string
	err := row.Scan(&user.ID, &user.Email, &user.MasterKeyHash, &user.MasterKeySalt,
		&tier, &user.Deactivated, &user.ExceedsPlanLimits, &user.PlanEnforcementDeadline, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	user.Tier, err = models.ParseTier(tier)
	if err != nil {
		return nil, err
	}
	return user, nil
}
