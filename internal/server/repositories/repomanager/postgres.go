package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/envvault/internal/dbx"
	"github.com/dmitrijs2005/envvault/internal/server/migrations"
	"github.com/dmitrijs2005/envvault/internal/server/repositories/environments"
	"github.com/dmitrijs2005/envvault/internal/server/repositories/memberships"
	"github.com/dmitrijs2005/envvault/internal/server/repositories/projects"
	"github.com/dmitrijs2005/envvault/internal/server/repositories/quotas"
	"github.com/dmitrijs2005/envvault/internal/server/repositories/shares"
	"github.com/dmitrijs2005/envvault/internal/server/repositories/snapshots"
	"github.com/dmitrijs2005/envvault/internal/server/repositories/users"
	"github.com/dmitrijs2005/envvault/internal/server/repositories/variables"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// PostgresRepositoryManager vends PostgreSQL-backed repository implementations
// and exposes a schema migration hook.
type PostgresRepositoryManager struct{}

func NewPostgresRepositoryManager() *PostgresRepositoryManager {
	return &PostgresRepositoryManager{}
}

func (m *PostgresRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Projects(db dbx.DBTX) projects.Repository {
	return projects.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Memberships(db dbx.DBTX) memberships.Repository {
	return memberships.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Environments(db dbx.DBTX) environments.Repository {
	return environments.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Variables(db dbx.DBTX) variables.Repository {
	return variables.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Shares(db dbx.DBTX) shares.Repository {
	return shares.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Quotas(db dbx.DBTX) quotas.Repository {
	return quotas.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Snapshots(db dbx.DBTX) snapshots.Repository {
	return snapshots.NewPostgresRepository(db)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations sets up goose with the embedded migrations and runs them
// against the provided database connection.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, ".")
}
