// Package repomanager defines the seam between services and the persistence
// layer: a manager that vends repository implementations bound to either a
// plain connection or an open transaction.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/envvault/internal/dbx"
	"github.com/dmitrijs2005/envvault/internal/server/repositories/environments"
	"github.com/dmitrijs2005/envvault/internal/server/repositories/memberships"
	"github.com/dmitrijs2005/envvault/internal/server/repositories/projects"
	"github.com/dmitrijs2005/envvault/internal/server/repositories/quotas"
	"github.com/dmitrijs2005/envvault/internal/server/repositories/shares"
	"github.com/dmitrijs2005/envvault/internal/server/repositories/snapshots"
	"github.com/dmitrijs2005/envvault/internal/server/repositories/users"
	"github.com/dmitrijs2005/envvault/internal/server/repositories/variables"
)

// RepositoryManager vends repositories bound to the provided DBTX, so a
// service can run several repositories inside one transaction.
type RepositoryManager interface {
	Users(db dbx.DBTX) users.Repository
	Projects(db dbx.DBTX) projects.Repository
	Memberships(db dbx.DBTX) memberships.Repository
	Environments(db dbx.DBTX) environments.Repository
	Variables(db dbx.DBTX) variables.Repository
	Shares(db dbx.DBTX) shares.Repository
	Quotas(db dbx.DBTX) quotas.Repository
	Snapshots(db dbx.DBTX) snapshots.Repository
	RunMigrations(ctx context.Context, db *sql.DB) error
}
