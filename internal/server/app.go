// Package server initializes and runs the vault server: it opens the
// database, applies migrations, wires the service graph and starts the HTTP
// endpoint, handling graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/envvault/internal/logging"
	"github.com/dmitrijs2005/envvault/internal/server/config"
	"github.com/dmitrijs2005/envvault/internal/server/httpapi"
	"github.com/dmitrijs2005/envvault/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/envvault/internal/server/services"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	keys   *services.KeyCache
	server *httpapi.Server
}

func NewApp(cfg *config.Config) (*App, error) {

	slogger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(slogger)

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(context.Background(), db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	keys := services.NewKeyCache()
	access := services.NewAccessService(db, rm)
	quotas := services.NewQuotaService(db, rm)

	svc := httpapi.Services{
		Users:        services.NewUserService(db, rm, quotas),
		Projects:     services.NewProjectService(db, rm, access, quotas, keys),
		Rotation:     services.NewRotationService(db, rm),
		Environments: services.NewEnvironmentService(db, rm, access, quotas),
		Variables:    services.NewVariableService(db, rm, access, keys),
		Members:      services.NewMemberService(db, rm, access, quotas),
		Shares:       services.NewShareService(db, rm, access, quotas, keys),
		Snapshots:    services.NewSnapshotService(db, rm, access, keys, cfg),
	}

	return &App{
		config: cfg,
		logger: logger,
		db:     db,
		keys:   keys,
		server: httpapi.NewServer(cfg, logger, svc),
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.server.Run(ctx); err != nil {
			app.logger.Error(ctx, err.Error())
			cancelFunc()
		}
	}()

	wg.Wait()

	// cached project keys must not outlive the process
	app.keys.Clear()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, err.Error())
	}
}
