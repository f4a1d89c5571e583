// Package httpapi exposes the vault over a thin JSON HTTP surface. It owns
// request decoding, identity extraction and the mapping from the service
// error taxonomy onto HTTP status codes; all business rules live in the
// services package.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/dmitrijs2005/envvault/internal/logging"
	"github.com/dmitrijs2005/envvault/internal/server/config"
	"github.com/dmitrijs2005/envvault/internal/server/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Server struct {
	address       string
	logger        logging.Logger
	jwtSecret     []byte
	tokenValidity time.Duration

	users        *services.UserService
	projects     *services.ProjectService
	rotation     *services.RotationService
	environments *services.EnvironmentService
	variables    *services.VariableService
	members      *services.MemberService
	shares       *services.ShareService
	snapshots    *services.SnapshotService
}

type Services struct {
	Users        *services.UserService
	Projects     *services.ProjectService
	Rotation     *services.RotationService
	Environments *services.EnvironmentService
	Variables    *services.VariableService
	Members      *services.MemberService
	Shares       *services.ShareService
	Snapshots    *services.SnapshotService
}

func NewServer(cfg *config.Config, l logging.Logger, svc Services) *Server {
	return &Server{
		address:       cfg.EndpointAddrHTTP,
		logger:        l.With("module", "http_server"),
		jwtSecret:     []byte(cfg.SecretKey),
		tokenValidity: cfg.AccessTokenValidityDuration,
		users:         svc.Users,
		projects:      svc.Projects,
		rotation:      svc.Rotation,
		environments:  svc.Environments,
		variables:     svc.Variables,
		members:       svc.Members,
		shares:        svc.Shares,
		snapshots:     svc.Snapshots,
	}
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Post("/api/auth/token", s.handleIssueToken)

	// public share access, no membership required
	r.Get("/api/public/shares/{shareID}", s.handleShareAccess)
	r.Post("/api/public/shares/{shareID}/reveal", s.handleShareReveal)

	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Post("/api/master-key", s.handleSetMasterKey)
		r.Post("/api/master-key/rotate", s.handleRotateMasterKey)

		r.Post("/api/users/{userID}/tier", s.handleChangeTier)
		r.Post("/api/users/{userID}/deactivate", s.handleSetDeactivated)

		r.Post("/api/projects", s.handleProjectCreate)
		r.Get("/api/projects/{projectID}", s.handleProjectGet)
		r.Patch("/api/projects/{projectID}", s.handleProjectUpdate)
		r.Delete("/api/projects/{projectID}", s.handleProjectDelete)
		r.Post("/api/projects/{projectID}/unlock", s.handleProjectUnlock)
		r.Post("/api/projects/{projectID}/lock", s.handleProjectLock)
		r.Post("/api/projects/{projectID}/recover", s.handleProjectRecover)

		r.Post("/api/projects/{projectID}/environments", s.handleEnvironmentCreate)
		r.Get("/api/projects/{projectID}/environments", s.handleEnvironmentList)
		r.Patch("/api/projects/{projectID}/environments/{environmentID}", s.handleEnvironmentUpdate)
		r.Delete("/api/projects/{projectID}/environments/{environmentID}", s.handleEnvironmentDelete)

		r.Put("/api/projects/{projectID}/environments/{environmentID}/variables/{name}", s.handleVariableSet)
		r.Get("/api/projects/{projectID}/environments/{environmentID}/variables/{name}", s.handleVariableGet)
		r.Get("/api/projects/{projectID}/environments/{environmentID}/variables", s.handleVariableList)
		r.Delete("/api/projects/{projectID}/environments/{environmentID}/variables/{name}", s.handleVariableDelete)

		r.Post("/api/projects/{projectID}/members", s.handleMemberAdd)
		r.Get("/api/projects/{projectID}/members", s.handleMemberList)
		r.Patch("/api/projects/{projectID}/members/{userID}", s.handleMemberChangeRole)
		r.Delete("/api/projects/{projectID}/members/{userID}", s.handleMemberRemove)

		r.Post("/api/projects/{projectID}/environments/{environmentID}/shares", s.handleShareCreate)
		r.Get("/api/projects/{projectID}/shares", s.handleShareList)
		r.Post("/api/projects/{projectID}/shares/{shareID}/passcode", s.handleShareRecallPasscode)
		r.Post("/api/projects/{projectID}/shares/{shareID}/disable", s.handleShareSetDisabled)
		r.Delete("/api/projects/{projectID}/shares/{shareID}", s.handleShareDelete)

		r.Post("/api/projects/{projectID}/environments/{environmentID}/snapshots", s.handleSnapshotExport)
		r.Get("/api/projects/{projectID}/snapshots", s.handleSnapshotList)
		r.Post("/api/snapshots/{snapshotID}/uploaded", s.handleSnapshotMarkUploaded)
		r.Get("/api/snapshots/{snapshotID}/download", s.handleSnapshotDownloadURL)
	})

	return r
}

// Run starts the HTTP server and shuts it down gracefully when ctx is done.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.address, Handler: s.routes()}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	return nil
}
