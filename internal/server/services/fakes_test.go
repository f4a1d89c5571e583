package services

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/envvault/internal/common"
	"github.com/dmitrijs2005/envvault/internal/dbx"
	"github.com/dmitrijs2005/envvault/internal/server/models"
	environmentsrepo "github.com/dmitrijs2005/envvault/internal/server/repositories/environments"
	membershipsrepo "github.com/dmitrijs2005/envvault/internal/server/repositories/memberships"
	projectsrepo "github.com/dmitrijs2005/envvault/internal/server/repositories/projects"
	quotasrepo "github.com/dmitrijs2005/envvault/internal/server/repositories/quotas"
	sharesrepo "github.com/dmitrijs2005/envvault/internal/server/repositories/shares"
	snapshotsrepo "github.com/dmitrijs2005/envvault/internal/server/repositories/snapshots"
	usersrepo "github.com/dmitrijs2005/envvault/internal/server/repositories/users"
	variablesrepo "github.com/dmitrijs2005/envvault/internal/server/repositories/variables"
)

// --- shared helpers ---

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	mock.MatchExpectationsInOrder(false)
	return db, mock
}

// expectTx registers n Begin expectations plus matching Commit and Rollback
// outcomes on the mock; the in-memory fakes below never touch the connection
// themselves, so either outcome is acceptable per transaction.
func expectTx(mock sqlmock.Sqlmock, n int) {
	for i := 0; i < n; i++ {
		mock.ExpectBegin()
		mock.ExpectCommit()
		mock.ExpectRollback()
	}
}

// memStore is a stateful in-memory implementation of every repository
// interface, so scenario tests can run create → unlock → rotate flows against
// realistic persistence semantics without a database.
type memStore struct {
	mu     sync.Mutex
	nextID int

	users       map[string]*models.User
	projects    map[string]*models.Project
	memberships map[string]*models.ProjectMember // key projectID|userID
	envs        map[string]*models.Environment
	vars        map[string]*models.Variable
	shares      map[string]*models.SharedSecret
	quotas      map[string]*models.Quota // key projectID|resourceType
	snapshots   map[string]*models.Snapshot
}

func newMemStore() *memStore {
	return &memStore{
		users:       map[string]*models.User{},
		projects:    map[string]*models.Project{},
		memberships: map[string]*models.ProjectMember{},
		envs:        map[string]*models.Environment{},
		vars:        map[string]*models.Variable{},
		shares:      map[string]*models.SharedSecret{},
		quotas:      map[string]*models.Quota{},
		snapshots:   map[string]*models.Snapshot{},
	}
}

func (s *memStore) id(prefix string) string {
	s.nextID++
	return fmt.Sprintf("%s-%d", prefix, s.nextID)
}

// memRepoManager satisfies repomanager.RepositoryManager over a memStore,
// ignoring the DBTX it is handed.
type memRepoManager struct{ store *memStore }

func newMemRepoManager() *memRepoManager { return &memRepoManager{store: newMemStore()} }

func (m *memRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }

func (m *memRepoManager) Users(dbx.DBTX) usersrepo.Repository        { return &memUsers{m.store} }
func (m *memRepoManager) Projects(dbx.DBTX) projectsrepo.Repository  { return &memProjects{m.store} }
func (m *memRepoManager) Memberships(dbx.DBTX) membershipsrepo.Repository {
	return &memMemberships{m.store}
}
func (m *memRepoManager) Environments(dbx.DBTX) environmentsrepo.Repository {
	return &memEnvironments{m.store}
}
func (m *memRepoManager) Variables(dbx.DBTX) variablesrepo.Repository { return &memVariables{m.store} }
func (m *memRepoManager) Shares(dbx.DBTX) sharesrepo.Repository       { return &memShares{m.store} }
func (m *memRepoManager) Quotas(dbx.DBTX) quotasrepo.Repository       { return &memQuotas{m.store} }
func (m *memRepoManager) Snapshots(dbx.DBTX) snapshotsrepo.Repository { return &memSnapshots{m.store} }

// --- users ---

type memUsers struct{ s *memStore }

func (r *memUsers) Create(_ context.Context, u *models.User) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u.ID = r.s.id("u")
	cp := *u
	r.s.users[u.ID] = &cp
	return u, nil
}

func (r *memUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *memUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *memUsers) UpdateMasterKey(_ context.Context, userID string, hash, salt []byte) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[userID]
	if !ok {
		return common.ErrNotFound
	}
	u.MasterKeyHash = append([]byte(nil), hash...)
	u.MasterKeySalt = append([]byte(nil), salt...)
	return nil
}

func (r *memUsers) UpdateTier(_ context.Context, userID string, tier models.Tier) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[userID]
	if !ok {
		return common.ErrNotFound
	}
	u.Tier = tier
	return nil
}

func (r *memUsers) SetDeactivated(_ context.Context, userID string, deactivated bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[userID]
	if !ok {
		return common.ErrNotFound
	}
	u.Deactivated = deactivated
	return nil
}

func (r *memUsers) SetPlanEnforcement(_ context.Context, userID string, exceeds bool, deadline *time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[userID]
	if !ok {
		return common.ErrNotFound
	}
	u.ExceedsPlanLimits = exceeds
	u.PlanEnforcementDeadline = deadline
	return nil
}

// --- projects ---

type memProjects struct{ s *memStore }

func (r *memProjects) Create(_ context.Context, p *models.Project) (*models.Project, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p.ID = r.s.id("p")
	cp := *p
	r.s.projects[p.ID] = &cp
	return p, nil
}

func (r *memProjects) GetByID(_ context.Context, id string) (*models.Project, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.projects[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *memProjects) ListByOwner(_ context.Context, ownerID string) ([]*models.Project, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.Project
	for _, p := range r.s.projects {
		if p.OwnerID == ownerID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memProjects) CountByOwner(_ context.Context, ownerID string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, p := range r.s.projects {
		if p.OwnerID == ownerID {
			n++
		}
	}
	return n, nil
}

func (r *memProjects) UpdateInfo(_ context.Context, id, name, description string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.projects[id]
	if !ok {
		return common.ErrNotFound
	}
	p.Name, p.Description = name, description
	return nil
}

func (r *memProjects) UpdateWrappedPasscode(_ context.Context, id string, encryptedPasscode, iv, authTag []byte) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.projects[id]
	if !ok {
		return common.ErrNotFound
	}
	p.EncryptedPasscode = append([]byte(nil), encryptedPasscode...)
	p.PasscodeIV = append([]byte(nil), iv...)
	p.PasscodeAuthTag = append([]byte(nil), authTag...)
	return nil
}

func (r *memProjects) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.projects[id]; !ok {
		return common.ErrNotFound
	}
	delete(r.s.projects, id)
	for k, m := range r.s.memberships {
		if m.ProjectID == id {
			delete(r.s.memberships, k)
		}
	}
	for k, e := range r.s.envs {
		if e.ProjectID == id {
			delete(r.s.envs, k)
		}
	}
	return nil
}

// --- memberships ---

type memMemberships struct{ s *memStore }

func membershipKey(projectID, userID string) string { return projectID + "|" + userID }

func (r *memMemberships) Create(_ context.Context, m *models.ProjectMember) (*models.ProjectMember, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := membershipKey(m.ProjectID, m.UserID)
	if _, ok := r.s.memberships[key]; ok {
		return nil, common.ErrConflict
	}
	m.ID = r.s.id("m")
	cp := *m
	r.s.memberships[key] = &cp
	return m, nil
}

func (r *memMemberships) Get(_ context.Context, projectID, userID string) (*models.ProjectMember, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.memberships[membershipKey(projectID, userID)]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (r *memMemberships) ListByProject(_ context.Context, projectID string) ([]*models.ProjectMember, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.ProjectMember
	for _, m := range r.s.memberships {
		if m.ProjectID == projectID {
			cp := *m
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memMemberships) CountByProject(_ context.Context, projectID string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, m := range r.s.memberships {
		if m.ProjectID == projectID {
			n++
		}
	}
	return n, nil
}

func (r *memMemberships) UpdateRole(_ context.Context, projectID, userID string, role models.Role) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.memberships[membershipKey(projectID, userID)]
	if !ok {
		return common.ErrNotFound
	}
	m.Role = role
	return nil
}

func (r *memMemberships) Delete(_ context.Context, projectID, userID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := membershipKey(projectID, userID)
	if _, ok := r.s.memberships[key]; !ok {
		return common.ErrNotFound
	}
	delete(r.s.memberships, key)
	return nil
}

// --- environments ---

type memEnvironments struct{ s *memStore }

func (r *memEnvironments) Create(_ context.Context, e *models.Environment) (*models.Environment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e.ID = r.s.id("env")
	cp := *e
	r.s.envs[e.ID] = &cp
	return e, nil
}

func (r *memEnvironments) GetByID(_ context.Context, id string) (*models.Environment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.envs[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (r *memEnvironments) ListByProject(_ context.Context, projectID string) ([]*models.Environment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.Environment
	for _, e := range r.s.envs {
		if e.ProjectID == projectID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memEnvironments) CountByProject(_ context.Context, projectID string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, e := range r.s.envs {
		if e.ProjectID == projectID {
			n++
		}
	}
	return n, nil
}

func (r *memEnvironments) UpdateInfo(_ context.Context, id, name, description string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.envs[id]
	if !ok {
		return common.ErrNotFound
	}
	e.Name, e.Description = name, description
	return nil
}

func (r *memEnvironments) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.envs[id]; !ok {
		return common.ErrNotFound
	}
	delete(r.s.envs, id)
	for k, v := range r.s.vars {
		if v.EnvironmentID == id {
			delete(r.s.vars, k)
		}
	}
	return nil
}

// --- variables ---

type memVariables struct{ s *memStore }

func (r *memVariables) Create(_ context.Context, v *models.Variable) (*models.Variable, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.vars {
		if existing.EnvironmentID == v.EnvironmentID && existing.Name == v.Name {
			return nil, common.ErrConflict
		}
	}
	v.ID = r.s.id("v")
	cp := *v
	r.s.vars[v.ID] = &cp
	return v, nil
}

func (r *memVariables) GetByName(_ context.Context, environmentID, name string) (*models.Variable, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, v := range r.s.vars {
		if v.EnvironmentID == environmentID && v.Name == name {
			cp := *v
			return &cp, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *memVariables) ListByEnvironment(_ context.Context, environmentID string) ([]*models.Variable, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.Variable
	for _, v := range r.s.vars {
		if v.EnvironmentID == environmentID {
			cp := *v
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memVariables) CountByEnvironment(_ context.Context, environmentID string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, v := range r.s.vars {
		if v.EnvironmentID == environmentID {
			n++
		}
	}
	return n, nil
}

func (r *memVariables) UpdateValue(_ context.Context, id string, encryptedValue, iv, authTag []byte) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	v, ok := r.s.vars[id]
	if !ok {
		return common.ErrNotFound
	}
	v.EncryptedValue = append([]byte(nil), encryptedValue...)
	v.IV = append([]byte(nil), iv...)
	v.AuthTag = append([]byte(nil), authTag...)
	return nil
}

func (r *memVariables) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.vars[id]; !ok {
		return common.ErrNotFound
	}
	delete(r.s.vars, id)
	return nil
}

// --- shares ---

type memShares struct{ s *memStore }

func (r *memShares) Create(_ context.Context, sh *models.SharedSecret) (*models.SharedSecret, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sh.ID = r.s.id("sh")
	cp := *sh
	r.s.shares[sh.ID] = &cp
	return sh, nil
}

func (r *memShares) GetByID(_ context.Context, id string) (*models.SharedSecret, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sh, ok := r.s.shares[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *sh
	return &cp, nil
}

func (r *memShares) ListByProject(_ context.Context, projectID string) ([]*models.SharedSecret, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.SharedSecret
	for _, sh := range r.s.shares {
		if sh.ProjectID == projectID {
			cp := *sh
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memShares) CountByProject(_ context.Context, projectID string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, sh := range r.s.shares {
		if sh.ProjectID == projectID {
			n++
		}
	}
	return n, nil
}

func (r *memShares) IncrementViews(_ context.Context, id string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sh, ok := r.s.shares[id]
	if !ok {
		return 0, common.ErrNotFound
	}
	if sh.MaxViews != nil && sh.Views >= *sh.MaxViews {
		return 0, common.ErrViewLimitReached
	}
	sh.Views++
	return sh.Views, nil
}

func (r *memShares) SetDisabled(_ context.Context, id string, disabled bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sh, ok := r.s.shares[id]
	if !ok {
		return common.ErrNotFound
	}
	sh.Disabled = disabled
	return nil
}

func (r *memShares) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.shares[id]; !ok {
		return common.ErrNotFound
	}
	delete(r.s.shares, id)
	return nil
}

// --- quotas ---

type memQuotas struct{ s *memStore }

func quotaKey(projectID string, rt models.ResourceType) string {
	return projectID + "|" + string(rt)
}

func (r *memQuotas) Get(_ context.Context, projectID string, rt models.ResourceType) (*models.Quota, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	q, ok := r.s.quotas[quotaKey(projectID, rt)]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *q
	return &cp, nil
}

func (r *memQuotas) Upsert(_ context.Context, projectID string, rt models.ResourceType, used, limit int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.quotas[quotaKey(projectID, rt)] = &models.Quota{
		ProjectID:    projectID,
		ResourceType: rt,
		Used:         used,
		Limit:        limit,
	}
	return nil
}

func (r *memQuotas) Add(_ context.Context, projectID string, rt models.ResourceType, delta int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	q, ok := r.s.quotas[quotaKey(projectID, rt)]
	if !ok {
		return common.ErrNotFound
	}
	q.Used += delta
	if q.Used < 0 {
		q.Used = 0
	}
	return nil
}

func (r *memQuotas) ListByProject(_ context.Context, projectID string) ([]*models.Quota, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.Quota
	for _, q := range r.s.quotas {
		if q.ProjectID == projectID {
			cp := *q
			out = append(out, &cp)
		}
	}
	return out, nil
}

// --- snapshots ---

type memSnapshots struct{ s *memStore }

func (r *memSnapshots) Create(_ context.Context, sn *models.Snapshot) (*models.Snapshot, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sn.ID = r.s.id("snap")
	cp := *sn
	r.s.snapshots[sn.ID] = &cp
	return sn, nil
}

func (r *memSnapshots) GetByID(_ context.Context, id string) (*models.Snapshot, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sn, ok := r.s.snapshots[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *sn
	return &cp, nil
}

func (r *memSnapshots) ListByProject(_ context.Context, projectID string) ([]*models.Snapshot, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.Snapshot
	for _, sn := range r.s.snapshots {
		if sn.ProjectID == projectID {
			cp := *sn
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memSnapshots) MarkUploaded(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sn, ok := r.s.snapshots[id]
	if !ok {
		return common.ErrNotFound
	}
	sn.UploadStatus = "uploaded"
	return nil
}

func (r *memSnapshots) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.snapshots[id]; !ok {
		return common.ErrNotFound
	}
	delete(r.s.snapshots, id)
	return nil
}
