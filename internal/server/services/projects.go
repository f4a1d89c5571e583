package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/envvault/internal/common"
	"github.com/dmitrijs2005/envvault/internal/cryptox"
	"github.com/dmitrijs2005/envvault/internal/dbx"
	"github.com/dmitrijs2005/envvault/internal/server/models"
	"github.com/dmitrijs2005/envvault/internal/server/repositories/repomanager"
)

// passcodeVerifier is the known constant encrypted under the project key at
// creation time. Successfully decrypting it proves a supplied passcode is
// correct without ever storing or comparing plaintext passcodes.
var passcodeVerifier = []byte("envvault/passcode-verifier/v1")

// defaultEnvironmentName is created with every new project.
const defaultEnvironmentName = "development"

// ProjectService implements the project passcode envelope: create, unlock,
// recover, lock. The passcode never reaches storage in plaintext; only its
// hash, its master-key wrapping, and the verifier ciphertext are persisted.
// The passcode-derived project key lives in the injected KeyCache for the
// duration of a session.
type ProjectService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	access      *AccessService
	quotas      *QuotaService
	keys        *KeyCache
}

func NewProjectService(db *sql.DB, m repomanager.RepositoryManager, access *AccessService, quotas *QuotaService, keys *KeyCache) *ProjectService {
	return &ProjectService{db: db, repomanager: m, access: access, quotas: quotas, keys: keys}
}

// Create provisions a project for the caller: envelope artifacts, the owning
// membership, a default environment and seeded quota counters, all in one
// transaction. On success the project key is cached so the session starts
// unlocked.
//
// The caller's master key wraps the passcode for later recovery. On the very
// first project the master key is registered; afterwards it must match the
// stored hash.
func (s *ProjectService) Create(ctx context.Context, userID, name, passcode, masterKey string) (*models.Project, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty project name", common.ErrBadRequest)
	}
	if len(passcode) < common.MinPasscodeLength {
		return nil, fmt.Errorf("%w: passcode must be at least %d characters", common.ErrBadRequest, common.MinPasscodeLength)
	}
	if len(masterKey) < common.MinMasterKeyLength {
		return nil, fmt.Errorf("%w: master key must be at least %d characters", common.ErrBadRequest, common.MinMasterKeyLength)
	}

	userRepo := s.repomanager.Users(s.db)

	user, err := userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if user.HasMasterKey() {
		if !VerifyMasterKey(user, masterKey) {
			return nil, common.ErrIncorrectMasterKey
		}
	} else {
		salt := cryptox.GenerateSalt()
		if err := userRepo.UpdateMasterKey(ctx, userID, cryptox.Hash([]byte(masterKey), salt), salt); err != nil {
			return nil, err
		}
	}

	limits := models.LimitsFor(user.Tier)
	count, err := s.repomanager.Projects(s.db).CountByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}
	if limits.MaxProjects != models.Unlimited && count >= limits.MaxProjects {
		return nil, fmt.Errorf("%w: projects (%d/%d)", common.ErrLimitReached, count, limits.MaxProjects)
	}

	// One salt backs both derivations: deriveKey(masterKey, salt) wraps the
	// passcode, deriveKey(passcode, salt) yields the project key.
	passcodeSalt := cryptox.GenerateSalt()

	recoveryKey := cryptox.DeriveKey([]byte(masterKey), passcodeSalt)
	encPasscode, passcodeIV, passcodeTag, err := cryptox.Encrypt([]byte(passcode), recoveryKey)
	if err != nil {
		return nil, err
	}

	projectKey := cryptox.DeriveKey([]byte(passcode), passcodeSalt)
	verifier, verifierIV, verifierTag, err := cryptox.Encrypt(passcodeVerifier, projectKey)
	if err != nil {
		return nil, err
	}

	project := &models.Project{
		OwnerID:            userID,
		Name:               name,
		PasscodeHash:       cryptox.Hash([]byte(passcode), passcodeSalt),
		PasscodeSalt:       passcodeSalt,
		EncryptedPasscode:  encPasscode,
		PasscodeIV:         passcodeIV,
		PasscodeAuthTag:    passcodeTag,
		VerifierCiphertext: verifier,
		VerifierIV:         verifierIV,
		VerifierAuthTag:    verifierTag,
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := s.repomanager.Projects(tx).Create(ctx, project); err != nil {
			return err
		}

		member := &models.ProjectMember{ProjectID: project.ID, UserID: userID, Role: models.RoleOwner}
		if _, err := s.repomanager.Memberships(tx).Create(ctx, member); err != nil {
			return err
		}

		env := &models.Environment{ProjectID: project.ID, Name: defaultEnvironmentName}
		if _, err := s.repomanager.Environments(tx).Create(ctx, env); err != nil {
			return err
		}

		return s.quotas.InitProject(ctx, tx, project.ID, user.Tier, 1, 1, 0)
	})
	if err != nil {
		return nil, fmt.Errorf("error creating project: %w", err)
	}

	s.keys.Put(project.ID, projectKey)
	common.WipeByteArray(projectKey)

	return project, nil
}

// Unlock derives the project key from the supplied passcode and proves it by
// decrypting the verifier ciphertext. A wrong passcode surfaces as
// ErrWrongPasscode, never as an authorization failure. On success the key is
// cached and returned as the session key.
func (s *ProjectService) Unlock(ctx context.Context, userID, projectID, passcode string) ([]byte, error) {
	if _, err := s.access.RequireMember(ctx, s.db, projectID, userID); err != nil {
		return nil, err
	}

	project, err := s.repomanager.Projects(s.db).GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}

	projectKey := cryptox.DeriveKey([]byte(passcode), project.PasscodeSalt)

	if _, err := cryptox.Decrypt(project.VerifierCiphertext, project.VerifierIV, project.VerifierAuthTag, projectKey); err != nil {
		if errors.Is(err, common.ErrDecryptionFailed) {
			return nil, common.ErrWrongPasscode
		}
		return nil, err
	}

	s.keys.Put(projectID, projectKey)
	return projectKey, nil
}

// Recover decrypts the stored passcode with a key derived from the owner's
// master key. Only the owner can recover; the master key is verified against
// its hash first so a wrong key surfaces as ErrIncorrectMasterKey.
func (s *ProjectService) Recover(ctx context.Context, userID, projectID, masterKey string) (string, error) {
	project, err := s.repomanager.Projects(s.db).GetByID(ctx, projectID)
	if err != nil {
		return "", err
	}
	if project.OwnerID != userID {
		return "", fmt.Errorf("%w: only the owner can recover the passcode", common.ErrForbidden)
	}

	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if !VerifyMasterKey(user, masterKey) {
		return "", common.ErrIncorrectMasterKey
	}

	recoveryKey := cryptox.DeriveKey([]byte(masterKey), project.PasscodeSalt)
	passcode, err := cryptox.Decrypt(project.EncryptedPasscode, project.PasscodeIV, project.PasscodeAuthTag, recoveryKey)
	if err != nil {
		return "", err
	}

	return string(passcode), nil
}

// Lock discards the in-memory project key. No persisted state changes.
func (s *ProjectService) Lock(ctx context.Context, userID, projectID string) error {
	if _, err := s.access.RequireMember(ctx, s.db, projectID, userID); err != nil {
		return err
	}
	s.keys.Delete(projectID)
	return nil
}

// Get returns a project to one of its members.
func (s *ProjectService) Get(ctx context.Context, userID, projectID string) (*models.Project, error) {
	if _, err := s.access.RequireMember(ctx, s.db, projectID, userID); err != nil {
		return nil, err
	}
	return s.repomanager.Projects(s.db).GetByID(ctx, projectID)
}

// UpdateInfo renames a project or edits its description. Requires admin.
func (s *ProjectService) UpdateInfo(ctx context.Context, userID, projectID, name, description string) error {
	if _, err := s.access.RequireRole(ctx, s.db, projectID, userID, models.RoleAdmin); err != nil {
		return err
	}
	if name == "" {
		return fmt.Errorf("%w: empty project name", common.ErrBadRequest)
	}
	return s.repomanager.Projects(s.db).UpdateInfo(ctx, projectID, name, description)
}

// Delete removes a project and everything under it. Owner only. The cascade
// covers environments, variables, memberships, quotas, shares and snapshots;
// afterwards the owner's plan limits are re-evaluated.
func (s *ProjectService) Delete(ctx context.Context, userID, projectID string) error {
	project, err := s.repomanager.Projects(s.db).GetByID(ctx, projectID)
	if err != nil {
		return err
	}
	if project.OwnerID != userID {
		return fmt.Errorf("%w: only the owner can delete the project", common.ErrForbidden)
	}

	if err := s.repomanager.Projects(s.db).Delete(ctx, projectID); err != nil {
		return err
	}

	s.keys.Delete(projectID)

	return s.quotas.Reevaluate(ctx, s.db, project.OwnerID)
}
