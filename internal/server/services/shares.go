package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/envvault/internal/common"
	"github.com/dmitrijs2005/envvault/internal/cryptox"
	"github.com/dmitrijs2005/envvault/internal/dbx"
	"github.com/dmitrijs2005/envvault/internal/server/models"
	"github.com/dmitrijs2005/envvault/internal/server/repositories/repomanager"
)

// generatedPasscodeLength is used when the caller lets the server pick the
// share passcode.
const generatedPasscodeLength = 12

// ShareService builds and serves double-wrapped public shares: the selected
// variables are encrypted under a random share key, the share key under a key
// derived from a disposable share passcode, and the passcode itself under the
// project key so members can recall it later.
type ShareService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	access      *AccessService
	quotas      *QuotaService
	keys        *KeyCache
	now         func() time.Time
}

func NewShareService(db *sql.DB, m repomanager.RepositoryManager, access *AccessService, quotas *QuotaService, keys *KeyCache) *ShareService {
	return &ShareService{db: db, repomanager: m, access: access, quotas: quotas, keys: keys, now: time.Now}
}

// Create mints a share of the named variables. The caller must be a member
// with the project unlocked. If sharePasscode is empty a random one is
// generated; it is returned so the caller can hand it out-of-band.
func (s *ShareService) Create(ctx context.Context, userID, projectID, environmentID string, variableNames []string, sharePasscode string, expiresAt *time.Time, maxViews *int) (*models.SharedSecret, string, error) {
	member, err := s.access.RequireMember(ctx, s.db, projectID, userID)
	if err != nil {
		return nil, "", err
	}

	if len(variableNames) == 0 {
		return nil, "", fmt.Errorf("%w: no variables selected", common.ErrBadRequest)
	}
	if maxViews != nil && *maxViews < 1 {
		return nil, "", fmt.Errorf("%w: max views must be positive", common.ErrBadRequest)
	}

	projectKey, ok := s.keys.Get(projectID)
	if !ok {
		return nil, "", common.ErrProjectLocked
	}
	defer common.WipeByteArray(projectKey)

	env, err := s.repomanager.Environments(s.db).GetByID(ctx, environmentID)
	if err != nil {
		return nil, "", err
	}
	if env.ProjectID != projectID {
		return nil, "", common.ErrNotFound
	}

	if sharePasscode == "" {
		sharePasscode, err = common.MakeRandPasscode(generatedPasscodeLength)
		if err != nil {
			return nil, "", err
		}
	}
	if len(sharePasscode) < common.MinPasscodeLength {
		return nil, "", fmt.Errorf("%w: share passcode must be at least %d characters", common.ErrBadRequest, common.MinPasscodeLength)
	}

	// Decrypt the selected variables with the project key.
	payload := make(map[string]string, len(variableNames))
	variableRepo := s.repomanager.Variables(s.db)
	for _, name := range variableNames {
		v, err := variableRepo.GetByName(ctx, environmentID, name)
		if err != nil {
			return nil, "", fmt.Errorf("variable %q: %w", name, err)
		}
		value, err := cryptox.Decrypt(v.EncryptedValue, v.IV, v.AuthTag, projectKey)
		if err != nil {
			return nil, "", fmt.Errorf("variable %q: %w", name, err)
		}
		payload[name] = string(value)
	}

	serialized, err := json.Marshal(payload)
	if err != nil {
		return nil, "", err
	}

	// Wrap payload under a fresh share key, the share key under the passcode
	// derivation, and the passcode under the project key.
	shareKey := cryptox.GenerateKey()
	defer common.WipeByteArray(shareKey)

	encPayload, payloadIV, payloadTag, err := cryptox.Encrypt(serialized, shareKey)
	if err != nil {
		return nil, "", err
	}

	shareSalt := cryptox.GenerateSalt()
	sharePassKey := cryptox.DeriveKey([]byte(sharePasscode), shareSalt)
	encShareKey, shareKeyIV, shareKeyTag, err := cryptox.Encrypt(shareKey, sharePassKey)
	if err != nil {
		return nil, "", err
	}

	encPasscode, passcodeIV, passcodeTag, err := cryptox.Encrypt([]byte(sharePasscode), projectKey)
	if err != nil {
		return nil, "", err
	}

	share := &models.SharedSecret{
		ProjectID:         projectID,
		EnvironmentID:     environmentID,
		CreatedBy:         member.UserID,
		EncryptedPayload:  encPayload,
		PayloadIV:         payloadIV,
		PayloadAuthTag:    payloadTag,
		ShareSalt:         shareSalt,
		EncryptedShareKey: encShareKey,
		ShareKeyIV:        shareKeyIV,
		ShareKeyAuthTag:   shareKeyTag,
		EncryptedPasscode: encPasscode,
		PasscodeIV:        passcodeIV,
		PasscodeAuthTag:   passcodeTag,
		ExpiresAt:         expiresAt,
		IsIndefinite:      expiresAt == nil,
		MaxViews:          maxViews,
	}

	project, err := s.repomanager.Projects(s.db).GetByID(ctx, projectID)
	if err != nil {
		return nil, "", err
	}
	owner, err := s.repomanager.Users(s.db).GetByID(ctx, project.OwnerID)
	if err != nil {
		return nil, "", err
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.quotas.CheckAndIncrement(ctx, tx, projectID, owner.Tier, models.ResourceSharedSecrets); err != nil {
			return err
		}
		_, err := s.repomanager.Shares(tx).Create(ctx, share)
		return err
	})
	if err != nil {
		return nil, "", fmt.Errorf("error creating share: %w", err)
	}

	return share, sharePasscode, nil
}

// Access fetches the encrypted share material for a third party. No project
// membership is required; the record is refused when disabled, expired, or
// already at its view limit. Plaintext is never returned here; the caller
// derives the share pass key locally. The fetch itself does not count a view,
// only Reveal does, so maxViews bounds server-observed decryptions rather
// than raw downloads.
func (s *ShareService) Access(ctx context.Context, shareID string) (*models.SharedSecret, error) {
	share, err := s.repomanager.Shares(s.db).GetByID(ctx, shareID)
	if err != nil {
		return nil, err
	}
	if err := s.checkViewable(share); err != nil {
		return nil, err
	}
	return share, nil
}

// Reveal decrypts the share payload for a caller who presents the share
// passcode, then counts the view. Reaching maxViews makes the share
// inaccessible afterwards even with the correct passcode; the counter guard
// runs inside the UPDATE so concurrent reveals cannot overshoot.
func (s *ShareService) Reveal(ctx context.Context, shareID, sharePasscode string) (map[string]string, error) {
	share, err := s.repomanager.Shares(s.db).GetByID(ctx, shareID)
	if err != nil {
		return nil, err
	}
	if err := s.checkViewable(share); err != nil {
		return nil, err
	}

	sharePassKey := cryptox.DeriveKey([]byte(sharePasscode), share.ShareSalt)

	shareKey, err := cryptox.Decrypt(share.EncryptedShareKey, share.ShareKeyIV, share.ShareKeyAuthTag, sharePassKey)
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(shareKey)

	serialized, err := cryptox.Decrypt(share.EncryptedPayload, share.PayloadIV, share.PayloadAuthTag, shareKey)
	if err != nil {
		return nil, err
	}

	var payload map[string]string
	if err := json.Unmarshal(serialized, &payload); err != nil {
		return nil, err
	}

	if _, err := s.repomanager.Shares(s.db).IncrementViews(ctx, shareID); err != nil {
		return nil, err
	}

	return payload, nil
}

// RecallPasscode decrypts the stored share passcode with the project key so a
// member can display it again. Requires an unlocked project.
func (s *ShareService) RecallPasscode(ctx context.Context, userID, projectID, shareID string) (string, error) {
	if _, err := s.access.RequireMember(ctx, s.db, projectID, userID); err != nil {
		return "", err
	}

	projectKey, ok := s.keys.Get(projectID)
	if !ok {
		return "", common.ErrProjectLocked
	}
	defer common.WipeByteArray(projectKey)

	share, err := s.repomanager.Shares(s.db).GetByID(ctx, shareID)
	if err != nil {
		return "", err
	}
	if share.ProjectID != projectID {
		return "", common.ErrNotFound
	}

	passcode, err := cryptox.Decrypt(share.EncryptedPasscode, share.PasscodeIV, share.PasscodeAuthTag, projectKey)
	if err != nil {
		return "", err
	}

	return string(passcode), nil
}

// List returns a project's shares to one of its members.
func (s *ShareService) List(ctx context.Context, userID, projectID string) ([]*models.SharedSecret, error) {
	if _, err := s.access.RequireMember(ctx, s.db, projectID, userID); err != nil {
		return nil, err
	}
	return s.repomanager.Shares(s.db).ListByProject(ctx, projectID)
}

// SetDisabled toggles a share. Requires admin.
func (s *ShareService) SetDisabled(ctx context.Context, userID, shareID string, disabled bool) error {
	share, err := s.repomanager.Shares(s.db).GetByID(ctx, shareID)
	if err != nil {
		return err
	}
	if _, err := s.access.RequireRole(ctx, s.db, share.ProjectID, userID, models.RoleAdmin); err != nil {
		return err
	}
	return s.repomanager.Shares(s.db).SetDisabled(ctx, shareID, disabled)
}

// Delete removes a share, decrements the quota counter and re-evaluates the
// owner's plan limits. Requires admin.
func (s *ShareService) Delete(ctx context.Context, userID, shareID string) error {
	share, err := s.repomanager.Shares(s.db).GetByID(ctx, shareID)
	if err != nil {
		return err
	}
	if _, err := s.access.RequireRole(ctx, s.db, share.ProjectID, userID, models.RoleAdmin); err != nil {
		return err
	}

	project, err := s.repomanager.Projects(s.db).GetByID(ctx, share.ProjectID)
	if err != nil {
		return err
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Shares(tx).Delete(ctx, shareID); err != nil {
			return err
		}
		return s.quotas.Decrement(ctx, tx, share.ProjectID, models.ResourceSharedSecrets)
	})
	if err != nil {
		return fmt.Errorf("error deleting share: %w", err)
	}

	return s.quotas.Reevaluate(ctx, s.db, project.OwnerID)
}

func (s *ShareService) checkViewable(share *models.SharedSecret) error {
	if share.Disabled {
		return common.ErrShareDisabled
	}
	if !share.IsIndefinite && share.ExpiresAt != nil && share.ExpiresAt.Before(s.now()) {
		return common.ErrShareExpired
	}
	if share.MaxViews != nil && share.Views >= *share.MaxViews {
		return common.ErrViewLimitReached
	}
	return nil
}
