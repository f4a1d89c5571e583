package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/envvault/internal/common"
	"github.com/dmitrijs2005/envvault/internal/cryptox"
	"github.com/dmitrijs2005/envvault/internal/dbx"
	"github.com/dmitrijs2005/envvault/internal/server/repositories/repomanager"
)

// RotationService re-wraps every owned project's passcode when the user
// changes their master key. The flow is verify → collect → re-wrap in memory
// → one transactional commit; a failure at any phase leaves all prior state
// untouched.
type RotationService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewRotationService(db *sql.DB, m repomanager.RepositoryManager) *RotationService {
	return &RotationService{db: db, repomanager: m}
}

// rewrap is one project's re-encrypted passcode, accumulated in memory until
// the commit phase.
type rewrap struct {
	projectID         string
	encryptedPasscode []byte
	iv                []byte
	authTag           []byte
}

// RotateMasterKey atomically replaces the user's master key: the old key must
// verify, every owned project's passcode is unwrapped with the old key and
// re-wrapped with the new one (the passcode salt is intentionally preserved,
// so project keys and variable ciphertexts stay valid), and the new
// master-key hash plus all re-wrapped records are committed in a single
// transaction. Returns the number of re-encrypted projects; zero owned
// projects is a valid fast path.
func (s *RotationService) RotateMasterKey(ctx context.Context, userID, oldMasterKey, newMasterKey string) (int, error) {
	if len(newMasterKey) < common.MinMasterKeyLength {
		return 0, fmt.Errorf("%w: master key must be at least %d characters", common.ErrBadRequest, common.MinMasterKeyLength)
	}

	// Phase 1: verify the current master key.
	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		return 0, err
	}
	if !VerifyMasterKey(user, oldMasterKey) {
		return 0, common.ErrIncorrectMasterKey
	}

	// Phase 2: collect owned projects.
	owned, err := s.repomanager.Projects(s.db).ListByOwner(ctx, userID)
	if err != nil {
		return 0, err
	}

	// Phase 3: re-wrap each passcode purely in memory.
	rewraps := make([]rewrap, 0, len(owned))
	for _, p := range owned {
		oldKey := cryptox.DeriveKey([]byte(oldMasterKey), p.PasscodeSalt)

		passcode, err := cryptox.Decrypt(p.EncryptedPasscode, p.PasscodeIV, p.PasscodeAuthTag, oldKey)
		if err != nil {
			return 0, fmt.Errorf("%w: project %s: %w", common.ErrRotationFailed, p.ID, err)
		}

		newKey := cryptox.DeriveKey([]byte(newMasterKey), p.PasscodeSalt)
		enc, iv, tag, err := cryptox.Encrypt(passcode, newKey)
		common.WipeByteArray(passcode)
		if err != nil {
			return 0, fmt.Errorf("%w: project %s: %w", common.ErrRotationFailed, p.ID, err)
		}

		rewraps = append(rewraps, rewrap{projectID: p.ID, encryptedPasscode: enc, iv: iv, authTag: tag})
	}

	newSalt := cryptox.GenerateSalt()
	newHash := cryptox.Hash([]byte(newMasterKey), newSalt)

	// Phase 4: single atomic commit across every record.
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		projectRepo := s.repomanager.Projects(tx)
		for _, rw := range rewraps {
			if err := projectRepo.UpdateWrappedPasscode(ctx, rw.projectID, rw.encryptedPasscode, rw.iv, rw.authTag); err != nil {
				return fmt.Errorf("project %s: %w", rw.projectID, err)
			}
		}
		return s.repomanager.Users(tx).UpdateMasterKey(ctx, userID, newHash, newSalt)
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %w", common.ErrRotationFailed, err)
	}

	return len(rewraps), nil
}
