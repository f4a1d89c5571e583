package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/envvault/internal/common"
	"github.com/dmitrijs2005/envvault/internal/cryptox"
	sc "github.com/dmitrijs2005/envvault/internal/server/config"
	"github.com/dmitrijs2005/envvault/internal/server/models"
	"github.com/dmitrijs2005/envvault/internal/server/repositories/repomanager"
	"github.com/google/uuid"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

const presignValidity = 15 * time.Minute

// SnapshotService exports an environment's variables as a blob encrypted
// under the project key and stored in S3-compatible object storage. The blob
// is built server-side but uploaded by the client through a presigned PUT, so
// object storage credentials never leave the server and plaintext never
// leaves the process.
type SnapshotService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	access      *AccessService
	keys        *KeyCache
	config      *sc.Config
}

func NewSnapshotService(db *sql.DB, m repomanager.RepositoryManager, access *AccessService, keys *KeyCache, cfg *sc.Config) *SnapshotService {
	return &SnapshotService{db: db, repomanager: m, access: access, keys: keys, config: cfg}
}

// ExportResult bundles a created snapshot with the presigned upload target
// and the encrypted blob the caller must PUT there.
type ExportResult struct {
	Snapshot  *models.Snapshot
	UploadURL string
	Blob      []byte
}

func randomStorageKey(projectID string) string {
	d := time.Now()
	return fmt.Sprintf("snapshots/%s/%d/%d/%d/%v", projectID, d.Year(), d.Month(), d.Day(), uuid.New())
}

func (s *SnapshotService) getPresignClient() (*s3.PresignClient, error) {
	cfg, err := loadDefaultAWSConfig(context.Background(),
		config.WithRegion(s.config.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,
			s.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
	})

	return newS3PresignClient(client), nil
}

// Export builds the encrypted snapshot blob and returns it with a presigned
// PUT URL. Requires membership and an unlocked project.
func (s *SnapshotService) Export(ctx context.Context, userID, projectID, environmentID string) (*ExportResult, error) {
	if _, err := s.access.RequireMember(ctx, s.db, projectID, userID); err != nil {
		return nil, err
	}

	env, err := s.repomanager.Environments(s.db).GetByID(ctx, environmentID)
	if err != nil {
		return nil, err
	}
	if env.ProjectID != projectID {
		return nil, common.ErrNotFound
	}

	projectKey, ok := s.keys.Get(projectID)
	if !ok {
		return nil, common.ErrProjectLocked
	}
	defer common.WipeByteArray(projectKey)

	vars, err := s.repomanager.Variables(s.db).ListByEnvironment(ctx, environmentID)
	if err != nil {
		return nil, err
	}

	payload := make(map[string]string, len(vars))
	for _, v := range vars {
		value, err := cryptox.Decrypt(v.EncryptedValue, v.IV, v.AuthTag, projectKey)
		if err != nil {
			return nil, fmt.Errorf("variable %q: %w", v.Name, err)
		}
		payload[v.Name] = string(value)
	}

	serialized, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	blob, iv, tag, err := cryptox.Encrypt(serialized, projectKey)
	if err != nil {
		return nil, err
	}

	presignClient, err := s.getPresignClient()
	if err != nil {
		return nil, err
	}

	bucket := s.config.S3Bucket
	key := randomStorageKey(projectID)

	req, err := presignPutObject(presignClient, ctx, &s3.PutObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(presignValidity))
	if err != nil {
		return nil, err
	}

	snapshot := &models.Snapshot{
		ProjectID:     projectID,
		EnvironmentID: environmentID,
		CreatedBy:     userID,
		StorageKey:    key,
		IV:            iv,
		AuthTag:       tag,
		UploadStatus:  "pending",
	}
	if _, err := s.repomanager.Snapshots(s.db).Create(ctx, snapshot); err != nil {
		return nil, err
	}

	return &ExportResult{Snapshot: snapshot, UploadURL: req.URL, Blob: blob}, nil
}

// MarkUploaded records that the client completed the presigned PUT.
func (s *SnapshotService) MarkUploaded(ctx context.Context, userID, snapshotID string) error {
	snapshot, err := s.repomanager.Snapshots(s.db).GetByID(ctx, snapshotID)
	if err != nil {
		return err
	}
	if _, err := s.access.RequireMember(ctx, s.db, snapshot.ProjectID, userID); err != nil {
		return err
	}
	return s.repomanager.Snapshots(s.db).MarkUploaded(ctx, snapshotID)
}

// DownloadURL returns a presigned GET for a stored snapshot blob. The caller
// still needs the project key (and the snapshot's IV and tag) to decrypt it.
func (s *SnapshotService) DownloadURL(ctx context.Context, userID, snapshotID string) (*models.Snapshot, string, error) {
	snapshot, err := s.repomanager.Snapshots(s.db).GetByID(ctx, snapshotID)
	if err != nil {
		return nil, "", err
	}
	if _, err := s.access.RequireMember(ctx, s.db, snapshot.ProjectID, userID); err != nil {
		return nil, "", err
	}

	presignClient, err := s.getPresignClient()
	if err != nil {
		return nil, "", err
	}

	bucket := s.config.S3Bucket

	req, err := presignGetObject(presignClient, ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &snapshot.StorageKey,
	}, s3.WithPresignExpires(presignValidity))
	if err != nil {
		return nil, "", err
	}

	return snapshot, req.URL, nil
}

// List returns a project's snapshots to one of its members.
func (s *SnapshotService) List(ctx context.Context, userID, projectID string) ([]*models.Snapshot, error) {
	if _, err := s.access.RequireMember(ctx, s.db, projectID, userID); err != nil {
		return nil, err
	}
	return s.repomanager.Snapshots(s.db).ListByProject(ctx, projectID)
}
