package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/envvault/internal/common"
	"github.com/dmitrijs2005/envvault/internal/cryptox"
	sc "github.com/dmitrijs2005/envvault/internal/server/config"
	"github.com/dmitrijs2005/envvault/internal/server/models"
)

func stubPresign(t *testing.T, putURL, getURL string) {
	t.Helper()

	origLoad := loadDefaultAWSConfig
	origNewS3 := newS3ClientFromConfig
	origNewPre := newS3PresignClient
	origPut := presignPutObject
	origGet := presignGetObject
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNewS3
		newS3PresignClient = origNewPre
		presignPutObject = origPut
		presignGetObject = origGet
	})

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, nil
	}
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return &s3.Client{}
	}
	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return &s3.PresignClient{}
	}
	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return &v4.PresignedHTTPRequest{URL: putURL}, nil
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return &v4.PresignedHTTPRequest{URL: getURL}, nil
	}
}

func snapshotFixture(t *testing.T) (*testEnv, *SnapshotService, *models.User, *models.Project, string) {
	t.Helper()
	env := newTestEnv(t)
	ctx := context.Background()

	owner := env.mustUser(t, "owner@example.com", models.TierFree)
	project := env.mustProject(t, owner.ID, "acme", "123456", "hunter2-strong")
	envs, _ := env.environments.List(ctx, owner.ID, project.ID)

	if _, err := env.variables.Set(ctx, owner.ID, project.ID, envs[0].ID, "DB_URL", "postgres://db"); err != nil {
		t.Fatalf("Set error: %v", err)
	}

	cfg := &sc.Config{S3Bucket: "vault", S3Region: "us-east-1", S3BaseEndpoint: "http://127.0.0.1:9000"}
	snapshots := NewSnapshotService(env.db, env.rm, NewAccessService(env.db, env.rm), env.keys, cfg)

	return env, snapshots, owner, project, envs[0].ID
}

func TestSnapshotExport_EncryptedBlobAndPresignedPut(t *testing.T) {
	env, snapshots, owner, project, environmentID := snapshotFixture(t)
	ctx := context.Background()

	stubPresign(t, "https://s3/put", "https://s3/get")

	result, err := snapshots.Export(ctx, owner.ID, project.ID, environmentID)
	if err != nil {
		t.Fatalf("Export error: %v", err)
	}
	if result.UploadURL != "https://s3/put" {
		t.Fatalf("upload url = %q", result.UploadURL)
	}
	if result.Snapshot.UploadStatus != "pending" {
		t.Fatalf("status = %q, want pending", result.Snapshot.UploadStatus)
	}

	// the blob decrypts with the project key back to the variables
	projectKey, ok := env.keys.Get(project.ID)
	if !ok {
		t.Fatalf("project key missing")
	}
	plain, err := cryptox.Decrypt(result.Blob, result.Snapshot.IV, result.Snapshot.AuthTag, projectKey)
	if err != nil {
		t.Fatalf("Decrypt error: %v", err)
	}
	var payload map[string]string
	if err := json.Unmarshal(plain, &payload); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if payload["DB_URL"] != "postgres://db" {
		t.Fatalf("unexpected payload: %v", payload)
	}
}

func TestSnapshotExport_RequiresUnlockedProject(t *testing.T) {
	env, snapshots, owner, project, environmentID := snapshotFixture(t)
	ctx := context.Background()

	env.keys.Delete(project.ID)

	if _, err := snapshots.Export(ctx, owner.ID, project.ID, environmentID); !errors.Is(err, common.ErrProjectLocked) {
		t.Fatalf("expected ErrProjectLocked, got %v", err)
	}
}

func TestSnapshotMarkUploadedAndDownloadURL(t *testing.T) {
	env, snapshots, owner, project, environmentID := snapshotFixture(t)
	ctx := context.Background()

	stubPresign(t, "https://s3/put", "https://s3/get")

	result, err := snapshots.Export(ctx, owner.ID, project.ID, environmentID)
	if err != nil {
		t.Fatalf("Export error: %v", err)
	}

	if err := snapshots.MarkUploaded(ctx, owner.ID, result.Snapshot.ID); err != nil {
		t.Fatalf("MarkUploaded error: %v", err)
	}
	stored, _ := env.rm.Snapshots(nil).GetByID(ctx, result.Snapshot.ID)
	if stored.UploadStatus != "uploaded" {
		t.Fatalf("status = %q, want uploaded", stored.UploadStatus)
	}

	snapshot, url, err := snapshots.DownloadURL(ctx, owner.ID, result.Snapshot.ID)
	if err != nil {
		t.Fatalf("DownloadURL error: %v", err)
	}
	if url != "https://s3/get" || snapshot.ID != result.Snapshot.ID {
		t.Fatalf("unexpected download result: %q, %+v", url, snapshot)
	}
}
