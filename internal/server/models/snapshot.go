package models

import "time"

// Snapshot records an encrypted export of an environment's variables stored
// in object storage. The blob itself lives in S3 under StorageKey; it is
// encrypted under the project key before upload, so object storage never
// sees plaintext either.
type Snapshot struct {
	ID            string
	ProjectID     string
	EnvironmentID string
	CreatedBy     string
	StorageKey    string
	IV            []byte
	AuthTag       []byte
	UploadStatus  string
	CreatedAt     time.Time
}
