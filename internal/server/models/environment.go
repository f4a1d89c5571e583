package models

import "time"

// Environment scopes variables inside a project (e.g. development, staging,
// production).
type Environment struct {
	ID          string
	ProjectID   string
	Name        string
	Description string
	CreatedAt   time.Time
}

// Variable is a single named secret value, encrypted under the project's
// passcode-derived key. Name is unique within its environment.
type Variable struct {
	ID            string
	EnvironmentID string
	Name          string

	EncryptedValue []byte
	IV             []byte
	AuthTag        []byte

	CreatedAt time.Time
	UpdatedAt time.Time
}
