package models

import "time"

// User is an account record created on first sign-in. The master key is never
// stored; only its salted hash is kept for verification, plus the salt used
// to compute it.
type User struct {
	ID            string
	Email         string
	MasterKeyHash []byte
	MasterKeySalt []byte
	Tier          Tier
	Deactivated   bool

	// Downgrade enforcement state, maintained for project owners whose usage
	// exceeds their current tier.
	ExceedsPlanLimits       bool
	PlanEnforcementDeadline *time.Time

	CreatedAt time.Time
}

// HasMasterKey reports whether the user has completed master-key setup.
func (u *User) HasMasterKey() bool {
	return len(u.MasterKeyHash) > 0
}
