package models

// Quota is a denormalized per-project usage counter, kept consistent with the
// record mutations it tracks so limit checks stay O(1). The stored limit is a
// snapshot of the owner's tier at the last write; checks always re-resolve
// the owner's current tier.
type Quota struct {
	ID           string
	ProjectID    string
	ResourceType ResourceType
	Used         int
	Limit        int
}
