package tenants

import "time"

// Tenant is a business account, the unit external credentials are linked to.
// Ownership is tracked by identity subject so the linking flow can check
// that the caller may act on the business before any credential write.
type Tenant struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	OwnerSubjects []string  `json:"owner_subjects"`
	CreatedAt     time.Time `json:"created_at"`
}

// HasOwner reports whether the given identity subject may act on the tenant.
func (t *Tenant) HasOwner(subjectID string) bool {
	for _, s := range t.OwnerSubjects {
		if s == subjectID {
			return true
		}
	}
	return false
}
