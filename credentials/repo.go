package credentials

import "context"

// Repo persists external credentials keyed by (tenantID, provider).
// Upsert carries last-write-wins semantics: two racing completions both
// succeed and the later write stands.
type Repo interface {
	Upsert(ctx context.Context, cred *ExternalCredential) error
	Get(ctx context.Context, tenantID, provider string) (*ExternalCredential, error)
	Delete(ctx context.Context, tenantID, provider string) error
	ListByTenant(ctx context.Context, tenantID string) ([]*ExternalCredential, error)
}
