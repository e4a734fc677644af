package tenants

import "context"

type Repo interface {
	Upsert(ctx context.Context, tenantData *Tenant) error
	Delete(ctx context.Context, tenantID string) error
	Get(ctx context.Context, tenantID string) (*Tenant, error)
	List(ctx context.Context, offset, limit int) ([]*Tenant, error)
}
