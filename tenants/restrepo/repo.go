// Package restrepo reads businesses from the primary backend. The linking
// service treats the backend as the source of truth for tenant ownership.
package restrepo

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/paperledger/link-service/internal/backend"
	svcerrors "github.com/paperledger/link-service/internal/errors"
	"github.com/paperledger/link-service/tenants"
)

var _ tenants.Repo = (*Repo)(nil)

type Repo struct {
	client *backend.Client
	bearer func(ctx context.Context) string
}

// New builds a tenant repo over the backend client. bearer extracts the
// credential to forward for a given call; passing nil forwards whatever
// the request context carries.
func New(client *backend.Client, bearer func(ctx context.Context) string) *Repo {
	if bearer == nil {
		bearer = backend.BearerFromContext
	}
	return &Repo{client: client, bearer: bearer}
}

func (r *Repo) Get(ctx context.Context, tenantID string) (*tenants.Tenant, error) {
	var t tenants.Tenant
	err := r.client.Do(ctx, http.MethodGet, "/api/businesses/"+url.PathEscape(tenantID), r.bearer(ctx), nil, &t)
	if err != nil {
		var se *backend.StatusError
		if svcerrors.As(err, &se) && se.Code == http.StatusNotFound {
			return nil, svcerrors.ErrTenantNotFound
		}
		return nil, svcerrors.Wrapf(err, "get business %s", tenantID)
	}
	return &t, nil
}

func (r *Repo) Upsert(ctx context.Context, tenantData *tenants.Tenant) error {
	return r.client.Do(ctx, http.MethodPut, "/api/businesses/"+url.PathEscape(tenantData.ID), r.bearer(ctx), tenantData, nil)
}

func (r *Repo) Delete(ctx context.Context, tenantID string) error {
	return r.client.Do(ctx, http.MethodDelete, "/api/businesses/"+url.PathEscape(tenantID), r.bearer(ctx), nil, nil)
}

func (r *Repo) List(ctx context.Context, offset, limit int) ([]*tenants.Tenant, error) {
	var out struct {
		Businesses []*tenants.Tenant `json:"businesses"`
	}
	path := fmt.Sprintf("/api/businesses?offset=%d&limit=%d", offset, limit)
	if err := r.client.Do(ctx, http.MethodGet, path, r.bearer(ctx), nil, &out); err != nil {
		return nil, svcerrors.Wrapf(err, "list businesses")
	}
	return out.Businesses, nil
}
