// Package restrepo stores external credentials in the primary backend.
package restrepo

import (
	"context"
	"net/http"
	"net/url"

	"github.com/paperledger/link-service/credentials"
	"github.com/paperledger/link-service/internal/backend"
	svcerrors "github.com/paperledger/link-service/internal/errors"
)

var _ credentials.Repo = (*Repo)(nil)

type Repo struct {
	client *backend.Client
	bearer func(ctx context.Context) string
}

func New(client *backend.Client, bearer func(ctx context.Context) string) *Repo {
	if bearer == nil {
		bearer = backend.BearerFromContext
	}
	return &Repo{client: client, bearer: bearer}
}

func credPath(tenantID, provider string) string {
	return "/api/businesses/" + url.PathEscape(tenantID) + "/credentials/" + url.PathEscape(provider)
}

func (r *Repo) Upsert(ctx context.Context, cred *credentials.ExternalCredential) error {
	err := r.client.Do(ctx, http.MethodPut, credPath(cred.TenantID, cred.Provider), r.bearer(ctx), cred, nil)
	if err != nil {
		return svcerrors.Wrapf(svcerrors.ErrPersistFailed, "upsert credential: %v", err)
	}
	return nil
}

func (r *Repo) Get(ctx context.Context, tenantID, provider string) (*credentials.ExternalCredential, error) {
	var cred credentials.ExternalCredential
	err := r.client.Do(ctx, http.MethodGet, credPath(tenantID, provider), r.bearer(ctx), nil, &cred)
	if err != nil {
		var se *backend.StatusError
		if svcerrors.As(err, &se) && se.Code == http.StatusNotFound {
			return nil, svcerrors.ErrCredentialNotFound
		}
		return nil, svcerrors.Wrapf(err, "get credential %s/%s", tenantID, provider)
	}
	return &cred, nil
}

func (r *Repo) Delete(ctx context.Context, tenantID, provider string) error {
	err := r.client.Do(ctx, http.MethodDelete, credPath(tenantID, provider), r.bearer(ctx), nil, nil)
	if err != nil {
		var se *backend.StatusError
		if svcerrors.As(err, &se) && se.Code == http.StatusNotFound {
			return svcerrors.ErrCredentialNotFound
		}
		return svcerrors.Wrapf(err, "delete credential %s/%s", tenantID, provider)
	}
	return nil
}

func (r *Repo) ListByTenant(ctx context.Context, tenantID string) ([]*credentials.ExternalCredential, error) {
	var out struct {
		Credentials []*credentials.ExternalCredential `json:"credentials"`
	}
	path := "/api/businesses/" + url.PathEscape(tenantID) + "/credentials"
	if err := r.client.Do(ctx, http.MethodGet, path, r.bearer(ctx), nil, &out); err != nil {
		return nil, svcerrors.Wrapf(err, "list credentials for %s", tenantID)
	}
	return out.Credentials, nil
}
