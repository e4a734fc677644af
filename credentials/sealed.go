package credentials

import (
	"context"

	svcerrors "github.com/paperledger/link-service/internal/errors"
	"github.com/paperledger/link-service/internal/secretbox"
)

// SealedRepo decorates a Repo so token material is encrypted before it
// reaches the underlying store and decrypted on the way out. The rest of
// the credential stays in the clear for listing and labels.
type SealedRepo struct {
	inner  Repo
	sealer *secretbox.Sealer
}

var _ Repo = (*SealedRepo)(nil)

func NewSealedRepo(inner Repo, sealer *secretbox.Sealer) *SealedRepo {
	return &SealedRepo{inner: inner, sealer: sealer}
}

func (r *SealedRepo) Upsert(ctx context.Context, cred *ExternalCredential) error {
	sealed := *cred

	var err error
	if sealed.AccessToken, err = r.sealer.Seal(cred.AccessToken); err != nil {
		return svcerrors.Wrapf(err, "seal access token")
	}
	if cred.RefreshToken != "" {
		if sealed.RefreshToken, err = r.sealer.Seal(cred.RefreshToken); err != nil {
			return svcerrors.Wrapf(err, "seal refresh token")
		}
	}
	return r.inner.Upsert(ctx, &sealed)
}

func (r *SealedRepo) Get(ctx context.Context, tenantID, provider string) (*ExternalCredential, error) {
	cred, err := r.inner.Get(ctx, tenantID, provider)
	if err != nil {
		return nil, err
	}

	opened := *cred
	if opened.AccessToken, err = r.sealer.Open(cred.AccessToken); err != nil {
		return nil, svcerrors.Wrapf(err, "open access token")
	}
	if cred.RefreshToken != "" {
		if opened.RefreshToken, err = r.sealer.Open(cred.RefreshToken); err != nil {
			return nil, svcerrors.Wrapf(err, "open refresh token")
		}
	}
	return &opened, nil
}

func (r *SealedRepo) Delete(ctx context.Context, tenantID, provider string) error {
	return r.inner.Delete(ctx, tenantID, provider)
}

// ListByTenant returns credentials with token material still sealed; list
// consumers only need labels and timestamps.
func (r *SealedRepo) ListByTenant(ctx context.Context, tenantID string) ([]*ExternalCredential, error) {
	return r.inner.ListByTenant(ctx, tenantID)
}
