package credentialrepofake

import (
	"context"
	"sort"
	"sync"

	"github.com/paperledger/link-service/credentials"
	svcerrors "github.com/paperledger/link-service/internal/errors"
)

var _ credentials.Repo = (*FakeCredentialRepo)(nil)

type credKey struct {
	tenantID string
	provider string
}

type FakeCredentialRepo struct {
	creds map[credKey]*credentials.ExternalCredential
	lock  sync.RWMutex
}

func NewFakeCredentialRepo() *FakeCredentialRepo {
	return &FakeCredentialRepo{
		creds: make(map[credKey]*credentials.ExternalCredential),
	}
}

func (cr *FakeCredentialRepo) Upsert(_ context.Context, cred *credentials.ExternalCredential) error {
	cr.lock.Lock()
	defer cr.lock.Unlock()

	copied := *cred
	cr.creds[credKey{cred.TenantID, cred.Provider}] = &copied
	return nil
}

func (cr *FakeCredentialRepo) Get(_ context.Context, tenantID, provider string) (*credentials.ExternalCredential, error) {
	cr.lock.RLock()
	defer cr.lock.RUnlock()

	cred, ok := cr.creds[credKey{tenantID, provider}]
	if !ok {
		return nil, svcerrors.ErrCredentialNotFound
	}
	copied := *cred
	return &copied, nil
}

func (cr *FakeCredentialRepo) Delete(_ context.Context, tenantID, provider string) error {
	cr.lock.Lock()
	defer cr.lock.Unlock()

	key := credKey{tenantID, provider}
	if _, ok := cr.creds[key]; !ok {
		return svcerrors.ErrCredentialNotFound
	}
	delete(cr.creds, key)
	return nil
}

func (cr *FakeCredentialRepo) ListByTenant(_ context.Context, tenantID string) ([]*credentials.ExternalCredential, error) {
	cr.lock.RLock()
	defer cr.lock.RUnlock()

	out := make([]*credentials.ExternalCredential, 0)
	for key, cred := range cr.creds {
		if key.tenantID == tenantID {
			copied := *cred
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Provider < out[j].Provider
	})
	return out, nil
}
