package linking

import (
	"context"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/paperledger/link-service/credentials"
	"github.com/paperledger/link-service/identity"
	svcerrors "github.com/paperledger/link-service/internal/errors"
	"github.com/paperledger/link-service/linkstate"
	"github.com/paperledger/link-service/providers"
	"github.com/paperledger/link-service/tenants"
)

// Repos holds all repository dependencies for the Manager.
type Repos struct {
	Tenants     tenants.Repo
	Credentials credentials.Repo
}

// Manager authorizes, starts and completes provider link attempts.
type Manager struct {
	repos    Repos
	registry *providers.Registry
	codec    *linkstate.Codec
	baseURL  string
	nowTime  func() time.Time
}

// ManagerOption defines a function type to modify the Manager instance.
type ManagerOption func(*Manager)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowTime = nowFunc
	}
}

func NewManager(repos Repos, registry *providers.Registry, codec *linkstate.Codec, baseURL string, options ...ManagerOption) (*Manager, error) {
	if repos.Tenants == nil {
		return nil, errors.New("[NewManager] Tenants repo is required")
	}
	if repos.Credentials == nil {
		return nil, errors.New("[NewManager] Credentials repo is required")
	}
	if registry == nil {
		return nil, errors.New("[NewManager] provider registry is required")
	}
	if codec == nil {
		return nil, errors.New("[NewManager] state codec is required")
	}

	m := &Manager{
		repos:    repos,
		registry: registry,
		codec:    codec,
		baseURL:  baseURL,
		nowTime:  time.Now,
	}
	for _, opt := range options {
		opt(m)
	}
	return m, nil
}

// Providers lists the provider kinds this manager can link.
func (m *Manager) Providers() []providers.Kind {
	return m.registry.Kinds()
}

// CallbackURL is the redirect target registered with each provider.
func (m *Manager) CallbackURL(kind providers.Kind) string {
	return m.baseURL + "/link/" + kind.String() + "/callback"
}

// Initiate authorizes the caller against the tenant and produces the
// provider handoff. Nothing is written; the attempt exists only in the
// signed state carried by the handoff.
func (m *Manager) Initiate(ctx context.Context, ident identity.Identity, kind providers.Kind, tenantID, returnPath string) (providers.RedirectTarget, error) {
	if err := m.authorize(ctx, ident, tenantID); err != nil {
		return providers.RedirectTarget{}, err
	}

	adapter, err := m.registry.Get(kind)
	if err != nil {
		return providers.RedirectTarget{}, errors.Wrap(err, "[Initiate] unknown provider")
	}

	encoded, err := m.codec.Encode(linkstate.State{
		TenantID:   tenantID,
		ReturnPath: returnPath,
		Nonce:      uuid.NewString(),
	})
	if err != nil {
		return providers.RedirectTarget{}, errors.Wrap(err, "[Initiate] failed to encode state")
	}

	target, err := adapter.BuildAuthorizationTarget(ctx, providers.AuthorizationRequest{
		EncodedState: encoded,
		CallbackURL:  m.CallbackURL(kind),
		SubjectID:    ident.SubjectID,
	})
	if err != nil {
		return providers.RedirectTarget{}, errors.Wrap(err, "[Initiate] provider handoff failed")
	}
	return target, nil
}

// Complete finishes a link attempt from the provider's response. The
// returned error is non-nil only for misconfiguration or unknown
// providers; every other ending is expressed through the Outcome so
// the browser can be redirected with a categorised result.
func (m *Manager) Complete(ctx context.Context, ident identity.Identity, kind providers.Kind, req CompleteRequest) (Outcome, error) {
	adapter, err := m.registry.Get(kind)
	if err != nil {
		return Outcome{}, errors.Wrap(err, "[Complete] unknown provider")
	}

	state, stateErr := m.codec.Decode(req.EncodedState)
	returnPath := linkstate.DefaultReturnPath
	if stateErr == nil {
		returnPath = state.ReturnPath
	}

	// A deliberate widget exit ends the attempt without error; there
	// is nothing to exchange and nothing to report as failed.
	if req.Cancelled {
		return Outcome{Status: StatusCancelled, RedirectURL: returnPath}, nil
	}
	// Any provider-reported error code ends the attempt before the
	// exchange, including a consent denial on the redirect flow.
	if req.ProviderErrorCode != "" {
		return m.failed(returnPath, ReasonProviderError), nil
	}

	if stateErr != nil {
		return m.failed(returnPath, ReasonInvalidState), nil
	}
	// A genuine proof does not rescue an attempt whose tenant the
	// caller cannot act for.
	if err := m.authorize(ctx, ident, state.TenantID); err != nil {
		return m.failed(returnPath, ReasonInvalidState), nil
	}

	cred, err := adapter.Exchange(ctx, providers.Proof{
		Code:        req.Code,
		PublicToken: req.PublicToken,
		CallbackURL: m.CallbackURL(kind),
		Scope:       req.Scope,
		AccountMeta: req.AccountMeta,
	})
	if err != nil {
		if svcerrors.Is(err, svcerrors.ErrProviderMisconfigured) {
			return Outcome{}, err
		}
		return m.failed(returnPath, exchangeReason(err)), nil
	}

	cred.TenantID = state.TenantID
	cred.Provider = kind.String()
	cred.LinkedAt = m.nowTime().UTC()
	if err := m.repos.Credentials.Upsert(ctx, cred); err != nil {
		return m.failed(returnPath, ReasonPersistError), nil
	}

	return Outcome{
		Status:       StatusComplete,
		RedirectURL:  returnPath + "?" + kind.String() + "=connected",
		ConnectionID: state.TenantID + ":" + kind.String(),
		TenantID:     state.TenantID,
	}, nil
}

// Connections lists a tenant's linked providers. Tokens are stripped;
// only display metadata leaves the service.
func (m *Manager) Connections(ctx context.Context, ident identity.Identity, tenantID string) ([]*credentials.ExternalCredential, error) {
	if err := m.authorize(ctx, ident, tenantID); err != nil {
		return nil, err
	}
	creds, err := m.repos.Credentials.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, errors.Wrap(err, "[Connections] list failed")
	}
	for _, cred := range creds {
		cred.AccessToken = ""
		cred.RefreshToken = ""
	}
	return creds, nil
}

// Unlink removes a tenant's credential for the provider.
func (m *Manager) Unlink(ctx context.Context, ident identity.Identity, kind providers.Kind, tenantID string) error {
	if err := m.authorize(ctx, ident, tenantID); err != nil {
		return err
	}
	if err := m.repos.Credentials.Delete(ctx, tenantID, kind.String()); err != nil {
		if svcerrors.Is(err, svcerrors.ErrCredentialNotFound) {
			return err
		}
		return errors.Wrap(err, "[Unlink] delete failed")
	}
	return nil
}

// authorize checks the caller owns the tenant. An unknown tenant maps
// to the same error so callers cannot probe for tenant existence.
func (m *Manager) authorize(ctx context.Context, ident identity.Identity, tenantID string) error {
	if ident.SubjectID == "" {
		return svcerrors.ErrUnauthenticated
	}
	tenant, err := m.repos.Tenants.Get(ctx, tenantID)
	if err != nil {
		return svcerrors.Wrapf(svcerrors.ErrForbidden, "tenant %s: %v", tenantID, err)
	}
	if !tenant.HasOwner(ident.SubjectID) {
		return svcerrors.Wrapf(svcerrors.ErrForbidden, "subject %s does not own tenant %s", ident.SubjectID, tenantID)
	}
	return nil
}

func (m *Manager) failed(returnPath string, reason Reason) Outcome {
	return Outcome{
		Status:      StatusFailed,
		Reason:      reason,
		RedirectURL: returnPath + "?error=" + url.QueryEscape(string(reason)),
	}
}

func exchangeReason(err error) Reason {
	switch {
	case svcerrors.Is(err, svcerrors.ErrProviderRejected):
		return ReasonProviderRejected
	case svcerrors.Is(err, svcerrors.ErrProviderUnavailable):
		return ReasonProviderUnavailable
	default:
		return ReasonProviderError
	}
}
