package server_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/paperledger/link-service/credentials"
	credentialrepofake "github.com/paperledger/link-service/credentials/repofake"
	"github.com/paperledger/link-service/driver"
	"github.com/paperledger/link-service/identity"
	"github.com/paperledger/link-service/internal/config"
	svcerrors "github.com/paperledger/link-service/internal/errors"
	"github.com/paperledger/link-service/linking"
	"github.com/paperledger/link-service/linkstate"
	"github.com/paperledger/link-service/providers"
	"github.com/paperledger/link-service/server"
	"github.com/paperledger/link-service/tenants"
	tenantrepofakes "github.com/paperledger/link-service/tenants/repofakes"
)

const (
	testTenantID = "tenant-1"
	ownerToken   = "owner-token"
)

// tokenTableVerifier maps fixed bearer tokens to identities.
type tokenTableVerifier struct {
	identities map[string]identity.Identity
}

func (v *tokenTableVerifier) Verify(_ context.Context, token string) (identity.Identity, error) {
	ident, ok := v.identities[token]
	if !ok {
		return identity.Identity{}, svcerrors.ErrUnauthenticated
	}
	return ident, nil
}

// redirectAdapter mimics an authorization-code provider.
type redirectAdapter struct {
	kind        providers.Kind
	lastState   string
	exchangeErr error
}

func (a *redirectAdapter) Kind() providers.Kind { return a.kind }

func (a *redirectAdapter) BuildAuthorizationTarget(_ context.Context, req providers.AuthorizationRequest) (providers.RedirectTarget, error) {
	a.lastState = req.EncodedState
	return providers.RedirectTarget{
		Mode: providers.TargetRedirect,
		URL:  "https://provider.test/authorize?state=" + req.EncodedState,
	}, nil
}

func (a *redirectAdapter) Exchange(_ context.Context, proof providers.Proof) (*credentials.ExternalCredential, error) {
	if a.exchangeErr != nil {
		return nil, a.exchangeErr
	}
	return &credentials.ExternalCredential{
		Provider:     a.kind.String(),
		AccessToken:  "access-" + proof.Code,
		AccountLabel: "books@acme.test",
	}, nil
}

// widgetAdapter mimics a token-exchange provider.
type widgetAdapter struct {
	lastState string
}

func (a *widgetAdapter) Kind() providers.Kind { return providers.KindBankfeed }

func (a *widgetAdapter) BuildAuthorizationTarget(_ context.Context, req providers.AuthorizationRequest) (providers.RedirectTarget, error) {
	a.lastState = req.EncodedState
	return providers.RedirectTarget{
		Mode:       providers.TargetWidget,
		WidgetInit: map[string]string{"link_token": "link-token-1", "state": req.EncodedState},
	}, nil
}

func (a *widgetAdapter) Exchange(_ context.Context, proof providers.Proof) (*credentials.ExternalCredential, error) {
	return &credentials.ExternalCredential{
		Provider:        "bankfeed",
		AccessToken:     "access-" + proof.PublicToken,
		ItemID:          "item-1",
		InstitutionName: proof.AccountMeta["institution_name"],
	}, nil
}

type fixture struct {
	server *server.Server
	drive  *redirectAdapter
	widget *widgetAdapter
	creds  *credentialrepofake.FakeCredentialRepo
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	tenantRepo := tenantrepofakes.NewFakeTenantRepo()
	require.NoError(t, tenantRepo.Upsert(context.Background(), &tenants.Tenant{
		ID:            testTenantID,
		Name:          "Acme Books",
		OwnerSubjects: []string{"subject-owner"},
	}))
	credRepo := credentialrepofake.NewFakeCredentialRepo()

	driveAdapter := &redirectAdapter{kind: providers.KindDrive}
	widget := &widgetAdapter{}

	codec, err := linkstate.NewCodec("test-state-secret")
	require.NoError(t, err)

	repos := linking.Repos{Tenants: tenantRepo, Credentials: credRepo}
	manager, err := linking.NewManager(repos, providers.NewRegistry(driveAdapter, widget), codec, "https://link.paperledger.io")
	require.NoError(t, err)

	d, err := driver.New(manager)
	require.NoError(t, err)

	verifier := &tokenTableVerifier{identities: map[string]identity.Identity{
		ownerToken: {SubjectID: "subject-owner", Email: "owner@acme.test"},
	}}

	srv, err := server.New(config.New(), verifier, manager, d, repos)
	require.NoError(t, err)

	return &fixture{server: srv, drive: driveAdapter, widget: widget, creds: credRepo}
}

func (f *fixture) do(t *testing.T, method, target, token string, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/healthz", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestStartRequiresAuth(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/link/drive/start?tenantId="+testTenantID, "", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodGet, "/link/drive/start?tenantId="+testTenantID, "bogus-token", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestStartUnknownProvider(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/link/payroll/start?tenantId="+testTenantID, ownerToken, "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	var body struct {
		Error     string   `json:"error"`
		Supported []string `json:"supported"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "unknown_provider", body.Error)
	require.Equal(t, []string{"bankfeed", "drive"}, body.Supported)
}

func TestStartDriveRedirects(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/link/drive/start?tenantId="+testTenantID+"&returnPath=/settings", ownerToken, "")
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Contains(t, rec.Header().Get("Location"), "https://provider.test/authorize?state=")
}

func TestStartBankfeedReturnsWidgetInit(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/link/bankfeed/start?tenantId="+testTenantID, ownerToken, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Mode   string            `json:"mode"`
		Widget map[string]string `json:"widget"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "widget", body.Mode)
	require.Equal(t, "link-token-1", body.Widget["link_token"])
	require.NotEmpty(t, body.Widget["state"])
}

func TestStartForbiddenTenant(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/link/drive/start?tenantId=other-tenant", ownerToken, "")
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCallbackHappyPath(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/link/drive/start?tenantId="+testTenantID+"&returnPath=/settings", ownerToken, "")
	require.Equal(t, http.StatusSeeOther, rec.Code)

	rec = f.do(t, http.MethodGet, "/link/drive/callback?code=auth-code-1&state="+f.drive.lastState, ownerToken, "")
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/settings?drive=connected", rec.Header().Get("Location"))

	cred, err := f.creds.Get(context.Background(), testTenantID, "drive")
	require.NoError(t, err)
	require.Equal(t, "access-auth-code-1", cred.AccessToken)
}

func TestCallbackWithoutIdentityRedirectsWithError(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/link/drive/start?tenantId="+testTenantID+"&returnPath=/settings", ownerToken, "")
	require.Equal(t, http.StatusSeeOther, rec.Code)

	// No bearer on the callback: still a redirect, never a 401.
	rec = f.do(t, http.MethodGet, "/link/drive/callback?code=auth-code-1&state="+f.drive.lastState, "", "")
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/settings?error=invalid_state", rec.Header().Get("Location"))
}

func TestCallbackProviderErrorRedirects(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/link/drive/start?tenantId="+testTenantID+"&returnPath=/settings", ownerToken, "")
	require.Equal(t, http.StatusSeeOther, rec.Code)

	rec = f.do(t, http.MethodGet, "/link/drive/callback?error=server_error&state="+f.drive.lastState, ownerToken, "")
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/settings?error=provider_error", rec.Header().Get("Location"))
}

func TestCallbackConsentDeniedRedirects(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/link/drive/start?tenantId="+testTenantID+"&returnPath=/settings", ownerToken, "")
	require.Equal(t, http.StatusSeeOther, rec.Code)

	rec = f.do(t, http.MethodGet, "/link/drive/callback?error=access_denied&state="+f.drive.lastState, ownerToken, "")
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/settings?error=provider_error", rec.Header().Get("Location"))
}

func TestCallbackMisconfiguredProviderIsLoud(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/link/drive/start?tenantId="+testTenantID, ownerToken, "")
	require.Equal(t, http.StatusSeeOther, rec.Code)

	f.drive.exchangeErr = svcerrors.Wrapf(svcerrors.ErrProviderMisconfigured, "client secret missing")
	rec = f.do(t, http.MethodGet, "/link/drive/callback?code=auth-code-1&state="+f.drive.lastState, ownerToken, "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Contains(t, rec.Body.String(), "provider_misconfigured")
}

func TestExchangeHappyPath(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/link/bankfeed/start?tenantId="+testTenantID+"&returnPath=/banking", ownerToken, "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := `{
		"event": "success",
		"state": "` + f.widget.lastState + `",
		"public_token": "public-token-1",
		"metadata": {"institution_name": "First National"}
	}`
	rec = f.do(t, http.MethodPost, "/link/bankfeed/exchange", ownerToken, body)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, testTenantID+":bankfeed", resp["connection_id"])
	require.Equal(t, "/banking?bankfeed=connected", resp["redirect_url"])
}

func TestExchangeMalformedEvent(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/link/bankfeed/exchange", ownerToken, `{"event":"shrug"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "malformed_event")
}

func TestExchangeCancelled(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/link/bankfeed/start?tenantId="+testTenantID, ownerToken, "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := `{"event":"cancelled","state":"` + f.widget.lastState + `"}`
	rec = f.do(t, http.MethodPost, "/link/bankfeed/exchange", ownerToken, body)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "cancelled")

	_, err := f.creds.Get(context.Background(), testTenantID, "bankfeed")
	require.ErrorIs(t, err, svcerrors.ErrCredentialNotFound)
}

func TestStatusAndUnlink(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/link/drive/status?tenantId="+testTenantID, ownerToken, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"linked":false`)

	rec = f.do(t, http.MethodGet, "/link/drive/start?tenantId="+testTenantID, ownerToken, "")
	require.Equal(t, http.StatusSeeOther, rec.Code)
	rec = f.do(t, http.MethodGet, "/link/drive/callback?code=auth-code-1&state="+f.drive.lastState, ownerToken, "")
	require.Equal(t, http.StatusSeeOther, rec.Code)

	rec = f.do(t, http.MethodGet, "/link/drive/status?tenantId="+testTenantID, ownerToken, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"linked":true`)
	require.Contains(t, rec.Body.String(), "books@acme.test")
	require.NotContains(t, rec.Body.String(), "access-auth-code-1")

	rec = f.do(t, http.MethodDelete, "/link/drive?tenantId="+testTenantID, ownerToken, "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(t, http.MethodDelete, "/link/drive?tenantId="+testTenantID, ownerToken, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCorsHeadersForAllowedOrigin(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "app.paperledger.io")
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "app.paperledger.io", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCorsPreflightForExchange(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodOptions, "/link/bankfeed/exchange", nil)
	req.Header.Set("Origin", "app.paperledger.io")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "app.paperledger.io", rec.Header().Get("Access-Control-Allow-Origin"))
	require.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)

	// Disallowed origins get no CORS headers; the browser blocks the
	// actual request.
	req = httptest.NewRequest(http.MethodOptions, "/link/bankfeed/exchange", nil)
	req.Header.Set("Origin", "https://evil.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec = httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
