package driver_test

import (
	"context"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/paperledger/link-service/credentials"
	credentialrepofake "github.com/paperledger/link-service/credentials/repofake"
	"github.com/paperledger/link-service/driver"
	"github.com/paperledger/link-service/identity"
	"github.com/paperledger/link-service/linkevents"
	"github.com/paperledger/link-service/linking"
	"github.com/paperledger/link-service/linkstate"
	"github.com/paperledger/link-service/providers"
	"github.com/paperledger/link-service/tenants"
	tenantrepofakes "github.com/paperledger/link-service/tenants/repofakes"
)

const testTenantID = "tenant-1"

// widgetAdapter mimics a token-exchange provider.
type widgetAdapter struct {
	lastState string
}

func (w *widgetAdapter) Kind() providers.Kind { return providers.KindBankfeed }

func (w *widgetAdapter) BuildAuthorizationTarget(_ context.Context, req providers.AuthorizationRequest) (providers.RedirectTarget, error) {
	w.lastState = req.EncodedState
	return providers.RedirectTarget{
		Mode:       providers.TargetWidget,
		WidgetInit: map[string]string{"link_token": "link-token-1", "state": req.EncodedState},
	}, nil
}

func (w *widgetAdapter) Exchange(_ context.Context, proof providers.Proof) (*credentials.ExternalCredential, error) {
	return &credentials.ExternalCredential{
		Provider:        "bankfeed",
		AccessToken:     "access-" + proof.PublicToken,
		ItemID:          "item-1",
		InstitutionName: proof.AccountMeta["institution_name"],
	}, nil
}

func newDriver(t *testing.T) (*driver.Driver, *widgetAdapter, *credentialrepofake.FakeCredentialRepo) {
	t.Helper()

	tenantRepo := tenantrepofakes.NewFakeTenantRepo()
	require.NoError(t, tenantRepo.Upsert(context.Background(), &tenants.Tenant{
		ID:            testTenantID,
		Name:          "Acme Books",
		OwnerSubjects: []string{"subject-owner"},
	}))

	credRepo := credentialrepofake.NewFakeCredentialRepo()
	adapter := &widgetAdapter{}
	codec, err := linkstate.NewCodec("test-state-secret")
	require.NoError(t, err)

	manager, err := linking.NewManager(
		linking.Repos{Tenants: tenantRepo, Credentials: credRepo},
		providers.NewRegistry(adapter),
		codec,
		"https://link.paperledger.io",
	)
	require.NoError(t, err)

	d, err := driver.New(manager)
	require.NoError(t, err)
	return d, adapter, credRepo
}

func owner() identity.Identity {
	return identity.Identity{SubjectID: "subject-owner"}
}

func TestBeginTracksAttempt(t *testing.T) {
	d, _, _ := newDriver(t)

	require.False(t, d.InFlight(testTenantID, providers.KindBankfeed))

	target, err := d.Begin(context.Background(), owner(), providers.KindBankfeed, testTenantID, "/banking")
	require.NoError(t, err)
	require.Equal(t, providers.TargetWidget, target.Mode)
	require.Equal(t, "link-token-1", target.WidgetInit["link_token"])
	require.True(t, d.InFlight(testTenantID, providers.KindBankfeed))

	// A second begin supersedes rather than fails.
	_, err = d.Begin(context.Background(), owner(), providers.KindBankfeed, testTenantID, "/banking")
	require.NoError(t, err)
	require.True(t, d.InFlight(testTenantID, providers.KindBankfeed))
}

func TestWidgetEventSuccess(t *testing.T) {
	d, adapter, credRepo := newDriver(t)

	_, err := d.Begin(context.Background(), owner(), providers.KindBankfeed, testTenantID, "/banking")
	require.NoError(t, err)

	body := `{
		"event": "success",
		"state": "` + adapter.lastState + `",
		"public_token": "public-token-1",
		"metadata": {"institution_name": "First National"}
	}`
	outcome, err := d.WidgetEvent(context.Background(), owner(), providers.KindBankfeed, strings.NewReader(body))
	require.NoError(t, err)
	require.Equal(t, linking.StatusComplete, outcome.Status)
	require.Equal(t, "/banking?bankfeed=connected", outcome.RedirectURL)
	require.Equal(t, testTenantID, outcome.TenantID)
	require.False(t, d.InFlight(testTenantID, providers.KindBankfeed))

	cred, err := credRepo.Get(context.Background(), testTenantID, "bankfeed")
	require.NoError(t, err)
	require.Equal(t, "access-public-token-1", cred.AccessToken)
	require.Equal(t, "First National", cred.InstitutionName)
}

func TestWidgetEventCancelled(t *testing.T) {
	d, adapter, _ := newDriver(t)

	_, err := d.Begin(context.Background(), owner(), providers.KindBankfeed, testTenantID, "/banking")
	require.NoError(t, err)

	body := `{"event":"cancelled","state":"` + adapter.lastState + `"}`
	outcome, err := d.WidgetEvent(context.Background(), owner(), providers.KindBankfeed, strings.NewReader(body))
	require.NoError(t, err)
	require.Equal(t, linking.StatusCancelled, outcome.Status)
	require.Equal(t, "/banking", outcome.RedirectURL)
}

func TestWidgetEventMalformed(t *testing.T) {
	d, _, _ := newDriver(t)

	_, err := d.WidgetEvent(context.Background(), owner(), providers.KindBankfeed, strings.NewReader(`{"event":"shrug"}`))
	require.ErrorIs(t, err, linkevents.ErrUnknownOutcome)
}

func TestCallbackRoutesQuery(t *testing.T) {
	d, adapter, _ := newDriver(t)

	_, err := d.Begin(context.Background(), owner(), providers.KindBankfeed, testTenantID, "/banking")
	require.NoError(t, err)

	query := url.Values{}
	query.Set("state", adapter.lastState)
	query.Set("error", "access_denied")

	outcome, err := d.Callback(context.Background(), owner(), providers.KindBankfeed, query)
	require.NoError(t, err)
	require.Equal(t, linking.StatusFailed, outcome.Status)
	require.Equal(t, linking.ReasonProviderError, outcome.Reason)
}
