package restrepo_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/paperledger/link-service/internal/backend"
	svcerrors "github.com/paperledger/link-service/internal/errors"
	"github.com/paperledger/link-service/tenants/restrepo"
)

func TestGetForwardsContextBearer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer user-token", r.Header.Get("Authorization"))
		require.Equal(t, "/api/businesses/tenant-1", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"tenant-1","name":"Acme Books","owner_subjects":["subject-owner"]}`))
	}))
	defer srv.Close()

	repo := restrepo.New(backend.New(srv.URL), nil)

	ctx := backend.WithBearer(context.Background(), "user-token")
	tenant, err := repo.Get(ctx, "tenant-1")
	require.NoError(t, err)
	require.Equal(t, "Acme Books", tenant.Name)
	require.True(t, tenant.HasOwner("subject-owner"))
	require.False(t, tenant.HasOwner("someone-else"))
}

func TestGetNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer srv.Close()

	repo := restrepo.New(backend.New(srv.URL), nil)

	_, err := repo.Get(context.Background(), "missing")
	require.ErrorIs(t, err, svcerrors.ErrTenantNotFound)
}
