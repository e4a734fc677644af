package server

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/paperledger/link-service/tenants"
)

const (
	devTenantID     = "demo"
	devTenantName   = "Demo Books Ltd"
	devOwnerSubject = "dev-user"
)

// seedDevData provisions a demo tenant so the link flow can be driven
// end to end without the business backend. PROD never seeds.
func (s *Server) seedDevData(ctx context.Context) error {
	if s.env != "DEV" {
		return nil
	}

	if _, err := s.repos.Tenants.Get(ctx, devTenantID); err == nil {
		return nil
	}

	err := s.repos.Tenants.Upsert(ctx, &tenants.Tenant{
		ID:            devTenantID,
		Name:          devTenantName,
		OwnerSubjects: []string{devOwnerSubject},
	})
	if err != nil {
		return err
	}

	log.Info().
		Str("tenantID", devTenantID).
		Str("owner", devOwnerSubject).
		Msg("seeded demo tenant")
	return nil
}
