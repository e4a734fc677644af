package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	svcerrors "github.com/paperledger/link-service/internal/errors"
	"github.com/paperledger/link-service/internal/utils"
	"github.com/paperledger/link-service/linkevents"
	"github.com/paperledger/link-service/linking"
	"github.com/paperledger/link-service/providers"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}

func (s *Server) providerKind(w http.ResponseWriter, r *http.Request) (providers.Kind, bool) {
	kind, ok := providers.ParseKind(r.PathValue("provider"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{
			"error":     "unknown_provider",
			"supported": s.linker.Providers(),
		})
		return "", false
	}
	return kind, true
}

// PreflightHandler answers OPTIONS requests that carry no Origin
// header. Cross-origin preflights are handled by CorsMiddleware before
// reaching here.
func (s *Server) PreflightHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}
}

// HealthHandler reports process liveness.
func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// LinkStartHandler begins a link attempt. Redirect providers answer
// with a 303 to the provider's consent page; widget providers answer
// with the widget init payload.
func (s *Server) LinkStartHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		kind, ok := s.providerKind(w, r)
		if !ok {
			return
		}

		tenantID := r.URL.Query().Get("tenantId")
		if tenantID == "" {
			writeError(w, http.StatusBadRequest, "missing_tenant_id")
			return
		}
		returnPath := r.URL.Query().Get("returnPath")

		target, err := s.driver.Begin(r.Context(), identityFromContext(r.Context()), kind, tenantID, returnPath)
		if err != nil {
			s.writeStartError(w, kind, err)
			return
		}

		switch target.Mode {
		case providers.TargetWidget:
			writeJSON(w, http.StatusOK, map[string]any{
				"mode":   "widget",
				"widget": target.WidgetInit,
			})
		default:
			http.Redirect(w, r, target.URL, http.StatusSeeOther)
		}
	}
}

func (s *Server) writeStartError(w http.ResponseWriter, kind providers.Kind, err error) {
	switch {
	case svcerrors.Is(err, svcerrors.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	case svcerrors.Is(err, svcerrors.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, "unauthenticated")
	case svcerrors.Is(err, svcerrors.ErrNotFound):
		writeError(w, http.StatusNotFound, "unknown_provider")
	case svcerrors.Is(err, svcerrors.ErrProviderMisconfigured):
		log.Error().Err(err).Str("provider", kind.String()).Msg("provider misconfigured")
		writeError(w, http.StatusInternalServerError, "provider_misconfigured")
	case svcerrors.Is(err, svcerrors.ErrProviderUnavailable):
		writeError(w, http.StatusBadGateway, "provider_unavailable")
	default:
		log.Error().Err(err).Str("provider", kind.String()).Msg("link start failed")
		writeError(w, http.StatusInternalServerError, "internal_error")
	}
}

// LinkCallbackHandler finishes a redirect-style attempt. Whatever the
// provider sent back, the browser leaves with a 303; only a
// misconfigured provider is allowed to be loud.
func (s *Server) LinkCallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		kind, ok := s.providerKind(w, r)
		if !ok {
			return
		}

		outcome, err := s.driver.Callback(r.Context(), identityFromContext(r.Context()), kind, r.URL.Query())
		if err != nil {
			if svcerrors.Is(err, svcerrors.ErrProviderMisconfigured) {
				log.Error().Err(err).Str("provider", kind.String()).Msg("provider misconfigured")
				writeError(w, http.StatusInternalServerError, "provider_misconfigured")
				return
			}
			log.Error().Err(err).Str("provider", kind.String()).Msg("callback failed")
			writeError(w, http.StatusInternalServerError, "internal_error")
			return
		}

		s.logOutcome(kind, outcome)
		http.Redirect(w, r, outcome.RedirectURL, http.StatusSeeOther)
	}
}

// LinkExchangeHandler finishes a widget-style attempt from the event
// payload the client posts after the widget closes.
func (s *Server) LinkExchangeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		kind, ok := s.providerKind(w, r)
		if !ok {
			return
		}

		outcome, err := s.driver.WidgetEvent(r.Context(), identityFromContext(r.Context()), kind, r.Body)
		if err != nil {
			switch {
			case svcerrors.Is(err, linkevents.ErrMalformed), svcerrors.Is(err, linkevents.ErrUnknownOutcome):
				writeError(w, http.StatusBadRequest, "malformed_event")
			case svcerrors.Is(err, svcerrors.ErrProviderMisconfigured):
				log.Error().Err(err).Str("provider", kind.String()).Msg("provider misconfigured")
				writeError(w, http.StatusInternalServerError, "provider_misconfigured")
			default:
				log.Error().Err(err).Str("provider", kind.String()).Msg("exchange failed")
				writeError(w, http.StatusInternalServerError, "internal_error")
			}
			return
		}

		s.logOutcome(kind, outcome)
		switch outcome.Status {
		case linking.StatusComplete:
			writeJSON(w, http.StatusOK, map[string]string{
				"connection_id": outcome.ConnectionID,
				"redirect_url":  outcome.RedirectURL,
			})
		case linking.StatusCancelled:
			writeJSON(w, http.StatusOK, map[string]string{
				"status":       "cancelled",
				"redirect_url": outcome.RedirectURL,
			})
		default:
			writeJSON(w, reasonStatusCode(outcome.Reason), map[string]string{
				"error":        string(outcome.Reason),
				"redirect_url": outcome.RedirectURL,
			})
		}
	}
}

func reasonStatusCode(reason linking.Reason) int {
	switch reason {
	case linking.ReasonProviderUnavailable:
		return http.StatusBadGateway
	case linking.ReasonPersistError:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// LinkStatusHandler reports whether the tenant has a live connection
// for the provider. Tokens never appear in the response.
func (s *Server) LinkStatusHandler() http.HandlerFunc {
	type statusResponse struct {
		Linked          bool       `json:"linked"`
		AccountLabel    string     `json:"account_label,omitempty"`
		InstitutionName string     `json:"institution_name,omitempty"`
		LinkedAt        *time.Time `json:"linked_at,omitempty"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		kind, ok := s.providerKind(w, r)
		if !ok {
			return
		}
		tenantID := r.URL.Query().Get("tenantId")
		if tenantID == "" {
			writeError(w, http.StatusBadRequest, "missing_tenant_id")
			return
		}

		creds, err := s.linker.Connections(r.Context(), identityFromContext(r.Context()), tenantID)
		if err != nil {
			if svcerrors.Is(err, svcerrors.ErrForbidden) {
				writeError(w, http.StatusForbidden, "forbidden")
				return
			}
			log.Error().Err(err).Str("tenantID", tenantID).Msg("status lookup failed")
			writeError(w, http.StatusInternalServerError, "internal_error")
			return
		}

		for _, cred := range creds {
			if cred.Provider != kind.String() {
				continue
			}
			writeJSON(w, http.StatusOK, statusResponse{
				Linked:          true,
				AccountLabel:    cred.AccountLabel,
				InstitutionName: cred.InstitutionName,
				LinkedAt:        utils.Ptr(cred.LinkedAt),
			})
			return
		}
		writeJSON(w, http.StatusOK, statusResponse{Linked: false})
	}
}

// LinkUnlinkHandler removes a tenant's connection to the provider.
func (s *Server) LinkUnlinkHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		kind, ok := s.providerKind(w, r)
		if !ok {
			return
		}
		tenantID := r.URL.Query().Get("tenantId")
		if tenantID == "" {
			writeError(w, http.StatusBadRequest, "missing_tenant_id")
			return
		}

		err := s.linker.Unlink(r.Context(), identityFromContext(r.Context()), kind, tenantID)
		switch {
		case err == nil:
			w.WriteHeader(http.StatusNoContent)
		case svcerrors.Is(err, svcerrors.ErrForbidden):
			writeError(w, http.StatusForbidden, "forbidden")
		case svcerrors.Is(err, svcerrors.ErrCredentialNotFound):
			writeError(w, http.StatusNotFound, "not_linked")
		default:
			log.Error().Err(err).Str("tenantID", tenantID).Msg("unlink failed")
			writeError(w, http.StatusInternalServerError, "internal_error")
		}
	}
}

func (s *Server) logOutcome(kind providers.Kind, outcome linking.Outcome) {
	event := log.Info()
	if outcome.Status == linking.StatusFailed {
		event = log.Warn().Str("reason", string(outcome.Reason))
	}
	event.
		Str("provider", kind.String()).
		Str("status", string(outcome.Status)).
		Msg("link attempt finished")
}
