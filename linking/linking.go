// Package linking drives a tenant's connection to an external provider
// from the first redirect through credential persistence. The service
// keeps no per-attempt storage; everything an attempt needs to finish
// rides inside the signed state string.
package linking

// Status is the terminal state of a completed link attempt.
type Status string

const (
	StatusComplete  Status = "COMPLETE"
	StatusFailed    Status = "FAILED"
	StatusCancelled Status = "CANCELLED"
)

// Reason categorises why an attempt failed. It is safe to surface to
// the browser; provider payloads never leak through it.
type Reason string

const (
	ReasonInvalidState        Reason = "invalid_state"
	ReasonProviderError       Reason = "provider_error"
	ReasonProviderRejected    Reason = "provider_rejected"
	ReasonProviderUnavailable Reason = "provider_unavailable"
	ReasonPersistError        Reason = "persist_error"
)

// Outcome is the result of completing a link attempt. RedirectURL is
// always populated so the caller can send the browser somewhere
// sensible no matter how the attempt ended.
type Outcome struct {
	Status       Status
	Reason       Reason
	RedirectURL  string
	ConnectionID string

	// TenantID is set on COMPLETE so callers can key their own
	// bookkeeping without decomposing ConnectionID.
	TenantID string
}

// CompleteRequest carries everything the provider round trip produced.
type CompleteRequest struct {
	// EncodedState is the state string echoed back by the provider.
	EncodedState string

	// ProviderErrorCode is set when the provider reported an error
	// instead of a proof, e.g. "access_denied".
	ProviderErrorCode string

	// Cancelled is set when the user backed out of an embedded widget.
	Cancelled bool

	// Code is the authorization code from a redirect callback.
	Code string

	// PublicToken is the widget proof for token-exchange providers.
	PublicToken string

	// Scope lists the scopes the provider reports as granted.
	Scope []string

	// AccountMeta carries provider-specific selection metadata.
	AccountMeta map[string]string
}
