// Package providers defines the adapter contract each external provider
// implements, plus the registry the linking flow resolves adapters from.
package providers

import (
	"context"

	"github.com/paperledger/link-service/credentials"
)

// Kind identifies a provider integration.
type Kind string

const (
	KindDrive    Kind = "drive"
	KindBankfeed Kind = "bankfeed"
)

func (k Kind) String() string { return string(k) }

// ParseKind validates a path segment against the known provider kinds.
func ParseKind(s string) (Kind, bool) {
	switch Kind(s) {
	case KindDrive, KindBankfeed:
		return Kind(s), true
	default:
		return "", false
	}
}

// TargetMode says how the client should carry the user to the provider.
type TargetMode string

const (
	// TargetRedirect carries the user by full-page redirect to URL.
	TargetRedirect TargetMode = "redirect"
	// TargetWidget hands the client an init payload for an embedded widget.
	TargetWidget TargetMode = "widget"
)

// RedirectTarget is the handoff produced when a link attempt starts.
type RedirectTarget struct {
	Mode TargetMode

	// URL is set when Mode is TargetRedirect.
	URL string

	// WidgetInit is set when Mode is TargetWidget. Keys are
	// provider-specific, e.g. {"link_token": "..."} for bankfeed.
	WidgetInit map[string]string
}

// AuthorizationRequest carries the inputs for a new link attempt
// handoff.
type AuthorizationRequest struct {
	// EncodedState is the signed attempt state; it must survive the
	// round trip to the provider untouched.
	EncodedState string

	// CallbackURL is the redirect target registered with the provider.
	CallbackURL string

	// SubjectID identifies the verified user. Widget-style providers
	// scope their short-lived tokens to it.
	SubjectID string
}

// Proof is the single-use artifact the provider hands back after the
// user consents. Exactly one of Code or PublicToken is populated.
type Proof struct {
	// Code is the authorization code for redirect-style providers.
	Code string

	// PublicToken is the short-lived token for widget-style providers.
	PublicToken string

	// CallbackURL is the redirect URI the authorization target was
	// built with; code exchanges must echo it to the provider.
	CallbackURL string

	// Scope carries the granted scopes when the provider reports them.
	Scope []string

	// AccountMeta carries provider-specific selection metadata from the
	// client, e.g. the institution chosen in a widget.
	AccountMeta map[string]string
}

// Adapter hides a provider's wire protocol behind a common shape.
type Adapter interface {
	Kind() Kind

	// BuildAuthorizationTarget produces the handoff for a new link
	// attempt.
	BuildAuthorizationTarget(ctx context.Context, req AuthorizationRequest) (RedirectTarget, error)

	// Exchange trades a single-use proof for durable credentials. The
	// returned credential has no tenant assigned; the caller stamps it.
	Exchange(ctx context.Context, proof Proof) (*credentials.ExternalCredential, error)
}
