// Package drive links the document-storage provider through the
// standard authorization-code flow.
package drive

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	oauth2api "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"

	"github.com/paperledger/link-service/credentials"
	svcerrors "github.com/paperledger/link-service/internal/errors"
	"github.com/paperledger/link-service/providers"
)

var scopes = []string{
	"https://www.googleapis.com/auth/drive.file",
	"https://www.googleapis.com/auth/userinfo.email",
}

type Adapter struct {
	clientID     string
	clientSecret string
	endpoint     oauth2.Endpoint
	userinfoBase string
	httpClient   *http.Client
	nowTime      func() time.Time
}

type Option func(*Adapter)

// WithEndpoint overrides the provider endpoints, used in tests.
func WithEndpoint(ep oauth2.Endpoint) Option {
	return func(a *Adapter) { a.endpoint = ep }
}

// WithUserinfoEndpoint overrides the userinfo API base URL.
func WithUserinfoEndpoint(base string) Option {
	return func(a *Adapter) { a.userinfoBase = base }
}

func WithHTTPClient(c *http.Client) Option {
	return func(a *Adapter) { a.httpClient = c }
}

func WithNowTime(now func() time.Time) Option {
	return func(a *Adapter) { a.nowTime = now }
}

func New(clientID, clientSecret string, options ...Option) *Adapter {
	a := &Adapter{
		clientID:     clientID,
		clientSecret: clientSecret,
		endpoint:     google.Endpoint,
		nowTime:      time.Now,
	}
	for _, option := range options {
		option(a)
	}
	return a
}

func (a *Adapter) Kind() providers.Kind { return providers.KindDrive }

func (a *Adapter) config(callbackURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     a.clientID,
		ClientSecret: a.clientSecret,
		Endpoint:     a.endpoint,
		RedirectURL:  callbackURL,
		Scopes:       scopes,
	}
}

func (a *Adapter) checkConfigured() error {
	if a.clientID == "" || a.clientSecret == "" {
		return svcerrors.Wrapf(svcerrors.ErrProviderMisconfigured, "drive client credentials not set")
	}
	return nil
}

func (a *Adapter) BuildAuthorizationTarget(_ context.Context, req providers.AuthorizationRequest) (providers.RedirectTarget, error) {
	if err := a.checkConfigured(); err != nil {
		return providers.RedirectTarget{}, err
	}
	url := a.config(req.CallbackURL).AuthCodeURL(req.EncodedState, oauth2.AccessTypeOffline)
	return providers.RedirectTarget{Mode: providers.TargetRedirect, URL: url}, nil
}

func (a *Adapter) Exchange(ctx context.Context, proof providers.Proof) (*credentials.ExternalCredential, error) {
	if err := a.checkConfigured(); err != nil {
		return nil, err
	}
	if proof.Code == "" {
		return nil, svcerrors.Wrapf(svcerrors.ErrProviderRejected, "drive exchange requires an authorization code")
	}
	if a.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, a.httpClient)
	}

	cfg := a.config(proof.CallbackURL)
	token, err := cfg.Exchange(ctx, proof.Code)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if svcerrors.As(err, &retrieveErr) {
			if retrieveErr.Response != nil && retrieveErr.Response.StatusCode >= 500 {
				return nil, svcerrors.Wrapf(svcerrors.ErrProviderUnavailable, "drive token endpoint: %v", err)
			}
			// redirect_uri_mismatch and invalid_client mean the OAuth
			// client registration is wrong. That is an operator
			// problem, not a bad proof.
			switch retrieveErr.ErrorCode {
			case "redirect_uri_mismatch", "invalid_client":
				return nil, svcerrors.Wrapf(svcerrors.ErrProviderMisconfigured, "drive client registration: %v", err)
			}
			return nil, svcerrors.Wrapf(svcerrors.ErrProviderRejected, "drive rejected code: %v", err)
		}
		return nil, svcerrors.Wrapf(svcerrors.ErrProviderUnavailable, "drive token exchange: %v", err)
	}

	grantedScopes := scopes
	if len(proof.Scope) > 0 {
		grantedScopes = proof.Scope
	}
	cred := &credentials.ExternalCredential{
		Provider:     providers.KindDrive.String(),
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		Scope:        grantedScopes,
		LinkedAt:     a.nowTime().UTC(),
		AccountLabel: a.lookupAccountLabel(ctx, cfg, token),
	}
	return cred, nil
}

// lookupAccountLabel fetches the linked account's email for display.
// Failures leave the label blank rather than unwinding the exchange.
func (a *Adapter) lookupAccountLabel(ctx context.Context, cfg *oauth2.Config, token *oauth2.Token) string {
	opts := []option.ClientOption{option.WithTokenSource(cfg.TokenSource(ctx, token))}
	if a.userinfoBase != "" {
		opts = append(opts, option.WithEndpoint(a.userinfoBase))
	}
	svc, err := oauth2api.NewService(ctx, opts...)
	if err != nil {
		return ""
	}
	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return ""
	}
	return info.Email
}
