// Package bankfeed links the banking aggregator through its hosted
// widget and public-token exchange.
package bankfeed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/paperledger/link-service/credentials"
	svcerrors "github.com/paperledger/link-service/internal/errors"
	"github.com/paperledger/link-service/providers"
)

const apiVersion = "2024-01-10"

var environmentHosts = map[string]string{
	"sandbox":     "https://sandbox.bankfeed.com",
	"development": "https://development.bankfeed.com",
	"production":  "https://production.bankfeed.com",
}

type Adapter struct {
	clientID    string
	secret      string
	environment string
	baseURL     string
	httpClient  *http.Client
	nowTime     func() time.Time
}

type Option func(*Adapter)

func WithHTTPClient(c *http.Client) Option {
	return func(a *Adapter) { a.httpClient = c }
}

// WithBaseURL overrides the environment-derived API host, used in tests.
func WithBaseURL(baseURL string) Option {
	return func(a *Adapter) { a.baseURL = baseURL }
}

func WithNowTime(now func() time.Time) Option {
	return func(a *Adapter) { a.nowTime = now }
}

func New(clientID, secret, environment string, options ...Option) *Adapter {
	a := &Adapter{
		clientID:    clientID,
		secret:      secret,
		environment: environment,
		baseURL:     environmentHosts[environment],
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		nowTime:     time.Now,
	}
	for _, option := range options {
		option(a)
	}
	return a
}

func (a *Adapter) Kind() providers.Kind { return providers.KindBankfeed }

func (a *Adapter) checkConfigured() error {
	if a.clientID == "" || a.secret == "" {
		return svcerrors.Wrapf(svcerrors.ErrProviderMisconfigured, "bankfeed client credentials not set")
	}
	if a.baseURL == "" {
		return svcerrors.Wrapf(svcerrors.ErrProviderMisconfigured, "unknown bankfeed environment %q", a.environment)
	}
	return nil
}

type linkTokenUser struct {
	ClientUserID string `json:"client_user_id"`
}

type linkTokenRequest struct {
	ClientID     string        `json:"client_id"`
	Secret       string        `json:"secret"`
	ClientName   string        `json:"client_name"`
	Language     string        `json:"language"`
	CountryCodes []string      `json:"country_codes"`
	Products     []string      `json:"products"`
	User         linkTokenUser `json:"user"`
	State        string        `json:"state"`
	RedirectURI  string        `json:"redirect_uri,omitempty"`
}

type linkTokenResponse struct {
	LinkToken  string `json:"link_token"`
	Expiration string `json:"expiration"`
}

// BuildAuthorizationTarget creates a short-lived widget token scoped
// to the verified user. The encoded state rides along and comes back
// with the widget's proof.
func (a *Adapter) BuildAuthorizationTarget(ctx context.Context, authReq providers.AuthorizationRequest) (providers.RedirectTarget, error) {
	if err := a.checkConfigured(); err != nil {
		return providers.RedirectTarget{}, err
	}

	req := linkTokenRequest{
		ClientID:     a.clientID,
		Secret:       a.secret,
		ClientName:   "Paperledger",
		Language:     "en",
		CountryCodes: []string{"US", "GB"},
		Products:     []string{"transactions"},
		User:         linkTokenUser{ClientUserID: authReq.SubjectID},
		State:        authReq.EncodedState,
		RedirectURI:  authReq.CallbackURL,
	}
	var resp linkTokenResponse
	if err := a.post(ctx, "/link/token/create", req, &resp); err != nil {
		return providers.RedirectTarget{}, err
	}
	if resp.LinkToken == "" {
		return providers.RedirectTarget{}, svcerrors.Wrapf(svcerrors.ErrProviderError, "bankfeed returned an empty link token")
	}

	return providers.RedirectTarget{
		Mode: providers.TargetWidget,
		WidgetInit: map[string]string{
			"link_token": resp.LinkToken,
			"state":      authReq.EncodedState,
		},
	}, nil
}

type exchangeRequest struct {
	ClientID    string `json:"client_id"`
	Secret      string `json:"secret"`
	PublicToken string `json:"public_token"`
}

type exchangeResponse struct {
	AccessToken string `json:"access_token"`
	ItemID      string `json:"item_id"`
}

func (a *Adapter) Exchange(ctx context.Context, proof providers.Proof) (*credentials.ExternalCredential, error) {
	if err := a.checkConfigured(); err != nil {
		return nil, err
	}
	if proof.PublicToken == "" {
		return nil, svcerrors.Wrapf(svcerrors.ErrProviderRejected, "bankfeed exchange requires a public token")
	}

	req := exchangeRequest{
		ClientID:    a.clientID,
		Secret:      a.secret,
		PublicToken: proof.PublicToken,
	}
	var resp exchangeResponse
	if err := a.post(ctx, "/item/public_token/exchange", req, &resp); err != nil {
		return nil, err
	}
	if resp.AccessToken == "" || resp.ItemID == "" {
		return nil, svcerrors.Wrapf(svcerrors.ErrProviderError, "bankfeed exchange response missing token or item id")
	}

	return &credentials.ExternalCredential{
		Provider:        providers.KindBankfeed.String(),
		AccessToken:     resp.AccessToken,
		ItemID:          resp.ItemID,
		LinkedAt:        a.nowTime().UTC(),
		AccountLabel:    proof.AccountMeta["account_name"],
		InstitutionName: proof.AccountMeta["institution_name"],
	}, nil
}

type apiError struct {
	ErrorType    string `json:"error_type"`
	ErrorCode    string `json:"error_code"`
	ErrorMessage string `json:"error_message"`
}

func (a *Adapter) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return svcerrors.Wrapf(err, "encode bankfeed request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return svcerrors.Wrapf(err, "build bankfeed request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Bankfeed-Version", apiVersion)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return svcerrors.Wrapf(svcerrors.ErrProviderUnavailable, "bankfeed %s: %v", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return svcerrors.Wrapf(svcerrors.ErrProviderUnavailable, "read bankfeed response: %v", err)
	}

	switch {
	case resp.StatusCode >= 500:
		return svcerrors.Wrapf(svcerrors.ErrProviderUnavailable, "bankfeed %s returned %d", path, resp.StatusCode)
	case resp.StatusCode >= 400:
		var apiErr apiError
		detail := fmt.Sprintf("status %d", resp.StatusCode)
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.ErrorCode != "" {
			detail = apiErr.ErrorCode
		}
		return svcerrors.Wrapf(svcerrors.ErrProviderRejected, "bankfeed %s: %s", path, detail)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return svcerrors.Wrapf(svcerrors.ErrProviderError, "decode bankfeed response: %v", err)
	}
	return nil
}
