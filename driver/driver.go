// Package driver adapts the raw material of a provider round trip,
// callback query strings and widget event payloads, into link attempt
// completions. It also keeps a small in-memory ledger of attempts in
// flight so a superseded attempt is visible in the logs.
package driver

import (
	"context"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/paperledger/link-service/identity"
	"github.com/paperledger/link-service/linkevents"
	"github.com/paperledger/link-service/linking"
	"github.com/paperledger/link-service/providers"
)

type attemptKey struct {
	tenantID string
	kind     providers.Kind
}

type attempt struct {
	startedAt time.Time
}

// Driver sits between the HTTP surface and the linking Manager.
type Driver struct {
	manager  *linking.Manager
	attempts map[attemptKey]attempt
	lock     sync.Mutex
	nowTime  func() time.Time
}

type Option func(*Driver)

func WithNowTime(now func() time.Time) Option {
	return func(d *Driver) { d.nowTime = now }
}

func New(manager *linking.Manager, options ...Option) (*Driver, error) {
	if manager == nil {
		return nil, errors.New("[driver.New] manager is required")
	}
	d := &Driver{
		manager:  manager,
		attempts: make(map[attemptKey]attempt),
		nowTime:  time.Now,
	}
	for _, option := range options {
		option(d)
	}
	return d, nil
}

// Begin starts a link attempt. A second Begin for the same tenant and
// provider supersedes the first; only the newest state string will
// complete, since older ones are simply never presented again.
func (d *Driver) Begin(ctx context.Context, ident identity.Identity, kind providers.Kind, tenantID, returnPath string) (providers.RedirectTarget, error) {
	target, err := d.manager.Initiate(ctx, ident, kind, tenantID, returnPath)
	if err != nil {
		return providers.RedirectTarget{}, err
	}

	key := attemptKey{tenantID: tenantID, kind: kind}
	d.lock.Lock()
	if prior, ok := d.attempts[key]; ok {
		log.Info().
			Str("tenantID", tenantID).
			Str("provider", kind.String()).
			Time("supersededStart", prior.startedAt).
			Msg("new link attempt supersedes one in flight")
	}
	d.attempts[key] = attempt{startedAt: d.nowTime()}
	d.lock.Unlock()

	return target, nil
}

// Callback completes a redirect-style attempt from the provider's
// callback query string.
func (d *Driver) Callback(ctx context.Context, ident identity.Identity, kind providers.Kind, query url.Values) (linking.Outcome, error) {
	req := linking.CompleteRequest{
		EncodedState:      query.Get("state"),
		Code:              query.Get("code"),
		ProviderErrorCode: query.Get("error"),
	}
	if granted := query.Get("scope"); granted != "" {
		req.Scope = strings.Fields(granted)
	}
	return d.complete(ctx, ident, kind, req)
}

// WidgetEvent completes a widget-style attempt from the event payload
// the client posts after the widget closes.
func (d *Driver) WidgetEvent(ctx context.Context, ident identity.Identity, kind providers.Kind, body io.Reader) (linking.Outcome, error) {
	ev, err := linkevents.ParseEvent(body)
	if err != nil {
		return linking.Outcome{}, err
	}

	req := linking.CompleteRequest{EncodedState: ev.State}
	switch ev.Outcome {
	case linkevents.OutcomeSuccess:
		req.PublicToken = ev.PublicToken
		req.AccountMeta = ev.Metadata
	case linkevents.OutcomeError:
		req.ProviderErrorCode = ev.ErrorCode
	case linkevents.OutcomeCancelled:
		req.Cancelled = true
	}
	return d.complete(ctx, ident, kind, req)
}

func (d *Driver) complete(ctx context.Context, ident identity.Identity, kind providers.Kind, req linking.CompleteRequest) (linking.Outcome, error) {
	outcome, err := d.manager.Complete(ctx, ident, kind, req)
	if err != nil {
		return linking.Outcome{}, err
	}

	if outcome.Status == linking.StatusComplete {
		d.lock.Lock()
		delete(d.attempts, attemptKey{tenantID: outcome.TenantID, kind: kind})
		d.lock.Unlock()
	}
	return outcome, nil
}

// InFlight reports whether an attempt for the tenant and provider has
// started but not completed.
func (d *Driver) InFlight(tenantID string, kind providers.Kind) bool {
	d.lock.Lock()
	defer d.lock.Unlock()
	_, ok := d.attempts[attemptKey{tenantID: tenantID, kind: kind}]
	return ok
}
