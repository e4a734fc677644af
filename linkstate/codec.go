// Package linkstate carries tenant context through a third party's redirect.
// The encoded string is the only continuity between initiate and callback;
// the server holds nothing in memory while the user is away.
package linkstate

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"

	svcerrors "github.com/paperledger/link-service/internal/errors"
)

// DefaultReturnPath is where the browser lands after linking when the
// caller did not ask for anything else.
const DefaultReturnPath = "/setup"

// State is the payload round-tripped through the provider redirect. It is
// not secret, only tamper-evident: a foreign or corrupted string must decode
// to an error, never to partial data.
type State struct {
	TenantID   string `json:"tenant_id"`
	ReturnPath string `json:"return_path"`
	Nonce      string `json:"nonce"`
}

var (
	ErrInvalid  = svcerrors.ErrInvalidState
	ErrEmptyKey = errors.New("state secret is required")
	ErrNoTenant = errors.New("state requires a tenant id")
)

// Codec encodes State values into a single URL-safe string and back.
// The wire format is base64url(JSON) + "." + base64url(HMAC-SHA256 tag).
type Codec struct {
	key []byte
}

func NewCodec(secret string) (*Codec, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, ErrEmptyKey
	}
	return &Codec{key: []byte(secret)}, nil
}

// Encode serialises the state. ReturnPath defaults to DefaultReturnPath.
func (c *Codec) Encode(s State) (string, error) {
	if s.TenantID == "" {
		return "", ErrNoTenant
	}
	if s.ReturnPath == "" {
		s.ReturnPath = DefaultReturnPath
	}

	payload, err := json.Marshal(s)
	if err != nil {
		return "", err
	}

	body := base64.RawURLEncoding.EncodeToString(payload)
	return body + "." + c.tag(body), nil
}

// Decode reverses Encode. Any malformed, truncated or foreign input fails
// with ErrInvalid; callers must treat that as total failure.
func (c *Codec) Decode(encoded string) (State, error) {
	body, tag, ok := strings.Cut(encoded, ".")
	if !ok || body == "" || tag == "" {
		return State{}, ErrInvalid
	}

	if !hmac.Equal([]byte(c.tag(body)), []byte(tag)) {
		return State{}, ErrInvalid
	}

	payload, err := base64.RawURLEncoding.DecodeString(body)
	if err != nil {
		return State{}, ErrInvalid
	}

	var s State
	if err := json.Unmarshal(payload, &s); err != nil {
		return State{}, ErrInvalid
	}
	if s.TenantID == "" || s.Nonce == "" {
		return State{}, ErrInvalid
	}
	return s, nil
}

func (c *Codec) tag(body string) string {
	mac := hmac.New(sha256.New, c.key)
	mac.Write([]byte(body))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
