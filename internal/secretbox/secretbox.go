// Package secretbox seals provider tokens before they are handed to any
// store. Credentials leave this process encrypted; the seal key never does.
package secretbox

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/nacl/secretbox"
)

const (
	keyLength   = 32
	nonceLength = 24
	sep         = "|" // base64(nonce)|base64(box)
)

var (
	ErrNoKey      = errors.New("seal key not configured")
	ErrBadKey     = errors.New("seal key must decode to 32 bytes")
	ErrOpenFailed = errors.New("sealed value failed authentication")
)

// Sealer encrypts and decrypts short strings with a fixed symmetric key.
type Sealer struct {
	key [keyLength]byte
	set bool
}

// New builds a Sealer from a base64 encoded 32-byte key. An empty key
// returns a disabled Sealer whose Seal/Open fail with ErrNoKey.
func New(keyB64 string) (*Sealer, error) {
	keyB64 = strings.TrimSpace(keyB64)
	if keyB64 == "" {
		return &Sealer{}, nil
	}
	raw, err := base64.StdEncoding.DecodeString(keyB64)
	if err != nil {
		return nil, fmt.Errorf("decode seal key: %w", err)
	}
	if len(raw) != keyLength {
		return nil, ErrBadKey
	}
	s := &Sealer{set: true}
	copy(s.key[:], raw)
	return s, nil
}

// Ready reports whether a key is loaded.
func (s *Sealer) Ready() bool {
	return s.set
}

// Seal encrypts plainText and returns base64(nonce)|base64(box).
func (s *Sealer) Seal(plainText string) (string, error) {
	if !s.set {
		return "", ErrNoKey
	}
	var nonce [nonceLength]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("nonce random: %w", err)
	}
	box := secretbox.Seal(nil, []byte(plainText), &nonce, &s.key)
	return base64.StdEncoding.EncodeToString(nonce[:]) + sep + base64.StdEncoding.EncodeToString(box), nil
}

// Open decrypts a value produced by Seal. Any tampering fails authentication.
func (s *Sealer) Open(sealed string) (string, error) {
	if !s.set {
		return "", ErrNoKey
	}
	parts := strings.SplitN(sealed, sep, 2)
	if len(parts) != 2 {
		return "", ErrOpenFailed
	}
	nonceBytes, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil || len(nonceBytes) != nonceLength {
		return "", ErrOpenFailed
	}
	box, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return "", ErrOpenFailed
	}
	var nonce [nonceLength]byte
	copy(nonce[:], nonceBytes)
	plain, ok := secretbox.Open(nil, box, &nonce, &s.key)
	if !ok {
		return "", ErrOpenFailed
	}
	return string(plain), nil
}
