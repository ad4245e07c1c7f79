// Package session turns per-request session state into an authenticated,
// encrypted cookie and back, and handles the cleanup dance for cookies left
// behind by an earlier key or cookie-domain configuration.
package session

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"golang.org/x/crypto/chacha20poly1305"
)

// State is the decoded session content. Values round-trip through JSON, so
// numbers come back as float64.
type State map[string]any

// Codec is one strategy for moving State through a cookie value. The stale
// flag on Decode distinguishes "cookie present but invalid" from "no cookie"
// (callers get the latter by never calling Decode); the two cases need
// different cleanup downstream.
type Codec interface {
	// Decode parses a cookie value. On any failure it returns an empty,
	// usable State and stale=true; it never errors.
	Decode(cookieValue string) (State, bool)

	// Encode seals state into a fresh cookie value.
	Encode(state State) (string, error)
}

// Wire format: base64url(nonce(12) || ciphertext || aad), where aad is the
// JSON {"exp":<unix>} bound into the AEAD at seal time. There is no length
// prefix between ciphertext and aad; Decode recovers the split by letting
// the auth tag arbitrate (see below).
type aadClaims struct {
	Exp int64 `json:"exp"`
}

// How many trailing '{' positions Decode will try before declaring the
// cookie garbage. The aad is tiny, so the true split is almost always the
// first candidate; the cap just bounds work on adversarial input.
const maxSplitAttempts = 16

// AEADCodec seals session state with ChaCha20-Poly1305 under a 256-bit key
// derived by hashing the configured secret. Stateless and safe for
// concurrent use.
type AEADCodec struct {
	key    [32]byte
	maxAge time.Duration
}

// NewAEADCodec derives the cipher key as SHA-256(secret), which is exactly
// the 32 bytes chacha20poly1305 requires, and binds maxAge into every
// encoded cookie's associated data.
func NewAEADCodec(secret string, maxAge time.Duration) (*AEADCodec, error) {
	if secret == "" {
		return nil, fmt.Errorf("session: secret must not be empty")
	}
	if maxAge <= 0 {
		return nil, fmt.Errorf("session: max age must be positive, got %s", maxAge)
	}
	return &AEADCodec{key: sha256.Sum256([]byte(secret)), maxAge: maxAge}, nil
}

func (c *AEADCodec) Encode(state State) (string, error) {
	if state == nil {
		state = State{}
	}
	plain, err := json.Marshal(state)
	if err != nil {
		return "", fmt.Errorf("session: marshal state: %w", err)
	}

	aad, err := json.Marshal(aadClaims{Exp: time.Now().Add(c.maxAge).Unix()})
	if err != nil {
		return "", fmt.Errorf("session: marshal claims: %w", err)
	}

	aead, err := chacha20poly1305.New(c.key[:])
	if err != nil {
		return "", err
	}

	nonce := make([]byte, chacha20poly1305.NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("session: nonce: %w", err)
	}

	buf := make([]byte, 0, len(nonce)+len(plain)+aead.Overhead()+len(aad))
	buf = append(buf, nonce...)
	buf = aead.Seal(buf, nonce, plain, aad)
	buf = append(buf, aad...)

	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func (c *AEADCodec) Decode(cookieValue string) (State, bool) {
	raw, err := base64.RawURLEncoding.DecodeString(cookieValue)
	if err != nil {
		return State{}, true
	}

	aead, err := chacha20poly1305.New(c.key[:])
	if err != nil {
		return State{}, true
	}

	// Minimum: nonce, the Poly1305 tag, and a "{...}" aad.
	if len(raw) < chacha20poly1305.NonceSize+aead.Overhead()+2 {
		return State{}, true
	}
	nonce := raw[:chacha20poly1305.NonceSize]
	rest := raw[chacha20poly1305.NonceSize:]

	// Recover the ciphertext/aad boundary: the aad is the trailing JSON
	// object, so try each '{' from the end as a split. Only the true split
	// authenticates under the Poly1305 tag; ciphertext bytes that happen to
	// look like '{' just fail Open and we keep scanning.
	attempts := 0
	for i := len(rest) - 2; i >= aead.Overhead(); i-- {
		if rest[i] != '{' {
			continue
		}
		attempts++
		if attempts > maxSplitAttempts {
			break
		}

		plain, err := aead.Open(nil, nonce, rest[:i], rest[i:])
		if err != nil {
			continue
		}

		// Authenticated. Anything wrong from here on is a stale cookie,
		// not a parsing retry.
		var claims aadClaims
		if err := json.Unmarshal(rest[i:], &claims); err != nil {
			return State{}, true
		}
		if time.Now().Unix() > claims.Exp {
			return State{}, true
		}

		var state State
		if err := json.Unmarshal(plain, &state); err != nil {
			return State{}, true
		}
		if state == nil {
			state = State{}
		}
		return state, false
	}

	return State{}, true
}
