package blobstore

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"time"
)

var (
	ErrSignatureInvalid = errors.New("signature is invalid")
	ErrURLExpired       = errors.New("signed url has expired")
)

// SignedURL is a time-limited capability for one direct upload or download.
type SignedURL struct {
	URL       string    `json:"url"`
	Method    string    `json:"method"`
	Path      string    `json:"path"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Signer produces and verifies pre-signed blob URLs. The signature is an
// HMAC-SHA256 over the method, path, and expiry, so a URL signed for one
// operation cannot be replayed for another or after its window.
type Signer struct {
	secret []byte
	ttl    time.Duration
}

// NewSigner creates a Signer. URLs it signs are valid for ttl.
func NewSigner(secret []byte, ttl time.Duration) *Signer {
	return &Signer{secret: secret, ttl: ttl}
}

// Sign returns a pre-signed URL for the given method and blob path, relative
// to the server root.
func (s *Signer) Sign(method, path string) SignedURL {
	expiresAt := time.Now().UTC().Add(s.ttl)
	sig := s.compute(method, path, expiresAt.Unix())

	q := url.Values{}
	q.Set("expires", fmt.Sprintf("%d", expiresAt.Unix()))
	q.Set("sig", sig)

	return SignedURL{
		URL:       "/blobs/" + path + "?" + q.Encode(),
		Method:    method,
		Path:      path,
		ExpiresAt: expiresAt,
	}
}

// Verify checks a presented signature against the method, path, and expiry it
// claims to cover.
func (s *Signer) Verify(method, path string, expires int64, sig string) error {
	if time.Now().UTC().Unix() > expires {
		return ErrURLExpired
	}
	expected := s.compute(method, path, expires)
	if !hmac.Equal([]byte(expected), []byte(sig)) {
		return ErrSignatureInvalid
	}
	return nil
}

func (s *Signer) compute(method, path string, expires int64) string {
	mac := hmac.New(sha256.New, s.secret)
	fmt.Fprintf(mac, "%s\n%s\n%d", method, path, expires)
	return hex.EncodeToString(mac.Sum(nil))
}
