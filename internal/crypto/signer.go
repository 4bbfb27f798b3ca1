package crypto

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
	"time"
)

// Kalshi authentication header names.
const (
	HeaderAccessKey       = "KALSHI-ACCESS-KEY"
	HeaderAccessSignature = "KALSHI-ACCESS-SIGNATURE"
	HeaderAccessTimestamp = "KALSHI-ACCESS-TIMESTAMP"
)

// RSASigner produces the headers for an RSA-authenticated Kalshi request.
// The signature is RSA-PSS-SHA256 over timestamp+method+path, where the
// timestamp is in Unix milliseconds and path excludes the query string.
type RSASigner struct {
	keyID string
	key   *rsa.PrivateKey
}

// NewRSASigner creates a signer for the given API key ID and private key.
func NewRSASigner(keyID string, key *rsa.PrivateKey) *RSASigner {
	return &RSASigner{keyID: keyID, key: key}
}

// Headers returns the authentication headers for a request signed now.
func (s *RSASigner) Headers(method, path string) (map[string]string, error) {
	return s.HeadersAt(method, path, time.Now().UnixMilli())
}

// HeadersAt is like Headers but lets the caller supply the timestamp in Unix
// milliseconds.
func (s *RSASigner) HeadersAt(method, path string, unixMilli int64) (map[string]string, error) {
	ts := strconv.FormatInt(unixMilli, 10)

	hash := sha256.Sum256([]byte(ts + method + path))
	sig, err := rsa.SignPSS(rand.Reader, s.key, crypto.SHA256, hash[:], &rsa.PSSOptions{
		SaltLength: rsa.PSSSaltLengthEqualsHash,
	})
	if err != nil {
		return nil, fmt.Errorf("crypto: rsa sign: %w", err)
	}

	return map[string]string{
		HeaderAccessKey:       s.keyID,
		HeaderAccessSignature: base64.StdEncoding.EncodeToString(sig),
		HeaderAccessTimestamp: ts,
	}, nil
}

// String returns a redacted representation suitable for logging.
func (s *RSASigner) String() string {
	id := "****"
	if len(s.keyID) > 4 {
		id = s.keyID[:4] + "****"
	}
	return fmt.Sprintf("RSASigner{key_id=%s}", id)
}
