// Package crypto provides RSA key loading and RSA-PSS request signing for the
// Kalshi trade API.
package crypto

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
)

// KeyConfig carries the information LoadKey needs to resolve a private key.
// Populate the fields from environment variables or a config file.
type KeyConfig struct {
	// PEM is an inline PEM-encoded key. If non-empty, LoadKey parses it
	// directly.
	PEM string

	// Path is a PEM file on disk.
	Path string
}

// LoadKey resolves an RSA private key from cfg. It returns (nil, nil) when
// neither field is set, meaning requests go out unsigned.
func LoadKey(cfg KeyConfig) (*rsa.PrivateKey, error) {
	switch {
	case cfg.PEM != "":
		return ParseRSAPrivateKey([]byte(cfg.PEM))
	case cfg.Path != "":
		data, err := os.ReadFile(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("crypto: read key file: %w", err)
		}
		return ParseRSAPrivateKey(data)
	default:
		return nil, nil
	}
}

// ParseRSAPrivateKey decodes a PEM block holding a PKCS#8 or PKCS#1 RSA
// private key.
func ParseRSAPrivateKey(pemBytes []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, errors.New("crypto: no PEM block found in private key")
	}

	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		pkcs1Key, pkcs1Err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if pkcs1Err != nil {
			return nil, fmt.Errorf("crypto: parse private key: %w (pkcs1: %v)", err, pkcs1Err)
		}
		return pkcs1Key, nil
	}

	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("crypto: expected RSA private key, got %T", key)
	}
	return rsaKey, nil
}
