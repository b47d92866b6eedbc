package keygen

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/curve25519"
)

// KeyPair is a Reality X25519 key pair. Both halves use unpadded URL-safe
// base64, the form xray prints from `xray x25519` and reads from config.
type KeyPair struct {
	PrivateKey string `json:"private_key"`
	PublicKey  string `json:"public_key"`
}

var keyEncoding = base64.RawURLEncoding

// GenerateKeyPair draws a private scalar from r and derives the matching
// public key.
func GenerateKeyPair(r io.Reader) (KeyPair, error) {
	priv := make([]byte, curve25519.ScalarSize)
	if _, err := io.ReadFull(r, priv); err != nil {
		return KeyPair{}, fmt.Errorf("failed to read private key: %w", err)
	}

	// Same clamping xray applies before printing a private key.
	priv[0] &= 248
	priv[31] &= 127
	priv[31] |= 64

	pub, err := curve25519.X25519(priv, curve25519.Basepoint)
	if err != nil {
		return KeyPair{}, fmt.Errorf("failed to derive public key: %w", err)
	}

	return KeyPair{
		PrivateKey: keyEncoding.EncodeToString(priv),
		PublicKey:  keyEncoding.EncodeToString(pub),
	}, nil
}

// PublicKey derives the public key for a base64 private key.
func PublicKey(privateKey string) (string, error) {
	priv, err := decodeKey(privateKey)
	if err != nil {
		return "", fmt.Errorf("invalid private key: %w", err)
	}
	pub, err := curve25519.X25519(priv, curve25519.Basepoint)
	if err != nil {
		return "", fmt.Errorf("failed to derive public key: %w", err)
	}
	return keyEncoding.EncodeToString(pub), nil
}

// Paired reports whether the public half was derived from the private half.
func (k KeyPair) Paired() bool {
	want, err := PublicKey(k.PrivateKey)
	if err != nil {
		return false
	}
	got, err := decodeKey(k.PublicKey)
	if err != nil {
		return false
	}
	derived, _ := keyEncoding.DecodeString(want)
	return bytes.Equal(got, derived)
}

// decodeKey accepts any of the base64 alphabets, padded or not, and requires
// exactly 32 bytes.
func decodeKey(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	for _, enc := range []*base64.Encoding{
		base64.RawURLEncoding,
		base64.URLEncoding,
		base64.RawStdEncoding,
		base64.StdEncoding,
	} {
		b, err := enc.DecodeString(s)
		if err != nil {
			continue
		}
		if len(b) != curve25519.ScalarSize {
			return nil, fmt.Errorf("key is %d bytes, want %d", len(b), curve25519.ScalarSize)
		}
		return b, nil
	}
	return nil, fmt.Errorf("key is not base64")
}
