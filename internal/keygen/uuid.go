// Package keygen produces identifiers and Reality key material. Every
// generator takes its random source explicitly so callers and tests decide
// where entropy comes from.
package keygen

import (
	"fmt"
	"io"
	mathrand "math/rand/v2"

	"github.com/google/uuid"
)

// NewUUID returns a random RFC 4122 version 4 UUID read from r.
func NewUUID(r io.Reader) (string, error) {
	u, err := uuid.NewRandomFromReader(r)
	if err != nil {
		return "", fmt.Errorf("failed to generate uuid: %w", err)
	}
	return u.String(), nil
}

// InsecureUUID builds a version 4 UUID from math/rand. It is NOT suitable for
// client credentials; callers must only reach for it after NewUUID failed and
// must log that they did.
func InsecureUUID() string {
	var b [16]byte
	for i := range b {
		b[i] = byte(mathrand.IntN(256))
	}
	b[6] = b[6]&0x0f | 0x40
	b[8] = b[8]&0x3f | 0x80
	return uuid.UUID(b).String()
}
