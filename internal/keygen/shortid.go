package keygen

import (
	"encoding/hex"
	"fmt"
	"io"
)

const shortIDBytes = 4

// NewShortID returns 4 random bytes as 8 lowercase hex characters.
func NewShortID(r io.Reader) (string, error) {
	b := make([]byte, shortIDBytes)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", fmt.Errorf("failed to generate short id: %w", err)
	}
	return hex.EncodeToString(b), nil
}
