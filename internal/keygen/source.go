package keygen

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
)

// Source produces Reality key pairs.
type Source interface {
	GenerateKeyPair(ctx context.Context) (KeyPair, error)
}

// GenerationFailure is returned when a key pair could not be produced.
// Callers must leave any previously held keys untouched.
type GenerationFailure struct {
	Source string
	Err    error
}

func (e *GenerationFailure) Error() string {
	return fmt.Sprintf("key generation via %s failed: %v", e.Source, e.Err)
}

func (e *GenerationFailure) Unwrap() error { return e.Err }

// LocalSource derives key pairs in-process. A nil Rand means crypto/rand.
type LocalSource struct {
	Rand io.Reader
}

func (s LocalSource) GenerateKeyPair(ctx context.Context) (KeyPair, error) {
	if err := ctx.Err(); err != nil {
		return KeyPair{}, &GenerationFailure{Source: "local", Err: err}
	}
	r := s.Rand
	if r == nil {
		r = rand.Reader
	}
	kp, err := GenerateKeyPair(r)
	if err != nil {
		return KeyPair{}, &GenerationFailure{Source: "local", Err: err}
	}
	return kp, nil
}
