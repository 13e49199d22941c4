package session

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
)

const DefaultIDBytes = 16

var ErrEmptyID = errors.New("session: empty id")

// Info describes the session identifier attached to one request. The payload
// behind the identifier is owned by the caller.
type Info struct {
	ID      string
	IsNew   bool
	Rotated bool
}

// Generator produces a fresh opaque identifier.
type Generator func() (string, error)

// Validator reports whether a client supplied identifier may be reused.
type Validator func(id string) bool

// NewID returns n random bytes, hex encoded.
func NewID(n int) (string, error) {
	if n <= 0 {
		n = DefaultIDBytes
	}

	raw := make([]byte, n)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("session: reading random bytes: %w", err)
	}

	return hex.EncodeToString(raw), nil
}

// HexGenerator returns a Generator backed by NewID.
func HexGenerator(n int) Generator {
	return func() (string, error) {
		return NewID(n)
	}
}

// ValidID accepts identifiers of at least 2*n characters drawn from
// [A-Za-z0-9-_.].
func ValidID(id string, n int) bool {
	if n <= 0 {
		n = DefaultIDBytes
	}
	if id == "" || len(id) < 2*n {
		return false
	}

	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		case c == '-', c == '_', c == '.':
		default:
			return false
		}
	}

	return true
}

// DefaultValidator returns a Validator backed by ValidID.
func DefaultValidator(n int) Validator {
	return func(id string) bool {
		return ValidID(id, n)
	}
}
