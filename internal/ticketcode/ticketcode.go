// Package ticketcode produces human-transcribable ticket codes.
//
// Codes are drawn from an alphabet without visually ambiguous characters
// (no 0/O, 1/I/L). Uniqueness is not checked here; it is enforced by the
// unique index on the code column and the caller regenerates on conflict.
package ticketcode

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

const (
	Alphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

	MinLength     = 8
	MaxLength     = 12
	DefaultLength = 8

	// MaxSequence is the largest suffix the three-digit format can hold.
	MaxSequence = 999
)

var (
	ErrInvalidLength     = errors.New("ticket code length out of range")
	ErrSequenceExhausted = errors.New("ticket code sequence exhausted")
)

type Scheme string

const (
	SchemeRandom     Scheme = "random"
	SchemeSequential Scheme = "sequential"
)

func ParseScheme(s string) (Scheme, error) {
	switch Scheme(strings.ToLower(strings.TrimSpace(s))) {
	case "", SchemeRandom:
		return SchemeRandom, nil
	case SchemeSequential:
		return SchemeSequential, nil
	default:
		return "", fmt.Errorf("unknown ticket code scheme %q", s)
	}
}

type Generator struct {
	length int
	scheme Scheme
}

func NewGenerator(length int, scheme Scheme) (*Generator, error) {
	if length < MinLength || length > MaxLength {
		return nil, fmt.Errorf("%w: %d (want %d-%d)", ErrInvalidLength, length, MinLength, MaxLength)
	}
	if scheme == "" {
		scheme = SchemeRandom
	}
	return &Generator{length: length, scheme: scheme}, nil
}

func (g *Generator) Scheme() Scheme {
	return g.scheme
}

// Next returns a fresh code. A positive seq is appended as a zero-padded
// three-digit suffix ("ABCDEFGH-042"); seq 0 yields the random body only.
func (g *Generator) Next(seq int) (string, error) {
	if seq > MaxSequence {
		return "", fmt.Errorf("%w: %d", ErrSequenceExhausted, seq)
	}

	body, err := randomString(g.length)
	if err != nil {
		return "", err
	}
	if seq <= 0 {
		return body, nil
	}

	return fmt.Sprintf("%s-%03d", body, seq), nil
}

// Normalize maps user input (scanner or manual entry) onto the stored form.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func randomString(n int) (string, error) {
	max := big.NewInt(int64(len(Alphabet)))

	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("read random: %w", err)
		}
		b.WriteByte(Alphabet[idx.Int64()])
	}

	return b.String(), nil
}
