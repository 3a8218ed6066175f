// Package sharecode generates the six-character codes that identify shared
// files and peer-to-peer rooms.
//
// Codes are drawn uniformly at random from a 32-character alphabet with the
// visually ambiguous characters (I, O, 1, 0) removed, so they survive being
// read aloud or typed from a phone screen. Lookups are case-insensitive;
// codes are stored canonically uppercase.
package sharecode

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
)

// Alphabet is the 32-character unambiguous code alphabet.
const Alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Length is the number of characters in a code.
const Length = 6

// DefaultMaxAttempts is the default collision retry bound for Allocate.
const DefaultMaxAttempts = 10

// ErrExhausted is returned when Allocate keeps colliding with existing codes
// past the retry bound.
var ErrExhausted = errors.New("sharecode: allocation exhausted retry attempts")

// Generate returns a random code of Length characters from Alphabet.
func Generate() (string, error) {
	buf := make([]byte, Length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("sharecode: reading random bytes: %w", err)
	}
	for i, b := range buf {
		// 32 divides 256, so masking keeps the distribution uniform.
		buf[i] = Alphabet[b&31]
	}
	return string(buf), nil
}

// Normalize uppercases code and reports whether it is a well-formed share
// code: exactly Length characters, all from Alphabet.
func Normalize(code string) (string, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != Length {
		return code, false
	}
	for i := 0; i < len(code); i++ {
		if !strings.ContainsRune(Alphabet, rune(code[i])) {
			return code, false
		}
	}
	return code, true
}

// TakenFunc reports whether a candidate code is already in use. Implementations
// typically query the catalog's unique share_code or room_code index.
type TakenFunc func(ctx context.Context, code string) (bool, error)

// Allocator produces codes that pass a caller-supplied uniqueness check,
// retrying on collision up to MaxAttempts.
type Allocator struct {
	// MaxAttempts bounds collision retries. Values below DefaultMaxAttempts
	// are raised to it.
	MaxAttempts int

	// generate produces candidate codes. Overridable for tests.
	generate func() (string, error)
}

// NewAllocator returns an Allocator with the default retry bound.
func NewAllocator() *Allocator {
	return &Allocator{MaxAttempts: DefaultMaxAttempts, generate: Generate}
}

// NewAllocatorWithGenerator returns an Allocator using a custom candidate
// generator. Intended for tests that need deterministic codes.
func NewAllocatorWithGenerator(gen func() (string, error)) *Allocator {
	return &Allocator{MaxAttempts: DefaultMaxAttempts, generate: gen}
}

// Allocate returns a code for which taken reports false.
//
// Each attempt generates a fresh candidate and consults taken; collisions are
// retried up to MaxAttempts before failing with ErrExhausted. Errors from
// taken abort the allocation immediately.
func (a *Allocator) Allocate(ctx context.Context, taken TakenFunc) (string, error) {
	attempts := a.MaxAttempts
	if attempts < DefaultMaxAttempts {
		attempts = DefaultMaxAttempts
	}
	gen := a.generate
	if gen == nil {
		gen = Generate
	}

	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		code, err := gen()
		if err != nil {
			return "", err
		}
		inUse, err := taken(ctx, code)
		if err != nil {
			return "", fmt.Errorf("sharecode: uniqueness check: %w", err)
		}
		if !inUse {
			return code, nil
		}
	}
	return "", ErrExhausted
}
