// Package passhash hashes and verifies per-file download passwords.
//
// Hashing uses argon2id with a per-hash random salt; verification is
// constant-time. Argon2 is intentionally slow and memory-hungry, so both
// operations run through a bounded worker pool sized to the number of CPUs,
// keeping a burst of unlock requests from starving the rest of the server.
package passhash

import (
	"context"
	"runtime"

	"github.com/alexedwards/argon2id"
)

// params follows the argon2id defaults (64 MiB memory, 1 iteration,
// parallelism per CPU count, 16-byte salt, 32-byte key).
var params = argon2id.DefaultParams

// slots bounds concurrent hash computations.
var slots = make(chan struct{}, max(2, runtime.GOMAXPROCS(0)))

func acquire(ctx context.Context) error {
	select {
	case slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func release() {
	<-slots
}

// Hash derives an encoded argon2id hash (including salt and parameters) from
// a plaintext password. The plaintext is never persisted.
func Hash(ctx context.Context, password string) (string, error) {
	if err := acquire(ctx); err != nil {
		return "", err
	}
	defer release()
	return argon2id.CreateHash(password, params)
}

// Verify reports whether password matches the encoded hash. The underlying
// comparison is constant-time; runtime does not depend on how many leading
// characters of the password match.
func Verify(ctx context.Context, password, hash string) (bool, error) {
	if err := acquire(ctx); err != nil {
		return false, err
	}
	defer release()
	return argon2id.ComparePasswordAndHash(password, hash)
}
