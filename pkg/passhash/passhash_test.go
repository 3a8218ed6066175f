package passhash

import (
	"context"
	"strings"
	"testing"
)

func TestHashAndVerify(t *testing.T) {
	ctx := context.Background()

	hash, err := Hash(ctx, "hunter2")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if strings.Contains(hash, "hunter2") {
		t.Fatal("hash contains the plaintext password")
	}
	if !strings.HasPrefix(hash, "$argon2id$") {
		t.Errorf("hash %q is not an argon2id encoded hash", hash)
	}

	ok, err := Verify(ctx, "hunter2", hash)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !ok {
		t.Error("correct password did not verify")
	}

	ok, err = Verify(ctx, "hunter3", hash)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if ok {
		t.Error("wrong password verified")
	}
}

func TestHashUsesFreshSalt(t *testing.T) {
	ctx := context.Background()

	h1, err := Hash(ctx, "same-password")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	h2, err := Hash(ctx, "same-password")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if h1 == h2 {
		t.Error("two hashes of the same password are identical; salt is not per-hash")
	}
}

func TestHashCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Fill the pool so acquisition must block, then the cancelled context wins.
	for i := 0; i < cap(slots); i++ {
		slots <- struct{}{}
	}
	defer func() {
		for i := 0; i < cap(slots); i++ {
			<-slots
		}
	}()

	if _, err := Hash(ctx, "pw"); err == nil {
		t.Error("Hash with cancelled context and full pool should fail")
	}
}
