package sharecode

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestGenerate(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code, err := Generate()
		if err != nil {
			t.Fatalf("Generate: %v", err)
		}
		if len(code) != Length {
			t.Fatalf("code %q has length %d, want %d", code, len(code), Length)
		}
		for _, c := range code {
			if !strings.ContainsRune(Alphabet, c) {
				t.Fatalf("code %q contains %q, not in alphabet", code, c)
			}
		}
		seen[code] = true
	}
	// 100 draws from ~10^9 codes colliding down to a handful would mean a
	// broken generator.
	if len(seen) < 95 {
		t.Errorf("only %d distinct codes in 100 draws", len(seen))
	}
}

func TestAlphabetExcludesAmbiguous(t *testing.T) {
	for _, c := range "IO10" {
		if strings.ContainsRune(Alphabet, c) {
			t.Errorf("alphabet must not contain %q", c)
		}
	}
	if len(Alphabet) != 32 {
		t.Errorf("alphabet length = %d, want 32", len(Alphabet))
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"abcdef", "ABCDEF", true},
		{"AbCdEf", "ABCDEF", true},
		{" ABCDEF ", "ABCDEF", true},
		{"ABC", "ABC", false},
		{"ABCDEFG", "ABCDEFG", false},
		{"ABCDE1", "ABCDE1", false}, // 1 not in alphabet
		{"ABCDE0", "ABCDE0", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := Normalize(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("Normalize(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestAllocateRetriesCollisions(t *testing.T) {
	// Generator returns AAAAAA three times, then BBBBBB.
	calls := 0
	gen := func() (string, error) {
		calls++
		if calls <= 3 {
			return "AAAAAA", nil
		}
		return "BBBBBB", nil
	}
	taken := func(_ context.Context, code string) (bool, error) {
		return code == "AAAAAA", nil
	}

	a := NewAllocatorWithGenerator(gen)
	code, err := a.Allocate(context.Background(), taken)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if code != "BBBBBB" {
		t.Errorf("Allocate = %q, want BBBBBB", code)
	}
	if calls != 4 {
		t.Errorf("generator called %d times, want 4", calls)
	}
}

func TestAllocateExhausted(t *testing.T) {
	gen := func() (string, error) { return "AAAAAA", nil }
	taken := func(context.Context, string) (bool, error) { return true, nil }

	a := NewAllocatorWithGenerator(gen)
	a.MaxAttempts = 8
	_, err := a.Allocate(context.Background(), taken)
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("Allocate error = %v, want ErrExhausted", err)
	}
}

func TestAllocateMinimumAttempts(t *testing.T) {
	calls := 0
	gen := func() (string, error) {
		calls++
		return "AAAAAA", nil
	}
	taken := func(context.Context, string) (bool, error) { return true, nil }

	a := NewAllocatorWithGenerator(gen)
	a.MaxAttempts = 1 // below the floor; must be raised to DefaultMaxAttempts
	_, err := a.Allocate(context.Background(), taken)
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("Allocate error = %v, want ErrExhausted", err)
	}
	if calls != DefaultMaxAttempts {
		t.Errorf("generator called %d times, want %d", calls, DefaultMaxAttempts)
	}
}

func TestAllocatePropagatesCheckError(t *testing.T) {
	checkErr := errors.New("catalog down")
	taken := func(context.Context, string) (bool, error) { return false, checkErr }

	a := NewAllocator()
	_, err := a.Allocate(context.Background(), taken)
	if !errors.Is(err, checkErr) {
		t.Fatalf("Allocate error = %v, want wrapped %v", err, checkErr)
	}
}
