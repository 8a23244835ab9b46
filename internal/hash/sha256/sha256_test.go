// Package sha256 includes tests for the SHA-256 hasher adapter.
package sha256

import "testing"

// TestHasherHashDeterministic ensures repeated hashing yields the same digest.
func TestHasherHashDeterministic(t *testing.T) {
	t.Parallel()

	h := New()
	got, err := h.Hash([]byte("%PDF-1.4 maintenance guide"))
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if len(got) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(got))
	}
	again, err := h.Hash([]byte("%PDF-1.4 maintenance guide"))
	if err != nil {
		t.Fatalf("Hash() repeat error = %v", err)
	}
	if again != got {
		t.Fatalf("expected deterministic hash, got %s vs %s", got, again)
	}
	empty, _ := h.Hash(nil)
	if empty != "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855" {
		t.Fatalf("unexpected empty digest %s", empty)
	}
}

func TestShort(t *testing.T) {
	t.Parallel()

	if got := Short("abcdef0123", 4); got != "abcd" {
		t.Fatalf("Short() = %q", got)
	}
	if got := Short("abc", 12); got != "abc" {
		t.Fatalf("Short() should return whole digest, got %q", got)
	}
}
