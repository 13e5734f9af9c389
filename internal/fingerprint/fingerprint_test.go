package fingerprint

import "testing"

func TestPositional_Deterministic(t *testing.T) {
	t.Parallel()

	s := Positional{}
	a := s.Fingerprint("Bitcoin mainnet launch announced")
	b := s.Fingerprint("Bitcoin mainnet launch announced")
	if a != b {
		t.Fatalf("fingerprint not deterministic: %q vs %q", a, b)
	}
	if len(a) != positionalWidth {
		t.Fatalf("expected fixed width %d, got %d", positionalWidth, len(a))
	}

	// Normalization happens before hashing, so case and punctuation
	// variants collapse to the same fingerprint.
	c := s.Fingerprint("  BITCOIN mainnet LAUNCH announced!! ")
	if c != a {
		t.Fatalf("expected normalized variants to share a fingerprint: %q vs %q", c, a)
	}
}

func TestPositional_Similarity(t *testing.T) {
	t.Parallel()

	s := Positional{}
	if got := s.Similarity("abcd", "abcd"); got != 1 {
		t.Fatalf("expected identical hashes to score 1, got %f", got)
	}
	if got := s.Similarity("", "abcd"); got != 0 {
		t.Fatalf("expected empty hash to score 0, got %f", got)
	}
	// 3 of 4 positions match against a longer hash of length 8.
	if got := s.Similarity("abcx", "abcdefgh"); got != 3.0/8.0 {
		t.Fatalf("unexpected positional score: %f", got)
	}
	// Symmetric under argument order.
	if s.Similarity("abcx", "abcdefgh") != s.Similarity("abcdefgh", "abcx") {
		t.Fatalf("expected symmetric similarity")
	}
}

func TestSimhash_NearDuplicates(t *testing.T) {
	t.Parallel()

	s := Simhash{}
	a := s.Fingerprint("Acme protocol launches mainnet with staking rewards")
	b := s.Fingerprint("Acme protocol launches mainnet with staking reward")
	c := s.Fingerprint("Completely unrelated recipe for sourdough bread")

	near := s.Similarity(a, b)
	far := s.Similarity(a, c)
	if near <= far {
		t.Fatalf("expected near-duplicate to outscore unrelated text: near=%f far=%f", near, far)
	}
	if got := s.Similarity(a, a); got != 1 {
		t.Fatalf("expected self-similarity 1, got %f", got)
	}
}

func TestSimhash_BadHashScoresZero(t *testing.T) {
	t.Parallel()

	s := Simhash{}
	if got := s.Similarity("not-hex", "0000000000000000"); got != 0 {
		t.Fatalf("expected unparsable hash to score 0, got %f", got)
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	if s, err := New(""); err != nil || s.Name() != "positional" {
		t.Fatalf("expected positional default, got %v err=%v", s, err)
	}
	if s, err := New("simhash"); err != nil || s.Name() != "simhash" {
		t.Fatalf("expected simhash strategy, got %v err=%v", s, err)
	}
	if _, err := New("levenshtein"); err == nil {
		t.Fatalf("expected error for unknown strategy")
	}
}
