// Package fingerprint produces fixed-width deterministic digests of
// normalized text and compares them for approximate similarity. The digests
// are clustering heuristics, not content addresses: there is no
// collision-resistance requirement, and similarity is a cheap best-effort
// signal rather than a linguistic measure.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash/fnv"
	"math/bits"
	"strconv"
	"strings"
	"unicode"

	"github.com/initial69/Automatic-Pipeline/internal/normalize"
)

// Strategy is the pluggable fingerprint+compare step. A stronger algorithm
// (shingling, edit distance, embedding cosine) can replace the default
// without touching tracker logic.
type Strategy interface {
	Name() string
	Fingerprint(text string) string
	// Similarity compares two fingerprints, returning a value in [0, 1].
	Similarity(a, b string) float64
}

// New returns the strategy registered under name.
func New(name string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "positional":
		return Positional{}, nil
	case "simhash":
		return Simhash{}, nil
	default:
		return nil, fmt.Errorf("unknown fingerprint strategy %q", name)
	}
}

const positionalWidth = 32

// Positional digests normalized text with sha256 and compares digests by the
// fraction of matching characters at corresponding positions, divided by the
// longer digest's length. It only needs to be symmetric and cheap; Simhash
// is the stronger option.
type Positional struct{}

func (Positional) Name() string { return "positional" }

func (Positional) Fingerprint(text string) string {
	sum := sha256.Sum256([]byte(normalize.Title(text)))
	return hex.EncodeToString(sum[:])[:positionalWidth]
}

func (Positional) Similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}

	shorter, longer := a, b
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}

	matches := 0
	for i := 0; i < len(shorter); i++ {
		if shorter[i] == longer[i] {
			matches++
		}
	}
	return float64(matches) / float64(len(longer))
}

// Simhash is the stronger alternative: a 64-bit simhash of the token stream,
// compared by Hamming distance.
type Simhash struct{}

func (Simhash) Name() string { return "simhash" }

func (Simhash) Fingerprint(text string) string {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return "0000000000000000"
	}

	var bitWeights [64]int
	for _, token := range tokens {
		h := hashToken64(token)
		for bit := 0; bit < 64; bit++ {
			if h&(uint64(1)<<bit) != 0 {
				bitWeights[bit]++
			} else {
				bitWeights[bit]--
			}
		}
	}

	var result uint64
	for bit := 0; bit < 64; bit++ {
		if bitWeights[bit] > 0 {
			result |= uint64(1) << bit
		}
	}
	return fmt.Sprintf("%016x", result)
}

func (Simhash) Similarity(a, b string) float64 {
	left, errA := strconv.ParseUint(a, 16, 64)
	right, errB := strconv.ParseUint(b, 16, 64)
	if errA != nil || errB != nil {
		return 0
	}
	distance := bits.OnesCount64(left ^ right)
	return 1 - float64(distance)/64
}

func tokenize(text string) []string {
	normalized := normalize.Title(text)
	if normalized == "" {
		return nil
	}

	parts := strings.FieldsFunc(normalized, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	tokens := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		tokens = append(tokens, p)
	}
	return tokens
}

func hashToken64(token string) uint64 {
	hasher := fnv.New64a()
	_, _ = hasher.Write([]byte(token))
	return hasher.Sum64()
}
