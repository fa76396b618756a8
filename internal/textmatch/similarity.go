// Package textmatch provides the bigram similarity metric used by catalog
// candidate scoring and issuer resolution.
package textmatch

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Similarity computes Dice's coefficient over character bigrams of a and b.
// Both inputs are NFC-normalized, lowercased and trimmed before comparison.
// Returns a value in [0, 1]: 1.0 for equal strings, 0.0 when either string
// is shorter than two characters and they are unequal.
func Similarity(a, b string) float64 {
	a = canonical(a)
	b = canonical(b)

	if a == b {
		return 1.0
	}

	ra := []rune(a)
	rb := []rune(b)
	if len(ra) < 2 || len(rb) < 2 {
		return 0.0
	}

	// Multiset of a's bigrams: repeated bigrams count separately, so
	// "aaaa" vs "aa" does not score as a full match.
	counts := make(map[string]int, len(ra)-1)
	for i := 0; i < len(ra)-1; i++ {
		counts[string(ra[i:i+2])]++
	}

	intersection := 0
	for i := 0; i < len(rb)-1; i++ {
		bg := string(rb[i : i+2])
		if counts[bg] > 0 {
			counts[bg]--
			intersection++
		}
	}

	return 2.0 * float64(intersection) / float64((len(ra)-1)+(len(rb)-1))
}

func canonical(s string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFC.String(s)))
}
