// Package units canonicalizes denomination unit strings so that local
// records and catalog entries written in different languages or spellings
// ("Kopeks", "kopeck", "копейка") compare as the same unit.
package units

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Entry describes one canonical unit: its accepted aliases and the plural
// form used when building search queries for values other than one.
type Entry struct {
	Aliases []string `yaml:"aliases"`
	Plural  string   `yaml:"plural"`
}

// Normalizer resolves raw denomination strings to canonical units.
// The alias table is built once and never mutated afterwards.
type Normalizer struct {
	// byAlias maps a cleaned alias to every canonical it belongs to.
	// Homonyms across currencies ("gulden" is both a guilder and a florin)
	// legitimately map to more than one canonical.
	byAlias map[string][]string
	plurals map[string]string
}

// NewNormalizer builds a Normalizer over the built-in alias table.
func NewNormalizer() *Normalizer {
	return NewNormalizerFrom(builtinUnits)
}

// NewNormalizerFrom builds a Normalizer over the given canonical table.
// Canonicals are indexed in sorted order so that ambiguous aliases resolve
// deterministically across runs.
func NewNormalizerFrom(table map[string]Entry) *Normalizer {
	n := &Normalizer{
		byAlias: make(map[string][]string),
		plurals: make(map[string]string, len(table)),
	}
	canonicals := make([]string, 0, len(table))
	for c := range table {
		canonicals = append(canonicals, c)
	}
	sort.Strings(canonicals)
	for _, canonical := range canonicals {
		e := table[canonical]
		c := clean(canonical)
		n.addAlias(c, c)
		if e.Plural != "" {
			n.plurals[c] = clean(e.Plural)
			n.addAlias(clean(e.Plural), c)
		}
		for _, a := range e.Aliases {
			n.addAlias(clean(a), c)
		}
	}
	return n
}

func (n *Normalizer) addAlias(alias, canonical string) {
	if alias == "" {
		return
	}
	for _, c := range n.byAlias[alias] {
		if c == canonical {
			return
		}
	}
	n.byAlias[alias] = append(n.byAlias[alias], canonical)
}

// Normalize resolves raw to its canonical unit. Lookup is staged: the
// cleaned string first, then with combining diacritics stripped, then the
// singular form (with and without diacritics) when the string ends in "s".
// When no alias matches at any stage the diacritic-stripped form is
// returned so callers can still compare approximately; that fallback is
// not a canonical and never satisfies UnitsMatch.
func (n *Normalizer) Normalize(raw string) string {
	if canonicals := n.resolve(raw); len(canonicals) > 0 {
		return canonicals[0]
	}
	return stripDiacritics(clean(raw))
}

// UnitsMatch reports whether a and b resolve to the same canonical unit.
func (n *Normalizer) UnitsMatch(a, b string) bool {
	ca := n.resolve(a)
	cb := n.resolve(b)
	return len(ca) > 0 && len(cb) > 0 && ca[0] == cb[0]
}

// SearchForm returns the form of a canonical unit to use in a catalog
// search for the given numeric value: the canonical itself for 1, the
// registered plural otherwise. Canonicals without a plural are returned
// unchanged.
func (n *Normalizer) SearchForm(canonical string, value float64) string {
	if value == 1 {
		return canonical
	}
	if p, ok := n.plurals[clean(canonical)]; ok {
		return p
	}
	return canonical
}

// AlternateSearchForms returns a search form per canonical when raw is an
// ambiguous alias belonging to more than one canonical, letting a caller
// retry an external search under every plausible denomination label.
// Unambiguous input yields nil.
func (n *Normalizer) AlternateSearchForms(raw string, value float64) []string {
	canonicals := n.resolve(raw)
	if len(canonicals) < 2 {
		return nil
	}
	forms := make([]string, 0, len(canonicals))
	for _, c := range canonicals {
		forms = append(forms, n.SearchForm(c, value))
	}
	return forms
}

// resolve runs the staged alias lookup and returns all canonicals for raw,
// or nil when raw matches no alias.
func (n *Normalizer) resolve(raw string) []string {
	s := clean(raw)
	if s == "" {
		return nil
	}
	if c, ok := n.byAlias[s]; ok {
		return c
	}
	if c, ok := n.byAlias[stripDiacritics(s)]; ok {
		return c
	}
	if strings.HasSuffix(s, "s") && len(s) > 2 {
		singular := s[:len(s)-1]
		if c, ok := n.byAlias[singular]; ok {
			return c
		}
		if c, ok := n.byAlias[stripDiacritics(singular)]; ok {
			return c
		}
	}
	return nil
}

func clean(s string) string {
	s = norm.NFC.String(s)
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.ReplaceAll(s, ".", "")
}

var diacriticStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func stripDiacritics(s string) string {
	out, _, err := transform.String(diacriticStripper, s)
	if err != nil {
		return s
	}
	return out
}
