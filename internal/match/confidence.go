// Package match resolves the identity of a local record against catalog
// candidates: confidence scoring, issue disambiguation, and issuer-code
// resolution.
package match

import (
	"math"
	"strconv"
	"strings"

	"github.com/open-collect/numisync/internal/model"
	"github.com/open-collect/numisync/internal/textmatch"
	"github.com/open-collect/numisync/internal/units"
	"github.com/open-collect/numisync/pkg/numista"
)

// unitSimilarityFloor is the bigram similarity above which two unit
// strings count as comparable even without a shared canonical.
const unitSimilarityFloor = 0.7

// Scorer rates how likely a catalog candidate is to be the same coin as a
// local record. The rubric is deterministic; there is no learned model.
type Scorer struct {
	units *units.Normalizer
}

// NewScorer creates a Scorer over the given unit normalizer.
func NewScorer(un *units.Normalizer) *Scorer {
	return &Scorer{units: un}
}

// Confidence scores rec against cand on a 0–100 scale. A record already
// linked to this exact catalog id short-circuits to 100.
func (s *Scorer) Confidence(rec model.Record, cand numista.Type) int {
	if rec.CatalogID != 0 && rec.CatalogID == cand.ID {
		return 100
	}

	score := int(math.Round(textmatch.Similarity(rec.Title, cand.Title) * 30))
	score += s.yearScore(rec, cand)
	score += s.countryScore(rec, cand)
	score += s.denominationScore(rec, cand)
	score += s.categoryScore(cand)

	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func (s *Scorer) yearScore(rec model.Record, cand numista.Type) int {
	year, ok, err := rec.ParsedYear()
	if err != nil || !ok {
		return 0
	}
	if cand.MinYear == 0 && cand.MaxYear == 0 {
		return 0
	}
	if year >= cand.MinYear && year <= cand.MaxYear {
		return 25
	}
	return -15
}

func (s *Scorer) countryScore(rec model.Record, cand numista.Type) int {
	country := strings.ToLower(strings.TrimSpace(rec.Country))
	issuer := strings.ToLower(strings.TrimSpace(cand.Issuer.Name))
	if country == "" || issuer == "" {
		return 0
	}
	if country == issuer || strings.Contains(issuer, country) {
		return 20
	}
	return 0
}

func (s *Scorer) denominationScore(rec model.Record, cand numista.Type) int {
	candValue, candUnit, found := extractDenomination(cand)
	if !found {
		// A type that states no denomination at all counts against a
		// record that carries one.
		if rec.Value != 0 || strings.TrimSpace(rec.Unit) != "" {
			return -20
		}
		return 0
	}

	localUnit := strings.TrimSpace(rec.Unit)
	unitComparable := localUnit != "" && candUnit != ""
	unitMatches := unitComparable &&
		(s.units.UnitsMatch(localUnit, candUnit) ||
			textmatch.Similarity(s.units.Normalize(localUnit), s.units.Normalize(candUnit)) > unitSimilarityFloor)

	// No local numeric value: the unit is all we can compare.
	if rec.Value == 0 {
		if !unitComparable {
			return 0
		}
		if unitMatches {
			return 15
		}
		return -10
	}

	if candValue == 0 || rec.Value != candValue {
		return -20
	}
	if !unitComparable {
		return 15
	}
	if unitMatches {
		return 25
	}
	return -20
}

func (s *Scorer) categoryScore(cand numista.Type) int {
	cat := strings.ToLower(cand.Category + " " + cand.ObjectType)
	switch {
	case strings.Contains(cat, "standard") || strings.Contains(cat, "circulating"):
		return 10
	case strings.Contains(cat, "pattern") || strings.Contains(cat, "proof") ||
		strings.Contains(cat, "non-circulating") || strings.Contains(cat, "specimen"):
		return -10
	default:
		return 0
	}
}

// titleSeparators end the denomination token at the head of a catalog
// title ("1 Cent - Lincoln", "5 Kopeks (Nicholas II)").
const titleSeparators = "-–(,"

// extractDenomination pulls {numeric value, unit} from the candidate's
// value text, falling back to the leading token of its title.
func extractDenomination(cand numista.Type) (float64, string, bool) {
	// The value text is authoritative: numeric_value is denominated in
	// the issuer's base unit (0.01 for "1 Cent") and only fills in when
	// the text carries no number of its own.
	if v, u, ok := parseDenomination(cand.Value.Text); ok {
		if v == 0 && cand.Value.Numeric != 0 {
			v = cand.Value.Numeric
		}
		return v, u, true
	}
	head := cand.Title
	if i := strings.IndexAny(head, titleSeparators); i >= 0 {
		head = head[:i]
	}
	return parseDenomination(head)
}

// parseDenomination splits "5 Kopeks" into (5, "kopeks"). Fractions like
// "1/2" are understood. Text with no leading number yields the unit only.
func parseDenomination(text string) (float64, string, bool) {
	fields := strings.Fields(strings.TrimSpace(text))
	if len(fields) == 0 {
		return 0, "", false
	}

	value, numOK := parseNumber(fields[0])
	unitFields := fields
	if numOK {
		unitFields = fields[1:]
	}
	unit := strings.Join(unitFields, " ")
	if !numOK && unit == "" {
		return 0, "", false
	}
	return value, unit, numOK || unit != ""
}

func parseNumber(s string) (float64, bool) {
	if num, den, ok := strings.Cut(s, "/"); ok {
		n, errN := strconv.ParseFloat(num, 64)
		d, errD := strconv.ParseFloat(den, 64)
		if errN == nil && errD == nil && d != 0 {
			return n / d, true
		}
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
