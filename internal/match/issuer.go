package match

import (
	"context"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/open-collect/numisync/internal/textmatch"
	"github.com/open-collect/numisync/pkg/numista"
)

// issuerAcceptThreshold is the minimum similarity for a fuzzy issuer
// match to be trusted.
const issuerAcceptThreshold = 0.6

// IssuerLister is the slice of the catalog client the resolver needs.
type IssuerLister interface {
	GetIssuers(ctx context.Context) ([]numista.Issuer, error)
}

// IssuerAlias is one entry of an external issuer alias table.
type IssuerAlias struct {
	Code    string   `yaml:"code"`
	Aliases []string `yaml:"aliases"`
}

// IssuerResolver maps country names as collectors write them ("USA",
// "Soviet Union") onto catalog issuer codes. Results, including negative
// ones, are cached per session keyed by the normalized input.
type IssuerResolver struct {
	client  IssuerLister
	aliases map[string]string
	cache   map[string]string // normalized name -> code; "" is a cached miss
}

// NewIssuerResolver creates a resolver over the built-in alias table,
// overlaid with any extra alias entries.
func NewIssuerResolver(client IssuerLister, extra map[string]IssuerAlias) *IssuerResolver {
	aliases := make(map[string]string, len(builtinIssuerAliases))
	for alias, code := range builtinIssuerAliases {
		aliases[normalizeIssuerName(alias)] = code
	}
	for canonical, e := range extra {
		aliases[normalizeIssuerName(canonical)] = e.Code
		for _, a := range e.Aliases {
			aliases[normalizeIssuerName(a)] = e.Code
		}
	}
	return &IssuerResolver{
		client:  client,
		aliases: aliases,
		cache:   map[string]string{},
	}
}

// LoadIssuerAliases reads an external issuer alias table from YAML:
//
//	united-states:
//	  code: united-states
//	  aliases: [USA, "United States of America"]
func LoadIssuerAliases(path string) (map[string]IssuerAlias, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "match: read issuer alias table")
	}
	var table map[string]IssuerAlias
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, eris.Wrap(err, "match: parse issuer alias table")
	}
	return table, nil
}

// Resolve returns the issuer code for name, or "" when no confident match
// exists. A "" result is not an error; errors are transport failures from
// the issuer-list fetch.
func (r *IssuerResolver) Resolve(ctx context.Context, name string) (string, error) {
	key := normalizeIssuerName(name)
	if key == "" {
		return "", nil
	}
	if code, ok := r.cache[key]; ok {
		return code, nil
	}
	if code, ok := r.aliases[key]; ok {
		r.cache[key] = code
		return code, nil
	}

	issuers, err := r.client.GetIssuers(ctx)
	if err != nil {
		return "", err
	}

	code := pickIssuer(key, issuers)
	r.cache[key] = code
	return code, nil
}

// pickIssuer tries an exact case-insensitive name match, preferring the
// most specific (highest level) when hierarchical issuers share a name,
// then falls back to the best similarity match above the acceptance
// threshold, again breaking ties by level.
func pickIssuer(normalized string, issuers []numista.Issuer) string {
	var exact *numista.Issuer
	for i := range issuers {
		if normalizeIssuerName(issuers[i].Name) != normalized {
			continue
		}
		if exact == nil || issuers[i].Level > exact.Level {
			exact = &issuers[i]
		}
	}
	if exact != nil {
		return exact.Code
	}

	var best *numista.Issuer
	bestScore := 0.0
	for i := range issuers {
		score := textmatch.Similarity(normalized, normalizeIssuerName(issuers[i].Name))
		if score > bestScore || (score == bestScore && best != nil && issuers[i].Level > best.Level) {
			best = &issuers[i]
			bestScore = score
		}
	}
	if best != nil && bestScore >= issuerAcceptThreshold {
		return best.Code
	}
	return ""
}

func normalizeIssuerName(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// builtinIssuerAliases covers the country spellings collectors actually
// type. External tables overlay these.
var builtinIssuerAliases = map[string]string{
	"usa":                      "united-states",
	"us":                       "united-states",
	"united states":            "united-states",
	"united states of america": "united-states",
	"uk":                       "united-kingdom",
	"great britain":            "united-kingdom",
	"britain":                  "united-kingdom",
	"england":                  "united-kingdom",
	"ussr":                     "soviet-union",
	"soviet union":             "soviet-union",
	"cccp":                     "soviet-union",
	"russia":                   "russia",
	"russian empire":           "russia-empire",
	"germany":                  "germany",
	"west germany":             "germany-federal",
	"east germany":             "germany-democratic",
	"holland":                  "netherlands",
	"the netherlands":          "netherlands",
	"czechia":                  "czech-republic",
}
