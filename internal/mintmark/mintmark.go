// Package mintmark canonicalizes mint-mark and mint-city strings to short
// comparable codes ("Denver" and "(D)" both become "D").
package mintmark

import "strings"

// usMints maps US mint city names to their letter codes. Consulted before
// the world table so that overlapping city names keep their US meaning.
var usMints = map[string]string{
	"philadelphia":  "P",
	"denver":        "D",
	"san francisco": "S",
	"west point":    "W",
	"new orleans":   "O",
	"carson city":   "CC",
	"charlotte":     "C",
	"dahlonega":     "D",
}

// worldMints maps non-US mint cities to their conventional marks. Only
// consulted for names absent from the US table.
var worldMints = map[string]string{
	"london":           "",
	"royal mint":       "",
	"heaton":           "H",
	"birmingham":       "H",
	"ottawa":           "C",
	"paris":            "A",
	"bordeaux":         "K",
	"lille":            "W",
	"rouen":            "B",
	"strasbourg":       "BB",
	"berlin":           "A",
	"munich":           "D",
	"muldenhütten":     "E",
	"stuttgart":        "F",
	"karlsruhe":        "G",
	"hamburg":          "J",
	"vienna":           "A",
	"kremnica":         "B",
	"rome":             "R",
	"milan":            "M",
	"madrid":           "M",
	"mexico city":      "Mo",
	"saint petersburg": "СПБ",
	"st petersburg":    "СПБ",
	"moscow":           "ММД",
	"leningrad":        "ЛМД",
	"tokyo":            "",
	"osaka":            "",
	"perth":            "P",
	"sydney":           "S",
	"melbourne":        "M",
	"canberra":         "",
	"bombay":           "B",
	"mumbai":           "B",
	"calcutta":         "C",
	"kolkata":          "C",
	"hyderabad":        "*",
	"noida":            "°",
	"pretoria":         "SA",
	"utrecht":          "",
	"brussels":         "",
	"bern":             "B",
	"lisbon":           "",
	"kremnitz":         "KB",
	"warsaw":           "MW",
	"prague":           "",
}

// replacer strips the wrapping punctuation collectors commonly type
// around a mark: "(D)", "[D]", "D.".
var replacer = strings.NewReplacer("(", "", ")", "", "[", "", "]", "", ".", "")

// Normalize resolves raw to a comparable mark code. City names resolve via
// the US table first, then the world table; anything else is stripped of
// brackets and periods and uppercased. Empty input normalizes to the empty
// string, meaning "no mint mark".
func Normalize(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	key := strings.ToLower(s)
	if code, ok := usMints[key]; ok {
		return code
	}
	if code, ok := worldMints[key]; ok {
		return code
	}
	return strings.ToUpper(strings.TrimSpace(replacer.Replace(s)))
}

// Match reports whether a and b normalize to the same mark. Two empty
// forms match: both assert the absence of a mark.
func Match(a, b string) bool {
	return Normalize(a) == Normalize(b)
}
