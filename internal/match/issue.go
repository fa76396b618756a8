package match

import (
	"strings"

	"github.com/open-collect/numisync/internal/mintmark"
	"github.com/open-collect/numisync/internal/model"
	"github.com/open-collect/numisync/pkg/numista"
)

// Outcome is the closed set of issue-match results.
type Outcome int

const (
	// OutcomeNoIssues means the candidate type has no issue history.
	OutcomeNoIssues Outcome = iota
	// OutcomeNoMatch means nothing plausible was found at all.
	OutcomeNoMatch
	// OutcomeAutoMatched means filtering narrowed to exactly one issue.
	OutcomeAutoMatched
	// OutcomeUserPick means the match is ambiguous; a human chooses from
	// Options.
	OutcomeUserPick
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNoIssues:
		return "no_issues"
	case OutcomeNoMatch:
		return "no_match"
	case OutcomeAutoMatched:
		return "auto_matched"
	case OutcomeUserPick:
		return "user_pick"
	default:
		return "unknown"
	}
}

// Varying flags which optional fields actually differ across the
// year-matched issue set. Marks and signatures have no local counterpart;
// they are reported so a UI can warn, but never filter.
type Varying struct {
	MintMark   bool
	Comment    bool
	Unmappable bool
}

// IssueResult is the outcome of disambiguating a type's issues against a
// local record.
type IssueResult struct {
	Outcome Outcome
	Issue   *numista.Issue  // set for OutcomeAutoMatched
	Options []numista.Issue // set for OutcomeUserPick
	Varying Varying
}

// IssueOptions configures disambiguation policy.
type IssueOptions struct {
	// NoMarkMeansDefaultMint controls what an empty local mintmark
	// asserts. True (default): the coin has no mark, so only unmarked
	// issues qualify. False: the field is simply unknown and cannot
	// narrow anything.
	NoMarkMeansDefaultMint bool
}

// DefaultIssueOptions returns the default disambiguation policy.
func DefaultIssueOptions() IssueOptions {
	return IssueOptions{NoMarkMeansDefaultMint: true}
}

// narrowFunc is one narrowing strategy: it returns the subset of issues
// compatible with the local record, plus false when the strategy declines
// to narrow (nothing varies, or policy says the local field is not a
// positive assertion).
type narrowFunc func(rec model.Record, issues []numista.Issue, v Varying, opts IssueOptions) ([]numista.Issue, bool)

// narrowers run in a fixed order; the first strategy that narrows to a
// single survivor ends the match.
var narrowers = []narrowFunc{narrowByMintMark, narrowByComment}

// MatchIssue disambiguates which of a type's issues corresponds to rec.
// Filters narrow toward exactly one survivor; any ambiguity falls back to
// a USER_PICK over the full year-matched set, never over a
// partially-filtered subset.
func MatchIssue(rec model.Record, issues []numista.Issue, opts IssueOptions) IssueResult {
	if len(issues) == 0 {
		return IssueResult{Outcome: OutcomeNoIssues}
	}

	year, ok, err := rec.ParsedYear()
	if err != nil || !ok {
		// Without a year nothing can be narrowed.
		return IssueResult{Outcome: OutcomeUserPick, Options: issues}
	}

	var yearMatched []numista.Issue
	for _, is := range issues {
		if is.CalendarYear() == year {
			yearMatched = append(yearMatched, is)
		}
	}

	switch len(yearMatched) {
	case 0:
		// Let the user choose from everything rather than report no match.
		return IssueResult{Outcome: OutcomeUserPick, Options: issues}
	case 1:
		return IssueResult{Outcome: OutcomeAutoMatched, Issue: &yearMatched[0]}
	}

	varying := varyingFields(yearMatched)

	candidates := yearMatched
	for _, narrow := range narrowers {
		narrowed, applied := narrow(rec, candidates, varying, opts)
		if !applied {
			continue
		}
		switch len(narrowed) {
		case 0:
			// Narrowed to nothing: offer the year-matched set, not the
			// empty one.
			return IssueResult{Outcome: OutcomeUserPick, Options: yearMatched, Varying: varying}
		case 1:
			return IssueResult{Outcome: OutcomeAutoMatched, Issue: &narrowed[0], Varying: varying}
		}
		candidates = narrowed
	}

	if len(candidates) == 1 {
		return IssueResult{Outcome: OutcomeAutoMatched, Issue: &candidates[0], Varying: varying}
	}
	return IssueResult{Outcome: OutcomeUserPick, Options: yearMatched, Varying: varying}
}

// varyingFields inspects which optional attributes differ across the set.
func varyingFields(issues []numista.Issue) Varying {
	var v Varying
	first := issues[0]
	firstMark := mintmark.Normalize(first.MintLetter)
	for _, is := range issues[1:] {
		if mintmark.Normalize(is.MintLetter) != firstMark {
			v.MintMark = true
		}
		if !strings.EqualFold(strings.TrimSpace(is.Comment), strings.TrimSpace(first.Comment)) {
			v.Comment = true
		}
		if !sameIDSet(markIDs(is.Marks), markIDs(first.Marks)) ||
			!sameIDSet(signatureIDs(is.Signatures), signatureIDs(first.Signatures)) {
			v.Unmappable = true
		}
	}
	return v
}

// sameIDSet compares two id multisets irrespective of listing order.
func sameIDSet(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[int]int, len(a))
	for _, id := range a {
		counts[id]++
	}
	for _, id := range b {
		if counts[id] == 0 {
			return false
		}
		counts[id]--
	}
	return true
}

func markIDs(marks []numista.Mark) []int {
	ids := make([]int, len(marks))
	for i, m := range marks {
		ids[i] = m.ID
	}
	return ids
}

func signatureIDs(sigs []numista.Signature) []int {
	ids := make([]int, len(sigs))
	for i, s := range sigs {
		ids[i] = s.ID
	}
	return ids
}

func narrowByMintMark(rec model.Record, issues []numista.Issue, v Varying, opts IssueOptions) ([]numista.Issue, bool) {
	if !v.MintMark {
		return issues, false
	}

	local := strings.TrimSpace(rec.Mintmark)
	if local == "" && !opts.NoMarkMeansDefaultMint {
		// Policy: an empty field is unknown, not "no mark"; defer to the
		// user instead of guessing.
		return nil, true
	}

	var out []numista.Issue
	for _, is := range issues {
		if mintmark.Match(local, is.MintLetter) {
			out = append(out, is)
		}
	}
	return out, true
}

func narrowByComment(rec model.Record, issues []numista.Issue, v Varying, _ IssueOptions) ([]numista.Issue, bool) {
	if !v.Comment {
		return issues, false
	}

	local := strings.TrimSpace(rec.Type)
	var keep func(comment string) bool
	switch {
	case local == "":
		keep = func(comment string) bool { return strings.TrimSpace(comment) == "" }
	default:
		needle := strings.ToLower(local)
		keep = func(comment string) bool {
			return strings.Contains(strings.ToLower(comment), needle)
		}
	}

	var out []numista.Issue
	for _, is := range issues {
		if keep(is.Comment) {
			out = append(out, is)
		}
	}
	return out, true
}
