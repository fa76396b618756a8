package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/open-collect/numisync/internal/model"
	"github.com/open-collect/numisync/pkg/numista"
)

func TestMatchIssue_NoIssues(t *testing.T) {
	res := MatchIssue(model.Record{Year: "1943"}, nil, DefaultIssueOptions())
	assert.Equal(t, OutcomeNoIssues, res.Outcome)
}

func TestMatchIssue_NoParseableYear(t *testing.T) {
	issues := []numista.Issue{{ID: 1, Year: 1920}, {ID: 2, Year: 1921}}

	for _, year := range []string{"", "circa 1920"} {
		res := MatchIssue(model.Record{Year: year}, issues, DefaultIssueOptions())
		assert.Equal(t, OutcomeUserPick, res.Outcome)
		assert.Len(t, res.Options, 2, "full list offered when the year cannot narrow")
	}
}

func TestMatchIssue_SingleYearMatch(t *testing.T) {
	issues := []numista.Issue{
		{ID: 1, Year: 1942},
		{ID: 2, Year: 1943},
		{ID: 3, Year: 1944},
	}
	res := MatchIssue(model.Record{Year: "1943"}, issues, DefaultIssueOptions())
	require.Equal(t, OutcomeAutoMatched, res.Outcome)
	assert.Equal(t, 2, res.Issue.ID)
}

func TestMatchIssue_GregorianYearPreferred(t *testing.T) {
	issues := []numista.Issue{
		{ID: 1, Year: 1361, GregorianYear: 1942},
		{ID: 2, Year: 1362, GregorianYear: 1943},
	}
	res := MatchIssue(model.Record{Year: "1943"}, issues, DefaultIssueOptions())
	require.Equal(t, OutcomeAutoMatched, res.Outcome)
	assert.Equal(t, 2, res.Issue.ID)
}

func TestMatchIssue_NoYearMatchesOffersEverything(t *testing.T) {
	issues := []numista.Issue{{ID: 1, Year: 1920}, {ID: 2, Year: 1921}}
	res := MatchIssue(model.Record{Year: "1950"}, issues, DefaultIssueOptions())
	assert.Equal(t, OutcomeUserPick, res.Outcome)
	assert.Len(t, res.Options, 2)
}

func TestMatchIssue_MintMarkNarrows(t *testing.T) {
	issues := []numista.Issue{
		{ID: 1, Year: 1943, MintLetter: "D"},
		{ID: 2, Year: 1943, MintLetter: "S"},
	}
	res := MatchIssue(model.Record{Year: "1943", Mintmark: "D"}, issues, DefaultIssueOptions())
	require.Equal(t, OutcomeAutoMatched, res.Outcome)
	assert.Equal(t, 1, res.Issue.ID)
	assert.True(t, res.Varying.MintMark)
}

func TestMatchIssue_MintCityNarrows(t *testing.T) {
	issues := []numista.Issue{
		{ID: 1, Year: 1943, MintLetter: "D"},
		{ID: 2, Year: 1943, MintLetter: "S"},
	}
	res := MatchIssue(model.Record{Year: "1943", Mintmark: "Denver"}, issues, DefaultIssueOptions())
	require.Equal(t, OutcomeAutoMatched, res.Outcome)
	assert.Equal(t, 1, res.Issue.ID)
}

func TestMatchIssue_EmptyMintmarkDefaultPolicy(t *testing.T) {
	// End-to-end scenario: 1943 blank-mintmark cent against D/blank/S issues.
	issues := []numista.Issue{
		{ID: 1, Year: 1943, MintLetter: "D"},
		{ID: 2, Year: 1943},
		{ID: 3, Year: 1944, MintLetter: "S"},
	}
	rec := model.Record{Year: "1943", Mintmark: "", Unit: "Cents", Value: 1}
	res := MatchIssue(rec, issues, DefaultIssueOptions())
	require.Equal(t, OutcomeAutoMatched, res.Outcome)
	assert.Equal(t, 2, res.Issue.ID)
}

func TestMatchIssue_EmptyMintmarkNoUnmarkedIssue(t *testing.T) {
	issues := []numista.Issue{
		{ID: 1, Year: 1943, MintLetter: "D"},
		{ID: 2, Year: 1943, MintLetter: "S"},
	}
	res := MatchIssue(model.Record{Year: "1943"}, issues, DefaultIssueOptions())
	assert.Equal(t, OutcomeUserPick, res.Outcome)
	// The offered set is the year-matched set, not the narrowed-to-empty one.
	assert.Len(t, res.Options, 2)
}

func TestMatchIssue_EmptyMintmarkUnknownPolicy(t *testing.T) {
	issues := []numista.Issue{
		{ID: 1, Year: 1943, MintLetter: "D"},
		{ID: 2, Year: 1943},
	}
	opts := IssueOptions{NoMarkMeansDefaultMint: false}
	res := MatchIssue(model.Record{Year: "1943"}, issues, opts)
	assert.Equal(t, OutcomeUserPick, res.Outcome)
	assert.Len(t, res.Options, 2)
}

func TestMatchIssue_CommentNarrowsProof(t *testing.T) {
	issues := []numista.Issue{
		{ID: 1, Year: 1950},
		{ID: 2, Year: 1950, Comment: "Proof strike"},
	}

	res := MatchIssue(model.Record{Year: "1950", Type: "Proof"}, issues, DefaultIssueOptions())
	require.Equal(t, OutcomeAutoMatched, res.Outcome)
	assert.Equal(t, 2, res.Issue.ID)
	assert.True(t, res.Varying.Comment)

	res = MatchIssue(model.Record{Year: "1950"}, issues, DefaultIssueOptions())
	require.Equal(t, OutcomeAutoMatched, res.Outcome)
	assert.Equal(t, 1, res.Issue.ID, "blank local type narrows to the uncommented issue")
}

func TestMatchIssue_MintMarkThenComment(t *testing.T) {
	issues := []numista.Issue{
		{ID: 1, Year: 1950, MintLetter: "A"},
		{ID: 2, Year: 1950, MintLetter: "A", Comment: "Proof"},
		{ID: 3, Year: 1950, MintLetter: "B"},
	}
	rec := model.Record{Year: "1950", Mintmark: "A", Type: "Proof"}
	res := MatchIssue(rec, issues, DefaultIssueOptions())
	require.Equal(t, OutcomeAutoMatched, res.Outcome)
	assert.Equal(t, 2, res.Issue.ID)
}

func TestMatchIssue_AmbiguityOffersYearMatchedSet(t *testing.T) {
	// Two identical-looking issues differing only by an unmappable privy
	// mark: filters cannot separate them, and the user sees both.
	issues := []numista.Issue{
		{ID: 1, Year: 1950, Marks: []numista.Mark{{ID: 10, Letters: "torch"}}},
		{ID: 2, Year: 1950},
		{ID: 3, Year: 1951},
	}
	res := MatchIssue(model.Record{Year: "1950"}, issues, DefaultIssueOptions())
	assert.Equal(t, OutcomeUserPick, res.Outcome)
	assert.Len(t, res.Options, 2)
	assert.True(t, res.Varying.Unmappable)
	assert.False(t, res.Varying.MintMark)
}

func TestMatchIssue_DifferentMarksSameCountStillVary(t *testing.T) {
	// One privy mark each, but a different mark: the issues are distinct
	// even though the counts agree.
	issues := []numista.Issue{
		{ID: 1, Year: 1950, Marks: []numista.Mark{{ID: 10, Letters: "torch"}}},
		{ID: 2, Year: 1950, Marks: []numista.Mark{{ID: 11, Letters: "acorn"}}},
	}
	res := MatchIssue(model.Record{Year: "1950"}, issues, DefaultIssueOptions())
	assert.Equal(t, OutcomeUserPick, res.Outcome)
	assert.True(t, res.Varying.Unmappable)
}

func TestMatchIssue_ReorderedMarksDoNotVary(t *testing.T) {
	issues := []numista.Issue{
		{ID: 1, Year: 1950, Marks: []numista.Mark{{ID: 10}, {ID: 11}}},
		{ID: 2, Year: 1950, Marks: []numista.Mark{{ID: 11}, {ID: 10}}},
	}
	res := MatchIssue(model.Record{Year: "1950"}, issues, DefaultIssueOptions())
	assert.Equal(t, OutcomeUserPick, res.Outcome)
	assert.False(t, res.Varying.Unmappable)
}

func TestMatchIssue_SignatureVariantsVary(t *testing.T) {
	issues := []numista.Issue{
		{ID: 1, Year: 1950, Signatures: []numista.Signature{{ID: 4, Name: "Roty"}}},
		{ID: 2, Year: 1950, Signatures: []numista.Signature{{ID: 5, Name: "Dupré"}}},
	}
	res := MatchIssue(model.Record{Year: "1950"}, issues, DefaultIssueOptions())
	assert.True(t, res.Varying.Unmappable)
}
