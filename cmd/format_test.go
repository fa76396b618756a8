//go:build !integration

package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/open-collect/numisync/internal/enrich"
	"github.com/open-collect/numisync/internal/enrichnote"
	"github.com/open-collect/numisync/internal/match"
	"github.com/open-collect/numisync/internal/model"
	"github.com/open-collect/numisync/pkg/numista"
)

func TestFormatCandidates(t *testing.T) {
	candidates := []enrich.Candidate{
		{
			Type: numista.Type{
				ID:      1374,
				Title:   `1 Cent "Lincoln Wheat Penny"`,
				Issuer:  numista.Issuer{Code: "etats-unis", Name: "United States"},
				MinYear: 1909,
				MaxYear: 1958,
			},
			Confidence: 95,
		},
		{
			Type: numista.Type{
				ID:      420,
				Title:   "1 Cent",
				Issuer:  numista.Issuer{Code: "canada", Name: "Canada"},
				MinYear: 1937,
				MaxYear: 1937,
			},
			Confidence: 40,
		},
	}

	var buf bytes.Buffer
	formatCandidates(&buf, candidates)

	output := buf.String()
	assert.Contains(t, output, "TYPE")
	assert.Contains(t, output, "CONF")
	assert.Contains(t, output, "1374")
	assert.Contains(t, output, "Lincoln Wheat Penny")
	assert.Contains(t, output, "United States")
	assert.Contains(t, output, "1909-1958")
	assert.Contains(t, output, "95")
	// Single-year range collapses.
	assert.Contains(t, output, "1937")
	assert.NotContains(t, output, "1937-1937")
}

func TestPrintEnrichResult_Merged(t *testing.T) {
	res := &enrich.Result{
		RecordID:     7,
		CatalogID:    1374,
		Confidence:   95,
		FieldsMerged: 4,
		Issue: match.IssueResult{
			Outcome: match.OutcomeAutoMatched,
			Issue:   &numista.Issue{ID: 102, Year: 1943, MintLetter: "D"},
		},
	}

	var buf bytes.Buffer
	printEnrichResult(&buf, res)

	output := buf.String()
	assert.Contains(t, output, "merged 4 field(s)")
	assert.Contains(t, output, "type 1374")
	assert.Contains(t, output, "confidence 95")
	assert.Contains(t, output, "matched 1943 D")
}

func TestPrintEnrichResult_NeedsReview(t *testing.T) {
	res := &enrich.Result{
		RecordID:    7,
		NeedsReview: true,
		Candidates: []enrich.Candidate{
			{Type: numista.Type{ID: 1374, Title: "1 Cent"}, Confidence: 60},
		},
	}

	var buf bytes.Buffer
	printEnrichResult(&buf, res)

	output := buf.String()
	assert.Contains(t, output, "--type")
	assert.Contains(t, output, "1374")
}

func TestPrintEnrichResult_NoMatch(t *testing.T) {
	var buf bytes.Buffer
	printEnrichResult(&buf, &enrich.Result{RecordID: 7, NoMatch: true})
	assert.Contains(t, buf.String(), "no catalog matches")
}

func TestFormatStatusList(t *testing.T) {
	codec := enrichnote.NewCodec()
	note, err := codec.UpdateSection("Coffee tin.", enrichnote.SectionBasic, enrichnote.Section{
		Status:    enrichnote.StatusMerged,
		Timestamp: time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	records := []model.Record{
		{ID: 1, Title: "Wheat Penny", Country: "United States", CatalogID: 1374, Note: note},
		{ID: 2, Title: "Mystery Token", Country: "Canada"},
	}

	var buf bytes.Buffer
	formatStatusList(&buf, codec, records, false)

	output := buf.String()
	assert.Contains(t, output, "Wheat Penny")
	assert.Contains(t, output, "1374")
	assert.Contains(t, output, string(enrichnote.OverallPartial))
	assert.Contains(t, output, "Mystery Token")
	assert.Contains(t, output, string(enrichnote.OverallPending))
}

func TestFormatRecordStatus(t *testing.T) {
	codec := enrichnote.NewCodec()
	note, err := codec.UpdateSection("", enrichnote.SectionBasic, enrichnote.Section{
		Status:    enrichnote.StatusMerged,
		CatalogID: 1374,
		Timestamp: time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	rec := model.Record{ID: 1, Title: "Wheat Penny", CatalogID: 1374, Note: note}

	var buf bytes.Buffer
	formatRecordStatus(&buf, codec, rec, false)

	output := buf.String()
	assert.Contains(t, output, "Record 1: Wheat Penny (catalog type 1374)")
	assert.Contains(t, output, "basicData")
	assert.Contains(t, output, "MERGED")
	assert.Contains(t, output, "2026-05-01")
	assert.Contains(t, output, "issueData")
	assert.Contains(t, output, "NOT_QUERIED")
	assert.Contains(t, output, "Pricing freshness: NEVER_UPDATED")
}

func TestRowToRecord(t *testing.T) {
	headers := []string{"Title", "Country", "Year", "Value", "Unit", "Mintmark", "Type", "Note"}
	row := []string{"Wheat Penny", "United States", "1943", "1", "Cents", "D", "", "Coffee tin."}

	rec, err := rowToRecord(headers, row)
	require.NoError(t, err)
	assert.Equal(t, "Wheat Penny", rec.Title)
	assert.Equal(t, "United States", rec.Country)
	assert.Equal(t, "1943", rec.Year)
	assert.Equal(t, 1.0, rec.Value)
	assert.Equal(t, "Cents", rec.Unit)
	assert.Equal(t, "D", rec.Mintmark)
	assert.Equal(t, "Coffee tin.", rec.Note)
}

func TestRowToRecord_BadValue(t *testing.T) {
	headers := []string{"Title", "Value"}
	_, err := rowToRecord(headers, []string{"Wheat Penny", "one"})
	assert.Error(t, err)
}

func TestRowToRecord_ShortRow(t *testing.T) {
	headers := []string{"Title", "Country", "Year"}
	rec, err := rowToRecord(headers, []string{"Wheat Penny"})
	require.NoError(t, err)
	assert.Equal(t, "Wheat Penny", rec.Title)
	assert.Empty(t, rec.Country)
}
