package match

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/open-collect/numisync/pkg/numista"
)

type fakeIssuerLister struct {
	issuers []numista.Issuer
	err     error
	calls   int
}

func (f *fakeIssuerLister) GetIssuers(context.Context) ([]numista.Issuer, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.issuers, nil
}

func TestIssuerResolver_AliasHit(t *testing.T) {
	lister := &fakeIssuerLister{}
	r := NewIssuerResolver(lister, nil)

	for _, name := range []string{"USA", "usa", "  United   States "} {
		code, err := r.Resolve(context.Background(), name)
		require.NoError(t, err)
		assert.Equal(t, "united-states", code, name)
	}
	assert.Zero(t, lister.calls, "alias hits never fetch the issuer list")
}

func TestIssuerResolver_ExtraAliasesOverlayBuiltins(t *testing.T) {
	extra := map[string]IssuerAlias{
		"russia": {Code: "russia-empire", Aliases: []string{"Tsarist Russia"}},
	}
	r := NewIssuerResolver(&fakeIssuerLister{}, extra)

	code, err := r.Resolve(context.Background(), "Tsarist Russia")
	require.NoError(t, err)
	assert.Equal(t, "russia-empire", code)

	code, err = r.Resolve(context.Background(), "Russia")
	require.NoError(t, err)
	assert.Equal(t, "russia-empire", code, "extra table wins over the built-in entry")
}

func TestIssuerResolver_ExactNamePrefersHighestLevel(t *testing.T) {
	lister := &fakeIssuerLister{issuers: []numista.Issuer{
		{Code: "luxembourg", Name: "Luxembourg", Level: 1},
		{Code: "luxembourg-city", Name: "Luxembourg", Level: 3},
	}}
	r := NewIssuerResolver(lister, nil)

	code, err := r.Resolve(context.Background(), "Luxembourg")
	require.NoError(t, err)
	assert.Equal(t, "luxembourg-city", code)
}

func TestIssuerResolver_FuzzyMatch(t *testing.T) {
	lister := &fakeIssuerLister{issuers: []numista.Issuer{
		{Code: "austria", Name: "Austria", Level: 1},
		{Code: "australia", Name: "Australia", Level: 1},
	}}
	r := NewIssuerResolver(lister, nil)

	code, err := r.Resolve(context.Background(), "Austia")
	require.NoError(t, err)
	assert.Equal(t, "austria", code)
}

func TestIssuerResolver_BelowThresholdIsMiss(t *testing.T) {
	lister := &fakeIssuerLister{issuers: []numista.Issuer{
		{Code: "japan", Name: "Japan", Level: 1},
	}}
	r := NewIssuerResolver(lister, nil)

	code, err := r.Resolve(context.Background(), "Kingdom of Zanzibar")
	require.NoError(t, err)
	assert.Empty(t, code)
}

func TestIssuerResolver_CachesResultsIncludingMisses(t *testing.T) {
	lister := &fakeIssuerLister{issuers: []numista.Issuer{
		{Code: "france", Name: "France", Level: 1},
	}}
	r := NewIssuerResolver(lister, nil)

	for i := 0; i < 3; i++ {
		code, err := r.Resolve(context.Background(), "France")
		require.NoError(t, err)
		assert.Equal(t, "france", code)
	}
	assert.Equal(t, 1, lister.calls)

	for i := 0; i < 3; i++ {
		code, err := r.Resolve(context.Background(), "Atlantis")
		require.NoError(t, err)
		assert.Empty(t, code)
	}
	assert.Equal(t, 2, lister.calls, "negative results are cached too")
}

func TestIssuerResolver_EmptyName(t *testing.T) {
	lister := &fakeIssuerLister{}
	r := NewIssuerResolver(lister, nil)

	code, err := r.Resolve(context.Background(), "   ")
	require.NoError(t, err)
	assert.Empty(t, code)
	assert.Zero(t, lister.calls)
}

func TestIssuerResolver_FetchErrorPropagates(t *testing.T) {
	lister := &fakeIssuerLister{err: eris.New("issuers: boom")}
	r := NewIssuerResolver(lister, nil)

	_, err := r.Resolve(context.Background(), "Ruritania")
	require.Error(t, err)

	// An error is not cached as a miss; the next call retries.
	lister.err = nil
	lister.issuers = []numista.Issuer{{Code: "ruritania", Name: "Ruritania", Level: 1}}
	code, err := r.Resolve(context.Background(), "Ruritania")
	require.NoError(t, err)
	assert.Equal(t, "ruritania", code)
}

func TestLoadIssuerAliases(t *testing.T) {
	path := filepath.Join(t.TempDir(), "issuers.yaml")
	data := `
united-states:
  code: united-states
  aliases: [USA, "United States of America"]
straits:
  code: straits-settlements
  aliases: ["Straits"]
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	table, err := LoadIssuerAliases(path)
	require.NoError(t, err)
	require.Len(t, table, 2)
	assert.Equal(t, "straits-settlements", table["straits"].Code)
	assert.Equal(t, []string{"USA", "United States of America"}, table["united-states"].Aliases)
}

func TestLoadIssuerAliases_MissingFile(t *testing.T) {
	_, err := LoadIssuerAliases(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
