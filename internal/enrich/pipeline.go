// Package enrich orchestrates a record's journey from search through
// issue disambiguation to a merged update set.
package enrich

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/open-collect/numisync/internal/config"
	"github.com/open-collect/numisync/internal/enrichnote"
	"github.com/open-collect/numisync/internal/match"
	"github.com/open-collect/numisync/internal/merge"
	"github.com/open-collect/numisync/internal/model"
	"github.com/open-collect/numisync/internal/store"
	"github.com/open-collect/numisync/internal/units"
	"github.com/open-collect/numisync/pkg/numista"
)

// Candidate is one scored search hit.
type Candidate struct {
	Type       numista.Type
	Confidence int
}

// Result is what one enrichment pass produced.
type Result struct {
	RecordID   int64
	Candidates []Candidate
	// NeedsReview is set when no candidate cleared the auto-select
	// threshold; nothing was written and Candidates carries the choices.
	NeedsReview bool
	// NoMatch is set when the search produced nothing at all.
	NoMatch bool

	CatalogID    int
	Confidence   int
	Issue        match.IssueResult
	FieldsMerged int
}

// Pipeline wires the catalog client, matchers, merge engine, and store
// into the standard enrichment flow.
type Pipeline struct {
	cfg      config.EnrichConfig
	store    store.Store
	catalog  numista.Client
	units    *units.Normalizer
	scorer   *match.Scorer
	resolver *match.IssuerResolver
	engine   *merge.Engine
	codec    *enrichnote.Codec
}

// New creates a Pipeline with all dependencies.
func New(
	cfg config.EnrichConfig,
	st store.Store,
	catalog numista.Client,
	un *units.Normalizer,
	issuerAliases map[string]match.IssuerAlias,
) *Pipeline {
	return &Pipeline{
		cfg:      cfg,
		store:    st,
		catalog:  catalog,
		units:    un,
		scorer:   match.NewScorer(un),
		resolver: match.NewIssuerResolver(catalog, issuerAliases),
		engine:   merge.NewEngine(),
		codec:    enrichnote.NewCodec(),
	}
}

// SearchCandidates queries the catalog for a record and returns the hits
// scored and sorted best-first.
func (p *Pipeline) SearchCandidates(ctx context.Context, rec model.Record) ([]Candidate, error) {
	var opts []numista.SearchOption
	if rec.Country != "" {
		code, err := p.resolver.Resolve(ctx, rec.Country)
		if err != nil {
			return nil, eris.Wrap(err, "enrich: resolve issuer")
		}
		if code != "" {
			opts = append(opts, numista.WithIssuer(code))
		}
	}

	queries := p.searchQueries(rec)
	var types []numista.Type
	for _, q := range queries {
		resp, err := p.catalog.SearchTypes(ctx, q, opts...)
		if err != nil {
			return nil, eris.Wrapf(err, "enrich: search %q", q)
		}
		if len(resp.Types) > 0 {
			types = resp.Types
			break
		}
	}

	candidates := make([]Candidate, 0, len(types))
	for _, t := range types {
		candidates = append(candidates, Candidate{
			Type:       t,
			Confidence: p.scorer.Confidence(rec, t),
		})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Confidence > candidates[j].Confidence
	})
	return candidates, nil
}

// searchQueries builds the query attempts for a record: denomination
// first, then any homonym alternates, then the raw title as a last
// resort.
func (p *Pipeline) searchQueries(rec model.Record) []string {
	var queries []string
	seen := map[string]struct{}{}
	add := func(q string) {
		q = strings.TrimSpace(q)
		if q == "" {
			return
		}
		if _, ok := seen[q]; ok {
			return
		}
		seen[q] = struct{}{}
		queries = append(queries, q)
	}

	if rec.Unit != "" && rec.Value != 0 {
		primary := p.units.Normalize(rec.Unit)
		add(fmt.Sprintf("%s %s", trimFloat(rec.Value), p.units.SearchForm(primary, rec.Value)))
		for _, alt := range p.units.AlternateSearchForms(rec.Unit, rec.Value) {
			add(fmt.Sprintf("%s %s", trimFloat(rec.Value), alt))
		}
	}
	add(rec.Title)
	return queries
}

// Enrich runs the full flow for one stored record and persists the
// outcome. A USER_PICK issue result is reported, never forced: basic data
// still merges, the issue section is left pending.
func (p *Pipeline) Enrich(ctx context.Context, id int64) (*Result, error) {
	rec, err := p.store.GetByID(ctx, id)
	if err != nil {
		return nil, eris.Wrapf(err, "enrich: load record %d", id)
	}
	log := zap.L().With(zap.Int64("record", id), zap.String("title", rec.Title))

	res := &Result{RecordID: id}

	res.Candidates, err = p.SearchCandidates(ctx, *rec)
	if err != nil {
		if noteErr := p.markSection(ctx, rec, enrichnote.SectionBasic, enrichnote.Section{
			Status: enrichnote.StatusError,
			Detail: err.Error(),
		}); noteErr != nil {
			log.Warn("enrich: record error status", zap.Error(noteErr))
		}
		return nil, err
	}

	best, ok := p.selectCandidate(*rec, res.Candidates)
	if !ok {
		if len(res.Candidates) == 0 {
			res.NoMatch = true
			log.Info("enrich: no candidates")
			return res, p.markSection(ctx, rec, enrichnote.SectionBasic, enrichnote.Section{
				Status: enrichnote.StatusNoMatch,
			})
		}
		res.NeedsReview = true
		log.Info("enrich: below auto-select threshold",
			zap.Int("best", res.Candidates[0].Confidence),
			zap.Int("threshold", p.cfg.AutoSelectThreshold),
		)
		return res, nil
	}
	res.CatalogID = best.Type.ID
	res.Confidence = best.Confidence

	return res, p.Apply(ctx, rec, best.Type.ID, res)
}

// Apply fetches full data for a chosen catalog type and merges it into
// the record. It is also the entry point after a human resolves a
// NeedsReview result.
func (p *Pipeline) Apply(ctx context.Context, rec *model.Record, typeID int, res *Result) error {
	log := zap.L().With(zap.Int64("record", rec.ID), zap.Int("type", typeID))

	typ, err := p.catalog.GetType(ctx, typeID)
	if err != nil {
		if noteErr := p.markSection(ctx, rec, enrichnote.SectionBasic, enrichnote.Section{
			Status: enrichnote.StatusError,
			Detail: err.Error(),
		}); noteErr != nil {
			log.Warn("enrich: record error status", zap.Error(noteErr))
		}
		return eris.Wrapf(err, "enrich: fetch type %d", typeID)
	}

	issues, err := p.catalog.GetIssues(ctx, typeID)
	if err != nil {
		return eris.Wrapf(err, "enrich: fetch issues %d", typeID)
	}

	issueOpts := match.IssueOptions{NoMarkMeansDefaultMint: p.cfg.NoMarkMeansDefaultMint}
	res.Issue = match.MatchIssue(*rec, issues, issueOpts)

	src := merge.Source{Type: typ, Issue: res.Issue.Issue}

	if p.cfg.FetchPricing && res.Issue.Outcome == match.OutcomeAutoMatched {
		pricing, priceErr := p.catalog.GetIssuePricing(ctx, typeID, res.Issue.Issue.ID, p.cfg.Currency)
		if priceErr != nil {
			// Pricing is an extra; its failure must not lose the rest.
			log.Warn("enrich: pricing fetch failed", zap.Error(priceErr))
		} else {
			src.Pricing = pricing
		}
	}

	updates := p.autoUpdates(*rec, src)
	res.FieldsMerged = len(updates)

	note, err := p.noteAfterApply(rec.Note, typ, res, src)
	if err != nil {
		return err
	}
	updates[model.FieldNote] = note
	updates[model.FieldCatalogID] = typ.ID

	if err := p.store.Update(ctx, rec.ID, updates); err != nil {
		return eris.Wrapf(err, "enrich: update record %d", rec.ID)
	}
	log.Info("enrich: merged",
		zap.Int("fields", res.FieldsMerged),
		zap.String("issue_outcome", res.Issue.Outcome.String()),
	)
	return nil
}

// autoUpdates maps catalog data onto the record but only fills fields the
// collector has left empty. Overwrites are an interactive decision, never
// an automatic one.
func (p *Pipeline) autoUpdates(rec model.Record, src merge.Source) model.Updates {
	cmp := p.engine.Compare(rec, src)
	selections := map[string]bool{}
	for _, f := range cmp.Fields {
		if !f.IsDifferent {
			continue
		}
		local := strings.TrimSpace(fmt.Sprintf("%v", f.LocalValue))
		if local == "" || local == "0" {
			selections[f.Field] = true
		}
	}
	return p.engine.Merge(selections, src)
}

// noteAfterApply rewrites the record's note metadata for a completed
// apply pass.
func (p *Pipeline) noteAfterApply(note string, typ *numista.Type, res *Result, src merge.Source) (string, error) {
	note, err := p.codec.UpdateSection(note, enrichnote.SectionBasic, enrichnote.Section{
		Status:    enrichnote.StatusMerged,
		CatalogID: typ.ID,
	})
	if err != nil {
		return "", err
	}

	issuePatch := enrichnote.Section{CatalogID: typ.ID}
	switch res.Issue.Outcome {
	case match.OutcomeAutoMatched:
		issuePatch.Status = enrichnote.StatusMerged
		issuePatch.IssueID = res.Issue.Issue.ID
		issuePatch.Detail = issueDetail(*res.Issue.Issue)
	case match.OutcomeNoIssues:
		issuePatch.Status = enrichnote.StatusNoData
	default:
		issuePatch.Status = enrichnote.StatusPending
		issuePatch.Detail = fmt.Sprintf("%d issues need review", len(res.Issue.Options))
	}
	note, err = p.codec.UpdateSection(note, enrichnote.SectionIssue, issuePatch)
	if err != nil {
		return "", err
	}

	pricingPatch := enrichnote.Section{CatalogID: typ.ID}
	switch {
	case src.Pricing != nil:
		pricingPatch.Status = enrichnote.StatusMerged
	case p.cfg.FetchPricing:
		pricingPatch.Status = enrichnote.StatusNoData
	default:
		pricingPatch.Status = enrichnote.StatusSkipped
	}
	return p.codec.UpdateSection(note, enrichnote.SectionPricing, pricingPatch)
}

// markSection persists a single section-status change on a record.
func (p *Pipeline) markSection(ctx context.Context, rec *model.Record, name string, patch enrichnote.Section) error {
	note, err := p.codec.UpdateSection(rec.Note, name, patch)
	if err != nil {
		return err
	}
	return p.store.Update(ctx, rec.ID, model.Updates{model.FieldNote: note})
}

// selectCandidate applies the auto-select policy: a prior catalog link
// always wins; otherwise the best score must clear the threshold.
func (p *Pipeline) selectCandidate(rec model.Record, candidates []Candidate) (Candidate, bool) {
	if rec.CatalogID != 0 {
		for _, c := range candidates {
			if c.Type.ID == rec.CatalogID {
				return c, true
			}
		}
	}
	if len(candidates) > 0 && candidates[0].Confidence >= p.cfg.AutoSelectThreshold {
		return candidates[0], true
	}
	return Candidate{}, false
}

func issueDetail(is numista.Issue) string {
	parts := []string{fmt.Sprintf("%d", is.CalendarYear())}
	if is.MintLetter != "" {
		parts = append(parts, is.MintLetter)
	}
	if is.Comment != "" {
		parts = append(parts, is.Comment)
	}
	return strings.Join(parts, " ")
}

func trimFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
