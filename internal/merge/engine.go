package merge

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/open-collect/numisync/internal/model"
)

// Engine runs a mapping table against catalog data. The zero value is not
// usable; construct with NewEngine.
type Engine struct {
	mappings []FieldMapping
}

// NewEngine returns an engine over the default mapping table.
func NewEngine() *Engine {
	return &Engine{mappings: defaultMappings()}
}

// NewEngineWith returns an engine over a caller-supplied mapping table.
func NewEngineWith(mappings []FieldMapping) *Engine {
	return &Engine{mappings: mappings}
}

// Mappings exposes the table, e.g. for a settings UI that toggles fields.
func (e *Engine) Mappings() []FieldMapping {
	return e.mappings
}

// MapToLocalFields resolves every applicable mapping against src and
// returns the non-empty values keyed by local field name. Disabled
// mappings and mappings whose issue/pricing dependency is unmet are
// skipped.
func (e *Engine) MapToLocalFields(src Source) model.Updates {
	updates := model.Updates{}
	for _, m := range e.mappings {
		v, ok := e.resolve(m, src)
		if ok {
			updates[m.Field] = v
		}
	}
	return updates
}

// FieldDiff is one row of a comparison view.
type FieldDiff struct {
	Field        string
	Description  string
	Priority     Priority
	LocalValue   any
	CatalogValue any
	// Display is the human-readable form of CatalogValue; for reference
	// numbers it carries the catalog code prefix.
	Display     string
	IsDifferent bool
}

// Comparison is the full field-by-field diff of a record against catalog
// data.
type Comparison struct {
	Fields     []FieldDiff
	HasChanges bool
}

// Compare lines the record's current values up against the mapped catalog
// values. Only fields the catalog actually resolved appear. Rows are
// ordered differing-first, then by priority.
func (e *Engine) Compare(rec model.Record, src Source) Comparison {
	var cmp Comparison
	for _, m := range e.mappings {
		catalogVal, ok := e.resolve(m, src)
		if !ok {
			continue
		}
		localVal := rec.Get(m.Field)

		diff := FieldDiff{
			Field:        m.Field,
			Description:  m.Description,
			Priority:     m.Priority,
			LocalValue:   localVal,
			CatalogValue: catalogVal,
			Display:      displayValue(m, catalogVal),
			IsDifferent:  !valuesEqual(localVal, catalogVal),
		}
		if diff.IsDifferent {
			cmp.HasChanges = true
		}
		cmp.Fields = append(cmp.Fields, diff)
	}

	sort.SliceStable(cmp.Fields, func(i, j int) bool {
		a, b := cmp.Fields[i], cmp.Fields[j]
		if a.IsDifferent != b.IsDifferent {
			return a.IsDifferent
		}
		return a.Priority < b.Priority
	})
	return cmp
}

// Merge returns the subset of the mapped values the caller accepted.
// Selected fields the catalog did not resolve are silently omitted.
func (e *Engine) Merge(selections map[string]bool, src Source) model.Updates {
	mapped := e.MapToLocalFields(src)
	updates := model.Updates{}
	for field, v := range mapped {
		if selections[field] {
			updates[field] = v
		}
	}
	return updates
}

// resolve runs one mapping against the source, returning (value, true)
// only when the mapping applies and yields a non-empty value.
func (e *Engine) resolve(m FieldMapping, src Source) (any, bool) {
	if !m.Enabled || src.Type == nil {
		return nil, false
	}
	if m.RequiresIssue && src.Issue == nil {
		return nil, false
	}
	if m.RequiresPricing && src.Pricing == nil {
		return nil, false
	}

	v := m.Resolve(src)
	if m.Transform != nil && v != nil {
		v = m.Transform(v)
	}
	if isEmpty(v) {
		return nil, false
	}
	return v, true
}

// displayValue renders the catalog value for a comparison row.
func displayValue(m FieldMapping, v any) string {
	s := stringify(v)
	if m.CatalogCode != "" {
		return fmt.Sprintf("%s# %s", m.CatalogCode, s)
	}
	return s
}

// valuesEqual compares a local and a catalog value as trimmed,
// case-folded strings. Both-empty counts as equal; one-sided emptiness is
// a difference.
func valuesEqual(local, catalog any) bool {
	a := strings.TrimSpace(stringify(local))
	b := strings.TrimSpace(stringify(catalog))
	return strings.EqualFold(a, b)
}

// stringify coerces a mapped value to its canonical string form. Floats
// drop trailing zeros so 19.00 and 19.0 compare equal.
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		if t == 0 {
			return ""
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		if t == 0 {
			return ""
		}
		return strconv.Itoa(t)
	case int64:
		if t == 0 {
			return ""
		}
		return strconv.FormatInt(t, 10)
	default:
		return fmt.Sprintf("%v", t)
	}
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case float64:
		return t == 0
	case int:
		return t == 0
	case int64:
		return t == 0
	default:
		return false
	}
}
