// Package merge maps catalog data onto local-record fields, detects
// conflicts, and produces update sets for the stores to apply.
package merge

import (
	"strings"

	"github.com/open-collect/numisync/internal/model"
	"github.com/open-collect/numisync/pkg/numista"
)

// Priority orders fields in comparison views. Higher-priority fields are
// the ones a collector most wants filled.
type Priority int

const (
	PriorityHigh Priority = iota
	PriorityMedium
	PriorityLow
)

func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "high"
	case PriorityMedium:
		return "medium"
	case PriorityLow:
		return "low"
	default:
		return "unknown"
	}
}

// Source bundles everything a merge pass can draw from. Type is always
// required; Issue and Pricing are optional and gate the mappings that
// depend on them.
type Source struct {
	Type    *numista.Type
	Issue   *numista.Issue
	Pricing *numista.PricingSnapshot
}

// resolveFunc extracts one leaf value from the source. A nil return means
// the catalog has nothing for this field.
type resolveFunc func(src Source) any

// FieldMapping declares how one local field is filled from catalog data.
type FieldMapping struct {
	Field       string
	Description string
	Priority    Priority
	Enabled     bool

	// Data dependencies. A mapping whose dependency is absent from the
	// source is skipped, not emitted as empty.
	RequiresIssue   bool
	RequiresPricing bool

	// CatalogCode marks reference-number fields ("KM", "Y"); these get a
	// "<Code># <number>" display form distinct from the stored value.
	CatalogCode string

	Resolve   resolveFunc
	Transform func(any) any
}

// priceGradeFields fixes the association between the four local price
// tiers and catalog pricing grades.
var priceGradeFields = []struct {
	field string
	grade string
}{
	{model.FieldPrice1, "vg"},
	{model.FieldPrice2, "f"},
	{model.FieldPrice3, "vf"},
	{model.FieldPrice4, "xf"},
}

func defaultMappings() []FieldMapping {
	m := []FieldMapping{
		{
			Field:       model.FieldCatalogID,
			Description: "Catalog type id",
			Priority:    PriorityHigh,
			Enabled:     true,
			Resolve: func(src Source) any {
				if src.Type.ID == 0 {
					return nil
				}
				return src.Type.ID
			},
		},
		{
			Field:       model.FieldSubject,
			Description: "Catalog title",
			Priority:    PriorityHigh,
			Enabled:     true,
			Resolve:     func(src Source) any { return src.Type.Title },
			Transform:   trimString,
		},
		{
			Field:       model.FieldMaterial,
			Description: "Composition",
			Priority:    PriorityHigh,
			Enabled:     true,
			Resolve: func(src Source) any {
				if src.Type.Composition == nil {
					return nil
				}
				return src.Type.Composition.Text
			},
			Transform: trimString,
		},
		{
			Field:       model.FieldWeight,
			Description: "Weight (g)",
			Priority:    PriorityHigh,
			Enabled:     true,
			Resolve:     func(src Source) any { return src.Type.Weight },
		},
		{
			Field:       model.FieldDiameter,
			Description: "Diameter (mm)",
			Priority:    PriorityHigh,
			Enabled:     true,
			Resolve:     func(src Source) any { return src.Type.Size },
		},
		{
			Field:       model.FieldThickness,
			Description: "Thickness (mm)",
			Priority:    PriorityMedium,
			Enabled:     true,
			Resolve:     func(src Source) any { return src.Type.Thickness },
		},
		{
			Field:       model.FieldShape,
			Description: "Shape",
			Priority:    PriorityMedium,
			Enabled:     true,
			Resolve:     func(src Source) any { return src.Type.Shape },
			Transform:   trimString,
		},
		{
			Field:       model.FieldEdge,
			Description: "Edge",
			Priority:    PriorityMedium,
			Enabled:     true,
			Resolve: func(src Source) any {
				if src.Type.Edge == nil {
					return nil
				}
				return src.Type.Edge.Description
			},
			Transform: trimString,
		},
		{
			Field:       model.FieldObverseDesign,
			Description: "Obverse design",
			Priority:    PriorityLow,
			Enabled:     true,
			Resolve: func(src Source) any {
				if src.Type.Obverse == nil {
					return nil
				}
				return src.Type.Obverse.Description
			},
			Transform: trimString,
		},
		{
			Field:       model.FieldReverseDesign,
			Description: "Reverse design",
			Priority:    PriorityLow,
			Enabled:     true,
			Resolve: func(src Source) any {
				if src.Type.Reverse == nil {
					return nil
				}
				return src.Type.Reverse.Description
			},
			Transform: trimString,
		},
		{
			Field:       model.FieldCatalogNum1,
			Description: "Krause number",
			Priority:    PriorityHigh,
			Enabled:     true,
			CatalogCode: "KM",
			Resolve:     func(src Source) any { return referenceNumber(src.Type, "KM") },
		},
		{
			Field:       model.FieldCatalogNum2,
			Description: "Yeoman number",
			Priority:    PriorityMedium,
			Enabled:     true,
			CatalogCode: "Y",
			Resolve:     func(src Source) any { return referenceNumber(src.Type, "Y") },
		},
		{
			Field:       model.FieldURL,
			Description: "Catalog page",
			Priority:    PriorityLow,
			Enabled:     true,
			Resolve:     func(src Source) any { return src.Type.URL },
		},
		{
			Field:       model.FieldObverseImg,
			Description: "Obverse image",
			Priority:    PriorityLow,
			Enabled:     true,
			Resolve: func(src Source) any {
				if src.Type.Obverse == nil {
					return nil
				}
				return src.Type.Obverse.Picture
			},
		},
		{
			Field:       model.FieldReverseImg,
			Description: "Reverse image",
			Priority:    PriorityLow,
			Enabled:     true,
			Resolve: func(src Source) any {
				if src.Type.Reverse == nil {
					return nil
				}
				return src.Type.Reverse.Picture
			},
		},
		{
			Field:         model.FieldMintage,
			Description:   "Mintage",
			Priority:      PriorityMedium,
			Enabled:       true,
			RequiresIssue: true,
			Resolve:       func(src Source) any { return src.Issue.Mintage },
		},
	}

	for _, pg := range priceGradeFields {
		grade := pg.grade
		m = append(m, FieldMapping{
			Field:           pg.field,
			Description:     "Price " + strings.ToUpper(grade),
			Priority:        PriorityMedium,
			Enabled:         true,
			RequiresPricing: true,
			Resolve:         func(src Source) any { return priceForGrade(src.Pricing, grade) },
		})
	}
	return m
}

// referenceNumber finds the type's reference number for a catalog code
// ("KM", "Y", "Schön").
func referenceNumber(t *numista.Type, code string) any {
	for _, ref := range t.References {
		if strings.EqualFold(ref.Catalogue.Code, code) {
			return ref.Number
		}
	}
	return nil
}

// priceForGrade looks up the snapshot price at a given grade code.
func priceForGrade(p *numista.PricingSnapshot, grade string) any {
	for _, pr := range p.Prices {
		if strings.EqualFold(pr.Grade, grade) {
			return pr.Price
		}
	}
	return nil
}

func trimString(v any) any {
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return v
}
