// Package model holds the local collection record and the field
// vocabulary shared by the merge engine and the record stores.
package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Record is a local collection record. Year is kept as the raw string the
// collector typed; use ParsedYear before anything numeric.
type Record struct {
	ID       int64   `json:"id"`
	Title    string  `json:"title"`
	Country  string  `json:"country"`
	Year     string  `json:"year"`
	Value    float64 `json:"value"`
	Unit     string  `json:"unit"`
	Mintmark string  `json:"mintmark"`
	Type     string  `json:"type"` // strike/variant label: "Proof", "Pattern", ""
	Note     string  `json:"note"` // free text; carries the embedded enrichment block

	// CatalogID links to the catalog type a previous enrichment matched.
	CatalogID int `json:"catalog_id,omitempty"`

	// Fields populated by catalog merges.
	Subject         string  `json:"subject,omitempty"`
	Material        string  `json:"material,omitempty"`
	Weight          float64 `json:"weight,omitempty"`
	Diameter        float64 `json:"diameter,omitempty"`
	Thickness       float64 `json:"thickness,omitempty"`
	Shape           string  `json:"shape,omitempty"`
	EdgeDescription string  `json:"edge,omitempty"`
	ObverseDesign   string  `json:"obverse_design,omitempty"`
	ReverseDesign   string  `json:"reverse_design,omitempty"`
	Mintage         int64   `json:"mintage,omitempty"`
	CatalogNum1     string  `json:"catalognum1,omitempty"`
	CatalogNum2     string  `json:"catalognum2,omitempty"`
	Price1          float64 `json:"price1,omitempty"`
	Price2          float64 `json:"price2,omitempty"`
	Price3          float64 `json:"price3,omitempty"`
	Price4          float64 `json:"price4,omitempty"`
	URL             string  `json:"url,omitempty"`
	ObverseImgURL   string  `json:"obverseimg_url,omitempty"`
	ReverseImgURL   string  `json:"reverseimg_url,omitempty"`
}

// Field names as stored. The merge engine emits update maps keyed by
// these; the stores map them onto columns.
const (
	FieldID            = "id"
	FieldTitle         = "title"
	FieldCountry       = "country"
	FieldYear          = "year"
	FieldValue         = "value"
	FieldUnit          = "unit"
	FieldMintmark      = "mintmark"
	FieldType          = "type"
	FieldNote          = "note"
	FieldCatalogID     = "catalog_id"
	FieldSubject       = "subject"
	FieldMaterial      = "material"
	FieldWeight        = "weight"
	FieldDiameter      = "diameter"
	FieldThickness     = "thickness"
	FieldShape         = "shape"
	FieldEdge          = "edge"
	FieldObverseDesign = "obverse_design"
	FieldReverseDesign = "reverse_design"
	FieldMintage       = "mintage"
	FieldCatalogNum1   = "catalognum1"
	FieldCatalogNum2   = "catalognum2"
	FieldPrice1        = "price1"
	FieldPrice2        = "price2"
	FieldPrice3        = "price3"
	FieldPrice4        = "price4"
	FieldURL           = "url"
	FieldObverseImg    = "obverseimg_url"
	FieldReverseImg    = "reverseimg_url"
)

// Updates is a partial record as a field-name → value map, the unit of
// change flowing from the merge engine into a store Update call.
type Updates map[string]any

// ValidationError reports malformed local input, e.g. an unparseable year.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// ParsedYear returns the record's year as an integer. A blank year is not
// an error; it returns (0, false, nil). Garbage is a ValidationError.
func (r Record) ParsedYear() (int, bool, error) {
	s := strings.TrimSpace(r.Year)
	if s == "" {
		return 0, false, nil
	}
	y, err := strconv.Atoi(s)
	if err != nil {
		return 0, false, &ValidationError{Field: FieldYear, Value: r.Year, Reason: "not a number"}
	}
	return y, true, nil
}

// Get returns the record's value for a named field. Used by the merge
// engine to line local values up against catalog values.
func (r Record) Get(field string) any {
	switch field {
	case FieldID:
		return r.ID
	case FieldTitle:
		return r.Title
	case FieldCountry:
		return r.Country
	case FieldYear:
		return r.Year
	case FieldValue:
		return r.Value
	case FieldUnit:
		return r.Unit
	case FieldMintmark:
		return r.Mintmark
	case FieldType:
		return r.Type
	case FieldNote:
		return r.Note
	case FieldCatalogID:
		return r.CatalogID
	case FieldSubject:
		return r.Subject
	case FieldMaterial:
		return r.Material
	case FieldWeight:
		return r.Weight
	case FieldDiameter:
		return r.Diameter
	case FieldThickness:
		return r.Thickness
	case FieldShape:
		return r.Shape
	case FieldEdge:
		return r.EdgeDescription
	case FieldObverseDesign:
		return r.ObverseDesign
	case FieldReverseDesign:
		return r.ReverseDesign
	case FieldMintage:
		return r.Mintage
	case FieldCatalogNum1:
		return r.CatalogNum1
	case FieldCatalogNum2:
		return r.CatalogNum2
	case FieldPrice1:
		return r.Price1
	case FieldPrice2:
		return r.Price2
	case FieldPrice3:
		return r.Price3
	case FieldPrice4:
		return r.Price4
	case FieldURL:
		return r.URL
	case FieldObverseImg:
		return r.ObverseImgURL
	case FieldReverseImg:
		return r.ReverseImgURL
	default:
		return nil
	}
}
