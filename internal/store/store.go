// Package store persists local collection records. Two drivers exist:
// SQLite for the single-user desktop case and Postgres for a shared
// install.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/open-collect/numisync/internal/model"
)

// ErrNotFound is returned when a record id does not exist.
var ErrNotFound = eris.New("store: record not found")

// Filter narrows an All listing.
type Filter struct {
	Country string
	// Unenriched keeps only records with no catalog link yet.
	Unenriched bool
	Limit      int
	Offset     int
}

// Store is the persistence contract the enrichment pipeline works
// against.
type Store interface {
	Insert(ctx context.Context, rec *model.Record) error
	GetByID(ctx context.Context, id int64) (*model.Record, error)
	Update(ctx context.Context, id int64, updates model.Updates) error
	Search(ctx context.Context, query string, fields []string) ([]model.Record, error)
	All(ctx context.Context, filter Filter) ([]model.Record, error)

	Migrate(ctx context.Context) error
	Close() error
}

// fieldColumns maps update-set field names onto columns. Anything absent
// here cannot be written through Update.
var fieldColumns = map[string]string{
	model.FieldTitle:         "title",
	model.FieldCountry:       "country",
	model.FieldYear:          "year",
	model.FieldValue:         "value",
	model.FieldUnit:          "unit",
	model.FieldMintmark:      "mintmark",
	model.FieldType:          "type",
	model.FieldNote:          "note",
	model.FieldCatalogID:     "catalog_id",
	model.FieldSubject:       "subject",
	model.FieldMaterial:      "material",
	model.FieldWeight:        "weight",
	model.FieldDiameter:      "diameter",
	model.FieldThickness:     "thickness",
	model.FieldShape:         "shape",
	model.FieldEdge:          "edge",
	model.FieldObverseDesign: "obverse_design",
	model.FieldReverseDesign: "reverse_design",
	model.FieldMintage:       "mintage",
	model.FieldCatalogNum1:   "catalognum1",
	model.FieldCatalogNum2:   "catalognum2",
	model.FieldPrice1:        "price1",
	model.FieldPrice2:        "price2",
	model.FieldPrice3:        "price3",
	model.FieldPrice4:        "price4",
	model.FieldURL:           "url",
	model.FieldObverseImg:    "obverseimg_url",
	model.FieldReverseImg:    "reverseimg_url",
}

// protectedFields can never be written through an update set: the
// primary key and the image blob foreign keys owned by the image
// subsystem.
var protectedFields = map[string]struct{}{
	model.FieldID: {},
	"obverseimg":  {},
	"reverseimg":  {},
}

// validateUpdates rejects updates touching protected or unknown fields.
// Rejection is all-or-nothing: a single bad field fails the whole set so
// a partial write never happens.
func validateUpdates(updates model.Updates) error {
	if len(updates) == 0 {
		return eris.New("store: empty update set")
	}
	for field := range updates {
		if _, ok := protectedFields[field]; ok {
			return eris.Errorf("store: field %q is protected", field)
		}
		if _, ok := fieldColumns[field]; !ok {
			return eris.Errorf("store: unknown field %q", field)
		}
	}
	return nil
}

// recordColumns is the canonical select order; scanDest must match it.
var recordColumns = []string{
	"id", "title", "country", "year", "value", "unit", "mintmark", "type",
	"note", "catalog_id", "subject", "material", "weight", "diameter",
	"thickness", "shape", "edge", "obverse_design", "reverse_design",
	"mintage", "catalognum1", "catalognum2", "price1", "price2", "price3",
	"price4", "url", "obverseimg_url", "reverseimg_url",
}

func scanDest(r *model.Record) []any {
	return []any{
		&r.ID, &r.Title, &r.Country, &r.Year, &r.Value, &r.Unit,
		&r.Mintmark, &r.Type, &r.Note, &r.CatalogID, &r.Subject,
		&r.Material, &r.Weight, &r.Diameter, &r.Thickness, &r.Shape,
		&r.EdgeDescription, &r.ObverseDesign, &r.ReverseDesign,
		&r.Mintage, &r.CatalogNum1, &r.CatalogNum2, &r.Price1, &r.Price2,
		&r.Price3, &r.Price4, &r.URL, &r.ObverseImgURL, &r.ReverseImgURL,
	}
}

// searchColumns resolves requested search fields to columns, defaulting
// to the free-text ones.
func searchColumns(fields []string) ([]string, error) {
	if len(fields) == 0 {
		fields = []string{model.FieldTitle, model.FieldCountry, model.FieldSubject}
	}
	cols := make([]string, 0, len(fields))
	for _, f := range fields {
		col, ok := fieldColumns[f]
		if !ok {
			return nil, eris.Errorf("store: cannot search unknown field %q", f)
		}
		cols = append(cols, col)
	}
	return cols, nil
}
