package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/open-collect/numisync/internal/enrichnote"
	"github.com/open-collect/numisync/internal/model"
	"github.com/open-collect/numisync/internal/store"
)

var (
	exportOutPath string
	exportCountry string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export collection records to an XLSX workbook",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		records, err := st.All(ctx, store.Filter{Country: exportCountry})
		if err != nil {
			return eris.Wrap(err, "list records")
		}

		if err := writeXLSX(exportOutPath, records); err != nil {
			return err
		}

		zap.L().Info("export complete",
			zap.Int("records", len(records)),
			zap.String("out", exportOutPath),
		)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportOutPath, "out", "collection.xlsx", "output XLSX path")
	exportCmd.Flags().StringVar(&exportCountry, "country", "", "only export records from this country")
	rootCmd.AddCommand(exportCmd)
}

var exportColumns = []string{
	"ID", "Title", "Country", "Year", "Value", "Unit", "Mintmark", "Type",
	"Catalog ID", "Subject", "Material", "Weight", "Diameter", "Thickness",
	"Shape", "Edge", "Obverse", "Reverse", "Mintage", "KM#", "Ref#",
	"Price VG", "Price F", "Price VF", "Price XF", "Status", "Note",
}

// writeXLSX renders the records to a single-sheet workbook. The note
// column carries only the collector's prose; the embedded enrichment
// block stays out of the export and is summarized by the status column.
func writeXLSX(path string, records []model.Record) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Collection")
	if err != nil {
		return eris.Wrap(err, "xlsx: add sheet")
	}

	header := sheet.AddRow()
	for _, col := range exportColumns {
		header.AddCell().SetString(col)
	}

	codec := enrichnote.NewCodec()
	for _, rec := range records {
		prose, meta := codec.Decode(rec.Note)

		row := sheet.AddRow()
		row.AddCell().SetInt64(rec.ID)
		row.AddCell().SetString(rec.Title)
		row.AddCell().SetString(rec.Country)
		row.AddCell().SetString(rec.Year)
		row.AddCell().SetFloat(rec.Value)
		row.AddCell().SetString(rec.Unit)
		row.AddCell().SetString(rec.Mintmark)
		row.AddCell().SetString(rec.Type)
		row.AddCell().SetInt(rec.CatalogID)
		row.AddCell().SetString(rec.Subject)
		row.AddCell().SetString(rec.Material)
		row.AddCell().SetFloat(rec.Weight)
		row.AddCell().SetFloat(rec.Diameter)
		row.AddCell().SetFloat(rec.Thickness)
		row.AddCell().SetString(rec.Shape)
		row.AddCell().SetString(rec.EdgeDescription)
		row.AddCell().SetString(rec.ObverseDesign)
		row.AddCell().SetString(rec.ReverseDesign)
		row.AddCell().SetInt64(rec.Mintage)
		row.AddCell().SetString(rec.CatalogNum1)
		row.AddCell().SetString(rec.CatalogNum2)
		row.AddCell().SetFloat(rec.Price1)
		row.AddCell().SetFloat(rec.Price2)
		row.AddCell().SetFloat(rec.Price3)
		row.AddCell().SetFloat(rec.Price4)
		row.AddCell().SetString(string(enrichnote.Overall(meta, true, cfg.Enrich.FetchPricing)))
		row.AddCell().SetString(prose)
	}

	return eris.Wrap(f.Save(path), "xlsx: save")
}
