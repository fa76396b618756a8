package main

import (
	"encoding/csv"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/open-collect/numisync/internal/model"
)

var importCSVPath string

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import collection records from CSV",
	Long:  "Reads a CSV with a header row (title, country, year, value, unit, mintmark, type, note) and inserts each row as a record. Unknown columns are ignored.",
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

		records, err := readCSVRecords(importCSVPath)
		if err != nil {
			return err
		}

		created := 0
		for i := range records {
			if err := st.Insert(ctx, &records[i]); err != nil {
				return eris.Wrapf(err, "insert row %d", i+1)
			}
			created++
		}

		zap.L().Info("import complete",
			zap.Int("created", created),
			zap.String("csv", importCSVPath),
		)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importCSVPath, "csv", "", "path to CSV file (required)")
	_ = importCmd.MarkFlagRequired("csv")
	rootCmd.AddCommand(importCmd)
}

// readCSVRecords parses a collection CSV into records, matching columns
// by header name case-insensitively.
func readCSVRecords(path string) ([]model.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "open csv %s", path)
	}
	defer f.Close() //nolint:errcheck

	reader := csv.NewReader(f)
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "read csv")
	}
	if len(rows) < 2 {
		return nil, nil // header only or empty
	}

	headers := rows[0]
	out := make([]model.Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec, err := rowToRecord(headers, row)
		if err != nil {
			return nil, err
		}
		if rec.Title == "" {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func rowToRecord(headers []string, row []string) (model.Record, error) {
	var rec model.Record
	for i, h := range headers {
		if i >= len(row) {
			break
		}
		val := strings.TrimSpace(row[i])
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "title":
			rec.Title = val
		case "country":
			rec.Country = val
		case "year":
			rec.Year = val
		case "value":
			if val == "" {
				continue
			}
			v, err := strconv.ParseFloat(val, 64)
			if err != nil {
				return rec, eris.Errorf("invalid value %q for %q", val, rec.Title)
			}
			rec.Value = v
		case "unit":
			rec.Unit = val
		case "mintmark":
			rec.Mintmark = val
		case "type":
			rec.Type = val
		case "note":
			rec.Note = val
		}
	}
	return rec, nil
}
