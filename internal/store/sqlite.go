package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/open-collect/numisync/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL
// mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS records (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	title          TEXT NOT NULL DEFAULT '',
	country        TEXT NOT NULL DEFAULT '',
	year           TEXT NOT NULL DEFAULT '',
	value          REAL NOT NULL DEFAULT 0,
	unit           TEXT NOT NULL DEFAULT '',
	mintmark       TEXT NOT NULL DEFAULT '',
	type           TEXT NOT NULL DEFAULT '',
	note           TEXT NOT NULL DEFAULT '',
	catalog_id     INTEGER NOT NULL DEFAULT 0,
	subject        TEXT NOT NULL DEFAULT '',
	material       TEXT NOT NULL DEFAULT '',
	weight         REAL NOT NULL DEFAULT 0,
	diameter       REAL NOT NULL DEFAULT 0,
	thickness      REAL NOT NULL DEFAULT 0,
	shape          TEXT NOT NULL DEFAULT '',
	edge           TEXT NOT NULL DEFAULT '',
	obverse_design TEXT NOT NULL DEFAULT '',
	reverse_design TEXT NOT NULL DEFAULT '',
	mintage        INTEGER NOT NULL DEFAULT 0,
	catalognum1    TEXT NOT NULL DEFAULT '',
	catalognum2    TEXT NOT NULL DEFAULT '',
	price1         REAL NOT NULL DEFAULT 0,
	price2         REAL NOT NULL DEFAULT 0,
	price3         REAL NOT NULL DEFAULT 0,
	price4         REAL NOT NULL DEFAULT 0,
	url            TEXT NOT NULL DEFAULT '',
	obverseimg_url TEXT NOT NULL DEFAULT '',
	reverseimg_url TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_records_country ON records(country);
CREATE INDEX IF NOT EXISTS idx_records_catalog_id ON records(catalog_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Insert(ctx context.Context, rec *model.Record) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO records (title, country, year, value, unit, mintmark, type, note)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Title, rec.Country, rec.Year, rec.Value, rec.Unit, rec.Mintmark, rec.Type, rec.Note,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: insert record")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return eris.Wrap(err, "sqlite: insert record id")
	}
	rec.ID = id
	return nil
}

func (s *SQLiteStore) GetByID(ctx context.Context, id int64) (*model.Record, error) {
	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT %s FROM records WHERE id = ?`, strings.Join(recordColumns, ", ")),
		id,
	)
	var rec model.Record
	if err := row.Scan(scanDest(&rec)...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, eris.Wrapf(err, "sqlite: get record %d", id)
	}
	return &rec, nil
}

func (s *SQLiteStore) Update(ctx context.Context, id int64, updates model.Updates) error {
	if err := validateUpdates(updates); err != nil {
		return err
	}

	// Deterministic order keeps the generated SQL stable for logs and
	// tests.
	fields := make([]string, 0, len(updates))
	for f := range updates {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	sets := make([]string, 0, len(fields))
	args := make([]any, 0, len(fields)+1)
	for _, f := range fields {
		sets = append(sets, fieldColumns[f]+" = ?")
		args = append(args, updates[f])
	}
	args = append(args, id)

	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE records SET %s WHERE id = ?`, strings.Join(sets, ", ")),
		args...,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update record %d", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) Search(ctx context.Context, query string, fields []string) ([]model.Record, error) {
	cols, err := searchColumns(fields)
	if err != nil {
		return nil, err
	}

	conds := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, col := range cols {
		conds[i] = col + " LIKE ?"
		args[i] = "%" + query + "%"
	}

	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT %s FROM records WHERE %s ORDER BY id`,
			strings.Join(recordColumns, ", "), strings.Join(conds, " OR ")),
		args...,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: search records")
	}
	defer rows.Close()
	return collectRecords(rows)
}

func (s *SQLiteStore) All(ctx context.Context, filter Filter) ([]model.Record, error) {
	conds := []string{"1=1"}
	var args []any
	if filter.Country != "" {
		conds = append(conds, "country = ?")
		args = append(args, filter.Country)
	}
	if filter.Unenriched {
		conds = append(conds, "catalog_id = 0")
	}

	q := fmt.Sprintf(`SELECT %s FROM records WHERE %s ORDER BY id`,
		strings.Join(recordColumns, ", "), strings.Join(conds, " AND "))
	if filter.Limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	if filter.Offset > 0 {
		q += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list records")
	}
	defer rows.Close()
	return collectRecords(rows)
}

func collectRecords(rows *sql.Rows) ([]model.Record, error) {
	var out []model.Record
	for rows.Next() {
		var rec model.Record
		if err := rows.Scan(scanDest(&rec)...); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan record")
		}
		out = append(out, rec)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate records")
}
