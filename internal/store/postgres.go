package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/open-collect/numisync/internal/model"
)

// Pool is the slice of pgxpool.Pool the store uses; pgxmock satisfies it
// in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS records (
	id             BIGSERIAL PRIMARY KEY,
	title          TEXT NOT NULL DEFAULT '',
	country        TEXT NOT NULL DEFAULT '',
	year           TEXT NOT NULL DEFAULT '',
	value          DOUBLE PRECISION NOT NULL DEFAULT 0,
	unit           TEXT NOT NULL DEFAULT '',
	mintmark       TEXT NOT NULL DEFAULT '',
	type           TEXT NOT NULL DEFAULT '',
	note           TEXT NOT NULL DEFAULT '',
	catalog_id     INTEGER NOT NULL DEFAULT 0,
	subject        TEXT NOT NULL DEFAULT '',
	material       TEXT NOT NULL DEFAULT '',
	weight         DOUBLE PRECISION NOT NULL DEFAULT 0,
	diameter       DOUBLE PRECISION NOT NULL DEFAULT 0,
	thickness      DOUBLE PRECISION NOT NULL DEFAULT 0,
	shape          TEXT NOT NULL DEFAULT '',
	edge           TEXT NOT NULL DEFAULT '',
	obverse_design TEXT NOT NULL DEFAULT '',
	reverse_design TEXT NOT NULL DEFAULT '',
	mintage        BIGINT NOT NULL DEFAULT 0,
	catalognum1    TEXT NOT NULL DEFAULT '',
	catalognum2    TEXT NOT NULL DEFAULT '',
	price1         DOUBLE PRECISION NOT NULL DEFAULT 0,
	price2         DOUBLE PRECISION NOT NULL DEFAULT 0,
	price3         DOUBLE PRECISION NOT NULL DEFAULT 0,
	price4         DOUBLE PRECISION NOT NULL DEFAULT 0,
	url            TEXT NOT NULL DEFAULT '',
	obverseimg_url TEXT NOT NULL DEFAULT '',
	reverseimg_url TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_records_country ON records(country);
CREATE INDEX IF NOT EXISTS idx_records_catalog_id ON records(catalog_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) Insert(ctx context.Context, rec *model.Record) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO records (title, country, year, value, unit, mintmark, type, note)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		rec.Title, rec.Country, rec.Year, rec.Value, rec.Unit, rec.Mintmark, rec.Type, rec.Note,
	).Scan(&rec.ID)
	return eris.Wrap(err, "postgres: insert record")
}

func (s *PostgresStore) GetByID(ctx context.Context, id int64) (*model.Record, error) {
	row := s.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT %s FROM records WHERE id = $1`, strings.Join(recordColumns, ", ")),
		id,
	)
	var rec model.Record
	if err := row.Scan(scanDest(&rec)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, eris.Wrapf(err, "postgres: get record %d", id)
	}
	return &rec, nil
}

func (s *PostgresStore) Update(ctx context.Context, id int64, updates model.Updates) error {
	if err := validateUpdates(updates); err != nil {
		return err
	}

	fields := make([]string, 0, len(updates))
	for f := range updates {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	sets := make([]string, 0, len(fields))
	args := make([]any, 0, len(fields)+1)
	for i, f := range fields {
		sets = append(sets, fmt.Sprintf("%s = $%d", fieldColumns[f], i+1))
		args = append(args, updates[f])
	}
	args = append(args, id)

	tag, err := s.pool.Exec(ctx,
		fmt.Sprintf(`UPDATE records SET %s WHERE id = $%d`, strings.Join(sets, ", "), len(fields)+1),
		args...,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update record %d", id)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Search(ctx context.Context, query string, fields []string) ([]model.Record, error) {
	cols, err := searchColumns(fields)
	if err != nil {
		return nil, err
	}

	conds := make([]string, len(cols))
	for i, col := range cols {
		conds[i] = fmt.Sprintf("%s ILIKE $%d", col, i+1)
	}
	args := make([]any, len(cols))
	for i := range args {
		args[i] = "%" + query + "%"
	}

	rows, err := s.pool.Query(ctx,
		fmt.Sprintf(`SELECT %s FROM records WHERE %s ORDER BY id`,
			strings.Join(recordColumns, ", "), strings.Join(conds, " OR ")),
		args...,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: search records")
	}
	defer rows.Close()
	return collectPgxRecords(rows)
}

func (s *PostgresStore) All(ctx context.Context, filter Filter) ([]model.Record, error) {
	conds := []string{"TRUE"}
	var args []any
	if filter.Country != "" {
		args = append(args, filter.Country)
		conds = append(conds, fmt.Sprintf("country = $%d", len(args)))
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

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list records")
	}
	defer rows.Close()
	return collectPgxRecords(rows)
}

func collectPgxRecords(rows pgx.Rows) ([]model.Record, error) {
	var out []model.Record
	for rows.Next() {
		var rec model.Record
		if err := rows.Scan(scanDest(&rec)...); err != nil {
			return nil, eris.Wrap(err, "postgres: scan record")
		}
		out = append(out, rec)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate records")
}
