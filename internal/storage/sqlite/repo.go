// Package sqlite implements the storage.Repository sink on SQLite via
// database/sql and modernc.org/sqlite.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"tabload/internal/schema"
	"tabload/internal/storage"
)

// Repo stores temporal values as strings ("2006-01-02" for dates, RFC3339
// for timestamps): SQLite has no native date types and the string forms
// round-trip reliably and stay readable in debugging sessions.
type Repo struct {
	db *sql.DB
}

func init() {
	storage.Register("sqlite", New)
}

// New opens (or creates) the database file. Only Params.Database is used
// when no DSN is given; SQLite has no host/credential surface.
func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	dsn := cfg.DSN
	if dsn == "" {
		dsn = cfg.Params.Database
	}
	if dsn == "" {
		return nil, fmt.Errorf("sqlite: missing database path")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Repo{db: db}, nil
}

func (r *Repo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repo) Close() { _ = r.db.Close() }

// ReplaceTable drops, recreates, and fills the table in one transaction.
func (r *Repo) ReplaceTable(ctx context.Context, name string, plan []schema.ColumnPlan, rows [][]any) (int64, error) {
	if len(plan) == 0 {
		return 0, fmt.Errorf("sqlite: empty column plan for table %s", name)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+sqlIdent(name)); err != nil {
		return 0, fmt.Errorf("drop table %s: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx, buildCreateSQL(name, plan)); err != nil {
		return 0, fmt.Errorf("create table %s: %w", name, err)
	}

	insert := buildInsertSQL(name, plan)
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	var total int64
	for _, row := range rows {
		res, err := stmt.ExecContext(ctx, bindRow(plan, row)...)
		if err != nil {
			return total, fmt.Errorf("insert into %s: %w", name, err)
		}
		n, _ := res.RowsAffected()
		total += n
	}

	if err := tx.Commit(); err != nil {
		return total, err
	}
	return total, nil
}

func buildCreateSQL(name string, plan []schema.ColumnPlan) string {
	var b strings.Builder
	b.WriteString("CREATE TABLE ")
	b.WriteString(sqlIdent(name))
	b.WriteString(" (")
	for i, p := range plan {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(sqlIdent(p.Name))
		b.WriteString(" ")
		b.WriteString(columnType(p.Type))
	}
	b.WriteString(")")
	return b.String()
}

func columnType(t schema.TargetType) string {
	switch t {
	case schema.Boolean, schema.Integer, schema.BigInt:
		return "INTEGER"
	case schema.Float:
		return "REAL"
	default:
		// DATE/TIMESTAMP/TEXT all carry TEXT affinity here.
		return "TEXT"
	}
}

func buildInsertSQL(name string, plan []schema.ColumnPlan) string {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(sqlIdent(name))
	b.WriteString(" (")
	for i, p := range plan {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(sqlIdent(p.Name))
	}
	b.WriteString(") VALUES (")
	b.WriteString(strings.TrimRight(strings.Repeat("?,", len(plan)), ","))
	b.WriteString(")")
	return b.String()
}

// bindRow converts cells to driver-friendly values: temporal values become
// their string forms, everything else passes through.
func bindRow(plan []schema.ColumnPlan, row []any) []any {
	out := make([]any, len(row))
	for i, v := range row {
		t, ok := v.(time.Time)
		if !ok {
			out[i] = v
			continue
		}
		if plan[i].Type == schema.Date {
			out[i] = t.Format("2006-01-02")
		} else {
			out[i] = t.Format(time.RFC3339)
		}
	}
	return out
}

func sqlIdent(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}
