// Package mssql implements the storage.Repository sink on SQL Server via
// database/sql and the microsoft/go-mssqldb driver.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	_ "github.com/microsoft/go-mssqldb"

	"tabload/internal/schema"
	"tabload/internal/storage"
)

type Repo struct {
	db *sql.DB
}

func init() {
	storage.Register("mssql", New)
}

func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	dsn := cfg.DSN
	if dsn == "" {
		dsn = DSN(cfg.Params)
	}

	db, err := sql.Open("sqlserver", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Repo{db: db}, nil
}

// DSN builds a sqlserver:// connection string from operator-supplied fields.
func DSN(p storage.Params) string {
	u := url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(p.Username, p.Password),
		Host:     p.Host + ":" + p.Port,
		RawQuery: url.Values{"database": {p.Database}}.Encode(),
	}
	return u.String()
}

func (r *Repo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repo) Close() { _ = r.db.Close() }

// ReplaceTable drops, recreates, and fills the table in one transaction.
func (r *Repo) ReplaceTable(ctx context.Context, name string, plan []schema.ColumnPlan, rows [][]any) (int64, error) {
	if len(plan) == 0 {
		return 0, fmt.Errorf("mssql: empty column plan for table %s", name)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	drop := fmt.Sprintf("IF OBJECT_ID(N'%s', N'U') IS NOT NULL DROP TABLE %s",
		strings.ReplaceAll(name, "'", "''"), msIdent(name))
	if _, err := tx.ExecContext(ctx, drop); err != nil {
		return 0, fmt.Errorf("drop table %s: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx, buildCreateSQL(name, plan)); err != nil {
		return 0, fmt.Errorf("create table %s: %w", name, err)
	}

	stmt, err := tx.PrepareContext(ctx, buildInsertSQL(name, plan))
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	var total int64
	for _, row := range rows {
		res, err := stmt.ExecContext(ctx, row...)
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
	b.WriteString(msIdent(name))
	b.WriteString(" (")
	for i, p := range plan {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(msIdent(p.Name))
		b.WriteString(" ")
		b.WriteString(columnType(p.Type))
	}
	b.WriteString(")")
	return b.String()
}

func columnType(t schema.TargetType) string {
	switch t {
	case schema.Boolean:
		return "BIT"
	case schema.Integer:
		return "INT"
	case schema.BigInt:
		return "BIGINT"
	case schema.Float:
		return "FLOAT"
	case schema.Date:
		return "DATE"
	case schema.Timestamp:
		return "DATETIME2"
	default:
		return "NVARCHAR(MAX)"
	}
}

func buildInsertSQL(name string, plan []schema.ColumnPlan) string {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(msIdent(name))
	b.WriteString(" (")
	for i, p := range plan {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(msIdent(p.Name))
	}
	b.WriteString(") VALUES (")
	for i := range plan {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "@p%d", i+1)
	}
	b.WriteString(")")
	return b.String()
}

func msIdent(id string) string {
	return "[" + strings.ReplaceAll(id, "]", "]]") + "]"
}
