// Package postgres implements the storage.Repository sink on PostgreSQL
// via pgx.
package postgres

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"tabload/internal/schema"
	"tabload/internal/storage"
)

// maxParams bounds placeholders per INSERT statement; the wire protocol caps
// them at 65535 and very large statements are slower to parse anyway.
const maxParams = 30000

type Repo struct {
	pool *pgxpool.Pool
}

func init() {
	storage.Register("postgres", New)
}

// New creates a Postgres-backed repository. An empty cfg.DSN is built from
// the connection params.
func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	dsn := cfg.DSN
	if dsn == "" {
		dsn = DSN(cfg.Params)
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Repo{pool: pool}, nil
}

// DSN builds a postgres:// connection string from operator-supplied fields.
func DSN(p storage.Params) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(p.Username, p.Password),
		Host:   p.Host + ":" + p.Port,
		Path:   "/" + p.Database,
	}
	return u.String()
}

func (r *Repo) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *Repo) Close() {
	r.pool.Close()
}

// ReplaceTable drops, recreates, and fills the table inside one transaction.
// Postgres DDL is transactional, so a failed insert leaves any pre-existing
// table untouched.
func (r *Repo) ReplaceTable(ctx context.Context, name string, plan []schema.ColumnPlan, rows [][]any) (int64, error) {
	if len(plan) == 0 {
		return 0, fmt.Errorf("postgres: empty column plan for table %s", name)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DROP TABLE IF EXISTS "+pgIdent(name)); err != nil {
		return 0, fmt.Errorf("drop table %s: %w", name, err)
	}
	if _, err := tx.Exec(ctx, buildCreateSQL(name, plan)); err != nil {
		return 0, fmt.Errorf("create table %s: %w", name, err)
	}

	var total int64
	for _, chunk := range chunkRows(rows, maxParams/len(plan)) {
		sql, args := buildInsertSQL(name, plan, chunk)
		cmd, err := tx.Exec(ctx, sql, args...)
		if err != nil {
			return total, fmt.Errorf("insert into %s: %w", name, err)
		}
		total += cmd.RowsAffected()
	}

	if err := tx.Commit(ctx); err != nil {
		return total, err
	}
	return total, nil
}

// buildCreateSQL renders the CREATE TABLE statement for a plan. It is pure so
// the column type mapping can be unit tested without a database.
func buildCreateSQL(name string, plan []schema.ColumnPlan) string {
	var b strings.Builder
	b.WriteString("CREATE TABLE ")
	b.WriteString(pgIdent(name))
	b.WriteString(" (")
	for i, p := range plan {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(pgIdent(p.Name))
		b.WriteString(" ")
		b.WriteString(columnType(p.Type))
	}
	b.WriteString(")")
	return b.String()
}

func columnType(t schema.TargetType) string {
	switch t {
	case schema.Boolean:
		return "BOOLEAN"
	case schema.Integer:
		return "INTEGER"
	case schema.BigInt:
		return "BIGINT"
	case schema.Float:
		return "DOUBLE PRECISION"
	case schema.Date:
		return "DATE"
	case schema.Timestamp:
		return "TIMESTAMP"
	default:
		return "TEXT"
	}
}

// buildInsertSQL constructs a single multi-row INSERT and its args.
func buildInsertSQL(name string, plan []schema.ColumnPlan, rows [][]any) (string, []any) {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(pgIdent(name))
	b.WriteString(" (")
	for i, p := range plan {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(pgIdent(p.Name))
	}
	b.WriteString(") VALUES ")

	args := make([]any, 0, len(rows)*len(plan))
	n := 1
	for i, row := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(")
		for j := range plan {
			if j > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "$%d", n)
			args = append(args, row[j])
			n++
		}
		b.WriteString(")")
	}
	return b.String(), args
}

func chunkRows(rows [][]any, size int) [][][]any {
	if size < 1 {
		size = 1
	}
	var out [][][]any
	for len(rows) > size {
		out = append(out, rows[:size])
		rows = rows[size:]
	}
	if len(rows) > 0 {
		out = append(out, rows)
	}
	return out
}

// pgIdent quotes an identifier for Postgres.
func pgIdent(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}
