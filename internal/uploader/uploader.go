// Package uploader drives the load of one batch of tabular files into a
// relational sink.
//
// The flow per file is: read bytes, parse into a raw table, infer a column
// type per column, merge operator overrides into a column plan, coerce every
// cell to its planned type, then replace the target table in the sink.
//
// Files are isolated from each other: a failure in one file produces a
// FAILURE outcome for that file and the batch moves on. The one exception is
// the sink connection itself; if the initial Ping fails, every file in the
// batch fails with the same connection error, since retrying per file would
// just repeat it.
package uploader

import (
	"context"
	"fmt"
	"os"
	"time"

	"tabload/internal/coerce"
	"tabload/internal/infer"
	"tabload/internal/metrics"
	"tabload/internal/reader"
	"tabload/internal/schema"
	"tabload/internal/storage"
)

// Job is one file to load.
type Job struct {
	// Path is the file to read. The extension selects the parser.
	Path string

	// Table overrides the destination table name. Empty means "derive from
	// the file name" (lowercased stem, spaces to underscores).
	Table string

	// Overrides adjust the inferred column plan before coercion.
	Overrides []schema.Override
}

// Status is the terminal state of one file's load.
type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusFailure Status = "FAILURE"
)

// Outcome reports what happened to one file.
type Outcome struct {
	File    string
	Table   string
	Status  Status
	Message string

	// Rows is the number of rows written on success.
	Rows int64

	// Losses counts values per column that became NULL during coercion.
	// Only columns with at least one loss appear.
	Losses map[string]int
}

// Uploader runs batches. The zero value is usable; the exported fields are
// seams for tests and for callers that need different wiring.
type Uploader struct {
	// NewRepository opens the sink. Defaults to storage.New.
	NewRepository func(ctx context.Context, cfg storage.Config) (storage.Repository, error)

	// ReadFile reads one input file. Defaults to os.ReadFile.
	ReadFile func(path string) ([]byte, error)

	// FileTimeout bounds the work on a single file, parse through write.
	// Zero means no per-file deadline.
	FileTimeout time.Duration

	// Logf receives progress lines. Nil disables them.
	Logf func(format string, args ...any)
}

func (u *Uploader) logf(format string, args ...any) {
	if u.Logf != nil {
		u.Logf(format, args...)
	}
}

// Upload loads every job against the configured sink and returns one Outcome
// per job, in input order.
//
// Edge cases:
//   - If the repository cannot be opened or pinged, every job gets a FAILURE
//     outcome carrying the connection error and nothing is written.
//   - If ctx is canceled between files, the remaining jobs get FAILURE
//     outcomes with the cancellation error; files already loaded keep their
//     SUCCESS outcomes.
func (u *Uploader) Upload(ctx context.Context, cfg storage.Config, jobs []Job) []Outcome {
	outcomes := make([]Outcome, 0, len(jobs))

	failAll := func(err error) []Outcome {
		for _, j := range jobs {
			metrics.FileProcessed("failure")
			outcomes = append(outcomes, Outcome{
				File:    j.Path,
				Table:   destTable(j),
				Status:  StatusFailure,
				Message: fmt.Sprintf("error: connect to %s: %v", cfg.Kind, err),
			})
		}
		return outcomes
	}

	newRepo := u.NewRepository
	if newRepo == nil {
		newRepo = storage.New
	}

	repo, err := newRepo(ctx, cfg)
	if err != nil {
		return failAll(err)
	}
	defer repo.Close()

	if err := repo.Ping(ctx); err != nil {
		return failAll(err)
	}
	u.logf("connected to %s sink", cfg.Kind)

	for _, j := range jobs {
		if err := ctx.Err(); err != nil {
			metrics.FileProcessed("failure")
			outcomes = append(outcomes, Outcome{
				File:    j.Path,
				Table:   destTable(j),
				Status:  StatusFailure,
				Message: fmt.Sprintf("error: %v", err),
			})
			continue
		}
		outcomes = append(outcomes, u.loadOne(ctx, repo, j))
	}
	return outcomes
}

// loadOne runs the full pipeline for a single file and never panics its way
// out of the batch; every failure is folded into the returned Outcome.
func (u *Uploader) loadOne(ctx context.Context, repo storage.Repository, j Job) Outcome {
	start := time.Now()
	table := destTable(j)

	fail := func(err error) Outcome {
		metrics.FileProcessed("failure")
		metrics.FileDuration(time.Since(start).Seconds(), "failure")
		u.logf("file %s: %v", j.Path, err)
		return Outcome{
			File:    j.Path,
			Table:   table,
			Status:  StatusFailure,
			Message: fmt.Sprintf("error: %v", err),
		}
	}

	if u.FileTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, u.FileTimeout)
		defer cancel()
	}

	readFile := u.ReadFile
	if readFile == nil {
		readFile = os.ReadFile
	}
	data, err := readFile(j.Path)
	if err != nil {
		return fail(fmt.Errorf("read %s: %w", j.Path, err))
	}

	// ReadFile and the parsers do not take a context, so the per-file
	// deadline is enforced between stages rather than inside them.
	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	raw, err := reader.ReadTable(j.Path, data)
	if err != nil {
		return fail(fmt.Errorf("parse %s: %w", j.Path, err))
	}
	if err := ctx.Err(); err != nil {
		return fail(err)
	}
	u.logf("file %s: %d columns, %d rows", j.Path, len(raw.Labels), len(raw.Rows))

	inferred := make([]schema.Inference, len(raw.Labels))
	for i := range raw.Labels {
		inferred[i] = infer.Infer(raw.Column(i))
	}

	plans, err := schema.Resolve(raw.Labels, inferred, j.Overrides)
	if err != nil {
		return fail(err)
	}

	typed, losses, err := coerce.Table(raw, plans)
	if err != nil {
		return fail(err)
	}

	total := 0
	for _, n := range losses {
		total += n
	}
	if total > 0 {
		metrics.CoercionNulls(table, total)
		u.logf("file %s: %d values nulled during coercion", j.Path, total)
	}

	rows, err := repo.ReplaceTable(ctx, table, plans, typed.Rows)
	if err != nil {
		return fail(fmt.Errorf("write table %s: %w", table, err))
	}

	metrics.FileProcessed("success")
	metrics.RowsLoaded(table, rows)
	metrics.FileDuration(time.Since(start).Seconds(), "success")

	return Outcome{
		File:    j.Path,
		Table:   table,
		Status:  StatusSuccess,
		Message: fmt.Sprintf("ok: loaded %d rows into %s", rows, table),
		Rows:    rows,
		Losses:  losses,
	}
}

func destTable(j Job) string {
	if j.Table != "" {
		return j.Table
	}
	return reader.TableName(j.Path)
}
