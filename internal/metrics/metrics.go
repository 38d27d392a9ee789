// Package metrics is a small facade between the loader and whatever
// metrics system the process is configured with.
//
// The core packages call the helpers in this file (FileProcessed,
// RowsLoaded, ...) and never import a vendor SDK. A process that wants
// real metrics installs a Backend at startup (see the datadog
// subpackage); everything else gets the no-op default.
//
// Concurrency model:
//   - SetBackend is expected to be called once, before the load starts.
//   - The helpers may be called from any goroutine afterwards; backends
//     must be safe for concurrent use.
package metrics

import "sync/atomic"

// Labels are free-form key/value tags attached to a metric sample.
type Labels map[string]string

// Backend receives metric samples. Implementations buffer and ship them
// however they like; callers treat every method as cheap and non-blocking.
type Backend interface {
	IncCounter(name string, delta float64, labels Labels)
	ObserveHistogram(name string, value float64, labels Labels)
}

// nopBackend drops everything. It is the default so that code paths can
// emit metrics unconditionally.
type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}

// holder gives atomic.Value one consistent concrete type regardless of
// which Backend implementation is installed.
type holder struct {
	b Backend
}

var backend atomic.Value // holder

func init() {
	backend.Store(holder{b: nopBackend{}})
}

// SetBackend installs b as the process-wide backend. Passing nil
// restores the no-op default.
func SetBackend(b Backend) {
	if b == nil {
		b = nopBackend{}
	}
	backend.Store(holder{b: b})
}

func current() Backend {
	return backend.Load().(holder).b
}

// IncCounter forwards a counter increment to the installed backend.
func IncCounter(name string, delta float64, labels Labels) {
	current().IncCounter(name, delta, labels)
}

// ObserveHistogram forwards a histogram sample to the installed backend.
func ObserveHistogram(name string, value float64, labels Labels) {
	current().ObserveHistogram(name, value, labels)
}

// Canonical metric names. Backends switch on these.
const (
	MetricFilesTotal          = "load_files_total"
	MetricRowsTotal           = "load_rows_total"
	MetricCoercionNullsTotal  = "coercion_nulls_total"
	MetricFileDurationSeconds = "load_file_duration_seconds"
)

// FileProcessed records the outcome of one file. status is "success"
// or "failure".
func FileProcessed(status string) {
	IncCounter(MetricFilesTotal, 1, Labels{"status": status})
}

// RowsLoaded records rows written to the sink for one table.
func RowsLoaded(table string, n int64) {
	if n <= 0 {
		return
	}
	IncCounter(MetricRowsTotal, float64(n), Labels{"table": table})
}

// CoercionNulls records values that became NULL during coercion.
func CoercionNulls(table string, n int) {
	if n <= 0 {
		return
	}
	IncCounter(MetricCoercionNullsTotal, float64(n), Labels{"table": table})
}

// FileDuration records how long one file took end to end.
func FileDuration(seconds float64, status string) {
	ObserveHistogram(MetricFileDurationSeconds, seconds, Labels{"status": status})
}
