// Package metrics provides a small, backend-agnostic abstraction for recording
// operational metrics from the populator.
//
//   - Backend is a narrow interface over counters and timing data.
//   - A global, pluggable backend defaults to a no-op implementation, so
//     metrics are always safe to call even when nothing is configured.
//   - Concrete systems (Prometheus Pushgateway, DogStatsD) live in
//     subpackages, mirroring the storage backend layout.
//
// The populator records one step metric per stage (copy, prepare, import,
// merge, cleanup), row counters per dataset, and a terminal outcome per
// dataset. A short-lived function cannot be scraped, so backends push on
// Flush at the end of a run.
package metrics

import "time"

// Metric names shared with the backends.
const (
	StepTotal           = "populator_step_total"
	StepDurationSeconds = "populator_step_duration_seconds"
	RowsTotal           = "populator_rows_total"
	DatasetsTotal       = "populator_datasets_total"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a latency/duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it (e.g. Pushgateway).
	Flush() error
}

// nopBackend is used by default so metrics are optional.
type nopBackend struct{}

func (nopBackend) IncCounter(name string, delta float64, labels Labels)       {}
func (nopBackend) ObserveHistogram(name string, value float64, labels Labels) {}
func (nopBackend) Flush() error                                               { return nil }

var backend Backend = nopBackend{}

// SetBackend installs a concrete backend. Passing nil keeps the existing backend.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	backend = b
}

// Flush delegates to the current backend.
func Flush() error {
	return backend.Flush()
}

func status(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}

// RecordStep measures latency and success/failure of one pipeline stage.
func RecordStep(job, step string, err error, d time.Duration) {
	lbls := Labels{
		"job":    job,
		"step":   step,
		"status": status(err),
	}
	backend.IncCounter(StepTotal, 1, lbls)
	backend.ObserveHistogram(StepDurationSeconds, d.Seconds(), lbls)
}

// RecordRows increments the row counter of a dataset. Kinds are "imported"
// (rows landed in staging) and "merged" (rows inserted or updated).
func RecordRows(job, dataset, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter(RowsTotal, float64(delta), Labels{
		"job":     job,
		"dataset": dataset,
		"kind":    kind,
	})
}

// RecordDataset counts the terminal outcome of one dataset load.
func RecordDataset(job, dataset string, err error) {
	backend.IncCounter(DatasetsTotal, 1, Labels{
		"job":     job,
		"dataset": dataset,
		"status":  status(err),
	})
}
