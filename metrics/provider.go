// Package metrics defines the instruments an Executor records into and two
// providers: BasicProvider, an in-memory aggregator, and NoopProvider, the default.
package metrics

// Instrument names recorded by central.Executor.
const (
	TasksAdmitted        = "central_tasks_admitted_total"
	TasksQueued          = "central_tasks_queued_total"
	TasksRejected        = "central_tasks_rejected_total"
	TasksFailed          = "central_tasks_failed_total"
	TasksAbandoned       = "central_tasks_abandoned_total"
	TasksRunning         = "central_tasks_running"
	QueueWaitSeconds     = "central_queue_wait_seconds"
	QuotaReleaseOverflow = "central_quota_release_overflow_total"
)

// Provider constructs instruments used to record metrics.
// Implementations must be safe for concurrent use.
type Provider interface {
	Counter(name string, opts ...InstrumentOption) Counter
	UpDownCounter(name string, opts ...InstrumentOption) UpDownCounter
	Histogram(name string, opts ...InstrumentOption) Histogram
}

// Counter records monotonic counts.
type Counter interface {
	Add(n int64)
}

// UpDownCounter records values that move both ways, such as running tasks.
type UpDownCounter interface {
	Add(n int64)
}

// Histogram records float64 measurements, such as queue wait in seconds.
type Histogram interface {
	Record(v float64)
}

// InstrumentConfig carries advisory instrument metadata.
type InstrumentConfig struct {
	Description string
	Unit        string
}

// InstrumentOption mutates InstrumentConfig.
type InstrumentOption func(*InstrumentConfig)

// WithDescription sets an advisory description for the instrument.
func WithDescription(desc string) InstrumentOption {
	return func(c *InstrumentConfig) { c.Description = desc }
}

// WithUnit sets an advisory unit for the instrument (e.g., "1", "s").
func WithUnit(unit string) InstrumentOption {
	return func(c *InstrumentConfig) { c.Unit = unit }
}

func buildConfig(opts []InstrumentOption) InstrumentConfig {
	var cfg InstrumentConfig
	for _, o := range opts {
		if o != nil {
			o(&cfg)
		}
	}
	return cfg
}
