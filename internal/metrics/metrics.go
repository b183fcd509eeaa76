// Package metrics records counters and timings for external commands and
// submodule operations.
//
// A Recorder owns a private prometheus registry so tests and repeated CLI
// invocations never collide on the default registry. All methods are safe to
// call on a nil *Recorder, which records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Command outcome label values.
const (
	OutcomeOK     = "ok"
	OutcomeFailed = "failed"
	OutcomeError  = "error"
)

// Operation result label values.
const (
	ResultOK     = "ok"
	ResultFailed = "failed"
)

// Recorder collects subsync metrics.
type Recorder struct {
	registry   *prometheus.Registry
	commands   *prometheus.CounterVec
	duration   prometheus.Histogram
	retries    prometheus.Counter
	operations *prometheus.CounterVec
}

// New creates a Recorder with all collectors registered.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "subsync_commands_total",
			Help: "External commands executed, by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "subsync_command_duration_seconds",
			Help:    "Wall time of external commands from spawn to exit, excluding time spent waiting for a slot.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "subsync_retries_total",
			Help: "Commands re-run after a transient failure.",
		}),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "subsync_operations_total",
			Help: "Submodule init, deinit and update operations, by result.",
		}, []string{"op", "result"}),
	}
	r.registry.MustRegister(r.commands, r.duration, r.retries, r.operations)
	return r
}

// ObserveCommand records one finished external command. startErr is the
// error returned when the process could not be started at all.
func (r *Recorder) ObserveCommand(status int, startErr error, d time.Duration) {
	if r == nil {
		return
	}

	outcome := OutcomeOK
	switch {
	case startErr != nil:
		outcome = OutcomeError
	case status != 0:
		outcome = OutcomeFailed
	}
	r.commands.WithLabelValues(outcome).Inc()
	r.duration.Observe(d.Seconds())
}

// IncRetry counts one retry of a transient failure.
func (r *Recorder) IncRetry() {
	if r == nil {
		return
	}
	r.retries.Inc()
}

// ObserveOperation records the result of a submodule operation (init, deinit, update).
func (r *Recorder) ObserveOperation(op string, err error) {
	if r == nil {
		return
	}
	result := ResultOK
	if err != nil {
		result = ResultFailed
	}
	r.operations.WithLabelValues(op, result).Inc()
}

// Gatherer exposes the private registry.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	if r == nil {
		return prometheus.NewRegistry()
	}
	return r.registry
}

// WriteTextfile writes all metrics in the text exposition format, suitable
// for the node_exporter textfile collector.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.Gatherer())
}
