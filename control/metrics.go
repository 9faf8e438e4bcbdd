// control/metrics.go
// Author: momentics <momentics@gmail.com>
//
// Prometheus collectors for connection and loop activity.
// All methods are safe on a nil *Metrics, which records nothing.

package control

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "hioload"

// Metrics holds the library's collectors.
type Metrics struct {
	ConnsOpened    prometheus.Counter
	ConnsClosed    prometheus.Counter
	BytesRead      prometheus.Counter
	BytesWritten   prometheus.Counter
	HighWaterMarks prometheus.Counter
	IOErrors       prometheus.Counter
	PendingTasks   *prometheus.GaugeVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ConnsOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "conn", Name: "opened_total",
			Help: "Connections that reached the connected state.",
		}),
		ConnsClosed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "conn", Name: "closed_total",
			Help: "Connections that reached the disconnected state.",
		}),
		BytesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "conn", Name: "read_bytes_total",
			Help: "Bytes read from connection sockets.",
		}),
		BytesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "conn", Name: "written_bytes_total",
			Help: "Bytes written to connection sockets.",
		}),
		HighWaterMarks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "conn", Name: "high_water_mark_total",
			Help: "Times an output buffer crossed its high water mark.",
		}),
		IOErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "conn", Name: "io_errors_total",
			Help: "Non-transient socket errors.",
		}),
		PendingTasks: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "loop", Name: "pending_tasks",
			Help: "Tasks drained from a loop's pending queue in its last iteration.",
		}, []string{"loop"}),
	}
	if reg != nil {
		reg.MustRegister(m.ConnsOpened, m.ConnsClosed, m.BytesRead, m.BytesWritten,
			m.HighWaterMarks, m.IOErrors, m.PendingTasks)
	}
	return m
}

var (
	defaultOnce     sync.Once
	defaultRegistry *prometheus.Registry
	defaultMetrics  *Metrics
)

// DefaultMetrics returns the process-wide collectors, creating them on first
// use. They are never torn down.
func DefaultMetrics() *Metrics {
	defaultOnce.Do(func() {
		defaultRegistry = prometheus.NewRegistry()
		defaultMetrics = NewMetrics(defaultRegistry)
	})
	return defaultMetrics
}

// DefaultRegistry returns the registry behind DefaultMetrics.
func DefaultRegistry() *prometheus.Registry {
	DefaultMetrics()
	return defaultRegistry
}

func (m *Metrics) ConnOpened() {
	if m != nil {
		m.ConnsOpened.Inc()
	}
}

func (m *Metrics) ConnClosed() {
	if m != nil {
		m.ConnsClosed.Inc()
	}
}

func (m *Metrics) Read(n int) {
	if m != nil {
		m.BytesRead.Add(float64(n))
	}
}

func (m *Metrics) Written(n int) {
	if m != nil {
		m.BytesWritten.Add(float64(n))
	}
}

func (m *Metrics) HighWaterMark() {
	if m != nil {
		m.HighWaterMarks.Inc()
	}
}

func (m *Metrics) IOError() {
	if m != nil {
		m.IOErrors.Inc()
	}
}

// Pending records the size of one pending-queue drain of loop.
func (m *Metrics) Pending(loop string, n int) {
	if m != nil {
		m.PendingTasks.WithLabelValues(loop).Set(float64(n))
	}
}
