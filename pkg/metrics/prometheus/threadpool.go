package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/gocifsd/smbnotifyd/pkg/metrics"
)

type threadPoolMetrics struct {
	immediateQueueDepth prometheus.Gauge
	timedQueueDepth     prometheus.Gauge
	activeWorkers       prometheus.Gauge
	tasksCompleted      prometheus.Counter
	panicsRecovered     prometheus.Counter
}

// NewThreadPoolMetrics builds the Prometheus-backed implementation of
// metrics.ThreadPoolMetrics, registered against metrics.GetRegistry().
func NewThreadPoolMetrics() metrics.ThreadPoolMetrics {
	if !metrics.IsEnabled() {
		return nil
	}
	reg := metrics.GetRegistry()
	return &threadPoolMetrics{
		immediateQueueDepth: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "smbnotifyd_threadpool_immediate_queue_depth",
			Help: "Number of immediate tasks currently queued.",
		}),
		timedQueueDepth: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "smbnotifyd_threadpool_timed_queue_depth",
			Help: "Number of timed/repeating tasks currently scheduled.",
		}),
		activeWorkers: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "smbnotifyd_threadpool_active_workers",
			Help: "Number of worker goroutines currently running.",
		}),
		tasksCompleted: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "smbnotifyd_threadpool_tasks_completed_total",
			Help: "Total tasks that finished running, successfully or not.",
		}),
		panicsRecovered: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "smbnotifyd_threadpool_panics_recovered_total",
			Help: "Total worker panics recovered without crashing the pool.",
		}),
	}
}

func (m *threadPoolMetrics) ObserveQueueDepth(immediate, timed int) {
	if m == nil {
		return
	}
	m.immediateQueueDepth.Set(float64(immediate))
	m.timedQueueDepth.Set(float64(timed))
}

func (m *threadPoolMetrics) ObserveActiveWorkers(n int) {
	if m == nil {
		return
	}
	m.activeWorkers.Set(float64(n))
}

func (m *threadPoolMetrics) RecordTaskCompleted() {
	if m == nil {
		return
	}
	m.tasksCompleted.Inc()
}

func (m *threadPoolMetrics) RecordPanicRecovered() {
	if m == nil {
		return
	}
	m.panicsRecovered.Inc()
}

func init() {
	metrics.RegisterThreadPoolMetricsConstructor(NewThreadPoolMetrics)
}
