package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/gocifsd/smbnotifyd/pkg/metrics"
)

type notifyMetrics struct {
	activeRequests  prometheus.Gauge
	dispatchedTotal prometheus.Counter
	bufferedTotal   prometheus.Counter
	overflowsTotal  prometheus.Counter
	expiredTotal    prometheus.Counter
}

// NewNotifyMetrics builds the Prometheus-backed implementation of
// metrics.NotifyMetrics.
func NewNotifyMetrics() metrics.NotifyMetrics {
	if !metrics.IsEnabled() {
		return nil
	}
	reg := metrics.GetRegistry()
	return &notifyMetrics{
		activeRequests: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "smbnotifyd_notify_active_requests",
			Help: "Number of armed NotifyRequests currently tracked.",
		}),
		dispatchedTotal: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "smbnotifyd_notify_dispatched_total",
			Help: "Total notification responses sent, immediately or drained on re-arm.",
		}),
		bufferedTotal: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "smbnotifyd_notify_buffered_total",
			Help: "Total events buffered onto an already-completed request.",
		}),
		overflowsTotal: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "smbnotifyd_notify_overflows_total",
			Help: "Total times a request's buffer overflowed.",
		}),
		expiredTotal: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "smbnotifyd_notify_expired_total",
			Help: "Total requests removed because their lease elapsed unarmed.",
		}),
	}
}

func (m *notifyMetrics) RecordActiveRequests(n int) {
	if m == nil {
		return
	}
	m.activeRequests.Set(float64(n))
}

func (m *notifyMetrics) RecordDispatched() {
	if m == nil {
		return
	}
	m.dispatchedTotal.Inc()
}

func (m *notifyMetrics) RecordBuffered() {
	if m == nil {
		return
	}
	m.bufferedTotal.Inc()
}

func (m *notifyMetrics) RecordOverflow() {
	if m == nil {
		return
	}
	m.overflowsTotal.Inc()
}

func (m *notifyMetrics) RecordExpired(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.expiredTotal.Add(float64(n))
}

func init() {
	metrics.RegisterNotifyMetricsConstructor(NewNotifyMetrics)
}
