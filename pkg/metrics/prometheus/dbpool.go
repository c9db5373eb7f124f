package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/gocifsd/smbnotifyd/pkg/metrics"
)

type dbPoolMetrics struct {
	leased           prometheus.Gauge
	free             prometheus.Gauge
	online           prometheus.Gauge
	acquireFailures  prometheus.Counter
	reapCyclesTotal  prometheus.Counter
}

// NewDbPoolMetrics builds the Prometheus-backed implementation of
// metrics.DbPoolMetrics.
func NewDbPoolMetrics() metrics.DbPoolMetrics {
	if !metrics.IsEnabled() {
		return nil
	}
	reg := metrics.GetRegistry()
	return &dbPoolMetrics{
		leased: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "smbnotifyd_dbpool_leased_connections",
			Help: "Number of connections currently leased out.",
		}),
		free: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "smbnotifyd_dbpool_free_connections",
			Help: "Number of idle connections available for lease.",
		}),
		online: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "smbnotifyd_dbpool_online",
			Help: "1 if the backing database is reachable, 0 otherwise.",
		}),
		acquireFailures: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "smbnotifyd_dbpool_acquire_failures_total",
			Help: "Total Acquire calls that returned an error.",
		}),
		reapCyclesTotal: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "smbnotifyd_dbpool_reap_cycles_total",
			Help: "Total reaper cycles run.",
		}),
	}
}

func (m *dbPoolMetrics) RecordLeasedCount(n int) {
	if m == nil {
		return
	}
	m.leased.Set(float64(n))
}

func (m *dbPoolMetrics) RecordFreeCount(n int) {
	if m == nil {
		return
	}
	m.free.Set(float64(n))
}

func (m *dbPoolMetrics) RecordOnlineStatus(online bool) {
	if m == nil {
		return
	}
	if online {
		m.online.Set(1)
		return
	}
	m.online.Set(0)
}

func (m *dbPoolMetrics) RecordAcquireFailure() {
	if m == nil {
		return
	}
	m.acquireFailures.Inc()
}

func (m *dbPoolMetrics) RecordReapCycle() {
	if m == nil {
		return
	}
	m.reapCyclesTotal.Inc()
}

func init() {
	metrics.RegisterDbPoolMetricsConstructor(NewDbPoolMetrics)
}
