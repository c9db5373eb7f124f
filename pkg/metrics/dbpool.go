package metrics

// DbPoolMetrics observes internal/dbpool.Pool activity.
type DbPoolMetrics interface {
	RecordLeasedCount(n int)
	RecordFreeCount(n int)
	RecordOnlineStatus(online bool)
	RecordAcquireFailure()
	RecordReapCycle()
}

var newPrometheusDbPoolMetrics func() DbPoolMetrics

// RegisterDbPoolMetricsConstructor is called by pkg/metrics/prometheus's
// init() to supply the concrete implementation.
func RegisterDbPoolMetricsConstructor(constructor func() DbPoolMetrics) {
	newPrometheusDbPoolMetrics = constructor
}

// NewDbPoolMetrics returns nil if metrics are not enabled.
func NewDbPoolMetrics() DbPoolMetrics {
	if !IsEnabled() || newPrometheusDbPoolMetrics == nil {
		return nil
	}
	return newPrometheusDbPoolMetrics()
}

func RecordLeasedCount(m DbPoolMetrics, n int) {
	if m != nil {
		m.RecordLeasedCount(n)
	}
}

func RecordFreeCount(m DbPoolMetrics, n int) {
	if m != nil {
		m.RecordFreeCount(n)
	}
}

func RecordOnlineStatus(m DbPoolMetrics, online bool) {
	if m != nil {
		m.RecordOnlineStatus(online)
	}
}

func RecordAcquireFailure(m DbPoolMetrics) {
	if m != nil {
		m.RecordAcquireFailure()
	}
}

func RecordReapCycle(m DbPoolMetrics) {
	if m != nil {
		m.RecordReapCycle()
	}
}
