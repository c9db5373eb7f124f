package metrics

// ThreadPoolMetrics observes internal/threadpool.Pool activity.
type ThreadPoolMetrics interface {
	ObserveQueueDepth(immediate, timed int)
	ObserveActiveWorkers(n int)
	RecordTaskCompleted()
	RecordPanicRecovered()
}

var newPrometheusThreadPoolMetrics func() ThreadPoolMetrics

// RegisterThreadPoolMetricsConstructor is called by
// pkg/metrics/prometheus's init() to supply the concrete implementation,
// breaking the import cycle between the two packages.
func RegisterThreadPoolMetricsConstructor(constructor func() ThreadPoolMetrics) {
	newPrometheusThreadPoolMetrics = constructor
}

// NewThreadPoolMetrics returns nil if metrics are not enabled (InitRegistry
// not called) or the prometheus implementation was never registered.
func NewThreadPoolMetrics() ThreadPoolMetrics {
	if !IsEnabled() || newPrometheusThreadPoolMetrics == nil {
		return nil
	}
	return newPrometheusThreadPoolMetrics()
}

func ObserveQueueDepth(m ThreadPoolMetrics, immediate, timed int) {
	if m != nil {
		m.ObserveQueueDepth(immediate, timed)
	}
}

func ObserveActiveWorkers(m ThreadPoolMetrics, n int) {
	if m != nil {
		m.ObserveActiveWorkers(n)
	}
}

func RecordTaskCompleted(m ThreadPoolMetrics) {
	if m != nil {
		m.RecordTaskCompleted()
	}
}

func RecordPanicRecovered(m ThreadPoolMetrics) {
	if m != nil {
		m.RecordPanicRecovered()
	}
}
