package metrics

// FileCacheMetrics observes internal/filecache.Cache activity.
type FileCacheMetrics interface {
	RecordCacheSize(n int)
	RecordEntryOpened()
	RecordEntryClosed()
	RecordSweepRemoved(n int)
}

var newPrometheusFileCacheMetrics func() FileCacheMetrics

// RegisterFileCacheMetricsConstructor is called by pkg/metrics/prometheus's
// init() to supply the concrete implementation.
func RegisterFileCacheMetricsConstructor(constructor func() FileCacheMetrics) {
	newPrometheusFileCacheMetrics = constructor
}

// NewFileCacheMetrics returns nil if metrics are not enabled.
func NewFileCacheMetrics() FileCacheMetrics {
	if !IsEnabled() || newPrometheusFileCacheMetrics == nil {
		return nil
	}
	return newPrometheusFileCacheMetrics()
}

func RecordCacheSize(m FileCacheMetrics, n int) {
	if m != nil {
		m.RecordCacheSize(n)
	}
}

func RecordEntryOpened(m FileCacheMetrics) {
	if m != nil {
		m.RecordEntryOpened()
	}
}

func RecordEntryClosed(m FileCacheMetrics) {
	if m != nil {
		m.RecordEntryClosed()
	}
}

func RecordSweepRemoved(m FileCacheMetrics, n int) {
	if m != nil {
		m.RecordSweepRemoved(n)
	}
}
