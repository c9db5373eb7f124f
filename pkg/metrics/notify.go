package metrics

// NotifyMetrics observes internal/notify.Dispatcher activity.
type NotifyMetrics interface {
	RecordActiveRequests(n int)
	RecordDispatched()
	RecordBuffered()
	RecordOverflow()
	RecordExpired(n int)
}

var newPrometheusNotifyMetrics func() NotifyMetrics

// RegisterNotifyMetricsConstructor is called by pkg/metrics/prometheus's
// init() to supply the concrete implementation.
func RegisterNotifyMetricsConstructor(constructor func() NotifyMetrics) {
	newPrometheusNotifyMetrics = constructor
}

// NewNotifyMetrics returns nil if metrics are not enabled.
func NewNotifyMetrics() NotifyMetrics {
	if !IsEnabled() || newPrometheusNotifyMetrics == nil {
		return nil
	}
	return newPrometheusNotifyMetrics()
}

func RecordActiveRequests(m NotifyMetrics, n int) {
	if m != nil {
		m.RecordActiveRequests(n)
	}
}

func RecordDispatched(m NotifyMetrics) {
	if m != nil {
		m.RecordDispatched()
	}
}

func RecordBuffered(m NotifyMetrics) {
	if m != nil {
		m.RecordBuffered()
	}
}

func RecordOverflow(m NotifyMetrics) {
	if m != nil {
		m.RecordOverflow()
	}
}

func RecordExpired(m NotifyMetrics, n int) {
	if m != nil {
		m.RecordExpired(n)
	}
}
