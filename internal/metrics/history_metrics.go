package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Результаты операции обновления истории.
const (
	ResultCreated        = "created"
	ResultReused         = "reused"
	ResultOrderNotFound  = "order_not_found"
	ResultStatusNotFound = "status_not_found"
	ResultWriteFailed    = "write_failed"
	ResultError          = "error"
)

// HistoryMetrics содержит метрики журнала статусов заказов.
type HistoryMetrics struct {
	updates       *prometheus.CounterVec
	statusChanges prometheus.Counter
	duration      prometheus.Histogram
	events        *prometheus.CounterVec
}

// NewHistoryMetrics регистрирует метрики в DefaultRegisterer.
func NewHistoryMetrics() *HistoryMetrics {
	return NewHistoryMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewHistoryMetricsWithRegisterer регистрирует метрики в переданном registerer.
func NewHistoryMetricsWithRegisterer(registerer prometheus.Registerer) *HistoryMetrics {
	return &HistoryMetrics{
		updates: register(registerer, "oms_history_updates_total", prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "oms_history_updates_total",
			Help: "Total number of order status history update calls grouped by result.",
		}, []string{"result"})),
		statusChanges: register(registerer, "oms_history_status_changes_total", prometheus.NewCounter(prometheus.CounterOpts{
			Name: "oms_history_status_changes_total",
			Help: "Total number of order status transitions.",
		})),
		duration: register(registerer, "oms_history_update_duration_seconds", prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "oms_history_update_duration_seconds",
			Help:    "Duration of order status history updates in seconds.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		})),
		events: register(registerer, "oms_history_events_total", prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "oms_history_events_total",
			Help: "Total number of history lifecycle events emitted.",
		}, []string{"event"})),
	}
}

// RecordUpdate учитывает завершённый вызов и его длительность.
func (m *HistoryMetrics) RecordUpdate(result string, duration time.Duration) {
	if m == nil {
		return
	}
	m.updates.WithLabelValues(result).Inc()
	m.duration.Observe(duration.Seconds())
}

// RecordStatusChange увеличивает счётчик смен статуса.
func (m *HistoryMetrics) RecordStatusChange() {
	if m == nil {
		return
	}
	m.statusChanges.Inc()
}

// RecordEvent учитывает отправленное событие.
func (m *HistoryMetrics) RecordEvent(event string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(event).Inc()
}
