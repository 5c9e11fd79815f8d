package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SaleMetrics records the outcome of buy string submissions and orders.
type SaleMetrics struct {
	committed   prometheus.Counter
	rejections  *prometheus.CounterVec
	parseErrors prometheus.Counter
	orderTotal  prometheus.Histogram
	duration    *prometheus.HistogramVec
}

// NewSaleMetrics registers the sale metrics on the provided registerer.
// A nil registerer yields a recorder that drops everything.
func NewSaleMetrics(reg prometheus.Registerer) *SaleMetrics {
	if reg == nil {
		return &SaleMetrics{}
	}
	committed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "streg_orders_committed_total",
		Help: "Orders committed to the ledger.",
	})
	rejections := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "streg_order_rejections_total",
		Help: "Orders rejected by the execution engine.",
	}, []string{"kind"})
	parseErrors := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "streg_buy_string_parse_errors_total",
		Help: "Buy strings that failed to parse.",
	})
	orderTotal := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "streg_order_total_ore",
		Help:    "Committed order totals in øre.",
		Buckets: []float64{500, 1000, 2000, 5000, 10000, 20000, 50000},
	})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "streg_order_duration_seconds",
		Help:    "Time spent executing orders.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	reg.MustRegister(committed, rejections, parseErrors, orderTotal, duration)
	return &SaleMetrics{
		committed:   committed,
		rejections:  rejections,
		parseErrors: parseErrors,
		orderTotal:  orderTotal,
		duration:    duration,
	}
}

// ObserveCommit records a committed order and its total.
func (m *SaleMetrics) ObserveCommit(total int64, took time.Duration) {
	if m == nil || m.committed == nil {
		return
	}
	m.committed.Inc()
	m.orderTotal.Observe(float64(total))
	m.duration.WithLabelValues("committed").Observe(took.Seconds())
}

// ObserveRejection records a rejected order by kind.
func (m *SaleMetrics) ObserveRejection(kind string, took time.Duration) {
	if m == nil || m.rejections == nil {
		return
	}
	m.rejections.WithLabelValues(normalizeLabel(kind)).Inc()
	m.duration.WithLabelValues("rejected").Observe(took.Seconds())
}

// IncParseError counts a buy string the parser refused.
func (m *SaleMetrics) IncParseError() {
	if m == nil || m.parseErrors == nil {
		return
	}
	m.parseErrors.Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
