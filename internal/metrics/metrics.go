package metrics

import (
	"net/http"
	"time"

	"deliverylens/internal/engine"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Registry struct {
	reg         *prometheus.Registry
	Runs        prometheus.Counter
	RunFailures prometheus.Counter
	RowsLoaded  *prometheus.CounterVec
	Notices     *prometheus.CounterVec
	RunLatency  prometheus.Histogram
	OrdersRange prometheus.Gauge
	Eligible    prometheus.Gauge
	LateOrders  prometheus.Gauge
	OnTimeRate  prometheus.Gauge
	AvgDelivery prometheus.Gauge
	AvgReview   prometheus.Gauge
	Defined     *prometheus.GaugeVec
	Published   *prometheus.CounterVec
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	runs := prometheus.NewCounter(prometheus.CounterOpts{Name: "deliverylens_runs_total"})
	failures := prometheus.NewCounter(prometheus.CounterOpts{Name: "deliverylens_run_failures_total"})
	rows := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "deliverylens_rows_loaded_total"}, []string{"dataset"})
	notices := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "deliverylens_notices_total"}, []string{"section", "kind"})
	latency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "deliverylens_run_latency_seconds",
		Buckets: prometheus.DefBuckets,
	})
	inRange := prometheus.NewGauge(prometheus.GaugeOpts{Name: "deliverylens_orders_in_range"})
	eligible := prometheus.NewGauge(prometheus.GaugeOpts{Name: "deliverylens_eligible_orders"})
	late := prometheus.NewGauge(prometheus.GaugeOpts{Name: "deliverylens_late_orders"})
	onTime := prometheus.NewGauge(prometheus.GaugeOpts{Name: "deliverylens_on_time_rate_percent"})
	avgDelivery := prometheus.NewGauge(prometheus.GaugeOpts{Name: "deliverylens_average_delivery_days"})
	avgReview := prometheus.NewGauge(prometheus.GaugeOpts{Name: "deliverylens_average_review_score"})
	defined := prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: "deliverylens_aggregate_defined"}, []string{"aggregate"})
	published := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "deliverylens_reports_published_total"}, []string{"result"})

	r.MustRegister(runs, failures, rows, notices, latency, inRange, eligible, late, onTime, avgDelivery, avgReview, defined, published)
	return &Registry{
		reg:         r,
		Runs:        runs,
		RunFailures: failures,
		RowsLoaded:  rows,
		Notices:     notices,
		RunLatency:  latency,
		OrdersRange: inRange,
		Eligible:    eligible,
		LateOrders:  late,
		OnTimeRate:  onTime,
		AvgDelivery: avgDelivery,
		AvgReview:   avgReview,
		Defined:     defined,
		Published:   published,
	}
}

// ObserveReport records one completed run. An undefined aggregate zeroes
// its gauge and reports 0 in deliverylens_aggregate_defined.
func (r *Registry) ObserveReport(rep engine.Report, elapsed time.Duration) {
	r.Runs.Inc()
	r.RunLatency.Observe(elapsed.Seconds())
	r.RowsLoaded.WithLabelValues("orders").Add(float64(rep.Counts.OrdersLoaded))
	r.RowsLoaded.WithLabelValues("payments").Add(float64(rep.Counts.PaymentsLoaded))
	r.RowsLoaded.WithLabelValues("reviews").Add(float64(rep.Counts.ReviewsLoaded))
	for _, n := range rep.Notices {
		r.Notices.WithLabelValues(n.Section, n.Kind).Inc()
	}
	r.OrdersRange.Set(float64(rep.Counts.OrdersInRange))
	r.Eligible.Set(float64(rep.Counts.EligibleOrders))
	r.LateOrders.Set(float64(rep.Counts.LateOrders))
	r.setAggregate("on_time_rate", r.OnTimeRate, rep.OnTimeRate)
	r.setAggregate("average_delivery_days", r.AvgDelivery, rep.AverageDeliveryDays)
	r.setAggregate("average_review_score", r.AvgReview, rep.AverageReviewScore)
}

// ObserveFailure records a run that produced no report.
func (r *Registry) ObserveFailure(elapsed time.Duration) {
	r.Runs.Inc()
	r.RunFailures.Inc()
	r.RunLatency.Observe(elapsed.Seconds())
}

func (r *Registry) setAggregate(name string, g prometheus.Gauge, m engine.Metric) {
	if !m.Defined {
		g.Set(0)
		r.Defined.WithLabelValues(name).Set(0)
		return
	}
	g.Set(m.Value)
	r.Defined.WithLabelValues(name).Set(1)
}

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }
