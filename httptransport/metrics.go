package httptransport

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for outgoing requests.
type Metrics struct {
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge
}

// NewMetrics registers the collectors with reg, or with the default
// registerer when reg is nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "restmap",
				Name:      "client_requests_total",
				Help:      "Total number of API requests sent",
			},
			[]string{"method", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "restmap",
				Name:      "client_request_duration_seconds",
				Help:      "API request duration in seconds",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"method"},
		),
		RequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "restmap",
				Name:      "client_requests_in_flight",
				Help:      "Number of API requests currently in flight",
			},
		),
	}
}

// Middleware records every request. Transport failures count as status
// "error".
func (m *Metrics) Middleware(next Handler) Handler {
	return func(ctx context.Context, req *Request) (*Response, error) {
		m.RequestsInFlight.Inc()
		defer m.RequestsInFlight.Dec()
		start := time.Now()
		resp, err := next(ctx, req)
		m.RequestDuration.WithLabelValues(req.Method).Observe(time.Since(start).Seconds())
		status := "error"
		if resp != nil {
			status = statusClass(resp.Status)
		}
		m.RequestsTotal.WithLabelValues(req.Method, status).Inc()
		return resp, err
	}
}

func statusClass(code int) string {
	if code < 100 || code > 599 {
		return strconv.Itoa(code)
	}
	return strconv.Itoa(code/100) + "xx"
}
