package internal

import (
	"net/http"
	"time"

	"github.com/go-kit/kit/endpoint"
	"github.com/go-kit/kit/metrics"
	kitprometheus "github.com/go-kit/kit/metrics/prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/context"
)

const metricsNamespace = "devcamper"

// Metrics counts the calls of the instrumented endpoints and measures their latency
type Metrics struct {
	requests metrics.Counter
	latency  metrics.Histogram
	gatherer prometheus.Gatherer
}

// NewMetrics creates the endpoint metrics and registers them with the given registry
func NewMetrics(reg *prometheus.Registry) (*Metrics, error) {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "api",
		Name:      "requests_total",
		Help:      "Number of requests received",
	}, []string{"method", "error"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Subsystem: "api",
		Name:      "request_duration_seconds",
		Help:      "Time spent processing a request in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method"})
	for _, c := range []prometheus.Collector{requests, latency} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return &Metrics{
		requests: kitprometheus.NewCounter(requests),
		latency:  kitprometheus.NewHistogram(latency),
		gatherer: reg,
	}, nil
}

// Instrument creates a middleware recording the calls of an endpoint under the given method name. Calling it on a
// nil Metrics returns a middleware that does nothing.
func (m *Metrics) Instrument(method string) endpoint.Middleware {
	if m == nil {
		return func(next endpoint.Endpoint) endpoint.Endpoint { return next }
	}
	return func(next endpoint.Endpoint) endpoint.Endpoint {
		return func(ctx context.Context, request interface{}) (response interface{}, err error) {
			defer func(begin time.Time) {
				failed := "false"
				if err != nil {
					failed = "true"
				}
				m.requests.With("method", method, "error", failed).Add(1)
				m.latency.With("method", method).Observe(time.Since(begin).Seconds())
			}(time.Now())
			return next(ctx, request)
		}
	}
}

// Handler serves the collected metrics in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
