package middleware

import (
	"context"
	"errors"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for the bill service.
type Metrics struct {
	rpcRequests *prometheus.CounterVec
	rpcDuration *prometheus.HistogramVec
	analyses    *prometheus.CounterVec
	folders     prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		rpcRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "onecount",
			Name:      "rpc_requests_total",
			Help:      "Connect RPCs handled, by procedure and code.",
		}, []string{"procedure", "code"}),
		rpcDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "onecount",
			Name:      "rpc_duration_seconds",
			Help:      "Connect RPC latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"procedure"}),
		analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "onecount",
			Name:      "receipt_analyses_total",
			Help:      "Receipt analyses, by result.",
		}, []string{"result"}),
		folders: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "onecount",
			Name:      "archived_folders",
			Help:      "Number of folders in the archive.",
		}),
	}
	reg.MustRegister(m.rpcRequests, m.rpcDuration, m.analyses, m.folders)
	return m
}

// Interceptor records a request count and latency for every unary RPC.
func (m *Metrics) Interceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			procedure := req.Spec().Procedure

			resp, err := next(ctx, req)

			code := "ok"
			if err != nil {
				code = connect.CodeUnknown.String()
				var connectErr *connect.Error
				if errors.As(err, &connectErr) {
					code = connectErr.Code().String()
				}
			}
			m.rpcRequests.WithLabelValues(procedure, code).Inc()
			m.rpcDuration.WithLabelValues(procedure).Observe(time.Since(start).Seconds())

			return resp, err
		}
	}
}

// ObserveAnalysis counts one analysis by result ("ok", "failed", "rejected").
func (m *Metrics) ObserveAnalysis(result string) {
	m.analyses.WithLabelValues(result).Inc()
}

// SetFolders records the archive size.
func (m *Metrics) SetFolders(n int) {
	m.folders.Set(float64(n))
}
