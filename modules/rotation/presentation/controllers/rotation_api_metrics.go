package controllers

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	rotationAPIRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rotation",
		Subsystem: "api",
		Name:      "requests_total",
		Help:      "Total number of rotation API requests broken down by endpoint and result.",
	}, []string{"endpoint", "result"})

	rotationAPILatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "rotation",
		Subsystem: "api",
		Name:      "latency_seconds",
		Help:      "Latency distribution for rotation API requests.",
		Buckets: []float64{
			0.001, 0.005, 0.01,
			0.05, 0.1, 0.5,
			1, 2, 5,
		},
	}, []string{"endpoint", "result"})
)

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusRecorder) WriteHeader(status int) {
	if w.wroteHeader {
		return
	}
	w.status = status
	w.wroteHeader = true
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusRecorder) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

func resultClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	default:
		return "2xx"
	}
}

// instrumentAPI labels by a fixed endpoint name rather than the path so ids
// never reach the label set.
func instrumentAPI(endpoint string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next(rec, r)

		result := resultClass(rec.status)
		rotationAPIRequests.WithLabelValues(endpoint, result).Inc()
		rotationAPILatency.WithLabelValues(endpoint, result).Observe(time.Since(start).Seconds())
	}
}
