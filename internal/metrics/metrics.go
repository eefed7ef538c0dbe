// Package metrics provides Prometheus instrumentation for the classifier
// service: prediction outcomes, inference latency, time spent waiting for
// the inference lock, model load state and HTTP traffic.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Brownie44l1/classifier-api/internal/classifier"
)

// Metrics holds all collectors. It implements classifier.Recorder.
type Metrics struct {
	Predictions      *prometheus.CounterVec // Predict calls by outcome
	InferenceLatency prometheus.Histogram   // Model call duration
	LockWait         prometheus.Histogram   // Time waiting for the inference lock
	ModelLoadedGauge prometheus.Gauge       // 1 while a model is loaded
	HTTPRequests     *prometheus.CounterVec // Requests by route and status code
}

// New registers all metrics with the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers with a custom registerer (useful for tests).
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		Predictions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "predictions_total",
			Help: "Total number of prediction requests by outcome",
		}, []string{"outcome"}),
		InferenceLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "inference_latency_seconds",
			Help:    "ONNX model inference latency in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		}),
		LockWait: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "inference_lock_wait_seconds",
			Help:    "Time spent waiting for the inference lock in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
		}),
		ModelLoadedGauge: factory.NewGauge(prometheus.GaugeOpts{
			Name: "model_loaded",
			Help: "Whether the classifier model is loaded (1) or not (0)",
		}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests by route and status code",
		}, []string{"route", "code"}),
	}
}

func (m *Metrics) PredictionObserved(o classifier.Outcome) {
	m.Predictions.WithLabelValues(string(o)).Inc()
}

func (m *Metrics) InferenceObserved(d time.Duration) {
	m.InferenceLatency.Observe(d.Seconds())
}

func (m *Metrics) LockWaitObserved(d time.Duration) {
	m.LockWait.Observe(d.Seconds())
}

func (m *Metrics) ModelLoaded(loaded bool) {
	if loaded {
		m.ModelLoadedGauge.Set(1)
		return
	}
	m.ModelLoadedGauge.Set(0)
}

// RequestServed counts one HTTP response.
func (m *Metrics) RequestServed(route string, code int) {
	m.HTTPRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}
