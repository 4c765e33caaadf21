package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vango-dev/terse/pkg/render"
)

// Metrics holds the server's Prometheus collectors.
type Metrics struct {
	Requests       *prometheus.CounterVec
	RenderDuration *prometheus.HistogramVec
	StreamChunks   *prometheus.CounterVec
	LiveSessions   prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "terse",
			Name:      "requests_total",
			Help:      "Requests served, by route pattern and status.",
		}, []string{"route", "status"}),

		RenderDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "terse",
			Name:      "render_duration_seconds",
			Help:      "Time to stream a page, by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),

		StreamChunks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "terse",
			Name:      "stream_chunks_total",
			Help:      "Chunks written by page streams, by kind.",
		}, []string{"kind"}),

		LiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "terse",
			Name:      "live_sessions",
			Help:      "Open live sessions.",
		}),
	}
}

// countingSink counts chunks as they are written.
type countingSink struct {
	render.Sink
	chunks *prometheus.CounterVec
}

func (s countingSink) WriteChunk(c render.Chunk) error {
	if err := s.Sink.WriteChunk(c); err != nil {
		return err
	}
	s.chunks.WithLabelValues(c.Kind.String()).Inc()
	return nil
}
