package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FramesTotal counts inbound websocket frames by type and outcome.
	FramesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recorder_frames_total",
			Help: "Total number of inbound frames routed by type and status",
		},
		[]string{"type", "status"},
	)

	// AudioChunksDroppedTotal counts audio chunks rejected by the
	// backpressure guard, labeled with the rejection reason.
	AudioChunksDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recorder_audio_chunks_dropped_total",
			Help: "Total number of buffered audio chunks dropped by reason",
		},
		[]string{"reason"},
	)

	// AudioChunksBufferedTotal counts chunks accepted into the pending
	// buffer while the transcription channel was not yet ready.
	AudioChunksBufferedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recorder_audio_chunks_buffered_total",
			Help: "Total number of audio chunks buffered before channel readiness",
		},
	)

	// ActiveConnections tracks live websocket connections.
	ActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "recorder_active_connections",
			Help: "Number of live websocket connections",
		},
	)

	// ReportExportsTotal counts report exports by outcome
	// (ok / size_limit / not_found / error).
	ReportExportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recorder_report_exports_total",
			Help: "Total number of meeting report exports by outcome",
		},
		[]string{"outcome"},
	)

	// ReportBuildDuration observes how long report assembly takes.
	ReportBuildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recorder_report_build_duration_seconds",
			Help:    "Meeting report build duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
	)
)

func RecordFrame(frameType string, ok bool) {
	status := "ok"
	if !ok {
		status = "error"
	}
	FramesTotal.WithLabelValues(frameType, status).Inc()
}
