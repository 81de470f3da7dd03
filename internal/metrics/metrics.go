// Package metrics implements Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"firestige.xyz/cobslog/internal/core"
)

// Frame outcomes used as the "outcome" label of FramesTotal.
const (
	OutcomeRecord       = "record"
	OutcomeMissing      = "missing"
	OutcomeMetadata     = "metadata"
	OutcomeSizeMismatch = "size_mismatch"
)

var (
	// FramesTotal counts delimited frames by classification
	FramesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cobslog_frames_total",
			Help: "Total number of frames processed, by outcome",
		},
		[]string{"source", "outcome"},
	)

	// TrailingBytesTotal counts bytes after the last delimiter
	TrailingBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cobslog_trailing_bytes_total",
			Help: "Total number of unterminated bytes ignored at end of input",
		},
		[]string{"source"},
	)

	// BytesScannedTotal counts input bytes consumed by extraction
	BytesScannedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cobslog_bytes_scanned_total",
			Help: "Total number of input bytes scanned",
		},
		[]string{"source"},
	)

	// BuildInfo is set to 1 for every build identifier seen
	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cobslog_build_info",
			Help: "Build identifier reported by the device (value is always 1)",
		},
		[]string{"source", "build"},
	)

	// RunsTotal counts extraction runs by result
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cobslog_runs_total",
			Help: "Total number of extraction runs",
		},
		[]string{"mode", "result"},
	)

	// RunDurationSeconds measures extraction run latency
	RunDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cobslog_run_duration_seconds",
			Help:    "Duration of extraction runs in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 18), // 100µs to ~13s
		},
		[]string{"mode"},
	)

	// CaptureBytesTotal counts bytes read from a serial device
	CaptureBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cobslog_capture_bytes_total",
			Help: "Total number of bytes captured from serial ports",
		},
		[]string{"port"},
	)
)

// RecordStats adds the counters only known once a run completes.
func RecordStats(source string, s core.Stats) {
	BytesScannedTotal.WithLabelValues(source).Add(float64(s.BytesScanned))
}
