// Package observability exposes prometheus metrics for the speech pipeline.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Speak connector metrics
	speakRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "speakd_speak_requests_total",
		Help: "Speak requests by outcome",
	}, []string{"outcome"})

	controlRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "speakd_tts_control_requests_total",
		Help: "TTS control-plane requests by code",
	}, []string{"code"})

	// Playback metrics
	queueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "speakd_pending_messages",
		Help: "Messages waiting in the playback queue",
	})

	synthLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "speakd_synthesis_latency_seconds",
		Help:    "Time to synthesize one pending message",
		Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0},
	})

	synthErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "speakd_synthesis_errors_total",
		Help: "Failed synthesis requests",
	})

	interrupts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "speakd_playback_interrupts_total",
		Help: "Playback interruptions triggered by new speech input",
	})
)

// Outcomes for speak requests.
const (
	OutcomeSpoken          = "spoken"
	OutcomeSkippedSilence  = "skipped_silence"
	OutcomeSkippedDisabled = "skipped_disabled"
)

// SpeakRequest records the outcome of one speak request.
func SpeakRequest(outcome string) {
	speakRequests.WithLabelValues(outcome).Inc()
}

// ControlRequest records one control-plane request by code.
func ControlRequest(code string) {
	controlRequests.WithLabelValues(code).Inc()
}

// SetQueueDepth records the current playback queue depth.
func SetQueueDepth(n int) {
	queueDepth.Set(float64(n))
}

// ObserveSynthesis records the latency of one synthesis call.
func ObserveSynthesis(seconds float64) {
	synthLatency.Observe(seconds)
}

// SynthesisError records a failed synthesis call.
func SynthesisError() {
	synthErrors.Inc()
}

// Interrupt records one playback interruption.
func Interrupt() {
	interrupts.Inc()
}
