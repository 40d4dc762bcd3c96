package metrics

import (
	"ProctorGuard/pkg/proctor"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	OutcomeOK        = "ok"
	OutcomeDecode    = "decode_error"
	OutcomeDetection = "detection_error"
	OutcomeTimeout   = "timeout"
	OutcomeRejected  = "rejected"
)

type IMetrics interface {
	ObserveAnalysis(outcome string, took time.Duration)
	ObserveReport(report *proctor.Report)
	ObserveSinkFailure()
	SetActiveStreams(n int)
	Handler() http.Handler
}

type Metrics struct {
	registry *prometheus.Registry

	framesTotal    *prometheus.CounterVec
	violations     *prometheus.CounterVec
	analysisDur    *prometheus.SummaryVec
	degraded       prometheus.Counter
	sinkFailures   prometheus.Counter
	activeStreams  prometheus.Gauge
	lastAnalysisTS prometheus.Gauge
}

// New builds the collectors on a private registry so tests and the CLI can
// create as many as they like.
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.framesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "proctor",
		Name:      "frames_analyzed_total",
		Help:      "Frames submitted for analysis by outcome",
	}, []string{"outcome"})
	m.violations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "proctor",
		Name:      "violations_total",
		Help:      "Violation events emitted by fusion",
	}, []string{"type", "severity"})
	m.analysisDur = prometheus.NewSummaryVec(prometheus.SummaryOpts{
		Namespace:  "proctor",
		Name:       "analysis_duration_seconds",
		Help:       "Time spent analysing a single frame",
		Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
	}, []string{"outcome"})
	m.degraded = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "proctor",
		Name:      "object_detection_degraded_total",
		Help:      "Frames analysed without an object signal because the object model failed",
	})
	m.sinkFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "proctor",
		Name:      "sink_failures_total",
		Help:      "Violation events that could not be persisted",
	})
	m.activeStreams = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "proctor",
		Name:      "active_streams",
		Help:      "Open websocket frame streams",
	})
	m.lastAnalysisTS = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "proctor",
		Name:      "last_analysis_timestamp_seconds",
		Help:      "Unix time of the last successful analysis",
	})

	m.registry.MustRegister(
		m.framesTotal,
		m.violations,
		m.analysisDur,
		m.degraded,
		m.sinkFailures,
		m.activeStreams,
		m.lastAnalysisTS,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

func (m *Metrics) ObserveAnalysis(outcome string, took time.Duration) {
	m.framesTotal.WithLabelValues(outcome).Inc()
	m.analysisDur.WithLabelValues(outcome).Observe(took.Seconds())
	if outcome == OutcomeOK {
		m.lastAnalysisTS.SetToCurrentTime()
	}
}

func (m *Metrics) ObserveReport(report *proctor.Report) {
	if report == nil {
		return
	}
	if report.ObjectAnalysis.Degraded {
		m.degraded.Inc()
	}
	for _, v := range report.Violations {
		m.violations.WithLabelValues(string(v.Type), v.Severity.String()).Inc()
	}
}

func (m *Metrics) ObserveSinkFailure() {
	m.sinkFailures.Inc()
}

func (m *Metrics) SetActiveStreams(n int) {
	m.activeStreams.Set(float64(n))
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
