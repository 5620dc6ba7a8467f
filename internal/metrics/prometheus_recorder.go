package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once           sync.Once
	registry       *prom.Registry
	stageDuration  *prom.HistogramVec
	stageResults   *prom.CounterVec
	targetOutcomes *prom.CounterVec
	runDuration    prom.Histogram
	configChanges  prom.Counter
}

// deployBuckets cover stages from a quick config rewrite to a long install.
var deployBuckets = []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300, 600, 1800}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{registry: reg}
	pr.once.Do(func() {
		pr.stageDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "agent_deploy",
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual provisioning stages",
			Buckets:   deployBuckets,
		}, []string{"stage"})
		pr.stageResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "agent_deploy",
			Name:      "stage_results_total",
			Help:      "Stage result counts by outcome",
		}, []string{"stage", "result"})
		pr.targetOutcomes = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "agent_deploy",
			Name:      "target_outcomes_total",
			Help:      "Target outcomes by final state",
		}, []string{"outcome"})
		pr.runDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "agent_deploy",
			Name:      "run_duration_seconds",
			Help:      "Total deployment run duration",
			Buckets:   deployBuckets,
		})
		pr.configChanges = prom.NewCounter(prom.CounterOpts{
			Namespace: "agent_deploy",
			Name:      "config_changes_total",
			Help:      "Configuration files rewritten by the configure stage",
		})
		reg.MustRegister(pr.stageDuration, pr.stageResults, pr.targetOutcomes, pr.runDuration, pr.configChanges)
	})
	return pr
}

// Registry returns the registry the metrics are registered with.
func (p *PrometheusRecorder) Registry() *prom.Registry {
	return p.registry
}

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	if p == nil || p.stageDuration == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncStageResult(stage string, result ResultLabel) {
	if p == nil || p.stageResults == nil {
		return
	}
	p.stageResults.WithLabelValues(stage, string(result)).Inc()
}

func (p *PrometheusRecorder) IncTargetOutcome(outcome string) {
	if p == nil || p.targetOutcomes == nil {
		return
	}
	p.targetOutcomes.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) ObserveRunDuration(d time.Duration) {
	if p == nil || p.runDuration == nil {
		return
	}
	p.runDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncConfigChanged() {
	if p == nil || p.configChanges == nil {
		return
	}
	p.configChanges.Inc()
}

// WriteTextfile writes every registered metric to path in the text format
// read by node_exporter's textfile collector.
func (p *PrometheusRecorder) WriteTextfile(path string) error {
	return prom.WriteToTextfile(path, p.registry)
}
