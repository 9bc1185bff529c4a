package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records tool and artifact activity for one pipeline run. Each
// instance owns its registry so repeated runs in one process never collide.
type Metrics struct {
	registry *prometheus.Registry

	envBuilds       *prometheus.CounterVec
	envBuildSeconds *prometheus.HistogramVec
	toolRuns        *prometheus.CounterVec
	toolRunSeconds  *prometheus.HistogramVec
	artifacts       *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		envBuilds: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "ockamctl",
				Subsystem: "toolenv",
				Name:      "builds_total",
				Help:      "Tool environment builds.",
			},
			[]string{"tool", "success"},
		),
		envBuildSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "ockamctl",
				Subsystem: "toolenv",
				Name:      "build_duration_seconds",
				Help:      "Tool environment build duration in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"tool"},
		),
		toolRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "ockamctl",
				Subsystem: "tool",
				Name:      "runs_total",
				Help:      "Tool invocations by exit status.",
			},
			[]string{"tool", "status"},
		),
		toolRunSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "ockamctl",
				Subsystem: "tool",
				Name:      "run_duration_seconds",
				Help:      "Tool invocation duration in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"tool"},
		),
		artifacts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "ockamctl",
				Subsystem: "build",
				Name:      "artifacts_total",
				Help:      "Binaries produced per platform.",
			},
			[]string{"os", "arch"},
		),
	}
	m.registry.MustRegister(m.envBuilds, m.envBuildSeconds, m.toolRuns, m.toolRunSeconds, m.artifacts)
	return m
}

func (m *Metrics) EnvironmentBuild(tool string, ok bool, d time.Duration) {
	m.envBuilds.WithLabelValues(tool, strconv.FormatBool(ok)).Inc()
	m.envBuildSeconds.WithLabelValues(tool).Observe(d.Seconds())
}

func (m *Metrics) ToolRun(tool string, status int, d time.Duration) {
	m.toolRuns.WithLabelValues(tool, strconv.Itoa(status)).Inc()
	m.toolRunSeconds.WithLabelValues(tool).Observe(d.Seconds())
}

func (m *Metrics) ArtifactBuilt(osName, arch string) {
	m.artifacts.WithLabelValues(osName, arch).Inc()
}

// WriteTextfile dumps the metrics in the node-exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
