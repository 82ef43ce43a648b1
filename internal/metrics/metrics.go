package metrics

import (
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registry = prometheus.NewRegistry()

	runsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "devrun",
		Name:      "runs_total",
		Help:      "Supervised runs by outcome.",
	}, []string{"outcome"})

	linesRelayed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "devrun",
		Name:      "lines_relayed_total",
		Help:      "Lines of child output relayed to stdout.",
	})

	childRunning = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "devrun",
		Name:      "child_running",
		Help:      "Whether the supervised child is running (1=running, 0=not running).",
	})

	lastExitCode = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "devrun",
		Name:      "last_exit_code",
		Help:      "Exit code devrun reported for the most recent run.",
	})

	runDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "devrun",
		Name:      "run_duration_seconds",
		Help:      "Wall-clock duration of supervised runs in seconds.",
		Buckets:   prometheus.ExponentialBuckets(0.1, 4, 8),
	})

	buildInfo = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "devrun",
		Name:      "build_info",
		Help:      "Build metadata for the running devrun binary.",
	}, []string{"go_version", "vcs", "vcs_revision", "vcs_time", "vcs_modified"})

	buildInfoOnce sync.Once
)

func init() {
	registry.MustRegister(runsTotal, linesRelayed, childRunning, lastExitCode, runDuration, buildInfo)
}

// Registry returns the Prometheus registry containing all devrun metrics.
func Registry() *prometheus.Registry {
	return registry
}

// AddLinesRelayed increments the relayed line counter.
func AddLinesRelayed(n int) {
	if n <= 0 {
		return
	}
	linesRelayed.Add(float64(n))
}

// SetChildRunning records whether a child process is currently alive.
func SetChildRunning(running bool) {
	value := 0.0
	if running {
		value = 1.0
	}
	childRunning.Set(value)
}

// RecordRun records the outcome, exit code and duration of a finished run.
func RecordRun(outcome string, exitCode int, d time.Duration) {
	label := outcome
	if label == "" {
		label = "unknown"
	}
	runsTotal.WithLabelValues(label).Inc()
	lastExitCode.Set(float64(exitCode))
	runDuration.Observe(d.Seconds())
}

// EmitBuildInfo publishes build metadata about the running binary.
func EmitBuildInfo() {
	buildInfoOnce.Do(func() {
		labels := prometheus.Labels{
			"go_version":   runtime.Version(),
			"vcs":          "",
			"vcs_revision": "",
			"vcs_time":     "",
			"vcs_modified": "",
		}
		if info, ok := debug.ReadBuildInfo(); ok {
			if info.GoVersion != "" {
				labels["go_version"] = info.GoVersion
			}
			for _, setting := range info.Settings {
				switch setting.Key {
				case "vcs":
					labels["vcs"] = setting.Value
				case "vcs.revision":
					labels["vcs_revision"] = setting.Value
				case "vcs.time":
					labels["vcs_time"] = setting.Value
				case "vcs.modified":
					labels["vcs_modified"] = setting.Value
				}
			}
		}
		buildInfo.With(labels).Set(1)
	})
}
