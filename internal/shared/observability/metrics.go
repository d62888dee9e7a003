package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	ParsingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "depwatch_parsing_seconds",
		Help:    "Time spent parsing a source file.",
		Buckets: prometheus.DefBuckets,
	}, []string{"language"})

	FilesScannedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "depwatch_files_scanned_total",
		Help: "Total number of source files processed across all scans.",
	})

	DiagnosticsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "depwatch_diagnostics_total",
		Help: "Total number of deprecation diagnostics emitted, by kind.",
	}, []string{"kind"})

	AnalysisDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "depwatch_analysis_seconds",
		Help:    "Time spent on high-level analysis tasks.",
		Buckets: prometheus.DefBuckets,
	}, []string{"task"})

	UnresolvedCalleesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "depwatch_unresolved_callees_total",
		Help: "Total number of call sites skipped because the callee could not be resolved.",
	})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "depwatch_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})
)
