package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	ParsingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "treescope_parsing_seconds",
		Help:    "Time spent parsing a source file.",
		Buckets: prometheus.DefBuckets,
	}, []string{"language"})

	NodesExtracted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "treescope_nodes_extracted_total",
		Help: "Total number of normalized nodes produced by extraction.",
	}, []string{"language"})

	ExtractionMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "treescope_extraction_misses_total",
		Help: "Total number of captures skipped because no node could be built from them.",
	}, []string{"language", "category"})

	EngineFaults = promauto.NewCounter(prometheus.CounterOpts{
		Name: "treescope_engine_faults_total",
		Help: "Total number of panics contained at the parse engine boundary.",
	})

	ResolutionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "treescope_resolution_seconds",
		Help:    "Time spent resolving references for a file.",
		Buckets: prometheus.DefBuckets,
	})

	ResolutionOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "treescope_resolution_outcomes_total",
		Help: "Total number of reference resolution attempts by outcome.",
	}, []string{"status"})

	SymbolTableSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "treescope_symbol_table_entries",
		Help: "Current number of entries in the project symbol table.",
	})

	OpenSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "treescope_open_sessions",
		Help: "Current number of parse sessions holding native tree handles.",
	})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "treescope_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})

	StoreWritesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "treescope_store_writes_total",
		Help: "Total number of symbol rows persisted to the store.",
	})
)
