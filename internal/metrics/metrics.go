// Package metrics exposes the pipeline's Prometheus counters. Non-fatal
// degradations (fetch failures, config drift) must stay observable even
// though they never fail a run.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Admissions counts links merged into the monthly record.
	Admissions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "outagewatch",
		Name:      "admissions_total",
		Help:      "Links admitted into the monthly record",
	}, []string{"entity", "kind"})

	// FetchFailures counts non-fatal upstream fetch/parse failures.
	FetchFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "outagewatch",
		Name:      "fetch_failures_total",
		Help:      "Upstream fetch or parse failures, by source kind",
	}, []string{"kind"})

	// UnknownEntities counts merges targeting an entity name missing from
	// the monthly record. Usually indicates config/record drift.
	UnknownEntities = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "outagewatch",
		Name:      "unknown_entities_total",
		Help:      "Merge attempts against entity names absent from the record",
	}, []string{"entity"})

	// UnknownKinds counts sources with an unrecognized type.
	UnknownKinds = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "outagewatch",
		Name:      "unknown_source_kinds_total",
		Help:      "Sources skipped because their type is not implemented",
	}, []string{"kind"})

	// SeenErrors counts seen-store lookup/write failures.
	SeenErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "outagewatch",
		Name:      "seen_store_errors_total",
		Help:      "Seen-store operation failures",
	})

	// Runs counts pipeline runs by phase and result.
	Runs = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "outagewatch",
		Name:      "runs_total",
		Help:      "Pipeline runs by phase and result",
	}, []string{"phase", "result"})

	// RunDuration observes how long one ingestion run takes.
	RunDuration = prometheus.NewSummary(prometheus.SummaryOpts{
		Namespace: "outagewatch",
		Name:      "run_duration_seconds",
		Help:      "Time spent in one ingestion run",
	})
)

func init() {
	prometheus.MustRegister(
		Admissions,
		FetchFailures,
		UnknownEntities,
		UnknownKinds,
		SeenErrors,
		Runs,
		RunDuration,
	)
}

// NewServer builds the /metrics + /healthz server for interval mode.
func NewServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}
