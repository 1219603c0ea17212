package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CheckinsRecorded counts recorded check-ins by status.
	CheckinsRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "classtrack_checkins_recorded_total",
		Help: "Check-ins recorded, by status.",
	}, []string{"status"})

	// ImportRows counts student import rows by outcome.
	ImportRows = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "classtrack_import_rows_total",
		Help: "Student import rows, by outcome (imported, skipped, rejected).",
	}, []string{"outcome"})

	// StatsCache counts stats cache hits and misses.
	StatsCache = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "classtrack_stats_cache_total",
		Help: "Stats cache lookups, by result (hit, miss).",
	}, []string{"result"})
)
