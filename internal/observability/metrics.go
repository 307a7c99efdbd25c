// Package observability provides Prometheus metrics, the health registry,
// and the ops HTTP surface.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the engine.
type Metrics struct {
	// Discovery metrics
	LaunchesDiscovered prometheus.Counter
	LaunchesDropped    prometheus.Counter
	FeedReconnects     prometheus.Counter

	// Cycle metrics
	CyclesRun     prometheus.Counter
	CyclesSkipped prometheus.Counter
	CycleDuration prometheus.Histogram
	TokensChecked prometheus.Counter
	CheckErrors   *prometheus.CounterVec
	CyclesAborted prometheus.Counter

	// Lifecycle metrics
	Transitions     *prometheus.CounterVec
	ActiveWatchdogs prometheus.Gauge
	StatusCounts    *prometheus.GaugeVec

	// Scoring metrics
	ScoresComputed prometheus.Counter
	HardRejects    prometheus.Counter
	ScoreTotal     prometheus.Histogram

	// Safeguard metrics
	KillSwitchActive prometheus.Gauge
	DailyBuys        prometheus.Gauge
	WinRate          prometheus.Gauge
	BlockedBuys      prometheus.Counter
}

// NewMetrics registers all engine metrics under the namespace using the
// given registerer. Pass prometheus.DefaultRegisterer in the daemon.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "vigil"
	}
	factory := promauto.With(reg)

	return &Metrics{
		LaunchesDiscovered: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "launches_total",
			Help:      "Total number of new token launches accepted",
		}),
		LaunchesDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "launches_dropped_total",
			Help:      "Total number of launches rejected by validation",
		}),
		FeedReconnects: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "feed_reconnects_total",
			Help:      "Total number of websocket feed reconnects",
		}),

		CyclesRun: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "cycles_total",
			Help:      "Total number of polling cycles completed",
		}),
		CyclesSkipped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "cycles_skipped_total",
			Help:      "Total number of cycles skipped because one was in flight",
		}),
		CycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "cycle_duration_seconds",
			Help:      "Polling cycle wall time",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		TokensChecked: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "tokens_checked_total",
			Help:      "Total number of per-token checks run",
		}),
		CheckErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "check_errors_total",
			Help:      "Total number of per-token check failures by kind",
		}, []string{"kind"}),
		CyclesAborted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "cycles_aborted_total",
			Help:      "Total number of cycles aborted mid-run",
		}),

		Transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "watchlist",
			Name:      "transitions_total",
			Help:      "Total number of lifecycle transitions by target status",
		}, []string{"to"}),
		ActiveWatchdogs: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "watchlist",
			Name:      "active_watchdogs",
			Help:      "Current number of entries counted against the watchdog cap",
		}),
		StatusCounts: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "watchlist",
			Name:      "entries",
			Help:      "Current number of entries by status",
		}, []string{"status"}),

		ScoresComputed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scoring",
			Name:      "scores_total",
			Help:      "Total number of score computations",
		}),
		HardRejects: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scoring",
			Name:      "hard_rejects_total",
			Help:      "Total number of critical-flag hard rejects",
		}),
		ScoreTotal: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scoring",
			Name:      "score_total",
			Help:      "Distribution of composite scores",
			Buckets:   prometheus.LinearBuckets(0, 10, 11),
		}),

		KillSwitchActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "safeguard",
			Name:      "kill_switch_active",
			Help:      "1 when the kill switch is active",
		}),
		DailyBuys: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "safeguard",
			Name:      "daily_buys",
			Help:      "Buys counted against the daily cap in the current window",
		}),
		WinRate: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "safeguard",
			Name:      "win_rate",
			Help:      "Rolling win rate over the trailing outcome window",
		}),
		BlockedBuys: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "safeguard",
			Name:      "blocked_buys_total",
			Help:      "Total number of buys blocked by a safeguard",
		}),
	}
}
