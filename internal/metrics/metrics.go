// Package metrics defines the Prometheus instruments for the spread bot.
// Collectors are package-level and registered once at init; the HTTP server
// exposes them on /metrics via promhttp.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ObservationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "spreadbot_observations_total", Help: "Spread observations processed, by source"},
		[]string{"source"},
	)
	SignalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "spreadbot_signals_total", Help: "Signals fired by the tracker"},
		[]string{"kind", "direction"},
	)
	AlertsSentTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "spreadbot_alerts_sent_total", Help: "Alert deliveries attempted, by sink and outcome"},
		[]string{"sink", "status"},
	)
	WSReconnectsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "spreadbot_ws_reconnects_total", Help: "Binance stream reconnect cycles"},
	)
	RateLimitHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "spreadbot_rate_limit_hits_total", Help: "Rate-limit responses from the pull source"},
	)
	SpreadPct = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "spreadbot_spread_pct", Help: "Latest observed 24h-change spread (ETH minus BTC)"},
	)
	PositionOpen = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "spreadbot_position_open", Help: "1 while a synthetic position is open, 0 otherwise"},
	)
)

func init() {
	prometheus.MustRegister(
		ObservationsTotal,
		SignalsTotal,
		AlertsSentTotal,
		WSReconnectsTotal,
		RateLimitHitsTotal,
		SpreadPct,
		PositionOpen,
	)
}
