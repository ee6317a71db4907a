package metrics

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// RegisterPgxPoolMetrics exposes the pool's connection counters as
// Prometheus gauges, sampled lazily on scrape.
func RegisterPgxPoolMetrics(pool *pgxpool.Pool) {
	gauge := func(name, help string, value func() int32) prometheus.GaugeFunc {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{Name: name, Help: help}, func() float64 {
			return float64(value())
		})
	}

	prometheus.MustRegister(
		gauge("pgxpool_acquired_conns", "Connections currently checked out of the pool",
			func() int32 { return pool.Stat().AcquiredConns() }),
		gauge("pgxpool_max_conns", "Configured pool ceiling",
			func() int32 { return pool.Stat().MaxConns() }),
		gauge("pgxpool_total_conns", "Open connections, acquired plus idle",
			func() int32 { return pool.Stat().TotalConns() }),
		gauge("pgxpool_idle_conns", "Open connections not currently in use",
			func() int32 { return pool.Stat().IdleConns() }),
	)
}
