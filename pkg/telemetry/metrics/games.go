package metrics

import (
	"time"

	"nocturne-labs/doorman/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// GameMetrics tracks metrics aggregated per game.
//
// Metrics:
//   - doorman_game_games_total: Finished games by scenario and status
//   - doorman_game_game_duration_seconds: Wall-clock game duration histogram
//   - doorman_game_persons_processed_total: Arrivals seen across all games
//   - doorman_game_rejections_per_game: Rejection count distribution
type GameMetrics struct {
	gamesTotal        *prometheus.CounterVec
	gameDuration      *prometheus.HistogramVec
	personsProcessed  *prometheus.CounterVec
	rejectionsPerGame *prometheus.HistogramVec
}

// NewGameMetrics creates and registers game metrics with the provided registry.
func NewGameMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *GameMetrics {
	gm := &GameMetrics{
		gamesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "games_total",
				Help:      "Total number of finished games",
			},
			[]string{"scenario", "status"},
		),

		gameDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "game_duration_seconds",
				Help:      "Wall-clock duration of finished games in seconds",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 14), // 1s to ~2.3h
			},
			[]string{"scenario"},
		),

		personsProcessed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "persons_processed_total",
				Help:      "Total number of arrivals processed",
			},
			[]string{"scenario"},
		),

		rejectionsPerGame: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "rejections_per_game",
				Help:      "Rejections spent per finished game",
				Buckets:   prometheus.ExponentialBuckets(10, 2, 12), // 10 to ~20K
			},
			[]string{"scenario"},
		),
	}

	registry.MustRegister(
		gm.gamesTotal,
		gm.gameDuration,
		gm.personsProcessed,
		gm.rejectionsPerGame,
	)

	return gm
}

// RecordGame records a finished game.
//
// Parameters:
//   - scenario: Scenario label
//   - status: Final status ("completed" or "failed")
//   - duration: Wall-clock duration of the game
//   - rejected: Rejections spent over the game
func (gm *GameMetrics) RecordGame(scenario, status string, duration time.Duration, rejected int) {
	gm.gamesTotal.WithLabelValues(scenario, status).Inc()
	gm.gameDuration.WithLabelValues(scenario).Observe(duration.Seconds())
	gm.rejectionsPerGame.WithLabelValues(scenario).Observe(float64(rejected))
}

// RecordPerson counts one processed arrival.
func (gm *GameMetrics) RecordPerson(scenario string) {
	gm.personsProcessed.WithLabelValues(scenario).Inc()
}
