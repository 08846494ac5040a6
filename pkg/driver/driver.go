package driver

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"nocturne-labs/doorman/pkg/client"
	"nocturne-labs/doorman/pkg/game"
	"nocturne-labs/doorman/pkg/game/policy"
	"nocturne-labs/doorman/pkg/runs"
	"nocturne-labs/doorman/pkg/telemetry/metrics"
)

const (
	// DefaultCapacity is the venue size the challenge server plays.
	DefaultCapacity = 1000

	// DefaultBudget is the challenge server's rejection budget.
	DefaultBudget = 20000
)

// Config configures a driver.
type Config struct {
	// API is the game server. Required.
	API GameAPI

	// Capacity is the venue size N the server plays with. The wire
	// protocol does not carry it, so the driver must be told.
	// Default: 1000
	Capacity int

	// Budget is the rejection budget R.
	// Default: 20000
	Budget int

	// Tuning holds the decision-rule step sizes. Zero values take
	// defaults.
	Tuning policy.Tuning

	// TuningFile optionally points at a tuning YAML for hot reload.
	TuningFile string

	// WatchTuning enables reloading TuningFile mid-game. Reloads are
	// applied between decisions.
	WatchTuning bool

	// ProgressInterval is how many decisions pass between progress log
	// lines. Negative disables progress logging.
	// Default: 100
	ProgressInterval int

	// OnProgress, when set, receives occupancy at the progress cadence.
	// The CLI hangs its live progress bar on this.
	OnProgress func(admitted, rejected int)

	// Recorder receives one record per decision. Optional.
	Recorder DecisionRecorder

	// Runs receives the finished game's summary. Optional.
	Runs *runs.Store

	// Metrics receives decision and game observations. Optional.
	Metrics *metrics.Collector

	// Logger is optional; slog.Default() is used when nil.
	Logger *slog.Logger
}

// Driver plays games: it starts a game on the server, feeds each
// arrival to a fresh policy, pushes the verdict back, and keeps its
// bookkeeping reconciled with the server's authoritative counts until
// a terminal status. One driver can play many games sequentially; each
// game gets its own policy so nothing leaks between games.
type Driver struct {
	api              GameAPI
	capacity         int
	budget           int
	tuning           policy.Tuning
	tuningFile       string
	watchTuning      bool
	progressInterval int
	onProgress       func(admitted, rejected int)
	recorder         DecisionRecorder
	runs             *runs.Store
	metrics          *metrics.Collector
	logger           *slog.Logger
}

// New creates a driver.
func New(cfg Config) (*Driver, error) {
	if cfg.API == nil {
		return nil, fmt.Errorf("game API cannot be nil")
	}
	if cfg.Capacity == 0 {
		cfg.Capacity = DefaultCapacity
	}
	if cfg.Capacity < 0 {
		return nil, fmt.Errorf("capacity must be > 0, got %d", cfg.Capacity)
	}
	if cfg.Budget == 0 {
		cfg.Budget = DefaultBudget
	}
	if cfg.Budget < 0 {
		return nil, fmt.Errorf("budget must be > 0, got %d", cfg.Budget)
	}
	if cfg.ProgressInterval == 0 {
		cfg.ProgressInterval = 100
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Driver{
		api:              cfg.API,
		capacity:         cfg.Capacity,
		budget:           cfg.Budget,
		tuning:           cfg.Tuning,
		tuningFile:       cfg.TuningFile,
		watchTuning:      cfg.WatchTuning,
		progressInterval: cfg.ProgressInterval,
		onProgress:       cfg.OnProgress,
		recorder:         cfg.Recorder,
		runs:             cfg.Runs,
		metrics:          cfg.Metrics,
		logger:           cfg.Logger.With("component", "driver"),
	}, nil
}

// Run plays one game on the given scenario to its terminal status and
// returns the outcome. Protocol violations and exhausted API retries
// abort the game with an error; an aborted game is not saved to the
// run archive.
func (d *Driver) Run(ctx context.Context, scenario int) (*Result, error) {
	startedAt := time.Now()

	created, err := d.api.NewGame(ctx, scenario)
	if err != nil {
		return nil, fmt.Errorf("failed to start game: %w", err)
	}
	gameID := created.GameID
	logger := d.logger.With("game_id", gameID, "scenario", scenario)

	pol, err := policy.New(policy.Config{
		GameID:      gameID,
		Scenario:    scenario,
		Capacity:    d.capacity,
		Budget:      d.budget,
		Constraints: created.Constraints,
		Statistics:  created.AttributeStatistics,
		Tuning:      d.tuning,
		Logger:      d.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize policy: %w", err)
	}

	reloads := &tuningSlot{}
	if d.watchTuning && d.tuningFile != "" {
		stop, err := d.startTuningWatcher(reloads)
		if err != nil {
			logger.Warn("Tuning watcher unavailable, playing with static tuning",
				"path", d.tuningFile,
				"error", err,
			)
		} else {
			defer stop()
		}
	}

	resp, err := d.api.DecideAndNext(ctx, gameID, 0, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch first person: %w", err)
	}

	decisions := 0
	forced := 0

	for {
		status, err := game.ParseStatus(resp.Status)
		if err != nil {
			return nil, game.NewProtocolErrorf(gameID, "unknown status %q", resp.Status)
		}
		if status.Terminal() {
			break
		}
		if resp.NextPerson == nil {
			return nil, game.NewProtocolErrorf(gameID, "running response without nextPerson")
		}

		// The server's counts are authoritative; diverging from them
		// means a decision was lost or double-applied.
		if resp.AdmittedCount != nil && resp.RejectedCount != nil {
			if err := pol.Reconcile(*resp.AdmittedCount, *resp.RejectedCount); err != nil {
				return nil, fmt.Errorf("abandoning game after %d decisions: %w", decisions, err)
			}
		}

		if tuning, ok := reloads.take(); ok {
			if err := pol.SetTuning(tuning); err != nil {
				logger.Warn("Reloaded tuning rejected, keeping previous values", "error", err)
			}
		}

		person := *resp.NextPerson
		decision, err := pol.Decide(person)
		if err != nil {
			return nil, fmt.Errorf("abandoning game after %d decisions: %w", decisions, err)
		}
		decisions++
		if decision.Forced {
			forced++
		}

		state := pol.State()
		d.recordDecision(ctx, logger, gameID, scenario, person, decision, state)
		d.observeDecision(scenario, decision, pol, state)

		if d.progressInterval > 0 && decisions%d.progressInterval == 0 {
			logger.Info("Game progress",
				"decisions", decisions,
				"admitted", state.Admitted,
				"rejected", state.Rejected,
				"total_deficit", totalDeficit(pol),
				"threshold", pol.Threshold(),
			)
			if d.onProgress != nil {
				d.onProgress(state.Admitted, state.Rejected)
			}
		}

		resp, err = d.api.DecideAndNext(ctx, gameID, person.Index, &decision.Accepted)
		if err != nil {
			return nil, fmt.Errorf("abandoning game after %d decisions: %w", decisions, err)
		}
	}

	return d.finish(ctx, logger, pol, resp, scenario, decisions, forced, startedAt)
}

// finish consumes the terminal response: finalizes the policy, builds
// the result, and feeds the archive and metrics.
func (d *Driver) finish(ctx context.Context, logger *slog.Logger, pol *policy.Policy, resp *client.DecideResponse, scenario, decisions, forced int, startedAt time.Time) (*Result, error) {
	status, err := game.ParseStatus(resp.Status)
	if err != nil {
		return nil, err
	}
	if err := pol.Finalize(status); err != nil {
		return nil, err
	}

	state := pol.State()
	admitted := state.Admitted
	rejected := state.Rejected
	if resp.AdmittedCount != nil {
		admitted = *resp.AdmittedCount
	}
	if resp.RejectedCount != nil {
		rejected = *resp.RejectedCount
	}

	satisfied := make(map[game.AttributeID]bool)
	for id, deficit := range pol.Deficits() {
		satisfied[id] = deficit == 0
	}

	finishedAt := time.Now()
	result := &Result{
		GameID:         state.GameID,
		Scenario:       scenario,
		Status:         status,
		Admitted:       admitted,
		Rejected:       rejected,
		Decisions:      decisions,
		Forced:         forced,
		Satisfied:      satisfied,
		Degraded:       pol.ModelDegraded(),
		FinalThreshold: pol.Threshold(),
		Reason:         resp.Reason,
		Duration:       finishedAt.Sub(startedAt),
		StartedAt:      startedAt,
		FinishedAt:     finishedAt,
	}

	if d.runs != nil {
		err := d.runs.Save(ctx, &runs.Run{
			GameID:     result.GameID,
			Scenario:   scenario,
			Status:     status,
			Admitted:   admitted,
			Rejected:   rejected,
			Satisfied:  satisfied,
			Degraded:   result.Degraded,
			Duration:   result.Duration,
			StartedAt:  startedAt,
			FinishedAt: finishedAt,
		})
		if err != nil {
			logger.Error("Failed to archive run", "error", err)
		}
	}

	if d.metrics != nil {
		d.metrics.RecordGame(scenario, string(status), result.Duration, rejected)
	}

	logger.Info("Game finished",
		"status", string(status),
		"admitted", admitted,
		"rejected", rejected,
		"decisions", decisions,
		"forced", forced,
		"constraints_satisfied", result.SatisfiedAll(),
		"duration", result.Duration,
	)
	return result, nil
}

// startTuningWatcher runs the file watcher in the background and
// returns a stop function. Reloads land in the slot and are applied
// between decisions, never concurrently with one.
func (d *Driver) startTuningWatcher(reloads *tuningSlot) (func(), error) {
	watcher, err := policy.NewTuningWatcher(d.tuningFile, policy.DefaultDebounceInterval, d.logger)
	if err != nil {
		return nil, err
	}

	// The watcher lives for exactly one game and is terminated by
	// Stop, so it gets a background context rather than the game's.
	go func() {
		if err := watcher.Watch(context.Background(), reloads.set); err != nil {
			d.logger.Warn("Tuning watcher exited", "error", err)
		}
	}()

	return func() {
		if err := watcher.Stop(); err != nil {
			d.logger.Warn("Failed to stop tuning watcher", "error", err)
		}
	}, nil
}

// recordDecision hands the decision to the history recorder. Recording
// failures lose analytics, not game state, so they only log.
func (d *Driver) recordDecision(ctx context.Context, logger *slog.Logger, gameID string, scenario int, person game.Person, decision game.Decision, state game.State) {
	if d.recorder == nil {
		return
	}
	if err := d.recorder.RecordDecision(ctx, gameID, scenario, person, decision, state.Admitted, state.Rejected); err != nil {
		logger.Warn("Failed to record decision",
			"person_index", person.Index,
			"error", err,
		)
	}
}

// observeDecision updates the decision and constraint metrics.
func (d *Driver) observeDecision(scenario int, decision game.Decision, pol *policy.Policy, state game.State) {
	if d.metrics == nil {
		return
	}
	d.metrics.RecordDecision(scenario, decision.Accepted, decision.Forced, decision.Score, decision.Threshold)
	d.metrics.UpdateOccupancy(scenario, state.RemainingCapacity(), state.RemainingBudget())

	weights := pol.Weights()
	for id, deficit := range pol.Deficits() {
		d.metrics.RecordConstraint(scenario, string(id), deficit, weights[id])
	}
}

func totalDeficit(pol *policy.Policy) int {
	total := 0
	for _, d := range pol.Deficits() {
		total += d
	}
	return total
}

// tuningSlot is a single-value mailbox between the watcher goroutine
// and the decision loop. A newer reload overwrites an unapplied one.
type tuningSlot struct {
	mu      sync.Mutex
	pending *policy.Tuning
}

func (s *tuningSlot) set(t policy.Tuning) {
	s.mu.Lock()
	s.pending = &t
	s.mu.Unlock()
}

func (s *tuningSlot) take() (policy.Tuning, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return policy.Tuning{}, false
	}
	t := *s.pending
	s.pending = nil
	return t, true
}
