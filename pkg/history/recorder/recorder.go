package recorder

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"nocturne-labs/doorman/pkg/game"
	"nocturne-labs/doorman/pkg/history"
)

// Config contains configuration for the decision recorder.
type Config struct {
	// Enabled enables decision recording.
	Enabled bool

	// AsyncBuffer is the size of the async write channel buffer.
	// Default: 1000
	AsyncBuffer int

	// WriteTimeout is the timeout for writing a record to storage.
	// Default: 5 seconds
	WriteTimeout time.Duration
}

// DefaultConfig returns the default recorder configuration.
func DefaultConfig() *Config {
	return &Config{
		Enabled:      true,
		AsyncBuffer:  1000,
		WriteTimeout: 5 * time.Second,
	}
}

// Recorder records admission decisions to a history storage backend.
// Records are written asynchronously so storage latency never delays
// the next arrival.
type Recorder struct {
	storage    history.Storage
	config     *Config
	recordChan chan *history.Record
	wg         sync.WaitGroup
	done       chan struct{}
	logger     *slog.Logger
}

// NewRecorder creates a new decision recorder with the provided storage
// backend and configuration.
func NewRecorder(storage history.Storage, config *Config) *Recorder {
	if config == nil {
		config = DefaultConfig()
	}
	if config.AsyncBuffer <= 0 {
		config.AsyncBuffer = 1000
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 5 * time.Second
	}

	r := &Recorder{
		storage:    storage,
		config:     config,
		recordChan: make(chan *history.Record, config.AsyncBuffer),
		done:       make(chan struct{}),
		logger:     slog.Default().With("component", "history.recorder"),
	}

	// Start background worker to drain channel
	r.wg.Add(1)
	go r.worker()

	r.logger.Info("decision recorder initialized",
		"async_buffer", config.AsyncBuffer,
		"write_timeout", config.WriteTimeout,
	)

	return r
}

// RecordDecision builds a decision record and enqueues it for async writing.
// The admitted and rejected counts are the occupancy after the decision was
// applied.
//
// This method returns immediately and does not block on storage writes.
func (r *Recorder) RecordDecision(ctx context.Context, gameID string, scenario int, person game.Person, decision game.Decision, admitted, rejected int) error {
	if !r.config.Enabled {
		return nil
	}

	record := buildRecord(gameID, scenario, person, decision, admitted, rejected)

	// A closed recorder must reject rather than enqueue into a channel
	// nobody drains.
	select {
	case <-r.done:
		return history.NewRecorderError(record.ID, context.Canceled)
	default:
	}

	select {
	case r.recordChan <- record:
		r.logger.Debug("decision record enqueued",
			"record_id", record.ID,
			"person_index", record.PersonIndex,
		)
	case <-time.After(r.config.WriteTimeout):
		r.logger.Error("decision record channel full, dropping record",
			"record_id", record.ID,
			"person_index", record.PersonIndex,
			"channel_capacity", r.config.AsyncBuffer,
		)
		return history.NewRecorderError(record.ID, context.DeadlineExceeded)
	case <-r.done:
		r.logger.Warn("recorder shutting down, dropping record",
			"record_id", record.ID,
			"person_index", record.PersonIndex,
		)
		return history.NewRecorderError(record.ID, context.Canceled)
	}

	return nil
}

// Close gracefully shuts down the recorder by draining the async channel and
// waiting for all pending writes to complete.
func (r *Recorder) Close() error {
	r.logger.Info("shutting down decision recorder")

	// Signal shutdown
	close(r.done)

	// Wait for worker to finish draining channel
	r.wg.Wait()

	r.logger.Info("decision recorder shut down")
	return nil
}

// worker is the background goroutine that drains the record channel and
// writes records to storage.
func (r *Recorder) worker() {
	defer r.wg.Done()

	for {
		select {
		case record := <-r.recordChan:
			r.writeRecord(record)

		case <-r.done:
			// Drain remaining records from channel before exit
			r.logger.Info("draining record channel before shutdown",
				"pending_count", len(r.recordChan),
			)

			for {
				select {
				case record := <-r.recordChan:
					r.writeRecord(record)
				default:
					r.logger.Info("record channel drained")
					return
				}
			}
		}
	}
}

// writeRecord writes a single decision record to storage.
func (r *Recorder) writeRecord(record *history.Record) {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.WriteTimeout)
	defer cancel()

	start := time.Now()

	err := r.storage.Store(ctx, record)
	if err != nil {
		r.logger.Error("failed to store decision record",
			"record_id", record.ID,
			"game_id", record.GameID,
			"person_index", record.PersonIndex,
			"error", err,
		)
		return
	}

	duration := time.Since(start)

	r.logger.Debug("decision recorded",
		"record_id", record.ID,
		"person_index", record.PersonIndex,
		"accepted", record.Accepted,
		"duration_ms", duration.Milliseconds(),
	)

	// Warn if write was slow
	if duration > r.config.WriteTimeout/2 {
		r.logger.Warn("slow history write",
			"record_id", record.ID,
			"duration_ms", duration.Milliseconds(),
			"threshold_ms", (r.config.WriteTimeout / 2).Milliseconds(),
		)
	}
}

// buildRecord creates a decision record from a policy verdict.
// The attribute map is copied so later mutation of the person cannot
// alter the stored record.
func buildRecord(gameID string, scenario int, person game.Person, decision game.Decision, admitted, rejected int) *history.Record {
	attributes := make(map[game.AttributeID]bool, len(person.Attributes))
	for id, has := range person.Attributes {
		attributes[id] = has
	}

	var weights map[game.AttributeID]float64
	if len(decision.Weights) > 0 {
		weights = make(map[game.AttributeID]float64, len(decision.Weights))
		for id, w := range decision.Weights {
			weights[id] = w
		}
	}

	return &history.Record{
		ID:     uuid.New().String(),
		GameID: gameID,

		Scenario:    scenario,
		PersonIndex: decision.PersonIndex,

		Attributes: attributes,

		Accepted:  decision.Accepted,
		Forced:    decision.Forced,
		Score:     decision.Score,
		Threshold: decision.Threshold,
		Weights:   weights,

		Admitted: admitted,
		Rejected: rejected,

		DecidedAt:  decision.DecidedAt,
		RecordedAt: time.Now(),
	}
}
