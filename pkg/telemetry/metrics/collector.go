package metrics

import (
	"strconv"
	"sync"
	"time"

	"nocturne-labs/doorman/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector is the orchestrator for all Prometheus metrics in Doorman.
// It manages metric registration and provides a unified interface for
// recording metrics across all components.
//
// All Record and Update methods are no-ops when metrics are disabled,
// so callers never need to guard their call sites.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	// Decision metrics
	decisionMetrics *DecisionMetrics

	// Game metrics
	gameMetrics *GameMetrics

	// Client metrics
	clientMetrics *ClientMetrics

	// Cardinality tracking for server-supplied attribute labels
	cardinalityLimiter *CardinalityLimiter
}

// NewCollector creates a new metrics collector with the specified
// configuration and Prometheus registry. If registry is nil, a fresh
// registry is created.
//
// Example:
//
//	cfg := &config.MetricsConfig{
//		Enabled:   true,
//		Namespace: "doorman",
//		Subsystem: "game",
//	}
//	collector := metrics.NewCollector(cfg, nil)
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	// Set defaults if not specified
	if cfg.Namespace == "" {
		cfg.Namespace = "doorman"
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = "game"
	}
	if len(cfg.RequestDurationBuckets) == 0 {
		// Optimized for a remote API answering in under a second
		cfg.RequestDurationBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0}
	}

	c := &Collector{
		config:             cfg,
		registry:           registry,
		cardinalityLimiter: NewCardinalityLimiter(1000),
	}

	c.decisionMetrics = NewDecisionMetrics(cfg, registry)
	c.gameMetrics = NewGameMetrics(cfg, registry)
	c.clientMetrics = NewClientMetrics(cfg, registry)

	return c
}

// RecordDecision records metrics for a single admission decision.
//
// Parameters:
//   - scenario: Scenario number
//   - accepted: Whether the person was admitted
//   - forced: Whether the decision was forced rather than scored
//   - score: Weighted score of the person
//   - threshold: Threshold the score was compared against
func (c *Collector) RecordDecision(scenario int, accepted, forced bool, score, threshold float64) {
	if !c.config.Enabled {
		return
	}

	outcome := "reject"
	if accepted {
		outcome = "accept"
	}

	label := strconv.Itoa(scenario)
	c.decisionMetrics.RecordDecision(label, outcome, strconv.FormatBool(forced), score, threshold)
	c.gameMetrics.RecordPerson(label)
}

// RecordConstraint updates the deficit and weight gauges for one constraint.
//
// Attribute names come from the server. Past the cardinality limit they
// are aggregated into "other".
func (c *Collector) RecordConstraint(scenario int, attribute string, deficit int, weight float64) {
	if !c.config.Enabled {
		return
	}

	label := strconv.Itoa(scenario)
	if !c.cardinalityLimiter.Allow("constraint:" + label + ":" + attribute) {
		attribute = "other"
	}
	c.decisionMetrics.UpdateConstraint(label, attribute, deficit, weight)
}

// UpdateOccupancy updates the remaining capacity and budget gauges.
func (c *Collector) UpdateOccupancy(scenario, capacityRemaining, budgetRemaining int) {
	if !c.config.Enabled {
		return
	}

	c.decisionMetrics.UpdateOccupancy(strconv.Itoa(scenario), capacityRemaining, budgetRemaining)
}

// RecordGame records a finished game.
//
// Parameters:
//   - scenario: Scenario number
//   - status: Final status ("completed" or "failed")
//   - duration: Wall-clock duration of the game
//   - rejected: Rejections spent over the game
func (c *Collector) RecordGame(scenario int, status string, duration time.Duration, rejected int) {
	if !c.config.Enabled {
		return
	}

	c.gameMetrics.RecordGame(strconv.Itoa(scenario), status, duration, rejected)
}

// RecordAPIRequest records a completed game API request.
//
// Parameters:
//   - endpoint: API endpoint ("new_game" or "decide_and_next")
//   - status: Outcome ("success", "error", "timeout")
//   - duration: Request duration including retries
func (c *Collector) RecordAPIRequest(endpoint, status string, duration time.Duration) {
	if !c.config.Enabled {
		return
	}

	c.clientMetrics.RecordRequest(endpoint, status, duration)
}

// RecordAPIRetry counts one retry attempt against an endpoint.
func (c *Collector) RecordAPIRetry(endpoint string) {
	if !c.config.Enabled {
		return
	}

	c.clientMetrics.RecordRetry(endpoint)
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// CardinalityLimiter prevents metric cardinality explosion by limiting
// the number of unique label combinations per metric.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a new cardinality limiter with the
// specified maximum cardinality.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow checks if a label set is allowed. Returns true if the label set
// already exists or if the cardinality limit has not been reached yet.
func (cl *CardinalityLimiter) Allow(labelSet string) bool {
	cl.mu.RLock()
	if _, exists := cl.current[labelSet]; exists {
		cl.mu.RUnlock()
		return true
	}
	cl.mu.RUnlock()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	// Double-check after acquiring write lock
	if _, exists := cl.current[labelSet]; exists {
		return true
	}

	if len(cl.current) >= cl.maxCardinality {
		return false
	}

	cl.current[labelSet] = struct{}{}
	return true
}

// Count returns the current cardinality.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}
