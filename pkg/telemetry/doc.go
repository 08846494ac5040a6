// Package telemetry provides observability for Doorman.
//
// # Overview
//
// The telemetry package implements structured logging and Prometheus
// metrics. It provides visibility into decision-making behavior without
// slowing the decision loop.
//
// # Components
//
//   - logging: Structured logging with credential redaction
//   - metrics: Prometheus metrics collection
//
// # Usage
//
//	// Initialize logging
//	logger, err := logging.New(logging.Config{
//	    Level:  "info",
//	    Format: "json",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	logger.Setup()
//
//	// Record metrics
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, prometheus.NewRegistry())
//	collector.RecordDecision(scenario, accepted, forced, score, threshold)
//
// # Credential Protection
//
// The player ID is a credential. By default it is redacted from all log
// output, keeping only the first UUID segment:
//
//	550e8400-e29b-41d4-a716-446655440000 → 550e8400-***
//
// Redaction applies to known credential keys wherever they appear in a
// log record, including nested groups.
package telemetry
