// Package retention provides automatic pruning of decision history.
//
// # Retention Policies
//
// The pruner enforces two policies, both optional:
//
//   - Age: records older than RetentionDays are deleted
//   - Count: when the table exceeds MaxRecords, the oldest records
//     are deleted until the limit holds
//
// Records can optionally be archived to timestamped JSON files before
// deletion.
//
// # Scheduling
//
// Pruning runs on a cron schedule (github.com/robfig/cron). The scheduler
// stops when its context is cancelled or Stop is called, waiting for any
// in-flight pruning cycle to finish.
//
// # Basic Usage
//
//	pruner := retention.NewPruner(store, &retention.Config{
//	    RetentionDays: 90,
//	    PruneSchedule: "0 3 * * *",
//	})
//
//	if err := pruner.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer pruner.Stop()
//
//	// Or prune once, immediately
//	deleted, err := pruner.Prune(ctx)
package retention
