// Package query provides validation for decision history queries.
//
// # Query Validation
//
// The validator ensures query parameters are valid before execution:
//
//   - Limit >= 0 and <= MaxLimit
//   - Offset >= 0
//   - Sort field is valid (decided_at, recorded_at, person_index, score)
//   - Sort order is valid (asc, desc)
//   - Time range is valid (start <= end)
//   - Score thresholds are valid (min <= max)
//
// Storage backends call Validate before building SQL, so the sort field
// whitelist is also the injection guard for the ORDER BY clause.
//
// # Basic Usage
//
//	q := &history.Query{
//	    GameID:    gameID,
//	    Limit:     100,
//	    SortBy:    "person_index",
//	    SortOrder: "asc",
//	}
//
//	if err := query.Validate(q); err != nil {
//	    log.Fatal(err)
//	}
//
//	records, err := store.Query(ctx, q)
//	if err != nil {
//	    log.Fatal(err)
//	}
package query
