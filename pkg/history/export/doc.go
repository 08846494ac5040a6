// Package export provides exporters for decision history records.
//
// # Formats
//
//   - JSON: records as a JSON array, optionally pretty-printed
//   - CSV: one row per decision, attribute map flattened to a JSON column
//
// Both exporters implement history.Exporter and additionally offer an
// ExportStream method that consumes a record channel, pairing with
// Storage.QueryStream for exports too large to hold in memory.
//
// # Basic Usage
//
//	records, err := store.Query(ctx, q)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	exporter := export.NewCSVExporter(true) // include header
//	if err := exporter.Export(ctx, records, os.Stdout); err != nil {
//	    log.Fatal(err)
//	}
//
// # Streaming
//
//	recordsCh, errCh, err := store.QueryStream(ctx, q)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := exporter.ExportStream(ctx, recordsCh, os.Stdout); err != nil {
//	    log.Fatal(err)
//	}
//	if err := <-errCh; err != nil {
//	    log.Fatal(err)
//	}
package export
