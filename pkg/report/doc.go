// Package report records the history of check runs.
//
// Each check produces a Run carrying the board, rule file, totals and
// every Violation. Runs are written through a Storage backend (see the
// storage subpackage) either directly or via a Recorder, which buffers
// writes on a background goroutine so watch mode never waits on disk:
//
//	rec := report.NewRecorder(store, nil, logger)
//	defer rec.Close()
//
//	run := report.FromResult(runID, rulePath, started, res, err)
//	_ = rec.Record(ctx, run)
//
// Query filters stored runs by board, status, rule and time range:
//
//	runs, err := store.Query(ctx, &report.Query{Board: "demo", Limit: 10})
//
// Old runs are removed by the retention subpackage.
package report
