// Package health provides liveness and readiness endpoints for
// `anvil watch`.
//
// # Endpoints
//
//   - /health: the process is running
//   - /ready: the rule set is loaded and the watcher is checking
//   - /version: build information
//
// # Usage
//
//	checker := health.New(5 * time.Second)
//	tracker := health.NewRunTracker()
//
//	checker.RegisterCheck("rules", func(ctx context.Context) error {
//	    if loader.Current() == nil {
//	        return errors.New("no rule set loaded")
//	    }
//	    return nil
//	})
//	checker.RegisterCheck("last_run", tracker.Check(10*time.Minute))
//
//	mux := http.NewServeMux()
//	checker.Register(mux, health.NewVersionInfo(version, commit, date))
//
// Readiness runs all checks concurrently, each bounded by the checker's
// timeout, and answers 503 when any of them fails.
package health
