// Package metrics provides Prometheus metrics collection for Anvil.
//
// # Metrics Categories
//
//   - Compile Metrics: compilations by outcome and failing stage, duration,
//     advisories
//   - Check Metrics: rule evaluations, violations by severity, runtime
//     faults, check runs, rule reloads
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//
//	collector.RecordCompile("parse", false, 40*time.Microsecond)
//	collector.RecordViolation("min-clearance", "error")
//
//	srv := collector.NewServer("127.0.0.1:9464", "/metrics")
//	go srv.ListenAndServe()
//
// Rule names are user-controlled label values; past 1000 distinct rules
// further names are recorded as "other".
package metrics
