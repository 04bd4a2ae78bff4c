// Package telemetry groups Anvil's observability packages.
//
// # Components
//
//   - logging: structured logging on log/slog with run and rule context
//   - metrics: Prometheus metrics for compilation and rule checks
//   - tracing: OpenTelemetry spans exported over OTLP gRPC
//   - health: liveness and readiness endpoints for `anvil watch`
//
// Each component is configured from the telemetry section of the Anvil
// configuration file and is safe to leave disabled.
package telemetry
