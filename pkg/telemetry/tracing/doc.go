// Package tracing provides OpenTelemetry distributed tracing for Anvil.
//
// # Overview
//
// Rule compilation and checks are wrapped in spans and exported over OTLP
// gRPC. When tracing is disabled a noop tracer is used and spans cost next
// to nothing.
//
// # Spans
//
//   - anvil.rules.compile: compiling a rule set, with rule and error counts
//   - anvil.check: one check run over a board
//   - anvil.check.rule: one rule within a check
//   - anvil.report.store: persisting a run record
//
// # Trace Context Propagation
//
// A CLI invocation joins an existing trace when TRACEPARENT (and optionally
// TRACESTATE) is set in the environment:
//
//	ctx = tracing.ExtractFromEnv(ctx, os.Getenv)
//
// The watch server extracts W3C headers from incoming requests with
// HTTPMiddleware.
//
// # Sampling Strategies
//
//   - always: Sample all traces
//   - never: Sample no traces
//   - ratio: Sample a fraction of traces by trace ID
//
// All strategies respect the parent span's decision.
//
// # Usage
//
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing)
//	if err != nil {
//	    return err
//	}
//	defer tracer.Shutdown(context.Background())
//
//	ctx, span := tracer.Start(ctx, tracing.SpanCheck,
//	    tracing.NewAttributeBuilder().WithRun(runID, board.Name).Build())
//	defer span.End()
package tracing
