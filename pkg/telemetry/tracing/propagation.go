package tracing

import (
	"context"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Environment variables carrying W3C trace context into a CLI invocation.
const (
	EnvTraceParent = "TRACEPARENT"
	EnvTraceState  = "TRACESTATE"
)

var propagator = propagation.NewCompositeTextMapPropagator(
	propagation.TraceContext{},
	propagation.Baggage{},
)

// Propagator returns the W3C Trace Context and Baggage propagator.
func Propagator() propagation.TextMapPropagator {
	return propagator
}

// Extract returns ctx carrying the trace context found in headers.
func Extract(ctx context.Context, headers http.Header) context.Context {
	return Propagator().Extract(ctx, propagation.HeaderCarrier(headers))
}

// Inject writes the trace context of ctx into headers.
func Inject(ctx context.Context, headers http.Header) {
	Propagator().Inject(ctx, propagation.HeaderCarrier(headers))
}

// ExtractFromMap is Extract over a string map.
func ExtractFromMap(ctx context.Context, carrier map[string]string) context.Context {
	return Propagator().Extract(ctx, propagation.MapCarrier(carrier))
}

// InjectToMap is Inject over a string map.
func InjectToMap(ctx context.Context, carrier map[string]string) {
	Propagator().Inject(ctx, propagation.MapCarrier(carrier))
}

// ExtractFromEnv extracts trace context from the TRACEPARENT and TRACESTATE
// environment variables using getenv (normally os.Getenv). An invalid
// TRACEPARENT is ignored.
func ExtractFromEnv(ctx context.Context, getenv func(string) string) context.Context {
	traceparent := getenv(EnvTraceParent)
	if !ValidateTraceParent(traceparent) {
		return ctx
	}
	carrier := map[string]string{"traceparent": traceparent}
	if ts := getenv(EnvTraceState); ts != "" {
		carrier["tracestate"] = ts
	}
	return ExtractFromMap(ctx, carrier)
}

// HTTPMiddleware continues the caller's trace for requests to the watch
// endpoints and echoes the trace ID in an X-Trace-ID response header.
func HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := Extract(r.Context(), r.Header)

		if sc := SpanContext(ctx); sc.IsValid() {
			w.Header().Set("X-Trace-ID", sc.TraceID().String())
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ValidateTraceParent reports whether traceparent is a well-formed W3C
// traceparent value with non-zero trace and parent IDs, for example
//
//	00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01
func ValidateTraceParent(traceparent string) bool {
	parts := strings.Split(traceparent, "-")
	if len(parts) != 4 || !lowerHexByte(parts[0]) || parts[0] == "ff" || !lowerHexByte(parts[3]) {
		return false
	}
	if _, err := trace.TraceIDFromHex(parts[1]); err != nil {
		return false
	}
	_, err := trace.SpanIDFromHex(parts[2])
	return err == nil
}

func lowerHexByte(s string) bool {
	return len(s) == 2 && strings.Trim(s, "0123456789abcdef") == ""
}
