// Package instrumentation provides OpenTelemetry metrics and tracing for the
// dotion server.
//
// A Provider owns the meter and tracer providers and selects the exporter
// from configuration: Prometheus (pull, served on the dedicated metrics
// listener), OTLP over HTTP, or stdout for development. The Metrics recorder
// covers HTTP requests, chat turns, stream events, tool invocations,
// calendar provider operations and OAuth flows; its zero value is a no-op so
// callers never have to branch on whether instrumentation is enabled.
package instrumentation
