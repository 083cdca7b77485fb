// Package telemetry wraps OpenTelemetry SDK initialization, giving the
// recall tracer a configured TracerProvider and MeterProvider to report
// into. When telemetry is disabled the globals stay noop and nothing
// connects to an external service.
package telemetry
