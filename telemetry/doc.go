// Package telemetry wires OpenTelemetry tracing and metrics for qrand
// processes. Setup builds SDK providers from a single Config, installs
// them as the process globals, and returns a handle whose Shutdown
// flushes buffered telemetry. Clients constructed after Setup pick up
// the providers without explicit wiring.
package telemetry
