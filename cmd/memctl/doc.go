/*
Package main provides the memctl executable.

memctl is the maintenance CLI for the OpenClaw memory store. It loads
configuration (YAML file plus OPENCLAW_* environment overrides), builds
the zap logger, optionally initializes OpenTelemetry export, and opens
the same store and recall engine the library embeds.

Subcommands: stats, recall, context, check-index, rebuild-index, serve,
migrate (up, down, status, version, goto, force, reset), version.

serve runs the diagnostics HTTP server (healthz, readyz, stats, version
and Prometheus metrics) until SIGINT/SIGTERM.

Build metadata (Version, BuildTime, GitCommit) is injected via ldflags.
*/
package main
