/*
Package server exposes the memory store's diagnostics over HTTP.

# Overview

The package couples a managed http.Server lifecycle with a small
diagnostics mux. Manager handles non-blocking startup, TLS, graceful
shutdown and SIGINT/SIGTERM; NewHandler wires the endpoints:

  - /healthz: process liveness
  - /readyz: database readiness, 503 when the store cannot answer
  - /stats: store counters plus the known entity list
  - /version: build metadata
  - /metrics: Prometheus exposition

# Core types

  - Manager: server lifecycle with Start/StartTLS/Shutdown/
    WaitForShutdown and an asynchronous error channel.
  - Config: listen address, timeouts and header limits.
  - Pinger and StatsFunc: the two seams the handler needs from the
    store and the recall engine.

Every request is tagged with an X-Request-ID and logged at debug level
on completion.
*/
package server
