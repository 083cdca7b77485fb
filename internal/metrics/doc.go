/*
Package metrics provides Prometheus metrics for the memory store and the
recall engine.

# Overview

The Collector registers its metrics on the default registry through
promauto, namespaced per process. A nil *Collector is a valid no-op
recorder, so embedders that do not scrape metrics pass nil and pay
nothing.

# Covered dimensions

  - Store writes: operation counters with ok/error status and write
    duration histograms.
  - Recall: request counters, duration and returned-item histograms per
    recall mode.
  - Context assembly: character, token and item histograms per built
    context block.
  - Cache: hit and miss counters per cache type.
  - FTS index: rebuild counter plus fact/index row gauges from the last
    consistency check.
  - Database: query duration histogram per operation.
*/
package metrics
