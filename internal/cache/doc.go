/*
Package cache provides an in-process TTL snapshot cache.

# Overview

The recall engine keeps small read-mostly snapshots, like the entity name
table, close to the hot path. A Snapshot holds one value, serves it until
the TTL expires, and then refreshes it through a caller-supplied load
function. Concurrent refreshes collapse into a single load via
singleflight, and readers keep getting the old value until the new one is
swapped in, so a slow refresh never blocks recall.

# Core types

  - Snapshot[T]: the cache itself, with Get/Invalidate/Loaded.
  - Config: name, TTL and an injectable clock for tests.
  - RefreshFunc[T]: the load callback.

A failed refresh serves the previous snapshot when one exists; the error
only surfaces on the very first load.
*/
package cache
