/*
Package observability turns engine lifecycle events into logs and Prometheus metrics.

Both LogHooks and Metrics.Hooks return domain.LifecycleHooks; combine them with
LifecycleHooks.Merge and pass the result to the engine.
*/
package observability
