/*
Package observability provides tools for monitoring the sieve engine.

Metrics turns the engine lifecycle hooks into Prometheus counters and
histograms, and Combine fans one set of hooks out to several consumers.
*/
package observability
