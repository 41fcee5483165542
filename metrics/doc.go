// Package metrics implements the aggregate Metrics Sink: a bounded
// rolling-window counter over hedged-call outcomes, producing hedge rate,
// win rate, cost overhead, and latency percentiles on demand.
//
// The Sink is process-wide and stateful; construct one with New and share
// it across every hedge.Request call whose outcomes should be aggregated
// together. NewCollector wraps a Sink in a prometheus.Collector that can be
// registered with a Prometheus registry; the Sink itself does not
// implement prometheus.Collector.
package metrics
