package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector adapts a Sink into a prometheus.Collector, following the same
// Describe/Collect pattern used for custom collectors throughout the stack
// this package is modeled on.
type Collector struct {
	sink *Sink

	total       *prometheus.Desc
	hedgedTotal *prometheus.Desc
	winsTotal   *prometheus.Desc
	costTotal   *prometheus.Desc
	latencyMS   *prometheus.Desc
	costRatio   *prometheus.Desc
}

// NewCollector returns a prometheus.Collector backed by sink. Register it
// with a prometheus.Registry (or promauto) to expose /metrics.
func NewCollector(sink *Sink) *Collector {
	ns := sink.getNamespace()
	return &Collector{
		sink: sink,
		total: prometheus.NewDesc(
			ns+"_requests_total", "Total number of requests observed.", nil, nil,
		),
		hedgedTotal: prometheus.NewDesc(
			ns+"_hedged_total", "Total number of requests that fired a backup attempt.", nil, nil,
		),
		winsTotal: prometheus.NewDesc(
			ns+"_hedge_wins_total", "Total number of requests won by a backup attempt.", nil, nil,
		),
		costTotal: prometheus.NewDesc(
			ns+"_cost_total", "Sum of attempt counts across all observed requests.", nil, nil,
		),
		latencyMS: prometheus.NewDesc(
			ns+"_latency_ms", "Observed call latency in milliseconds, by quantile.", []string{"quantile"}, nil,
		),
		costRatio: prometheus.NewDesc(
			ns+"_cost_overhead_ratio", "Percentage of extra attempts incurred relative to a non-hedged baseline.", nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.total
	ch <- c.hedgedTotal
	ch <- c.winsTotal
	ch <- c.costTotal
	ch <- c.latencyMS
	ch <- c.costRatio
}

// Collect implements prometheus.Collector. It is a no-op snapshot when the
// sink has not recorded any outcome yet.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	stats, err := c.sink.GetStats()
	if err != nil {
		return
	}

	ch <- prometheus.MustNewConstMetric(c.total, prometheus.CounterValue, float64(stats.Total))
	ch <- prometheus.MustNewConstMetric(c.hedgedTotal, prometheus.CounterValue, stats.HedgeRate*float64(stats.Total))
	ch <- prometheus.MustNewConstMetric(c.winsTotal, prometheus.CounterValue, stats.HedgeEffectiveness*float64(stats.Total))
	ch <- prometheus.MustNewConstMetric(c.costTotal, prometheus.CounterValue, stats.TotalCost)
	ch <- prometheus.MustNewConstMetric(c.costRatio, prometheus.GaugeValue, stats.CostOverheadPct)

	ch <- prometheus.MustNewConstMetric(c.latencyMS, prometheus.GaugeValue, stats.P50, "0.5")
	ch <- prometheus.MustNewConstMetric(c.latencyMS, prometheus.GaugeValue, stats.P90, "0.9")
	ch <- prometheus.MustNewConstMetric(c.latencyMS, prometheus.GaugeValue, stats.P95, "0.95")
	ch <- prometheus.MustNewConstMetric(c.latencyMS, prometheus.GaugeValue, stats.P99, "0.99")
	ch <- prometheus.MustNewConstMetric(c.latencyMS, prometheus.GaugeValue, stats.P999, "0.999")
}
