// Package promstats exports the waitgen node pool statistics to Prometheus.
package promstats

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/llxisdsh/waitgen"
)

// Collector reports waitgen.Stats on every scrape.
type Collector struct {
	allocated *prometheus.Desc
	idle      *prometheus.Desc
	recycled  *prometheus.Desc
	discarded *prometheus.Desc

	stats func() waitgen.PoolStats
}

// NewCollector creates a Collector whose metric names are prefixed with
// namespace, e.g. "myapp" gives myapp_waitgen_nodes_allocated_total.
// An empty namespace leaves the names unprefixed.
func NewCollector(namespace string) *Collector {
	return newCollector(namespace, waitgen.Stats)
}

func newCollector(namespace string, stats func() waitgen.PoolStats) *Collector {
	name := func(n string) string {
		return prometheus.BuildFQName(namespace, "waitgen", n)
	}
	return &Collector{
		allocated: prometheus.NewDesc(name("nodes_allocated_total"),
			"Total number of wait nodes ever allocated", nil, nil),
		idle: prometheus.NewDesc(name("nodes_idle"),
			"Number of drained wait nodes kept for reuse", nil, nil),
		recycled: prometheus.NewDesc(name("nodes_recycled_total"),
			"Total number of drained wait nodes returned to the idle pool", nil, nil),
		discarded: prometheus.NewDesc(name("nodes_discarded_total"),
			"Total number of drained wait nodes dropped because the idle pool was full", nil, nil),
		stats: stats,
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.allocated
	ch <- c.idle
	ch <- c.recycled
	ch <- c.discarded
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.stats()
	ch <- prometheus.MustNewConstMetric(c.allocated, prometheus.CounterValue, float64(s.Allocated))
	ch <- prometheus.MustNewConstMetric(c.idle, prometheus.GaugeValue, float64(s.Idle))
	ch <- prometheus.MustNewConstMetric(c.recycled, prometheus.CounterValue, float64(s.Recycled))
	ch <- prometheus.MustNewConstMetric(c.discarded, prometheus.CounterValue, float64(s.Discarded))
}

// Register creates a Collector and registers it with reg.
func Register(reg prometheus.Registerer, namespace string) (*Collector, error) {
	c := NewCollector(namespace)
	if err := reg.Register(c); err != nil {
		return nil, err
	}
	return c, nil
}
