package health

import (
	"github.com/prometheus/client_golang/prometheus"
)

type collector struct {
	registry      *Registry
	conditionDesc *prometheus.Desc
	okDesc        *prometheus.Desc
}

// Collector exports the registry state to prometheus at scrape time. The
// registry kind is a constant label, so collectors of differently named
// registries can be registered side by side.
func (r *Registry) Collector() prometheus.Collector {
	labels := prometheus.Labels{"registry": r.kind}
	return &collector{
		registry: r,
		conditionDesc: prometheus.NewDesc(
			"identgate_health_condition",
			"Whether a health condition is passing (1) or failing (0)",
			[]string{"condition"}, labels,
		),
		okDesc: prometheus.NewDesc(
			"identgate_health_ok",
			"Whether every condition of a health registry is passing",
			nil, labels,
		),
	}
}

func (c *collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.conditionDesc
	ch <- c.okDesc
}

func (c *collector) Collect(ch chan<- prometheus.Metric) {
	healthy := true
	for name, ok := range c.registry.conditions() {
		if !ok {
			healthy = false
		}
		ch <- prometheus.MustNewConstMetric(c.conditionDesc, prometheus.GaugeValue, gaugeValue(ok), name)
	}
	ch <- prometheus.MustNewConstMetric(c.okDesc, prometheus.GaugeValue, gaugeValue(healthy))
}

func gaugeValue(ok bool) float64 {
	if ok {
		return 1
	}
	return 0
}
