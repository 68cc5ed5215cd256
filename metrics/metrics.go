// Package metrics exposes a machine's runtime statistics as Prometheus
// metrics. The engine itself carries no instrumentation; this adapter reads
// the introspection accessors on every scrape.
//
// The engine is not synchronized, so either drive the scrape from the same
// goroutine as the machine's loop or accept approximate values: every
// accessor is a plain read of an integer field.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ticksm/ticksm"
)

const namespace = "ticksm"

// Collector implements prometheus.Collector for one machine.
type Collector struct {
	machine *ticksm.Machine

	stateIndex  *prometheus.Desc
	timeInState *prometheus.Desc
	stateExecs  *prometheus.Desc
	execs       *prometheus.Desc
	transitions *prometheus.Desc
}

// NewCollector wraps machine in a collector. The machine label tells
// multiple registered machines apart.
func NewCollector(machine *ticksm.Machine, name string) *Collector {
	labels := prometheus.Labels{"machine": name}
	return &Collector{
		machine: machine,
		stateIndex: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "state_index"),
			"Index of the active state in the machine's state table.",
			nil, labels,
		),
		timeInState: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "time_in_state_ticks"),
			"Ticks elapsed since the last transition.",
			nil, labels,
		),
		stateExecs: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "state_executions"),
			"Exec invocations of the active state since it was entered.",
			nil, labels,
		),
		execs: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "executions_total"),
			"Lifetime exec invocations of the machine.",
			nil, labels,
		),
		transitions: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "transitions_total"),
			"Lifetime successful transitions.",
			nil, labels,
		),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.stateIndex
	ch <- c.timeInState
	ch <- c.stateExecs
	ch <- c.execs
	ch <- c.transitions
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(
		c.stateIndex, prometheus.GaugeValue, float64(c.machine.StateIndex()))
	ch <- prometheus.MustNewConstMetric(
		c.timeInState, prometheus.GaugeValue, float64(c.machine.TimeInState()))
	ch <- prometheus.MustNewConstMetric(
		c.stateExecs, prometheus.GaugeValue, float64(c.machine.ExecCount()))
	ch <- prometheus.MustNewConstMetric(
		c.execs, prometheus.CounterValue, float64(c.machine.TotalExecCount()))
	ch <- prometheus.MustNewConstMetric(
		c.transitions, prometheus.CounterValue, float64(c.machine.TransitionCount()))
}
