// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package metrics implements a Prometheus-backed tcpm.MetricsHook.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rkallos/tcpm"
)

// Hook is a [github.com/rkallos/tcpm.MetricsHook] backed by Prometheus
// collectors. The zero value is not usable; construct with New.
type Hook struct {
	procCount prometheus.Gauge
	spawned   prometheus.Counter
	sendTotal *prometheus.CounterVec
}

// New creates a Hook and registers its collectors with reg. Namespace and
// subsystem label every metric, so one reg can host metrics for several
// independently named ProcessQueues.
func New(reg prometheus.Registerer, namespace, subsystem string) *Hook {
	h := &Hook{
		procCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "actors_live",
			Help:      "number of currently live actors",
		}),
		spawned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "actors_spawned_total",
			Help:      "total number of successful spawns",
		}),
		sendTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "sends_total",
			Help:      "total sends by outcome",
		}, []string{"result"}),
	}

	reg.MustRegister(h.procCount, h.spawned, h.sendTotal)

	return h
}

// ObserveProcCount reports the current live actor count.
func (h *Hook) ObserveProcCount(n int64) {
	h.procCount.Set(float64(n))
}

// IncSpawned counts one successful spawn.
func (h *Hook) IncSpawned() {
	h.spawned.Inc()
}

// IncSend counts one Send outcome, labeled by its String() form.
func (h *Hook) IncSend(result tcpm.SendResult) {
	h.sendTotal.WithLabelValues(result.String()).Inc()
}
