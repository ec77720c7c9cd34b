// Copyright (c) Edgeless Systems GmbH.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package core

import (
	"github.com/edgelesssys/pullup/controller/state"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the Prometheus metrics exported by a Core.
type Metrics struct {
	cycles        prometheus.Counter
	overruns      prometheus.Counter
	pullup        prometheus.Gauge
	managerState  prometheus.Gauge
	sensorState   prometheus.Gauge
	sensorHealthy prometheus.Gauge
	transitions   *prometheus.CounterVec
}

// NewMetrics creates the Core metrics and registers them using the given factory.
// A nil factory disables metrics.
func NewMetrics(factory *promauto.Factory, namespace string, subsystem string) *Metrics {
	if factory == nil {
		return nil
	}
	return &Metrics{
		cycles: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "cycles_total",
			Help:      "Number of completed control cycles.",
		}),
		overruns: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "overruns_total",
			Help:      "Number of cycles rejected because the previous cycle had not completed.",
		}),
		pullup: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "engaged",
			Help:      "1 if the pullup override is engaged.",
		}),
		managerState: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "manager_state",
			Help:      "State of the Manager machine (0 TRANSITION, 1 NOMINAL, 2 MANEUVER, 3 STANDBY).",
		}),
		sensorState: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "sensor_state",
			Help:      "State of the Sensor machine (0 NOMINAL, 1 TRANSITION, 2 FAULT).",
		}),
		sensorHealthy: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "sensor_healthy",
			Help:      "1 if the committed sensor health flag is set.",
		}),
		transitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "transitions_total",
				Help:      "Number of state changes per machine.",
			},
			[]string{"machine", "from", "to"},
		),
	}
}

func (m *Metrics) observe(s state.Persistent, pullup bool) {
	if m == nil {
		return
	}
	m.cycles.Inc()
	m.pullup.Set(boolToFloat(pullup))
	m.managerState.Set(float64(s.Manager))
	m.sensorState.Set(float64(s.Sensor))
	m.sensorHealthy.Set(boolToFloat(s.SensorHealthy))
}

func (m *Metrics) set(s state.Persistent) {
	if m == nil {
		return
	}
	m.pullup.Set(boolToFloat(s.Manager == state.ManagerManeuver))
	m.managerState.Set(float64(s.Manager))
	m.sensorState.Set(float64(s.Sensor))
	m.sensorHealthy.Set(boolToFloat(s.SensorHealthy))
}

func (m *Metrics) transition(machine, from, to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(machine, from, to).Inc()
}

func (m *Metrics) overrun() {
	if m == nil {
		return
	}
	m.overruns.Inc()
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
