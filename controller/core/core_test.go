// Copyright (c) Edgeless Systems GmbH.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package core

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/edgelesssys/pullup/controller/events"
	"github.com/edgelesssys/pullup/controller/state"
	"github.com/edgelesssys/pullup/controller/translog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestNewCore(t *testing.T) {
	testCases := map[string]struct {
		initial state.Persistent
		wantErr error
	}{
		"default": {
			initial: state.Initial(),
		},
		"standby": {
			initial: state.Persistent{Manager: state.ManagerStandby, Sensor: state.SensorTransition, SensorHealthy: true},
		},
		"invalid manager": {
			initial: state.Persistent{Manager: state.ManagerState(9)},
			wantErr: state.ErrInvalidManagerState,
		},
		"invalid sensor": {
			initial: state.Persistent{Sensor: state.SensorState(-2)},
			wantErr: state.ErrInvalidSensorState,
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)

			c, err := NewCore(tc.initial, nil, nil, nil, nil)
			if tc.wantErr != nil {
				assert.ErrorIs(err, ErrInvalidState)
				assert.ErrorIs(err, tc.wantErr)
				return
			}
			assert.NoError(err)
			assert.Equal(tc.initial, c.State())
			assert.Zero(c.Cycle())
		})
	}
}

func TestCoreAdvance(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	eventlog := events.NewLog("test-run")
	audit, err := translog.New()
	require.NoError(err)
	reg := prometheus.NewRegistry()
	fac := promauto.With(reg)

	c, err := NewCore(state.Initial(), zaptest.NewLogger(t), &fac, eventlog, audit)
	require.NoError(err)

	in := state.Inputs{Supported: true, Limits: true}

	rec, err := c.Advance(context.Background(), in)
	require.NoError(err)
	assert.EqualValues(1, rec.Cycle)
	assert.Equal(state.Initial(), rec.Before)
	assert.Equal(state.Persistent{Manager: state.ManagerNominal, Sensor: state.SensorFault, SensorHealthy: false}, rec.After)
	assert.False(rec.Pullup)

	pullup, err := c.Step(context.Background(), in)
	require.NoError(err)
	assert.True(pullup)
	assert.Equal(state.ManagerManeuver, c.State().Manager)
	assert.EqualValues(2, c.Cycle())

	assert.Equal(float64(2), promtest.ToFloat64(c.metrics.cycles))
	assert.Equal(float64(1), promtest.ToFloat64(c.metrics.pullup))
	assert.Equal(float64(state.ManagerManeuver), promtest.ToFloat64(c.metrics.managerState))
	assert.Equal(float64(state.SensorTransition), promtest.ToFloat64(c.metrics.sensorState))
	assert.Equal(float64(1), promtest.ToFloat64(c.metrics.sensorHealthy))
	assert.Equal(4, promtest.CollectAndCount(c.metrics.transitions))
	assert.Equal(float64(1), promtest.ToFloat64(c.metrics.transitions.WithLabelValues(events.MachineManager, "NOMINAL", "MANEUVER")))
	assert.Equal(float64(1), promtest.ToFloat64(c.metrics.transitions.WithLabelValues(events.MachineSensor, "NOMINAL", "FAULT")))

	evs := eventlog.Events()
	require.Len(evs, 5)
	for _, e := range evs {
		assert.Equal("test-run", e.RunID)
	}
	assert.Equal(&events.TransitionEvent{Machine: events.MachineManager, From: "TRANSITION", To: "NOMINAL"}, evs[0].Transition)
	assert.Equal(&events.TransitionEvent{Machine: events.MachineSensor, From: "NOMINAL", To: "FAULT"}, evs[1].Transition)
	assert.Equal(&events.TransitionEvent{Machine: events.MachineManager, From: "NOMINAL", To: "MANEUVER"}, evs[2].Transition)
	assert.Equal(&events.TransitionEvent{Machine: events.MachineSensor, From: "FAULT", To: "TRANSITION"}, evs[3].Transition)
	assert.Equal(&events.PullupEvent{Engaged: true}, evs[4].Pullup)
	assert.EqualValues(2, evs[4].Cycle)

	auditLog := audit.String()
	assert.Contains(auditLog, `"transition":"manager"`)
	assert.Contains(auditLog, `"to":"MANEUVER"`)
	assert.Contains(auditLog, `"to":"FAULT"`)

	// support without limits releases the latch
	pullup, err = c.Step(context.Background(), state.Inputs{Supported: true})
	require.NoError(err)
	assert.False(pullup)
	evs = eventlog.Events()
	assert.Equal(&events.PullupEvent{Engaged: false}, evs[len(evs)-1].Pullup)
	assert.Equal(float64(0), promtest.ToFloat64(c.metrics.pullup))
}

func TestCoreOverrun(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	reg := prometheus.NewRegistry()
	fac := promauto.With(reg)
	c, err := NewCore(state.Initial(), zap.NewNop(), &fac, nil, nil)
	require.NoError(err)

	// simulate a cycle that is still in progress
	c.stepping.Store(true)
	_, err = c.Step(context.Background(), state.Inputs{Supported: true})
	assert.ErrorIs(err, ErrOverrun)
	assert.Equal(state.Initial(), c.State())
	assert.Zero(c.Cycle())
	assert.Equal(float64(1), promtest.ToFloat64(c.metrics.overruns))

	c.stepping.Store(false)
	_, err = c.Step(context.Background(), state.Inputs{Supported: true})
	assert.NoError(err)
	assert.Equal(state.ManagerNominal, c.State().Manager)
}

func TestCoreConcurrentSteps(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	c, err := NewCore(state.Initial(), nil, nil, nil, nil)
	require.NoError(err)

	var wg sync.WaitGroup
	var mux sync.Mutex
	completed := 0
	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Step(context.Background(), state.Inputs{Supported: true})
			if errors.Is(err, ErrOverrun) {
				return
			}
			assert.NoError(err)
			mux.Lock()
			completed++
			mux.Unlock()
		}()
	}
	wg.Wait()

	assert.EqualValues(completed, c.Cycle())
	assert.Positive(completed)
	assert.Equal(state.Persistent{Manager: state.ManagerNominal, Sensor: state.SensorNominal, SensorHealthy: true}, c.State())
}

func TestCoreContextCanceled(t *testing.T) {
	assert := assert.New(t)

	c, err := NewCore(state.Initial(), nil, nil, nil, nil)
	assert.NoError(err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.Step(ctx, state.Inputs{Supported: true})
	assert.ErrorIs(err, context.Canceled)
	assert.Zero(c.Cycle())
	assert.Equal(state.Initial(), c.State())
}

func TestCoreResetAndRestore(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	initial := state.Persistent{Manager: state.ManagerStandby, Sensor: state.SensorNominal, SensorHealthy: true}
	c, err := NewCore(initial, nil, nil, nil, nil)
	require.NoError(err)

	_, err = c.Step(context.Background(), state.Inputs{APFail: true})
	require.NoError(err)
	assert.Equal(state.ManagerManeuver, c.State().Manager)

	require.NoError(c.Reset())
	assert.Equal(initial, c.State())
	assert.Zero(c.Cycle())

	restored := state.Persistent{Manager: state.ManagerNominal, Sensor: state.SensorFault, SensorHealthy: false}
	require.NoError(c.Restore(restored))
	assert.Equal(restored, c.State())

	err = c.Restore(state.Persistent{Manager: state.ManagerState(4)})
	assert.ErrorIs(err, ErrInvalidState)
	assert.ErrorIs(err, state.ErrInvalidManagerState)
	assert.Equal(restored, c.State())

	pullup, err := c.Step(context.Background(), state.Inputs{})
	require.NoError(err)
	assert.True(pullup)
}

func TestCoreResetAndRestoreDuringCycle(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	c, err := NewCore(state.Initial(), nil, nil, nil, nil)
	require.NoError(err)
	_, err = c.Step(context.Background(), state.Inputs{Supported: true})
	require.NoError(err)
	want := c.State()

	// a cycle that has committed but not yet reported
	c.stepping.Store(true)
	assert.ErrorIs(c.Reset(), ErrOverrun)
	assert.ErrorIs(c.Restore(state.Initial()), ErrOverrun)
	assert.Equal(want, c.State())
	assert.Equal(uint64(1), c.Cycle())

	c.stepping.Store(false)
	assert.NoError(c.Reset())
	assert.Equal(state.Initial(), c.State())
	assert.NoError(c.Restore(want))
	assert.Equal(want, c.State())
}

func TestMetricsDisabled(t *testing.T) {
	assert := assert.New(t)

	m := NewMetrics(nil, "test", "")
	assert.Nil(m)
	assert.NotPanics(func() {
		m.observe(state.Initial(), false)
		m.set(state.Initial())
		m.transition(events.MachineManager, "TRANSITION", "NOMINAL")
		m.overrun()
	})
}

func TestMetricsRegistered(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	reg := prometheus.NewRegistry()
	fac := promauto.With(reg)
	c, err := NewCore(state.Initial(), nil, &fac, nil, nil)
	require.NoError(err)
	_, err = c.Step(context.Background(), state.Inputs{Supported: true})
	require.NoError(err)

	families, err := reg.Gather()
	require.NoError(err)
	types := map[string]dto.MetricType{}
	for _, f := range families {
		types[f.GetName()] = f.GetType()
	}
	assert.Equal(map[string]dto.MetricType{
		"pullup_cycles_total":      dto.MetricType_COUNTER,
		"pullup_overruns_total":    dto.MetricType_COUNTER,
		"pullup_engaged":           dto.MetricType_GAUGE,
		"pullup_manager_state":     dto.MetricType_GAUGE,
		"pullup_sensor_state":      dto.MetricType_GAUGE,
		"pullup_sensor_healthy":    dto.MetricType_GAUGE,
		"pullup_transitions_total": dto.MetricType_COUNTER,
	}, types)
}
