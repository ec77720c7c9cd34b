// Copyright (c) Edgeless Systems GmbH.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package core implements the step coordinator of the pullup controller:
// the pure per-cycle computation and the Core type that owns the persistent
// record between cycles.
package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/edgelesssys/pullup/controller/constants"
	"github.com/edgelesssys/pullup/controller/events"
	"github.com/edgelesssys/pullup/controller/output"
	"github.com/edgelesssys/pullup/controller/state"
	"github.com/edgelesssys/pullup/controller/translog"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var (
	// ErrOverrun is returned when a cycle is requested before the previous one committed.
	ErrOverrun = errors.New("previous cycle has not completed")
	// ErrInvalidState is returned when restoring a record with unenumerated states.
	ErrInvalidState = errors.New("invalid persistent state")
)

// Record describes one completed cycle.
type Record struct {
	Cycle  uint64             `json:"cycle"`
	Inputs state.Inputs       `json:"inputs"`
	Before state.Persistent   `json:"before"`
	After  state.Persistent   `json:"after"`
	Flags  output.StatusFlags `json:"flags"`
	Pullup bool               `json:"pullup"`
}

// Core owns the persistent record of one controller instance.
// Cycles are single-writer: the record is replaced as a whole after every cycle.
type Core struct {
	mux      sync.Mutex
	state    state.Persistent
	initial  state.Persistent
	cycle    uint64
	stepping atomic.Bool

	log      *zap.Logger
	audit    *translog.Logger
	eventlog *events.Log
	metrics  *Metrics
}

// NewCore creates a Core starting from initial.
// zapLogger, promFactory, eventlog and audit may be nil.
func NewCore(initial state.Persistent, zapLogger *zap.Logger, promFactory *promauto.Factory, eventlog *events.Log, audit *translog.Logger) (*Core, error) {
	if err := initial.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidState, err)
	}
	if zapLogger == nil {
		zapLogger = zap.NewNop()
	}
	c := &Core{
		state:    initial,
		initial:  initial,
		log:      zapLogger,
		audit:    audit,
		eventlog: eventlog,
		metrics:  NewMetrics(promFactory, constants.MetricsNamespace, ""),
	}
	c.metrics.set(initial)
	zapLogger.Info("controller initialized",
		zap.Stringer("manager", initial.Manager),
		zap.Stringer("sensor", initial.Sensor),
		zap.Bool("sensorHealthy", initial.SensorHealthy),
	)
	return c, nil
}

// Step runs one cycle with the given inputs and returns the pullup output.
func (c *Core) Step(ctx context.Context, in state.Inputs) (bool, error) {
	rec, err := c.Advance(ctx, in)
	if err != nil {
		return false, err
	}
	return rec.Pullup, nil
}

// Advance runs one cycle and returns a full record of it.
func (c *Core) Advance(ctx context.Context, in state.Inputs) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	if !c.stepping.CompareAndSwap(false, true) {
		c.metrics.overrun()
		c.log.Warn("cycle rejected", zap.Error(ErrOverrun))
		return Record{}, ErrOverrun
	}
	defer c.stepping.Store(false)

	c.mux.Lock()
	prev := c.state
	res := Evaluate(prev, in)
	c.state = res.Next
	c.cycle++
	rec := Record{
		Cycle:  c.cycle,
		Inputs: in,
		Before: prev,
		After:  res.Next,
		Flags:  res.Flags,
		Pullup: res.Pullup,
	}
	c.mux.Unlock()

	c.report(rec)
	return rec, nil
}

// State returns the record committed by the last cycle.
func (c *Core) State() state.Persistent {
	c.mux.Lock()
	defer c.mux.Unlock()
	return c.state
}

// Cycle returns the number of completed cycles.
func (c *Core) Cycle() uint64 {
	c.mux.Lock()
	defer c.mux.Unlock()
	return c.cycle
}

// Reset returns the controller to the record it was created with.
// It fails with ErrOverrun while a cycle is in progress.
func (c *Core) Reset() error {
	if !c.stepping.CompareAndSwap(false, true) {
		return ErrOverrun
	}
	defer c.stepping.Store(false)

	c.mux.Lock()
	c.state = c.initial
	c.cycle = 0
	c.mux.Unlock()
	c.metrics.set(c.initial)
	c.log.Info("controller reset", zap.Stringer("state", c.initial))
	return nil
}

// Restore replaces the persistent record, e.g. with a decoded snapshot.
// It fails with ErrOverrun while a cycle is in progress.
func (c *Core) Restore(p state.Persistent) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidState, err)
	}
	if !c.stepping.CompareAndSwap(false, true) {
		return ErrOverrun
	}
	defer c.stepping.Store(false)

	c.mux.Lock()
	c.state = p
	c.mux.Unlock()
	c.metrics.set(p)
	c.log.Info("controller state restored", zap.Stringer("state", p))
	return nil
}

func (c *Core) report(rec Record) {
	c.metrics.observe(rec.After, rec.Pullup)
	c.log.Debug("cycle completed",
		zap.Uint64("cycle", rec.Cycle),
		zap.Bool("standby", rec.Inputs.Standby),
		zap.Bool("apfail", rec.Inputs.APFail),
		zap.Bool("supported", rec.Inputs.Supported),
		zap.Bool("limits", rec.Inputs.Limits),
		zap.Stringer("manager", rec.After.Manager),
		zap.Stringer("sensor", rec.After.Sensor),
		zap.Bool("pullup", rec.Pullup),
	)

	if from, to := rec.Before.Manager, rec.After.Manager; from != to {
		c.transition(rec.Cycle, events.MachineManager, from.String(), to.String())
		c.log.Info("manager state changed", zap.Uint64("cycle", rec.Cycle), zap.Stringer("from", from), zap.Stringer("to", to))
	}
	if from, to := rec.Before.Sensor, rec.After.Sensor; from != to {
		c.transition(rec.Cycle, events.MachineSensor, from.String(), to.String())
		if to == state.SensorFault {
			c.log.Warn("sensor fault", zap.Uint64("cycle", rec.Cycle), zap.Bool("limits", rec.Inputs.Limits))
		} else {
			c.log.Info("sensor state changed", zap.Uint64("cycle", rec.Cycle), zap.Stringer("from", from), zap.Stringer("to", to))
		}
	}

	if wasEngaged := rec.Before.Manager == state.ManagerManeuver; wasEngaged != rec.Pullup {
		if c.eventlog != nil {
			c.eventlog.Pullup(rec.Cycle, rec.Pullup)
		}
		if rec.Pullup {
			c.log.Warn("pullup engaged", zap.Uint64("cycle", rec.Cycle))
		} else {
			c.log.Info("pullup released", zap.Uint64("cycle", rec.Cycle))
		}
	}
}

func (c *Core) transition(cycle uint64, machine, from, to string) {
	c.metrics.transition(machine, from, to)
	if c.eventlog != nil {
		c.eventlog.Transition(cycle, machine, from, to)
	}
	if c.audit != nil {
		c.audit.Info(machine, zap.Uint64("cycle", cycle), zap.String("from", from), zap.String("to", to))
	}
}
