// Copyright (c) Edgeless Systems GmbH.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package scenario loads scripted input sequences and runs them against a controller.
package scenario

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/edgelesssys/pullup/controller/core"
	"github.com/edgelesssys/pullup/controller/snapshot"
	"github.com/edgelesssys/pullup/controller/state"
	"github.com/spf13/afero"
	"sigs.k8s.io/yaml"
)

// ErrEmpty is returned for a scenario without cycles.
var ErrEmpty = errors.New("scenario has no cycles")

// MaxRepeat bounds the repeat count of a single cycle.
const MaxRepeat = 100000

// Expectation lists the values a cycle must produce. Unset fields are not checked.
type Expectation struct {
	Manager       *state.ManagerState `json:"manager,omitempty"`
	Sensor        *state.SensorState  `json:"sensor,omitempty"`
	SensorHealthy *bool               `json:"sensorHealthy,omitempty"`
	Pullup        *bool               `json:"pullup,omitempty"`
}

// Cycle is one scripted step. Repeat runs the same inputs several times; the
// expectation is checked after the last repetition.
type Cycle struct {
	Inputs state.Inputs `json:"inputs"`
	Repeat int          `json:"repeat,omitempty"`
	Expect *Expectation `json:"expect,omitempty"`
}

// Scenario is a named input sequence with an optional starting record.
type Scenario struct {
	Name    string            `json:"name"`
	Initial *state.Persistent `json:"-"`
	Cycles  []Cycle           `json:"cycles"`
}

type rawScenario struct {
	Name    string          `json:"name"`
	Initial json.RawMessage `json:"initial,omitempty"`
	Cycles  []Cycle         `json:"cycles"`
}

// Load reads a scenario in YAML or JSON format from fs.
func Load(fs afero.Fs, path string) (Scenario, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return Scenario{}, err
	}
	sc, err := Parse(data)
	if err != nil {
		return Scenario{}, fmt.Errorf("parsing scenario %s: %w", path, err)
	}
	return sc, nil
}

// Parse decodes a scenario in YAML or JSON format.
func Parse(data []byte) (Scenario, error) {
	jsonData, err := yaml.YAMLToJSONStrict(data)
	if err != nil {
		return Scenario{}, err
	}

	var raw rawScenario
	dec := json.NewDecoder(bytes.NewReader(jsonData))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&raw); err != nil {
		return Scenario{}, err
	}
	if len(raw.Cycles) == 0 {
		return Scenario{}, ErrEmpty
	}
	for i, c := range raw.Cycles {
		if c.Repeat < 0 {
			return Scenario{}, fmt.Errorf("cycle %d: negative repeat %d", i, c.Repeat)
		}
		if c.Repeat > MaxRepeat {
			return Scenario{}, fmt.Errorf("cycle %d: repeat %d exceeds %d", i, c.Repeat, MaxRepeat)
		}
	}

	sc := Scenario{Name: raw.Name, Cycles: raw.Cycles}
	if len(raw.Initial) > 0 && !bytes.Equal(raw.Initial, []byte("null")) {
		initial, err := snapshot.UnmarshalJSON(raw.Initial)
		if err != nil {
			return Scenario{}, fmt.Errorf("initial state: %w", err)
		}
		sc.Initial = &initial
	}
	return sc, nil
}

// Mismatch is an expectation that did not hold.
type Mismatch struct {
	Cycle uint64 `json:"cycle"`
	Field string `json:"field"`
	Want  string `json:"want"`
	Got   string `json:"got"`
}

func (m Mismatch) String() string {
	return fmt.Sprintf("cycle %d: %s: want %s, got %s", m.Cycle, m.Field, m.Want, m.Got)
}

// Trace is the outcome of running a scenario.
type Trace struct {
	Name       string        `json:"name"`
	Records    []core.Record `json:"records"`
	Mismatches []Mismatch    `json:"mismatches,omitempty"`
}

// Passed reports whether every expectation held.
func (t Trace) Passed() bool {
	return len(t.Mismatches) == 0
}

// Run executes the scenario cycle by cycle on c. If the scenario has an
// initial record, c is restored to it first.
func Run(ctx context.Context, c *core.Core, sc Scenario) (Trace, error) {
	if sc.Initial != nil {
		if err := c.Restore(*sc.Initial); err != nil {
			return Trace{}, err
		}
	}

	trace := Trace{Name: sc.Name}
	for _, cycle := range sc.Cycles {
		repeat := max(cycle.Repeat, 1)
		var rec core.Record
		for i := 0; i < repeat; i++ {
			var err error
			rec, err = c.Advance(ctx, cycle.Inputs)
			if err != nil {
				return trace, err
			}
			trace.Records = append(trace.Records, rec)
		}
		if cycle.Expect != nil {
			trace.Mismatches = append(trace.Mismatches, cycle.Expect.check(rec)...)
		}
	}
	return trace, nil
}

func (e *Expectation) check(rec core.Record) []Mismatch {
	var mismatches []Mismatch
	add := func(field string, want, got any) {
		mismatches = append(mismatches, Mismatch{
			Cycle: rec.Cycle,
			Field: field,
			Want:  fmt.Sprint(want),
			Got:   fmt.Sprint(got),
		})
	}
	if e.Manager != nil && *e.Manager != rec.After.Manager {
		add("manager", *e.Manager, rec.After.Manager)
	}
	if e.Sensor != nil && *e.Sensor != rec.After.Sensor {
		add("sensor", *e.Sensor, rec.After.Sensor)
	}
	if e.SensorHealthy != nil && *e.SensorHealthy != rec.After.SensorHealthy {
		add("sensorHealthy", *e.SensorHealthy, rec.After.SensorHealthy)
	}
	if e.Pullup != nil && *e.Pullup != rec.Pullup {
		add("pullup", *e.Pullup, rec.Pullup)
	}
	return mismatches
}
